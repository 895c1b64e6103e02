package daterange

import (
	"testing"
	"time"

	"github.com/hupe1980/catalogo/cache"
	"github.com/hupe1980/catalogo/idset"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/index/date"
	"github.com/hupe1980/catalogo/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time { return time.Date(2023, 5, d, 0, 0, 0, 0, time.UTC) }

func newIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := New("effective_range", "effective", "expires", nil, date.WithNaiveTimeAsLocal(false))
	require.NoError(t, err)

	docs := map[uint32]index.Record{
		1: {"effective": day(1), "expires": day(10)},
		2: {"effective": day(5), "expires": day(6)},
		3: {"effective": day(8)},
		4: {"expires": day(3)},
		5: {"effective": day(2), "expires": day(2)},
		6: {"title": "no range"},
	}
	for docid, obj := range docs {
		_, err := ix.IndexObject(docid, obj)
		require.NoError(t, err)
	}
	return ix
}

func TestNew_RequiresAttributes(t *testing.T) {
	_, err := New("r", "since", "", nil)
	require.ErrorIs(t, err, index.ErrConfiguration)
}

func TestIndex_Apply(t *testing.T) {
	ix := newIndex(t)
	assert.Equal(t, 5, ix.NumObjects())

	tests := []struct {
		name string
		at   any
		want []uint32
	}{
		{"before everything", day(1).Add(-time.Hour), []uint32{4}},
		{"first day", day(1), []uint32{1, 4}},
		{"single day range", day(2), []uint32{1, 4, 5}},
		{"inclusive until", day(3), []uint32{1, 4}},
		{"overlap", day(5), []uint32{1, 2}},
		{"open until", day(9), []uint32{1, 3}},
		{"after expiry", day(20), []uint32{3}},
		{"string key", "2023-05-06T00:00:00Z", []uint32{1, 2}},
		{"several points", []any{day(2), day(9)}, []uint32{1, 3, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ix.Apply(nil, query.Request{"effective_range": tt.at}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.IDs.ToArray())
		})
	}

	res, err := ix.Apply(nil, query.Request{"effective_range": day(5)}, idset.Of(2, 3))
	require.NoError(t, err)
	assert.Equal(t, []uint32{2}, res.IDs.ToArray())

	res, err = ix.Apply(nil, query.Request{"other": day(5)}, nil)
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = ix.Apply(nil, query.Request{"effective_range": "soon"}, nil)
	require.ErrorIs(t, err, query.ErrInvalidQuery)
}

func TestIndex_Reindex(t *testing.T) {
	ix := newIndex(t)
	counter := ix.Counter()

	changed, err := ix.IndexObject(2, index.Record{"effective": day(5), "expires": day(6)})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, counter, ix.Counter())

	changed, err = ix.IndexObject(2, index.Record{"effective": day(5), "expires": day(30)})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Greater(t, ix.Counter(), counter)

	res, err := ix.Apply(nil, query.Request{"effective_range": day(20)}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 3}, res.IDs.ToArray())

	changed, err = ix.IndexObject(2, index.Record{})
	require.NoError(t, err)
	assert.True(t, changed)
	_, ok := ix.EntryForObject(2)
	assert.False(t, ok)
}

func TestIndex_RequestCache(t *testing.T) {
	ix := newIndex(t)
	rc := cache.NewRequestCache()
	qc := &index.QueryContext{CatalogID: "c", Cache: rc}

	for range 2 {
		res, err := ix.Apply(qc, query.Request{"effective_range": day(5)}, nil)
		require.NoError(t, err)
		assert.Equal(t, []uint32{1, 2}, res.IDs.ToArray())
	}
	stats := rc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Sets)

	_, err := ix.IndexObject(7, index.Record{"effective": day(4)})
	require.NoError(t, err)
	res, err := ix.Apply(qc, query.Request{"effective_range": day(5)}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 7}, res.IDs.ToArray())
}

func TestIndex_State(t *testing.T) {
	ix := newIndex(t)
	st, err := ix.ExportState()
	require.NoError(t, err)

	restored, err := New("effective_range", "effective", "expires", nil)
	require.NoError(t, err)
	require.NoError(t, restored.ImportState(st))
	assert.GreaterOrEqual(t, restored.Counter(), ix.Counter())

	for docid := range ix.docs.All() {
		want, _ := ix.EntryForObject(docid)
		got, ok := restored.EntryForObject(docid)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	def := restored.Definition()
	assert.Equal(t, "effective", def.Extra["since_field"])
	assert.Equal(t, "expires", def.Extra["until_field"])
}
