package boolean

import (
	"testing"

	"github.com/hupe1980/catalogo/idset"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/query"
	"github.com/hupe1980/catalogo/testutil"
	"github.com/hupe1980/catalogo/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(lo, hi uint32) []uint32 {
	out := make([]uint32, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, i)
	}
	return out
}

func add(t *testing.T, ix *Index, docid uint32, truth bool) {
	t.Helper()
	_, err := ix.IndexObject(docid, index.Record{"truth": truth})
	require.NoError(t, err)
}

func search(t *testing.T, ix *Index, truth bool, rs *idset.Set) []uint32 {
	t.Helper()
	res, err := ix.Apply(nil, query.Request{"truth": truth}, rs)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []string{"truth"}, res.Used)
	return res.IDs.ToArray()
}

func TestIndex_FirstValueNotStored(t *testing.T) {
	for _, truth := range []bool{true, false} {
		ix := New("truth", nil, nil)
		add(t, ix, 1, truth)
		assert.Equal(t, 1, ix.NumObjects())
		assert.Equal(t, 0, ix.ExplicitLen())
		assert.Equal(t, !truth, ix.IndexedValue())
	}
}

func TestIndex_MissingAttribute(t *testing.T) {
	ix := New("truth", nil, nil)
	changed, err := ix.IndexObject(1, index.Record{"other": true})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, ix.NumObjects())
}

func TestIndex_Search(t *testing.T) {
	ix := New("truth", nil, nil)
	add(t, ix, 1, true)
	add(t, ix, 2, false)

	assert.Equal(t, []uint32{1}, search(t, ix, true, nil))
	assert.Equal(t, []uint32{2}, search(t, ix, false, nil))

	assert.Empty(t, search(t, ix, true, idset.New()))
	assert.Empty(t, search(t, ix, true, idset.Of(2)))
	assert.Equal(t, []uint32{1}, search(t, ix, true, idset.Of(1)))
	assert.Equal(t, []uint32{1}, search(t, ix, true, idset.Of(1, 2)))
	assert.Equal(t, []uint32{2}, search(t, ix, false, idset.Of(1, 2)))
	assert.Equal(t, []uint32{2}, search(t, ix, false, idset.Of(2, 3)))
}

func TestIndex_SearchBothValues(t *testing.T) {
	ix := New("truth", nil, nil)
	add(t, ix, 1, true)
	add(t, ix, 2, false)

	res, err := ix.Apply(nil, query.Request{"truth": []any{true, false}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, res.IDs.ToArray())
}

func TestIndex_UnsupportedOption(t *testing.T) {
	ix := New("truth", nil, nil)
	_, err := ix.Apply(nil, query.Request{"truth": map[string]any{"query": true, "not": false}}, nil)
	require.ErrorIs(t, err, query.ErrInvalidQuery)
}

func TestIndex_ManyTrue(t *testing.T) {
	ix := New("truth", nil, nil)
	for i := range uint32(100) {
		add(t, ix, i, i < 80)
	}
	assert.False(t, ix.IndexedValue())
	assert.Equal(t, 20, ix.ExplicitLen())
	assert.Equal(t, 100, ix.NumObjects())
	assert.Equal(t, ids(0, 80), search(t, ix, true, nil))
	assert.Equal(t, ids(80, 100), search(t, ix, false, nil))
}

func TestIndex_ManyFalse(t *testing.T) {
	ix := New("truth", nil, nil)
	for i := range uint32(100) {
		add(t, ix, i, i >= 80)
	}
	assert.True(t, ix.IndexedValue())
	assert.Equal(t, ids(80, 100), ix.Set(true).ToArray())
	assert.Equal(t, ids(0, 80), search(t, ix, false, nil))
	assert.Equal(t, ids(80, 100), search(t, ix, true, nil))
}

func TestIndex_ManyChange(t *testing.T) {
	ix := New("truth", nil, nil)
	for i := range uint32(4) {
		add(t, ix, i, true)
	}
	assert.Equal(t, 0, ix.ExplicitLen())

	for i := uint32(4); i < 8; i++ {
		add(t, ix, i, false)
	}
	assert.False(t, ix.IndexedValue())
	assert.Equal(t, ids(4, 8), ix.Set(false).ToArray())

	add(t, ix, 8, false)
	assert.False(t, ix.IndexedValue())
	assert.Equal(t, 5, ix.ExplicitLen())

	// False now holds 60%: the index flips to storing True.
	add(t, ix, 9, false)
	assert.True(t, ix.IndexedValue())
	assert.Equal(t, 4, ix.ExplicitLen())
	assert.Equal(t, ids(0, 4), search(t, ix, true, nil))
	assert.Equal(t, ids(4, 10), search(t, ix, false, nil))

	for i := uint32(6); i < 10; i++ {
		ix.UnindexObject(i)
	}
	assert.False(t, ix.IndexedValue())
	assert.Equal(t, 2, ix.ExplicitLen())
	assert.Equal(t, 6, ix.NumObjects())
	assert.Equal(t, ids(0, 4), search(t, ix, true, nil))
	assert.Equal(t, ids(4, 6), search(t, ix, false, nil))
}

func TestIndex_Reindex(t *testing.T) {
	ix := New("truth", nil, nil)
	for i := range uint32(10) {
		add(t, ix, i, i < 7)
	}
	before := ix.Counter()

	changed, err := ix.IndexObject(3, index.Record{"truth": true})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, ix.Counter())

	for i := range uint32(7) {
		add(t, ix, i, false)
	}
	assert.Equal(t, 10, ix.NumObjects())
	assert.Empty(t, search(t, ix, true, nil))
	assert.Equal(t, ids(0, 10), search(t, ix, false, nil))
	assert.Greater(t, ix.Counter(), before)
}

func TestIndex_Truthiness(t *testing.T) {
	ix := New("truth", nil, nil)
	docs := []any{1, 0, "yes", "", 0.5, nil, []string{"a"}}
	for i, v := range docs {
		_, err := ix.IndexObject(uint32(i), index.Record{"truth": v})
		require.NoError(t, err)
	}
	assert.Equal(t, []uint32{0, 2, 4, 6}, search(t, ix, true, nil))
	assert.Equal(t, []uint32{1, 3, 5}, search(t, ix, false, nil))

	res, err := ix.Apply(nil, query.Request{"truth": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 2, 4, 6}, res.IDs.ToArray())
}

func TestIndex_Items(t *testing.T) {
	ix := New("truth", nil, nil)
	items := itemMap(ix)
	assert.Equal(t, 0, items[true].Len())
	assert.Equal(t, 0, items[false].Len())

	for i := range uint32(20) {
		add(t, ix, i, i < 5)
	}
	items = itemMap(ix)
	assert.Equal(t, 5, items[true].Len())
	assert.Equal(t, 15, items[false].Len())

	for i := uint32(7); i < 20; i++ {
		ix.UnindexObject(i)
	}
	items = itemMap(ix)
	assert.Equal(t, 5, items[true].Len())
	assert.Equal(t, 2, items[false].Len())
}

func itemMap(ix *Index) map[bool]*idset.Set {
	out := map[bool]*idset.Set{}
	for _, it := range ix.Items() {
		out[it.Value] = it.IDs
	}
	return out
}

func TestIndex_Histogram(t *testing.T) {
	ix := New("truth", nil, nil)
	h := ix.Histogram()
	assert.Equal(t, 0, h[true])
	assert.Equal(t, 0, h[false])

	for i := range uint32(20) {
		add(t, ix, i, i < 5)
	}
	h = ix.Histogram()
	assert.Equal(t, 5, h[true])
	assert.Equal(t, 15, h[false])
	assert.Equal(t, 2, ix.IndexSize())

	assert.Equal(t, []index.ValueCount{
		{Value: value.Bool(false), Count: 15},
		{Value: value.Bool(true), Count: 5},
	}, ix.UniqueValues())
}

// Random churn must keep the explicit set within the 60% bound and the
// histogram consistent with the number of objects.
func TestIndex_ExplicitBound(t *testing.T) {
	rng := testutil.NewRNG(7)
	ix := New("truth", nil, nil)
	truth := map[uint32]bool{}

	for range 5000 {
		docid := uint32(rng.Intn(300))
		if rng.Bool(0.2) {
			ix.UnindexObject(docid)
			delete(truth, docid)
		} else {
			v := rng.Bool(0.7)
			add(t, ix, docid, v)
			truth[docid] = v
		}

		n := ix.NumObjects()
		require.Equal(t, len(truth), n)
		require.LessOrEqual(t, float64(ix.ExplicitLen()), float64(n)*threshold+1)
		h := ix.Histogram()
		require.Equal(t, n, h[true]+h[false])
	}

	for docid, v := range truth {
		entry, ok := ix.EntryForObject(docid)
		require.True(t, ok)
		require.Equal(t, []value.Value{value.Bool(v)}, entry)
		require.True(t, ix.Set(v).Contains(docid))
		require.False(t, ix.Set(!v).Contains(docid))
	}
}

func TestIndex_KeyMap(t *testing.T) {
	ix := New("truth", nil, nil)
	add(t, ix, 1, true)
	add(t, ix, 2, false)
	add(t, ix, 3, true)

	km := ix.DocumentToKeyMap()
	k, ok := km.Key(3)
	require.True(t, ok)
	assert.Equal(t, value.Bool(true), k)
	_, ok = km.Key(9)
	assert.False(t, ok)

	var order []bool
	km.Ascend(func(v value.Value, s *idset.Set) bool {
		order = append(order, v.B)
		return true
	})
	assert.Equal(t, []bool{false, true}, order)
}

func TestIndex_State(t *testing.T) {
	ix := New("truth", nil, nil)
	for i := range uint32(100) {
		add(t, ix, i, i < 80)
	}
	st, err := ix.ExportState()
	require.NoError(t, err)

	restored := New("truth", nil, nil)
	require.NoError(t, restored.ImportState(st))
	assert.Equal(t, ix.IndexedValue(), restored.IndexedValue())
	assert.Equal(t, ix.Histogram(), restored.Histogram())
	assert.Equal(t, ix.Counter(), restored.Counter())
	assert.Equal(t, ids(80, 100), search(t, restored, false, nil))
}

func TestIndex_StateMigration(t *testing.T) {
	ix := New("truth", nil, nil)
	for i := range uint32(100) {
		add(t, ix, i, i < 80)
	}
	st, err := ix.ExportState()
	require.NoError(t, err)

	// Legacy states carry neither polarity nor explicit set.
	st.Version = 0
	st.Meta = nil
	st.Sets = nil

	restored := New("truth", nil, nil)
	require.NoError(t, restored.ImportState(st))
	restored.UnindexObject(99)

	assert.Equal(t, 99, restored.NumObjects())
	assert.False(t, restored.IndexedValue())
	assert.Equal(t, 19, restored.ExplicitLen())
	assert.Equal(t, ids(80, 99), restored.Set(false).ToArray())
}

func TestIndex_StateInconsistentRebuilds(t *testing.T) {
	ix := New("truth", nil, nil)
	for i := range uint32(10) {
		add(t, ix, i, i < 8)
	}
	st, err := ix.ExportState()
	require.NoError(t, err)
	st.Meta[metaIndexed] = true

	restored := New("truth", nil, nil)
	require.NoError(t, restored.ImportState(st))
	assert.False(t, restored.IndexedValue())
	assert.Equal(t, []uint32{8, 9}, restored.Set(false).ToArray())
}
