package keyword

import (
	"errors"
	"testing"

	"github.com/hupe1980/catalogo/cache"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/query"
	"github.com/hupe1980/catalogo/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture mirrors a small catalog of tagged documents:
// docs 0..6 carry keywords, 7 carries "0", 8 is empty and 9 has no value.
var fixture = []any{
	[]string{"a"},
	[]string{"a", "b"},
	[]string{"a", "b", "c"},
	[]string{"a", "b", "c", "a"},
	[]string{"a", "b", "c", "d"},
	[]string{"a", "b", "c", "e"},
	[]string{"a", "b", "c", "e", "f"},
	[]string{"0"},
	[]string{},
	nil,
}

func populate(t *testing.T) *Index {
	t.Helper()
	ix := New("foo", nil, nil)
	for i, kws := range fixture {
		_, err := ix.IndexObject(uint32(i), index.Record{"foo": kws})
		require.NoError(t, err)
	}
	return ix
}

func ids(r ...int) []uint32 {
	out := make([]uint32, 0, len(r))
	for _, i := range r {
		out = append(out, uint32(i))
	}
	return out
}

func span(lo, hi int) []int {
	var out []int
	for i := lo; i < hi; i++ {
		out = append(out, i)
	}
	return out
}

func checkApply(t *testing.T, ix *Index, req query.Request, want []uint32) {
	t.Helper()
	rc := cache.NewRequestCache()
	qc := &index.QueryContext{CatalogID: "cat", Cache: rc}

	for round := range 2 {
		res, err := ix.Apply(qc, req, nil)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, []string{"foo"}, res.Used)
		got := res.IDs.ToArray()
		if len(want) == 0 {
			assert.Empty(t, got)
		} else {
			assert.Equal(t, want, got)
		}
		st := rc.Stats()
		if round == 0 {
			assert.Equal(t, int64(0), st.Hits)
			assert.Equal(t, int64(1), st.Sets)
			assert.Equal(t, int64(1), st.Misses)
		} else {
			assert.Equal(t, int64(1), st.Hits)
		}
	}
}

func TestIndex_Empty(t *testing.T) {
	ix := New("foo", nil, nil)
	assert.Equal(t, 0, ix.IndexSize())
	assert.Equal(t, 0, ix.NumObjects())
	_, ok := ix.EntryForObject(1234)
	assert.False(t, ok)
	ix.UnindexObject(1234)
	assert.Empty(t, ix.UniqueValues())

	res, err := ix.Apply(nil, query.Request{"bar": 123}, nil)
	require.NoError(t, err)
	assert.Nil(t, res)

	checkApply(t, ix, query.Request{"foo": []string{"a"}}, nil)
	checkApply(t, ix, query.Request{"foo": []any{value.Missing()}}, nil)
}

func TestIndex_Populated(t *testing.T) {
	ix := populate(t)

	assert.Equal(t, 10, ix.NumObjects())
	assert.Equal(t, 7, ix.IndexSize())
	assert.Len(t, ix.UniqueValues(), 7)

	entry, ok := ix.EntryForObject(3)
	require.True(t, ok)
	assert.Equal(t, []value.Value{value.String("a"), value.String("b"), value.String("c")}, entry)

	entry, _ = ix.EntryForObject(8)
	assert.Equal(t, []value.Value{value.Empty()}, entry)
	entry, _ = ix.EntryForObject(9)
	assert.Equal(t, []value.Value{value.Missing()}, entry)

	missing, empty := value.Missing(), value.Empty()
	tests := []struct {
		name string
		req  query.Request
		want []uint32
	}{
		{"all", query.Request{"foo": []string{"a"}}, ids(span(0, 7)...)},
		{"some", query.Request{"foo": []string{"e"}}, ids(5, 6)},
		{"overlap", query.Request{"foo": []string{"c", "e"}}, ids(span(2, 7)...)},
		{"string", query.Request{"foo": "a"}, ids(span(0, 7)...)},
		{"zero", query.Request{"foo": []string{"0"}}, ids(7)},
		{"missing", query.Request{"foo": []any{missing}}, ids(9)},
		{"missing or a", query.Request{"foo": []any{"a", missing}}, ids(0, 1, 2, 3, 4, 5, 6, 9)},
		{"empty", query.Request{"foo": []any{empty}}, ids(8)},
		{"empty or f", query.Request{"foo": []any{empty, "f"}}, ids(6, 8)},
		{"not same key", query.Request{"foo": map[string]any{"query": "f", "not": "f"}}, nil},
		{"not subtracts", query.Request{"foo": map[string]any{"query": []string{"e", "f"}, "not": "f"}}, ids(5)},
		{"pure not", query.Request{"foo": map[string]any{"not": "0"}}, ids(0, 1, 2, 3, 4, 5, 6, 8, 9)},
		{"pure not many", query.Request{"foo": map[string]any{"not": []string{"0", "e"}}}, ids(0, 1, 2, 3, 4, 8, 9)},
		{"pure not unknown", query.Request{"foo": map[string]any{"not": []string{"0", "no-value"}}}, ids(0, 1, 2, 3, 4, 5, 6, 8, 9)},
		{"other index ignored", query.Request{"foo": "c", "bar": map[string]any{"query": 123, "not": 1}}, ids(span(2, 7)...)},
		{"not missing", query.Request{"foo": map[string]any{"not": []any{missing}}}, ids(span(0, 9)...)},
		{"not nothing", query.Request{"foo": map[string]any{"not": []any{}}}, ids(span(0, 10)...)},
		{"not empty", query.Request{"foo": map[string]any{"not": []any{empty}}}, ids(0, 1, 2, 3, 4, 5, 6, 7, 9)},
		{"not empty and f", query.Request{"foo": map[string]any{"not": []any{empty, "f"}}}, ids(0, 1, 2, 3, 4, 5, 7, 9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkApply(t, ix, tt.req, tt.want)
		})
	}
}

func TestIndex_ReindexChange(t *testing.T) {
	ix := populate(t)

	_, err := ix.IndexObject(6, index.Record{"foo": []string{"x", "y"}})
	require.NoError(t, err)
	checkApply(t, ix, query.Request{"foo": []string{"x", "y"}}, ids(6))
	checkApply(t, ix, query.Request{"foo": []string{"a", "b", "c", "e", "f"}}, ids(span(0, 6)...))

	// Missing replaced by empty.
	_, err = ix.IndexObject(9, index.Record{"foo": []string{}})
	require.NoError(t, err)
	checkApply(t, ix, query.Request{"foo": value.Missing()}, nil)

	_, err = ix.IndexObject(9, index.Record{"foo": []string{"z"}})
	require.NoError(t, err)
	checkApply(t, ix, query.Request{"foo": []string{"z"}}, ids(9))

	// Empty replaced by missing.
	_, err = ix.IndexObject(8, index.Record{"foo": nil})
	require.NoError(t, err)
	checkApply(t, ix, query.Request{"foo": value.Empty()}, nil)

	_, err = ix.IndexObject(8, index.Record{"foo": []string{"q"}})
	require.NoError(t, err)
	checkApply(t, ix, query.Request{"foo": []string{"q"}}, ids(8))
}

func TestIndex_ReindexNoChange(t *testing.T) {
	ix := populate(t)
	ix.UnindexObject(8)
	ix.UnindexObject(9)

	obj := index.Record{"foo": []string{"foo", "bar"}}
	changed, err := ix.IndexObject(8, obj)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = ix.IndexObject(8, obj)
	require.NoError(t, err)
	assert.False(t, changed)
	checkApply(t, ix, query.Request{"foo": []string{"foo", "bar"}}, ids(8))

	faulty := index.Record{"foo": func() (any, error) { return nil, errors.New("type error") }}
	changed, err = ix.IndexObject(9, faulty)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = ix.IndexObject(9, faulty)
	require.NoError(t, err)
	assert.False(t, changed)
	checkApply(t, ix, query.Request{"foo": []any{value.Missing()}}, ids(9))
}

func TestIndex_IntersectionWithRange(t *testing.T) {
	ix := populate(t)

	checkApply(t, ix, query.Request{"foo": map[string]any{"query": []string{"e", "f"}, "operator": "and"}}, ids(6))
	checkApply(t, ix, query.Request{"foo": map[string]any{"query": []string{"e", "f"}, "operator": "and", "range": "min:max"}}, ids(6))
}

func TestIndex_AndWithUnknownKey(t *testing.T) {
	ix := populate(t)

	checkApply(t, ix, query.Request{"foo": map[string]any{"query": []string{"foo-bar-baz"}, "operator": "and"}}, nil)
	checkApply(t, ix, query.Request{"foo": map[string]any{"query": []string{"foo-bar-baz", "a"}, "operator": "and"}}, nil)
	checkApply(t, ix, query.Request{"foo": map[string]any{"query": []string{"d"}, "operator": "and"}}, ids(4))
	checkApply(t, ix, query.Request{"foo": map[string]any{"query": []string{"a", "e"}, "operator": "and"}}, ids(5, 6))
}

func TestIndex_DuplicateKeywords(t *testing.T) {
	ix := New("foo", nil, nil)
	_, err := ix.IndexObject(0, index.Record{"foo": []string{"a", "a", "b", "b"}})
	require.NoError(t, err)
	entry, _ := ix.EntryForObject(0)
	assert.Len(t, entry, 2)
	ix.UnindexObject(0)
	assert.Equal(t, 0, ix.Len())
}

func TestIndex_MissingWhenNoAttribute(t *testing.T) {
	ix := New("foo", []string{"UNKNOWN"}, nil)
	_, err := ix.IndexObject(10, index.Record{"foo": []string{"hello"}})
	require.NoError(t, err)

	entry, ok := ix.EntryForObject(10)
	require.True(t, ok)
	assert.Equal(t, []value.Value{value.Missing()}, entry)

	ix.UnindexObject(10)
	_, ok = ix.EntryForObject(10)
	assert.False(t, ok)
}

func TestIndex_UnionAcrossAttributes(t *testing.T) {
	ix := New("tags", []string{"tags", "labels"}, nil)
	_, err := ix.IndexObject(1, index.Record{"tags": []string{"a"}, "labels": "b"})
	require.NoError(t, err)

	entry, _ := ix.EntryForObject(1)
	assert.Equal(t, []value.Value{value.String("a"), value.String("b")}, entry)
}
