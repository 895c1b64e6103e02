package query

import (
	"errors"
	"testing"

	"github.com/hupe1980/catalogo/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testOptions   = []string{OptQuery, OptOperator, OptNot, OptRange, OptUsage}
	testOperators = []string{OpOr, OpAnd}
)

func TestParse_NotApplicable(t *testing.T) {
	q, err := Parse(Request{"other": 1}, "path", testOptions, testOperators)
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestParse_Shapes(t *testing.T) {
	t.Run("scalar", func(t *testing.T) {
		q, err := Parse(Request{"path": "/a"}, "path", testOptions, testOperators)
		require.NoError(t, err)
		assert.Equal(t, []value.Value{value.String("/a")}, q.Keys)
		assert.Equal(t, OpOr, q.Operator)
		assert.Nil(t, q.Not)
	})

	t.Run("list", func(t *testing.T) {
		q, err := Parse(Request{"path": []any{"/a", "/b"}}, "path", testOptions, testOperators)
		require.NoError(t, err)
		assert.Equal(t, []value.Value{value.String("/a"), value.String("/b")}, q.Keys)
	})

	t.Run("dict", func(t *testing.T) {
		q, err := Parse(Request{"path": map[string]any{
			"query":    []string{"a", "b"},
			"operator": "AND",
			"not":      "c",
		}}, "path", testOptions, testOperators)
		require.NoError(t, err)
		assert.Len(t, q.Keys, 2)
		assert.Equal(t, OpAnd, q.Operator)
		assert.Equal(t, []value.Value{value.String("c")}, q.Not)
	})

	t.Run("record", func(t *testing.T) {
		q, err := Parse(Request{"path": Record{Query: 5, Range: "min"}}, "path", testOptions, testOperators)
		require.NoError(t, err)
		isRange, useMin, useMax := q.IsRange()
		assert.True(t, isRange)
		assert.True(t, useMin)
		assert.False(t, useMax)
	})

	t.Run("flat", func(t *testing.T) {
		q, err := Parse(Request{
			"date":       10,
			"date_usage": "range:min:max",
			"date_not":   []int{3},
		}, "date", testOptions, testOperators)
		require.NoError(t, err)
		assert.Equal(t, "min:max", q.Range)
		assert.Equal(t, []value.Value{value.Int(3)}, q.Not)
	})
}

func TestParse_PureNot(t *testing.T) {
	q, err := Parse(Request{"foo": map[string]any{"not": "x"}}, "foo", testOptions, testOperators)
	require.NoError(t, err)
	assert.True(t, q.IsPureNot())

	q, err = Parse(Request{"foo": map[string]any{"not": []string{}}}, "foo", testOptions, testOperators)
	require.NoError(t, err)
	assert.False(t, q.IsPureNot(), "empty not")
	assert.NotNil(t, q.Not)
	assert.Empty(t, q.Not)

	q, err = Parse(Request{"foo": map[string]any{"not": nil}}, "foo", testOptions, testOperators)
	require.NoError(t, err)
	assert.False(t, q.IsPureNot(), "nil not")

	q, err = Parse(Request{"foo": map[string]any{"query": "a", "not": "x"}}, "foo", testOptions, testOperators)
	require.NoError(t, err)
	assert.False(t, q.IsPureNot())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		opts []string
		want any
	}{
		{"unknown dict option", Request{"foo": map[string]any{"query": 1, "baropt": 2}}, testOptions, &ErrUnknownOption{}},
		{"option not supported by index", Request{"foo": map[string]any{"query": 1, "operator": "and"}}, []string{OptQuery, OptNot}, &ErrUnknownOption{}},
		{"invalid operator", Request{"foo": map[string]any{"query": 1, "operator": "xor"}}, testOptions, &ErrInvalidOperator{}},
		{"invalid range", Request{"foo": map[string]any{"query": 1, "range": "between"}}, testOptions, &ErrInvalidRange{}},
		{"invalid usage", Request{"foo": map[string]any{"query": 1, "usage": "fuzzy"}}, testOptions, &ErrInvalidRange{}},
		{"missing query", Request{"foo": map[string]any{"operator": "or"}}, testOptions, &ErrBadValue{}},
		{"bad value", Request{"foo": struct{}{}}, testOptions, &ErrBadValue{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.req, "foo", tt.opts, testOperators)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidQuery))
			assert.IsType(t, tt.want, err)
		})
	}
}

func TestIndexQuery_Bounds(t *testing.T) {
	q := &IndexQuery{Keys: []value.Value{value.Int(5), value.Int(1), value.Int(9)}}
	lo, hi, ok := q.Bounds()
	require.True(t, ok)
	assert.Equal(t, value.Int(1), lo)
	assert.Equal(t, value.Int(9), hi)

	_, _, ok = (&IndexQuery{}).Bounds()
	assert.False(t, ok)
}

func TestIndexQuery_CacheKey(t *testing.T) {
	a := &IndexQuery{ID: "foo", Operator: OpOr, Keys: []value.Value{value.String("e"), value.String("f")}}
	b := &IndexQuery{ID: "foo", Operator: OpOr, Keys: []value.Value{value.String("f"), value.String("e")}}
	c := &IndexQuery{ID: "foo", Operator: OpAnd, Keys: []value.Value{value.String("e"), value.String("f")}}

	assert.Equal(t, a.CacheKey("FieldIndex", 1), b.CacheKey("FieldIndex", 1))
	assert.NotEqual(t, a.CacheKey("FieldIndex", 1), a.CacheKey("FieldIndex", 2))
	assert.NotEqual(t, a.CacheKey("FieldIndex", 1), c.CacheKey("FieldIndex", 1))

	withNot := a.Clone()
	withNot.Not = []value.Value{value.String("a")}
	assert.NotEqual(t, a.CacheKey("FieldIndex", 1), withNot.CacheKey("FieldIndex", 1))
}

func TestRequest_Canonical(t *testing.T) {
	a := Request{"b": map[string]any{"query": []string{"x"}, "not": 1}, "a": 1}
	b := Request{"a": 1, "b": map[string]any{"not": 1, "query": []string{"x"}}}

	assert.Equal(t, a.Canonical(), b.Canonical())
	assert.Equal(t, a.Signature(), b.Signature())
	assert.NotEqual(t, a.Signature(), Request{"a": 2}.Signature())

	rec := Request{"a": Record{Query: "x"}}
	dict := Request{"a": map[string]any{"query": "x"}}
	assert.Equal(t, rec.Canonical(), dict.Canonical())
}

func TestRequest_Without(t *testing.T) {
	r := Request{"a": 1, "b_start": 10, "sort_on": "x"}
	out := r.Without("b_start", "sort_on")
	assert.Equal(t, Request{"a": 1}, out)
	assert.Len(t, r, 3)
	assert.Equal(t, []string{"a", "b_start", "sort_on"}, r.SortedKeys())
}
