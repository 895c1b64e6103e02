package idset

import (
	"testing"

	"github.com/hupe1980/catalogo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlgebra_NilIsNoConstraint(t *testing.T) {
	x := Of(1, 2, 3)

	assert.Same(t, x, Intersection(nil, x))
	assert.Same(t, x, Intersection(x, nil))
	assert.Same(t, x, Union(nil, x))
	assert.Nil(t, Intersection(nil, nil))
	assert.Nil(t, Difference(nil, x))
	assert.Same(t, x, Difference(x, nil))

	empty := New()
	got := Intersection(x, empty)
	require.NotNil(t, got)
	assert.True(t, got.IsEmpty())
}

func TestAlgebra_DoesNotMutateInputs(t *testing.T) {
	a := Of(1, 2, 3)
	b := Of(3, 4)

	_ = Union(a, b)
	_ = Intersection(a, b)
	_ = Difference(a, b)
	_ = Multiunion(a, b)

	assert.Equal(t, []uint32{1, 2, 3}, a.ToArray())
	assert.Equal(t, []uint32{3, 4}, b.ToArray())
}

func TestAlgebra_Laws(t *testing.T) {
	rng := testutil.NewRNG(4711)

	for range 50 {
		a := Of(rng.IDs(rng.Intn(200), 1000)...)
		b := Of(rng.IDs(rng.Intn(200), 1000)...)
		c := Of(rng.IDs(rng.Intn(200), 1000)...)

		assert.True(t, Intersection(a, b).Equal(Intersection(b, a)))
		assert.True(t, Union(a, New()).Equal(a))
		assert.True(t, Difference(a, a).IsEmpty())
		assert.True(t, Multiunion(a, b, c).Equal(Union(Union(a, b), c)))
		assert.True(t, MultiIntersection(a, b, c).Equal(Intersection(Intersection(a, b), c)))
	}
}

func TestMultiunion_Edges(t *testing.T) {
	got := Multiunion()
	require.NotNil(t, got)
	assert.True(t, got.IsEmpty())

	got = Multiunion(nil, Of(5), nil)
	assert.Equal(t, []uint32{5}, got.ToArray())
}

func TestMultiIntersection_ShortCircuits(t *testing.T) {
	assert.Nil(t, MultiIntersection())
	got := MultiIntersection(Of(1, 2, 3), New(), Of(1))
	require.NotNil(t, got)
	assert.True(t, got.IsEmpty())
}

func TestSet_Iteration(t *testing.T) {
	s := Of(9, 3, 5)

	var fwd, bwd []uint32
	for id := range s.All() {
		fwd = append(fwd, id)
	}
	for id := range s.Backward() {
		bwd = append(bwd, id)
	}

	assert.Equal(t, []uint32{3, 5, 9}, fwd)
	assert.Equal(t, []uint32{9, 5, 3}, bwd)

	lo, ok := s.Min()
	assert.True(t, ok)
	assert.Equal(t, uint32(3), lo)
	hi, _ := s.Max()
	assert.Equal(t, uint32(9), hi)
}

func TestSet_Binary(t *testing.T) {
	s := Of(1, 100, 70000)
	data, err := s.MarshalBinary()
	require.NoError(t, err)

	var out Set
	require.NoError(t, out.UnmarshalBinary(data))
	assert.True(t, s.Equal(&out))
}

func TestWeightedIntersection(t *testing.T) {
	scored := Scores(map[uint32]int{1: 5, 2: 7, 4: 1})
	plain := Plain(Of(1, 2, 3))

	got := WeightedIntersection(scored, plain)
	require.True(t, got.Scored())
	assert.Equal(t, []uint32{1, 2}, got.Set().ToArray())
	assert.Equal(t, 6, got.Weight(1))
	assert.Equal(t, 8, got.Weight(2))
	assert.Equal(t, 0, got.Weight(4))

	both := WeightedIntersection(plain, Plain(Of(2, 3)))
	assert.False(t, both.Scored())
	assert.Equal(t, 1, both.Weight(2))

	assert.Same(t, plain, WeightedIntersection(nil, plain))
}

func TestWeightedUnion(t *testing.T) {
	got := WeightedUnion(Scores(map[uint32]int{1: 2}), Plain(Of(1, 3)))
	assert.Equal(t, []uint32{1, 3}, got.Set().ToArray())
	assert.Equal(t, 3, got.Weight(1))
	assert.Equal(t, 1, got.Weight(3))
}
