package idset

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Union returns a ∪ b. A nil operand is the identity.
// Inputs are never mutated; the result may be one of the inputs.
func Union(a, b *Set) *Set {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return &Set{rb: roaring.Or(a.rb, b.rb)}
}

// Intersection returns a ∩ b. A nil operand is the identity.
func Intersection(a, b *Set) *Set {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return &Set{rb: roaring.And(a.rb, b.rb)}
}

// Difference returns a \ b. A nil a stays nil; a nil b removes nothing.
func Difference(a, b *Set) *Set {
	if a == nil || b == nil {
		return a
	}
	return &Set{rb: roaring.AndNot(a.rb, b.rb)}
}

// Multiunion returns the union of all sets in a single pass.
// Nil entries are skipped; the result of no sets is an empty set.
func Multiunion(sets ...*Set) *Set {
	bms := make([]*roaring.Bitmap, 0, len(sets))
	for _, s := range sets {
		if s != nil {
			bms = append(bms, s.rb)
		}
	}
	switch len(bms) {
	case 0:
		return New()
	case 1:
		return &Set{rb: bms[0]}
	}
	return &Set{rb: roaring.FastOr(bms...)}
}

// MultiIntersection intersects all sets, smallest first.
// The result of no sets is nil (no constraint).
func MultiIntersection(sets ...*Set) *Set {
	var out *Set
	for _, s := range bySize(sets) {
		out = Intersection(out, s)
		if out.IsEmpty() {
			return New()
		}
	}
	return out
}

// bySize returns the non-nil sets sorted by ascending cardinality.
func bySize(sets []*Set) []*Set {
	out := make([]*Set, 0, len(sets))
	for _, s := range sets {
		if s != nil {
			out = append(out, s)
		}
	}
	// insertion sort; the number of sets is the number of query keys.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Len() < out[j-1].Len(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
