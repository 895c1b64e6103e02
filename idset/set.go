package idset

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// Set is a sorted, duplicate-free set of document ids.
// It wraps a 32-bit roaring bitmap.
//
// A nil *Set means "no constraint" in the algebra functions of this package;
// an empty non-nil Set means "filtered to nothing".
type Set struct {
	rb *roaring.Bitmap
}

// New creates a new empty set.
func New() *Set {
	return &Set{rb: roaring.New()}
}

// Of creates a set holding ids.
func Of(ids ...uint32) *Set {
	return &Set{rb: roaring.BitmapOf(ids...)}
}

// FromBitmap wraps rb without copying.
func FromBitmap(rb *roaring.Bitmap) *Set {
	return &Set{rb: rb}
}

// Bitmap returns the underlying roaring bitmap.
func (s *Set) Bitmap() *roaring.Bitmap { return s.rb }

// Add adds id to the set.
func (s *Set) Add(id uint32) { s.rb.Add(id) }

// AddMany adds all ids to the set.
func (s *Set) AddMany(ids ...uint32) { s.rb.AddMany(ids) }

// Remove removes id from the set.
func (s *Set) Remove(id uint32) { s.rb.Remove(id) }

// Contains reports whether id is in the set.
func (s *Set) Contains(id uint32) bool {
	if s == nil {
		return false
	}
	return s.rb.Contains(id)
}

// Len returns the number of ids.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return int(s.rb.GetCardinality())
}

// IsEmpty reports whether the set has no ids. A nil set is empty.
func (s *Set) IsEmpty() bool {
	return s == nil || s.rb.IsEmpty()
}

// Min returns the smallest id.
func (s *Set) Min() (uint32, bool) {
	if s.IsEmpty() {
		return 0, false
	}
	return s.rb.Minimum(), true
}

// Max returns the largest id.
func (s *Set) Max() (uint32, bool) {
	if s.IsEmpty() {
		return 0, false
	}
	return s.rb.Maximum(), true
}

// Clone returns a deep copy. Cloning nil returns nil.
func (s *Set) Clone() *Set {
	if s == nil {
		return nil
	}
	return &Set{rb: s.rb.Clone()}
}

// Clear removes all ids.
func (s *Set) Clear() { s.rb.Clear() }

// Equal reports whether both sets hold the same ids.
func (s *Set) Equal(o *Set) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.rb.Equals(o.rb)
}

// ToArray returns the ids in ascending order.
func (s *Set) ToArray() []uint32 {
	if s == nil {
		return nil
	}
	return s.rb.ToArray()
}

// All iterates the ids in ascending order.
func (s *Set) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		if s == nil {
			return
		}
		it := s.rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// Backward iterates the ids in descending order.
func (s *Set) Backward() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		if s == nil {
			return
		}
		it := s.rb.ReverseIterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// Optimize compacts runs after bulk loading.
func (s *Set) Optimize() { s.rb.RunOptimize() }

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *Set) MarshalBinary() ([]byte, error) {
	return s.rb.ToBytes()
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Set) UnmarshalBinary(data []byte) error {
	rb := roaring.New()
	if err := rb.UnmarshalBinary(data); err != nil {
		return err
	}
	s.rb = rb
	return nil
}
