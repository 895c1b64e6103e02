package idset

// Weighted is a set of ids where every id carries an integer weight.
// A Weighted without a weight map is a plain set whose ids all weigh 1.
type Weighted struct {
	ids     *Set
	weights map[uint32]int
}

// Plain wraps s as an unscored weighted set. Plain(nil) returns nil.
func Plain(s *Set) *Weighted {
	if s == nil {
		return nil
	}
	return &Weighted{ids: s}
}

// Scores builds a weighted set from an id→weight mapping.
func Scores(m map[uint32]int) *Weighted {
	ids := New()
	for id := range m {
		ids.Add(id)
	}
	return &Weighted{ids: ids, weights: m}
}

// Set returns the ids. The returned set must not be mutated.
func (w *Weighted) Set() *Set {
	if w == nil {
		return nil
	}
	return w.ids
}

// Scored reports whether w carries explicit weights.
func (w *Weighted) Scored() bool { return w != nil && w.weights != nil }

// Weight returns the weight of id, 1 for plain sets and 0 for absent ids.
func (w *Weighted) Weight(id uint32) int {
	if w == nil || !w.ids.Contains(id) {
		return 0
	}
	if w.weights == nil {
		return 1
	}
	return w.weights[id]
}

// Len returns the number of ids.
func (w *Weighted) Len() int { return w.Set().Len() }

// WeightedIntersection intersects a and b, summing the weights of common ids.
// The result is plain when neither side is scored. Nil is the identity.
func WeightedIntersection(a, b *Weighted) *Weighted {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	ids := Intersection(a.ids, b.ids)
	if !a.Scored() && !b.Scored() {
		return &Weighted{ids: ids}
	}
	weights := make(map[uint32]int, ids.Len())
	for id := range ids.All() {
		weights[id] = a.Weight(id) + b.Weight(id)
	}
	return &Weighted{ids: ids, weights: weights}
}

// WeightedUnion unions a and b, summing the weights of ids present in both.
func WeightedUnion(a, b *Weighted) *Weighted {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	ids := Union(a.ids, b.ids)
	if !a.Scored() && !b.Scored() {
		return &Weighted{ids: ids}
	}
	weights := make(map[uint32]int, ids.Len())
	for id := range ids.All() {
		weights[id] = a.Weight(id) + b.Weight(id)
	}
	return &Weighted{ids: ids, weights: weights}
}
