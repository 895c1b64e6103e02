// Package idset implements the ordered set algebra used to combine partial
// index results.
//
// Sets are Roaring Bitmaps of uint32 document ids. The algebra functions
// (Union, Intersection, Difference, Multiunion, WeightedIntersection) treat a
// nil set as "no constraint yet", which is different from an empty set:
//
//	var rs *idset.Set                          // nothing applied
//	rs = idset.Intersection(rs, idset.Of(1, 2)) // {1, 2}
//	rs = idset.Intersection(rs, idset.New())    // {} (filtered to empty)
//
// Functions never mutate their inputs and may return one of them, so index
// internals can be handed out without copying. Clone before mutating a result.
package idset
