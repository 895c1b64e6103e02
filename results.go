package catalogo

import (
	"iter"
	"slices"
)

// Brain is one search hit: the document id, its uid, relevance and the
// metadata record.
type Brain struct {
	RID uint32
	UID string

	// Score is the summed weight of scored indexes, 1 for unscored
	// searches.
	Score int

	// NormalizedScore is Score scaled to the best hit, in percent.
	NormalizedScore int

	// Data maps column names to metadata values.
	Data map[string]any
}

// Results is the ordered outcome of a search. Metadata is resolved when a
// hit is accessed, so uids and records reflect the catalog at access time.
type Results struct {
	catalog  *Catalog
	rids     []uint32
	total    int
	scores   map[uint32]int
	maxScore int
}

// Len returns the number of hits in the requested window.
func (r *Results) Len() int { return len(r.rids) }

// ActualResultCount returns the number of matching documents regardless
// of sort_limit and batching.
func (r *Results) ActualResultCount() int { return r.total }

// RIDs returns the document ids in result order.
func (r *Results) RIDs() []uint32 { return slices.Clone(r.rids) }

// At returns hit i. It panics if i is out of range.
func (r *Results) At(i int) Brain {
	rid := r.rids[i]
	b := Brain{RID: rid, Score: 1, NormalizedScore: 100}
	if r.scores != nil {
		b.Score = r.scores[rid]
		if r.maxScore > 0 {
			b.NormalizedScore = 100 * b.Score / r.maxScore
		}
	}

	c := r.catalog
	c.mu.RLock()
	b.UID = c.paths[rid]
	b.Data, _ = c.metadata(rid)
	c.mu.RUnlock()
	return b
}

// Slice returns the hits in [start, end), clipped to the window.
func (r *Results) Slice(start, end int) []Brain {
	end = min(end, len(r.rids))
	if start < 0 {
		start = 0
	}
	if start >= end {
		return nil
	}
	out := make([]Brain, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, r.At(i))
	}
	return out
}

// All iterates over the hits with their position.
func (r *Results) All() iter.Seq2[int, Brain] {
	return func(yield func(int, Brain) bool) {
		for i := range r.rids {
			if !yield(i, r.At(i)) {
				return
			}
		}
	}
}

// UIDs returns the uids of all hits in result order.
func (r *Results) UIDs() []string {
	c := r.catalog
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(r.rids))
	for _, rid := range r.rids {
		if uid, ok := c.paths[rid]; ok {
			out = append(out, uid)
		}
	}
	return out
}
