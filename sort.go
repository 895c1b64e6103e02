package catalogo

import (
	"cmp"
	"slices"

	"github.com/hupe1980/catalogo/idset"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/value"
)

// sorter orders documents by the keys of one or more sort indexes. Ties
// break by docid in the direction of the first key, so a flipped sorter
// yields the exact reverse order.
type sorter struct {
	maps    []index.KeyMap
	reverse []bool
}

type keyed struct {
	id  uint32
	key []value.Value
}

// sorter resolves the sort indexes of p. It returns nil when p does not
// sort.
func (c *Catalog) sorter(p searchParams) (*sorter, error) {
	if len(p.sortOn) == 0 {
		return nil, nil
	}
	s := &sorter{reverse: p.reverse}
	for _, name := range p.sortOn {
		idx, ok := c.indexes[name]
		if !ok {
			return nil, configErrorf(name, "unknown sort index")
		}
		si, ok := idx.(index.SortIndex)
		if !ok {
			return nil, configErrorf(name, "the index cannot be used for sorting")
		}
		s.maps = append(s.maps, si.DocumentToKeyMap())
	}
	return s, nil
}

func (s *sorter) compare(a, b keyed) int {
	for i := range a.key {
		c := value.Compare(a.key[i], b.key[i])
		if s.reverse[i] {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	c := cmp.Compare(a.id, b.id)
	if s.reverse[0] {
		c = -c
	}
	return c
}

func (s *sorter) flipped() *sorter {
	rev := make([]bool, len(s.reverse))
	for i, r := range s.reverse {
		rev[i] = !r
	}
	return &sorter{maps: s.maps, reverse: rev}
}

// sort returns the documents of rs at sorted positions [start, end) and the
// size of rs. end 0 is unbounded. Documents without a key in every sort
// index are left out of the sorted sequence but still counted.
func (s *sorter) sort(rs *idset.Set, start, end int) ([]uint32, int) {
	rlen := rs.Len()
	if end == 0 && len(s.maps) == 1 && rlen > s.maps[0].Len()*(rlen/100+1) {
		if ids, ok := s.walk(rs); ok {
			return window(ids, start, 0), len(ids)
		}
	}

	docs := s.collect(rs)
	n := len(docs)
	if end == 0 || end > n {
		end = n
	}
	if start >= end {
		return nil, rlen
	}

	// A window past the midpoint is cheaper to reach from the tail.
	if start > 0 && start > n/2 {
		tail := s.flipped().best(docs, n-start)
		slices.Reverse(tail)
		return docIDs(tail[:end-start]), rlen
	}
	return docIDs(s.best(docs, end)[start:end]), rlen
}

// best returns the k smallest documents in order: a full sort when k is a
// large share of docs, bounded insertion otherwise.
func (s *sorter) best(docs []keyed, k int) []keyed {
	if k*4 > len(docs) {
		slices.SortFunc(docs, s.compare)
		return docs[:k]
	}
	out := make([]keyed, 0, k+1)
	for _, d := range docs {
		if len(out) == k && s.compare(d, out[k-1]) >= 0 {
			continue
		}
		i, _ := slices.BinarySearchFunc(out, d, s.compare)
		out = slices.Insert(out, i, d)
		if len(out) > k {
			out = out[:k]
		}
	}
	return out
}

func (s *sorter) collect(rs *idset.Set) []keyed {
	docs := make([]keyed, 0, rs.Len())
	for id := range rs.All() {
		key := make([]value.Value, len(s.maps))
		ok := true
		for i, km := range s.maps {
			if key[i], ok = km.Key(id); !ok {
				break
			}
		}
		if ok {
			docs = append(docs, keyed{id: id, key: key})
		}
	}
	return docs
}

// walk traverses the sort index in key order and picks the documents of
// rs. It fails when a document is stored under more than one key.
func (s *sorter) walk(rs *idset.Set) ([]uint32, bool) {
	km := s.maps[0]
	out := make([]uint32, 0, rs.Len())
	ok := true
	visit := func(key value.Value, ids *idset.Set) bool {
		hits := idset.Intersection(rs, ids)
		seq := hits.All()
		if s.reverse[0] {
			seq = hits.Backward()
		}
		for id := range seq {
			if k, _ := km.Key(id); !value.Equal(k, key) {
				ok = false
				return false
			}
			out = append(out, id)
		}
		return true
	}
	if s.reverse[0] {
		km.Descend(visit)
	} else {
		km.Ascend(visit)
	}
	return out, ok
}

func docIDs(docs []keyed) []uint32 {
	out := make([]uint32, len(docs))
	for i, d := range docs {
		out[i] = d.id
	}
	return out
}
