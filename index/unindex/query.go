package unindex

import (
	"github.com/hupe1980/catalogo/idset"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/query"
	"github.com/hupe1980/catalogo/value"
)

// smallResultSet is the running result size below which an "or" query
// intersects each key set with the running result before the union.
const smallResultSet = 200

// Combination is the preprocessed form of a query:
// Operator(Sets...) - Multiunion(Excludes...).
type Combination struct {
	Operator string
	Sets     []*idset.Set
	Excludes []*idset.Set
}

// Apply implements index.Index.
func (ix *Index) Apply(qc *index.QueryContext, req query.Request, rs *idset.Set) (*index.Result, error) {
	iq, err := query.Parse(req, ix.id, ix.options, ix.operators)
	if err != nil || iq == nil {
		return nil, err
	}
	ids, err := ix.Query(qc, iq, rs)
	if err != nil {
		return nil, err
	}
	return &index.Result{IDs: ids, Used: []string{ix.id}}, nil
}

// Query evaluates iq and intersects the result with rs.
//
// The resultset-independent part of the evaluation is memoized in the
// request cache under a key that includes the change counter.
func (ix *Index) Query(qc *index.QueryContext, iq *query.IndexQuery, rs *idset.Set) (*idset.Set, error) {
	key := iq.CacheKey(ix.metaType, ix.counter)
	if cached, ok := qc.CacheGet(key); ok {
		return idset.Intersection(rs, cached), nil
	}

	c, err := ix.Combine(iq)
	if err != nil {
		return nil, err
	}

	var primary *idset.Set
	cacheable := true
	switch {
	case len(c.Sets) == 0:
		primary = idset.New()
	case len(c.Sets) == 1:
		primary = c.Sets[0].Clone()
	case c.Operator == query.OpOr:
		if rs != nil && rs.Len() < smallResultSet {
			parts := make([]*idset.Set, len(c.Sets))
			for i, s := range c.Sets {
				parts[i] = idset.Intersection(rs, s)
			}
			primary = idset.Multiunion(parts...)
			cacheable = false
		} else {
			primary = idset.Multiunion(c.Sets...)
		}
	default:
		primary = idset.MultiIntersection(c.Sets...)
	}

	if len(c.Excludes) > 0 && !primary.IsEmpty() {
		primary = idset.Difference(primary, idset.Multiunion(c.Excludes...))
	}

	if cacheable {
		qc.CacheSet(key, primary)
	}
	return idset.Intersection(rs, primary), nil
}

// Combine resolves iq into key sets without combining them.
func (ix *Index) Combine(iq *query.IndexQuery) (*Combination, error) {
	keys, err := ix.normalizeAll(iq.Keys)
	if err != nil {
		return nil, err
	}
	notKeys, err := ix.normalizeAll(iq.Not)
	if err != nil {
		return nil, err
	}

	hasKeys := len(keys) > 0
	if isRange, useMin, useMax := iq.IsRange(); isRange && hasKeys {
		lo, hi := bounds(keys)
		var plo, phi *value.Value
		if useMin {
			plo = &lo
		}
		if useMax {
			phi = &hi
		}
		keys = ix.RangeKeys(plo, phi)
	} else if !hasKeys && iq.IsPureNot() {
		keys = ix.Keys()
	}

	c := &Combination{Operator: iq.Operator}
	notSet := make(map[string]struct{}, len(notKeys))
	for _, k := range notKeys {
		notSet[k.Key()] = struct{}{}
	}
	for _, k := range keys {
		if _, skip := notSet[k.Key()]; skip {
			continue
		}
		s, ok := ix.Get(k)
		if !ok {
			if c.Operator == query.OpOr {
				continue
			}
			c.Sets = nil
			break
		}
		c.Sets = append(c.Sets, s)
	}

	if len(notKeys) > 0 && ix.multi && len(c.Sets) > 0 {
		for _, k := range notKeys {
			if s, ok := ix.Get(k); ok {
				c.Excludes = append(c.Excludes, s)
			}
		}
	}
	return c, nil
}

func (ix *Index) normalizeAll(vs []value.Value) ([]value.Value, error) {
	if ix.normalize == nil || len(vs) == 0 {
		return vs, nil
	}
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		if v.IsSpecial() {
			out[i] = v
			continue
		}
		nv, err := ix.normalize(v)
		if err != nil {
			return nil, err
		}
		out[i] = nv
	}
	return out, nil
}

func bounds(vs []value.Value) (lo, hi value.Value) {
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		if value.Less(v, lo) {
			lo = v
		}
		if value.Less(hi, v) {
			hi = v
		}
	}
	return lo, hi
}
