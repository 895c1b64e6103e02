package composite

import (
	"iter"

	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/index/boolean"
	"github.com/hupe1980/catalogo/index/keyword"
	"github.com/hupe1980/catalogo/query"
	"github.com/hupe1980/catalogo/value"
)

type componentQuery struct {
	id   string
	keys []value.Value
	not  []value.Value
}

// MakeQuery rewrites req so that the queries of at least two components
// are answered by this index.
//
// A component qualifies when it has positive keys combined with "or" and
// no range. The qualifying component entries are removed and replaced by a
// single entry for the composite index; "not" values of a rewritten
// component are kept as a pure-not query on the component. The request is
// returned unchanged when rewriting is disabled, the index is empty or
// fewer than two components qualify.
func (ix *Index) MakeQuery(req query.Request) query.Request {
	if ix.skip {
		ix.Logger().Debug("composite query rewrite disabled", "index", ix.ID())
		return req
	}
	if ix.IndexSize() == 0 {
		ix.Logger().Warn("composite index is empty, query rewrite skipped", "index", ix.ID())
		return req
	}

	var cqs []componentQuery
	for _, c := range ix.components {
		options := []string{query.OptQuery, query.OptRange, query.OptNot, query.OptOperator}
		if c.MetaType == boolean.MetaType {
			options = []string{query.OptQuery}
		}
		iq, err := query.Parse(req, c.ID, options, []string{query.OpOr, query.OpAnd})
		if err != nil || iq == nil {
			continue
		}
		if len(iq.Keys) == 0 || iq.Range != "" || iq.Operator == query.OpAnd {
			continue
		}
		keys := make([]value.Value, len(iq.Keys))
		for i, k := range iq.Keys {
			if c.MetaType == boolean.MetaType {
				k = value.Bool(boolean.TruthyValue(k))
			}
			keys[i] = pair(c.ID, k)
		}
		cqs = append(cqs, componentQuery{id: c.ID, keys: value.SortUnique(keys), not: iq.Not})
	}
	if len(cqs) < minComponents {
		return req
	}

	groups := make([][]value.Value, len(cqs))
	drop := make([]string, 0, len(cqs)*4)
	for i, cq := range cqs {
		groups[i] = cq.keys
		drop = append(drop, cq.id)
		for _, opt := range []string{query.OptOperator, query.OptNot, query.OptRange, query.OptUsage} {
			drop = append(drop, cq.id+"_"+opt)
		}
	}

	out := req.Without(drop...)
	out[ix.ID()] = map[string]any{query.OptQuery: appendProduct(nil, groups)}
	for _, cq := range cqs {
		if len(cq.not) > 0 {
			out[cq.id] = map[string]any{query.OptNot: cq.not}
		}
	}
	return out
}

// FastBuild rebuilds the index from the reverse maps of the component
// indexes instead of reading objects. lookup resolves a component id to its
// index.
func (ix *Index) FastBuild(docs iter.Seq[uint32], lookup func(id string) (index.Index, bool)) error {
	providers := make([]index.EntryProvider, len(ix.components))
	for i, c := range ix.components {
		idx, ok := lookup(c.ID)
		if !ok {
			return index.Configf(ix.ID(), "component index %q not found", c.ID)
		}
		ep, ok := idx.(index.EntryProvider)
		if !ok {
			return index.Configf(ix.ID(), "component index %q cannot report entries", c.ID)
		}
		providers[i] = ep
	}

	ix.Clear()
	perComponent := make([][]value.Value, len(ix.components))
	var n int
	for docid := range docs {
		for i, c := range ix.components {
			perComponent[i] = entryValues(c, providers[i], docid)
		}
		ix.Insert(docid, ix.keys(perComponent)...)
		n++
	}
	ix.Logger().Info("composite index rebuilt",
		"index", ix.ID(),
		"documents", n,
		"keys", ix.IndexSize(),
	)
	return nil
}

func entryValues(c Component, ep index.EntryProvider, docid uint32) []value.Value {
	vs, ok := ep.EntryForObject(docid)
	if !ok {
		return nil
	}
	out := make([]value.Value, 0, len(vs))
	for _, v := range vs {
		if v.IsSpecial() {
			continue
		}
		out = append(out, v)
		if c.MetaType != keyword.MetaType {
			break
		}
	}
	return out
}
