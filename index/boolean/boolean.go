// Package boolean implements BooleanIndex.
//
// Only documents holding the minority value are stored explicitly; the
// other documents are derived as "all indexed documents minus the explicit
// set". When the explicit set grows past 60% of the indexed documents the
// index flips which value it stores. The band between 40% and 60% keeps
// alternating updates from flipping it back and forth.
package boolean

import (
	"log/slog"

	"github.com/hupe1980/catalogo/idset"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/query"
	"github.com/hupe1980/catalogo/value"
)

// MetaType is the BooleanIndex type name.
const MetaType = "BooleanIndex"

// threshold is the fraction of documents the explicit set may reach.
const threshold = 0.6

// Index is a minority-only boolean index.
type Index struct {
	id      string
	sources []string
	logger  *slog.Logger

	indexed  bool
	explicit *idset.Set
	docs     *idset.Set
	reverse  map[uint32]bool
	counter  uint64
}

var (
	_ index.Index         = (*Index)(nil)
	_ index.LimitedResult = (*Index)(nil)
	_ index.EntryProvider = (*Index)(nil)
	_ index.UniqueValuer  = (*Index)(nil)
	_ index.SortIndex     = (*Index)(nil)
	_ index.Stateful      = (*Index)(nil)
	_ index.Definer       = (*Index)(nil)
)

// New creates a BooleanIndex named id reading attrs (default: id).
func New(id string, attrs []string, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ix := &Index{id: id, sources: sourceNames(id, attrs), logger: logger}
	ix.reset()
	return ix
}

func sourceNames(id string, attrs []string) []string {
	var out []string
	for _, a := range attrs {
		if a != "" {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return []string{id}
	}
	return out
}

func (ix *Index) reset() {
	ix.indexed = true
	ix.explicit = idset.New()
	ix.docs = idset.New()
	ix.reverse = make(map[uint32]bool)
}

// ID implements index.Index.
func (ix *Index) ID() string { return ix.id }

// MetaType implements index.Index.
func (ix *Index) MetaType() string { return MetaType }

// SourceNames implements index.Index.
func (ix *Index) SourceNames() []string { return append([]string(nil), ix.sources...) }

// QueryOptions implements index.Index.
func (ix *Index) QueryOptions() []string { return []string{query.OptQuery} }

// Counter implements index.Index.
func (ix *Index) Counter() uint64 { return ix.counter }

// NumObjects implements index.Index.
func (ix *Index) NumObjects() int { return len(ix.reverse) }

// IndexSize always reports two distinct values.
func (ix *Index) IndexSize() int { return 2 }

// LimitedResult implements index.LimitedResult.
func (ix *Index) LimitedResult() bool { return true }

// IndexedValue returns the value currently stored explicitly.
func (ix *Index) IndexedValue() bool { return ix.indexed }

// ExplicitLen returns the size of the explicit set.
func (ix *Index) ExplicitLen() int { return ix.explicit.Len() }

// Clear implements index.Index.
func (ix *Index) Clear() {
	ix.reset()
	ix.counter++
}

// IndexObject implements index.Index. Attribute values are converted by
// truthiness.
func (ix *Index) IndexObject(docid uint32, obj index.Object) (bool, error) {
	for _, attr := range ix.sources {
		raw, ok, err := index.Extract(obj, attr, ix.logger)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		return ix.Insert(docid, Truthy(raw)), nil
	}
	return ix.Remove(docid), nil
}

// Insert stores v for docid and reports whether anything changed.
func (ix *Index) Insert(docid uint32, v bool) bool {
	old, had := ix.reverse[docid]
	if had && old == v {
		return false
	}
	if had && old == ix.indexed {
		ix.explicit.Remove(docid)
	}

	others := len(ix.reverse)
	if had {
		others--
	}
	if others == 0 {
		// The first value decides the polarity: storing zero documents is
		// cheaper than storing one.
		ix.indexed = !v
	}

	ix.reverse[docid] = v
	ix.docs.Add(docid)

	if v == ix.indexed {
		if float64(ix.explicit.Len()+1) >= float64(others+1)*threshold {
			ix.invert()
		} else {
			ix.explicit.Add(docid)
		}
	}
	ix.counter++
	return true
}

// Remove unindexes docid and reports whether it was indexed.
func (ix *Index) Remove(docid uint32) bool {
	old, ok := ix.reverse[docid]
	if !ok {
		return false
	}
	n := len(ix.reverse)
	delete(ix.reverse, docid)
	ix.docs.Remove(docid)

	if old == ix.indexed {
		ix.explicit.Remove(docid)
	} else if float64(ix.explicit.Len()) >= float64(n-1)*threshold {
		ix.invert()
	}
	ix.counter++
	return true
}

// UnindexObject implements index.Index.
func (ix *Index) UnindexObject(docid uint32) { ix.Remove(docid) }

// invert flips the stored polarity and rebuilds the explicit set from the
// reverse map.
func (ix *Index) invert() {
	ix.indexed = !ix.indexed
	ix.explicit = idset.New()
	for d, v := range ix.reverse {
		if v == ix.indexed {
			ix.explicit.Add(d)
		}
	}
	ix.logger.Debug("boolean index inverted",
		slog.String("index", ix.id),
		slog.Bool("indexed", ix.indexed),
		slog.Int("explicit", ix.explicit.Len()),
		slog.Int("objects", len(ix.reverse)),
	)
}

// Histogram returns the number of documents per value without
// materializing the implicit set.
func (ix *Index) Histogram() map[bool]int {
	e := ix.explicit.Len()
	return map[bool]int{
		ix.indexed:  e,
		!ix.indexed: len(ix.reverse) - e,
	}
}

// Set returns the documents holding v.
func (ix *Index) Set(v bool) *idset.Set {
	if v == ix.indexed {
		return ix.explicit.Clone()
	}
	return idset.Difference(ix.docs, ix.explicit)
}

// Items returns the documents per value, the indexed value first.
func (ix *Index) Items() []Item {
	return []Item{
		{Value: ix.indexed, IDs: ix.Set(ix.indexed)},
		{Value: !ix.indexed, IDs: ix.Set(!ix.indexed)},
	}
}

// Item pairs a boolean value with its documents.
type Item struct {
	Value bool
	IDs   *idset.Set
}

// Apply implements index.Index.
//
// Matching the stored value intersects the explicit set with rs; matching
// the other value subtracts the explicit set from rs, or from all indexed
// documents when there is no running result.
func (ix *Index) Apply(_ *index.QueryContext, req query.Request, rs *idset.Set) (*index.Result, error) {
	iq, err := query.Parse(req, ix.id, ix.QueryOptions(), []string{query.OpOr})
	if err != nil || iq == nil {
		return nil, err
	}

	var wantTrue, wantFalse bool
	for _, k := range iq.Keys {
		if TruthyValue(k) {
			wantTrue = true
		} else {
			wantFalse = true
		}
	}

	used := []string{ix.id}
	var ids *idset.Set
	switch {
	case wantTrue && wantFalse:
		ids = idset.Intersection(rs, ix.docs).Clone()
	case wantTrue == ix.indexed && (wantTrue || wantFalse):
		ids = idset.Intersection(rs, ix.explicit).Clone()
	case wantTrue || wantFalse:
		ids = idset.Difference(idset.Intersection(rs, ix.docs), ix.explicit)
	default:
		ids = idset.New()
	}
	return &index.Result{IDs: ids, Used: used}, nil
}

// EntryForObject implements index.EntryProvider.
func (ix *Index) EntryForObject(docid uint32) ([]value.Value, bool) {
	v, ok := ix.reverse[docid]
	if !ok {
		return nil, false
	}
	return []value.Value{value.Bool(v)}, true
}

// UniqueValues implements index.UniqueValuer.
func (ix *Index) UniqueValues() []index.ValueCount {
	h := ix.Histogram()
	var out []index.ValueCount
	for _, v := range []bool{false, true} {
		if h[v] > 0 {
			out = append(out, index.ValueCount{Value: value.Bool(v), Count: h[v]})
		}
	}
	return out
}

// DocumentToKeyMap implements index.SortIndex.
func (ix *Index) DocumentToKeyMap() index.KeyMap { return keyMap{ix} }

type keyMap struct{ ix *Index }

func (m keyMap) Key(docid uint32) (value.Value, bool) {
	v, ok := m.ix.reverse[docid]
	return value.Bool(v), ok
}

func (m keyMap) Len() int { return len(m.ix.UniqueValues()) }

func (m keyMap) Ascend(fn func(value.Value, *idset.Set) bool) {
	for _, v := range []bool{false, true} {
		if s := m.ix.Set(v); !s.IsEmpty() && !fn(value.Bool(v), s) {
			return
		}
	}
}

func (m keyMap) Descend(fn func(value.Value, *idset.Set) bool) {
	for _, v := range []bool{true, false} {
		if s := m.ix.Set(v); !s.IsEmpty() && !fn(value.Bool(v), s) {
			return
		}
	}
}

// Definition implements index.Definer.
func (ix *Index) Definition() index.Definition {
	return index.Definition{ID: ix.id, MetaType: MetaType, Attributes: ix.SourceNames()}
}

// Truthy converts an attribute value to a boolean: zero numbers, empty
// strings, empty collections and nil are false.
func Truthy(raw any) bool {
	v, err := value.FromAny(raw)
	if err != nil {
		return raw != nil
	}
	return TruthyValue(v)
}

// TruthyValue is Truthy for an already converted value.
func TruthyValue(v value.Value) bool {
	switch v.Kind {
	case value.KindBool:
		return v.B
	case value.KindInt:
		return v.I64 != 0
	case value.KindFloat:
		return v.F64 != 0
	case value.KindString:
		return v.StringValue() != ""
	case value.KindTuple:
		return len(v.A) > 0
	default:
		return false
	}
}
