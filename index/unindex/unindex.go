package unindex

import (
	"log/slog"
	"slices"

	"github.com/hupe1980/catalogo/idset"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/query"
	"github.com/hupe1980/catalogo/value"
	"github.com/tidwall/btree"
)

// Config configures an Index.
type Config struct {
	// ID is the index name.
	ID string

	// MetaType names the concrete index kind.
	MetaType string

	// Attributes are the object attributes to read. Defaults to [ID].
	Attributes []string

	// Multivalued marks indexes that store several values per document.
	// Exclusion ("not") queries then subtract the excluded documents
	// explicitly instead of only skipping the excluded keys.
	Multivalued bool

	// Options lists the supported query options. Defaults to
	// query, range, not, operator.
	Options []string

	// Operators lists the supported operators; the first is the default.
	// Defaults to or, and.
	Operators []string

	// Normalize converts query keys into the indexed representation.
	// Nil keeps keys unchanged.
	Normalize func(value.Value) (value.Value, error)

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

type entry struct {
	key value.Value
	ids *idset.Set
}

func lessEntry(a, b entry) bool {
	return value.Less(a.key, b.key)
}

// Index is the forward/reverse index core.
//
// Mutations are not synchronized; the catalog serializes writers.
// Concurrent readers are safe while no writer runs.
type Index struct {
	id        string
	metaType  string
	sources   []string
	multi     bool
	options   []string
	operators []string
	normalize func(value.Value) (value.Value, error)
	logger    *slog.Logger

	forward  *btree.BTreeG[entry]
	reverse  map[uint32][]value.Value
	specials int
	counter  uint64
}

// New creates an empty index.
func New(cfg Config) *Index {
	ix := &Index{
		id:        cfg.ID,
		metaType:  cfg.MetaType,
		sources:   attributes(cfg.ID, cfg.Attributes),
		multi:     cfg.Multivalued,
		options:   cfg.Options,
		operators: cfg.Operators,
		normalize: cfg.Normalize,
		logger:    cfg.Logger,
	}
	if ix.metaType == "" {
		ix.metaType = "UnIndex"
	}
	if len(ix.options) == 0 {
		ix.options = []string{query.OptQuery, query.OptRange, query.OptNot, query.OptOperator}
	}
	if len(ix.operators) == 0 {
		ix.operators = []string{query.OpOr, query.OpAnd}
	}
	if ix.logger == nil {
		ix.logger = slog.New(slog.DiscardHandler)
	}
	ix.forward = btree.NewBTreeGOptions(lessEntry, btree.Options{NoLocks: true})
	ix.reverse = make(map[uint32][]value.Value)
	return ix
}

func attributes(id string, attrs []string) []string {
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if a != "" && !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		out = []string{id}
	}
	return out
}

// ID implements index.Index.
func (ix *Index) ID() string { return ix.id }

// MetaType implements index.Index.
func (ix *Index) MetaType() string { return ix.metaType }

// SourceNames implements index.Index.
func (ix *Index) SourceNames() []string { return slices.Clone(ix.sources) }

// QueryOptions implements index.Index.
func (ix *Index) QueryOptions() []string { return slices.Clone(ix.options) }

// Operators returns the supported operators, default first.
func (ix *Index) Operators() []string { return slices.Clone(ix.operators) }

// Multivalued reports whether documents may have several values.
func (ix *Index) Multivalued() bool { return ix.multi }

// Logger returns the index logger.
func (ix *Index) Logger() *slog.Logger { return ix.logger }

// Counter implements index.Index.
func (ix *Index) Counter() uint64 { return ix.counter }

// Touch increments the change counter.
func (ix *Index) Touch() { ix.counter++ }

// Advance raises the change counter to at least n.
func (ix *Index) Advance(n uint64) { ix.counter = max(ix.counter, n) }

// NumObjects implements index.Index.
func (ix *Index) NumObjects() int { return len(ix.reverse) }

// IndexSize returns the number of distinct non-special values.
func (ix *Index) IndexSize() int { return ix.forward.Len() - ix.specials }

// Len returns the number of forward entries, special values included.
func (ix *Index) Len() int { return ix.forward.Len() }

// Clear empties the index and increments the change counter.
func (ix *Index) Clear() {
	ix.forward.Clear()
	ix.reverse = make(map[uint32][]value.Value)
	ix.specials = 0
	ix.counter++
}

// Insert sets the values stored for docid and reports whether anything
// changed. vals must be valid values; an empty vals removes docid.
//
// For single-valued indexes only the first value is used.
func (ix *Index) Insert(docid uint32, vals ...value.Value) bool {
	if len(vals) == 0 {
		return ix.Remove(docid)
	}
	if ix.multi {
		vals = value.SortUnique(slices.Clone(vals))
	} else {
		vals = vals[:1:1]
	}

	old, had := ix.reverse[docid]
	if had && slices.EqualFunc(old, vals, value.Equal) {
		return false
	}

	if had {
		for _, v := range old {
			if !containsValue(vals, v) {
				ix.removeForward(v, docid)
			}
		}
	}
	for _, v := range vals {
		if !had || !containsValue(old, v) {
			ix.insertForward(v, docid)
		}
	}
	ix.reverse[docid] = vals
	ix.counter++
	return true
}

// Remove unindexes docid and reports whether it was indexed.
func (ix *Index) Remove(docid uint32) bool {
	old, ok := ix.reverse[docid]
	if !ok {
		return false
	}
	for _, v := range old {
		ix.removeForward(v, docid)
	}
	delete(ix.reverse, docid)
	ix.counter++
	return true
}

// UnindexObject implements index.Index.
func (ix *Index) UnindexObject(docid uint32) { ix.Remove(docid) }

// containsValue searches vs, which is sorted and duplicate free.
func containsValue(vs []value.Value, v value.Value) bool {
	_, found := slices.BinarySearchFunc(vs, v, value.Compare)
	return found
}

func (ix *Index) insertForward(v value.Value, docid uint32) {
	if e, ok := ix.forward.Get(entry{key: v}); ok {
		e.ids.Add(docid)
		return
	}
	ix.forward.Set(entry{key: v, ids: idset.Of(docid)})
	if v.IsSpecial() {
		ix.specials++
	}
}

func (ix *Index) removeForward(v value.Value, docid uint32) {
	e, ok := ix.forward.Get(entry{key: v})
	if !ok {
		ix.logger.Error("forward entry missing during unindex",
			slog.String("index", ix.id),
			slog.Any("value", v),
			slog.Uint64("docid", uint64(docid)),
		)
		return
	}
	e.ids.Remove(docid)
	if e.ids.IsEmpty() {
		ix.forward.Delete(e)
		if v.IsSpecial() {
			ix.specials--
		}
	}
}

// Get returns the forward set for v. The set is owned by the index.
func (ix *Index) Get(v value.Value) (*idset.Set, bool) {
	e, ok := ix.forward.Get(entry{key: v})
	if !ok {
		return nil, false
	}
	return e.ids, true
}

// Values returns the values stored for docid.
func (ix *Index) Values(docid uint32) ([]value.Value, bool) {
	vs, ok := ix.reverse[docid]
	return vs, ok
}

// EntryForObject implements index.EntryProvider.
func (ix *Index) EntryForObject(docid uint32) ([]value.Value, bool) {
	vs, ok := ix.reverse[docid]
	if !ok {
		return nil, false
	}
	return slices.Clone(vs), true
}

// Docs returns the indexed docids.
func (ix *Index) Docs() *idset.Set {
	s := idset.New()
	for d := range ix.reverse {
		s.Add(d)
	}
	return s
}

// Keys returns all forward keys in ascending order, special values first.
func (ix *Index) Keys() []value.Value {
	out := make([]value.Value, 0, ix.forward.Len())
	ix.forward.Scan(func(e entry) bool {
		out = append(out, e.key)
		return true
	})
	return out
}

// RangeKeys returns the non-special keys within [lo, hi]. A nil bound is
// open.
func (ix *Index) RangeKeys(lo, hi *value.Value) []value.Value {
	var out []value.Value
	visit := func(e entry) bool {
		if hi != nil && value.Less(*hi, e.key) {
			return false
		}
		if !e.key.IsSpecial() {
			out = append(out, e.key)
		}
		return true
	}
	if lo != nil {
		ix.forward.Ascend(entry{key: *lo}, visit)
	} else {
		ix.forward.Scan(visit)
	}
	return out
}

// UniqueValues implements index.UniqueValuer. Special values are omitted.
func (ix *Index) UniqueValues() []index.ValueCount {
	out := make([]index.ValueCount, 0, ix.IndexSize())
	ix.forward.Scan(func(e entry) bool {
		if !e.key.IsSpecial() {
			out = append(out, index.ValueCount{Value: e.key, Count: e.ids.Len()})
		}
		return true
	})
	return out
}

// Histogram implements index.Histogrammer: it maps a set size to the number
// of keys holding that many documents.
func (ix *Index) Histogram() map[int]int {
	h := make(map[int]int)
	ix.forward.Scan(func(e entry) bool {
		if !e.key.IsSpecial() {
			h[e.ids.Len()]++
		}
		return true
	})
	return h
}

// Items calls fn for every non-special forward entry in ascending order.
func (ix *Index) Items(fn func(v value.Value, ids *idset.Set) bool) {
	ix.forward.Scan(func(e entry) bool {
		if e.key.IsSpecial() {
			return true
		}
		return fn(e.key, e.ids)
	})
}

// DocumentToKeyMap implements index.SortIndex.
func (ix *Index) DocumentToKeyMap() index.KeyMap { return keyMap{ix} }

type keyMap struct{ ix *Index }

func (m keyMap) Key(docid uint32) (value.Value, bool) {
	vs, ok := m.ix.reverse[docid]
	if !ok || len(vs) == 0 || vs[0].IsSpecial() {
		return value.Value{}, false
	}
	if len(vs) == 1 {
		return vs[0], true
	}
	return value.Tuple(vs...), true
}

func (m keyMap) Len() int { return m.ix.IndexSize() }

func (m keyMap) Ascend(fn func(value.Value, *idset.Set) bool) {
	m.ix.Items(fn)
}

func (m keyMap) Descend(fn func(value.Value, *idset.Set) bool) {
	m.ix.forward.Reverse(func(e entry) bool {
		if e.key.IsSpecial() {
			return true
		}
		return fn(e.key, e.ids)
	})
}
