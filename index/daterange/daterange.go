// Package daterange implements DateRangeIndex, which answers "which
// documents are effective at time t" for documents carrying a
// [since, until] pair of dates.
//
// A nil bound is open: a document without "since" has always been
// effective, one without "until" never expires.
package daterange

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/hupe1980/catalogo/idset"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/index/date"
	"github.com/hupe1980/catalogo/index/unindex"
	"github.com/hupe1980/catalogo/query"
	"github.com/hupe1980/catalogo/value"
)

// MetaType is the DateRangeIndex type name.
const MetaType = "DateRangeIndex"

// Index keeps one ordered map per bound. Open bounds are stored under
// value.Missing.
type Index struct {
	id        string
	sinceAttr string
	untilAttr string
	logger    *slog.Logger
	conv      date.Converter

	since *unindex.Index
	until *unindex.Index
	docs  *idset.Set
}

var (
	_ index.Index         = (*Index)(nil)
	_ index.EntryProvider = (*Index)(nil)
	_ index.Stateful      = (*Index)(nil)
	_ index.Definer       = (*Index)(nil)
)

// New creates a DateRangeIndex named id reading the since and until
// attributes. Date options configure the conversion.
func New(id, sinceAttr, untilAttr string, logger *slog.Logger, opts ...date.Option) (*Index, error) {
	if sinceAttr == "" || untilAttr == "" {
		return nil, index.Configf(id, "since and until attributes are required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	core := func(name string) *unindex.Index {
		return unindex.New(unindex.Config{ID: id + "." + name, MetaType: MetaType, Attributes: []string{name}, Logger: logger})
	}
	return &Index{
		id:        id,
		sinceAttr: sinceAttr,
		untilAttr: untilAttr,
		logger:    logger,
		conv:      date.NewConverter(opts...),
		since:     core(sinceAttr),
		until:     core(untilAttr),
		docs:      idset.New(),
	}, nil
}

// ID implements index.Index.
func (ix *Index) ID() string { return ix.id }

// MetaType implements index.Index.
func (ix *Index) MetaType() string { return MetaType }

// SourceNames implements index.Index.
func (ix *Index) SourceNames() []string { return []string{ix.sinceAttr, ix.untilAttr} }

// QueryOptions implements index.Index.
func (ix *Index) QueryOptions() []string { return []string{query.OptQuery} }

// Counter implements index.Index.
func (ix *Index) Counter() uint64 { return ix.since.Counter() + ix.until.Counter() }

// NumObjects implements index.Index.
func (ix *Index) NumObjects() int { return ix.docs.Len() }

// IndexSize returns the number of distinct bounds.
func (ix *Index) IndexSize() int { return ix.since.IndexSize() + ix.until.IndexSize() }

// Clear implements index.Index.
func (ix *Index) Clear() {
	ix.since.Clear()
	ix.until.Clear()
	ix.docs = idset.New()
}

// IndexObject implements index.Index. A document with neither bound is
// not indexed. Unconvertible bounds are logged and treated as open.
func (ix *Index) IndexObject(docid uint32, obj index.Object) (bool, error) {
	since, sinceOK, err := ix.bound(docid, obj, ix.sinceAttr)
	if err != nil {
		return false, err
	}
	until, untilOK, err := ix.bound(docid, obj, ix.untilAttr)
	if err != nil {
		return false, err
	}
	if !sinceOK && !untilOK {
		return ix.Remove(docid), nil
	}
	return ix.Insert(docid, since, until), nil
}

func (ix *Index) bound(docid uint32, obj index.Object, attr string) (value.Value, bool, error) {
	raw, ok, err := index.Extract(obj, attr, ix.logger)
	if err != nil || !ok || raw == nil {
		return value.Missing(), false, err
	}
	v, err := ix.conv.Convert(raw)
	if err != nil {
		ix.logger.Warn("cannot index date bound",
			slog.String("index", ix.id),
			slog.String("attribute", attr),
			slog.Uint64("docid", uint64(docid)),
			slog.String("error", err.Error()),
		)
		return value.Missing(), false, nil
	}
	return value.Int(v), true, nil
}

// Insert stores the encoded bounds of docid; value.Missing marks an open
// bound.
func (ix *Index) Insert(docid uint32, since, until value.Value) bool {
	a := ix.since.Insert(docid, since)
	b := ix.until.Insert(docid, until)
	ix.docs.Add(docid)
	return a || b
}

// Remove unindexes docid.
func (ix *Index) Remove(docid uint32) bool {
	a := ix.since.Remove(docid)
	b := ix.until.Remove(docid)
	ix.docs.Remove(docid)
	return a || b
}

// UnindexObject implements index.Index.
func (ix *Index) UnindexObject(docid uint32) { ix.Remove(docid) }

// Apply implements index.Index. Each key is a point in time; the result
// holds the documents effective at any of them.
func (ix *Index) Apply(qc *index.QueryContext, req query.Request, rs *idset.Set) (*index.Result, error) {
	iq, err := query.Parse(req, ix.id, ix.QueryOptions(), []string{query.OpOr})
	if err != nil || iq == nil {
		return nil, err
	}

	key := iq.CacheKey(MetaType, ix.Counter())
	if cached, ok := qc.CacheGet(key); ok {
		return &index.Result{IDs: idset.Intersection(rs, cached), Used: []string{ix.id}}, nil
	}

	parts := make([]*idset.Set, 0, len(iq.Keys))
	for _, k := range iq.Keys {
		t, err := ix.conv.ConvertValue(k)
		if err != nil {
			return nil, fmt.Errorf("%w: index %q: %w", query.ErrInvalidQuery, ix.id, err)
		}
		parts = append(parts, ix.effectiveAt(t))
	}
	primary := idset.Multiunion(parts...)
	qc.CacheSet(key, primary)
	return &index.Result{IDs: idset.Intersection(rs, primary), Used: []string{ix.id}}, nil
}

// effectiveAt returns the documents with since <= t <= until.
func (ix *Index) effectiveAt(t int64) *idset.Set {
	tv := value.Int(t)
	started := ix.union(ix.since, nil, &tv)
	if open, ok := ix.since.Get(value.Missing()); ok {
		started = idset.Union(started, open)
	}
	notExpired := ix.union(ix.until, &tv, nil)
	if open, ok := ix.until.Get(value.Missing()); ok {
		notExpired = idset.Union(notExpired, open)
	}
	return idset.Intersection(started, notExpired)
}

func (ix *Index) union(core *unindex.Index, lo, hi *value.Value) *idset.Set {
	keys := core.RangeKeys(lo, hi)
	sets := make([]*idset.Set, 0, len(keys))
	for _, k := range keys {
		if s, ok := core.Get(k); ok {
			sets = append(sets, s)
		}
	}
	return idset.Multiunion(sets...)
}

// EntryForObject implements index.EntryProvider. It returns the encoded
// [since, until] pair.
func (ix *Index) EntryForObject(docid uint32) ([]value.Value, bool) {
	since, ok := ix.since.Values(docid)
	if !ok {
		return nil, false
	}
	until, _ := ix.until.Values(docid)
	return slices.Concat(since, until), true
}

// ExportState implements index.Stateful.
func (ix *Index) ExportState() (*index.State, error) {
	st := &index.State{Version: 1, Counter: ix.Counter()}
	for docid := range ix.docs.All() {
		vs, _ := ix.EntryForObject(docid)
		st.Entries = append(st.Entries, index.Entry{Doc: docid, Values: vs})
	}
	return st, nil
}

// ImportState implements index.Stateful.
func (ix *Index) ImportState(st *index.State) error {
	ix.Clear()
	for _, e := range st.Entries {
		if len(e.Values) != 2 {
			return index.Configf(ix.id, "doc %d: want [since, until], got %d values", e.Doc, len(e.Values))
		}
		ix.Insert(e.Doc, e.Values[0], e.Values[1])
	}
	if c := ix.Counter(); c < st.Counter {
		ix.since.Advance(st.Counter - ix.until.Counter())
	}
	return nil
}

// Definition implements index.Definer.
func (ix *Index) Definition() index.Definition {
	return index.Definition{
		ID:       ix.id,
		MetaType: MetaType,
		Extra: map[string]any{
			"since_field":               ix.sinceAttr,
			"until_field":               ix.untilAttr,
			"precision":                 ix.conv.Precision(),
			"index_naive_time_as_local": ix.conv.NaiveTimeAsLocal(),
		},
	}
}
