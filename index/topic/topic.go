// Package topic implements TopicIndex, a set of named filtered sets. Every
// filtered set holds the documents for which its predicate matched.
package topic

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/hupe1980/catalogo/idset"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/query"
	"github.com/hupe1980/catalogo/storage"
	"github.com/hupe1980/catalogo/value"
)

// MetaType is the TopicIndex type name.
const MetaType = "TopicIndex"

var (
	// ErrDuplicateFilteredSet is returned when adding a filtered set whose
	// id is taken.
	ErrDuplicateFilteredSet = errors.New("filtered set already exists")

	// ErrUnknownFilteredSet is returned for operations on a missing
	// filtered set.
	ErrUnknownFilteredSet = errors.New("no such filtered set")
)

// FilteredSet is a named predicate and the documents matching it.
type FilteredSet struct {
	ID         string
	Expression string
	Predicate  Predicate

	members *idset.Set
}

// IDs returns the matching documents. The set is owned by the index.
func (fs *FilteredSet) IDs() *idset.Set { return fs.members }

func (fs *FilteredSet) indexObject(docid uint32, obj index.Object) (bool, error) {
	ok, err := fs.Predicate.Match(obj)
	if err != nil {
		return false, err
	}
	had := fs.members.Contains(docid)
	switch {
	case ok && !had:
		fs.members.Add(docid)
		return true, nil
	case !ok && had:
		fs.members.Remove(docid)
		return true, nil
	}
	return false, nil
}

// Index is a TopicIndex.
type Index struct {
	id      string
	sets    map[string]*FilteredSet
	logger  *slog.Logger
	counter uint64
}

var (
	_ index.Index         = (*Index)(nil)
	_ index.UniqueValuer  = (*Index)(nil)
	_ index.EntryProvider = (*Index)(nil)
	_ index.Stateful      = (*Index)(nil)
	_ index.Definer       = (*Index)(nil)
)

// New creates an empty TopicIndex.
func New(id string, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Index{id: id, sets: make(map[string]*FilteredSet), logger: logger}
}

// ID implements index.Index.
func (ix *Index) ID() string { return ix.id }

// MetaType implements index.Index.
func (ix *Index) MetaType() string { return MetaType }

// SourceNames implements index.Index. Predicates read arbitrary attributes,
// so only the index id is reported.
func (ix *Index) SourceNames() []string { return []string{ix.id} }

// QueryOptions implements index.Index.
func (ix *Index) QueryOptions() []string { return []string{query.OptQuery, query.OptOperator} }

// Counter implements index.Index.
func (ix *Index) Counter() uint64 { return ix.counter }

// AddFilteredSet registers a filtered set. Documents indexed before are not
// evaluated against it.
func (ix *Index) AddFilteredSet(id, expr string, p Predicate) error {
	if id == "" {
		return index.Configf(ix.id, "filtered set id must not be empty")
	}
	if p == nil {
		return index.Configf(ix.id, "filtered set %q: predicate required", id)
	}
	if _, ok := ix.sets[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateFilteredSet, id)
	}
	ix.sets[id] = &FilteredSet{ID: id, Expression: expr, Predicate: p, members: idset.New()}
	ix.counter++
	return nil
}

// AddExpression registers a filtered set evaluating expr with an
// ExprPredicate.
func (ix *Index) AddExpression(id, expr string) error {
	p, err := NewExprPredicate(expr)
	if err != nil {
		return index.Configf(ix.id, "filtered set %q: %v", id, err)
	}
	return ix.AddFilteredSet(id, expr, p)
}

// DelFilteredSet removes a filtered set.
func (ix *Index) DelFilteredSet(id string) error {
	if _, ok := ix.sets[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFilteredSet, id)
	}
	delete(ix.sets, id)
	ix.counter++
	return nil
}

// ClearFilteredSet empties a filtered set.
func (ix *Index) ClearFilteredSet(id string) error {
	fs, ok := ix.sets[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFilteredSet, id)
	}
	fs.members = idset.New()
	ix.counter++
	return nil
}

// FilteredSet returns the filtered set named id.
func (ix *Index) FilteredSet(id string) (*FilteredSet, bool) {
	fs, ok := ix.sets[id]
	return fs, ok
}

// FilteredSetIDs returns the filtered set ids in ascending order.
func (ix *Index) FilteredSetIDs() []string {
	ids := make([]string, 0, len(ix.sets))
	for id := range ix.sets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clear empties every filtered set and keeps the definitions.
func (ix *Index) Clear() {
	for _, fs := range ix.sets {
		fs.members = idset.New()
	}
	ix.counter++
}

// IndexObject implements index.Index. Predicate failures are logged and
// count as no match; storage conflicts are returned.
func (ix *Index) IndexObject(docid uint32, obj index.Object) (bool, error) {
	var changed bool
	for _, id := range ix.FilteredSetIDs() {
		fs := ix.sets[id]
		ok, err := fs.indexObject(docid, obj)
		if err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return changed, err
			}
			ix.logger.Warn("filtered set evaluation failed",
				slog.String("index", ix.id),
				slog.String("filtered_set", id),
				slog.Uint64("docid", uint64(docid)),
				slog.String("error", err.Error()),
			)
			if fs.members.Contains(docid) {
				fs.members.Remove(docid)
				ok = true
			}
		}
		changed = changed || ok
	}
	if changed {
		ix.counter++
	}
	return changed, nil
}

// UnindexObject implements index.Index.
func (ix *Index) UnindexObject(docid uint32) {
	var changed bool
	for _, fs := range ix.sets {
		if fs.members.Contains(docid) {
			fs.members.Remove(docid)
			changed = true
		}
	}
	if changed {
		ix.counter++
	} else {
		ix.logger.Debug("unindex of unknown document", slog.String("index", ix.id), slog.Uint64("docid", uint64(docid)))
	}
}

// Search returns the members of filter id.
func (ix *Index) Search(id string) (*idset.Set, bool) {
	fs, ok := ix.sets[id]
	if !ok {
		return nil, false
	}
	return fs.members, true
}

// Apply implements index.Index. Keys are filtered set ids; unknown ids
// contribute an empty set.
func (ix *Index) Apply(_ *index.QueryContext, req query.Request, rs *idset.Set) (*index.Result, error) {
	iq, err := query.Parse(req, ix.id, ix.QueryOptions(), []string{query.OpOr, query.OpAnd})
	if err != nil || iq == nil {
		return nil, err
	}

	sets := make([]*idset.Set, 0, len(iq.Keys))
	for _, k := range iq.Keys {
		s, ok := ix.Search(keyString(k))
		if !ok {
			s = idset.New()
		}
		sets = append(sets, s)
	}

	var ids *idset.Set
	switch {
	case len(sets) == 0:
		ids = idset.New()
	case iq.Operator == query.OpAnd:
		ids = idset.MultiIntersection(sets...)
	default:
		ids = idset.Multiunion(sets...)
	}
	return &index.Result{IDs: idset.Intersection(rs, ids).Clone(), Used: []string{ix.id}}, nil
}

func keyString(v value.Value) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	return v.String()
}

// NumObjects implements index.Index: the size of the union of all sets.
func (ix *Index) NumObjects() int {
	sets := make([]*idset.Set, 0, len(ix.sets))
	for _, fs := range ix.sets {
		sets = append(sets, fs.members)
	}
	return idset.Multiunion(sets...).Len()
}

// IndexSize implements index.Index: the number of filtered sets.
func (ix *Index) IndexSize() int { return len(ix.sets) }

// UniqueValues implements index.UniqueValuer.
func (ix *Index) UniqueValues() []index.ValueCount {
	out := make([]index.ValueCount, 0, len(ix.sets))
	for _, id := range ix.FilteredSetIDs() {
		out = append(out, index.ValueCount{Value: value.String(id), Count: ix.sets[id].members.Len()})
	}
	return out
}

// EntryForObject implements index.EntryProvider: the ids of the filtered
// sets containing docid.
func (ix *Index) EntryForObject(docid uint32) ([]value.Value, bool) {
	var out []value.Value
	for _, id := range ix.FilteredSetIDs() {
		if ix.sets[id].members.Contains(docid) {
			out = append(out, value.String(id))
		}
	}
	return out, len(out) > 0
}

// ExportState implements index.Stateful. Only memberships are exported;
// predicates are restored from the index definition.
func (ix *Index) ExportState() (*index.State, error) {
	st := &index.State{Version: 1, Counter: ix.counter, Sets: make(map[string][]byte, len(ix.sets))}
	for id, fs := range ix.sets {
		b, err := fs.members.MarshalBinary()
		if err != nil {
			return nil, err
		}
		st.Sets[id] = b
	}
	return st, nil
}

// ImportState implements index.Stateful. Memberships of unknown filtered
// sets are ignored.
func (ix *Index) ImportState(st *index.State) error {
	for id, b := range st.Sets {
		fs, ok := ix.sets[id]
		if !ok {
			ix.logger.Warn("state for unknown filtered set dropped", slog.String("index", ix.id), slog.String("filtered_set", id))
			continue
		}
		s := idset.New()
		if err := s.UnmarshalBinary(b); err != nil {
			return fmt.Errorf("filtered set %q: %w", id, err)
		}
		fs.members = s
	}
	ix.counter = max(ix.counter+1, st.Counter)
	return nil
}

// Definition implements index.Definer. Filtered sets without an
// expression cannot be described and are omitted.
func (ix *Index) Definition() index.Definition {
	var defs []map[string]any
	for _, id := range ix.FilteredSetIDs() {
		if expr := ix.sets[id].Expression; expr != "" {
			defs = append(defs, map[string]any{"id": id, "expr": expr})
		}
	}
	def := index.Definition{ID: ix.id, MetaType: MetaType}
	if len(defs) > 0 {
		def.Extra = map[string]any{"filtered_sets": slices.Clip(defs)}
	}
	return def
}
