package index

import (
	"maps"

	"github.com/hupe1980/catalogo/idset"
	"github.com/hupe1980/catalogo/query"
	"github.com/hupe1980/catalogo/value"
)

// Index is the plugin contract between the catalog and an index.
type Index interface {
	// ID returns the index name. Queries address the index by this name.
	ID() string

	// MetaType names the implementation, e.g. "FieldIndex".
	MetaType() string

	// SourceNames returns the object attributes the index reads.
	SourceNames() []string

	// Clear empties the index. The change counter keeps increasing.
	Clear()

	// IndexObject (re)indexes docid from obj and reports whether anything
	// changed. It only fails on storage conflicts; all other extraction
	// problems index the document as having no value.
	IndexObject(docid uint32, obj Object) (bool, error)

	// UnindexObject removes docid. Unknown ids are ignored.
	UnindexObject(docid uint32)

	// Apply evaluates the part of req that addresses this index.
	//
	// rs is the running result of the search so far (nil if none). It is a
	// hint only: an index may ignore it, but the returned set must then be
	// intersected with rs by the caller.
	Apply(qc *QueryContext, req query.Request, rs *idset.Set) (*Result, error)

	// Counter returns the change counter. It increases on every mutation.
	Counter() uint64

	// NumObjects returns the number of indexed documents.
	NumObjects() int

	// IndexSize returns the number of distinct indexed values.
	IndexSize() int

	// QueryOptions returns the option keys Apply understands.
	QueryOptions() []string
}

// Result is the outcome of Index.Apply.
type Result struct {
	// IDs is the matched set. Never nil.
	IDs *idset.Set

	// Scores holds per-document weights for scored results. Nil for plain
	// results. Ids of IDs missing from Scores weigh 1.
	Scores map[uint32]int

	// Used names the request keys the index consumed.
	Used []string
}

// Weighted returns the result as a weighted set. Ids in IDs without a
// score weigh 1.
func (r *Result) Weighted() *idset.Weighted {
	if r.Scores == nil {
		return idset.Plain(r.IDs)
	}
	if r.IDs == nil {
		return idset.Scores(r.Scores)
	}
	weights := maps.Clone(r.Scores)
	for id := range r.IDs.All() {
		if _, ok := weights[id]; !ok {
			weights[id] = 1
		}
	}
	return idset.Scores(weights)
}

// ValueCount pairs an indexed value with the number of documents under it.
type ValueCount struct {
	Value value.Value
	Count int
}

// KeyMap gives ordered access to the values of a sortable index.
type KeyMap interface {
	// Key returns the sort value of docid.
	Key(docid uint32) (value.Value, bool)

	// Len returns the number of distinct keys.
	Len() int

	// Ascend walks keys in ascending order until fn returns false.
	Ascend(fn func(key value.Value, ids *idset.Set) bool)

	// Descend walks keys in descending order until fn returns false.
	Descend(fn func(key value.Value, ids *idset.Set) bool)
}

// SortIndex is implemented by indexes usable for sort_on.
type SortIndex interface {
	DocumentToKeyMap() KeyMap
}

// UniqueValuer is implemented by indexes that can list their values.
type UniqueValuer interface {
	UniqueValues() []ValueCount
}

// LimitedResult is implemented by indexes that narrow their work with the
// running result set. The catalog evaluates them after all other indexes.
type LimitedResult interface {
	LimitedResult() bool
}

// EntryProvider is implemented by indexes that can report what they stored
// for a document.
type EntryProvider interface {
	EntryForObject(docid uint32) ([]value.Value, bool)
}

// Histogrammer reports how many keys hold a given number of documents.
type Histogrammer interface {
	Histogram() map[int]int
}

// IsLimitedResult reports whether idx narrows with the running result set.
func IsLimitedResult(idx Index) bool {
	lr, ok := idx.(LimitedResult)
	return ok && lr.LimitedResult()
}
