// Package keyword implements KeywordIndex, an index storing a set of values
// per document.
//
// A document matches a query key when the key is one of its keywords. A
// string attribute is a single keyword; a slice contributes each element.
// Documents without a usable attribute are indexed under value.Missing and
// documents with an empty collection under value.Empty, so both can be
// queried and excluded like ordinary keywords.
package keyword

import (
	"log/slog"

	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/index/unindex"
	"github.com/hupe1980/catalogo/value"
)

// MetaType is the KeywordIndex type name.
const MetaType = "KeywordIndex"

// Index is a multi-valued index.
type Index struct {
	*unindex.Index
}

var (
	_ index.Index         = (*Index)(nil)
	_ index.UniqueValuer  = (*Index)(nil)
	_ index.EntryProvider = (*Index)(nil)
	_ index.Stateful      = (*Index)(nil)
	_ index.Definer       = (*Index)(nil)
)

// New creates a KeywordIndex named id reading attrs (default: id).
func New(id string, attrs []string, logger *slog.Logger) *Index {
	return &Index{Index: unindex.New(unindex.Config{
		ID:          id,
		MetaType:    MetaType,
		Attributes:  attrs,
		Multivalued: true,
		Logger:      logger,
	})}
}

// IndexObject implements index.Index.
func (ix *Index) IndexObject(docid uint32, obj index.Object) (bool, error) {
	kws, err := ix.Keywords(obj)
	if err != nil {
		return false, err
	}
	return ix.Insert(docid, kws...), nil
}

// Keywords extracts the keyword set of obj across all source attributes.
// The result is never empty: it is value.Missing or value.Empty when there
// is nothing to index.
func (ix *Index) Keywords(obj index.Object) ([]value.Value, error) {
	var (
		kws      []value.Value
		sawEmpty bool
	)
	for _, attr := range ix.SourceNames() {
		raw, ok, err := index.Extract(obj, attr, ix.Logger())
		if err != nil {
			return nil, err
		}
		if !ok || raw == nil {
			continue
		}
		vs, err := value.List(raw)
		if err != nil {
			ix.Logger().Warn("cannot index keywords",
				slog.String("index", ix.ID()),
				slog.String("attribute", attr),
				slog.String("error", err.Error()),
			)
			return []value.Value{value.Missing()}, nil
		}
		if len(vs) == 0 {
			sawEmpty = true
			continue
		}
		kws = append(kws, vs...)
	}
	switch {
	case len(kws) > 0:
		return value.SortUnique(kws), nil
	case sawEmpty:
		return []value.Value{value.Empty()}, nil
	default:
		return []value.Value{value.Missing()}, nil
	}
}

// Definition implements index.Definer.
func (ix *Index) Definition() index.Definition {
	return index.Definition{ID: ix.ID(), MetaType: MetaType, Attributes: ix.SourceNames()}
}
