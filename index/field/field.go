// Package field implements FieldIndex, an index storing one value per
// document.
package field

import (
	"log/slog"

	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/index/unindex"
	"github.com/hupe1980/catalogo/value"
)

// MetaType is the FieldIndex type name.
const MetaType = "FieldIndex"

// Index indexes the first usable value among its source attributes.
type Index struct {
	*unindex.Index
}

var (
	_ index.Index         = (*Index)(nil)
	_ index.SortIndex     = (*Index)(nil)
	_ index.UniqueValuer  = (*Index)(nil)
	_ index.EntryProvider = (*Index)(nil)
	_ index.Histogrammer  = (*Index)(nil)
	_ index.Stateful      = (*Index)(nil)
	_ index.Definer       = (*Index)(nil)
)

// New creates a FieldIndex named id reading attrs (default: id).
func New(id string, attrs []string, logger *slog.Logger) *Index {
	return &Index{Index: unindex.New(unindex.Config{
		ID:         id,
		MetaType:   MetaType,
		Attributes: attrs,
		Logger:     logger,
	})}
}

// IndexObject implements index.Index.
//
// Absent attributes, nil values and values that cannot be converted leave
// the document unindexed.
func (ix *Index) IndexObject(docid uint32, obj index.Object) (bool, error) {
	for _, attr := range ix.SourceNames() {
		raw, ok, err := index.Extract(obj, attr, ix.Logger())
		if err != nil {
			return false, err
		}
		if !ok || raw == nil {
			continue
		}
		v, err := value.FromAny(raw)
		if err != nil {
			ix.Logger().Warn("cannot index value",
				slog.String("index", ix.ID()),
				slog.Uint64("docid", uint64(docid)),
				slog.String("error", err.Error()),
			)
			continue
		}
		return ix.Insert(docid, v), nil
	}
	return ix.Remove(docid), nil
}

// Definition implements index.Definer.
func (ix *Index) Definition() index.Definition {
	return index.Definition{ID: ix.ID(), MetaType: MetaType, Attributes: ix.SourceNames()}
}
