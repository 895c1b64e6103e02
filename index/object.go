package index

import (
	"errors"
	"log/slog"

	"github.com/hupe1980/catalogo/storage"
)

// ErrNoAttribute is returned by Object.Attr for absent attributes.
var ErrNoAttribute = errors.New("no such attribute")

// Object is anything the catalog can index.
type Object interface {
	// Attr returns the named attribute. Absent attributes return
	// ErrNoAttribute.
	Attr(name string) (any, error)
}

// Record is a map-backed Object.
//
// Values of type func() any and func() (any, error) are called on access.
type Record map[string]any

// Attr implements Object.
func (r Record) Attr(name string) (any, error) {
	v, ok := r[name]
	if !ok {
		return nil, ErrNoAttribute
	}
	switch fn := v.(type) {
	case func() any:
		return fn(), nil
	case func() (any, error):
		return fn()
	}
	return v, nil
}

// ObjectFunc adapts a function to Object.
type ObjectFunc func(name string) (any, error)

// Attr implements Object.
func (f ObjectFunc) Attr(name string) (any, error) { return f(name) }

// Extract reads attr from obj.
//
// ok is false when the attribute is absent or reading it failed; failures
// other than absence are logged at warn level. Storage conflicts are the
// only errors returned, and must be propagated by the caller.
func Extract(obj Object, attr string, logger *slog.Logger) (v any, ok bool, err error) {
	if obj == nil {
		return nil, false, nil
	}
	v, err = obj.Attr(attr)
	switch {
	case err == nil:
		return v, true, nil
	case errors.Is(err, storage.ErrConflict):
		return nil, false, err
	case errors.Is(err, ErrNoAttribute):
		return nil, false, nil
	default:
		if logger != nil {
			logger.Warn("attribute extraction failed",
				slog.String("attribute", attr),
				slog.String("error", err.Error()),
			)
		}
		return nil, false, nil
	}
}
