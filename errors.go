package catalogo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/catalogo/blobstore"
	"github.com/hupe1980/catalogo/codec"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/query"
	"github.com/hupe1980/catalogo/storage"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = index.ErrConfiguration

	// ErrTransientConflict is returned when the storage layer detected a
	// conflicting concurrent write. Retry the whole transaction.
	ErrTransientConflict = errors.New("transient conflict")

	// ErrNotFound is returned when a snapshot, index or object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCorruptSnapshot is returned when a snapshot cannot be decoded.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
)

// ConfigurationError reports an invalid schema change or query: duplicate
// or reserved names, unknown sort indexes, unsupported query options.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ConfigurationError struct {
	// Name is the offending index or column.
	Name   string
	Reason string
	cause  error
}

func (e *ConfigurationError) Error() string {
	if e.Name == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Name, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.cause }

// Is makes every ConfigurationError match ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func configErrorf(name, format string, args ...any) error {
	return &ConfigurationError{Name: name, Reason: fmt.Sprintf(format, args...)}
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return err
	}

	// Conflicts must stay catchable by type for retry loops.
	if errors.Is(err, storage.ErrConflict) {
		return fmt.Errorf("%w: %w", ErrTransientConflict, err)
	}

	var ice *index.ConfigError
	if errors.As(err, &ice) {
		return &ConfigurationError{Name: ice.Index, Reason: ice.Reason, cause: err}
	}
	if errors.Is(err, query.ErrInvalidQuery) {
		return &ConfigurationError{Name: queryErrorIndex(err), Reason: err.Error(), cause: err}
	}

	if errors.Is(err, blobstore.ErrNotFound) || errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, codec.ErrCorrupt) || errors.Is(err, codec.ErrUnknownCodec) || errors.Is(err, codec.ErrUnknownCompression) {
		return fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}

	return err
}

func queryErrorIndex(err error) string {
	var (
		uo *query.ErrUnknownOption
		io *query.ErrInvalidOperator
		ir *query.ErrInvalidRange
		bv *query.ErrBadValue
	)
	switch {
	case errors.As(err, &uo):
		return uo.Index
	case errors.As(err, &io):
		return io.Index
	case errors.As(err, &ir):
		return ir.Index
	case errors.As(err, &bv):
		return bv.Index
	}
	return ""
}
