package index

import (
	"errors"
	"fmt"
)

// ErrConfiguration is wrapped by every configuration error.
var ErrConfiguration = errors.New("configuration error")

// ConfigError describes an invalid index definition or an operation the
// index does not support.
type ConfigError struct {
	Index  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Index == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("index %q: %s", e.Index, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// Configf returns a ConfigError for index id.
func Configf(id, format string, args ...any) error {
	return &ConfigError{Index: id, Reason: fmt.Sprintf(format, args...)}
}
