package query

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is the sentinel wrapped by every parse error.
var ErrInvalidQuery = errors.New("invalid query")

// ErrUnknownOption indicates an option key the index does not support.
type ErrUnknownOption struct {
	Index  string
	Option string
}

func (e *ErrUnknownOption) Error() string {
	return fmt.Sprintf("index %q: unknown query option %q", e.Index, e.Option)
}

func (e *ErrUnknownOption) Unwrap() error { return ErrInvalidQuery }

// ErrInvalidOperator indicates an operator the index does not support.
type ErrInvalidOperator struct {
	Index    string
	Operator string
}

func (e *ErrInvalidOperator) Error() string {
	return fmt.Sprintf("index %q: operator not valid: %q", e.Index, e.Operator)
}

func (e *ErrInvalidOperator) Unwrap() error { return ErrInvalidQuery }

// ErrInvalidRange indicates a range specification other than min, max or min:max.
type ErrInvalidRange struct {
	Index string
	Range string
}

func (e *ErrInvalidRange) Error() string {
	return fmt.Sprintf("index %q: invalid range %q", e.Index, e.Range)
}

func (e *ErrInvalidRange) Unwrap() error { return ErrInvalidQuery }

// ErrBadValue indicates a query parameter that cannot be converted.
type ErrBadValue struct {
	Index string
	Param string
	cause error
}

func (e *ErrBadValue) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("index %q: bad %s parameter: %v", e.Index, e.Param, e.cause)
	}
	return fmt.Sprintf("index %q: bad %s parameter", e.Index, e.Param)
}

func (e *ErrBadValue) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrInvalidQuery}
	}
	return []error{ErrInvalidQuery, e.cause}
}
