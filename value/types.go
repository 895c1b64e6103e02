package value

import (
	"math"
	"strconv"
	"strings"
	"unique"
)

// Kind identifies the concrete type stored in a Value.
//
// The declaration order is also the rank used by Compare, so values of
// different kinds sort in this order.
type Kind uint8

const (
	// KindInvalid represents the zero Value.
	KindInvalid Kind = iota
	// KindMissing marks a document whose attribute was absent or unreadable.
	KindMissing
	// KindEmpty marks a document whose attribute was an empty collection.
	KindEmpty
	// KindNull represents an explicit null.
	KindNull
	// KindBool represents a boolean value.
	KindBool
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindString represents a string value.
	KindString
	// KindTuple represents an ordered tuple of values.
	KindTuple
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindEmpty:
		return "empty"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTuple:
		return "tuple"
	default:
		return "invalid"
	}
}

// Value is a small typed value stored in indexes and used as query keys.
//
// No reflection and no fmt-based stringification on the hot path.
//
// NOTE: Key() is used for cache keys and snapshot formats; keep it stable.
type Value struct {
	Kind Kind
	I64  int64
	F64  float64
	s    unique.Handle[string]
	B    bool
	A    []Value
}

// Missing returns the value recorded for documents without a usable attribute.
func Missing() Value { return Value{Kind: KindMissing} }

// Empty returns the value recorded for documents with an empty collection.
func Empty() Value { return Value{Kind: KindEmpty} }

// Null returns a null Value.
func Null() Value { return Value{Kind: KindNull} }

// Int returns an int64 Value.
func Int(v int64) Value { return Value{Kind: KindInt, I64: v} }

// Float returns a float64 Value.
func Float(v float64) Value { return Value{Kind: KindFloat, F64: v} }

// String returns a string Value.
func String(v string) Value { return Value{Kind: KindString, s: unique.Make(v)} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: KindBool, B: v} }

// Tuple returns a tuple Value.
func Tuple(v ...Value) Value { return Value{Kind: KindTuple, A: v} }

// IsValid reports whether v was constructed by one of the constructors.
func (v Value) IsValid() bool { return v.Kind != KindInvalid }

// IsSpecial reports whether v is one of the Missing/Empty markers.
func (v Value) IsSpecial() bool { return v.Kind == KindMissing || v.Kind == KindEmpty }

// StringValue returns the string value if Kind is KindString, otherwise empty string.
func (v Value) StringValue() string {
	if v.Kind == KindString {
		return v.s.Value()
	}
	return ""
}

// AsInt64 returns the int64 value if Kind is KindInt.
func (v Value) AsInt64() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.I64, true
}

// AsFloat64 returns the numeric value for KindInt and KindFloat.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.F64, true
	case KindInt:
		return float64(v.I64), true
	default:
		return 0, false
	}
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.s.Value(), true
}

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// AsTuple returns the tuple elements if Kind is KindTuple.
func (v Value) AsTuple() ([]Value, bool) {
	if v.Kind != KindTuple {
		return nil, false
	}
	return v.A, true
}

// Key returns a stable string representation for use in maps and cache keys.
func (v Value) Key() string {
	var sb strings.Builder
	v.appendKey(&sb)
	return sb.String()
}

func (v Value) appendKey(sb *strings.Builder) {
	switch v.Kind {
	case KindMissing:
		sb.WriteString("m:")
	case KindEmpty:
		sb.WriteString("e:")
	case KindNull:
		sb.WriteString("null")
	case KindInt:
		sb.WriteString("i:")
		sb.WriteString(strconv.FormatInt(v.I64, 10))
	case KindFloat:
		sb.WriteString("f:")
		sb.WriteString(strconv.FormatUint(math.Float64bits(v.F64), 16))
	case KindString:
		sb.WriteString("s:")
		sb.WriteString(v.s.Value())
	case KindBool:
		if v.B {
			sb.WriteString("b:1")
		} else {
			sb.WriteString("b:0")
		}
	case KindTuple:
		sb.WriteString("t:(")
		for i := range v.A {
			if i > 0 {
				sb.WriteByte('\x1f')
			}
			v.A[i].appendKey(sb)
		}
		sb.WriteByte(')')
	default:
		sb.WriteString("invalid")
	}
}

// String returns a human readable form, used in log lines and reports.
func (v Value) String() string {
	switch v.Kind {
	case KindMissing:
		return "<missing>"
	case KindEmpty:
		return "<empty>"
	case KindNull:
		return "null"
	case KindInt:
		return strconv.FormatInt(v.I64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s.Value())
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindTuple:
		parts := make([]string, len(v.A))
		for i := range v.A {
			parts[i] = v.A[i].String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return "<invalid>"
	}
}

// Interface converts v back to a plain Go value.
func (v Value) Interface() any {
	switch v.Kind {
	case KindInt:
		return v.I64
	case KindFloat:
		return v.F64
	case KindString:
		return v.s.Value()
	case KindBool:
		return v.B
	case KindTuple:
		out := make([]any, len(v.A))
		for i := range v.A {
			out[i] = v.A[i].Interface()
		}
		return out
	default:
		return nil
	}
}
