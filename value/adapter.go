package value

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout renders times as fixed-width UTC strings, so that string order
// is chronological.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FromAny converts a Go value into a typed Value.
//
// Slices become tuples and times become TimeLayout strings. Callers that treat a slice as a list of keys
// (query parsing, keyword extraction) expand it themselves before calling.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float64:
		return Float(x), nil
	case float32:
		return Float(float64(x)), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return fromUint(x)
	case time.Time:
		return String(x.UTC().Format(TimeLayout)), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("value: invalid number %q: %w", x.String(), err)
		}
		return Float(f), nil
	case []Value:
		return Tuple(x...), nil
	case []any:
		arr := make([]Value, len(x))
		for i := range x {
			vv, err := FromAny(x[i])
			if err != nil {
				return Value{}, err
			}
			arr[i] = vv
		}
		return Tuple(arr...), nil
	case []string:
		return Strings(x), nil
	case []int:
		return Ints(x), nil
	default:
		return Value{}, fmt.Errorf("value: unsupported type %T", v)
	}
}

func fromUint(x uint64) (Value, error) {
	if x > 1<<63-1 {
		// Avoid silently wrapping large values.
		return Value{}, fmt.Errorf("value: uint64 out of range: %d", x)
	}
	return Int(int64(x)), nil
}

// Strings returns a tuple of string values.
func Strings(ss []string) Value {
	arr := make([]Value, len(ss))
	for i := range ss {
		arr[i] = String(ss[i])
	}
	return Tuple(arr...)
}

// Ints returns a tuple of int values.
func Ints(is []int) Value {
	arr := make([]Value, len(is))
	for i := range is {
		arr[i] = Int(int64(is[i]))
	}
	return Tuple(arr...)
}

// List expands v into a list of values when it is a slice and wraps it in a
// one-element list otherwise.
func List(v any) ([]Value, error) {
	switch x := v.(type) {
	case []Value:
		return x, nil
	case []any:
		out := make([]Value, 0, len(x))
		for i := range x {
			vv, err := FromAny(x[i])
			if err != nil {
				return nil, err
			}
			out = append(out, vv)
		}
		return out, nil
	case []string:
		out := make([]Value, len(x))
		for i := range x {
			out[i] = String(x[i])
		}
		return out, nil
	case []int:
		out := make([]Value, len(x))
		for i := range x {
			out[i] = Int(int64(x[i]))
		}
		return out, nil
	case []int64:
		out := make([]Value, len(x))
		for i := range x {
			out[i] = Int(x[i])
		}
		return out, nil
	case []float64:
		out := make([]Value, len(x))
		for i := range x {
			out[i] = Float(x[i])
		}
		return out, nil
	case []bool:
		out := make([]Value, len(x))
		for i := range x {
			out[i] = Bool(x[i])
		}
		return out, nil
	default:
		vv, err := FromAny(v)
		if err != nil {
			return nil, err
		}
		return []Value{vv}, nil
	}
}

// IsList reports whether v is a slice that List expands element-wise.
func IsList(v any) bool {
	switch v.(type) {
	case []Value, []any, []string, []int, []int64, []float64, []bool:
		return true
	default:
		return false
	}
}
