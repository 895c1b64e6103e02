package query

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hupe1980/catalogo/value"
)

// CacheKey returns a request-cache key for q that is only valid while the
// index change counter equals counter.
//
// Keys and "not" values are order-insensitive, matching set semantics.
func (q *IndexQuery) CacheKey(metaType string, counter uint64) string {
	var sb strings.Builder
	sb.WriteString(metaType)
	sb.WriteByte('/')
	sb.WriteString(q.ID)
	sb.WriteByte('/')
	sb.WriteString(strconv.FormatUint(counter, 10))
	sb.WriteString("|op=")
	sb.WriteString(q.Operator)
	if q.Not != nil {
		sb.WriteString("|not=")
		writeSet(&sb, q.Not)
	}
	if q.Range != "" {
		sb.WriteString("|range=")
		sb.WriteString(q.Range)
	}
	if q.Usage != "" {
		sb.WriteString("|usage=")
		sb.WriteString(q.Usage)
	}
	sb.WriteString("|keys=")
	writeSet(&sb, q.Keys)
	return sb.String()
}

func writeSet(sb *strings.Builder, vs []value.Value) {
	keys := make([]string, len(vs))
	for i := range vs {
		keys[i] = vs[i].Key()
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)
	sb.WriteByte('{')
	sb.WriteString(strings.Join(keys, ","))
	sb.WriteByte('}')
}

// Without returns a shallow copy of r without the given keys.
func (r Request) Without(keys ...string) Request {
	out := make(Request, len(r))
	for k, v := range r {
		if !slices.Contains(keys, k) {
			out[k] = v
		}
	}
	return out
}

// Clone returns a shallow copy of r.
func (r Request) Clone() Request {
	return maps.Clone(r)
}

// SortedKeys returns the request keys in ascending order.
func (r Request) SortedKeys() []string {
	return slices.Sorted(maps.Keys(r))
}

// Canonical renders r deterministically: keys sorted, nested maps sorted,
// values rendered through value.Key where possible.
func (r Request) Canonical() string {
	var sb strings.Builder
	writeCanonical(&sb, map[string]any(r))
	return sb.String()
}

// Signature returns a 64-bit hash of the canonical form.
func (r Request) Signature() uint64 {
	return xxhash.Sum64String(r.Canonical())
}

func writeCanonical(sb *strings.Builder, v any) {
	switch x := v.(type) {
	case Request:
		writeCanonical(sb, map[string]any(x))
	case map[string]any:
		sb.WriteByte('{')
		for i, k := range slices.Sorted(maps.Keys(x)) {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteByte(':')
			writeCanonical(sb, x[k])
		}
		sb.WriteByte('}')
	case time.Time:
		sb.WriteString("time:")
		sb.WriteString(x.UTC().Format(time.RFC3339Nano))
	case Record:
		writeCanonical(sb, recordMap(x))
	case *Record:
		if x == nil {
			sb.WriteString("null")
			return
		}
		writeCanonical(sb, recordMap(*x))
	default:
		if value.IsList(v) {
			vs, err := value.List(v)
			if err == nil {
				sb.WriteByte('[')
				for i := range vs {
					if i > 0 {
						sb.WriteByte(',')
					}
					sb.WriteString(vs[i].Key())
				}
				sb.WriteByte(']')
				return
			}
		}
		if vv, err := value.FromAny(v); err == nil {
			sb.WriteString(vv.Key())
			return
		}
		fmt.Fprintf(sb, "%T:%v", v, v)
	}
}

func recordMap(r Record) map[string]any {
	m := map[string]any{}
	recordOptions(r, m)
	return m
}
