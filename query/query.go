package query

import (
	"slices"
	"strings"

	"github.com/hupe1980/catalogo/value"
)

// Operators.
const (
	OpOr  = "or"
	OpAnd = "and"
)

// Option names.
const (
	OptQuery    = "query"
	OptOperator = "operator"
	OptNot      = "not"
	OptRange    = "range"
	OptUsage    = "usage"
)

// Request is a query mapping from index name to a per-index parameter.
//
// A parameter is one of:
//   - a scalar (one key),
//   - a slice (several keys, combined with the default operator),
//   - a map[string]any with the option keys query, operator, not, range, usage,
//   - a Record.
//
// For scalar and slice parameters, options may be given as flat sibling
// entries named "<index>_<option>", e.g. {"date": t, "date_usage": "range:min"}.
type Request map[string]any

// Record is the typed form of a dict-style parameter.
// Zero fields are unset.
type Record struct {
	Query    any
	Operator string
	Not      any
	Range    string
	Usage    string
}

// IndexQuery is the canonical per-index query produced by Parse.
type IndexQuery struct {
	ID       string
	Keys     []value.Value
	Operator string
	Not      []value.Value
	Range    string
	Usage    string
}

// Parse extracts the query for index id from req.
//
// It returns nil, nil when req does not mention id. options lists the option
// keys the index understands ("query" is always accepted); operators lists
// the accepted operators, the first being the default.
func Parse(req Request, id string, options []string, operators []string) (*IndexQuery, error) {
	param, ok := req[id]
	if !ok {
		return nil, nil
	}
	if len(operators) == 0 {
		operators = []string{OpOr}
	}

	q := &IndexQuery{ID: id, Operator: operators[0]}
	opts := map[string]any{}

	switch p := param.(type) {
	case map[string]any:
		for k, v := range p {
			if k != OptQuery && !slices.Contains(options, k) {
				return nil, &ErrUnknownOption{Index: id, Option: k}
			}
			opts[k] = v
		}
	case Record:
		recordOptions(p, opts)
	case *Record:
		if p == nil {
			return nil, &ErrBadValue{Index: id, Param: OptQuery}
		}
		recordOptions(*p, opts)
	default:
		opts[OptQuery] = param
		for _, op := range options {
			if op == OptQuery {
				continue
			}
			if v, ok := req[id+"_"+op]; ok {
				opts[op] = v
			}
		}
	}

	if err := q.apply(opts, options, operators); err != nil {
		return nil, err
	}
	return q, nil
}

func recordOptions(r Record, opts map[string]any) {
	if r.Query != nil {
		opts[OptQuery] = r.Query
	}
	if r.Operator != "" {
		opts[OptOperator] = r.Operator
	}
	if r.Not != nil {
		opts[OptNot] = r.Not
	}
	if r.Range != "" {
		opts[OptRange] = r.Range
	}
	if r.Usage != "" {
		opts[OptUsage] = r.Usage
	}
}

func (q *IndexQuery) apply(opts map[string]any, options, operators []string) error {
	raw, hasQuery := opts[OptQuery]
	notRaw, hasNot := opts[OptNot]
	if !hasQuery && !hasNot {
		return &ErrBadValue{Index: q.ID, Param: OptQuery}
	}

	if hasQuery {
		keys, err := value.List(raw)
		if err != nil {
			return &ErrBadValue{Index: q.ID, Param: OptQuery, cause: err}
		}
		q.Keys = keys
	}

	if hasNot {
		q.Not = []value.Value{}
		if notRaw != nil {
			not, err := value.List(notRaw)
			if err != nil {
				return &ErrBadValue{Index: q.ID, Param: OptNot, cause: err}
			}
			q.Not = append(q.Not, not...)
		}
	}

	for _, k := range []string{OptOperator, OptRange, OptUsage} {
		v, ok := opts[k]
		if !ok {
			continue
		}
		if !slices.Contains(options, k) {
			return &ErrUnknownOption{Index: q.ID, Option: k}
		}
		s, ok := v.(string)
		if !ok {
			return &ErrBadValue{Index: q.ID, Param: k}
		}
		s = strings.ToLower(strings.TrimSpace(s))
		switch k {
		case OptOperator:
			if !slices.Contains(operators, s) {
				return &ErrInvalidOperator{Index: q.ID, Operator: s}
			}
			q.Operator = s
		case OptRange:
			if !validRange(s) {
				return &ErrInvalidRange{Index: q.ID, Range: s}
			}
			q.Range = s
		case OptUsage:
			q.Usage = s
			// "range:min:max" is an alternate spelling of range="min:max".
			if rest, ok := strings.CutPrefix(s, "range:"); ok {
				if !validRange(rest) {
					return &ErrInvalidRange{Index: q.ID, Range: s}
				}
				q.Range = rest
			} else if s != "" {
				return &ErrInvalidRange{Index: q.ID, Range: s}
			}
		}
	}
	return nil
}

func validRange(s string) bool {
	switch s {
	case "min", "max", "min:max", "max:min":
		return true
	default:
		return false
	}
}

// IsRange reports whether the query is a range query and which bounds apply.
func (q *IndexQuery) IsRange() (isRange, useMin, useMax bool) {
	if q.Range == "" {
		return false, false, false
	}
	return true, strings.Contains(q.Range, "min"), strings.Contains(q.Range, "max")
}

// Bounds returns the smallest and largest key, used as range bounds.
func (q *IndexQuery) Bounds() (lo, hi value.Value, ok bool) {
	if len(q.Keys) == 0 {
		return value.Value{}, value.Value{}, false
	}
	lo, hi = q.Keys[0], q.Keys[0]
	for _, k := range q.Keys[1:] {
		if value.Less(k, lo) {
			lo = k
		}
		if value.Less(hi, k) {
			hi = k
		}
	}
	return lo, hi, true
}

// IsPureNot reports whether the query has no positive keys but at least one
// "not" value. Such a query matches every indexed value except the excluded
// ones. An empty "not" without keys matches nothing.
func (q *IndexQuery) IsPureNot() bool {
	return len(q.Keys) == 0 && len(q.Not) > 0
}

// Clone returns a deep copy of q.
func (q *IndexQuery) Clone() *IndexQuery {
	c := *q
	c.Keys = slices.Clone(q.Keys)
	c.Not = slices.Clone(q.Not)
	return &c
}
