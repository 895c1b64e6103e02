package topic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/catalogo/index"
	"github.com/oarkflow/filters"
)

// Predicate decides whether an object belongs to a filtered set.
type Predicate interface {
	Match(obj index.Object) (bool, error)
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(obj index.Object) (bool, error)

// Match implements Predicate.
func (f PredicateFunc) Match(obj index.Object) (bool, error) { return f(obj) }

// RulePredicate matches objects against a filters.Rule. The rule sees the
// object as a map of the configured fields; index.Record objects expose all
// their attributes when no fields are configured.
type RulePredicate struct {
	Rule   *filters.Rule
	Fields []string
}

// NewExprPredicate parses a SQL-style condition, e.g.
// "SELECT * FROM docs WHERE portal_type = 'Document'".
func NewExprPredicate(expr string, fields ...string) (*RulePredicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("empty expression")
	}
	rule, err := filters.ParseSQL(expr)
	if err != nil {
		return nil, fmt.Errorf("parse expression: %w", err)
	}
	if rule == nil {
		return nil, fmt.Errorf("parse expression: no condition in %q", expr)
	}
	return &RulePredicate{Rule: rule, Fields: fields}, nil
}

// NewFilterPredicate combines conditions with match ("AND" or "OR").
func NewFilterPredicate(match string, conditions ...filters.Condition) *RulePredicate {
	if match == "" {
		match = "AND"
	}
	rule := filters.NewRule()
	rule.AddCondition(filters.Boolean(strings.ToUpper(match)), false, conditions...)
	return &RulePredicate{Rule: rule}
}

// Match implements Predicate.
func (p *RulePredicate) Match(obj index.Object) (bool, error) {
	rec, err := p.record(obj)
	if err != nil {
		return false, err
	}
	return p.Rule.Match(rec), nil
}

func (p *RulePredicate) record(obj index.Object) (map[string]any, error) {
	fields := p.Fields
	if r, ok := obj.(index.Record); ok && len(fields) == 0 {
		fields = make([]string, 0, len(r))
		for k := range r {
			fields = append(fields, k)
		}
	}
	rec := make(map[string]any, len(fields))
	for _, f := range fields {
		v, ok, err := index.Extract(obj, f, nil)
		if err != nil {
			return nil, err
		}
		if ok {
			rec[f] = v
		}
	}
	return rec, nil
}
