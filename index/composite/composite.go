// Package composite implements CompositeIndex, an index over combinations
// of values from several component attributes.
//
// For every document the index stores one synthetic key per combination of
// at least two components. A conjunctive query over several component
// indexes can then be answered by a single lookup (see MakeQuery).
package composite

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/index/boolean"
	"github.com/hupe1980/catalogo/index/field"
	"github.com/hupe1980/catalogo/index/keyword"
	"github.com/hupe1980/catalogo/index/unindex"
	"github.com/hupe1980/catalogo/query"
	"github.com/hupe1980/catalogo/value"
)

// MetaType is the CompositeIndex type name.
const MetaType = "CompositeIndex"

// minComponents is the smallest combination that gets a key.
const minComponents = 2

// Component describes one attribute group of a composite index.
type Component struct {
	ID         string   `json:"id" yaml:"id" validate:"required"`
	MetaType   string   `json:"meta_type" yaml:"type" validate:"required,oneof=FieldIndex KeywordIndex BooleanIndex"`
	Attributes []string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// SourceNames returns the attributes read for c, defaulting to its id.
func (c Component) SourceNames() []string {
	var out []string
	for _, a := range c.Attributes {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return []string{c.ID}
	}
	return out
}

func (c Component) String() string {
	return fmt.Sprintf("<id: %s; metatype: %s; attributes: %v>", c.ID, c.MetaType, c.SourceNames())
}

// Index stores composite keys in a multi-valued forward/reverse core.
type Index struct {
	*unindex.Index

	components []Component
	skip       bool
}

var (
	_ index.Index         = (*Index)(nil)
	_ index.EntryProvider = (*Index)(nil)
	_ index.Stateful      = (*Index)(nil)
	_ index.Definer       = (*Index)(nil)
)

// New creates a CompositeIndex named id over components.
func New(id string, components []Component, logger *slog.Logger) (*Index, error) {
	ix := &Index{Index: unindex.New(unindex.Config{
		ID:          id,
		MetaType:    MetaType,
		Multivalued: true,
		Options:     []string{query.OptQuery, query.OptOperator, query.OptNot},
		Operators:   []string{query.OpOr, query.OpAnd},
		Logger:      logger,
	})}
	for _, c := range components {
		if err := ix.addComponent(c); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

// Components returns the components in insertion order.
func (ix *Index) Components() []Component {
	out := make([]Component, len(ix.components))
	for i, c := range ix.components {
		out[i] = Component{ID: c.ID, MetaType: c.MetaType, Attributes: slices.Clone(c.Attributes)}
	}
	return out
}

// ComponentNames returns the component ids in insertion order.
func (ix *Index) ComponentNames() []string {
	out := make([]string, len(ix.components))
	for i, c := range ix.components {
		out[i] = c.ID
	}
	return out
}

// SourceNames implements index.Index. It lists the attributes of all
// components.
func (ix *Index) SourceNames() []string {
	var out []string
	for _, c := range ix.components {
		for _, a := range c.SourceNames() {
			if !slices.Contains(out, a) {
				out = append(out, a)
			}
		}
	}
	return out
}

// AddComponent appends c and clears the index.
func (ix *Index) AddComponent(c Component) error {
	if err := ix.addComponent(c); err != nil {
		return err
	}
	ix.Clear()
	return nil
}

func (ix *Index) addComponent(c Component) error {
	if strings.TrimSpace(c.ID) == "" {
		return index.Configf(ix.ID(), "component id must not be empty")
	}
	switch c.MetaType {
	case field.MetaType, keyword.MetaType, boolean.MetaType:
	case "":
		return index.Configf(ix.ID(), "component %q: no component type set", c.ID)
	default:
		return index.Configf(ix.ID(), "component %q: unsupported type %q", c.ID, c.MetaType)
	}
	if slices.ContainsFunc(ix.components, func(o Component) bool { return o.ID == c.ID }) {
		return index.Configf(ix.ID(), "a component with this name already exists: %q", c.ID)
	}
	ix.components = append(ix.components, c)
	return nil
}

// DelComponent removes the component named id and clears the index.
func (ix *Index) DelComponent(id string) error {
	i := slices.IndexFunc(ix.components, func(c Component) bool { return c.ID == id })
	if i < 0 {
		return index.Configf(ix.ID(), "no such component: %q", id)
	}
	ix.components = slices.Delete(ix.components, i, i+1)
	ix.Clear()
	return nil
}

// SetSkipMakeQuery disables query rewriting.
func (ix *Index) SetSkipMakeQuery(skip bool) { ix.skip = skip }

// IndexObject implements index.Index.
func (ix *Index) IndexObject(docid uint32, obj index.Object) (bool, error) {
	perComponent := make([][]value.Value, len(ix.components))
	for i, c := range ix.components {
		vs, err := ix.componentValues(c, obj)
		if err != nil {
			return false, err
		}
		perComponent[i] = vs
	}
	return ix.Insert(docid, ix.keys(perComponent)...), nil
}

// componentValues extracts the values of c from obj. An empty result means
// the component does not take part in the document's keys.
func (ix *Index) componentValues(c Component, obj index.Object) ([]value.Value, error) {
	var out []value.Value
	for _, attr := range c.SourceNames() {
		raw, ok, err := index.Extract(obj, attr, ix.Logger())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		switch c.MetaType {
		case boolean.MetaType:
			return []value.Value{value.Bool(boolean.Truthy(raw))}, nil
		case field.MetaType:
			if raw == nil {
				continue
			}
			v, err := value.FromAny(raw)
			if err != nil {
				ix.Logger().Warn("cannot index component value",
					slog.String("index", ix.ID()),
					slog.String("component", c.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			return []value.Value{v}, nil
		default:
			if raw == nil {
				continue
			}
			vs, err := value.List(raw)
			if err != nil {
				ix.Logger().Warn("cannot index component keywords",
					slog.String("index", ix.ID()),
					slog.String("component", c.ID),
					slog.String("error", err.Error()),
				)
				return nil, nil
			}
			out = append(out, vs...)
		}
	}
	return value.SortUnique(out), nil
}

// keys builds the composite keys from per-component values, which are
// aligned with ix.components. Every subset of at least two non-empty
// components contributes the Cartesian product of its values.
func (ix *Index) keys(perComponent [][]value.Value) []value.Value {
	var groups [][]value.Value
	for i, vs := range perComponent {
		if len(vs) == 0 {
			continue
		}
		pairs := make([]value.Value, len(vs))
		for j, v := range vs {
			pairs[j] = pair(ix.components[i].ID, v)
		}
		groups = append(groups, pairs)
	}

	var out []value.Value
	n := len(groups)
	for mask := 1; mask < 1<<n; mask++ {
		var subset [][]value.Value
		for i := range n {
			if mask&(1<<i) != 0 {
				subset = append(subset, groups[i])
			}
		}
		if len(subset) < minComponents {
			continue
		}
		out = appendProduct(out, subset)
	}
	return out
}

func pair(component string, v value.Value) value.Value {
	return value.Tuple(value.String(component), v)
}

// appendProduct appends one tuple per element of the Cartesian product of
// groups, preserving group order inside each tuple.
func appendProduct(out []value.Value, groups [][]value.Value) []value.Value {
	idx := make([]int, len(groups))
	for {
		t := make([]value.Value, len(groups))
		for i, g := range groups {
			t[i] = g[idx[i]]
		}
		out = append(out, value.Tuple(t...))

		i := len(groups) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(groups[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out
		}
	}
}

// Definition implements index.Definer.
func (ix *Index) Definition() index.Definition {
	return index.Definition{
		ID:       ix.ID(),
		MetaType: MetaType,
		Extra:    map[string]any{"components": ix.Components()},
	}
}
