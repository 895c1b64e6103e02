package config

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/hupe1980/catalogo/codec"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/index/boolean"
	"github.com/hupe1980/catalogo/index/composite"
	"github.com/hupe1980/catalogo/index/date"
	"github.com/hupe1980/catalogo/index/daterange"
	"github.com/hupe1980/catalogo/index/field"
	"github.com/hupe1980/catalogo/index/keyword"
	"github.com/hupe1980/catalogo/index/topic"
)

// FilteredSetConfig is one filtered set of a TopicIndex.
type FilteredSetConfig struct {
	ID   string `json:"id" yaml:"id" validate:"required"`
	Expr string `json:"expr" yaml:"expr" validate:"required"`
}

// NewIndex constructs an empty index from its definition.
//
// def.Extra may hold typed values (as returned by index.Definer) or the
// generic maps and slices produced by JSON and YAML decoding.
func NewIndex(def index.Definition, logger *slog.Logger) (index.Index, error) {
	if def.ID == "" {
		return nil, index.Configf("", "index id must not be empty")
	}
	switch def.MetaType {
	case field.MetaType:
		return field.New(def.ID, def.Attributes, logger), nil
	case keyword.MetaType:
		return keyword.New(def.ID, def.Attributes, logger), nil
	case boolean.MetaType:
		return boolean.New(def.ID, def.Attributes, logger), nil
	case date.MetaType:
		opts, err := dateOptions(def)
		if err != nil {
			return nil, err
		}
		return date.New(def.ID, def.Attributes, append(opts, date.WithLogger(logger))...), nil
	case daterange.MetaType:
		opts, err := dateOptions(def)
		if err != nil {
			return nil, err
		}
		since, _ := def.Extra["since_field"].(string)
		until, _ := def.Extra["until_field"].(string)
		return daterange.New(def.ID, since, until, logger, opts...)
	case composite.MetaType:
		var components []composite.Component
		if err := convert(def.Extra["components"], &components); err != nil {
			return nil, index.Configf(def.ID, "invalid components: %v", err)
		}
		return composite.New(def.ID, components, logger)
	case topic.MetaType:
		var sets []FilteredSetConfig
		if err := convert(def.Extra["filtered_sets"], &sets); err != nil {
			return nil, index.Configf(def.ID, "invalid filtered sets: %v", err)
		}
		ix := topic.New(def.ID, logger)
		for _, fs := range sets {
			if err := ix.AddExpression(fs.ID, fs.Expr); err != nil {
				return nil, err
			}
		}
		return ix, nil
	default:
		return nil, index.Configf(def.ID, "unknown index type %q", def.MetaType)
	}
}

func dateOptions(def index.Definition) ([]date.Option, error) {
	var opts []date.Option
	if raw, ok := def.Extra["precision"]; ok && raw != nil {
		p, err := toInt(raw)
		if err != nil {
			return nil, index.Configf(def.ID, "precision: %v", err)
		}
		opts = append(opts, date.WithPrecision(p))
	}
	if raw, ok := def.Extra["index_naive_time_as_local"]; ok && raw != nil {
		local, ok := raw.(bool)
		if !ok {
			return nil, index.Configf(def.ID, "index_naive_time_as_local: expected bool, got %T", raw)
		}
		opts = append(opts, date.WithNaiveTimeAsLocal(local))
	}
	return opts, nil
}

func toInt(raw any) (int, error) {
	switch x := raw.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case uint64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("expected integer, got %v", x)
		}
		return int(x), nil
	}
	return 0, fmt.Errorf("expected integer, got %T", raw)
}

// convert maps loosely typed definition data onto out.
func convert(raw any, out any) error {
	if raw == nil {
		return nil
	}
	data, err := codec.Default.Marshal(raw)
	if err != nil {
		return err
	}
	return codec.Default.Unmarshal(data, out)
}
