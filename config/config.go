// Package config loads YAML catalog definitions.
//
// A catalog file names the indexes and metadata columns of one catalog
// together with the collaborators the command line tool wires up:
//
//	catalog:
//	  id: site
//	  long_query_time: 100ms
//	  query_cache_size: 4096
//	indexes:
//	  - id: portal_type
//	    type: FieldIndex
//	  - id: subject
//	    type: KeywordIndex
//	  - id: created
//	    type: DateIndex
//	    precision: 5
//	  - id: effective_range
//	    type: DateRangeIndex
//	    since_field: effective
//	    until_field: expires
//	  - id: type_state
//	    type: CompositeIndex
//	    components:
//	      - {id: portal_type, type: FieldIndex}
//	      - {id: review_state, type: FieldIndex}
//	columns:
//	  - name: title
//	blobstore:
//	  type: local
//	  local:
//	    root: ./snapshots
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/index/composite"
	"github.com/hupe1980/catalogo/index/date"
	"github.com/hupe1980/catalogo/index/daterange"
	"github.com/hupe1980/catalogo/index/topic"
	"github.com/hupe1980/catalogo/internal/resource"
	"gopkg.in/yaml.v3"
)

// validate is the shared validator instance.
var validate = validator.New()

// Config is a catalog file.
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog"`
	Indexes   []IndexConfig   `yaml:"indexes" validate:"dive"`
	Columns   []ColumnConfig  `yaml:"columns" validate:"dive"`
	Storage   StorageConfig   `yaml:"storage"`
	Blobstore BlobstoreConfig `yaml:"blobstore"`
	Resources resource.Config `yaml:"resources"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CatalogConfig holds catalog-wide settings.
type CatalogConfig struct {
	ID string `yaml:"id"`

	// LongQueryTime is the slow query threshold.
	LongQueryTime time.Duration `yaml:"long_query_time" validate:"gte=0"`

	// CompositeRewrite toggles composite query rewriting. Defaults to true.
	CompositeRewrite *bool `yaml:"composite_rewrite"`

	// QueryCacheSize enables the cross-request cache when positive.
	QueryCacheSize int `yaml:"query_cache_size" validate:"gte=0"`

	// PlanFile seeds the query plan store.
	PlanFile string `yaml:"plan_file"`

	// Compression is the snapshot compression: none, lz4 or zstd.
	Compression string `yaml:"compression" validate:"omitempty,oneof=none lz4 zstd"`
}

// IndexConfig defines one index.
type IndexConfig struct {
	ID         string   `yaml:"id" validate:"required"`
	Type       string   `yaml:"type" validate:"required,oneof=FieldIndex KeywordIndex BooleanIndex DateIndex DateRangeIndex CompositeIndex TopicIndex"`
	Attributes []string `yaml:"attributes,omitempty"`

	// DateIndex and DateRangeIndex.
	Precision        int   `yaml:"precision,omitempty" validate:"gte=0"`
	NaiveTimeAsLocal *bool `yaml:"index_naive_time_as_local,omitempty"`

	// DateRangeIndex.
	SinceField string `yaml:"since_field,omitempty" validate:"required_if=Type DateRangeIndex"`
	UntilField string `yaml:"until_field,omitempty" validate:"required_if=Type DateRangeIndex"`

	// CompositeIndex.
	Components []composite.Component `yaml:"components,omitempty" validate:"required_if=Type CompositeIndex,dive"`

	// TopicIndex.
	FilteredSets []FilteredSetConfig `yaml:"filtered_sets,omitempty" validate:"dive"`
}

// Definition converts c to an index definition.
func (c IndexConfig) Definition() index.Definition {
	def := index.Definition{ID: c.ID, MetaType: c.Type, Attributes: c.Attributes}
	extra := map[string]any{}
	switch c.Type {
	case date.MetaType, daterange.MetaType:
		if c.Precision > 0 {
			extra["precision"] = c.Precision
		}
		if c.NaiveTimeAsLocal != nil {
			extra["index_naive_time_as_local"] = *c.NaiveTimeAsLocal
		}
		if c.Type == daterange.MetaType {
			extra["since_field"] = c.SinceField
			extra["until_field"] = c.UntilField
		}
	case composite.MetaType:
		extra["components"] = c.Components
	case topic.MetaType:
		if len(c.FilteredSets) > 0 {
			extra["filtered_sets"] = c.FilteredSets
		}
	}
	if len(extra) > 0 {
		def.Extra = extra
	}
	return def
}

// ColumnConfig defines a metadata column.
type ColumnConfig struct {
	Name    string `yaml:"name" validate:"required"`
	Default any    `yaml:"default"`
}

// LoggingConfig selects the log output.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// SlogLevel returns the configured level, defaulting to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Parse decodes and validates a catalog file.
func Parse(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads the catalog file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Blobstore.check(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Indexes))
	for _, ic := range c.Indexes {
		if _, dup := seen[ic.ID]; dup {
			return fmt.Errorf("config: duplicate index %q", ic.ID)
		}
		seen[ic.ID] = struct{}{}
	}
	return nil
}

// Definitions returns the index definitions in file order.
func (c *Config) Definitions() []index.Definition {
	defs := make([]index.Definition, len(c.Indexes))
	for i, ic := range c.Indexes {
		defs[i] = ic.Definition()
	}
	return defs
}

// BuildIndexes constructs every configured index.
func (c *Config) BuildIndexes(logger *slog.Logger) ([]index.Index, error) {
	out := make([]index.Index, 0, len(c.Indexes))
	for _, def := range c.Definitions() {
		ix, err := NewIndex(def, logger)
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, nil
}
