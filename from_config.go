package catalogo

import (
	"fmt"

	"github.com/hupe1980/catalogo/cache"
	"github.com/hupe1980/catalogo/codec"
	"github.com/hupe1980/catalogo/config"
	"github.com/hupe1980/catalogo/internal/resource"
	"github.com/hupe1980/catalogo/plan"
)

// FromConfig creates a catalog with the schema and settings of cfg.
// optFns are applied after the settings of cfg and take precedence.
func FromConfig(cfg *config.Config, optFns ...Option) (*Catalog, error) {
	var base []Option
	if cfg.Catalog.ID != "" {
		base = append(base, WithID(cfg.Catalog.ID))
	}
	if cfg.Catalog.LongQueryTime > 0 {
		base = append(base, WithLongQueryTime(cfg.Catalog.LongQueryTime))
	}
	if cfg.Catalog.CompositeRewrite != nil {
		base = append(base, WithCompositeRewrite(*cfg.Catalog.CompositeRewrite))
	}
	if cfg.Catalog.QueryCacheSize > 0 {
		qc, err := cache.NewQueryCache(cfg.Catalog.QueryCacheSize)
		if err != nil {
			return nil, fmt.Errorf("query cache: %w", err)
		}
		base = append(base, WithQueryCache(qc))
	}
	if cfg.Catalog.Compression != "" {
		comp, err := codec.ParseCompression(cfg.Catalog.Compression)
		if err != nil {
			return nil, err
		}
		base = append(base, WithCompression(comp))
	}
	if cfg.Catalog.PlanFile != "" {
		ps := plan.NewStore()
		if err := ps.LoadFromPath(cfg.Catalog.PlanFile); err != nil {
			return nil, fmt.Errorf("plan file: %w", err)
		}
		base = append(base, WithPlanStore(ps))
	}
	if cfg.Resources != (resource.Config{}) {
		base = append(base, WithResourceController(resource.NewController(cfg.Resources)))
	}
	if cfg.Logging.Format == "json" {
		base = append(base, WithLogger(NewJSONLogger(cfg.Logging.SlogLevel())))
	} else if cfg.Logging.Level != "" || cfg.Logging.Format != "" {
		base = append(base, WithLogger(NewTextLogger(cfg.Logging.SlogLevel())))
	}

	c := New(append(base, optFns...)...)

	idxs, err := cfg.BuildIndexes(c.logger.Logger)
	if err != nil {
		return nil, translateError(err)
	}
	for _, idx := range idxs {
		if err := c.AddIndex(idx); err != nil {
			return nil, err
		}
	}
	for _, col := range cfg.Columns {
		if err := c.AddColumn(col.Name, col.Default); err != nil {
			return nil, err
		}
	}
	return c, nil
}
