package catalogo

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/catalogo/cache"
	"github.com/hupe1980/catalogo/codec"
	"github.com/hupe1980/catalogo/internal/resource"
	"github.com/hupe1980/catalogo/plan"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type options struct {
	id               string
	logger           *Logger
	metricsCollector MetricsCollector
	planStore        *plan.Store
	planReports      *plan.Reports
	queryCache       *cache.QueryCache
	longQueryTime    time.Duration
	resources        *resource.Controller
	compositeRewrite bool
	codec            codec.Codec
	compression      codec.Compression
	tracerProvider   trace.TracerProvider
	clock            func() time.Time
}

// Option configures a Catalog.
type Option func(*options)

// WithID sets the catalog identity. Plans, reports and cache entries are
// scoped by it, so two catalogs sharing a plan store must use different ids.
// Defaults to a random UUID.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := catalogo.NewJSONLogger(slog.LevelInfo)
//	cat := catalogo.New(catalogo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &catalogo.BasicMetricsCollector{}
//	cat := catalogo.New(catalogo.WithMetricsCollector(metrics))
//	// ... use cat ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.SearchCount, stats.SearchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithPlanStore shares a query plan store between catalogs. By default each
// catalog gets its own store seeded from CATALOGO_QUERY_PLAN.
func WithPlanStore(s *plan.Store) Option {
	return func(o *options) {
		o.planStore = s
	}
}

// WithPlanReports shares the slow query reports between catalogs.
func WithPlanReports(r *plan.Reports) Option {
	return func(o *options) {
		o.planReports = r
	}
}

// WithQueryCache enables the cross-request result cache.
func WithQueryCache(c *cache.QueryCache) Option {
	return func(o *options) {
		o.queryCache = c
	}
}

// WithLongQueryTime sets the duration above which searches are reported
// as slow. It only affects logging and reports, never evaluation.
func WithLongQueryTime(d time.Duration) Option {
	return func(o *options) {
		o.longQueryTime = d
	}
}

// WithResourceController throttles Refresh.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithCompositeRewrite toggles the rewrite of multi-index queries into
// composite index lookups. Enabled by default.
func WithCompositeRewrite(enabled bool) Option {
	return func(o *options) {
		o.compositeRewrite = enabled
	}
}

// WithCodec configures the codec used for snapshots and metadata rows.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures snapshot compression. Defaults to zstd.
func WithCompression(c codec.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider. Defaults to the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithClock replaces time.Now for plan measurements.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		longQueryTime:    plan.DefaultThreshold,
		compositeRewrite: true,
		codec:            codec.Default,
		compression:      codec.CompressionZSTD,
		clock:            time.Now,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if o.planStore == nil {
		o.planStore = plan.NewStore()
		o.planStore.LoadDefault(o.logger.Logger)
	}
	if o.planReports == nil {
		o.planReports = plan.NewReports()
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	return o
}
