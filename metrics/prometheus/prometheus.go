// Package prometheus exports catalog metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc, err := catprom.New(reg, catprom.WithNamespace("myapp"))
//	cat := catalogo.New(catalogo.WithMetricsCollector(mc))
package prometheus

import (
	"time"

	"github.com/hupe1980/catalogo"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Collector implements catalogo.MetricsCollector with Prometheus vectors.
type Collector struct {
	opLatency   *prometheus.HistogramVec
	ops         *prometheus.CounterVec
	results     prometheus.Histogram
	indexTime   *prometheus.HistogramVec
	slowQueries prometheus.Counter
	cache       *prometheus.CounterVec
	refreshed   prometheus.Counter
}

var _ catalogo.MetricsCollector = (*Collector)(nil)

type options struct {
	namespace string
	subsystem string
	buckets   []float64
}

// Option configures a Collector.
type Option func(*options)

// WithNamespace sets the metric namespace. Defaults to "catalogo".
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithSubsystem sets the metric subsystem.
func WithSubsystem(s string) Option {
	return func(o *options) { o.subsystem = s }
}

// WithBuckets sets the latency histogram buckets in seconds.
func WithBuckets(b []float64) Option {
	return func(o *options) { o.buckets = b }
}

// New creates a Collector and registers it with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer, optFns ...Option) (*Collector, error) {
	o := options{
		namespace: "catalogo",
		buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name:      "operation_latency_seconds",
			Help:      "Latency of catalog operations",
			Buckets:   o.buckets,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name:      "operations_total",
			Help:      "Total catalog operations",
		}, []string{"op", "status"}),
		results: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name:      "search_results",
			Help:      "Actual result count of searches",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		indexTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name:      "index_apply_seconds",
			Help:      "Time spent evaluating one index during a search",
			Buckets:   o.buckets,
		}, []string{"index"}),
		slowQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name:      "slow_queries_total",
			Help:      "Searches slower than the long query threshold",
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name:      "query_cache_lookups_total",
			Help:      "Query cache lookups",
		}, []string{"result"}),
		refreshed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: o.subsystem,
			Name:      "refreshed_objects_total",
			Help:      "Objects reindexed by Refresh",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.opLatency, c.ops, c.results, c.indexTime, c.slowQueries, c.cache, c.refreshed,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return statusError
	}
	return statusSuccess
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

// RecordCatalog implements catalogo.MetricsCollector.
func (c *Collector) RecordCatalog(d time.Duration, err error) { c.observe("catalog", d, err) }

// RecordUncatalog implements catalogo.MetricsCollector.
func (c *Collector) RecordUncatalog(d time.Duration, err error) { c.observe("uncatalog", d, err) }

// RecordSearch implements catalogo.MetricsCollector.
func (c *Collector) RecordSearch(results int, d time.Duration, err error) {
	c.observe("search", d, err)
	if err == nil {
		c.results.Observe(float64(results))
	}
}

// RecordIndex implements catalogo.MetricsCollector.
func (c *Collector) RecordIndex(name string, d time.Duration) {
	c.indexTime.WithLabelValues(name).Observe(d.Seconds())
}

// RecordSlowQuery implements catalogo.MetricsCollector.
func (c *Collector) RecordSlowQuery(time.Duration) { c.slowQueries.Inc() }

// RecordCacheHit implements catalogo.MetricsCollector.
func (c *Collector) RecordCacheHit() { c.cache.WithLabelValues("hit").Inc() }

// RecordCacheMiss implements catalogo.MetricsCollector.
func (c *Collector) RecordCacheMiss() { c.cache.WithLabelValues("miss").Inc() }

// RecordRefresh implements catalogo.MetricsCollector.
func (c *Collector) RecordRefresh(objects int, d time.Duration, err error) {
	c.observe("refresh", d, err)
	c.refreshed.Add(float64(objects))
}
