package catalogo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prometheus package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordCatalog is called after each CatalogObject call.
	RecordCatalog(duration time.Duration, err error)

	// RecordUncatalog is called after each UncatalogObject call.
	RecordUncatalog(duration time.Duration, err error)

	// RecordSearch is called after each search. results is the actual result
	// count before pagination.
	RecordSearch(results int, duration time.Duration, err error)

	// RecordIndex is called for every index evaluated by a search.
	RecordIndex(name string, duration time.Duration)

	// RecordSlowQuery is called for searches slower than the long query
	// threshold.
	RecordSlowQuery(duration time.Duration)

	// RecordCacheHit and RecordCacheMiss report query cache lookups.
	RecordCacheHit()
	RecordCacheMiss()

	// RecordRefresh is called after each Refresh with the number of objects
	// reindexed.
	RecordRefresh(objects int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCatalog(time.Duration, error)          {}
func (NoopMetricsCollector) RecordUncatalog(time.Duration, error)        {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordIndex(string, time.Duration)           {}
func (NoopMetricsCollector) RecordSlowQuery(time.Duration)               {}
func (NoopMetricsCollector) RecordCacheHit()                             {}
func (NoopMetricsCollector) RecordCacheMiss()                            {}
func (NoopMetricsCollector) RecordRefresh(int, time.Duration, error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	CatalogCount     atomic.Int64
	CatalogErrors    atomic.Int64
	UncatalogCount   atomic.Int64
	UncatalogErrors  atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchResults    atomic.Int64
	SearchTotalNanos atomic.Int64
	IndexEvaluations atomic.Int64
	SlowQueries      atomic.Int64
	CacheHits        atomic.Int64
	CacheMisses      atomic.Int64
	RefreshCount     atomic.Int64
	RefreshObjects   atomic.Int64
	RefreshErrors    atomic.Int64
}

// RecordCatalog implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCatalog(_ time.Duration, err error) {
	b.CatalogCount.Add(1)
	if err != nil {
		b.CatalogErrors.Add(1)
	}
}

// RecordUncatalog implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUncatalog(_ time.Duration, err error) {
	b.UncatalogCount.Add(1)
	if err != nil {
		b.UncatalogErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(results int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
		return
	}
	b.SearchResults.Add(int64(results))
}

// RecordIndex implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIndex(string, time.Duration) {
	b.IndexEvaluations.Add(1)
}

// RecordSlowQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSlowQuery(time.Duration) {
	b.SlowQueries.Add(1)
}

// RecordCacheHit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheHit() { b.CacheHits.Add(1) }

// RecordCacheMiss implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheMiss() { b.CacheMisses.Add(1) }

// RecordRefresh implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRefresh(objects int, _ time.Duration, err error) {
	b.RefreshCount.Add(1)
	b.RefreshObjects.Add(int64(objects))
	if err != nil {
		b.RefreshErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CatalogCount:     b.CatalogCount.Load(),
		CatalogErrors:    b.CatalogErrors.Load(),
		UncatalogCount:   b.UncatalogCount.Load(),
		UncatalogErrors:  b.UncatalogErrors.Load(),
		SearchCount:      b.SearchCount.Load(),
		SearchErrors:     b.SearchErrors.Load(),
		SearchResults:    b.SearchResults.Load(),
		SearchAvgNanos:   b.getAvgSearchNanos(),
		IndexEvaluations: b.IndexEvaluations.Load(),
		SlowQueries:      b.SlowQueries.Load(),
		CacheHits:        b.CacheHits.Load(),
		CacheMisses:      b.CacheMisses.Load(),
		RefreshCount:     b.RefreshCount.Load(),
		RefreshObjects:   b.RefreshObjects.Load(),
		RefreshErrors:    b.RefreshErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgSearchNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CatalogCount     int64
	CatalogErrors    int64
	UncatalogCount   int64
	UncatalogErrors  int64
	SearchCount      int64
	SearchErrors     int64
	SearchResults    int64
	SearchAvgNanos   int64
	IndexEvaluations int64
	SlowQueries      int64
	CacheHits        int64
	CacheMisses      int64
	RefreshCount     int64
	RefreshObjects   int64
	RefreshErrors    int64
}
