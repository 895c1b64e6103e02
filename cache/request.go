package cache

import (
	"sync"
	"sync/atomic"

	"github.com/hupe1980/catalogo/idset"
)

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits   int64
	Misses int64
	Sets   int64
	Stale  int64
	Len    int
}

// RequestCache is a map-backed index.ResultCache scoped to one request.
type RequestCache struct {
	mu sync.RWMutex
	m  map[string]*idset.Set

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

// NewRequestCache creates an empty request cache.
func NewRequestCache() *RequestCache {
	return &RequestCache{m: make(map[string]*idset.Set)}
}

// Get returns the cached set for key. Returned sets are shared and must not
// be mutated.
func (c *RequestCache) Get(key string) (*idset.Set, bool) {
	c.mu.RLock()
	s, ok := c.m[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return s, ok
}

// Set stores s under key.
func (c *RequestCache) Set(key string, s *idset.Set) {
	c.mu.Lock()
	c.m[key] = s
	c.mu.Unlock()
	c.sets.Add(1)
}

// Clear drops all entries and resets the counters.
func (c *RequestCache) Clear() {
	c.mu.Lock()
	clear(c.m)
	c.mu.Unlock()
	c.hits.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
}

// Len returns the number of entries.
func (c *RequestCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Stats returns the counters.
func (c *RequestCache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
		Len:    c.Len(),
	}
}
