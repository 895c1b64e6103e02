package cache

import (
	"errors"
	"math"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hupe1980/catalogo/idset"
)

const numShards = 16

// ErrStale is returned by QueryCache.Get when the cached entry was committed
// after the reader's snapshot started.
var ErrStale = errors.New("cache: entry not visible to reader snapshot")

// NoSnapshot is the read marker of callers without a storage transaction.
// Every entry is visible to it.
const NoSnapshot uint64 = math.MaxUint64

type queryEntry struct {
	ids      *idset.Set
	commitTs uint64
}

// QueryCache is a sharded LRU cache of search results.
//
// Keys are built by the catalog from its id, the queried index names with
// their change counters, and the canonical query values; a mutated index
// therefore never matches old keys.
type QueryCache struct {
	shards [numShards]*lru.Cache[string, queryEntry]

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
	stale  atomic.Int64
}

// NewQueryCache creates a cache holding about capacity entries.
func NewQueryCache(capacity int) (*QueryCache, error) {
	per := capacity / numShards
	if per < 1 {
		per = 1
	}
	c := &QueryCache{}
	for i := range numShards {
		l, err := lru.New[string, queryEntry](per)
		if err != nil {
			return nil, err
		}
		c.shards[i] = l
	}
	return c, nil
}

func (c *QueryCache) shard(key string) *lru.Cache[string, queryEntry] {
	return c.shards[xxhash.Sum64String(key)%numShards]
}

// Get returns the result cached under key if it is visible at readTs.
//
// ok is false on a miss. err is ErrStale when the entry exists but was
// committed after readTs.
func (c *QueryCache) Get(key string, readTs uint64) (ids *idset.Set, ok bool, err error) {
	e, found := c.shard(key).Get(key)
	if !found {
		c.misses.Add(1)
		return nil, false, nil
	}
	if e.commitTs > readTs {
		c.stale.Add(1)
		return nil, false, ErrStale
	}
	c.hits.Add(1)
	return e.ids, true, nil
}

// Set stores ids under key, committed at commitTs. Use 0 for results that
// do not depend on a storage snapshot.
func (c *QueryCache) Set(key string, ids *idset.Set, commitTs uint64) {
	c.shard(key).Add(key, queryEntry{ids: ids, commitTs: commitTs})
	c.sets.Add(1)
}

// Purge drops every entry.
func (c *QueryCache) Purge() {
	for _, s := range c.shards {
		s.Purge()
	}
}

// Len returns the number of entries.
func (c *QueryCache) Len() int {
	n := 0
	for _, s := range c.shards {
		n += s.Len()
	}
	return n
}

// Stats returns the counters.
func (c *QueryCache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
		Stale:  c.stale.Load(),
		Len:    c.Len(),
	}
}
