package index

import (
	"log/slog"

	"github.com/hupe1980/catalogo/idset"
)

// ResultCache memoizes intermediate index results for one request or
// transaction. Keys embed the index change counter, so entries of a mutated
// index are never hit again.
type ResultCache interface {
	Get(key string) (*idset.Set, bool)
	Set(key string, s *idset.Set)
}

// QueryContext carries per-search collaborators into Apply.
type QueryContext struct {
	// CatalogID scopes cache keys to one catalog.
	CatalogID string

	// Cache is the request cache. Nil disables caching.
	Cache ResultCache

	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
}

// CacheGet looks up key in the request cache. Safe on a nil context.
func (qc *QueryContext) CacheGet(key string) (*idset.Set, bool) {
	if qc == nil || qc.Cache == nil {
		return nil, false
	}
	return qc.Cache.Get(qc.CatalogID + "|" + key)
}

// CacheSet stores s under key. Safe on a nil context.
func (qc *QueryContext) CacheSet(key string, s *idset.Set) {
	if qc == nil || qc.Cache == nil {
		return
	}
	qc.Cache.Set(qc.CatalogID+"|"+key, s)
}

// Log returns the context logger or a discarding one.
func (qc *QueryContext) Log() *slog.Logger {
	if qc == nil || qc.Logger == nil {
		return discard
	}
	return qc.Logger
}

var discard = slog.New(slog.DiscardHandler)
