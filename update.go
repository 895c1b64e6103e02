package catalogo

import (
	"context"

	"github.com/hupe1980/catalogo/storage"
)

// Update runs fn in a read-write transaction of store and commits it.
// Catalog calls made with the context passed to fn write through the
// transaction. A conflict is returned as ErrTransientConflict.
func Update(ctx context.Context, store storage.Store, fn func(ctx context.Context) error) error {
	return translateError(storage.Update(ctx, store, fn))
}

// RetryOnConflict is Update retried up to attempts times on conflicts.
//
// The in-memory indexes are not rolled back when a transaction fails, so
// fn must be idempotent: cataloguing the same objects again converges to
// the same state.
func RetryOnConflict(ctx context.Context, store storage.Store, attempts int, fn func(ctx context.Context) error) error {
	return translateError(storage.RetryOnConflict(ctx, store, attempts, fn))
}
