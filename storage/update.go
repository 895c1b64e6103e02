package storage

import (
	"context"
	"errors"
)

// Update runs fn inside a read-write transaction and commits it.
//
// The transaction is available to fn through ctx (see TxnFromContext).
func Update(ctx context.Context, store Store, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := store.Begin(true)
	defer txn.Discard()

	if err := fn(WithTxn(ctx, txn)); err != nil {
		return err
	}
	return txn.Commit()
}

// View runs fn inside a read-only transaction.
func View(ctx context.Context, store Store, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := store.Begin(false)
	defer txn.Discard()

	return fn(WithTxn(ctx, txn))
}

// RetryOnConflict runs Update up to attempts times while it fails with
// ErrConflict.
func RetryOnConflict(ctx context.Context, store Store, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for range attempts {
		err = Update(ctx, store, fn)
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
	}
	return err
}
