// Package storage defines the transactional key-value contract the catalog
// writes through.
//
// The catalog keeps its indexes in memory. When a caller runs catalog
// mutations inside a storage transaction (see WithTxn), uid/rid mappings and
// metadata rows are written through that transaction, so concurrent writers
// are detected by the store and surface as ErrConflict.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrConflict signals a write-write collision detected at commit or
	// during a read-modify-write. The caller retries the whole transaction.
	ErrConflict = errors.New("storage: transaction conflict")

	// ErrNotFound is returned by Txn.Get for absent keys.
	ErrNotFound = errors.New("storage: key not found")

	// ErrReadOnly is returned when writing through a read-only transaction.
	ErrReadOnly = errors.New("storage: read-only transaction")
)

// Store opens transactions.
type Store interface {
	// Begin starts a transaction. update selects a read-write transaction.
	Begin(update bool) Txn

	// Close releases the store.
	Close() error
}

// Txn is a snapshot-isolated transaction.
type Txn interface {
	// Get returns a copy of the value stored under key.
	Get(key []byte) ([]byte, error)

	// Set stores val under key.
	Set(key, val []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key []byte) error

	// Iterate calls fn for every key with the given prefix in ascending key
	// order. key and val are only valid during the call.
	Iterate(prefix []byte, fn func(key, val []byte) error) error

	// ReadTs is the snapshot marker: the transaction sees every commit with
	// a timestamp <= ReadTs.
	ReadTs() uint64

	// OnCommit registers fn to run after a successful commit. fn receives a
	// marker at or after the commit timestamp.
	OnCommit(fn func(commitTs uint64))

	// Commit commits the transaction and runs the commit hooks.
	Commit() error

	// Discard aborts the transaction. Safe to call after Commit.
	Discard()
}

type txnKey struct{}

// WithTxn returns a context carrying txn.
func WithTxn(ctx context.Context, txn Txn) context.Context {
	return context.WithValue(ctx, txnKey{}, txn)
}

// TxnFromContext returns the transaction carried by ctx, if any.
func TxnFromContext(ctx context.Context) (Txn, bool) {
	if ctx == nil {
		return nil, false
	}
	txn, ok := ctx.Value(txnKey{}).(Txn)
	return txn, ok && txn != nil
}

// IsConflict reports whether err is (or wraps) ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
