// Package badger implements storage.Store on top of BadgerDB.
//
// Badger runs optimistic, snapshot-isolated transactions: a transaction
// reading a key that another transaction committed after its read timestamp
// fails at commit with badger.ErrConflict, which this adapter reports as
// storage.ErrConflict.
package badger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/hupe1980/catalogo/storage"
)

// Config holds configuration for a Badger-backed store.
type Config struct {
	// Path is the directory for Badger files. Ignored when InMemory is set.
	Path string

	// InMemory disables disk persistence. Useful for tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives Badger's internal log output. Nil disables it.
	Logger *slog.Logger

	// GCInterval is how often value log GC runs. Zero disables GC.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum discardable ratio before a value log
	// file is rewritten.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is a storage.Store backed by a Badger database.
type Store struct {
	db *badger.DB
	gc *GCRunner
}

var _ storage.Store = (*Store)(nil)

// Open opens a Badger database with cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger: path is required for persistent databases")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("badger: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}

	s := &Store{db: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gc = NewGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger)
		s.gc.Start()
	}
	return s, nil
}

// OpenInMemory opens an in-memory store.
func OpenInMemory() (*Store, error) {
	return Open(InMemoryConfig())
}

// DB returns the underlying database.
func (s *Store) DB() *badger.DB { return s.db }

// Begin implements storage.Store.
func (s *Store) Begin(update bool) storage.Txn {
	return &txn{store: s, txn: s.db.NewTransaction(update), update: update}
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	if s.gc != nil {
		s.gc.Stop()
	}
	return s.db.Close()
}

// lastCommitTs returns a marker at or after every completed commit.
func (s *Store) lastCommitTs() uint64 {
	t := s.db.NewTransaction(false)
	defer t.Discard()
	return t.ReadTs()
}

type txn struct {
	store  *Store
	txn    *badger.Txn
	update bool
	hooks  []func(uint64)
	done   bool
}

func (t *txn) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		return nil, translate(err)
	}
	return item.ValueCopy(nil)
}

func (t *txn) Set(key, val []byte) error {
	return translate(t.txn.Set(key, val))
}

func (t *txn) Delete(key []byte) error {
	return translate(t.txn.Delete(key))
}

func (t *txn) Iterate(prefix []byte, fn func(key, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		if err := item.Value(func(val []byte) error {
			return fn(item.Key(), val)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (t *txn) ReadTs() uint64 { return t.txn.ReadTs() }

func (t *txn) OnCommit(fn func(uint64)) {
	t.hooks = append(t.hooks, fn)
}

func (t *txn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.txn.Commit(); err != nil {
		return translate(err)
	}
	if len(t.hooks) > 0 {
		ts := t.store.lastCommitTs()
		for _, fn := range t.hooks {
			fn(ts)
		}
	}
	return nil
}

func (t *txn) Discard() {
	t.done = true
	t.txn.Discard()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrConflict):
		return fmt.Errorf("%w: %w", storage.ErrConflict, err)
	case errors.Is(err, badger.ErrKeyNotFound):
		return storage.ErrNotFound
	case errors.Is(err, badger.ErrReadOnlyTxn):
		return fmt.Errorf("%w: %w", storage.ErrReadOnly, err)
	default:
		return err
	}
}
