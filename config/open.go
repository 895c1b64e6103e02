package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/catalogo/blobstore"
	"github.com/hupe1980/catalogo/blobstore/minio"
	"github.com/hupe1980/catalogo/blobstore/s3"
	badgerstore "github.com/hupe1980/catalogo/storage/badger"
)

// StorageConfig configures the transactional store. An empty Type disables
// storage write-through.
type StorageConfig struct {
	Type   string        `yaml:"type" validate:"omitempty,oneof=badger"`
	Badger *BadgerConfig `yaml:"badger"`
}

// BadgerConfig mirrors badger.Config.
type BadgerConfig struct {
	Path           string        `yaml:"path" validate:"required_without=InMemory"`
	InMemory       bool          `yaml:"in_memory"`
	SyncWrites     bool          `yaml:"sync_writes"`
	GCInterval     time.Duration `yaml:"gc_interval" validate:"gte=0"`
	GCDiscardRatio float64       `yaml:"gc_discard_ratio" validate:"gte=0,lte=1"`
}

// Open opens the configured store. It returns nil, nil when storage is
// disabled.
func (c StorageConfig) Open(logger *slog.Logger) (*badgerstore.Store, error) {
	if c.Type == "" {
		return nil, nil
	}
	bc := badgerstore.DefaultConfig()
	if c.Badger != nil {
		bc.Path = c.Badger.Path
		bc.InMemory = c.Badger.InMemory
		bc.SyncWrites = c.Badger.SyncWrites
		if c.Badger.GCInterval > 0 {
			bc.GCInterval = c.Badger.GCInterval
		}
		if c.Badger.GCDiscardRatio > 0 {
			bc.GCDiscardRatio = c.Badger.GCDiscardRatio
		}
	}
	bc.Logger = logger
	return badgerstore.Open(bc)
}

// BlobstoreConfig configures where snapshots and plans are stored.
type BlobstoreConfig struct {
	Type  string        `yaml:"type" validate:"omitempty,oneof=memory local minio s3"`
	Local *LocalConfig  `yaml:"local"`
	Minio *minio.Config `yaml:"minio"`
	S3    *S3Config     `yaml:"s3"`

	// CacheBlocks enables an LRU block cache of that many blocks.
	CacheBlocks int `yaml:"cache_blocks" validate:"gte=0"`
}

// LocalConfig configures a directory-backed blob store.
type LocalConfig struct {
	Root string `yaml:"root" validate:"required"`
}

// S3Config configures an AWS S3 blob store.
type S3Config struct {
	Bucket   string `yaml:"bucket" validate:"required"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// Open connects the configured blob store. An empty Type selects an
// in-memory store.
func (c BlobstoreConfig) Open(ctx context.Context) (blobstore.Store, error) {
	var (
		st  blobstore.Store
		err error
	)
	switch c.Type {
	case "", "memory":
		st = blobstore.NewMemoryStore()
	case "local":
		st = blobstore.NewLocalStore(c.Local.Root)
	case "minio":
		st, err = minio.Dial(ctx, *c.Minio)
	case "s3":
		var opts []s3.Option
		if c.S3.Prefix != "" {
			opts = append(opts, s3.WithPrefix(c.S3.Prefix))
		}
		if c.S3.Region != "" {
			opts = append(opts, s3.WithRegion(c.S3.Region))
		}
		if c.S3.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(c.S3.Endpoint))
		}
		st, err = s3.New(ctx, c.S3.Bucket, opts...)
	default:
		return nil, fmt.Errorf("config: unknown blobstore type %q", c.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %s blobstore: %w", c.Type, err)
	}
	if c.CacheBlocks > 0 {
		cs, err := blobstore.NewCachingStore(st, c.CacheBlocks, blobstore.DefaultBlockSize)
		if err != nil {
			return nil, err
		}
		return cs, nil
	}
	return st, nil
}

func (c BlobstoreConfig) check() error {
	missing := func(section string) error {
		return fmt.Errorf("config: blobstore type %q requires a %s section", c.Type, section)
	}
	switch {
	case c.Type == "local" && c.Local == nil:
		return missing("local")
	case c.Type == "minio" && c.Minio == nil:
		return missing("minio")
	case c.Type == "s3" && c.S3 == nil:
		return missing("s3")
	}
	return nil
}
