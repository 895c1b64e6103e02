package blobstore

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

// DefaultBlockSize is the cache granularity used when none is given.
const DefaultBlockSize = 64 << 10

type blockKey struct {
	name  string
	block int64
}

// CacheStats reports block cache activity.
type CacheStats struct {
	Hits   uint64
	Misses uint64
}

// CachingStore wraps a Store and caches fixed-size blocks of the blobs it
// reads. Put and Delete invalidate the blocks of the affected blob.
type CachingStore struct {
	inner     Store
	cache     *lru.Cache[blockKey, []byte]
	blockSize int64
	hits      atomic.Uint64
	misses    atomic.Uint64
}

// NewCachingStore creates a CachingStore holding at most maxBlocks blocks.
// blockSize defaults to DefaultBlockSize if <= 0.
func NewCachingStore(inner Store, maxBlocks int, blockSize int64) (*CachingStore, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	c, err := lru.New[blockKey, []byte](maxBlocks)
	if err != nil {
		return nil, err
	}
	return &CachingStore{
		inner:     inner,
		cache:     c,
		blockSize: blockSize,
	}, nil
}

// Stats returns the cache hit and miss counters.
func (s *CachingStore) Stats() CacheStats {
	return CacheStats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cachingBlob{
		inner: b,
		store: s,
		name:  name,
	}, nil
}

func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &invalidatingWriter{WritableBlob: w, store: s, name: name}, nil
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

func (s *CachingStore) invalidate(name string) {
	for _, k := range s.cache.Keys() {
		if k.name == name {
			s.cache.Remove(k)
		}
	}
}

type invalidatingWriter struct {
	WritableBlob
	store *CachingStore
	name  string
}

func (w *invalidatingWriter) Close() error {
	err := w.WritableBlob.Close()
	w.store.invalidate(w.name)
	return err
}

type cachingBlob struct {
	inner Blob
	store *CachingStore
	name  string
}

func (b *cachingBlob) Close() error {
	return b.inner.Close()
}

func (b *cachingBlob) Size() int64 {
	return b.inner.Size()
}

func (b *cachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size := b.Size()
	if off < 0 || off >= size {
		return 0, io.EOF
	}

	bs := b.store.blockSize
	end := min(off+int64(len(p)), size)
	startBlock := off / bs
	endBlock := (end - 1) / bs

	if err := b.fill(ctx, startBlock, endBlock); err != nil {
		return 0, err
	}

	total := 0
	for blk := startBlock; blk <= endBlock; blk++ {
		data, err := b.block(ctx, blk)
		if err != nil {
			return total, err
		}
		blkStart := blk * bs
		from := max(blkStart, off)
		to := min(blkStart+int64(len(data)), end)
		if to <= from {
			break
		}
		total += copy(p[from-off:], data[from-blkStart:to-blkStart])
	}
	if total < len(p) {
		return total, io.EOF
	}
	return total, nil
}

// fill loads contiguous runs of missing blocks with one backend read each.
func (b *cachingBlob) fill(ctx context.Context, startBlock, endBlock int64) error {
	type run struct{ start, count int64 }
	var runs []run
	for blk := startBlock; blk <= endBlock; blk++ {
		if b.store.cache.Contains(blockKey{b.name, blk}) {
			b.store.hits.Add(1)
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].start+runs[n-1].count == blk {
			runs[n-1].count++
			continue
		}
		runs = append(runs, run{start: blk, count: 1})
	}
	if len(runs) == 0 {
		return nil
	}

	bs := b.store.blockSize
	size := b.Size()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, r := range runs {
		g.Go(func() error {
			byteStart := r.start * bs
			byteSize := min(r.count*bs, size-byteStart)
			if byteSize <= 0 {
				return nil
			}
			buf := make([]byte, byteSize)
			n, err := b.inner.ReadAt(gctx, buf, byteStart)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			buf = buf[:n]
			b.store.misses.Add(uint64(r.count))
			for i := range r.count {
				lo := i * bs
				if lo >= int64(len(buf)) {
					break
				}
				hi := min(lo+bs, int64(len(buf)))
				b.store.cache.Add(blockKey{b.name, r.start + i}, buf[lo:hi:hi])
			}
			return nil
		})
	}
	return g.Wait()
}

func (b *cachingBlob) block(ctx context.Context, blk int64) ([]byte, error) {
	key := blockKey{b.name, blk}
	if data, ok := b.store.cache.Get(key); ok {
		return data, nil
	}
	// Evicted between fill and read.
	bs := b.store.blockSize
	buf := make([]byte, bs)
	n, err := b.inner.ReadAt(ctx, buf, blk*bs)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	b.store.misses.Add(1)
	data := buf[:n:n]
	if n > 0 {
		b.store.cache.Add(key, data)
	}
	return data, nil
}

func (b *cachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	return newSectionReader(ctx, b.ReadAt, off, length, b.Size()), nil
}
