package catalogo

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hupe1980/catalogo/cache"
	"github.com/hupe1980/catalogo/config"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/query"
	"github.com/hupe1980/catalogo/storage"
	badgerstore "github.com/hupe1980/catalogo/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *badgerstore.Store {
	t.Helper()
	store, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpdate_LoadMappings(t *testing.T) {
	ctx := t.Context()
	store := openTestStore(t)
	c := newTestCatalog(t)

	err := Update(ctx, store, func(ctx context.Context) error {
		for i := range 3 {
			obj := index.Record{"portal_type": "Document", "title": fmt.Sprintf("doc %d", i)}
			if _, err := c.CatalogObject(ctx, obj, fmt.Sprintf("/%d", i)); err != nil {
				return err
			}
		}
		return c.UncatalogObject(ctx, "/1")
	})
	require.NoError(t, err)

	fresh := newTestCatalog(t)
	require.NoError(t, storage.View(ctx, store, fresh.LoadMappings))

	assert.Equal(t, 2, fresh.Len())
	assert.False(t, fresh.HasUID("/1"))
	for _, uid := range []string{"/0", "/2"} {
		want, _ := c.RID(uid)
		got, ok := fresh.RID(uid)
		require.True(t, ok, uid)
		assert.Equal(t, want, got)
	}
	rid, _ := fresh.RID("/2")
	md, ok := fresh.Metadata(rid)
	require.True(t, ok)
	assert.Equal(t, "doc 2", md["title"])

	assert.ErrorIs(t, fresh.LoadMappings(ctx), ErrConfiguration, "no transaction")
}

func TestUpdate_Conflict(t *testing.T) {
	ctx := t.Context()
	store := openTestStore(t)
	a := newTestCatalog(t)
	b := newTestCatalog(t)

	txn1 := store.Begin(true)
	defer txn1.Discard()
	txn2 := store.Begin(true)
	defer txn2.Discard()

	_, err := a.CatalogObject(storage.WithTxn(ctx, txn1), index.Record{"title": "from a"}, "/same")
	require.NoError(t, err)
	_, err = b.CatalogObject(storage.WithTxn(ctx, txn2), index.Record{"title": "from b"}, "/same")
	require.NoError(t, err)

	require.NoError(t, txn1.Commit())
	err = txn2.Commit()
	require.ErrorIs(t, err, storage.ErrConflict)
	assert.ErrorIs(t, translateError(err), ErrTransientConflict)
}

func TestRetryOnConflict(t *testing.T) {
	ctx := t.Context()
	store := openTestStore(t)
	a := newTestCatalog(t)
	b := newTestCatalog(t)

	attempts := 0
	err := RetryOnConflict(ctx, store, 3, func(txnCtx context.Context) error {
		attempts++
		if _, err := a.CatalogObject(txnCtx, index.Record{"portal_type": "Document", "title": "a"}, "/x"); err != nil {
			return err
		}
		if attempts == 1 {
			// A competing writer commits first.
			return Update(ctx, store, func(ctx context.Context) error {
				_, err := b.CatalogObject(ctx, index.Record{"title": "b"}, "/x")
				return err
			})
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	fresh := newTestCatalog(t)
	require.NoError(t, storage.View(ctx, store, fresh.LoadMappings))
	want, _ := a.RID("/x")
	got, ok := fresh.RID("/x")
	require.True(t, ok)
	assert.Equal(t, want, got)
	md, _ := fresh.Metadata(got)
	assert.Equal(t, "a", md["title"])
}

func TestRetryOnConflict_GivesUp(t *testing.T) {
	ctx := t.Context()
	store := openTestStore(t)
	a := newTestCatalog(t)
	b := newTestCatalog(t)

	attempts := 0
	err := RetryOnConflict(ctx, store, 2, func(txnCtx context.Context) error {
		attempts++
		if _, err := a.CatalogObject(txnCtx, index.Record{"title": "a"}, "/y"); err != nil {
			return err
		}
		return Update(ctx, store, func(ctx context.Context) error {
			_, err := b.CatalogObject(ctx, index.Record{"title": fmt.Sprint(attempts)}, "/y")
			return err
		})
	})
	assert.ErrorIs(t, err, ErrTransientConflict)
	assert.Equal(t, 2, attempts)
}

func TestSearch_QueryCacheInTransaction(t *testing.T) {
	ctx := t.Context()
	store := openTestStore(t)
	qc, err := cache.NewQueryCache(16)
	require.NoError(t, err)
	mc := &BasicMetricsCollector{}
	c := newTestCatalog(t, WithQueryCache(qc), WithMetricsCollector(mc))

	search := func(ctx context.Context) error {
		res, err := c.Search(ctx, query.Request{"portal_type": "Document"})
		if err != nil {
			return err
		}
		assert.Equal(t, 2, res.ActualResultCount())
		return nil
	}

	require.NoError(t, Update(ctx, store, func(ctx context.Context) error {
		for i := range 2 {
			if _, err := c.CatalogObject(ctx, index.Record{"portal_type": "Document"}, fmt.Sprintf("/%d", i)); err != nil {
				return err
			}
		}
		return search(ctx)
	}))
	assert.Equal(t, int64(0), mc.GetStats().CacheHits)

	// The entry was stored when the transaction committed and is visible to
	// later snapshots.
	require.NoError(t, storage.View(ctx, store, search))
	assert.Equal(t, int64(1), mc.GetStats().CacheHits)
}

const testCatalogFile = `
catalog:
  id: site
  query_cache_size: 16
  compression: lz4
indexes:
  - id: portal_type
    type: FieldIndex
  - id: review_state
    type: FieldIndex
  - id: type_state
    type: CompositeIndex
    components:
      - {id: portal_type, type: FieldIndex}
      - {id: review_state, type: FieldIndex}
columns:
  - name: title
  - name: size
    default: 0
logging:
  level: error
`

func TestFromConfig(t *testing.T) {
	ctx := t.Context()
	cfg, err := config.Parse(strings.NewReader(testCatalogFile))
	require.NoError(t, err)

	c, err := FromConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "site", c.ID())
	assert.Equal(t, []string{"portal_type", "review_state", "type_state"}, c.IndexNames())
	assert.Equal(t, []string{"title", "size"}, c.Columns())
	assert.NotNil(t, c.opts.queryCache)

	for i, state := range []string{"published", "private", "published"} {
		obj := index.Record{"portal_type": "Document", "review_state": state, "title": fmt.Sprint(i)}
		_, err := c.CatalogObject(ctx, obj, fmt.Sprintf("/%d", i))
		require.NoError(t, err)
	}
	res, err := c.Search(ctx, query.Request{"portal_type": "Document", "review_state": "published"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ActualResultCount())

	c, err = FromConfig(cfg, WithID("override"))
	require.NoError(t, err)
	assert.Equal(t, "override", c.ID())
}
