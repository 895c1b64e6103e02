package catalogo

import (
	"context"
	"errors"
	"maps"
	"runtime"
	"slices"
	"time"

	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/index/composite"
	"github.com/hupe1980/catalogo/storage"
	"golang.org/x/sync/errgroup"
)

// Loader resolves a catalogued uid to its current object.
type Loader func(ctx context.Context, uid string) (index.Object, error)

// Refresh rebuilds the named indexes, or all indexes when names is empty,
// from the objects returned by load.
//
// Objects are loaded at the rate allowed by the resource controller and
// indexes are rebuilt in parallel, one worker per index. Composite indexes
// whose components are all present are derived from the rebuilt component
// indexes afterwards. Objects that fail to load are skipped and logged;
// storage conflicts abort the refresh.
func (c *Catalog) Refresh(ctx context.Context, load Loader, names ...string) (err error) {
	start := time.Now()
	objects := 0
	defer func() {
		c.metrics.RecordRefresh(objects, time.Since(start), err)
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(names) == 0 {
		names = c.indexNames()
	}
	for _, name := range names {
		if _, ok := c.indexes[name]; !ok {
			return configErrorf(name, "the index does not exist")
		}
	}

	rc := c.opts.resources
	rids := slices.Sorted(maps.Keys(c.paths))
	docs := make(map[uint32]index.Object, len(rids))
	for _, rid := range rids {
		if err := rc.WaitObjects(ctx, 1); err != nil {
			return err
		}
		obj, err := load(ctx, c.paths[rid])
		switch {
		case storage.IsConflict(err):
			return translateError(err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			c.logger.WarnContext(ctx, "skipping object that failed to load", "uid", c.paths[rid], "error", err)
			continue
		}
		docs[rid] = obj
	}
	objects = len(docs)
	order := slices.Sorted(maps.Keys(docs))

	var derived []*composite.Index
	g, gctx := errgroup.WithContext(ctx)
	workers := int(rc.Config().MaxWorkers)
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for _, name := range names {
		idx := c.indexes[name]
		if comp, ok := idx.(*composite.Index); ok && c.derivable(comp) {
			derived = append(derived, comp)
			continue
		}
		g.Go(func() error {
			if err := rc.AcquireWorker(gctx); err != nil {
				return err
			}
			defer rc.ReleaseWorker()

			t := time.Now()
			idx.Clear()
			for _, rid := range order {
				if err := gctx.Err(); err != nil {
					return err
				}
				if _, err := idx.IndexObject(rid, docs[rid]); err != nil {
					c.logger.LogIndex(gctx, name, 0, time.Since(t), err)
					return translateError(err)
				}
			}
			c.logger.LogIndex(gctx, name, len(order), time.Since(t), nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, comp := range derived {
		t := time.Now()
		comp.Clear()
		err := comp.FastBuild(slices.Values(order), indexView{c}.Index)
		c.logger.LogIndex(ctx, comp.ID(), len(order), time.Since(t), err)
		if err != nil {
			return translateError(err)
		}
	}
	c.opts.planStore.ClearValueIndexes(c.id)
	return nil
}

// derivable reports whether comp can be built from its component indexes:
// every component is catalogued under its own name with the same type and
// attributes and provides entries.
func (c *Catalog) derivable(comp *composite.Index) bool {
	for _, cc := range comp.Components() {
		idx, ok := c.indexes[cc.ID]
		if !ok || idx.MetaType() != cc.MetaType || !slices.Equal(idx.SourceNames(), cc.SourceNames()) {
			return false
		}
		if _, ok := idx.(index.EntryProvider); !ok {
			return false
		}
	}
	return true
}
