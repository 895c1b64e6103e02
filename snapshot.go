package catalogo

import (
	"bytes"
	"context"
	"maps"
	"slices"

	"github.com/hupe1980/catalogo/blobstore"
	"github.com/hupe1980/catalogo/codec"
	"github.com/hupe1980/catalogo/config"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/internal/resource"
)

const snapshotVersion = 1

type snapshot struct {
	Version int              `json:"version"`
	ID      string           `json:"id"`
	NextID  uint32           `json:"next_id"`
	Columns []columnSnapshot `json:"columns"`
	Indexes []indexSnapshot  `json:"indexes"`
	Objects []objectSnapshot `json:"objects"`
}

type columnSnapshot struct {
	Name    string `json:"name"`
	Default any    `json:"default,omitempty"`
}

type indexSnapshot struct {
	Definition index.Definition `json:"definition"`
	State      *index.State     `json:"state"`
}

type objectSnapshot struct {
	RID  uint32 `json:"rid"`
	UID  string `json:"uid"`
	Data []any  `json:"data"`
}

// Save writes the catalog to blob name: the schema, the uid mapping, the
// metadata table and the reverse maps of all indexes. Every index must
// implement index.Definer and index.Stateful.
func (c *Catalog) Save(ctx context.Context, bs blobstore.Store, name string) (err error) {
	defer func() { c.logger.LogSnapshot(ctx, "save", name, err) }()

	c.mu.RLock()
	snap, err := c.snapshot()
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	data, err := codec.Encode(c.opts.codec, c.opts.compression, snap)
	if err != nil {
		return translateError(err)
	}
	r := resource.NewRateLimitedReader(ctx, bytes.NewReader(data), c.opts.resources)
	if _, err := blobstore.WriteTo(ctx, bs, name, r); err != nil {
		return translateError(err)
	}
	return nil
}

func (c *Catalog) snapshot() (*snapshot, error) {
	snap := &snapshot{
		Version: snapshotVersion,
		ID:      c.id,
		NextID:  c.nextID,
	}
	for i, name := range c.columns {
		snap.Columns = append(snap.Columns, columnSnapshot{Name: name, Default: c.defaults[i]})
	}
	for _, name := range c.indexNames() {
		idx := c.indexes[name]
		d, ok := idx.(index.Definer)
		if !ok {
			return nil, configErrorf(name, "the index cannot describe itself")
		}
		s, ok := idx.(index.Stateful)
		if !ok {
			return nil, configErrorf(name, "the index does not support snapshots")
		}
		st, err := s.ExportState()
		if err != nil {
			return nil, translateError(err)
		}
		snap.Indexes = append(snap.Indexes, indexSnapshot{Definition: d.Definition(), State: st})
	}
	for _, rid := range slices.Sorted(maps.Keys(c.paths)) {
		snap.Objects = append(snap.Objects, objectSnapshot{RID: rid, UID: c.paths[rid], Data: c.data[rid]})
	}
	return snap, nil
}

// Restore replaces the catalog contents with the snapshot in blob name.
// The catalog id is kept. Metadata values come back in their JSON form,
// e.g. numbers as float64.
func (c *Catalog) Restore(ctx context.Context, bs blobstore.Store, name string) (err error) {
	defer func() { c.logger.LogSnapshot(ctx, "restore", name, err) }()

	data, err := blobstore.ReadAll(ctx, bs, name)
	if err != nil {
		return translateError(err)
	}
	if err := c.opts.resources.AcquireIO(ctx, len(data)); err != nil {
		return err
	}

	var snap snapshot
	if _, err := codec.Decode(data, &snap); err != nil {
		return translateError(err)
	}
	if snap.Version != snapshotVersion {
		return ErrCorruptSnapshot
	}

	indexes := make(map[string]index.Index, len(snap.Indexes))
	for _, is := range snap.Indexes {
		idx, err := config.NewIndex(is.Definition, c.logger.Logger)
		if err != nil {
			return translateError(err)
		}
		if is.State != nil {
			if err := idx.(index.Stateful).ImportState(is.State); err != nil {
				return translateError(err)
			}
		}
		indexes[idx.ID()] = idx
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.reset()
	c.indexes = indexes
	c.columns = c.columns[:0]
	c.defaults = c.defaults[:0]
	for _, col := range snap.Columns {
		c.columns = append(c.columns, col.Name)
		c.defaults = append(c.defaults, col.Default)
	}
	for _, o := range snap.Objects {
		rec := make([]any, len(c.columns))
		copy(rec, o.Data)
		c.data[o.RID] = rec
		c.paths[o.RID] = o.UID
		c.uids[o.UID] = o.RID
	}
	c.nextID = snap.NextID
	c.opts.planStore.ClearValueIndexes(c.id)
	if c.opts.queryCache != nil {
		// Restored counters may repeat values seen before the restore.
		c.opts.queryCache.Purge()
	}
	return nil
}
