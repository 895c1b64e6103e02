package catalogo

import (
	"context"
	"encoding/binary"
	"errors"
	"maps"
	"math/rand/v2"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/catalogo/idset"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/storage"
	"github.com/hupe1980/catalogo/value"
	"go.opentelemetry.io/otel/trace"
)

// ridBlock is the number of sequential rids handed out before the
// allocator jumps to a random base.
const ridBlock = 4000

// Catalog owns a set of named indexes and a metadata table.
//
// Writers (schema changes, CatalogObject, UncatalogObject, Refresh,
// Restore) are serialized; searches run concurrently with each other.
type Catalog struct {
	mu sync.RWMutex

	id      string
	opts    options
	logger  *Logger
	metrics MetricsCollector
	tracer  trace.Tracer

	indexes map[string]index.Index

	columns  []string
	defaults []any

	data  map[uint32][]any
	uids  map[string]uint32
	paths map[uint32]string

	nextID uint32

	// counter changes whenever objects are added or removed.
	counter uint64
}

// New creates an empty catalog.
func New(optFns ...Option) *Catalog {
	o := applyOptions(optFns)
	c := &Catalog{
		id:      o.id,
		opts:    o,
		logger:  o.logger.WithCatalog(o.id),
		metrics: o.metricsCollector,
		tracer:  o.tracerProvider.Tracer("github.com/hupe1980/catalogo"),
		indexes: make(map[string]index.Index),
	}
	c.reset()
	return c
}

func (c *Catalog) reset() {
	c.data = make(map[uint32][]any)
	c.uids = make(map[string]uint32)
	c.paths = make(map[uint32]string)
	c.nextID = 0
	c.counter++
}

// ID returns the catalog identity.
func (c *Catalog) ID() string { return c.id }

// Logger returns the catalog logger.
func (c *Catalog) Logger() *Logger { return c.logger }

// Len returns the number of catalogued objects.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.paths)
}

// Clear removes every object from the catalog and empties all indexes.
// The schema is kept.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	for _, idx := range c.indexes {
		idx.Clear()
	}
	c.opts.planStore.ClearValueIndexes(c.id)
}

func checkName(kind, name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return configErrorf(name, "name of %s is empty", kind)
	case name != strings.TrimSpace(name):
		return configErrorf(name, "name of %s has surrounding whitespace", kind)
	case strings.HasPrefix(name, "_"):
		return configErrorf(name, "cannot use %s names beginning with \"_\"", kind)
	}
	return nil
}

// AddIndex registers idx under idx.ID().
func (c *Catalog) AddIndex(idx index.Index) error {
	if idx == nil {
		return configErrorf("", "index is nil")
	}
	name := idx.ID()
	if err := checkName("index", name); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.indexes[name]; ok {
		return configErrorf(name, "the index already exists")
	}
	c.indexes[name] = idx
	c.opts.planStore.ClearValueIndexes(c.id)
	return nil
}

// DelIndex removes the named index.
func (c *Catalog) DelIndex(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.indexes[name]; !ok {
		return configErrorf(name, "the index does not exist")
	}
	delete(c.indexes, name)
	c.opts.planStore.ClearValueIndexes(c.id)
	return nil
}

// Index returns the named index.
func (c *Catalog) Index(name string) (index.Index, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.indexes[name]
	return idx, ok
}

// IndexNames returns the index names in ascending order.
func (c *Catalog) IndexNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexNames()
}

func (c *Catalog) indexNames() []string {
	return slices.Sorted(maps.Keys(c.indexes))
}

// AddColumn adds a metadata column. Existing records get def, or no value
// when def is nil or "".
func (c *Catalog) AddColumn(name string, def any) error {
	if trimmed := strings.TrimSpace(name); trimmed != name && trimmed != "" {
		c.logger.Warn("stripped space from new column", "column", name, "stripped", trimmed)
		name = trimmed
	}
	if err := checkName("column", name); err != nil {
		return err
	}
	if s, ok := def.(string); ok && s == "" {
		def = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.Contains(c.columns, name) {
		return configErrorf(name, "the column already exists")
	}
	c.columns = append(c.columns, name)
	c.defaults = append(c.defaults, def)
	for rid, rec := range c.data {
		c.data[rid] = append(slices.Clip(rec), def)
	}
	return nil
}

// DelColumn removes a metadata column. Unknown columns are logged and
// ignored.
func (c *Catalog) DelColumn(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.Index(c.columns, name)
	if i < 0 {
		c.logger.Error("attempted to delete nonexistent column", "column", name)
		return nil
	}
	c.columns = slices.Delete(c.columns, i, i+1)
	c.defaults = slices.Delete(c.defaults, i, i+1)
	for rid, rec := range c.data {
		c.data[rid] = slices.Delete(slices.Clone(rec), i, i+1)
	}
	return nil
}

// Columns returns the metadata column names in schema order.
func (c *Catalog) Columns() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.columns)
}

type catalogOptions struct {
	indexes        []string
	updateMetadata bool
}

// CatalogOption configures one CatalogObject call.
type CatalogOption func(*catalogOptions)

// WithIndexes restricts indexing to the named indexes.
func WithIndexes(names ...string) CatalogOption {
	return func(o *catalogOptions) { o.indexes = names }
}

// WithMetadataUpdate toggles the metadata refresh of already catalogued
// objects. New objects always get a metadata record.
func WithMetadataUpdate(update bool) CatalogOption {
	return func(o *catalogOptions) { o.updateMetadata = update }
}

// CatalogObject indexes obj under uid and returns the number of indexes
// that changed.
//
// When ctx carries a storage transaction the uid mapping and the metadata
// record are written through it. Conflicts are returned as
// ErrTransientConflict; the in-memory indexes are not rolled back, so the
// caller retries the whole transaction.
func (c *Catalog) CatalogObject(ctx context.Context, obj index.Object, uid string, optFns ...CatalogOption) (changed int, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordCatalog(time.Since(start), err)
	}()

	o := catalogOptions{updateMetadata: true}
	for _, fn := range optFns {
		fn(&o)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	use := o.indexes
	if len(use) == 0 {
		use = c.indexNames()
	}
	for _, name := range use {
		if _, ok := c.indexes[name]; !ok {
			return 0, configErrorf(name, "the index does not exist")
		}
	}

	rid, known := c.uids[uid]
	if !known || o.updateMetadata {
		rec, err := c.recordify(obj)
		if err != nil {
			return 0, translateError(err)
		}
		if !known {
			rid = c.allocate()
			c.uids[uid] = rid
			c.paths[rid] = uid
			c.counter++
		}
		if old, ok := c.data[rid]; !ok || !reflect.DeepEqual(old, rec) {
			c.data[rid] = rec
		}
		// Retried transactions must write the row again even when the
		// in-memory record is already current.
		if err := c.writeThrough(ctx, uid, rid, c.data[rid]); err != nil {
			return 0, translateError(err)
		}
	}

	for _, name := range use {
		ok, err := c.indexes[name].IndexObject(rid, obj)
		if err != nil {
			err = translateError(err)
			c.logger.LogCatalog(ctx, uid, rid, changed, err)
			return changed, err
		}
		if ok {
			changed++
		}
	}
	c.logger.LogCatalog(ctx, uid, rid, changed, nil)
	return changed, nil
}

// UncatalogObject removes uid from all indexes and the metadata table.
// Unknown uids are logged, not returned as errors.
func (c *Catalog) UncatalogObject(ctx context.Context, uid string) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordUncatalog(time.Since(start), err)
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	rid, ok := c.uids[uid]
	c.logger.LogUncatalog(ctx, uid, ok)
	if !ok {
		return nil
	}
	for _, idx := range c.indexes {
		idx.UnindexObject(rid)
	}
	delete(c.data, rid)
	delete(c.paths, rid)
	delete(c.uids, uid)
	c.counter++

	if txn, ok := storage.TxnFromContext(ctx); ok {
		if err := txn.Delete(c.uidKey(uid)); err != nil {
			return translateError(err)
		}
		if err := txn.Delete(c.ridKey(rid)); err != nil {
			return translateError(err)
		}
	}
	return nil
}

// HasUID reports whether uid is catalogued.
func (c *Catalog) HasUID(uid string) bool {
	_, ok := c.RID(uid)
	return ok
}

// RID returns the document id of uid.
func (c *Catalog) RID(uid string) (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rid, ok := c.uids[uid]
	return rid, ok
}

// UID returns the uid catalogued under rid.
func (c *Catalog) UID(rid uint32) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	uid, ok := c.paths[rid]
	return uid, ok
}

// Metadata returns the metadata record of rid keyed by column name.
func (c *Catalog) Metadata(rid uint32) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metadata(rid)
}

func (c *Catalog) metadata(rid uint32) (map[string]any, bool) {
	rec, ok := c.data[rid]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(c.columns))
	for i, name := range c.columns {
		if i < len(rec) {
			out[name] = rec[i]
		}
	}
	return out, true
}

// IndexData returns what every index stores for rid.
func (c *Catalog) IndexData(rid uint32) map[string][]value.Value {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]value.Value, len(c.indexes))
	for name, idx := range c.indexes {
		ep, ok := idx.(index.EntryProvider)
		if !ok {
			continue
		}
		if vs, ok := ep.EntryForObject(rid); ok {
			out[name] = vs
		}
	}
	return out
}

// UniqueValuesFor returns the distinct values of the named index.
func (c *Catalog) UniqueValuesFor(name string) ([]index.ValueCount, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.indexes[name]
	if !ok {
		return nil, configErrorf(name, "the index does not exist")
	}
	uv, ok := idx.(index.UniqueValuer)
	if !ok {
		return nil, configErrorf(name, "the index cannot list unique values")
	}
	return uv.UniqueValues(), nil
}

func (c *Catalog) recordify(obj index.Object) ([]any, error) {
	rec := make([]any, len(c.columns))
	for i, name := range c.columns {
		v, ok, err := index.Extract(obj, name, c.logger.Logger)
		if err != nil {
			return nil, err
		}
		if ok {
			rec[i] = v
		}
	}
	return rec, nil
}

// allocate hands out rids sequentially from a random base that is renewed
// every ridBlock ids. Colliding ids are redrawn.
func (c *Catalog) allocate() uint32 {
	rid := c.nextID
	if rid%ridBlock == 0 {
		rid = rand.Uint32()
	}
	for {
		if _, taken := c.paths[rid]; !taken {
			break
		}
		rid = rand.Uint32()
	}
	c.nextID = rid + 1
	return rid
}

func (c *Catalog) docs() *idset.Set {
	s := idset.New()
	for rid := range c.paths {
		s.Add(rid)
	}
	return s
}

func (c *Catalog) uidKey(uid string) []byte {
	return []byte("catalogo/" + c.id + "/u/" + uid)
}

func (c *Catalog) ridKey(rid uint32) []byte {
	return binary.BigEndian.AppendUint32([]byte("catalogo/"+c.id+"/r/"), rid)
}

// writeThrough persists the uid mapping and the metadata record in the
// transaction carried by ctx. Reading the uid key first makes concurrent
// catalogings of the same uid conflict.
func (c *Catalog) writeThrough(ctx context.Context, uid string, rid uint32, rec []any) error {
	txn, ok := storage.TxnFromContext(ctx)
	if !ok {
		return nil
	}
	if _, err := txn.Get(c.uidKey(uid)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err := txn.Set(c.uidKey(uid), binary.BigEndian.AppendUint32(nil, rid)); err != nil {
		return err
	}
	row, err := c.opts.codec.Marshal(c.row(rec))
	if err != nil {
		return err
	}
	return txn.Set(c.ridKey(rid), row)
}

func (c *Catalog) row(rec []any) map[string]any {
	out := make(map[string]any, len(c.columns))
	for i, name := range c.columns {
		out[name] = rec[i]
	}
	return out
}

// LoadMappings restores the uid/rid mapping and metadata rows written
// through storage transactions. Indexes are not touched; use Refresh to
// rebuild them.
func (c *Catalog) LoadMappings(ctx context.Context) error {
	txn, ok := storage.TxnFromContext(ctx)
	if !ok {
		return configErrorf("", "no storage transaction in context")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := []byte("catalogo/" + c.id + "/u/")
	uids := make(map[string]uint32)
	err := txn.Iterate(prefix, func(key, val []byte) error {
		if len(val) != 4 {
			return ErrCorruptSnapshot
		}
		uids[string(key[len(prefix):])] = binary.BigEndian.Uint32(val)
		return nil
	})
	if err != nil {
		return translateError(err)
	}

	for uid, rid := range uids {
		raw, err := txn.Get(c.ridKey(rid))
		if err != nil {
			return translateError(err)
		}
		var row map[string]any
		if err := c.opts.codec.Unmarshal(raw, &row); err != nil {
			return translateError(err)
		}
		rec := make([]any, len(c.columns))
		for i, name := range c.columns {
			if v, ok := row[name]; ok {
				rec[i] = v
			} else {
				rec[i] = c.defaults[i]
			}
		}
		c.uids[uid] = rid
		c.paths[rid] = uid
		c.data[rid] = rec
	}
	c.counter++
	return nil
}

// indexView resolves indexes without locking. The caller holds c.mu.
type indexView struct{ c *Catalog }

func (v indexView) Index(name string) (index.Index, bool) {
	idx, ok := v.c.indexes[name]
	return idx, ok
}

func (v indexView) IndexNames() []string { return v.c.indexNames() }
