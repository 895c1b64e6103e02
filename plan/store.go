package plan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/hupe1980/catalogo/blobstore"
	"github.com/puzpuzpuz/xsync/v3"
	"gopkg.in/yaml.v3"
)

// EnvQueryPlan names a YAML file LoadDefault seeds the store from.
const EnvQueryPlan = "CATALOGO_QUERY_PLAN"

// Benchmark is the learned cost of one index within one query shape.
type Benchmark struct {
	Duration time.Duration `yaml:"duration" json:"duration"`
	Hits     int           `yaml:"hits" json:"hits"`
	Limit    bool          `yaml:"limit" json:"limit"`
}

// Entry maps index names to their benchmarks for one query shape.
type Entry map[string]Benchmark

type catalogPlans struct {
	entries *xsync.MapOf[string, Entry]
}

// Store is the priority map shared by all plans of a process. Entries are
// replaced, never mutated in place, so readers need no locking.
type Store struct {
	catalogs *xsync.MapOf[string, *catalogPlans]
	values   *xsync.MapOf[string, []string]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		catalogs: xsync.NewMapOf[string, *catalogPlans](),
		values:   xsync.NewMapOf[string, []string](),
	}
}

func (s *Store) plans(cid string, create bool) *catalogPlans {
	if !create {
		p, _ := s.catalogs.Load(cid)
		return p
	}
	p, _ := s.catalogs.LoadOrCompute(cid, func() *catalogPlans {
		return &catalogPlans{entries: xsync.NewMapOf[string, Entry]()}
	})
	return p
}

// Get returns all entries of catalog cid.
func (s *Store) Get(cid string) map[string]Entry {
	out := make(map[string]Entry)
	if p := s.plans(cid, false); p != nil {
		p.entries.Range(func(k string, e Entry) bool {
			out[k] = maps.Clone(e)
			return true
		})
	}
	return out
}

// Set replaces all entries of catalog cid.
func (s *Store) Set(cid string, entries map[string]Entry) {
	p := &catalogPlans{entries: xsync.NewMapOf[string, Entry]()}
	for k, e := range entries {
		p.entries.Store(k, maps.Clone(e))
	}
	s.catalogs.Store(cid, p)
}

// GetEntry returns the entry for query key of catalog cid, nil if unknown.
func (s *Store) GetEntry(cid, key string) Entry {
	p := s.plans(cid, false)
	if p == nil {
		return nil
	}
	e, _ := p.entries.Load(key)
	return maps.Clone(e)
}

// SetEntry stores the entry for query key of catalog cid.
func (s *Store) SetEntry(cid, key string, e Entry) {
	s.plans(cid, true).entries.Store(key, maps.Clone(e))
}

// ClearEntry drops everything learned for catalog cid.
func (s *Store) ClearEntry(cid string) {
	s.catalogs.Delete(cid)
	s.values.Delete(cid)
}

// Clear drops all catalogs.
func (s *Store) Clear() {
	s.catalogs.Clear()
	s.values.Clear()
}

// Keys returns the catalog ids in ascending order.
func (s *Store) Keys() []string {
	var out []string
	s.catalogs.Range(func(k string, _ *catalogPlans) bool {
		out = append(out, k)
		return true
	})
	slices.Sort(out)
	return out
}

// ValueIndexes returns the cached value indexes of catalog cid.
func (s *Store) ValueIndexes(cid string) ([]string, bool) {
	v, ok := s.values.Load(cid)
	return slices.Clone(v), ok
}

// SetValueIndexes caches the value indexes of catalog cid.
func (s *Store) SetValueIndexes(cid string, names []string) {
	s.values.Store(cid, slices.Sorted(slices.Values(names)))
}

// ClearValueIndexes drops the cached value indexes of catalog cid.
func (s *Store) ClearValueIndexes(cid string) { s.values.Delete(cid) }

type catalogDump struct {
	ValueIndexes []string         `yaml:"value_indexes,omitempty"`
	Plans        map[string]Entry `yaml:"plans,omitempty"`
}

// Dump writes the store as YAML.
func (s *Store) Dump(w io.Writer) error {
	doc := make(map[string]catalogDump)
	for _, cid := range s.Keys() {
		d := catalogDump{Plans: s.Get(cid)}
		d.ValueIndexes, _ = s.ValueIndexes(cid)
		doc[cid] = d
	}
	s.values.Range(func(cid string, names []string) bool {
		if _, ok := doc[cid]; !ok {
			doc[cid] = catalogDump{ValueIndexes: slices.Clone(names)}
		}
		return true
	})
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("plan: encode: %w", err)
	}
	return enc.Close()
}

// Load replaces the store contents with a YAML document written by Dump.
func (s *Store) Load(r io.Reader) error {
	var doc map[string]catalogDump
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return fmt.Errorf("plan: decode: %w", err)
	}
	s.Clear()
	for cid, d := range doc {
		s.Set(cid, d.Plans)
		if d.ValueIndexes != nil {
			s.SetValueIndexes(cid, d.ValueIndexes)
		}
	}
	return nil
}

// LoadFromPath loads a YAML plan file.
func (s *Store) LoadFromPath(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	defer f.Close()
	return s.Load(f)
}

// LoadDefault seeds the store from the file named by CATALOGO_QUERY_PLAN.
// A missing variable is not an error; an unreadable file leaves the store
// empty and is logged.
func (s *Store) LoadDefault(logger *slog.Logger) {
	path := os.Getenv(EnvQueryPlan)
	if path == "" {
		return
	}
	if err := s.LoadFromPath(path); err != nil {
		s.Clear()
		if logger != nil {
			logger.Warn("could not load query plan",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}
}

// SaveTo writes the store as a YAML blob.
func (s *Store) SaveTo(ctx context.Context, bs blobstore.Store, name string) error {
	var buf bytes.Buffer
	if err := s.Dump(&buf); err != nil {
		return err
	}
	return bs.Put(ctx, name, buf.Bytes())
}

// LoadFrom replaces the store contents with a blob written by SaveTo.
func (s *Store) LoadFrom(ctx context.Context, bs blobstore.Store, name string) error {
	data, err := blobstore.ReadAll(ctx, bs, name)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	return s.Load(bytes.NewReader(data))
}
