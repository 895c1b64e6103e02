package plan

import (
	"cmp"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/query"
	"github.com/hupe1980/catalogo/value"
)

const (
	// MaxDistinctValues bounds the cardinality of a value index.
	MaxDistinctValues = 10

	// DefaultThreshold is the search duration above which a search is
	// reported.
	DefaultThreshold = 100 * time.Millisecond

	// hitsReset restarts the running mean so that old measurements fade.
	hitsReset = 100

	sortPrefix = "sort_on"
)

var parseOptions = []string{query.OptQuery, query.OptOperator, query.OptNot, query.OptRange, query.OptUsage}

// IndexSource resolves the indexes of a catalog.
type IndexSource interface {
	Index(name string) (index.Index, bool)
	IndexNames() []string
}

// Config wires a CatalogPlan.
type Config struct {
	Store     *Store
	Reports   *Reports
	CatalogID string
	Indexes   IndexSource
	Query     query.Request

	// Threshold is the minimum search duration that gets reported.
	Threshold time.Duration

	Logger *slog.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
}

type split struct {
	start, end time.Time
}

// CatalogPlan measures one search and stores what it learned.
// It is not safe for concurrent use.
type CatalogPlan struct {
	cfg       Config
	key       string
	names     []string
	start     time.Time
	duration  time.Duration
	interim   map[string]*split
	benchmark Entry
}

// New creates the plan of one search.
func New(cfg Config) *CatalogPlan {
	if cfg.Store == nil {
		cfg.Store = NewStore()
	}
	if cfg.Reports == nil {
		cfg.Reports = NewReports()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	p := &CatalogPlan{
		cfg:     cfg,
		interim: make(map[string]*split),
	}
	p.benchmark = cfg.Store.GetEntry(cfg.CatalogID, p.Key())
	if p.benchmark == nil {
		p.benchmark = make(Entry)
	}
	return p
}

// ValueIndexes returns the indexes with fewer than MaxDistinctValues
// distinct values. The set is computed once per catalog and cached in the
// store.
func (p *CatalogPlan) ValueIndexes() []string {
	if names, ok := p.cfg.Store.ValueIndexes(p.cfg.CatalogID); ok {
		return names
	}
	var names []string
	if p.cfg.Indexes != nil {
		for _, name := range p.cfg.Indexes.IndexNames() {
			idx, ok := p.cfg.Indexes.Index(name)
			if !ok {
				continue
			}
			uv, ok := idx.(index.UniqueValuer)
			if !ok {
				continue
			}
			if n := len(uv.UniqueValues()); n > 0 && n < MaxDistinctValues {
				names = append(names, name)
			}
		}
	}
	p.cfg.Store.SetValueIndexes(p.cfg.CatalogID, names)
	names, _ = p.cfg.Store.ValueIndexes(p.cfg.CatalogID)
	return names
}

// Key returns the query shape: the involved index names, the queried values
// of value indexes and a marker for every index queried with "not".
func (p *CatalogPlan) Key() string {
	if p.key != "" || p.names != nil {
		return p.key
	}
	p.names = []string{}
	if p.cfg.Indexes == nil {
		return p.key
	}
	values := p.ValueIndexes()
	var parts []string
	for _, name := range p.cfg.Indexes.IndexNames() {
		iq, err := query.Parse(p.cfg.Query, name, parseOptions, []string{query.OpOr, query.OpAnd})
		if err != nil {
			if _, ok := p.cfg.Query[name]; ok {
				p.names = append(p.names, name)
				parts = append(parts, name)
			}
			continue
		}
		if iq == nil {
			continue
		}
		p.names = append(p.names, name)
		if _, ok := slices.BinarySearch(values, name); ok && len(iq.Keys) > 0 {
			parts = append(parts, name+"="+renderValues(iq.Keys))
		} else {
			parts = append(parts, name)
		}
		if iq.Not != nil {
			parts = append(parts, name+":not")
		}
	}
	if _, ok := p.cfg.Query[sortPrefix]; ok {
		parts = append(parts, sortPrefix)
	}
	slices.Sort(parts)
	p.key = strings.Join(parts, " ")
	return p.key
}

func renderValues(vs []value.Value) string {
	vs = value.SortUnique(slices.Clone(vs))
	s := make([]string, len(vs))
	for i, v := range vs {
		s[i] = v.String()
	}
	return "[" + strings.Join(s, ", ") + "]"
}

// Plan returns the learned evaluation order, or nil if the query shape has
// not been seen yet. Non-limiting indexes come first, then ascending mean
// duration.
func (p *CatalogPlan) Plan() []string {
	entry := p.cfg.Store.GetEntry(p.cfg.CatalogID, p.Key())
	if entry == nil {
		return nil
	}
	names := slices.Collect(maps.Keys(entry))
	slices.SortFunc(names, func(a, b string) int {
		ea, eb := entry[a], entry[b]
		if ea.Limit != eb.Limit {
			if ea.Limit {
				return 1
			}
			return -1
		}
		if c := cmp.Compare(ea.Duration, eb.Duration); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return names
}

// Start marks the beginning of the search.
func (p *CatalogPlan) Start() { p.start = p.cfg.Clock() }

// StartSplit marks the beginning of the evaluation of name.
func (p *CatalogPlan) StartSplit(name string) {
	p.interim[name] = &split{start: p.cfg.Clock()}
}

// StopSplit marks the end of the evaluation of name. limit reports whether
// the index narrowed the running result. Sort phases are timed but not
// benchmarked.
func (p *CatalogPlan) StopSplit(name string, limit bool) {
	now := p.cfg.Clock()
	s, ok := p.interim[name]
	if !ok {
		s = &split{start: now}
		p.interim[name] = s
	}
	s.end = now
	if strings.HasPrefix(name, sortPrefix) {
		return
	}
	dt := s.end.Sub(s.start)
	b := p.benchmark[name]
	if b.Hits%hitsReset == 0 {
		b.Hits = 0
	}
	b.Duration = (b.Duration*time.Duration(b.Hits) + dt) / time.Duration(b.Hits+1)
	b.Hits++
	b.Limit = limit
	p.benchmark[name] = b
}

// Stop ends the search, stores the benchmark and reports a slow search.
func (p *CatalogPlan) Stop() {
	p.duration = p.cfg.Clock().Sub(p.start)
	p.Key()
	current := p.cfg.Store.GetEntry(p.cfg.CatalogID, p.key)
	for _, name := range p.names {
		if _, ok := p.benchmark[name]; ok {
			continue
		}
		if b, ok := current[name]; ok {
			p.benchmark[name] = b
			continue
		}
		limit := false
		if idx, ok := p.cfg.Indexes.Index(name); ok {
			limit = index.IsLimitedResult(idx)
		}
		p.benchmark[name] = Benchmark{Limit: limit}
	}
	p.cfg.Store.SetEntry(p.cfg.CatalogID, p.key, p.benchmark)
	p.Log()
}

// Log reports the search if it took at least the threshold.
func (p *CatalogPlan) Log() {
	if p.duration < p.cfg.Threshold {
		return
	}
	details := make([]Measurement, 0, len(p.interim))
	for _, name := range slices.Sorted(maps.Keys(p.interim)) {
		s := p.interim[name]
		details = append(details, Measurement{
			Name:     name,
			Duration: s.end.Sub(s.start),
			Limit:    p.benchmark[name].Limit,
		})
	}
	p.cfg.Reports.record(p.cfg.CatalogID, p.Key(), p.duration, details)
	p.cfg.Logger.Info("slow query",
		slog.String("catalog", p.cfg.CatalogID),
		slog.String("query", p.Key()),
		slog.Duration("duration", p.duration),
	)
}

// Duration returns the total search time measured by Start and Stop.
func (p *CatalogPlan) Duration() time.Duration { return p.duration }

// Benchmark returns the measurements of this search.
func (p *CatalogPlan) Benchmark() Entry { return maps.Clone(p.benchmark) }

// Report returns the slow-query reports of the catalog.
func (p *CatalogPlan) Report() []Report { return p.cfg.Reports.Report(p.cfg.CatalogID) }

// Reset drops the slow-query reports of the catalog.
func (p *CatalogPlan) Reset() { p.cfg.Reports.Clear(p.cfg.CatalogID) }
