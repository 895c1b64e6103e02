package plan

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/index/boolean"
	"github.com/hupe1980/catalogo/index/field"
	"github.com/hupe1980/catalogo/index/keyword"
	"github.com/hupe1980/catalogo/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type indexes map[string]index.Index

func (m indexes) Index(name string) (index.Index, bool) {
	idx, ok := m[name]
	return idx, ok
}

func (m indexes) IndexNames() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// newIndexes builds big (boolean), num (9 distinct values) and numbers
// (10 distinct values).
func newIndexes(t *testing.T) indexes {
	t.Helper()
	big := boolean.New("big", nil, nil)
	num := field.New("num", nil, nil)
	numbers := keyword.New("numbers", nil, nil)
	for i := range 9 {
		obj := index.Record{
			"big":     i > 5,
			"num":     i,
			"numbers": []int{i, i + 1},
		}
		for _, idx := range []index.Index{big, num, numbers} {
			_, err := idx.IndexObject(uint32(i), obj)
			require.NoError(t, err)
		}
	}
	return indexes{"big": big, "num": num, "numbers": numbers}
}

func newPlan(idx IndexSource, q query.Request, clk *fakeClock, store *Store, reports *Reports) *CatalogPlan {
	return New(Config{
		Store:     store,
		Reports:   reports,
		CatalogID: "catalog",
		Indexes:   idx,
		Query:     q,
		Threshold: DefaultThreshold,
		Clock:     clk.Now,
	})
}

func TestCatalogPlan_Empty(t *testing.T) {
	p := newPlan(indexes{}, query.Request{}, newClock(), nil, nil)
	assert.Nil(t, p.Plan())
	assert.Empty(t, p.ValueIndexes())
}

func TestCatalogPlan_StopSplit(t *testing.T) {
	clk := newClock()
	p := newPlan(indexes{}, query.Request{}, clk, nil, nil)

	p.StartSplit("index1")
	clk.Advance(10 * time.Millisecond)
	p.StopSplit("index1", false)

	b := p.Benchmark()
	require.Contains(t, b, "index1")
	assert.Equal(t, 10*time.Millisecond, b["index1"].Duration)
	assert.Equal(t, 1, b["index1"].Hits)
}

func TestCatalogPlan_StopSplitSortOn(t *testing.T) {
	p := newPlan(indexes{}, query.Request{}, newClock(), nil, nil)
	p.StartSplit("sort_on")
	p.StopSplit("sort_on", false)
	assert.NotContains(t, p.Benchmark(), "sort_on")
}

func TestCatalogPlan_Stop(t *testing.T) {
	clk := newClock()
	idx := indexes{
		"index1": field.New("index1", nil, nil),
		"index2": field.New("index2", nil, nil),
	}
	store := NewStore()
	p := newPlan(idx, query.Request{"index1": 1, "index2": 2}, clk, store, nil)

	p.Start()
	for range 2 {
		p.StartSplit("index1")
		clk.Advance(time.Millisecond)
		p.StopSplit("index1", true)
	}
	p.StartSplit("sort_on")
	p.StopSplit("sort_on", false)
	clk.Advance(20 * time.Millisecond)
	p.Stop()

	assert.Equal(t, 22*time.Millisecond, p.Duration())
	b := p.Benchmark()
	assert.Equal(t, 2, b["index1"].Hits)
	assert.Equal(t, 0, b["index2"].Hits)
	assert.ElementsMatch(t, []string{"index1", "index2"}, p.Plan())
	assert.Equal(t, []string{"index2", "index1"}, p.Plan())
	assert.Equal(t, []string{"catalog"}, store.Keys())
}

func TestCatalogPlan_Order(t *testing.T) {
	idx := newIndexes(t)
	store := NewStore()
	q := query.Request{"big": true, "num": 2, "numbers": 3}
	p := newPlan(idx, q, newClock(), store, nil)

	store.SetEntry("catalog", p.Key(), Entry{
		"big":     {Duration: 5 * time.Millisecond, Hits: 1, Limit: true},
		"num":     {Duration: 3 * time.Millisecond, Hits: 1},
		"numbers": {Duration: 1 * time.Millisecond, Hits: 1, Limit: true},
	})
	assert.Equal(t, []string{"num", "numbers", "big"}, p.Plan())

	store.SetEntry("catalog", p.Key(), Entry{
		"big":     {Duration: time.Millisecond},
		"num":     {Duration: time.Millisecond},
		"numbers": {Duration: time.Millisecond},
	})
	assert.Equal(t, []string{"big", "num", "numbers"}, p.Plan())
}

func TestCatalogPlan_RunningMean(t *testing.T) {
	clk := newClock()
	p := newPlan(indexes{}, query.Request{}, clk, nil, nil)

	measure := func(d time.Duration) {
		p.StartSplit("index1")
		clk.Advance(d)
		p.StopSplit("index1", false)
	}

	measure(10 * time.Millisecond)
	measure(30 * time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, p.Benchmark()["index1"].Duration)
	assert.Equal(t, 2, p.Benchmark()["index1"].Hits)

	for range 98 {
		measure(20 * time.Millisecond)
	}
	assert.Equal(t, 100, p.Benchmark()["index1"].Hits)

	measure(50 * time.Millisecond)
	b := p.Benchmark()["index1"]
	assert.Equal(t, 1, b.Hits)
	assert.Equal(t, 50*time.Millisecond, b.Duration)
}

func TestCatalogPlan_Learns(t *testing.T) {
	clk := newClock()
	idx := newIndexes(t)
	store := NewStore()
	q := query.Request{"num": 2, "numbers": 3}

	p := newPlan(idx, q, clk, store, nil)
	assert.Nil(t, p.Plan())

	p.Start()
	p.StartSplit("num")
	clk.Advance(40 * time.Millisecond)
	p.StopSplit("num", true)
	p.StartSplit("numbers")
	clk.Advance(5 * time.Millisecond)
	p.StopSplit("numbers", true)
	p.Stop()

	again := newPlan(idx, query.Request{"num": 2, "numbers": 7}, clk, store, nil)
	assert.Equal(t, []string{"numbers", "num"}, again.Plan())
}

func TestCatalogPlan_Log(t *testing.T) {
	clk := newClock()
	idx := indexes{"index1": field.New("index1", nil, nil)}
	p := New(Config{
		CatalogID: "catalog",
		Indexes:   idx,
		Query:     query.Request{"index1": 1},
		Clock:     clk.Now,
	})

	p.Start()
	p.StartSplit("index1")
	p.StopSplit("index1", false)
	p.Stop()
	p.Log()

	report := p.Report()
	require.Len(t, report, 1)
	assert.Equal(t, 2, report[0].Counter)
	assert.Equal(t, "index1", report[0].Query)
	require.Len(t, report[0].LastDetails, 1)
	assert.Equal(t, "index1", report[0].LastDetails[0].Name)

	p.Reset()
	assert.Empty(t, p.Report())
}

func TestCatalogPlan_Threshold(t *testing.T) {
	clk := newClock()
	reports := NewReports()
	p := newPlan(indexes{}, query.Request{}, clk, nil, reports)

	p.Start()
	clk.Advance(10 * time.Millisecond)
	p.Stop()
	assert.Empty(t, reports.Report("catalog"))

	p.Start()
	clk.Advance(150 * time.Millisecond)
	p.Stop()
	assert.Len(t, reports.Report("catalog"), 1)
}

func TestCatalogPlan_ValueIndexes(t *testing.T) {
	idx := newIndexes(t)
	store := NewStore()
	p := newPlan(idx, query.Request{}, newClock(), store, nil)
	assert.Equal(t, []string{"big", "num"}, p.ValueIndexes())

	cached, ok := store.ValueIndexes("catalog")
	require.True(t, ok)
	assert.Equal(t, []string{"big", "num"}, cached)

	store.SetValueIndexes("catalog", []string{"index2", "index1"})
	assert.Equal(t, []string{"index1", "index2"}, p.ValueIndexes())
}

func TestCatalogPlan_Key(t *testing.T) {
	idx := newIndexes(t)

	tests := []struct {
		name string
		q    query.Request
		want string
	}{
		{"value index", query.Request{"big": true, "sort_on": "num"}, "big=[true] sort_on"},
		{"value index list", query.Request{"num": []int{5, 4, 3}}, "num=[3, 4, 5]"},
		{"value index tuple order", query.Request{"num": []int{3, 4, 5}}, "num=[3, 4, 5]"},
		{"other index", query.Request{"numbers": 4, "sort_on": "num"}, "numbers sort_on"},
		{"not", query.Request{"num": map[string]any{"not": 2}, "numbers": 3}, "num num:not numbers"},
		{"flat option", query.Request{"numbers": 3, "numbers_operator": "and"}, "numbers"},
		{"unknown key", query.Request{"missing": 1}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPlan(idx, tt.q, newClock(), nil, nil)
			assert.Equal(t, tt.want, p.Key())
		})
	}
}

func TestCatalogPlan_NotQueriesDiffer(t *testing.T) {
	idx := indexes{
		"num1": field.New("num1", []string{"num"}, nil),
		"num2": field.New("num2", []string{"num"}, nil),
	}
	a := newPlan(idx, query.Request{"num1": map[string]any{"not": 2}, "num2": 3}, newClock(), nil, nil)
	b := newPlan(idx, query.Request{"num1": 2, "num2": map[string]any{"not": 5}}, newClock(), nil, nil)
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestStore_DumpLoad(t *testing.T) {
	s := NewStore()
	s.SetEntry("c1", "big num", Entry{
		"big": {Duration: 2 * time.Millisecond, Hits: 3, Limit: true},
		"num": {Duration: time.Second, Hits: 1},
	})
	s.SetValueIndexes("c1", []string{"big"})

	var buf bytes.Buffer
	require.NoError(t, s.Dump(&buf))
	assert.Contains(t, buf.String(), "duration: 2ms")

	loaded := NewStore()
	require.NoError(t, loaded.Load(&buf))
	assert.Equal(t, s.Get("c1"), loaded.Get("c1"))
	names, ok := loaded.ValueIndexes("c1")
	require.True(t, ok)
	assert.Equal(t, []string{"big"}, names)
}

func TestStore_ClearEntry(t *testing.T) {
	s := NewStore()
	s.SetEntry("c1", "a", Entry{"a": {}})
	s.SetEntry("c2", "a", Entry{"a": {}})
	s.SetValueIndexes("c1", []string{"a"})

	s.ClearEntry("c1")
	assert.Nil(t, s.GetEntry("c1", "a"))
	assert.NotNil(t, s.GetEntry("c2", "a"))
	_, ok := s.ValueIndexes("c1")
	assert.False(t, ok)

	s.Clear()
	assert.Empty(t, s.Keys())
}

func TestStore_EntryIsCopied(t *testing.T) {
	s := NewStore()
	e := Entry{"a": {Hits: 1}}
	s.SetEntry("c", "k", e)
	e["a"] = Benchmark{Hits: 5}

	got := s.GetEntry("c", "k")
	assert.Equal(t, 1, got["a"].Hits)
	got["b"] = Benchmark{}
	assert.Len(t, s.GetEntry("c", "k"), 1)
}

func TestStore_LoadDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	seed := "catalog:\n  plans:\n    num:\n      num:\n        duration: 5ms\n        hits: 2\n        limit: true\n"
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	t.Setenv(EnvQueryPlan, path)
	s := NewStore()
	s.LoadDefault(nil)
	assert.Equal(t, Entry{"num": {Duration: 5 * time.Millisecond, Hits: 2, Limit: true}}, s.GetEntry("catalog", "num"))

	t.Setenv(EnvQueryPlan, filepath.Join(dir, "missing.yaml"))
	s.LoadDefault(nil)
	assert.Empty(t, s.Keys())
}

func TestReports_Mean(t *testing.T) {
	r := NewReports()
	r.record("c", "q", 10*time.Millisecond, nil)
	r.record("c", "q", 30*time.Millisecond, nil)
	r.record("c", "slow", time.Second, nil)

	got := r.Report("c")
	require.Len(t, got, 2)
	assert.Equal(t, "slow", got[0].Query)
	assert.Equal(t, 2, got[1].Counter)
	assert.Equal(t, 20*time.Millisecond, got[1].MeanDuration)
	assert.Equal(t, 30*time.Millisecond, got[1].LastDuration)

	r.Clear("c")
	assert.Empty(t, r.Report("c"))
}
