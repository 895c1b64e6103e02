package plan

import (
	"cmp"
	"slices"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Measurement is the time one index spent in a reported search.
type Measurement struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Limit    bool          `json:"limit"`
}

// Report aggregates slow searches of one query shape.
type Report struct {
	Query        string        `json:"query"`
	Counter      int           `json:"counter"`
	MeanDuration time.Duration `json:"mean_duration"`
	LastDuration time.Duration `json:"last_duration"`
	LastDetails  []Measurement `json:"last_details"`
}

// Reports collects slow-query reports per catalog.
type Reports struct {
	catalogs *xsync.MapOf[string, *xsync.MapOf[string, Report]]
}

// NewReports creates an empty report collection.
func NewReports() *Reports {
	return &Reports{catalogs: xsync.NewMapOf[string, *xsync.MapOf[string, Report]]()}
}

func (r *Reports) record(cid, key string, d time.Duration, details []Measurement) {
	m, _ := r.catalogs.LoadOrCompute(cid, func() *xsync.MapOf[string, Report] {
		return xsync.NewMapOf[string, Report]()
	})
	m.Compute(key, func(old Report, loaded bool) (Report, bool) {
		if !loaded {
			return Report{
				Query:        key,
				Counter:      1,
				MeanDuration: d,
				LastDuration: d,
				LastDetails:  details,
			}, false
		}
		n := time.Duration(old.Counter)
		old.MeanDuration = (old.MeanDuration*n + d) / (n + 1)
		old.Counter++
		old.LastDuration = d
		old.LastDetails = details
		return old, false
	})
}

// Report returns the reports of catalog cid, slowest first.
func (r *Reports) Report(cid string) []Report {
	m, ok := r.catalogs.Load(cid)
	if !ok {
		return nil
	}
	var out []Report
	m.Range(func(_ string, rep Report) bool {
		rep.LastDetails = slices.Clone(rep.LastDetails)
		out = append(out, rep)
		return true
	})
	slices.SortFunc(out, func(a, b Report) int {
		if c := cmp.Compare(b.MeanDuration, a.MeanDuration); c != 0 {
			return c
		}
		return cmp.Compare(a.Query, b.Query)
	})
	return out
}

// Clear drops the reports of catalog cid.
func (r *Reports) Clear(cid string) { r.catalogs.Delete(cid) }
