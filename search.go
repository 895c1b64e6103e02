package catalogo

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/catalogo/cache"
	"github.com/hupe1980/catalogo/idset"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/index/composite"
	"github.com/hupe1980/catalogo/plan"
	"github.com/hupe1980/catalogo/query"
	"github.com/hupe1980/catalogo/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Request keys that control sorting and batching rather than address an
// index.
const (
	KeySortOn    = "sort_on"
	KeySortOrder = "sort_order"
	KeySortLimit = "sort_limit"
	KeyBStart    = "b_start"
	KeyBSize     = "b_size"
)

var controlKeys = []string{KeySortOn, KeySortOrder, KeySortLimit, KeyBStart, KeyBSize}

// searchParams is the control part of a request.
type searchParams struct {
	sortOn  []string
	reverse []bool
	limit   int
	start   int
}

// end returns the exclusive upper bound of the requested window, 0 if
// unbounded.
func (p searchParams) end() int { return p.limit }

func parseParams(req query.Request) (searchParams, error) {
	var p searchParams
	switch v := req[KeySortOn].(type) {
	case nil:
	case string:
		if v != "" {
			p.sortOn = []string{v}
		}
	case []string:
		p.sortOn = slices.Clone(v)
	case []any:
		for _, x := range v {
			s, ok := x.(string)
			if !ok {
				return p, configErrorf(KeySortOn, "expected index name, got %T", x)
			}
			p.sortOn = append(p.sortOn, s)
		}
	default:
		return p, configErrorf(KeySortOn, "expected index name or list, got %T", v)
	}

	var orders []string
	switch v := req[KeySortOrder].(type) {
	case nil:
	case string:
		orders = []string{v}
	case []string:
		orders = v
	case []any:
		for _, x := range v {
			s, _ := x.(string)
			orders = append(orders, s)
		}
	default:
		return p, configErrorf(KeySortOrder, "expected string or list, got %T", v)
	}
	p.reverse = make([]bool, len(p.sortOn))
	for i := range p.sortOn {
		o := ""
		switch {
		case len(orders) == 1:
			o = orders[0]
		case i < len(orders):
			o = orders[i]
		}
		o = strings.ToLower(o)
		p.reverse[i] = o == "reverse" || o == "descending"
	}

	limit, err := intParam(req, KeySortLimit)
	if err != nil {
		return p, err
	}
	start, err := intParam(req, KeyBStart)
	if err != nil {
		return p, err
	}
	size, err := intParam(req, KeyBSize)
	if err != nil {
		return p, err
	}
	p.start = start
	p.limit = limit
	if size > 0 {
		if end := start + size; p.limit == 0 || end < p.limit {
			p.limit = end
		}
	}
	return p, nil
}

func intParam(req query.Request, key string) (int, error) {
	var n int
	switch v := req[key].(type) {
	case nil:
		return 0, nil
	case int:
		n = v
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case uint32:
		n = int(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, configErrorf(key, "expected integer, got %v", v)
		}
		n = int(v)
	case string:
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, configErrorf(key, "expected integer, got %q", v)
		}
		n = i
	default:
		return 0, configErrorf(key, "expected integer, got %T", v)
	}
	if n < 0 {
		return 0, configErrorf(key, "must not be negative")
	}
	return n, nil
}

// Search evaluates req and returns the matching objects.
//
// Each key of req addresses the index of that name; the special keys
// sort_on, sort_order, sort_limit, b_start and b_size control ordering and
// batching. A request that addresses no index returns every catalogued
// object.
func (c *Catalog) Search(ctx context.Context, req query.Request) (res *Results, err error) {
	ctx, span := c.tracer.Start(ctx, "catalogo.Search",
		trace.WithAttributes(attribute.String("catalog.id", c.id)),
	)
	defer span.End()

	start := time.Now()
	var key string
	defer func() {
		d := time.Since(start)
		n := 0
		if res != nil {
			n = res.ActualResultCount()
		}
		c.metrics.RecordSearch(n, d, err)
		c.logger.LogSearch(ctx, key, n, d, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetAttributes(attribute.Int("search.results", n))
	}()

	c.mu.RLock()
	defer c.mu.RUnlock()

	params, err := parseParams(req)
	if err != nil {
		return nil, err
	}
	sorter, err := c.sorter(params)
	if err != nil {
		return nil, err
	}

	q := c.rewrite(req.Without(controlKeys...))

	planQuery := q
	if len(params.sortOn) > 0 {
		planQuery = q.Clone()
		planQuery[KeySortOn] = req[KeySortOn]
	}
	cp := plan.New(plan.Config{
		Store:     c.opts.planStore,
		Reports:   c.opts.planReports,
		CatalogID: c.id,
		Indexes:   indexView{c},
		Query:     planQuery,
		Threshold: c.opts.longQueryTime,
		Logger:    c.logger.Logger,
		Clock:     c.opts.clock,
	})
	key = cp.Key()
	cp.Start()

	rs, err := c.evaluate(ctx, cp, q)
	if err != nil {
		return nil, err
	}

	res = c.order(cp, rs, sorter, params)

	cp.Stop()
	if d := cp.Duration(); d >= c.opts.longQueryTime {
		c.metrics.RecordSlowQuery(d)
		c.logger.LogSlowQuery(ctx, key, d, c.opts.longQueryTime)
	}
	return res, nil
}

// rewrite applies the query rewrite of every composite index.
func (c *Catalog) rewrite(q query.Request) query.Request {
	if !c.opts.compositeRewrite {
		return q
	}
	for _, name := range c.indexNames() {
		if comp, ok := c.indexes[name].(*composite.Index); ok {
			q = comp.MakeQuery(q)
		}
	}
	return q
}

// queried returns the evaluation order of the indexes addressed by q: the
// learned plan if there is one, otherwise alphabetical with limited-result
// indexes last.
func (c *Catalog) queried(cp *plan.CatalogPlan, q query.Request) []string {
	var names []string
	for _, name := range c.indexNames() {
		if _, ok := q[name]; ok {
			names = append(names, name)
		}
	}
	slices.SortStableFunc(names, func(a, b string) int {
		la, lb := index.IsLimitedResult(c.indexes[a]), index.IsLimitedResult(c.indexes[b])
		switch {
		case la == lb:
			return 0
		case la:
			return 1
		default:
			return -1
		}
	})

	learned := cp.Plan()
	if learned == nil {
		return names
	}
	order := make([]string, 0, len(names))
	for _, name := range learned {
		if slices.Contains(names, name) {
			order = append(order, name)
		}
	}
	for _, name := range names {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	return order
}

// cacheKey identifies the result of q at the current state of the
// addressed indexes.
func (c *Catalog) cacheKey(names []string, q query.Request) string {
	var sb strings.Builder
	sb.WriteString(c.id)
	if len(names) == 0 {
		fmt.Fprintf(&sb, "|*=%d", c.counter)
	}
	for _, name := range names {
		fmt.Fprintf(&sb, "|%s=%d", name, c.indexes[name].Counter())
	}
	sb.WriteByte('|')
	sb.WriteString(q.Canonical())
	return sb.String()
}

func (c *Catalog) evaluate(ctx context.Context, cp *plan.CatalogPlan, q query.Request) (*idset.Weighted, error) {
	names := c.queried(cp, q)

	qc := c.opts.queryCache
	var (
		key    string
		readTs = cache.NoSnapshot
	)
	txn, hasTxn := storage.TxnFromContext(ctx)
	if qc != nil {
		key = c.cacheKey(names, q)
		if hasTxn {
			readTs = txn.ReadTs()
		}
		ids, ok, err := qc.Get(key, readTs)
		switch {
		case errors.Is(err, cache.ErrStale):
			c.logger.DebugContext(ctx, "query cache entry is newer than the snapshot", "query", cp.Key())
			c.metrics.RecordCacheMiss()
		case ok:
			c.metrics.RecordCacheHit()
			return idset.Plain(ids), nil
		default:
			c.metrics.RecordCacheMiss()
		}
	}

	qctx := &index.QueryContext{
		CatalogID: c.id,
		Cache:     cache.NewRequestCache(),
		Logger:    c.logger.Logger,
	}

	var rs *idset.Weighted
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := c.apply(ctx, cp, qctx, name, q, rs)
		if err != nil {
			return nil, err
		}
		if r == nil {
			continue
		}
		rs = idset.WeightedIntersection(rs, r.Weighted())
		if rs.Len() == 0 {
			break
		}
	}
	if rs == nil {
		rs = idset.Plain(c.docs())
	}

	if qc != nil && !rs.Scored() {
		ids := rs.Set()
		if hasTxn {
			txn.OnCommit(func(commitTs uint64) { qc.Set(key, ids, commitTs) })
		} else {
			qc.Set(key, ids, 0)
		}
	}
	return rs, nil
}

func (c *Catalog) apply(ctx context.Context, cp *plan.CatalogPlan, qc *index.QueryContext, name string, q query.Request, rs *idset.Weighted) (*index.Result, error) {
	idx := c.indexes[name]
	limited := index.IsLimitedResult(idx)
	var hint *idset.Set
	if limited {
		hint = rs.Set()
	}

	_, span := c.tracer.Start(ctx, "catalogo.Apply", trace.WithAttributes(
		attribute.String("index.name", name),
		attribute.String("index.type", idx.MetaType()),
	))
	defer span.End()

	cp.StartSplit(name)
	start := time.Now()
	r, err := idx.Apply(qc, q, hint)
	c.metrics.RecordIndex(name, time.Since(start))
	if err != nil {
		err = translateError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	cp.StopSplit(name, limited)
	if r != nil {
		span.SetAttributes(attribute.Int("index.results", r.IDs.Len()))
	}
	return r, nil
}

// order sorts and batches rs.
func (c *Catalog) order(cp *plan.CatalogPlan, rs *idset.Weighted, s *sorter, p searchParams) *Results {
	res := &Results{catalog: c}
	if rs.Scored() {
		res.scores = make(map[uint32]int, rs.Len())
		for id := range rs.Set().All() {
			w := rs.Weight(id)
			res.scores[id] = w
			res.maxScore = max(res.maxScore, w)
		}
	}

	switch {
	case s != nil:
		cp.StartSplit(KeySortOn)
		res.rids, res.total = s.sort(rs.Set(), p.start, p.end())
		cp.StopSplit(KeySortOn, false)
	case rs.Scored():
		ids := rs.Set().ToArray()
		slices.SortStableFunc(ids, func(a, b uint32) int {
			return cmp.Compare(res.scores[b], res.scores[a])
		})
		res.rids, res.total = window(ids, p.start, p.end()), len(ids)
	default:
		ids := rs.Set().ToArray()
		res.rids, res.total = window(ids, p.start, p.end()), len(ids)
	}
	return res
}

// window returns ids[start:end] clipped to the slice. end 0 is unbounded.
func window(ids []uint32, start, end int) []uint32 {
	if end == 0 || end > len(ids) {
		end = len(ids)
	}
	if start >= end {
		return nil
	}
	return ids[start:end]
}
