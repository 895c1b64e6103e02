// Package date implements DateIndex, a FieldIndex over minute-resolution
// UTC timestamps.
package date

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/index/unindex"
	"github.com/hupe1980/catalogo/query"
	"github.com/hupe1980/catalogo/value"
)

// MetaType is the DateIndex type name.
const MetaType = "DateIndex"

// ErrOverflow is returned for dates whose encoding does not fit an int32.
var ErrOverflow = errors.New("date is not within the range of indexable dates")

// ErrUnsupported is returned for values that are not dates.
var ErrUnsupported = errors.New("unsupported date value")

// Encode maps t to ((((year*12+month)*31+day)*24+hour)*60+minute) of its UTC
// representation, floored to a multiple of precision minutes.
func Encode(t time.Time, precision int) (int64, error) {
	u := t.UTC()
	v := ((((int64(u.Year())*12+int64(u.Month()))*31+int64(u.Day()))*24+int64(u.Hour()))*60 + int64(u.Minute()))
	if precision > 1 {
		r := v % int64(precision)
		if r < 0 {
			r += int64(precision)
		}
		v -= r
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, t.Format(time.RFC3339))
	}
	return v, nil
}

type options struct {
	Converter
	logger *slog.Logger
}

// Option configures a DateIndex.
type Option func(*options)

// WithPrecision floors indexed times to multiples of minutes.
func WithPrecision(minutes int) Option {
	return func(o *options) { o.precision = minutes }
}

// WithNaiveTimeAsLocal controls how times without a zone are read: in the
// local zone (default) or as UTC.
func WithNaiveTimeAsLocal(local bool) Option {
	return func(o *options) { o.naiveLocal = local }
}

// WithLocation sets the zone used for naive times. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(o *options) { o.location = loc }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Converter encodes date values. The zero value is not usable; use
// NewConverter.
type Converter struct {
	precision  int
	naiveLocal bool
	location   *time.Location
}

// NewConverter returns a Converter configured by optFns. Logger options
// are ignored.
func NewConverter(optFns ...Option) Converter {
	return newOptions(optFns).Converter
}

func newOptions(optFns []Option) options {
	o := options{Converter: Converter{precision: 1, naiveLocal: true}}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.precision < 1 {
		o.precision = 1
	}
	if o.location == nil {
		o.location = time.Local
	}
	return o
}

// Precision returns the precision in minutes.
func (c Converter) Precision() int { return c.precision }

// NaiveTimeAsLocal reports whether zoneless times are read in the local zone.
func (c Converter) NaiveTimeAsLocal() bool { return c.naiveLocal }

// Index indexes one date per document.
type Index struct {
	*unindex.Index
	Converter
}

var (
	_ index.Index         = (*Index)(nil)
	_ index.SortIndex     = (*Index)(nil)
	_ index.UniqueValuer  = (*Index)(nil)
	_ index.EntryProvider = (*Index)(nil)
	_ index.Stateful      = (*Index)(nil)
	_ index.Definer       = (*Index)(nil)
)

// New creates a DateIndex named id reading attrs (default: id).
func New(id string, attrs []string, optFns ...Option) *Index {
	o := newOptions(optFns)
	ix := &Index{Converter: o.Converter}
	ix.Index = unindex.New(unindex.Config{
		ID:         id,
		MetaType:   MetaType,
		Attributes: attrs,
		Options:    []string{query.OptQuery, query.OptRange, query.OptNot, query.OptUsage},
		Operators:  []string{query.OpOr},
		Normalize:  ix.normalize,
		Logger:     o.logger,
	})
	return ix
}

// IndexObject implements index.Index. Values that are not dates or cannot
// be encoded leave the document unindexed.
func (ix *Index) IndexObject(docid uint32, obj index.Object) (bool, error) {
	for _, attr := range ix.SourceNames() {
		raw, ok, err := index.Extract(obj, attr, ix.Logger())
		if err != nil {
			return false, err
		}
		if !ok || raw == nil {
			continue
		}
		v, err := ix.Convert(raw)
		if err != nil {
			ix.Logger().Warn("cannot index date",
				slog.String("index", ix.ID()),
				slog.Uint64("docid", uint64(docid)),
				slog.String("error", err.Error()),
			)
			continue
		}
		return ix.Insert(docid, value.Int(v)), nil
	}
	return ix.Remove(docid), nil
}

// Convert encodes a date given as time.Time, epoch seconds or a date string.
func (c Converter) Convert(raw any) (int64, error) {
	var t time.Time
	switch x := raw.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x == nil {
			return 0, ErrUnsupported
		}
		t = *x
	case int:
		t = time.Unix(int64(x), 0)
	case int64:
		t = time.Unix(x, 0)
	case float64:
		sec, frac := math.Modf(x)
		t = time.Unix(int64(sec), int64(frac*1e9))
	case string:
		var err error
		if t, err = c.parse(x); err != nil {
			return 0, err
		}
	case value.Value:
		return c.ConvertValue(x)
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupported, raw)
	}
	return Encode(t, c.precision)
}

// ConvertValue encodes an int, float or string Value.
func (c Converter) ConvertValue(v value.Value) (int64, error) {
	switch v.Kind {
	case value.KindInt:
		return c.Convert(v.I64)
	case value.KindFloat:
		return c.Convert(v.F64)
	case value.KindString:
		return c.Convert(v.StringValue())
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, v.Kind)
	}
}

func (ix *Index) normalize(v value.Value) (value.Value, error) {
	n, err := ix.ConvertValue(v)
	if err != nil {
		return value.Value{}, fmt.Errorf("index %q: %w", ix.ID(), err)
	}
	return value.Int(n), nil
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	"2006-01-02 15:04:05Z07:00",
	"2006/01/02 15:04:05 MST",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
}

func (c Converter) parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty string", ErrUnsupported)
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	loc := time.UTC
	if c.naiveLocal {
		loc = c.location
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupported, s)
}

// Definition implements index.Definer.
func (ix *Index) Definition() index.Definition {
	return index.Definition{
		ID:         ix.ID(),
		MetaType:   MetaType,
		Attributes: ix.SourceNames(),
		Extra: map[string]any{
			"precision":                 ix.precision,
			"index_naive_time_as_local": ix.naiveLocal,
		},
	}
}
