package scale

import (
	"fmt"
	"math"
	"time"

	mscale "github.com/aclements/go-moremath/scale"

	"github.com/recera/pivot/pkg/domain"
)

// Linear is a continuous numeric scale
type Linear struct {
	s      mscale.Linear
	r0, r1 float64
}

// NewLinear builds a numeric scale from a data extent onto [r0, r1].
//
// A NaN bound means the data was empty or entirely missing; in that case no
// scale is returned and ok is false. Callers skip drawing axes and marks for
// that pass instead of treating it as an error.
func NewLinear(lo, hi, r0, r1 float64, o Options) (*Linear, bool) {
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return nil, false
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	if o.IncludeZero {
		lo = math.Min(0, lo)
		hi = math.Max(0, hi)
	}
	if o.Padding > 0 {
		span := hi - lo
		if hi > 0 {
			hi += span * o.Padding
		}
		if lo < 0 {
			lo -= span * o.Padding
		}
	}
	if lo == hi {
		// A single value still needs a visible span
		if lo == 0 {
			hi = 1
		} else if lo > 0 {
			lo, hi = 0, hi*2
		} else {
			lo, hi = lo*2, 0
		}
	}
	ls := mscale.Linear{Min: lo, Max: hi}
	if o.Nice {
		ls.Nice(mscale.TickOptions{Max: o.ticks()})
	}
	return &Linear{s: ls, r0: r0, r1: r1}, true
}

// MustLinear is NewLinear that panics on a degenerate extent
func MustLinear(lo, hi, r0, r1 float64, o Options) *Linear {
	s, ok := NewLinear(lo, hi, r0, r1, o)
	if !ok {
		panic(fmt.Errorf("%w: [%v, %v]", ErrNoScale, lo, hi))
	}
	return s
}

// Domain returns the (possibly extended) domain bounds
func (l *Linear) Domain() (lo, hi float64) {
	return l.s.Min, l.s.Max
}

// Range returns the pixel range
func (l *Linear) Range() (lo, hi float64) {
	return l.r0, l.r1
}

// Map projects a raw number
func (l *Linear) Map(x float64) float64 {
	return l.r0 + l.s.Map(x)*(l.r1-l.r0)
}

// Unmap inverts a pixel offset to a raw number
func (l *Linear) Unmap(px float64) float64 {
	if l.r1 == l.r0 {
		return l.s.Min
	}
	return l.s.Unmap((px - l.r0) / (l.r1 - l.r0))
}

func (l *Linear) Calculate(v domain.Value) float64 {
	switch v := v.(type) {
	case domain.Number:
		return l.Map(float64(v))
	case domain.NumberRange:
		return l.Map(v.Start)
	}
	return math.NaN()
}

func (l *Linear) Invert(px float64) domain.Value {
	return domain.Number(l.Unmap(px))
}

// Ticks returns at most max major tick positions in domain units
func (l *Linear) Ticks(max int) []float64 {
	major, _ := l.s.Ticks(mscale.TickOptions{Max: max})
	return major
}

// Time is a continuous scale over instants, resolved to the millisecond
type Time struct {
	lin *Linear
	loc *time.Location
}

// NewTime builds a time scale over [start, end] onto [r0, r1]. A zero extent
// yields no scale.
func NewTime(extent domain.TimeRange, r0, r1 float64, loc *time.Location) (*Time, bool) {
	if extent.Start.IsZero() || extent.End.IsZero() {
		return nil, false
	}
	lo := float64(extent.Start.UnixMilli())
	hi := float64(extent.End.UnixMilli())
	if lo == hi {
		hi = lo + 1
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Time{lin: &Linear{s: mscale.Linear{Min: lo, Max: hi}, r0: r0, r1: r1}, loc: loc}, true
}

// Extent reports the domain of the scale
func (t *Time) Extent() domain.TimeRange {
	lo, hi := t.lin.Domain()
	return domain.TimeRange{
		Start: time.UnixMilli(int64(lo)).In(t.loc),
		End:   time.UnixMilli(int64(hi)).In(t.loc),
	}
}

func (t *Time) Range() (lo, hi float64) {
	return t.lin.Range()
}

// MapTime projects an instant
func (t *Time) MapTime(ts time.Time) float64 {
	return t.lin.Map(float64(ts.UnixMilli()))
}

// UnmapTime inverts a pixel offset to an instant
func (t *Time) UnmapTime(px float64) time.Time {
	ms := math.Round(t.lin.Unmap(px))
	return time.UnixMilli(int64(ms)).In(t.loc)
}

func (t *Time) Calculate(v domain.Value) float64 {
	switch v := v.(type) {
	case domain.Time:
		return t.MapTime(v.Time)
	case domain.TimeRange:
		return t.MapTime(v.Start)
	}
	return math.NaN()
}

func (t *Time) Invert(px float64) domain.Value {
	return domain.NewTime(t.UnmapTime(px))
}

var tickGrains = []domain.Grain{
	{Unit: domain.Second, N: 1}, {Unit: domain.Second, N: 15}, {Unit: domain.Minute, N: 1},
	{Unit: domain.Minute, N: 5}, {Unit: domain.Minute, N: 15}, {Unit: domain.Hour, N: 1},
	{Unit: domain.Hour, N: 6}, {Unit: domain.Day, N: 1}, {Unit: domain.Week, N: 1},
	{Unit: domain.Month, N: 1}, {Unit: domain.Month, N: 3}, {Unit: domain.Year, N: 1},
}

// Ticks returns at most max instants aligned to the coarsest calendar grain
// that keeps the count within budget.
func (t *Time) Ticks(max int) []time.Time {
	if max < 1 {
		return nil
	}
	ext := t.Extent()
	for _, g := range tickGrains {
		var ticks []time.Time
		for cur := g.Ceil(ext.Start, t.loc); !cur.After(ext.End); cur = g.Shift(cur, t.loc, 1) {
			ticks = append(ticks, cur)
			if len(ticks) > max {
				break
			}
		}
		if len(ticks) <= max {
			return ticks
		}
	}
	return nil
}
