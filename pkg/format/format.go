// Package format turns domain values and measures into display strings.
package format

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/recera/pivot/pkg/domain"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// Formatter formats a measure value
type Formatter func(float64) string

// Number is the default measure formatter: thousands separators below a
// million, SI prefixes above.
func Number(v float64) string {
	switch {
	case math.IsNaN(v):
		return "-"
	case math.IsInf(v, 1):
		return "∞"
	case math.IsInf(v, -1):
		return "-∞"
	case math.Abs(v) >= 1e6:
		return humanize.SIWithDigits(v, 1, "")
	case v == math.Trunc(v):
		return humanize.Commaf(v)
	}
	return humanize.CommafWithDigits(v, 2)
}

// Value formats a domain value in loc. Ranges render as "start to end".
func Value(v domain.Value, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	switch v := v.(type) {
	case nil:
		return ""
	case domain.Number:
		return Number(float64(v))
	case domain.NumberRange:
		return Number(v.Start) + " to " + Number(v.End)
	case domain.Time:
		return formatTime(v.Time, loc, isMidnight(v.Time, loc))
	case domain.TimeRange:
		dateOnly := isMidnight(v.Start, loc) && isMidnight(v.End, loc)
		return formatTime(v.Start, loc, dateOnly) + " to " + formatTime(v.End, loc, dateOnly)
	}
	return v.String()
}

func isMidnight(t time.Time, loc *time.Location) bool {
	h, m, s := t.In(loc).Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

func formatTime(t time.Time, loc *time.Location, dateOnly bool) string {
	if dateOnly {
		return t.In(loc).Format(dateLayout)
	}
	return t.In(loc).Format(dateTimeLayout)
}

// Delta is the change of a measure against the previous period
type Delta struct {
	Delta      float64
	DeltaRatio float64
	DeltaSign  int
}

// FormatDelta compares current with previous. It returns nil when either
// side is missing. A zero previous value gives an infinite or NaN ratio.
func FormatDelta(current, previous *float64) *Delta {
	if current == nil || previous == nil {
		return nil
	}
	d := *current - *previous
	sign := 0
	switch {
	case d > 0:
		sign = 1
	case d < 0:
		sign = -1
	}
	return &Delta{Delta: d, DeltaRatio: d / *previous, DeltaSign: sign}
}

// Percent renders the ratio as a signed percentage, or "" when the ratio is
// not finite.
func (d Delta) Percent() string {
	if math.IsInf(d.DeltaRatio, 0) || math.IsNaN(d.DeltaRatio) {
		return ""
	}
	return fmt.Sprintf("%+.1f%%", d.DeltaRatio*100)
}

// Format renders the delta with f, followed by the percentage when there
// is one.
func (d Delta) Format(f Formatter) string {
	if f == nil {
		f = Number
	}
	s := f(math.Abs(d.Delta))
	switch d.DeltaSign {
	case 1:
		s = "+" + s
	case -1:
		s = "-" + s
	}
	if p := d.Percent(); p != "" {
		s += " (" + p + ")"
	}
	return s
}
