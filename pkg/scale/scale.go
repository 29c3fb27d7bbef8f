// Package scale maps domain values to pixel offsets and back.
//
// Continuous scales (numbers, time) interpolate linearly; band scales
// partition a pixel range into one segment per ordinal domain value.
package scale

import (
	"errors"
	"math"

	"github.com/recera/pivot/pkg/domain"
)

// ErrNoScale is reported when a scale cannot be built from its extent,
// e.g. the dataset is empty or every value is missing.
var ErrNoScale = errors.New("scale: degenerate domain")

// Scale is a bidirectional mapping between domain values and pixels
type Scale interface {
	// Calculate projects v to a pixel offset. Values the scale knows nothing
	// about project to NaN.
	Calculate(v domain.Value) float64
	// Invert maps a pixel offset back to a domain value
	Invert(px float64) domain.Value
	// Range returns the pixel range the scale was built for
	Range() (lo, hi float64)
}

// Options tune how a continuous scale extends its data extent
type Options struct {
	// IncludeZero extends the domain so it contains zero
	IncludeZero bool
	// Nice rounds the domain outward to tick-friendly boundaries
	Nice bool
	// Padding grows the domain away from zero by this fraction of its span
	Padding float64
	// Ticks is the tick budget used when rounding; defaults to 10
	Ticks int
}

// Presets for the chart families. The bar chart and the line chart share the
// zero baseline; the line chart pads its top a little so the stroke is not
// clipped by the frame.
var (
	BarOptions     = Options{IncludeZero: true, Nice: true, Ticks: 10}
	LineOptions    = Options{IncludeZero: true, Nice: true, Padding: 0.05, Ticks: 8}
	HeatmapOptions = Options{IncludeZero: true}
)

func (o Options) ticks() int {
	if o.Ticks <= 0 {
		return 10
	}
	return o.Ticks
}

// Clamp returns px limited to the scale's range
func Clamp(s Scale, px float64) float64 {
	lo, hi := s.Range()
	if lo > hi {
		lo, hi = hi, lo
	}
	return math.Max(lo, math.Min(hi, px))
}

// Center returns the pixel position used to compare a segment against the
// pointer: the band center for band scales, the projected midpoint for
// continuous ones.
func Center(s Scale, v domain.Value) float64 {
	if b, ok := s.(*Band); ok {
		return b.Calculate(v) + b.Bandwidth()/2
	}
	return s.Calculate(domain.Midpoint(v))
}
