package viz

import (
	"math"

	"github.com/recera/pivot/pkg/format"
	"github.com/recera/pivot/pkg/layout"
	"github.com/recera/pivot/pkg/scale"
)

// DefaultMinSegment is the narrowest bar slot before the body scrolls
const DefaultMinSegment = 4

// PlanBar lays out a bar chart with one band per segment. It reports false
// when there is nothing to draw.
func PlanBar(c Chart) (Plan, bool) {
	if c.Dataset.Len() == 0 || c.Width <= 0 || c.Height <= 0 {
		return Plan{}, false
	}
	values := c.Dataset.Values(c.Split.Reference)
	if len(values) == 0 {
		return Plan{}, false
	}
	l := layout.CalculateBar(layout.NewStage(float64(c.Width), float64(c.Height)), len(values), 1)
	minSeg := c.MinSegment
	if minSeg <= 0 {
		minSeg = DefaultMinSegment
	}
	l = l.WithContentWidth(layout.ContentWidth(len(values), minSeg, l.Scroller.BodyWidth), len(values))

	lo, hi := c.Dataset.Extent(c.Measure)
	y, ok := scale.NewLinear(lo, hi, l.Scroller.BodyHeight, 0, scale.BarOptions)
	if !ok {
		return Plan{}, false
	}
	return Plan{
		Layout: l,
		X:      scale.NewBand(values, 0, l.Scroller.BodyWidth, 0.2),
		Y:      y,
		Data:   c.Dataset.Data,
	}, true
}

// Bar renders a bar chart. Empty data renders nothing.
func Bar(c Chart) string {
	cv, ok := BarCanvas(c)
	if !ok {
		return ""
	}
	return cv.String()
}

// BarCanvas draws a bar chart onto a canvas
func BarCanvas(c Chart) (*Canvas, bool) {
	p, ok := PlanBar(c)
	if !ok {
		return nil, false
	}
	band := p.X.(*scale.Band)
	s := p.Layout.Scroller
	left, top := int(s.Left), int(s.Top)
	rows := int(s.BodyHeight)
	view := p.ViewWidth(c.Width)
	f := c.formatter()
	scroll := int(math.Round(c.ScrollLeft))

	cv := NewCanvas(c.Width, c.Height)
	drawYAxis(cv, p.Layout, p.Y, rows, f)

	base := int(math.Round(p.Y.Map(0)))
	bw := max(1, int(band.Bandwidth()))
	for _, d := range p.Data {
		v, ok := d.Value(c.Split.Reference)
		if !ok {
			continue
		}
		val := d.Number(c.Measure)
		x0 := int(math.Round(band.Calculate(v))) - scroll
		ink := markFor(c.Interaction, c.Split.Reference, c.Measure, band, v).ink()
		if !math.IsNaN(val) {
			y0, y1 := int(math.Round(p.Y.Map(val))), base
			if y0 > y1 {
				y0, y1 = y1, y0
			}
			if y0 == y1 && val != 0 {
				y0--
			}
			for x := x0; x < x0+bw; x++ {
				if x < 0 || x >= view {
					continue
				}
				for r := max(0, y0); r < min(rows, y1); r++ {
					cv.Set(left+x, top+r, '█', ink)
				}
			}
		}
		label := truncate(format.Value(v, c.location()), bw)
		for i, r := range []rune(label) {
			if x := x0 + i; x >= 0 && x < view {
				cv.Set(left+x, top+rows, r, axisInk)
			}
		}
	}

	tip := Tooltip(c.Interaction, p.Data, c.Split.Reference, c.Measure, f, c.location())
	cv.Text(left, c.Height-1, truncate(tip, max(0, c.Width-left)), tooltipInk)
	return cv, true
}
