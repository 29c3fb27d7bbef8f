package viz

import (
	"math"
	"time"

	"github.com/recera/pivot/pkg/domain"
	"github.com/recera/pivot/pkg/format"
	"github.com/recera/pivot/pkg/interaction"
	"github.com/recera/pivot/pkg/layout"
	"github.com/recera/pivot/pkg/scale"
)

// timeExtent spans every time segment of data on ref
func timeExtent(values []domain.Value) (domain.TimeRange, bool) {
	var ext domain.TimeRange
	found := false
	widen := func(start, end time.Time) {
		if !found || start.Before(ext.Start) {
			ext.Start = start
		}
		if !found || end.After(ext.End) {
			ext.End = end
		}
		found = true
	}
	for _, v := range values {
		switch v := v.(type) {
		case domain.TimeRange:
			widen(v.Start, v.End)
		case domain.Time:
			widen(v.Time, v.Time)
		}
	}
	return ext, found
}

// PlanLine lays out a time series chart
func PlanLine(c Chart) (Plan, bool) {
	if c.Dataset.Len() == 0 || c.Width <= 0 || c.Height <= 0 {
		return Plan{}, false
	}
	ext, ok := timeExtent(c.Dataset.Values(c.Split.Reference))
	if !ok {
		return Plan{}, false
	}
	l := layout.CalculateLine(layout.NewStage(float64(c.Width), float64(c.Height)), 1)
	x, ok := scale.NewTime(ext, 0, math.Max(0, l.Scroller.BodyWidth-1), c.location())
	if !ok {
		return Plan{}, false
	}
	lo, hi := c.Dataset.Extent(c.Measure)
	y, ok := scale.NewLinear(lo, hi, math.Max(0, l.Scroller.BodyHeight-1), 0, scale.LineOptions)
	if !ok {
		return Plan{}, false
	}
	return Plan{Layout: l, X: x, Y: y, Data: c.Dataset.Data}, true
}

// Line renders a time series. Empty data renders nothing.
func Line(c Chart) string {
	cv, ok := LineCanvas(c)
	if !ok {
		return ""
	}
	return cv.String()
}

type point struct {
	x, y int
	ink  Ink
}

// LineCanvas draws a time series onto a canvas
func LineCanvas(c Chart) (*Canvas, bool) {
	p, ok := PlanLine(c)
	if !ok {
		return nil, false
	}
	ts := p.X.(*scale.Time)
	s := p.Layout.Scroller
	left, top := int(s.Left), int(s.Top)
	rows := int(s.BodyHeight)
	view := p.ViewWidth(c.Width)
	f := c.formatter()
	loc := c.location()

	cv := NewCanvas(c.Width, c.Height)
	drawYAxis(cv, p.Layout, p.Y, rows, f)

	shade := func(a, b float64) {
		x0, x1 := int(math.Round(math.Min(a, b))), int(math.Round(math.Max(a, b)))
		for x := max(0, x0); x <= min(view-1, x1); x++ {
			for r := 0; r < rows; r++ {
				cv.Paint(left+x, top+r, shadeColor)
			}
		}
	}

	var pts []point
	for _, d := range p.Data {
		v, ok := d.Value(c.Split.Reference)
		if !ok {
			continue
		}
		val := d.Number(c.Measure)
		if math.IsNaN(val) {
			continue
		}
		m := markFor(c.Interaction, c.Split.Reference, c.Measure, ts, v)
		if h, ok := c.Interaction.(interaction.Highlight); ok && h.Covers(c.Split.Reference, v) {
			shade(ts.Calculate(domain.Start(v)), ts.Calculate(domain.End(v))-1)
		}
		pts = append(pts, point{
			x:   int(math.Round(scale.Center(ts, v))),
			y:   int(math.Round(p.Y.Map(val))),
			ink: m.ink(),
		})
	}
	if d, ok := c.Interaction.(interaction.Dragging); ok && d.Key == c.Measure {
		a, b := d.Bounds()
		shade(ts.Calculate(a), ts.Calculate(b))
	}
	if h, ok := c.Interaction.(interaction.Hover); ok && h.Key == c.Measure {
		x := int(math.Round(scale.Center(ts, h.Value)))
		if x >= 0 && x < view {
			for r := 0; r < rows; r++ {
				cv.Set(left+x, top+r, '│', axisInk)
			}
		}
	}

	// Connect neighbours column by column, then stamp the points on top
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		for x := a.x + 1; x < b.x; x++ {
			t := float64(x-a.x) / float64(b.x-a.x)
			r := int(math.Round(float64(a.y) + t*float64(b.y-a.y)))
			if x >= 0 && x < view && r >= 0 && r < rows {
				cv.Set(left+x, top+r, '·', plainInk)
			}
		}
	}
	for _, pt := range pts {
		if pt.x >= 0 && pt.x < view && pt.y >= 0 && pt.y < rows {
			cv.Set(left+pt.x, top+pt.y, '•', pt.ink)
		}
	}

	// Time ticks along the bottom gutter
	for _, t := range ts.Ticks(max(1, view/12)) {
		x := int(math.Round(ts.MapTime(t)))
		if x < 0 || x >= view {
			continue
		}
		cv.Set(left+x, top+rows, '┴', axisInk)
		cv.Text(left+x, top+rows+1, format.Value(domain.NewTime(t), loc), axisInk)
	}

	tip := Tooltip(c.Interaction, p.Data, c.Split.Reference, c.Measure, f, loc)
	if tip != "" {
		cv.Text(left, 0, truncate(tip, max(0, c.Width-left)), tooltipInk)
	}
	return cv, true
}
