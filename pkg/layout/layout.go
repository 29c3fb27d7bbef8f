package layout

import "math"

// Scroller describes a scrollable body framed by fixed gutters
type Scroller struct {
	BodyWidth  float64
	BodyHeight float64
	Top        float64
	Right      float64
	Bottom     float64
	Left       float64
}

// Layout is the result of partitioning a stage for one chart
type Layout struct {
	Scroller Scroller
	// Segment is the area of one category for one series
	Segment Stage
}

// Constants are the fixed gutter sizes of a chart family
type Constants struct {
	YAxisWidth  float64
	XAxisHeight float64
	Top         float64
	Right       float64
	// Legend is reserved above the body when there is more than one series
	Legend float64
}

// Gutter sizes are in terminal cells.
var (
	BarConstants     = Constants{YAxisWidth: 8, XAxisHeight: 2, Top: 1, Right: 1, Legend: 1}
	LineConstants    = Constants{YAxisWidth: 8, XAxisHeight: 2, Top: 1, Right: 2, Legend: 1}
	HeatmapConstants = Constants{YAxisWidth: 14, XAxisHeight: 0, Top: 2, Right: 1}
)

func (c Constants) margin(seriesCount int) Margin {
	top := c.Top
	if seriesCount > 1 {
		top += c.Legend
	}
	return Margin{Top: top, Right: c.Right, Bottom: c.XAxisHeight, Left: c.YAxisWidth}
}

// Calculate partitions stage for domainLength categories and seriesCount
// stacked series. It is pure and cheap enough to run on every render.
func Calculate(stage Stage, domainLength, seriesCount int, c Constants) Layout {
	m := c.margin(seriesCount)
	body := stage.Within(m)
	var seg Stage
	if domainLength > 0 {
		seg.Width = body.Width / float64(domainLength)
	}
	if seriesCount > 0 {
		seg.Height = body.Height / float64(seriesCount)
	}
	return Layout{
		Scroller: Scroller{
			BodyWidth:  body.Width,
			BodyHeight: body.Height,
			Top:        body.Y - stage.Y,
			Right:      stage.Width - body.Width - (body.X - stage.X),
			Bottom:     stage.Height - body.Height - (body.Y - stage.Y),
			Left:       body.X - stage.X,
		},
		Segment: seg,
	}
}

// CalculateBar is Calculate with the bar chart gutters
func CalculateBar(stage Stage, domainLength, seriesCount int) Layout {
	return Calculate(stage, domainLength, seriesCount, BarConstants)
}

// CalculateLine is Calculate with the line chart gutters
func CalculateLine(stage Stage, seriesCount int) Layout {
	return Calculate(stage, 1, seriesCount, LineConstants)
}

// CalculateHeatmap partitions a heatmap: columns across, rows down, one
// cell per pair.
func CalculateHeatmap(stage Stage, columns, rows int) Layout {
	return Calculate(stage, columns, rows, HeatmapConstants)
}

// ContentWidth returns the width a body needs so that each of n segments gets
// at least minSegment, never less than the available viewport.
func ContentWidth(n int, minSegment, available float64) float64 {
	return math.Max(available, float64(n)*minSegment)
}

// WithContentWidth widens the body of l to width and recomputes the segment
// width; gutters are unchanged.
func (l Layout) WithContentWidth(width float64, domainLength int) Layout {
	if width <= l.Scroller.BodyWidth {
		return l
	}
	l.Scroller.BodyWidth = width
	if domainLength > 0 {
		l.Segment.Width = width / float64(domainLength)
	}
	return l
}
