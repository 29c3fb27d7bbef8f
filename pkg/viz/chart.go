package viz

import (
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/recera/pivot/pkg/domain"
	"github.com/recera/pivot/pkg/format"
	"github.com/recera/pivot/pkg/interaction"
	"github.com/recera/pivot/pkg/layout"
	"github.com/recera/pivot/pkg/scale"
)

var (
	accentColor = lipgloss.Color("#3b82f6")
	barColor    = lipgloss.Color("#64748b")
	mutedColor  = lipgloss.Color("#94a3b8")
	shadeColor  = lipgloss.Color("#1e3a5f")
	upColor     = lipgloss.Color("#10b981")
	downColor   = lipgloss.Color("#ef4444")

	axisInk    = Ink{FG: mutedColor}
	plainInk   = Ink{FG: barColor}
	activeInk  = Ink{FG: accentColor, Bold: true}
	dimInk     = Ink{FG: barColor, Faint: true}
	tooltipInk = Ink{FG: accentColor}
)

// Chart is the input shared by the bar and line renderers
type Chart struct {
	Width, Height int
	Dataset       *domain.Dataset
	// Split is the dimension on the x axis
	Split interaction.Split
	// Measure is the plotted measure; it also keys the interaction
	Measure string
	Format  format.Formatter
	// Interaction is the effective interaction, highlight included
	Interaction interaction.Interaction
	ScrollLeft  float64
	// MinSegment is the narrowest a bar may get before the body scrolls
	MinSegment float64
}

func (c Chart) formatter() format.Formatter {
	if c.Format == nil {
		return format.Number
	}
	return c.Format
}

func (c Chart) location() *time.Location {
	if c.Split.Location == nil {
		return time.UTC
	}
	return c.Split.Location
}

// Plan is the geometry a chart draws with. Pointer handling must use the
// same plan so that a cell under the pointer maps to the segment drawn there.
type Plan struct {
	Layout layout.Layout
	// X is the interactive axis in content coordinates
	X scale.Scale
	Y *scale.Linear
	// Data are the datums plotted along X
	Data []domain.Datum
}

// ViewWidth returns the visible body width
func (p Plan) ViewWidth(total int) int {
	s := p.Layout.Scroller
	return max(0, total-int(s.Left)-int(s.Right))
}

type mark uint8

const (
	markPlain mark = iota
	markActive
	markDim
)

func (m mark) ink() Ink {
	switch m {
	case markActive:
		return activeInk
	case markDim:
		return dimInk
	}
	return plainInk
}

// markFor classifies the segment v under interaction i
func markFor(i interaction.Interaction, ref, key string, s scale.Scale, v domain.Value) mark {
	switch i := i.(type) {
	case interaction.Hover:
		if i.Key == key && domain.ValuesEqual(i.Value, v) {
			return markActive
		}
	case interaction.Highlight:
		if i.Covers(ref, v) {
			return markActive
		}
		return markDim
	case interaction.Dragging:
		if i.Key == key && dragCovers(s, i, v) {
			return markActive
		}
	}
	return markPlain
}

// dragCovers reports whether segment v overlaps the dragged extent
func dragCovers(s scale.Scale, d interaction.Dragging, v domain.Value) bool {
	if s == nil {
		return false
	}
	a, b := d.Bounds()
	lo, hi := s.Calculate(a), s.Calculate(b)
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return false
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	p0 := s.Calculate(domain.Start(v))
	if _, ok := s.(*scale.Band); ok {
		return p0 >= lo && p0 <= hi
	}
	p1 := s.Calculate(domain.End(v))
	if p1 == p0 {
		return p0 >= lo && p0 <= hi
	}
	return p1 > lo && p0 <= hi
}

// Tooltip describes the interaction in one line
func Tooltip(i interaction.Interaction, data []domain.Datum, ref, measure string, f format.Formatter, loc *time.Location) string {
	if f == nil {
		f = format.Number
	}
	switch i := i.(type) {
	case interaction.Hover:
		s := format.Value(i.Value, loc)
		for _, d := range data {
			if v, ok := d.Value(ref); ok && domain.ValuesEqual(v, i.Value) {
				s += "  " + measure + ": " + f(d.Number(measure))
				break
			}
		}
		return s
	case interaction.Dragging:
		a, b := i.Bounds()
		return "select " + format.Value(a, loc) + " to " + format.Value(b, loc)
	case interaction.Highlight:
		parts := make([]string, len(i.Clauses))
		for n, c := range i.Clauses {
			parts[n] = c.String()
		}
		return "highlight " + strings.Join(parts, "; ")
	}
	return ""
}

// drawYAxis draws tick labels right-aligned in the left gutter
func drawYAxis(cv *Canvas, l layout.Layout, y *scale.Linear, rows int, f format.Formatter) {
	s := l.Scroller
	left, top := int(s.Left), int(s.Top)
	for r := 0; r < rows; r++ {
		cv.Set(left-1, top+r, '│', axisInk)
	}
	for _, t := range y.Ticks(max(2, rows/3)) {
		r := int(math.Round(y.Map(t)))
		if r < 0 || r >= rows {
			continue
		}
		cv.TextRight(left-1, top+r, truncate(f(t), left-1), axisInk)
	}
}
