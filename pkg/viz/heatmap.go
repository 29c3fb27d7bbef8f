package viz

import (
	"image/color"
	"math"
	"time"

	"github.com/aclements/go-gg/palette"
	"github.com/charmbracelet/lipgloss"

	"github.com/recera/pivot/pkg/domain"
	"github.com/recera/pivot/pkg/format"
	"github.com/recera/pivot/pkg/interaction"
	"github.com/recera/pivot/pkg/layout"
	"github.com/recera/pivot/pkg/scale"
)

// HeatGradient is the colour ramp of heatmap cells, light for low values
var HeatGradient = palette.RGBGradient{
	Colors: []color.RGBA{
		{0xef, 0xf6, 0xff, 0xff},
		{0x93, 0xc5, 0xfd, 0xff},
		{0x3b, 0x82, 0xf6, 0xff},
		{0x1e, 0x3a, 0x8a, 0xff},
	},
}

// Heatmap is the input of the heatmap renderer. Rows are the top level
// datums; columns are the segments of their nested split.
type Heatmap struct {
	Width, Height int
	Dataset       *domain.Dataset
	RowRef        string
	ColumnRef     string
	Measure       string
	Format        format.Formatter
	Location      *time.Location
	Interaction   interaction.HeatmapInteraction
}

// HeatmapPlan is the geometry of a heatmap
type HeatmapPlan struct {
	Layout  layout.Layout
	Rows    *scale.Band
	Columns *scale.Band
	// Color maps a measure value onto [0, 1]
	Color *scale.Linear
}

// Env returns the interaction environment matching the plan
func (p HeatmapPlan) Env(h *domain.Highlight, rowRef, colRef string) interaction.HeatmapEnv {
	return interaction.HeatmapEnv{
		Highlight: h,
		Rows:      p.Rows,
		Columns:   p.Columns,
		RowRef:    rowRef,
		ColumnRef: colRef,
	}
}

// columnValues collects the nested segments in first seen order
func columnValues(ds *domain.Dataset, ref string) []domain.Value {
	seen := make(map[string]bool)
	var out []domain.Value
	for _, d := range ds.Flatten() {
		v, ok := d.Value(ref)
		if !ok || seen[domain.Key(v)] {
			continue
		}
		seen[domain.Key(v)] = true
		out = append(out, v)
	}
	return out
}

// PlanHeatmap lays out a heatmap, or reports false when there is nothing to
// draw.
func PlanHeatmap(h Heatmap) (HeatmapPlan, bool) {
	if h.Dataset.Len() == 0 || h.Width <= 0 || h.Height <= 0 {
		return HeatmapPlan{}, false
	}
	rows := h.Dataset.Values(h.RowRef)
	cols := columnValues(h.Dataset, h.ColumnRef)
	if len(rows) == 0 || len(cols) == 0 {
		return HeatmapPlan{}, false
	}
	l := layout.CalculateHeatmap(layout.NewStage(float64(h.Width), float64(h.Height)), len(cols), len(rows))
	lo, hi := h.Dataset.NestedExtent(h.Measure)
	c, ok := scale.NewLinear(lo, hi, 0, 1, scale.HeatmapOptions)
	if !ok {
		return HeatmapPlan{}, false
	}
	return HeatmapPlan{
		Layout:  l,
		Rows:    scale.NewBand(rows, 0, l.Scroller.BodyHeight, 0),
		Columns: scale.NewBand(cols, 0, l.Scroller.BodyWidth, 0),
		Color:   c,
	}, true
}

// cellValue returns the measure at (row, col), NaN when the cell is empty
func cellValue(ds *domain.Dataset, h Heatmap, row, col domain.Value) float64 {
	d, ok := ds.FindByValue(h.RowRef, row)
	if !ok {
		return math.NaN()
	}
	sub, ok := d.Split()
	if !ok {
		return math.NaN()
	}
	cell, ok := sub.FindByValue(h.ColumnRef, col)
	if !ok {
		return math.NaN()
	}
	return cell.Number(h.Measure)
}

// RenderHeatmap renders a heatmap. Empty data renders nothing.
func RenderHeatmap(h Heatmap) string {
	cv, ok := HeatmapCanvas(h)
	if !ok {
		return ""
	}
	return cv.String()
}

// HeatmapCanvas draws a heatmap onto a canvas
func HeatmapCanvas(h Heatmap) (*Canvas, bool) {
	p, ok := PlanHeatmap(h)
	if !ok {
		return nil, false
	}
	s := p.Layout.Scroller
	left, top := int(s.Left), int(s.Top)
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	f := h.Format
	if f == nil {
		f = format.Number
	}

	hover, _ := h.Interaction.(interaction.HeatmapHover)
	hl, highlighted := h.Interaction.(interaction.HeatmapHighlight)

	cv := NewCanvas(h.Width, h.Height)
	cw := max(1, int(p.Columns.Bandwidth()))
	rh := max(1, int(p.Rows.Bandwidth()))

	for _, col := range p.Columns.Values() {
		x := int(p.Columns.Calculate(col))
		cv.Text(left+x, top-1, truncate(format.Value(col, loc), cw), axisInk)
	}
	for _, row := range p.Rows.Values() {
		y := int(p.Rows.Calculate(row))
		cv.Text(0, top+y, truncate(format.Value(row, loc), left-1), axisInk)

		for _, col := range p.Columns.Values() {
			x := int(p.Columns.Calculate(col))
			val := cellValue(h.Dataset, h, row, col)
			var bg lipgloss.Color
			if !math.IsNaN(val) {
				bg = Hex(HeatGradient.Map(p.Color.Map(val)))
			}
			glyph, ink := ' ', Ink{BG: bg}
			switch {
			case hover.Row != nil && domain.ValuesEqual(hover.Row, row) && domain.ValuesEqual(hover.Column, col):
				glyph, ink = '◆', Ink{FG: "#ffffff", BG: bg, Bold: true}
			case highlighted && hl.Row.Contains(row) && hl.Column.Contains(col):
				glyph, ink = '●', Ink{FG: "#ffffff", BG: bg, Bold: true}
			case highlighted:
				glyph, ink = '░', Ink{FG: mutedColor, BG: bg, Faint: true}
			}
			for dy := 0; dy < rh; dy++ {
				for dx := 0; dx < cw; dx++ {
					r := glyph
					if r != ' ' && r != '░' && (dx != cw/2 || dy != rh/2) {
						r = ' '
					}
					cv.Set(left+x+dx, top+y+dy, r, ink)
				}
			}
		}
	}

	var tip string
	switch {
	case hover.Row != nil:
		tip = format.Value(hover.Row, loc) + " × " + format.Value(hover.Column, loc) +
			"  " + h.Measure + ": " + f(cellValue(h.Dataset, h, hover.Row, hover.Column))
	case highlighted:
		tip = "highlight " + hl.Row.String() + "; " + hl.Column.String()
	}
	if tip != "" {
		cv.Text(0, 0, truncate(tip, h.Width), tooltipInk)
	}
	return cv, true
}
