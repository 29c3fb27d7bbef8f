package viz

import (
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/recera/pivot/pkg/domain"
	"github.com/recera/pivot/pkg/format"
	"github.com/recera/pivot/pkg/interaction"
	"github.com/recera/pivot/pkg/query"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(barColor).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	bigStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	errorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(downColor).
			Padding(0, 1)

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(downColor).
			Bold(true)
)

// Totals renders one box per measure with its value and, when a previous
// dataset is given, the change against it.
func Totals(measures []string, current, previous *domain.Dataset, f format.Formatter) string {
	if current.Len() == 0 || len(measures) == 0 {
		return ""
	}
	if f == nil {
		f = format.Number
	}
	boxes := make([]string, 0, len(measures))
	for _, m := range measures {
		cur := current.Data[0].Number(m)
		lines := []string{labelStyle.Render(m), bigStyle.Render(f(cur))}
		if previous.Len() > 0 {
			prev := previous.Data[0].Number(m)
			if d := format.FormatDelta(finite(cur), finite(prev)); d != nil {
				style := labelStyle
				switch d.DeltaSign {
				case 1:
					style = lipgloss.NewStyle().Foreground(upColor)
				case -1:
					style = lipgloss.NewStyle().Foreground(downColor)
				}
				lines = append(lines, style.Render(d.Format(f)))
			}
		}
		boxes = append(boxes, boxStyle.Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Table is the input of the table renderer
type Table struct {
	Width, Height int
	Dataset       *domain.Dataset
	// Dimensions and Measures name the columns, dimensions first
	Dimensions []string
	Measures   []string
	Format     format.Formatter
	Location   *time.Location
	// Interaction marks the row whose first dimension it hovers or covers
	Interaction interaction.Interaction
	ScrollTop   int
}

// RenderTable renders a table of the top level datums. Empty data renders
// nothing.
func RenderTable(t Table) string {
	cv, ok := TableCanvas(t)
	if !ok {
		return ""
	}
	return cv.String()
}

// TableCanvas draws a table onto a canvas
func TableCanvas(t Table) (*Canvas, bool) {
	cols := len(t.Dimensions) + len(t.Measures)
	if t.Dataset.Len() == 0 || cols == 0 || t.Width <= 0 || t.Height <= 0 {
		return nil, false
	}
	f := t.Format
	if f == nil {
		f = format.Number
	}
	loc := t.Location
	if loc == nil {
		loc = time.UTC
	}
	colWidth := max(1, t.Width/cols)

	cv := NewCanvas(t.Width, t.Height)
	header := append(append([]string{}, t.Dimensions...), t.Measures...)
	for i, h := range header {
		cv.Text(i*colWidth, 0, truncate(h, colWidth-1), Ink{FG: accentColor, Bold: true})
	}

	ref := ""
	if len(t.Dimensions) > 0 {
		ref = t.Dimensions[0]
	}
	for row := 1; row < t.Height; row++ {
		i := row - 1 + t.ScrollTop
		if i < 0 || i >= t.Dataset.Len() {
			break
		}
		d := t.Dataset.Data[i]
		ink := Ink{}
		if v, ok := d.Value(ref); ok {
			switch m := markFor(t.Interaction, ref, keyOf(t.Interaction), nil, v); m {
			case markActive:
				ink = activeInk
			case markDim:
				ink = dimInk
			}
		}
		for j, dim := range t.Dimensions {
			v, _ := d.Value(dim)
			cv.Text(j*colWidth, row, truncate(format.Value(v, loc), colWidth-1), ink)
		}
		for j, m := range t.Measures {
			x := (len(t.Dimensions) + j + 1) * colWidth
			cv.TextRight(x-1, row, truncate(f(d.Number(m)), colWidth-1), ink)
		}
	}
	return cv, true
}

func keyOf(i interaction.Interaction) string {
	if i == nil {
		return ""
	}
	return i.SeriesKey()
}

// ErrorPanel renders a failed query
func ErrorPanel(err *query.QueryError, width int) string {
	if err == nil {
		return ""
	}
	body := errorTitleStyle.Render("Query Error") + "\n" + err.Message
	if width > 4 {
		return errorBoxStyle.Width(width - 2).Render(body)
	}
	return errorBoxStyle.Render(body)
}
