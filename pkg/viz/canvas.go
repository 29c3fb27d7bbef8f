// Package viz draws charts into the terminal. A terminal cell is one pixel:
// scales, layouts and pointer positions all work in cells.
package viz

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Ink is the look of one cell. It is comparable so runs of equal ink can be
// rendered with a single style.
type Ink struct {
	FG, BG lipgloss.Color
	Bold   bool
	Faint  bool
}

func (k Ink) style() lipgloss.Style {
	s := lipgloss.NewStyle()
	if k.FG != "" {
		s = s.Foreground(k.FG)
	}
	if k.BG != "" {
		s = s.Background(k.BG)
	}
	if k.Bold {
		s = s.Bold(true)
	}
	if k.Faint {
		s = s.Faint(true)
	}
	return s
}

// Hex converts any colour to a lipgloss colour
func Hex(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}

type cell struct {
	r   rune
	ink Ink
}

// Canvas is a fixed grid of cells
type Canvas struct {
	w, h  int
	cells []cell
}

// NewCanvas creates a blank canvas
func NewCanvas(w, h int) *Canvas {
	w, h = max(w, 0), max(h, 0)
	c := &Canvas{w: w, h: h, cells: make([]cell, w*h)}
	for i := range c.cells {
		c.cells[i].r = ' '
	}
	return c
}

// Size returns the canvas dimensions
func (c *Canvas) Size() (w, h int) {
	return c.w, c.h
}

// Set draws r at (x, y). An ink without background keeps the cell's
// current one. Out of bounds writes are dropped.
func (c *Canvas) Set(x, y int, r rune, ink Ink) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	i := y*c.w + x
	if ink.BG == "" {
		ink.BG = c.cells[i].ink.BG
	}
	c.cells[i] = cell{r: r, ink: ink}
}

// Paint changes the background of (x, y) and keeps its rune
func (c *Canvas) Paint(x, y int, bg lipgloss.Color) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.cells[y*c.w+x].ink.BG = bg
}

// At returns the rune at (x, y)
func (c *Canvas) At(x, y int) rune {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return 0
	}
	return c.cells[y*c.w+x].r
}

// Text writes s starting at (x, y), clipped to the canvas
func (c *Canvas) Text(x, y int, s string, ink Ink) {
	for _, r := range s {
		c.Set(x, y, r, ink)
		x++
	}
}

// TextRight writes s so that it ends just before column x
func (c *Canvas) TextRight(x, y int, s string, ink Ink) {
	c.Text(x-len([]rune(s)), y, s, ink)
}

// Row returns the plain runes of row y
func (c *Canvas) Row(y int) string {
	if y < 0 || y >= c.h {
		return ""
	}
	var b strings.Builder
	for _, cl := range c.cells[y*c.w : (y+1)*c.w] {
		b.WriteRune(cl.r)
	}
	return b.String()
}

// Plain returns the canvas without styling
func (c *Canvas) Plain() string {
	rows := make([]string, c.h)
	for y := range rows {
		rows[y] = c.Row(y)
	}
	return strings.Join(rows, "\n")
}

// String renders the canvas with styles. Adjacent cells with the same ink
// share one styled run.
func (c *Canvas) String() string {
	var b strings.Builder
	for y := 0; y < c.h; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		row := c.cells[y*c.w : (y+1)*c.w]
		for i := 0; i < len(row); {
			j := i
			var run strings.Builder
			for j < len(row) && row[j].ink == row[i].ink {
				run.WriteRune(row[j].r)
				j++
			}
			if row[i].ink == (Ink{}) {
				b.WriteString(run.String())
			} else {
				b.WriteString(row[i].ink.style().Render(run.String()))
			}
			i = j
		}
	}
	return b.String()
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:max(n, 0)])
	}
	return string(r[:n-1]) + "…"
}
