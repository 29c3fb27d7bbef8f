// Package layout partitions a drawing area into axis gutters, legend space
// and a scrollable chart body.
package layout

import (
	"fmt"
	"math"
)

// Margin holds edge insets
type Margin struct {
	Top, Right, Bottom, Left float64
}

// Stage is a rectangular drawing region
type Stage struct {
	X, Y          float64
	Width, Height float64
}

// NewStage builds a stage at the origin
func NewStage(width, height float64) Stage {
	return Stage{Width: width, Height: height}
}

// Within shrinks the stage by the given insets. Insets larger than the stage
// are clamped so the result never has negative width or height.
func (s Stage) Within(m Margin) Stage {
	left := clamp(m.Left, 0, s.Width)
	right := clamp(m.Right, 0, s.Width-left)
	top := clamp(m.Top, 0, s.Height)
	bottom := clamp(m.Bottom, 0, s.Height-top)
	return Stage{
		X:      s.X + left,
		Y:      s.Y + top,
		Width:  s.Width - left - right,
		Height: s.Height - top - bottom,
	}
}

// Offset is a translation between nested coordinate systems
type Offset struct {
	DX, DY float64
}

// Transform returns the translation that places content at the stage origin
func (s Stage) Transform() Offset {
	return Offset{DX: s.X, DY: s.Y}
}

// Apply translates a point into the parent coordinate system
func (o Offset) Apply(x, y float64) (float64, float64) {
	return x + o.DX, y + o.DY
}

// Local translates a parent-space point into stage-local coordinates
func (s Stage) Local(x, y float64) (float64, float64) {
	return x - s.X, y - s.Y
}

// Contains reports whether a parent-space point lies inside the stage
func (s Stage) Contains(x, y float64) bool {
	return x >= s.X && x < s.X+s.Width && y >= s.Y && y < s.Y+s.Height
}

func (o Offset) String() string {
	return fmt.Sprintf("translate(%g,%g)", o.DX, o.DY)
}

// ViewBox returns the stage as an SVG-style view box
func (s Stage) ViewBox() string {
	return fmt.Sprintf("%g %g %g %g", s.X, s.Y, s.Width, s.Height)
}

func (s Stage) String() string {
	return fmt.Sprintf("stage(%g,%g %gx%g)", s.X, s.Y, s.Width, s.Height)
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(hi, v))
}
