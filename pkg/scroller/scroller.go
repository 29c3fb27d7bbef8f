// Package scroller tracks a scrollable chart body framed by fixed gutters and
// classifies pointer positions by the region they fall in.
package scroller

import (
	"math"

	"github.com/recera/pivot/pkg/layout"
)

// Part names a region of the scroller
type Part uint8

const (
	Body Part = iota
	TopGutter
	RightGutter
	BottomGutter
	LeftGutter
	TopLeftCorner
	TopRightCorner
	BottomLeftCorner
	BottomRightCorner
	Outside
)

func (p Part) String() string {
	switch p {
	case Body:
		return "body"
	case TopGutter:
		return "top-gutter"
	case RightGutter:
		return "right-gutter"
	case BottomGutter:
		return "bottom-gutter"
	case LeftGutter:
		return "left-gutter"
	case TopLeftCorner:
		return "top-left-corner"
	case TopRightCorner:
		return "top-right-corner"
	case BottomLeftCorner:
		return "bottom-left-corner"
	case BottomRightCorner:
		return "bottom-right-corner"
	}
	return "outside"
}

// Listener receives scroller events. Nil callbacks are skipped.
type Listener struct {
	OnScroll     func(scrollTop, scrollLeft float64)
	OnClick      func(x, y float64, part Part)
	OnMouseMove  func(x, y float64, part Part)
	OnMouseLeave func()
}

// Scroller owns the scroll offsets of one chart body
type Scroller struct {
	layout     layout.Scroller
	width      float64
	height     float64
	scrollTop  float64
	scrollLeft float64
	inside     bool
	listener   Listener
}

// New creates a scroller for a viewport of width x height
func New(l layout.Scroller, width, height float64, listener Listener) *Scroller {
	return &Scroller{layout: l, width: width, height: height, listener: listener}
}

// Resize updates the layout and viewport, re-clamping the scroll offsets
func (s *Scroller) Resize(l layout.Scroller, width, height float64) {
	s.layout = l
	s.width, s.height = width, height
	s.scrollTop, s.scrollLeft = s.clampTop(s.scrollTop), s.clampLeft(s.scrollLeft)
}

// Layout returns the current layout
func (s *Scroller) Layout() layout.Scroller {
	return s.layout
}

// Offsets returns the current scroll offsets
func (s *Scroller) Offsets() (scrollTop, scrollLeft float64) {
	return s.scrollTop, s.scrollLeft
}

// viewport sizes of the body, i.e. what is visible between the gutters
func (s *Scroller) viewWidth() float64 {
	return math.Max(0, s.width-s.layout.Left-s.layout.Right)
}

func (s *Scroller) viewHeight() float64 {
	return math.Max(0, s.height-s.layout.Top-s.layout.Bottom)
}

func (s *Scroller) clampTop(v float64) float64 {
	return math.Max(0, math.Min(v, math.Max(0, s.layout.BodyHeight-s.viewHeight())))
}

func (s *Scroller) clampLeft(v float64) float64 {
	return math.Max(0, math.Min(v, math.Max(0, s.layout.BodyWidth-s.viewWidth())))
}

// Scroll moves the body to the given offsets, clamped to the content. The
// listener is notified only when an offset actually changes.
func (s *Scroller) Scroll(scrollTop, scrollLeft float64) bool {
	top, left := s.clampTop(scrollTop), s.clampLeft(scrollLeft)
	if top == s.scrollTop && left == s.scrollLeft {
		return false
	}
	s.scrollTop, s.scrollLeft = top, left
	if s.listener.OnScroll != nil {
		s.listener.OnScroll(top, left)
	}
	return true
}

// ScrollBy moves the body relative to the current offsets
func (s *Scroller) ScrollBy(dTop, dLeft float64) bool {
	return s.Scroll(s.scrollTop+dTop, s.scrollLeft+dLeft)
}

// Classify returns the region of a viewport-relative position. It is purely
// geometric: the gutters are the configured margins and the body is what is
// left between them.
func (s *Scroller) Classify(x, y float64) Part {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return Outside
	}
	l := s.layout
	left := x < l.Left
	right := x >= s.width-l.Right
	top := y < l.Top
	bottom := y >= s.height-l.Bottom

	switch {
	case top && left:
		return TopLeftCorner
	case top && right:
		return TopRightCorner
	case bottom && left:
		return BottomLeftCorner
	case bottom && right:
		return BottomRightCorner
	case top:
		return TopGutter
	case bottom:
		return BottomGutter
	case left:
		return LeftGutter
	case right:
		return RightGutter
	}
	return Body
}

// Pointer converts a viewport-relative position into the coordinates the
// chart works in. Inside the body the scroll offsets are added back so the
// result is relative to the unscrolled content origin. Over a gutter the
// position is returned unchanged: gutters stay put while the body scrolls.
func (s *Scroller) Pointer(x, y float64) (px, py float64, part Part) {
	part = s.Classify(x, y)
	if part != Body {
		return x, y, part
	}
	return x - s.layout.Left + s.scrollLeft, y - s.layout.Top + s.scrollTop, part
}

// MouseMove classifies a move and forwards it to the listener. Leaving the
// viewport fires OnMouseLeave once.
func (s *Scroller) MouseMove(x, y float64) {
	px, py, part := s.Pointer(x, y)
	if part == Outside {
		s.MouseLeave()
		return
	}
	s.inside = true
	if s.listener.OnMouseMove != nil {
		s.listener.OnMouseMove(px, py, part)
	}
}

// Click classifies a click and forwards it to the listener
func (s *Scroller) Click(x, y float64) {
	px, py, part := s.Pointer(x, y)
	if part == Outside {
		return
	}
	if s.listener.OnClick != nil {
		s.listener.OnClick(px, py, part)
	}
}

// MouseLeave notifies the listener that the pointer left the viewport
func (s *Scroller) MouseLeave() {
	if !s.inside {
		return
	}
	s.inside = false
	if s.listener.OnMouseLeave != nil {
		s.listener.OnMouseLeave()
	}
}
