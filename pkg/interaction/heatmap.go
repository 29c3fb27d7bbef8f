package interaction

import (
	"github.com/recera/pivot/pkg/domain"
	"github.com/recera/pivot/pkg/scale"
)

// HeatmapInteraction is HeatmapHover or HeatmapHighlight. Heatmaps have no
// drag; a nil value is idle.
type HeatmapInteraction interface {
	isHeatmapInteraction()
}

// HeatmapHover is the cell under the pointer
type HeatmapHover struct {
	Row    domain.Value
	Column domain.Value
}

// HeatmapHighlight is a committed cell selection
type HeatmapHighlight struct {
	Row    domain.Clause
	Column domain.Clause
}

func (HeatmapHover) isHeatmapInteraction()     {}
func (HeatmapHighlight) isHeatmapInteraction() {}

func IsHeatmapHover(i HeatmapInteraction) bool {
	_, ok := i.(HeatmapHover)
	return ok
}

func IsHeatmapHighlight(i HeatmapInteraction) bool {
	_, ok := i.(HeatmapHighlight)
	return ok
}

// HeatmapEnv is what ReduceHeatmap reads
type HeatmapEnv struct {
	Highlight *domain.Highlight
	Rows      *scale.Band
	Columns   *scale.Band
	RowRef    string
	ColumnRef string
}

// HeatmapState is the local state of a heatmap
type HeatmapState struct {
	Interaction HeatmapInteraction
	ScrollTop   float64
	ScrollLeft  float64
}

// Effective returns the interaction to draw; a highlight with clauses on
// both axes wins.
func (s HeatmapState) Effective(env HeatmapEnv) HeatmapInteraction {
	if h, ok := heatmapHighlight(env); ok {
		return h
	}
	return s.Interaction
}

func heatmapHighlight(env HeatmapEnv) (HeatmapHighlight, bool) {
	row, ok1 := env.Highlight.Clause(env.RowRef)
	col, ok2 := env.Highlight.Clause(env.ColumnRef)
	if !ok1 || !ok2 {
		return HeatmapHighlight{}, false
	}
	return HeatmapHighlight{Row: row, Column: col}, true
}

// CellMove is a pointer position over the heatmap body
type CellMove struct {
	X, Y float64
}

// CellClick selects the cell under the pointer
type CellClick struct {
	X, Y float64
}

func (CellMove) isEvent()  {}
func (CellClick) isEvent() {}

// ReduceHeatmap applies ev to s. It accepts CellMove, CellClick,
// PointerLeave and Scroll.
func ReduceHeatmap(s HeatmapState, ev Event, env HeatmapEnv) (HeatmapState, []Effect) {
	switch ev := ev.(type) {
	case CellMove:
		if env.Highlight != nil {
			s.Interaction = nil
			return s, nil
		}
		row, col, ok := cellAt(env, ev.X, ev.Y)
		if !ok {
			s.Interaction = nil
			return s, nil
		}
		s.Interaction = HeatmapHover{Row: row, Column: col}
	case CellClick:
		row, col, ok := cellAt(env, ev.X, ev.Y)
		if !ok {
			return s, nil
		}
		s.Interaction = nil
		if env.Highlight.Covers(env.RowRef, row) && env.Highlight.Covers(env.ColumnRef, col) {
			return s, []Effect{DropHighlight{}}
		}
		clauses := []domain.Clause{
			domain.ClauseFor(env.RowRef, row),
			domain.ClauseFor(env.ColumnRef, col),
		}
		return s, []Effect{SaveHighlight{Clauses: clauses}}
	case PointerLeave:
		s.Interaction = nil
	case Scroll:
		s.ScrollTop, s.ScrollLeft = ev.Top, ev.Left
		s.Interaction = nil
	}
	return s, nil
}

func cellAt(env HeatmapEnv, x, y float64) (row, col domain.Value, ok bool) {
	if env.Rows == nil || env.Columns == nil {
		return nil, nil, false
	}
	if !inRange(env.Columns, x) || !inRange(env.Rows, y) {
		return nil, nil, false
	}
	col, row = env.Columns.Invert(x), env.Rows.Invert(y)
	return row, col, row != nil && col != nil
}

func inRange(b *scale.Band, px float64) bool {
	lo, hi := b.Range()
	if lo > hi {
		lo, hi = hi, lo
	}
	return px >= lo && px < hi
}

// HeatmapEqual reports whether a and b describe the same heatmap interaction
func HeatmapEqual(a, b HeatmapInteraction) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case HeatmapHover:
		b, ok := b.(HeatmapHover)
		return ok && domain.ValuesEqual(a.Row, b.Row) && domain.ValuesEqual(a.Column, b.Column)
	case HeatmapHighlight:
		b, ok := b.(HeatmapHighlight)
		return ok && a.Row.String() == b.Row.String() && a.Column.String() == b.Column.String()
	}
	return false
}
