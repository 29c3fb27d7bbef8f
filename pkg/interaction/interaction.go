// Package interaction models what the user is doing with a chart: hovering a
// segment, dragging out a range, or looking at a committed highlight.
package interaction

import (
	"github.com/recera/pivot/pkg/domain"
)

// debugLog is set by the embedding program
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// Interaction is one of Hover, Dragging or Highlight. A nil Interaction means
// the chart is idle.
type Interaction interface {
	// SeriesKey names the measure or series the interaction belongs to
	SeriesKey() string
	isInteraction()
}

// Hover is the segment under the pointer
type Hover struct {
	Key   string
	Value domain.Value
}

// Dragging is a range selection in progress. End is nil until the pointer
// first moves after going down.
type Dragging struct {
	Key   string
	Start domain.Value
	End   domain.Value
}

// Highlight mirrors a selection committed to application state
type Highlight struct {
	Key     string
	Clauses []domain.Clause
}

func (h Hover) SeriesKey() string     { return h.Key }
func (d Dragging) SeriesKey() string  { return d.Key }
func (h Highlight) SeriesKey() string { return h.Key }

func (Hover) isInteraction()     {}
func (Dragging) isInteraction()  {}
func (Highlight) isInteraction() {}

// NewHover creates a hover over value
func NewHover(key string, value domain.Value) Hover {
	return Hover{Key: key, Value: value}
}

// NewDragging creates a drag starting at start. Pass a nil end for a drag
// that has not moved yet.
func NewDragging(key string, start, end domain.Value) Dragging {
	return Dragging{Key: key, Start: start, End: end}
}

// NewHighlight derives the interaction for a committed highlight
func NewHighlight(h domain.Highlight) Highlight {
	clauses := make([]domain.Clause, len(h.Clauses))
	copy(clauses, h.Clauses)
	return Highlight{Key: h.Key, Clauses: clauses}
}

func IsHover(i Interaction) bool {
	_, ok := i.(Hover)
	return ok
}

func IsDragging(i Interaction) bool {
	_, ok := i.(Dragging)
	return ok
}

func IsHighlight(i Interaction) bool {
	_, ok := i.(Highlight)
	return ok
}

// Clause returns the highlight clause on ref
func (h Highlight) Clause(ref string) (domain.Clause, bool) {
	return h.domain().Clause(ref)
}

// Covers reports whether the highlight selects v on ref
func (h Highlight) Covers(ref string, v domain.Value) bool {
	return h.domain().Covers(ref, v)
}

func (h Highlight) domain() *domain.Highlight {
	return &domain.Highlight{Clauses: h.Clauses, Key: h.Key}
}

// Bounds returns the drag extent, using Start for a missing End
func (d Dragging) Bounds() (start, end domain.Value) {
	if d.End == nil {
		return d.Start, d.Start
	}
	return d.Start, d.End
}

// Equal reports whether a and b describe the same interaction. Hover values
// compare with the domain values' own equality, so re-entering a segment
// with a freshly built but equal range is not a change.
func Equal(a, b Interaction) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case Hover:
		b, ok := b.(Hover)
		return ok && a.Key == b.Key && domain.ValuesEqual(a.Value, b.Value)
	case Dragging:
		b, ok := b.(Dragging)
		return ok && a.Key == b.Key &&
			domain.ValuesEqual(a.Start, b.Start) && domain.ValuesEqual(a.End, b.End)
	case Highlight:
		b, ok := b.(Highlight)
		return ok && a.Key == b.Key && clausesEqual(a.Clauses, b.Clauses)
	}
	return false
}

func clausesEqual(a, b []domain.Clause) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].String() != b[i].String() {
			return false
		}
	}
	return true
}
