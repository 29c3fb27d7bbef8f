package interaction

import (
	"math"
	"time"

	"github.com/recera/pivot/pkg/domain"
	"github.com/recera/pivot/pkg/scale"
)

// State is what a chart owns locally. Highlights are not part of it; they
// come from application state on every pass.
type State struct {
	Interaction Interaction
	ScrollTop   float64
	ScrollLeft  float64
}

// Effective returns the interaction to draw. A committed highlight always
// wins over local hover or drag state.
func (s State) Effective(h *domain.Highlight) Interaction {
	if h != nil {
		return NewHighlight(*h)
	}
	return s.Interaction
}

// Equal reports whether two states would render the same
func (s State) Equal(o State) bool {
	return s.ScrollTop == o.ScrollTop && s.ScrollLeft == o.ScrollLeft && Equal(s.Interaction, o.Interaction)
}

// Event is an input to Reduce
type Event interface {
	isEvent()
}

// PointerMove is a pointer position along the domain axis, in content
// coordinates. Key is the series under the pointer.
type PointerMove struct {
	X   float64
	Key string
}

// PointerDown starts a drag or toggles a covered highlight
type PointerDown struct {
	X   float64
	Key string
}

// PointerUp ends a drag
type PointerUp struct{}

// PointerLeave fires when the pointer leaves the chart
type PointerLeave struct{}

// Scroll carries the new scroll offsets of the chart body
type Scroll struct {
	Top, Left float64
}

// KeyEscape cancels a drag
type KeyEscape struct{}

// Click selects the single segment under the pointer
type Click struct {
	X   float64
	Key string
}

func (PointerMove) isEvent()  {}
func (PointerDown) isEvent()  {}
func (PointerUp) isEvent()    {}
func (PointerLeave) isEvent() {}
func (Scroll) isEvent()       {}
func (KeyEscape) isEvent()    {}
func (Click) isEvent()        {}

// Effect is a side effect requested by Reduce
type Effect interface {
	isEffect()
}

// SaveHighlight asks the application to commit a highlight
type SaveHighlight struct {
	Clauses []domain.Clause
	Key     string
}

// DropHighlight asks the application to discard the highlight
type DropHighlight struct{}

func (SaveHighlight) isEffect() {}
func (DropHighlight) isEffect() {}

// Split describes the dimension on the interactive axis
type Split struct {
	// Reference names the dimension; datums carry its segment under this field
	Reference string
	// Grain buckets time splits
	Grain domain.Grain
	// BucketSize buckets numeric splits
	BucketSize float64
	// Location is the timezone time buckets are floored in
	Location *time.Location
}

// Env is everything Reduce reads but does not own
type Env struct {
	Highlight *domain.Highlight
	Scale     scale.Scale
	Data      []domain.Datum
	Split     Split
	// Tolerance bounds hover snapping; zero means scale.MaxHoverDist
	Tolerance float64
}

func (e Env) tolerance() float64 {
	if e.Tolerance <= 0 {
		return scale.MaxHoverDist
	}
	return e.Tolerance
}

func (e Env) location() *time.Location {
	if e.Split.Location == nil {
		return time.UTC
	}
	return e.Split.Location
}

// Reduce applies ev to s. It never mutates its inputs; effects are returned
// for the caller to dispatch.
func Reduce(s State, ev Event, env Env) (State, []Effect) {
	switch ev := ev.(type) {
	case PointerMove:
		return pointerMove(s, ev, env), nil
	case PointerDown:
		return pointerDown(s, ev, env)
	case PointerUp:
		return pointerUp(s, env)
	case PointerLeave:
		if IsHover(s.Interaction) {
			s.Interaction = nil
		}
		return s, nil
	case Scroll:
		// Pixel to datum mapping is scroll relative; any drag is discarded
		s.ScrollTop, s.ScrollLeft = ev.Top, ev.Left
		s.Interaction = nil
		return s, nil
	case KeyEscape:
		if IsDragging(s.Interaction) {
			s.Interaction = nil
		}
		return s, nil
	case Click:
		return click(s, ev, env)
	}
	return s, nil
}

func pointerMove(s State, ev PointerMove, env Env) State {
	if env.Scale == nil {
		return s
	}
	if d, ok := s.Interaction.(Dragging); ok {
		d.End = env.Scale.Invert(scale.Clamp(env.Scale, ev.X))
		s.Interaction = d
		return s
	}
	if env.Highlight != nil {
		s.Interaction = nil
		return s
	}
	datum, ok := scale.FindClosest(env.Data, env.Split.Reference, env.Scale, ev.X, env.tolerance())
	if !ok {
		s.Interaction = nil
		return s
	}
	v, _ := datum.Value(env.Split.Reference)
	s.Interaction = NewHover(ev.Key, v)
	return s
}

func pointerDown(s State, ev PointerDown, env Env) (State, []Effect) {
	if env.Scale == nil || IsDragging(s.Interaction) {
		return s, nil
	}
	at := env.Scale.Invert(scale.Clamp(env.Scale, ev.X))
	if at == nil {
		return s, nil
	}
	if effects, ok := toggle(env, at, ev.Key); ok {
		s.Interaction = nil
		return s, effects
	}
	s.Interaction = NewDragging(ev.Key, at, nil)
	return s, nil
}

// toggle handles a press on a point the current highlight already covers:
// the owning series drops it, any other series takes it over.
func toggle(env Env, at domain.Value, key string) ([]Effect, bool) {
	h := env.Highlight
	if h == nil || !h.Covers(env.Split.Reference, at) {
		return nil, false
	}
	if h.Key == key {
		return []Effect{DropHighlight{}}, true
	}
	clauses := make([]domain.Clause, len(h.Clauses))
	copy(clauses, h.Clauses)
	return []Effect{SaveHighlight{Clauses: clauses, Key: key}}, true
}

func pointerUp(s State, env Env) (State, []Effect) {
	d, ok := s.Interaction.(Dragging)
	if !ok {
		return s, nil
	}
	s.Interaction = nil
	start, end := d.Bounds()
	c, ok := DragClause(env, start, end)
	if !ok {
		if debugLog != nil {
			debugLog("[Interaction] Dropping drag with no clause", start, end)
		}
		return s, nil
	}
	return s, []Effect{SaveHighlight{Clauses: []domain.Clause{c}, Key: d.Key}}
}

func click(s State, ev Click, env Env) (State, []Effect) {
	if env.Scale == nil {
		return s, nil
	}
	at := env.Scale.Invert(scale.Clamp(env.Scale, ev.X))
	if at == nil {
		return s, nil
	}
	if effects, ok := toggle(env, at, ev.Key); ok {
		s.Interaction = nil
		return s, effects
	}
	datum, ok := scale.FindClosest(env.Data, env.Split.Reference, env.Scale, ev.X, env.tolerance())
	if !ok {
		return s, nil
	}
	v, _ := datum.Value(env.Split.Reference)
	seg := Segment(env.Split, v)
	if seg == nil {
		return s, nil
	}
	s.Interaction = nil
	return s, []Effect{SaveHighlight{Clauses: []domain.Clause{domain.ClauseFor(env.Split.Reference, seg)}, Key: ev.Key}}
}

// Segment returns the bucket v falls in on split, or v itself when it is
// already a segment. Point values without a grain or bucket size have no
// segment.
func Segment(split Split, v domain.Value) domain.Value {
	switch v := v.(type) {
	case domain.Time:
		if split.Grain.IsZero() {
			return nil
		}
		loc := split.Location
		if loc == nil {
			loc = time.UTC
		}
		return split.Grain.Bucket(v.Time, loc)
	case domain.Number:
		if split.BucketSize <= 0 {
			return nil
		}
		return domain.NumberBucket(float64(v), split.BucketSize)
	}
	return v
}

// DragClause converts the extent of a finished drag into the clause to
// commit. Equal bounds are nudged apart by the smallest step of their kind
// so the range is never empty, then the range is widened to whole buckets.
func DragClause(env Env, start, end domain.Value) (domain.Clause, bool) {
	ref := env.Split.Reference
	switch a := start.(type) {
	case domain.Time, domain.TimeRange:
		lo, hi, ok := timeBounds(a, end)
		if !ok {
			return nil, false
		}
		if !hi.After(lo) {
			hi = lo.Add(time.Millisecond)
		}
		if g := env.Split.Grain; !g.IsZero() {
			loc := env.location()
			lo, hi = g.Floor(lo, loc), g.Ceil(hi, loc)
		}
		return domain.TimeClause{Ref: ref, Ranges: []domain.TimeRange{{Start: lo, End: hi}}}, true

	case domain.Number, domain.NumberRange:
		lo, hi, ok := numberBounds(a, end)
		if !ok {
			return nil, false
		}
		if hi <= lo {
			hi = lo + 1
		}
		if size := env.Split.BucketSize; size > 0 {
			lo = math.Floor(lo/size) * size
			hi = math.Ceil(hi/size) * size
		}
		return domain.NumberClause{Ref: ref, Ranges: []domain.NumberRange{{Start: lo, End: hi}}}, true

	case domain.String, domain.Bool:
		return discreteClause(env, start, end)
	}
	return nil, false
}

func timeBounds(a, b domain.Value) (lo, hi time.Time, ok bool) {
	as, ae, ok1 := timeExtent(a)
	bs, be, ok2 := timeExtent(b)
	if !ok1 || !ok2 {
		return lo, hi, false
	}
	lo, hi = as, ae
	if bs.Before(lo) {
		lo = bs
	}
	if be.After(hi) {
		hi = be
	}
	return lo, hi, true
}

func timeExtent(v domain.Value) (start, end time.Time, ok bool) {
	switch v := v.(type) {
	case domain.Time:
		return v.Time, v.Time, true
	case domain.TimeRange:
		return v.Start, v.End, true
	}
	return start, end, false
}

func numberBounds(a, b domain.Value) (lo, hi float64, ok bool) {
	as, ae, ok1 := numberExtent(a)
	bs, be, ok2 := numberExtent(b)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return math.Min(as, bs), math.Max(ae, be), true
}

func numberExtent(v domain.Value) (start, end float64, ok bool) {
	switch v := v.(type) {
	case domain.Number:
		return float64(v), float64(v), true
	case domain.NumberRange:
		return v.Start, v.End, true
	}
	return 0, 0, false
}

// discreteClause selects every band between start and end inclusive
func discreteClause(env Env, start, end domain.Value) (domain.Clause, bool) {
	ref := env.Split.Reference
	b, ok := env.Scale.(*scale.Band)
	if !ok {
		return domain.ClauseFor(ref, start), true
	}
	i, ok1 := b.IndexOf(start)
	j, ok2 := b.IndexOf(end)
	if !ok1 || !ok2 {
		return domain.ClauseFor(ref, start), true
	}
	if i > j {
		i, j = j, i
	}
	values := b.Values()[i : j+1]
	switch start.(type) {
	case domain.Bool:
		c := domain.BooleanClause{Ref: ref}
		for _, v := range values {
			if bv, ok := v.(domain.Bool); ok {
				c.Values = append(c.Values, bool(bv))
			}
		}
		return c, true
	default:
		c := domain.StringClause{Ref: ref}
		for _, v := range values {
			if sv, ok := v.(domain.String); ok {
				c.Values = append(c.Values, string(sv))
			}
		}
		return c, true
	}
}
