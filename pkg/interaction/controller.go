package interaction

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/recera/pivot/pkg/domain"
	"github.com/recera/pivot/pkg/highlight"
	"github.com/recera/pivot/pkg/reactive"
	"github.com/recera/pivot/pkg/scheduler"
)

// Global events a mounted controller listens for
const (
	EventPointerUp = "pointerup"
	EventEscape    = "keydown:escape"
)

// Controller owns the interaction state of one chart. Events go through
// Reduce; a state that renders the same as the current one is not stored,
// so repeated moves over one segment cause a single update.
//
// Observers and fibers are notified while the controller is locked and must
// not dispatch back into it synchronously.
type Controller struct {
	mu      sync.Mutex
	env     Env
	state   *reactive.State[State]
	hl      *reactive.State[*domain.Highlight]
	clicker highlight.Clicker
	sched   reactive.Scheduler
	updates atomic.Uint64
}

// NewController creates a controller committing selections to clicker.
// sched is told about fibers that read the controller; it may be nil.
func NewController(clicker highlight.Clicker, sched reactive.Scheduler) *Controller {
	return &Controller{
		state:   reactive.NewState(State{}, sched),
		hl:      reactive.NewState[*domain.Highlight](nil, sched),
		clicker: clicker,
		sched:   sched,
	}
}

// SetEnv installs the scale, data and split for subsequent events. The
// highlight in env replaces the current one.
func (c *Controller) SetEnv(env Env) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.env = env
	c.setHighlight(env.Highlight)
}

// SetHighlight replaces the committed highlight
func (c *Controller) SetHighlight(h *domain.Highlight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.env.Highlight = h
	c.setHighlight(h)
}

func (c *Controller) setHighlight(h *domain.Highlight) {
	c.hl.SetIfChanged(h, highlightsEqual)
}

func highlightsEqual(a, b *domain.Highlight) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Key == b.Key && clausesEqual(a.Clauses, b.Clauses)
}

// Env returns the current environment
func (c *Controller) Env() Env {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.env
}

// Dispatch applies ev and forwards any effects to the clicker. It returns
// whether the local state changed.
func (c *Controller) Dispatch(ev Event) bool {
	c.mu.Lock()
	next, effects := Reduce(c.state.Peek(), ev, c.env)
	changed := c.state.SetIfChanged(next, State.Equal)
	c.mu.Unlock()

	if changed {
		c.updates.Add(1)
		if debugLog != nil {
			debugLog("[Interaction] State now", describe(next.Interaction))
		}
	}
	if len(effects) > 0 {
		// The clicker may push a new highlight back synchronously
		reactive.RunBatch(c.sched, func() { c.apply(effects) })
	}
	return changed
}

func (c *Controller) apply(effects []Effect) {
	if c.clicker == nil {
		return
	}
	for _, e := range effects {
		switch e := e.(type) {
		case SaveHighlight:
			c.clicker.SaveHighlight(e.Clauses, e.Key)
		case DropHighlight:
			c.clicker.DropHighlight()
		}
	}
}

// State returns the local state without subscribing anyone
func (c *Controller) State() State {
	return c.state.Peek()
}

// Interaction returns the interaction to draw. Called inside Track it
// subscribes the rendering fiber to both the local state and the highlight.
func (c *Controller) Interaction() Interaction {
	s := c.state.Get()
	return s.Effective(c.hl.Get())
}

// Updates counts the state changes the controller has stored
func (c *Controller) Updates() uint64 {
	return c.updates.Load()
}

// Watch re-renders fiber whenever the local state or highlight changes
func (c *Controller) Watch(fiber *scheduler.Fiber) {
	c.state.Subscribe(fiber)
	c.hl.Subscribe(fiber)
}

// Unwatch stops re-rendering fiber
func (c *Controller) Unwatch(fiber *scheduler.Fiber) {
	c.state.Unsubscribe(fiber)
	c.hl.Unsubscribe(fiber)
}

// Observe calls fn with the new state after every change
func (c *Controller) Observe(fn func(State)) (release func()) {
	return c.state.Observe(fn)
}

// Bus registers listeners for events outside the chart, such as a pointer
// released anywhere on the page.
type Bus interface {
	AddListener(event string, fn func()) (remove func(), err error)
}

// Mount registers the controller's global listeners on bus. The returned
// release removes every one of them exactly once, however often it is
// called. If a registration fails, those already made are removed before
// the error is returned.
func (c *Controller) Mount(bus Bus) (release func(), err error) {
	listeners := []struct {
		event string
		ev    Event
	}{
		{EventPointerUp, PointerUp{}},
		{EventEscape, KeyEscape{}},
	}

	var removes []func()
	undo := func() {
		for i := len(removes) - 1; i >= 0; i-- {
			removes[i]()
		}
	}
	defer func() {
		if r := recover(); r != nil {
			undo()
			panic(r)
		}
	}()

	for _, l := range listeners {
		ev := l.ev
		remove, err := bus.AddListener(l.event, func() { c.Dispatch(ev) })
		if err != nil {
			undo()
			return nil, fmt.Errorf("interaction: listen %s: %w", l.event, err)
		}
		removes = append(removes, remove)
	}

	var once sync.Once
	return func() { once.Do(undo) }, nil
}

func describe(i Interaction) string {
	switch i := i.(type) {
	case nil:
		return "idle"
	case Hover:
		return fmt.Sprintf("hover %s %v", i.Key, i.Value)
	case Dragging:
		return fmt.Sprintf("dragging %s %v..%v", i.Key, i.Start, i.End)
	case Highlight:
		return fmt.Sprintf("highlight %s", i.Key)
	}
	return fmt.Sprintf("%T", i)
}

// HeatmapController is the Controller of a heatmap
type HeatmapController struct {
	mu      sync.Mutex
	env     HeatmapEnv
	state   *reactive.State[HeatmapState]
	clicker highlight.Clicker
	sched   reactive.Scheduler
}

// NewHeatmapController creates a heatmap controller committing to clicker
func NewHeatmapController(clicker highlight.Clicker, sched reactive.Scheduler) *HeatmapController {
	return &HeatmapController{
		state:   reactive.NewState(HeatmapState{}, sched),
		clicker: clicker,
		sched:   sched,
	}
}

// SetEnv installs the row and column scales and the highlight
func (c *HeatmapController) SetEnv(env HeatmapEnv) {
	c.mu.Lock()
	c.env = env
	c.mu.Unlock()
}

// Dispatch applies ev and returns whether the local state changed
func (c *HeatmapController) Dispatch(ev Event) bool {
	c.mu.Lock()
	next, effects := ReduceHeatmap(c.state.Peek(), ev, c.env)
	changed := c.state.SetIfChanged(next, func(a, b HeatmapState) bool {
		return a.ScrollTop == b.ScrollTop && a.ScrollLeft == b.ScrollLeft && HeatmapEqual(a.Interaction, b.Interaction)
	})
	c.mu.Unlock()

	if len(effects) > 0 && c.clicker != nil {
		reactive.RunBatch(c.sched, func() {
			for _, e := range effects {
				switch e := e.(type) {
				case SaveHighlight:
					c.clicker.SaveHighlight(e.Clauses, e.Key)
				case DropHighlight:
					c.clicker.DropHighlight()
				}
			}
		})
	}
	return changed
}

// Interaction returns the heatmap interaction to draw
func (c *HeatmapController) Interaction() HeatmapInteraction {
	s := c.state.Get()
	c.mu.Lock()
	env := c.env
	c.mu.Unlock()
	return s.Effective(env)
}

// Watch re-renders fiber whenever the local state changes
func (c *HeatmapController) Watch(fiber *scheduler.Fiber) {
	c.state.Subscribe(fiber)
}
