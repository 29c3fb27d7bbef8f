// Package chart is one interactive chart: a query loader, the interaction
// controller and scroller for its kind, and the renderer that draws it.
// Front-ends feed it pointer positions in viewport cells and draw whatever
// Render returns.
package chart

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/recera/pivot/pkg/domain"
	"github.com/recera/pivot/pkg/highlight"
	"github.com/recera/pivot/pkg/interaction"
	"github.com/recera/pivot/pkg/layout"
	"github.com/recera/pivot/pkg/query"
	"github.com/recera/pivot/pkg/reactive"
	"github.com/recera/pivot/pkg/scheduler"
	"github.com/recera/pivot/pkg/scroller"
	"github.com/recera/pivot/pkg/viz"
)

// Kind names a visualization
type Kind string

const (
	KindBar     Kind = "bar"
	KindLine    Kind = "line"
	KindHeatmap Kind = "heatmap"
	KindTotals  Kind = "totals"
	KindTable   Kind = "table"
)

// Kinds lists every visualization in cycling order
var Kinds = []Kind{KindBar, KindLine, KindHeatmap, KindTable, KindTotals}

// ParseKind validates a kind name
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown chart kind %q", s)
}

// Options configure a chart
type Options struct {
	Kind Kind
	// Split is the dimension on the interactive axis; heatmap rows
	Split interaction.Split
	// Column is the heatmap column dimension
	Column string
	// Measures are shown by totals and tables; the first one is plotted
	Measures []string
	// Tolerance bounds hover snapping, zero for the default
	Tolerance  float64
	MinSegment float64
}

func (o Options) measure() string {
	if len(o.Measures) == 0 {
		return ""
	}
	return o.Measures[0]
}

// Chart is safe for concurrent use. Pointer handlers take the chart's lock
// only to translate positions; events are dispatched after it is released,
// so a highlight committed by a click can flow straight back in.
type Chart struct {
	mu       sync.Mutex
	opts     Options
	width    int
	height   int
	snap     query.Snapshot
	previous *domain.Dataset
	plan     viz.Plan
	planned  bool
	hplan    viz.HeatmapPlan
	scroller *scroller.Scroller
	pending  []interaction.Event
	filter   string

	store   *highlight.Store
	ctrl    *interaction.Controller
	heat    *interaction.HeatmapController
	loader  *query.Loader
	exec    query.Executor
	base    query.Query
	rev     *reactive.State[uint64]
	release func()
}

// New creates a chart over base, committing selections to store. sched
// learns about fibers watching the chart and may be nil.
func New(opts Options, store *highlight.Store, exec query.Executor, base query.Query, sched reactive.Scheduler) *Chart {
	c := &Chart{
		opts:   opts,
		store:  store,
		ctrl:   interaction.NewController(store, sched),
		heat:   interaction.NewHeatmapController(store, sched),
		exec:   exec,
		base:   base,
		rev:    reactive.NewState[uint64](0, sched),
		filter: filterKey(store.Filter()),
	}
	c.loader = query.NewLoader(exec, c.SetSnapshot)
	c.scroller = scroller.New(layout.Scroller{}, 0, 0, c.listener())
	c.release = store.OnChange(c.storeChanged)
	return c
}

func (c *Chart) listener() scroller.Listener {
	return scroller.Listener{
		OnScroll: func(top, left float64) {
			c.pending = append(c.pending, interaction.Scroll{Top: top, Left: left})
		},
		OnMouseMove: func(x, y float64, part scroller.Part) {
			if part != scroller.Body {
				c.pending = append(c.pending, interaction.PointerLeave{})
				return
			}
			if c.opts.Kind == KindHeatmap {
				c.pending = append(c.pending, interaction.CellMove{X: x, Y: y})
				return
			}
			c.pending = append(c.pending, interaction.PointerMove{X: x, Key: c.opts.measure()})
		},
		OnClick: func(x, y float64, part scroller.Part) {
			if part != scroller.Body {
				return
			}
			if c.opts.Kind == KindHeatmap {
				c.pending = append(c.pending, interaction.CellClick{X: x, Y: y})
				return
			}
			c.pending = append(c.pending, interaction.Click{X: x, Key: c.opts.measure()})
		},
		OnMouseLeave: func() {
			c.pending = append(c.pending, interaction.PointerLeave{})
		},
	}
}

// Options returns the chart's options
func (c *Chart) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts
}

// SetKind switches the visualization, keeping data and size
func (c *Chart) SetKind(k Kind) {
	c.mu.Lock()
	c.opts.Kind = k
	c.replan()
	c.mu.Unlock()
	c.bump()
}

// View is a named chart setup: what to draw and the query feeding it
type View struct {
	Name    string
	Options Options
	Query   query.Query
}

// Show switches to v. Data is refetched when the query differs; the
// current dataset stays visible until the new one arrives.
func (c *Chart) Show(ctx context.Context, v View) {
	c.mu.Lock()
	requery := !sameQuery(c.base, v.Query)
	c.opts = v.Options
	c.base = v.Query
	if requery {
		c.previous = nil
	}
	c.replan()
	c.mu.Unlock()

	c.Dispatch(interaction.PointerLeave{})
	c.bump()
	if requery {
		c.Refresh(ctx)
	}
}

func sameQuery(a, b query.Query) bool {
	if a.Table != b.Table || len(a.Splits) != len(b.Splits) || len(a.Measures) != len(b.Measures) {
		return false
	}
	for i := range a.Splits {
		if a.Splits[i] != b.Splits[i] {
			return false
		}
	}
	for i := range a.Measures {
		if a.Measures[i] != b.Measures[i] {
			return false
		}
	}
	return a.Location.String() == b.Location.String()
}

// Loader returns the loader that feeds the chart
func (c *Chart) Loader() *query.Loader {
	return c.loader
}

// Executor returns the executor queries run on
func (c *Chart) Executor() query.Executor {
	return c.exec
}

// Query returns the query for the current filter
func (c *Chart) Query() query.Query {
	q := c.base
	q.Filter = c.store.Filter()
	return q
}

// Refresh reloads the chart in the background
func (c *Chart) Refresh(ctx context.Context) <-chan bool {
	return c.loader.Load(ctx, c.Query())
}

// Snapshot returns the data the chart draws
func (c *Chart) Snapshot() query.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// SetSnapshot installs new data. It is the loader's change callback.
func (c *Chart) SetSnapshot(s query.Snapshot) {
	c.mu.Lock()
	if s.Dataset != c.snap.Dataset && c.snap.Dataset != nil {
		c.previous = c.snap.Dataset
	}
	c.snap = s
	c.replan()
	c.mu.Unlock()
	c.bump()
}

// Resize sets the viewport in cells
func (c *Chart) Resize(width, height int) {
	c.mu.Lock()
	if width == c.width && height == c.height {
		c.mu.Unlock()
		return
	}
	c.width, c.height = width, height
	c.replan()
	c.mu.Unlock()
	c.bump()
}

// Size returns the viewport
func (c *Chart) Size() (width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *Chart) bump() {
	c.rev.Update(func(v uint64) uint64 { return v + 1 })
}

// replan rebuilds geometry and the controllers' environments. Callers hold mu.
func (c *Chart) replan() {
	h := c.store.Highlight()
	c.planned = false
	var sl layout.Scroller

	switch c.opts.Kind {
	case KindBar, KindLine:
		ch := c.vizChart()
		if c.opts.Kind == KindBar {
			c.plan, c.planned = viz.PlanBar(ch)
		} else {
			c.plan, c.planned = viz.PlanLine(ch)
		}
		env := interaction.Env{Highlight: h, Split: c.opts.Split, Tolerance: c.opts.Tolerance}
		if c.planned {
			env.Scale, env.Data = c.plan.X, c.plan.Data
			sl = c.plan.Layout.Scroller
		}
		c.ctrl.SetEnv(env)
	case KindHeatmap:
		var ok bool
		c.hplan, ok = viz.PlanHeatmap(c.heatmap())
		if ok {
			c.heat.SetEnv(c.hplan.Env(h, c.opts.Split.Reference, c.opts.Column))
			sl = c.hplan.Layout.Scroller
		} else {
			c.heat.SetEnv(interaction.HeatmapEnv{Highlight: h})
		}
	case KindTable:
		sl = layout.Scroller{BodyWidth: float64(c.width), BodyHeight: float64(c.snap.Dataset.Len()), Top: 1}
	}
	c.scroller.Resize(sl, float64(c.width), float64(c.height))
}

func (c *Chart) vizChart() viz.Chart {
	return viz.Chart{
		Width:      c.width,
		Height:     c.height,
		Dataset:    c.snap.Dataset,
		Split:      c.opts.Split,
		Measure:    c.opts.measure(),
		MinSegment: c.opts.MinSegment,
	}
}

func (c *Chart) heatmap() viz.Heatmap {
	return viz.Heatmap{
		Width:     c.width,
		Height:    c.height,
		Dataset:   c.snap.Dataset,
		RowRef:    c.opts.Split.Reference,
		ColumnRef: c.opts.Column,
		Measure:   c.opts.measure(),
		Location:  c.opts.Split.Location,
	}
}

func (c *Chart) storeChanged() {
	h := c.store.Highlight()
	key := filterKey(c.store.Filter())

	c.mu.Lock()
	refilter := key != c.filter
	c.filter = key
	if c.opts.Kind == KindHeatmap {
		env := c.hplan.Env(h, c.opts.Split.Reference, c.opts.Column)
		c.heat.SetEnv(env)
	}
	c.mu.Unlock()

	c.ctrl.SetHighlight(h)
	c.bump()
	if refilter && c.exec != nil {
		c.Refresh(context.Background())
	}
}

func filterKey(f domain.Filter) string {
	parts := make([]string, len(f.Clauses))
	for i, cl := range f.Clauses {
		parts[i] = cl.String()
	}
	return strings.Join(parts, "\n")
}

// withScroller runs fn on the scroller under the lock and dispatches the
// events it produced once the lock is released
func (c *Chart) withScroller(fn func(s *scroller.Scroller)) {
	c.mu.Lock()
	fn(c.scroller)
	events := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, ev := range events {
		c.Dispatch(ev)
	}
}

// Dispatch sends ev to the controller of the current kind
func (c *Chart) Dispatch(ev interaction.Event) bool {
	c.mu.Lock()
	heat := c.opts.Kind == KindHeatmap
	c.mu.Unlock()
	if heat {
		return c.heat.Dispatch(ev)
	}
	return c.ctrl.Dispatch(ev)
}

// MouseMove handles the pointer at viewport position (x, y)
func (c *Chart) MouseMove(x, y float64) {
	c.withScroller(func(s *scroller.Scroller) { s.MouseMove(x, y) })
}

// MouseDown starts a drag, or toggles a highlight, over the body
func (c *Chart) MouseDown(x, y float64) {
	c.mu.Lock()
	px, _, part := c.scroller.Pointer(x, y)
	kind, key := c.opts.Kind, c.opts.measure()
	c.mu.Unlock()
	if part != scroller.Body || (kind != KindBar && kind != KindLine) {
		return
	}
	c.Dispatch(interaction.PointerDown{X: px, Key: key})
}

// Click selects the segment or cell at (x, y)
func (c *Chart) Click(x, y float64) {
	c.withScroller(func(s *scroller.Scroller) { s.Click(x, y) })
}

// MouseLeave clears any hover
func (c *Chart) MouseLeave() {
	c.withScroller(func(s *scroller.Scroller) { s.MouseLeave() })
}

// ScrollBy moves the body by the given offsets
func (c *Chart) ScrollBy(dTop, dLeft float64) {
	c.withScroller(func(s *scroller.Scroller) { s.ScrollBy(dTop, dLeft) })
}

// Mount registers the chart's page level listeners on bus
func (c *Chart) Mount(bus interaction.Bus) (release func(), err error) {
	return c.ctrl.Mount(bus)
}

// Accept merges the pending highlight into the filter
func (c *Chart) Accept() {
	c.store.AcceptHighlight()
}

// Interaction returns the interaction drawn on bar and line charts
func (c *Chart) Interaction() interaction.Interaction {
	return c.ctrl.Interaction()
}

// HeatmapInteraction returns the interaction drawn on heatmaps
func (c *Chart) HeatmapInteraction() interaction.HeatmapInteraction {
	return c.heat.Interaction()
}

// Watch re-renders fiber whenever anything the chart draws changes
func (c *Chart) Watch(fiber *scheduler.Fiber) {
	c.rev.Subscribe(fiber)
	c.ctrl.Watch(fiber)
	c.heat.Watch(fiber)
}

// Render draws the chart. A failed query shows an error panel instead;
// no data draws nothing.
func (c *Chart) Render() string {
	c.rev.Get()
	i := c.ctrl.Interaction()
	hi := c.heat.Interaction()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap.Err != nil {
		return viz.ErrorPanel(c.snap.Err, c.width)
	}
	switch c.opts.Kind {
	case KindBar, KindLine:
		if !c.planned {
			return ""
		}
		ch := c.vizChart()
		ch.Interaction = i
		_, ch.ScrollLeft = c.scroller.Offsets()
		if c.opts.Kind == KindBar {
			return viz.Bar(ch)
		}
		return viz.Line(ch)
	case KindHeatmap:
		h := c.heatmap()
		h.Interaction = hi
		return viz.RenderHeatmap(h)
	case KindTotals:
		return viz.Totals(c.opts.Measures, c.snap.Dataset, c.previous, nil)
	case KindTable:
		top, _ := c.scroller.Offsets()
		return viz.RenderTable(viz.Table{
			Width:       c.width,
			Height:      c.height,
			Dataset:     c.snap.Dataset,
			Dimensions:  []string{c.opts.Split.Reference},
			Measures:    c.opts.Measures,
			Location:    c.opts.Split.Location,
			Interaction: i,
			ScrollTop:   int(top),
		})
	}
	return ""
}

// Status describes the interaction in one line, for status bars and logs
func (c *Chart) Status() string {
	if c.Options().Kind == KindHeatmap {
		switch i := c.heat.Interaction().(type) {
		case interaction.HeatmapHover:
			return fmt.Sprintf("hover %v × %v", i.Row, i.Column)
		case interaction.HeatmapHighlight:
			return "highlight " + i.Row.String() + "; " + i.Column.String()
		}
		return "idle"
	}
	switch i := c.ctrl.Interaction().(type) {
	case interaction.Hover:
		return fmt.Sprintf("hover %v", i.Value)
	case interaction.Dragging:
		a, b := i.Bounds()
		return fmt.Sprintf("dragging %v to %v", a, b)
	case interaction.Highlight:
		return "highlight " + filterKey(domain.Filter{Clauses: i.Clauses})
	}
	return "idle"
}

// Close detaches the chart from its store and drops pending loads
func (c *Chart) Close() {
	c.release()
	c.loader.Close()
}
