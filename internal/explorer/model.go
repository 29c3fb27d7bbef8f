// Package explorer is the terminal front-end: a bubbletea program drawing
// one chart at a time and feeding it the terminal's mouse and keys.
package explorer

import (
	"context"
	"errors"
	"log"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/recera/pivot/pkg/chart"
	"github.com/recera/pivot/pkg/domain"
	"github.com/recera/pivot/pkg/highlight"
	"github.com/recera/pivot/pkg/interaction"
	"github.com/recera/pivot/pkg/query"
	"github.com/recera/pivot/pkg/scheduler"
)

// Rows taken by the title above the chart and the status and help lines
// below it
const (
	headerHeight = 1
	footerHeight = 2
)

// Options configure an explorer
type Options struct {
	Views    []chart.View
	Executor query.Executor
	// Filter is applied from the start
	Filter domain.Filter
	// Changes, when set, reloads the current view on every receive
	Changes <-chan struct{}
	// Verbose logs every highlight and filter change
	Verbose bool
}

// Messages
type loadedMsg struct {
	token uint64
	ds    *domain.Dataset
	err   error
}
type wakeMsg struct{}
type changedMsg struct{}

// notifier forwards dirty fibers to the scheduler and wakes the program.
// Loads finishing in the background reach the screen this way.
type notifier struct {
	*scheduler.Scheduler
	wake chan struct{}
}

func (n notifier) MarkDirty(fiber *scheduler.Fiber) {
	n.Scheduler.MarkDirty(fiber)
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// Model represents the explorer state. The chart and its plumbing are
// shared by every copy bubbletea makes.
type Model struct {
	width  int
	height int

	views []chart.View
	view  int

	ctx     context.Context
	cancel  context.CancelFunc
	store   *highlight.Store
	chart   *chart.Chart
	bus     *interaction.Listeners
	sched   *scheduler.Scheduler
	fiber   *scheduler.Fiber
	wake    chan struct{}
	changes <-chan struct{}
	release func()

	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	showHelp bool
	quitting bool
	pressed  bool
}

// New creates an explorer showing the first view
func New(o Options) (Model, error) {
	if len(o.Views) == 0 {
		return Model{}, errors.New("explorer: no views")
	}
	if o.Executor == nil {
		return Model{}, errors.New("explorer: no executor")
	}

	sched := scheduler.NewScheduler()
	wake := make(chan struct{}, 1)
	n := notifier{Scheduler: sched, wake: wake}
	store := highlight.NewStore(o.Filter)
	store.SetVerbose(o.Verbose)

	v := o.Views[0]
	c := chart.New(v.Options, store, o.Executor, v.Query, n)
	bus := interaction.NewListeners()
	release, err := c.Mount(bus)
	if err != nil {
		c.Close()
		return Model{}, err
	}

	sched.SetDefaultErrorHandler(func(fiber *scheduler.Fiber, err interface{}) bool {
		log.Printf("[Explorer] Render error: %v", err)
		return true
	})
	fiber := sched.CreateFiber(c.Render, nil)
	c.Watch(fiber)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		views:   o.Views,
		ctx:     ctx,
		cancel:  cancel,
		store:   store,
		chart:   c,
		bus:     bus,
		sched:   sched,
		fiber:   fiber,
		wake:    wake,
		changes: o.Changes,
		release: release,
		keys:    DefaultKeyMap,
		help:    help.New(),
		spinner: s,
	}, nil
}

// Chart returns the chart being explored
func (m Model) Chart() *chart.Chart {
	return m.chart
}

// Store returns the highlight and filter store
func (m Model) Store() *highlight.Store {
	return m.store
}

// CurrentView returns the view on screen
func (m Model) CurrentView() chart.View {
	return m.views[m.view]
}

// Close stops pending loads and releases the chart
func (m Model) Close() {
	m.cancel()
	m.release()
	m.bus.Close()
	m.chart.Close()
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(), m.waitForWake(), m.waitForChange())
}

// load fetches the current query through the chart's loader. Results of
// superseded loads are dropped by their token.
func (m Model) load() tea.Cmd {
	loader := m.chart.Loader()
	token := loader.Begin()
	if token == 0 {
		return nil
	}
	ctx, exec, q := m.ctx, m.chart.Executor(), m.chart.Query()
	return func() tea.Msg {
		ds, err := exec.Execute(ctx, q)
		return loadedMsg{token: token, ds: ds, err: err}
	}
}

func (m Model) waitForWake() tea.Cmd {
	wake := m.wake
	return func() tea.Msg {
		<-wake
		return wakeMsg{}
	}
}

func (m Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	changes := m.changes
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case loadedMsg:
		if !m.chart.Loader().Finish(msg.token, msg.ds, msg.err) {
			log.Printf("[Explorer] Discarded stale load %d", msg.token)
		}
		return m, nil

	case wakeMsg:
		return m, m.waitForWake()

	case changedMsg:
		return m, tea.Batch(m.load(), m.waitForChange())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) chartSize() (int, int) {
	return m.width, max(m.height-headerHeight-footerHeight, 0)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	case key.Matches(msg, m.keys.NextView):
		m = m.show((m.view + 1) % len(m.views))
	case key.Matches(msg, m.keys.PrevView):
		m = m.show((m.view + len(m.views) - 1) % len(m.views))
	case key.Matches(msg, m.keys.Accept):
		m.chart.Accept()
	case key.Matches(msg, m.keys.Escape):
		m.bus.Emit(interaction.EventEscape)
	case key.Matches(msg, m.keys.Clear):
		m.store.DropHighlight()
	case key.Matches(msg, m.keys.Reset):
		m.store.SetFilter(domain.Filter{})
	case key.Matches(msg, m.keys.Reload):
		return m, m.load()
	case key.Matches(msg, m.keys.Up):
		m.chart.ScrollBy(-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.chart.ScrollBy(1, 0)
	case key.Matches(msg, m.keys.Left):
		m.chart.ScrollBy(0, -2)
	case key.Matches(msg, m.keys.Right):
		m.chart.ScrollBy(0, 2)
	}
	return m, nil
}

func (m Model) show(i int) Model {
	m.view = i
	m.pressed = false
	m.chart.Show(m.ctx, m.views[i])
	return m
}

// handleMouse translates terminal cells into chart positions. A cell is
// addressed by its centre.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	_, h := m.chartSize()
	x := float64(msg.X) + 0.5
	y := float64(msg.Y-headerHeight) + 0.5
	inside := msg.Y >= headerHeight && msg.Y < headerHeight+h

	if tea.MouseEvent(msg).IsWheel() {
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.chart.ScrollBy(-1, 0)
		case tea.MouseButtonWheelDown:
			m.chart.ScrollBy(1, 0)
		case tea.MouseButtonWheelLeft:
			m.chart.ScrollBy(0, -2)
		case tea.MouseButtonWheelRight:
			m.chart.ScrollBy(0, 2)
		}
		return
	}

	kind := m.chart.Options().Kind
	switch msg.Action {
	case tea.MouseActionMotion:
		if inside {
			m.chart.MouseMove(x, y)
		} else {
			m.chart.MouseLeave()
		}
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !inside {
			return
		}
		m.pressed = true
		if kind == chart.KindBar || kind == chart.KindLine {
			m.chart.MouseDown(x, y)
		}
	case tea.MouseActionRelease:
		if !m.pressed {
			return
		}
		m.pressed = false
		switch kind {
		case chart.KindBar, chart.KindLine:
			// Released anywhere, as a page level pointerup
			m.bus.Emit(interaction.EventPointerUp)
		case chart.KindHeatmap:
			if inside {
				m.chart.Click(x, y)
			}
		}
	}
}
