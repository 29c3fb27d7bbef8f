package scheduler

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// RenderFunc renders a view into a frame
type RenderFunc func() string

// FrameSink receives a frame whenever a fiber's output changes
type FrameSink func(fiber *Fiber, frame string)

// ErrorHandler handles panics during rendering
// Returns true to continue scheduling, false to unmount the fiber
type ErrorHandler func(fiber *Fiber, err interface{}) bool

// Fiber is a lightweight view execution context: a render function and the
// last frame it produced.
type Fiber struct {
	id     uint32
	parent *Fiber
	frame  string

	render RenderFunc

	dirty atomic.Bool

	onError ErrorHandler
}

// debugLog is set by the embedding program
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// Scheduler batches dirty fibers and re-renders them off the caller's stack
type Scheduler struct {
	mu         sync.Mutex
	fibers     map[uint32]*Fiber
	nextID     uint32
	globalWake chan *Fiber
	running    atomic.Bool
	stop       chan struct{}

	sink         FrameSink
	defaultError ErrorHandler
}

// NewScheduler creates a new scheduler instance
func NewScheduler() *Scheduler {
	return &Scheduler{
		fibers:     make(map[uint32]*Fiber),
		nextID:     1,
		globalWake: make(chan *Fiber, 1024),
	}
}

// SetFrameSink sets the function that receives changed frames
func (s *Scheduler) SetFrameSink(sink FrameSink) {
	s.sink = sink
}

// SetDefaultErrorHandler sets the default error handler for fibers
func (s *Scheduler) SetDefaultErrorHandler(handler ErrorHandler) {
	s.defaultError = handler
}

// CreateFiber creates a new fiber for a view
func (s *Scheduler) CreateFiber(render RenderFunc, parent *Fiber) *Fiber {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	fiber := &Fiber{
		id:      id,
		parent:  parent,
		render:  render,
		onError: s.defaultError,
	}
	s.fibers[id] = fiber
	return fiber
}

// RemoveFiber removes a fiber from the scheduler
func (s *Scheduler) RemoveFiber(fiber *Fiber) {
	if fiber == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.fibers, fiber.id)
}

// MarkDirty marks a fiber as needing re-render
func (s *Scheduler) MarkDirty(fiber *Fiber) {
	if fiber == nil {
		return
	}
	if !fiber.dirty.CompareAndSwap(false, true) {
		if debugLog != nil {
			debugLog("[Scheduler] Fiber", fiber.ID(), "already dirty")
		}
		return
	}
	if !s.running.Load() {
		// Picked up by the next Flush
		return
	}
	select {
	case s.globalWake <- fiber:
	default:
		if debugLog != nil {
			debugLog("[Scheduler] Wake channel full for fiber", fiber.ID())
		}
	}
}

// Start begins the scheduler loop
func (s *Scheduler) Start() {
	if s.running.CompareAndSwap(false, true) {
		s.stop = make(chan struct{})
		if debugLog != nil {
			debugLog("[Scheduler] Starting scheduler loop")
		}
		go s.loop(s.stop)

		// Requeue fibers that went dirty while stopped
		s.mu.Lock()
		for _, f := range s.fibers {
			if f.dirty.Load() {
				select {
				case s.globalWake <- f:
				default:
				}
			}
		}
		s.mu.Unlock()
	}
}

// Stop stops the scheduler loop. Dirty fibers stay dirty until the next
// Start or Flush.
func (s *Scheduler) Stop() {
	if s.running.CompareAndSwap(true, false) {
		close(s.stop)
	}
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) loop(stop <-chan struct{}) {
	for {
		var fiber *Fiber
		select {
		case fiber = <-s.globalWake:
		case <-stop:
			return
		}

		batch := []*Fiber{fiber}
	drainLoop:
		for {
			select {
			case f := <-s.globalWake:
				batch = append(batch, f)
			default:
				break drainLoop
			}
		}

		if debugLog != nil {
			debugLog("[Scheduler] Processing batch of", len(batch), "fibers")
		}
		for _, f := range batch {
			s.processFiber(f)
		}
	}
}

// Flush synchronously renders every dirty fiber and returns how many were
// rendered. It is how single-threaded hosts such as the terminal explorer
// drive the scheduler.
func (s *Scheduler) Flush() int {
	s.mu.Lock()
	fibers := make([]*Fiber, 0, len(s.fibers))
	for _, f := range s.fibers {
		if f.dirty.Load() {
			fibers = append(fibers, f)
		}
	}
	s.mu.Unlock()

	n := 0
	for _, f := range fibers {
		if s.processFiber(f) {
			n++
		}
	}
	return n
}

// processFiber renders a single fiber and forwards a changed frame
func (s *Scheduler) processFiber(fiber *Fiber) bool {
	if !fiber.dirty.CompareAndSwap(true, false) {
		return false
	}

	rendered := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.handleFiberError(fiber, r)
			}
		}()

		next := fiber.render()
		rendered = true
		if next == fiber.frame {
			return
		}
		fiber.frame = next
		if s.sink != nil {
			s.sink(fiber, next)
		}
	}()
	return rendered
}

// handleFiberError handles a panic during fiber rendering
func (s *Scheduler) handleFiberError(fiber *Fiber, err interface{}) {
	errorMsg := fmt.Sprintf("Fiber %d panic: %v\n%s", fiber.id, err, debug.Stack())

	shouldContinue := false
	if fiber.onError != nil {
		shouldContinue = fiber.onError(fiber, errorMsg)
	}
	if !shouldContinue {
		s.RemoveFiber(fiber)
	}
}

// GetFiber returns a fiber by ID
func (s *Scheduler) GetFiber(id uint32) *Fiber {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fibers[id]
}

// FiberCount returns the number of active fibers
func (s *Scheduler) FiberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fibers)
}

// ID returns the fiber's unique ID
func (f *Fiber) ID() uint32 {
	return f.id
}

// Parent returns the fiber's parent
func (f *Fiber) Parent() *Fiber {
	return f.parent
}

// Frame returns the fiber's last rendered frame
func (f *Fiber) Frame() string {
	return f.frame
}

// IsDirty reports whether the fiber is waiting to be rendered
func (f *Fiber) IsDirty() bool {
	return f.dirty.Load()
}

// SetErrorHandler sets a custom error handler for this fiber
func (f *Fiber) SetErrorHandler(handler ErrorHandler) {
	f.onError = handler
}
