package reactive

import (
	"sync"
	"sync/atomic"

	"github.com/recera/pivot/pkg/scheduler"
)

// Scheduler interface for reactive system
type Scheduler interface {
	MarkDirty(fiber *scheduler.Fiber)
}

// debugLog is set by the embedding program
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// currentFiber is dynamically scoped to track dependencies
var currentFiber atomic.Pointer[scheduler.Fiber]

// GetCurrentFiber returns the current fiber
func GetCurrentFiber() *scheduler.Fiber {
	return currentFiber.Load()
}

// Track runs fn with fiber as the current fiber, so every value read inside
// subscribes it.
func Track[T any](fiber *scheduler.Fiber, fn func() T) T {
	prev := currentFiber.Swap(fiber)
	defer currentFiber.Store(prev)
	return fn()
}

// State holds a value and the fibers and observers that depend on it
type State[T any] struct {
	value T
	mu    sync.RWMutex

	deps      map[uint32]*scheduler.Fiber
	observers map[uint64]func(T)
	nextObs   uint64
	depsMu    sync.RWMutex
	scheduler Scheduler
}

// NewState creates a new reactive state
func NewState[T any](initial T, sched Scheduler) *State[T] {
	return &State[T]{
		value:     initial,
		deps:      make(map[uint32]*scheduler.Fiber),
		observers: make(map[uint64]func(T)),
		scheduler: sched,
	}
}

// Get returns the current value and subscribes the current fiber, if any
func (s *State[T]) Get() T {
	if fiber := GetCurrentFiber(); fiber != nil {
		s.Subscribe(fiber)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Peek returns the current value without tracking
func (s *State[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set updates the value and marks dependent fibers as dirty
func (s *State[T]) Set(value T) {
	if debugLog != nil {
		debugLog("[State] Set called with value:", value)
	}

	s.mu.Lock()
	s.value = value
	s.mu.Unlock()

	s.notify(value)
}

// SetIfChanged stores value only when eq reports it differs from the current
// one. It returns whether anything changed; an unchanged Set notifies nobody.
func (s *State[T]) SetIfChanged(value T, eq func(a, b T) bool) bool {
	s.mu.Lock()
	if eq(s.value, value) {
		s.mu.Unlock()
		if debugLog != nil {
			debugLog("[State] SetIfChanged skipped, value unchanged")
		}
		return false
	}
	s.value = value
	s.mu.Unlock()

	s.notify(value)
	return true
}

// Update atomically reads, modifies, and writes the value
func (s *State[T]) Update(fn func(T) T) {
	s.mu.Lock()
	oldValue := s.value
	s.value = fn(oldValue)
	newValue := s.value
	s.mu.Unlock()

	if debugLog != nil {
		debugLog("[State] Update called, old:", oldValue, "new:", newValue)
	}
	s.notify(newValue)
}

// notify marks dependents dirty and runs observers, outside the value lock
func (s *State[T]) notify(value T) {
	s.depsMu.RLock()
	deps := make([]*scheduler.Fiber, 0, len(s.deps))
	for _, fiber := range s.deps {
		deps = append(deps, fiber)
	}
	observers := make([]func(T), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.depsMu.RUnlock()

	if debugLog != nil {
		debugLog("[State] Found", len(deps), "dependent fibers")
	}

	for _, fiber := range deps {
		markDirtyOrBatch(s.scheduler, fiber)
	}
	for _, fn := range observers {
		fn(value)
	}
}

// Observe registers fn to run after every change. The returned function
// removes it and is safe to call more than once.
func (s *State[T]) Observe(fn func(T)) (release func()) {
	s.depsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.depsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.depsMu.Lock()
			delete(s.observers, id)
			s.depsMu.Unlock()
		})
	}
}

// Subscribe adds a fiber as a dependency
func (s *State[T]) Subscribe(fiber *scheduler.Fiber) {
	if fiber == nil {
		return
	}

	s.depsMu.Lock()
	defer s.depsMu.Unlock()

	s.deps[fiber.ID()] = fiber
	if debugLog != nil {
		debugLog("[State] Subscribed fiber", fiber.ID(), "to state, total deps:", len(s.deps))
	}
}

// Unsubscribe removes a fiber as a dependency
func (s *State[T]) Unsubscribe(fiber *scheduler.Fiber) {
	if fiber == nil {
		return
	}

	s.depsMu.Lock()
	defer s.depsMu.Unlock()

	delete(s.deps, fiber.ID())
}

// Dependents returns how many fibers and observers are attached
func (s *State[T]) Dependents() int {
	s.depsMu.RLock()
	defer s.depsMu.RUnlock()
	return len(s.deps) + len(s.observers)
}

// batchContext holds the current batch state
var batchContext atomic.Pointer[Batch]

// Batch collects dirty fibers so several updates cause one render each
type Batch struct {
	scheduler   Scheduler
	dirtyFibers map[uint32]*scheduler.Fiber
	mu          sync.Mutex
	active      bool
}

// NewBatch creates a new batch context
func NewBatch(sched Scheduler) *Batch {
	return &Batch{
		scheduler:   sched,
		dirtyFibers: make(map[uint32]*scheduler.Fiber),
		active:      true,
	}
}

// Add adds a fiber to the batch
func (b *Batch) Add(fiber *scheduler.Fiber) {
	if fiber == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return
	}
	b.dirtyFibers[fiber.ID()] = fiber
}

// Commit marks every collected fiber dirty
func (b *Batch) Commit() {
	b.mu.Lock()
	b.active = false
	fibers := make([]*scheduler.Fiber, 0, len(b.dirtyFibers))
	for _, fiber := range b.dirtyFibers {
		fibers = append(fibers, fiber)
	}
	b.dirtyFibers = nil
	b.mu.Unlock()

	if b.scheduler == nil {
		return
	}
	for _, fiber := range fibers {
		b.scheduler.MarkDirty(fiber)
	}
}

// RunBatch executes a function within a batch context
func RunBatch(sched Scheduler, fn func()) {
	batch := NewBatch(sched)
	oldBatch := batchContext.Swap(batch)

	defer func() {
		batchContext.Store(oldBatch)
		batch.Commit()
	}()

	fn()
}

// markDirtyOrBatch marks a fiber dirty or adds to current batch
func markDirtyOrBatch(sched Scheduler, fiber *scheduler.Fiber) {
	if batch := batchContext.Load(); batch != nil && batch.active {
		batch.Add(fiber)
		return
	}
	if sched == nil {
		if debugLog != nil {
			debugLog("[State] No scheduler for fiber", fiber.ID())
		}
		return
	}
	sched.MarkDirty(fiber)
}
