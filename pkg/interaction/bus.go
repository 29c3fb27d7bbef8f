package interaction

import (
	"errors"
	"sync"
)

// ErrClosed is returned when listening on a closed Listeners
var ErrClosed = errors.New("interaction: listeners closed")

// Listeners is a Bus that fans an event out to its registered callbacks.
// Front-ends emit page-level events into it.
type Listeners struct {
	mu     sync.Mutex
	next   uint64
	byName map[string]map[uint64]func()
	closed bool
}

// NewListeners creates an empty bus
func NewListeners() *Listeners {
	return &Listeners{byName: make(map[string]map[uint64]func())}
}

func (l *Listeners) AddListener(event string, fn func()) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	id := l.next
	l.next++
	if l.byName[event] == nil {
		l.byName[event] = make(map[uint64]func())
	}
	l.byName[event][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.byName[event], id)
			l.mu.Unlock()
		})
	}, nil
}

// Emit calls every listener registered for event
func (l *Listeners) Emit(event string) {
	l.mu.Lock()
	fns := make([]func(), 0, len(l.byName[event]))
	for _, fn := range l.byName[event] {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Count returns how many listeners are registered across all events
func (l *Listeners) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.byName {
		n += len(m)
	}
	return n
}

// Close refuses further registrations. Existing listeners stay until removed.
func (l *Listeners) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}
