// Package highlight holds the committed selection of an explorer session and
// the channel charts use to change it.
package highlight

import (
	"log"
	"sync"

	"github.com/recera/pivot/pkg/domain"
)

// Clicker is how a chart commits selections. Calls are fire and forget; the
// chart learns the outcome from the next highlight it is rendered with.
type Clicker interface {
	SaveHighlight(clauses []domain.Clause, key string)
	DropHighlight()
	AcceptHighlight()
}

// Store is an in-memory Clicker. A saved highlight is pending until it is
// accepted, at which point its clauses are merged into the filter.
type Store struct {
	mu        sync.RWMutex
	highlight *domain.Highlight
	filter    domain.Filter
	version   uint64

	listeners map[uint64]func()
	nextID    uint64
	verbose   bool
}

// NewStore creates a store starting from filter
func NewStore(filter domain.Filter) *Store {
	return &Store{filter: filter, listeners: make(map[uint64]func())}
}

// SetVerbose logs every change
func (s *Store) SetVerbose(v bool) {
	s.mu.Lock()
	s.verbose = v
	s.mu.Unlock()
}

// Highlight returns the pending highlight, or nil
func (s *Store) Highlight() *domain.Highlight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.highlight == nil {
		return nil
	}
	h := *s.highlight
	return &h
}

// Filter returns the accepted filter
func (s *Store) Filter() domain.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Version increments on every change
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) SaveHighlight(clauses []domain.Clause, key string) {
	cs := make([]domain.Clause, len(clauses))
	copy(cs, clauses)
	s.change(func() bool {
		s.highlight = &domain.Highlight{Clauses: cs, Key: key}
		return true
	}, "save", key)
}

func (s *Store) DropHighlight() {
	s.change(func() bool {
		if s.highlight == nil {
			return false
		}
		s.highlight = nil
		return true
	}, "drop", "")
}

func (s *Store) AcceptHighlight() {
	s.change(func() bool {
		if s.highlight == nil {
			return false
		}
		s.filter = s.filter.Merge(s.highlight.Clauses...)
		s.highlight = nil
		return true
	}, "accept", "")
}

// SetFilter replaces the accepted filter and discards any pending highlight
func (s *Store) SetFilter(f domain.Filter) {
	s.change(func() bool {
		s.filter = f
		s.highlight = nil
		return true
	}, "filter", "")
}

func (s *Store) change(apply func() bool, op, key string) {
	s.mu.Lock()
	if !apply() {
		s.mu.Unlock()
		return
	}
	s.version++
	verbose := s.verbose
	listeners := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	if verbose {
		log.Printf("[Highlight] %s %s", op, key)
	}
	for _, fn := range listeners {
		fn()
	}
}

// OnChange registers fn to run after every change. The returned function
// unregisters it and may be called more than once.
func (s *Store) OnChange(fn func()) (release func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Recorder is a Clicker that only remembers calls, for tests and dry runs
type Recorder struct {
	mu    sync.Mutex
	Calls []Call
}

// Call is one recorded Clicker call
type Call struct {
	Op      string
	Clauses []domain.Clause
	Key     string
}

func (r *Recorder) SaveHighlight(clauses []domain.Clause, key string) {
	r.record(Call{Op: "save", Clauses: clauses, Key: key})
}

func (r *Recorder) DropHighlight() { r.record(Call{Op: "drop"}) }

func (r *Recorder) AcceptHighlight() { r.record(Call{Op: "accept"}) }

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	r.Calls = append(r.Calls, c)
	r.mu.Unlock()
}
