package query

import (
	"context"
	"sync"

	"github.com/recera/pivot/pkg/domain"
)

// debugLog is set by the embedding program
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// Snapshot is what a chart renders from: the latest dataset, whether a
// newer one is on its way, and the last failure.
type Snapshot struct {
	Dataset *domain.Dataset
	Loading bool
	Err     *QueryError
}

// Loader fetches datasets for one chart. While a fetch is pending the
// previous dataset stays visible. Every fetch carries a token; results for
// anything but the latest token, or arriving after Close, are discarded.
type Loader struct {
	exec Executor

	// deliver orders onChange calls; each one reports the snapshot current
	// when it runs, so a late caller never overwrites a newer state
	deliver sync.Mutex

	mu       sync.Mutex
	token    uint64
	closed   bool
	snap     Snapshot
	onChange func(Snapshot)
}

// NewLoader creates a loader. onChange, if set, runs after every snapshot
// change, outside the loader's lock. Calls never overlap and must not start
// another fetch synchronously.
func NewLoader(exec Executor, onChange func(Snapshot)) *Loader {
	return &Loader{exec: exec, onChange: onChange}
}

// Snapshot returns the current snapshot
func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snap
}

// Begin marks a fetch as started and returns its token
func (l *Loader) Begin() uint64 {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0
	}
	l.token++
	t := l.token
	l.snap.Loading = true
	l.mu.Unlock()

	l.notify()
	return t
}

// Finish delivers the outcome of the fetch tagged token. It reports whether
// the result was accepted. On failure the previous dataset is kept.
func (l *Loader) Finish(token uint64, ds *domain.Dataset, err error) bool {
	l.mu.Lock()
	if l.closed || token == 0 || token != l.token {
		l.mu.Unlock()
		if debugLog != nil {
			debugLog("[Loader] Discarding stale result", token)
		}
		return false
	}
	l.snap.Loading = false
	if err != nil {
		l.snap.Err = AsQueryError(err)
	} else {
		l.snap.Dataset = ds
		l.snap.Err = nil
	}
	l.mu.Unlock()

	l.notify()
	return true
}

// Fetch runs q synchronously through Begin and Finish
func (l *Loader) Fetch(ctx context.Context, q Query) bool {
	t := l.Begin()
	if t == 0 {
		return false
	}
	ds, err := l.exec.Execute(ctx, q)
	return l.Finish(t, ds, err)
}

// Load runs q in the background. The returned channel receives whether the
// result was accepted and is then closed.
func (l *Loader) Load(ctx context.Context, q Query) <-chan bool {
	done := make(chan bool, 1)
	t := l.Begin()
	if t == 0 {
		done <- false
		close(done)
		return done
	}
	go func() {
		defer close(done)
		ds, err := l.exec.Execute(ctx, q)
		done <- l.Finish(t, ds, err)
	}()
	return done
}

// Close makes the loader drop every pending and future result
func (l *Loader) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

func (l *Loader) notify() {
	if l.onChange == nil {
		return
	}
	l.deliver.Lock()
	defer l.deliver.Unlock()
	l.onChange(l.Snapshot())
}
