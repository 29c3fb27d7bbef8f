// Package watch reports when a database file changes on disk.
package watch

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDelay is how long writes must settle before a change is reported
const DefaultDelay = 200 * time.Millisecond

// Watcher watches one file. SQLite rewrites its journal and WAL next to the
// database, so those count as changes to the file too.
type Watcher struct {
	fs      *fsnotify.Watcher
	path    string
	delay   time.Duration
	changes chan struct{}
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// New watches path. Bursts of writes within delay are reported once.
func New(path string, delay time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// The directory survives the file being replaced
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	if delay <= 0 {
		delay = DefaultDelay
	}

	w := &Watcher{
		fs:      fs,
		path:    abs,
		delay:   delay,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Changes receives a value after each settled burst of writes. A slow
// reader sees one pending change, never a backlog.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Path returns the watched file
func (w *Watcher) Path() string {
	return w.path
}

// Close stops watching
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) relevant(name string) bool {
	name = filepath.Clean(name)
	if name == w.path {
		return true
	}
	for _, suffix := range []string{"-wal", "-journal", "-shm"} {
		if name == w.path+suffix {
			return true
		}
	}
	return false
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer
	defer debounce.Stop()

	pending := false
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod || !w.relevant(event.Name) {
				continue
			}
			pending = true
			debounce.Reset(w.delay)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("[Watch] Watcher error: %v", err)

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			select {
			case w.changes <- struct{}{}:
			default:
			}

		case <-w.done:
			return
		}
	}
}
