// Package watcher emits debounced change events for markdown files in the
// notes directory.
package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	Create EventOp = iota
	Write
	Remove
	Rename
)

// String returns the string representation of EventOp.
func (op EventOp) String() string {
	switch op {
	case Create:
		return "Create"
	case Write:
		return "Write"
	case Remove:
		return "Remove"
	case Rename:
		return "Rename"
	default:
		return "Unknown"
	}
}

// Event is one debounced change to a markdown note.
type Event struct {
	// Name is the note's filename, relative to the watched directory.
	Name string
	Op   EventOp
	Time time.Time
}

// Watcher watches the notes directory root for markdown changes. Derived
// artifacts (the generated subdirectory, graph documents) and hidden files
// are filtered out, so every emitted event names a user note.
type Watcher struct {
	dir    string
	fsw    *fsnotify.Watcher
	mu     sync.Mutex
	closed bool
}

// New creates a watcher bound to the notes directory.
func New(dir string) *Watcher {
	return &Watcher{dir: dir}
}

// Start begins watching and returns a channel of debounced events. The
// channel closes when the context is canceled or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	out := make(chan Event, 100)
	go w.eventLoop(ctx, fsw, out)
	return out, nil
}

// Close shuts down the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

// relevant reports whether the path names a user note worth syncing.
func (w *Watcher) relevant(path string) bool {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || rel != filepath.Base(rel) {
		return false // outside the root, or in a subdirectory
	}
	if strings.HasPrefix(rel, ".") || !strings.HasSuffix(rel, ".md") {
		return false
	}
	return true
}

const debounceWindow = 100 * time.Millisecond

func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Event) {
	defer close(out)

	// Debounce state: one pending event and timer per filename.
	type pending struct {
		event Event
		timer *time.Timer
	}
	pendingEvents := make(map[string]*pending)
	var mu sync.Mutex

	emit := func(evt Event) {
		select {
		case out <- evt:
		case <-ctx.Done():
		}
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, p := range pendingEvents {
				p.timer.Stop()
			}
			mu.Unlock()
			return

		case fsEvent, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(fsEvent.Name) {
				continue
			}
			op, valid := convertOp(fsEvent.Op)
			if !valid {
				continue
			}

			name := filepath.Base(fsEvent.Name)
			evt := Event{Name: name, Op: op, Time: time.Now()}

			// Debounce: reset the timer for this filename.
			mu.Lock()
			if p, exists := pendingEvents[name]; exists {
				p.timer.Stop()
				p.event = evt
			} else {
				p = &pending{event: evt}
				pendingEvents[name] = p
			}
			pendingEvents[name].timer = time.AfterFunc(debounceWindow, func() {
				mu.Lock()
				e := pendingEvents[name]
				delete(pendingEvents, name)
				mu.Unlock()
				if e != nil {
					emit(e.event)
				}
			})
			mu.Unlock()

		case _, ok := <-fsw.Errors:
			if !ok {
				return
			}
			// Keep watching through transient errors.
		}
	}
}

func convertOp(op fsnotify.Op) (EventOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return Create, true
	case op.Has(fsnotify.Write):
		return Write, true
	case op.Has(fsnotify.Remove):
		return Remove, true
	case op.Has(fsnotify.Rename):
		return Rename, true
	default:
		return 0, false
	}
}
