package notify

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// KeyOp represents the kind of change observed on a store key.
type KeyOp int

const (
	// OpSet indicates a key was written (created or overwritten).
	OpSet KeyOp = iota
	// OpRemove indicates a key was deleted.
	OpRemove
)

// String returns a human-readable representation of the operation.
func (op KeyOp) String() string {
	switch op {
	case OpSet:
		return "set"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// KeyEvent is a change to a shared store key made by another context.
type KeyEvent struct {
	// Key is the store key that changed.
	Key string
	// Op is the operation that occurred.
	Op KeyOp
}

// Watcher observes the shared store directory and emits KeyEvents for
// writes made by other contexts. It uses fsnotify for cross-platform
// file system event monitoring.
//
// The filesystem reports the watching process's own writes too, which
// the browser's storage-event contract does not; the selfWrite filter
// restores that contract by dropping events for keys this process
// wrote itself.
type Watcher struct {
	watcher   *fsnotify.Watcher
	events    chan KeyEvent
	errors    chan error
	done      chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   bool
	dir       string
	selfWrite func(key string) bool
}

// NewWatcher creates a Watcher. selfWrite reports whether this process
// recently wrote the given key; it may be nil, in which case no events
// are filtered. The watcher must be started with Start() before it will
// emit events.
func NewWatcher(selfWrite func(key string) bool) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:   fsw,
		events:    make(chan KeyEvent, 100),
		errors:    make(chan error, 10),
		done:      make(chan struct{}),
		selfWrite: selfWrite,
	}, nil
}

// Start begins watching the store directory for key file changes.
func (w *Watcher) Start(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	w.dir = dir
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch store directory %s: %w", dir, err)
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop stops watching and cleans up resources. It blocks until the
// event processing goroutine has exited.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.wg.Wait()

	close(w.events)
	close(w.errors)

	return nil
}

// Events returns the channel that emits KeyEvent notifications.
// The channel is closed when the watcher is stopped.
func (w *Watcher) Events() <-chan KeyEvent {
	return w.events
}

// Errors returns the channel that emits watcher errors.
// The channel is closed when the watcher is stopped.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// IsRunning returns true if the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// processEvents converts fsnotify events to KeyEvents.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if keyEvent, ok := w.convertEvent(event); ok {
				select {
				case w.events <- keyEvent:
				case <-w.done:
					return
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			select {
			case w.errors <- err:
			case <-w.done:
				return
			}
		}
	}
}

// convertEvent maps an fsnotify event onto a store key change.
// Returns ok=false for events that should be ignored: non-key files,
// temp files from atomic writes, this process's own writes, and
// operations with no storage meaning (chmod).
func (w *Watcher) convertEvent(event fsnotify.Event) (KeyEvent, bool) {
	base := filepath.Base(event.Name)
	if !strings.HasSuffix(base, ".json") || strings.HasPrefix(base, ".") {
		return KeyEvent{}, false
	}
	key := strings.TrimSuffix(base, ".json")

	var op KeyOp
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		op = OpSet
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		// Atomic writes land as renames onto the key file; a rename OF
		// the key file away is a removal.
		op = OpRemove
	default:
		return KeyEvent{}, false
	}

	if w.selfWrite != nil && w.selfWrite(key) {
		return KeyEvent{}, false
	}

	return KeyEvent{Key: key, Op: op}, true
}
