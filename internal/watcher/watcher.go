// Package watcher reports changes to individual files, such as the config
// file, so running services can reload them.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 250 * time.Millisecond

type Watcher interface {
	Watch(ctx context.Context, path string) error
	Stop() error
	OnChange(callback func(path string, event EventType))
}

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

type pendingEvent struct {
	event EventType
	seen  time.Time
}

// FileWatcher watches single files. It watches the parent directory so that
// editors which save by rename are still seen, and coalesces bursts of events
// per file into one callback after the debounce interval.
type FileWatcher struct {
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	files    map[string]bool
	pending  map[string]pendingEvent
	callback func(path string, event EventType)
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewFileWatcher(debounce time.Duration, logger *slog.Logger) *FileWatcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &FileWatcher{
		logger:   logger,
		debounce: debounce,
		files:    make(map[string]bool),
		pending:  make(map[string]pendingEvent),
	}
}

func (w *FileWatcher) OnChange(callback func(path string, event EventType)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = callback
}

// Watch adds path to the watched set, starting the event loop on first use.
// The file itself need not exist yet.
func (w *FileWatcher) Watch(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve watch path: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw == nil {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		w.fsw = fsw
		w.stopCh = make(chan struct{})
		w.doneCh = make(chan struct{})
		go w.run(ctx, fsw, w.stopCh, w.doneCh)
	}

	if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	w.files[abs] = true

	if w.logger != nil {
		w.logger.Debug("watching file", "path", abs)
	}
	return nil
}

// Stop ends the event loop and releases the underlying watcher. Pending
// debounced events are dropped.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	fsw, stopCh, doneCh := w.fsw, w.stopCh, w.doneCh
	w.fsw, w.stopCh, w.doneCh = nil, nil, nil
	w.mu.Unlock()

	if fsw == nil {
		return nil
	}
	close(stopCh)
	<-doneCh
	return fsw.Close()
}

func (w *FileWatcher) run(ctx context.Context, fsw *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.record(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("file watcher error", "error", err)
			}
		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

func (w *FileWatcher) record(event fsnotify.Event) {
	var et EventType
	switch {
	case event.Has(fsnotify.Create):
		et = EventCreate
	case event.Has(fsnotify.Write):
		et = EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		et = EventDelete
	default:
		return
	}

	name := filepath.Clean(event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.files[name] {
		return
	}
	// A create followed by writes is still a create.
	if prev, ok := w.pending[name]; ok && prev.event == EventCreate && et == EventModify {
		et = EventCreate
	}
	w.pending[name] = pendingEvent{event: et, seen: time.Now()}
}

func (w *FileWatcher) flush(now time.Time) {
	type ready struct {
		path  string
		event EventType
	}

	w.mu.Lock()
	var due []ready
	for path, p := range w.pending {
		if now.Sub(p.seen) >= w.debounce {
			due = append(due, ready{path, p.event})
			delete(w.pending, path)
		}
	}
	cb := w.callback
	w.mu.Unlock()

	if cb == nil {
		return
	}
	for _, r := range due {
		if w.logger != nil {
			w.logger.Info("watched file changed", "path", r.path, "event", r.event.String())
		}
		cb(r.path, r.event)
	}
}
