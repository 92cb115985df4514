package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/docgraph/ingest/internal/logging"
)

// DefaultDebounce is how long a file must stay quiet before it is processed
const DefaultDebounce = 500 * time.Millisecond

// Triggers is the pair of handlers a local watcher drives
type Triggers interface {
	HandleIngest(ctx context.Context, raw json.RawMessage) (Status, error)
	HandleLink(ctx context.Context, ev LinkEvent) (Status, error)
}

// Watcher feeds PDF create and remove events from a local directory through
// the ingest and link handlers
type Watcher struct {
	dir      string
	triggers Triggers
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]string
	timers  map[string]*time.Timer
	ready   chan string
	done    chan struct{}

	// OnResult, when set, receives the final status of every processed file
	OnResult func(Status)
}

// NewWatcher creates a watcher for dir. A zero debounce uses DefaultDebounce.
func NewWatcher(dir string, triggers Triggers, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		triggers: triggers,
		debounce: debounce,
		logger:   logging.OrNop(logger),
		pending:  make(map[string]string),
		timers:   make(map[string]*time.Timer),
		ready:    make(chan string, 16),
		done:     make(chan struct{}),
	}
}

// Run watches until ctx is done. A Watcher runs once.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	defer close(w.done)
	w.logger.Info("watching directory", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.schedule(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", zap.Error(err))

		case path := <-w.ready:
			w.dispatch(ctx, path)
		}
	}
}

// schedule records the latest action for a file and restarts its quiet period
func (w *Watcher) schedule(event fsnotify.Event) {
	if !strings.EqualFold(filepath.Ext(event.Name), ".pdf") {
		return
	}

	var action string
	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		action = EventDeleted
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		action = EventCreated
	default:
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[event.Name] = action
	if t, ok := w.timers[event.Name]; ok {
		t.Stop()
	}
	name := event.Name
	w.timers[name] = time.AfterFunc(w.debounce, func() {
		select {
		case w.ready <- name:
		case <-w.done:
		}
	})
}

func (w *Watcher) take(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	action, ok := w.pending[path]
	delete(w.pending, path)
	delete(w.timers, path)
	return action, ok
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// dispatch runs the ingest step and then the link step for one file
func (w *Watcher) dispatch(ctx context.Context, path string) {
	action, ok := w.take(path)
	if !ok {
		return
	}

	raw, err := json.Marshal(IngestEvent{Filename: path, Event: action})
	if err != nil {
		w.logger.Error("failed to encode event", zap.String("path", path), zap.Error(err))
		return
	}

	status, err := w.triggers.HandleIngest(ctx, raw)
	if err != nil {
		w.logger.Error("ingest failed", zap.String("path", path), zap.Error(err))
		w.report(Status{Status: StatusError, Filename: filepath.Base(path), Message: err.Error()})
		return
	}
	if status.Status == StatusError {
		w.report(status)
		return
	}

	linked, err := w.triggers.HandleLink(ctx, LinkEvent{Filename: status.Filename, Status: status.Status})
	if err != nil {
		w.logger.Error("linking failed", zap.String("path", path), zap.Error(err))
		w.report(Status{Status: StatusError, Filename: status.Filename, Message: err.Error()})
		return
	}
	linked.Chunks = status.Chunks
	w.report(linked)
}

func (w *Watcher) report(s Status) {
	if w.OnResult != nil {
		w.OnResult(s)
	}
}
