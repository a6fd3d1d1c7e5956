// Package watch re-runs verification when contract documents change on
// disk. Changes are debounced so editor save bursts trigger one run.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher observes a fixed set of contract documents and emits batches
// of changed paths. The parent directories are watched rather than the
// files themselves so editors that replace files via rename are seen.
type Watcher struct {
	paths    map[string]struct{} // absolute document paths
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]struct{}

	events chan []string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long to wait for more changes before emitting.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// NewWatcher creates a watcher over the given document paths.
func NewWatcher(paths []string, opts ...Option) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no documents to watch")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		paths:    make(map[string]struct{}, len(paths)),
		debounce: defaultDebounce,
		watcher:  fsw,
		logger:   slog.Default(),
		pending:  make(map[string]struct{}),
		events:   make(chan []string, 16),
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		w.paths[abs] = struct{}{}
	}
	return w, nil
}

// Events returns the channel of changed-path batches.
func (w *Watcher) Events() <-chan []string {
	return w.events
}

// Start adds the directory watches and begins processing events until
// ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := make(map[string]struct{})
	for p := range w.paths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		w.logger.Debug("watching directory", "path", dir)
	}

	go w.loop(ctx)

	w.logger.Info("document watcher started",
		"documents", len(w.paths),
		"debounce", w.debounce)
	return nil
}

// Stop closes the underlying watcher; the processing loop drains and
// exits. The events channel is left open so a concurrent flush can
// never send on a closed channel.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if _, watched := w.paths[abs]; !watched {
		return
	}

	w.pendingMu.Lock()
	w.pending[abs] = struct{}{}
	w.pendingMu.Unlock()

	w.logger.Debug("document change detected",
		"path", abs,
		"op", event.Op.String())
}

func (w *Watcher) flush(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for p := range w.pending {
		batch = append(batch, p)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	sort.Strings(batch)
	select {
	case w.events <- batch:
	case <-ctx.Done():
	}
}
