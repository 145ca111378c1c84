package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/biodockify/enginehost/internal/logging"
)

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 1500 * time.Millisecond

// ErrWatcherStarted is returned by Start on a watcher that is already running.
var ErrWatcherStarted = errors.New("config watcher already started")

// Watcher reloads a config file when it changes and hands the result to
// typed handlers. The file is loaded fresh for every change.
//
// The parent directory is watched, so editors that save by renaming a new
// file over the old one are picked up too.
type Watcher[T any] struct {
	path     string
	debounce time.Duration
	loader   func(path string) (T, error)
	onError  func(error)
	logger   logging.Logger

	mu       sync.RWMutex
	handlers map[uint64]func(T)
	nextID   uint64

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
}

// WatcherOption configures a Watcher.
type WatcherOption[T any] func(*Watcher[T])

// WithDebounce sets how long the file must be quiet before it is reloaded.
func WithDebounce[T any](d time.Duration) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.debounce = d
	}
}

// WithErrorHandler sets a callback for load errors, which are otherwise
// only logged. Handlers are not called when loading fails.
func WithErrorHandler[T any](handler func(error)) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.onError = handler
	}
}

// NewConfigWatcher creates a watcher for path. Nothing is watched until Start.
func NewConfigWatcher[T any](
	path string,
	loader func(path string) (T, error),
	logger logging.Logger,
	opts ...WatcherOption[T],
) *Watcher[T] {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher[T]{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		loader:   loader,
		logger:   logger,
		handlers: make(map[uint64]func(T)),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers a handler and returns a function that removes it.
// Handlers run one after another on the watcher goroutine.
func (w *Watcher[T]) OnReload(handler func(T)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.handlers[id] = handler
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.handlers, id)
	}
}

// Start begins watching. It fails if the parent directory cannot be watched.
func (w *Watcher[T]) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return ErrWatcherStarted
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}
	w.watcher = fsw

	w.logger.Info("Config watcher started", "path", w.path, "debounce", w.debounce)
	go w.watch(fsw)
	return nil
}

// Stop stops watching. Pending reloads are discarded.
func (w *Watcher[T]) Stop() error {
	w.cancel()
	w.mu.RLock()
	fsw := w.watcher
	w.mu.RUnlock()
	if fsw != nil {
		return fsw.Close()
	}
	return nil
}

func (w *Watcher[T]) watch(fsw *fsnotify.Watcher) {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Config watcher stopped")
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				w.logger.Debug("Config file change detected", "op", event.Op.String())
				timer.Reset(w.debounce)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Replacing saves follow up with a Create.
				w.logger.Debug("Config file moved away, keeping current settings", "op", event.Op.String())
			}

		case <-timer.C:
			w.logger.Info("Config file changed, reloading")
			w.loadAndNotify()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

func (w *Watcher[T]) loadAndNotify() {
	cfg, err := w.loader(w.path)
	if err != nil {
		w.logger.Warn("Failed to load config", "path", w.path, "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.RLock()
	handlers := make([]func(T), 0, len(w.handlers))
	for _, h := range w.handlers {
		handlers = append(handlers, h)
	}
	w.mu.RUnlock()

	for _, handler := range handlers {
		handler(cfg)
	}
}
