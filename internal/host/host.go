package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/biodockify/enginehost/internal/events"
	"github.com/biodockify/enginehost/internal/logging"
	"github.com/biodockify/enginehost/internal/metrics"
)

// DefaultShutdownTimeout bounds how long Run waits for the engine to stop.
const DefaultShutdownTimeout = 15 * time.Second

const windowQueueSize = 8

// ErrAlreadyRunning is returned by Run when called a second time.
var ErrAlreadyRunning = errors.New("host already running")

// Engine is the part of the supervisor the host drives.
type Engine interface {
	Start(ctx context.Context)
	Shutdown(ctx context.Context) error
	Done() <-chan struct{}
}

// NotifyFunc sends a state string to the service manager.
type NotifyFunc func(state string) (bool, error)

// Options configures a Host.
type Options struct {
	// ShutdownTimeout bounds the engine shutdown on quit (default 15s).
	ShutdownTimeout time.Duration

	// Signals that quit the host (default SIGINT and SIGTERM).
	Signals []os.Signal

	// Notify reports READY/STOPPING/WATCHDOG. Defaults to sd_notify.
	Notify NotifyFunc

	// WatchdogInterval overrides the systemd watchdog period. Zero asks
	// systemd (WATCHDOG_USEC); negative disables pings.
	WatchdogInterval time.Duration

	// EventBus receives window visibility events (optional).
	EventBus *events.Bus

	// Logger for host events. If nil, a discard logger is used.
	Logger logging.Logger
}

// Host delivers host lifecycle signals to the engine supervisor.
type Host struct {
	engine  Engine
	opts    Options
	logger  logging.Logger
	visible atomic.Bool

	runOnce  sync.Once
	quitOnce sync.Once
	quitCh   chan struct{}
	windowCh chan bool
	done     chan struct{}
}

// New creates a host for engine. The window starts visible.
func New(engine Engine, opts Options) *Host {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if len(opts.Signals) == 0 {
		opts.Signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	if opts.Notify == nil {
		opts.Notify = func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	h := &Host{
		engine:   engine,
		opts:     opts,
		logger:   logger,
		quitCh:   make(chan struct{}),
		windowCh: make(chan bool, windowQueueSize),
		done:     make(chan struct{}),
	}
	h.visible.Store(true)
	return h
}

// Run starts the engine supervisor and blocks until the host quits, an OS
// signal arrives, or ctx is cancelled. The engine is then shut down within
// ShutdownTimeout.
func (h *Host) Run(ctx context.Context) error {
	err := ErrAlreadyRunning
	h.runOnce.Do(func() {
		defer close(h.done)
		err = h.run(ctx)
	})
	return err
}

func (h *Host) run(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, h.opts.Signals...)
	defer signal.Stop(sigCh)

	// Shutdown is driven from here with its own deadline, so the
	// supervisor must not see ctx's cancellation first.
	h.engine.Start(context.WithoutCancel(ctx))
	h.logger.Info("Host started")
	h.notify(daemon.SdNotifyReady)

	var watchdog <-chan time.Time
	if interval := h.watchdogInterval(); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		watchdog = ticker.C
		h.logger.Debug("Watchdog enabled", "interval", interval)
	}

	engineDone := h.engine.Done()
	reason := ""
	for reason == "" {
		select {
		case <-h.quitCh:
			reason = "quit requested"
		case sig := <-sigCh:
			reason = "signal " + sig.String()
		case <-ctx.Done():
			reason = "context cancelled"
		case visible := <-h.windowCh:
			h.setWindowVisible(visible)
		case <-watchdog:
			h.notify(daemon.SdNotifyWatchdog)
		case <-engineDone:
			// The supervisor gave up. The host stays up so the UI can
			// still report it.
			h.logger.Error("Engine supervisor stopped, engine will not be restarted")
			engineDone = nil
		}
	}

	h.logger.Info("Host shutting down", "reason", reason)
	h.notify(daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.opts.ShutdownTimeout)
	defer cancel()
	if err := h.engine.Shutdown(shutdownCtx); err != nil {
		h.logger.Error("Engine shutdown did not complete", "error", err, "timeout", h.opts.ShutdownTimeout)
		return fmt.Errorf("engine shutdown: %w", err)
	}

	h.logger.Info("Host stopped")
	return nil
}

// Quit asks the host to shut down. Safe to call from any goroutine, more
// than once, and before Run.
func (h *Host) Quit() {
	h.quitOnce.Do(func() {
		h.logger.Info("Quit requested")
		close(h.quitCh)
	})
}

// HideWindow reports that the window was closed or hidden. The engine keeps
// running.
func (h *Host) HideWindow() {
	h.sendWindow(false)
}

// ShowWindow reports that the window was shown again.
func (h *Host) ShowWindow() {
	h.sendWindow(true)
}

// WindowVisible reports the last window state handled by Run.
func (h *Host) WindowVisible() bool {
	return h.visible.Load()
}

// Done is closed when Run returns.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

func (h *Host) sendWindow(visible bool) {
	select {
	case h.windowCh <- visible:
	default:
		h.logger.Warn("Window signal queue full, dropping", "visible", visible)
	}
}

func (h *Host) setWindowVisible(visible bool) {
	if h.visible.Swap(visible) == visible {
		return
	}
	if visible {
		h.logger.Info("Window shown")
	} else {
		h.logger.Info("Window hidden, engine keeps running")
	}
	metrics.SetWindowVisible(visible)
	if h.opts.EventBus != nil {
		h.opts.EventBus.Publish(events.WindowVisibilityEvent{
			Visible:   visible,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}

func (h *Host) notify(state string) {
	sent, err := h.opts.Notify(state)
	if err != nil {
		h.logger.Warn("Failed to notify service manager", "state", state, "error", err)
		return
	}
	if sent {
		h.logger.Debug("Notified service manager", "state", state)
	}
}

func (h *Host) watchdogInterval() time.Duration {
	if h.opts.WatchdogInterval != 0 {
		return h.opts.WatchdogInterval
	}
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return 0
	}
	// Ping at half the deadline.
	return interval / 2
}
