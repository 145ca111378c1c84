package host

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/biodockify/enginehost/internal/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEngine records how the host drives it.
type fakeEngine struct {
	mu           sync.Mutex
	started      chan struct{}
	startCtx     context.Context
	shutdowns    int
	ctxErrOnStop error
	blockStop    bool
	done         chan struct{}
	doneOnce     sync.Once
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		started: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (f *fakeEngine) Start(ctx context.Context) {
	f.mu.Lock()
	f.startCtx = ctx
	f.mu.Unlock()
	close(f.started)
}

func (f *fakeEngine) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	f.shutdowns++
	f.ctxErrOnStop = f.startCtx.Err()
	block := f.blockStop
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.stop()
	return nil
}

func (f *fakeEngine) Done() <-chan struct{} {
	return f.done
}

func (f *fakeEngine) stop() {
	f.doneOnce.Do(func() { close(f.done) })
}

func (f *fakeEngine) shutdownCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shutdowns
}

// notifyRecorder captures sd_notify states.
type notifyRecorder struct {
	mu     sync.Mutex
	states []string
}

func (n *notifyRecorder) notify(state string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, state)
	return true, nil
}

func (n *notifyRecorder) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.states)
}

func startHost(t *testing.T, ctx context.Context, h *Host) <-chan error {
	t.Helper()
	result := make(chan error, 1)
	go func() { result <- h.Run(ctx) }()
	return result
}

func waitRun(t *testing.T, result <-chan error) error {
	t.Helper()
	select {
	case err := <-result:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

func TestHostQuitShutsDownEngine(t *testing.T) {
	engine := newFakeEngine()
	rec := &notifyRecorder{}
	h := New(engine, Options{Notify: rec.notify, Logger: testLogger(), WatchdogInterval: -1})

	result := startHost(t, context.Background(), h)
	<-engine.started

	h.Quit()
	h.Quit()

	if err := waitRun(t, result); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if n := engine.shutdownCount(); n != 1 {
		t.Errorf("expected 1 shutdown, got %d", n)
	}

	want := []string{"READY=1", "STOPPING=1"}
	if got := rec.snapshot(); !slices.Equal(got, want) {
		t.Errorf("expected notify %v, got %v", want, got)
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done should be closed after Run returns")
	}
}

func TestHostWindowSignalsDoNotStopEngine(t *testing.T) {
	engine := newFakeEngine()
	bus := events.New()
	visibility := make(chan bool, 4)
	unsub := bus.Subscribe(func(e events.WindowVisibilityEvent) { visibility <- e.Visible })
	defer unsub()

	h := New(engine, Options{
		Notify:           (&notifyRecorder{}).notify,
		Logger:           testLogger(),
		EventBus:         bus,
		WatchdogInterval: -1,
	})
	result := startHost(t, context.Background(), h)
	<-engine.started

	h.HideWindow()
	h.HideWindow() // no change, no event
	h.ShowWindow()

	for _, want := range []bool{false, true} {
		select {
		case got := <-visibility:
			if got != want {
				t.Errorf("expected visible=%v, got %v", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for window event")
		}
	}

	if n := engine.shutdownCount(); n != 0 {
		t.Errorf("window signals must not stop the engine, got %d shutdowns", n)
	}
	if !h.WindowVisible() {
		t.Error("expected window visible")
	}

	h.Quit()
	if err := waitRun(t, result); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestHostContextCancel(t *testing.T) {
	engine := newFakeEngine()
	h := New(engine, Options{Notify: (&notifyRecorder{}).notify, Logger: testLogger(), WatchdogInterval: -1})

	ctx, cancel := context.WithCancel(context.Background())
	result := startHost(t, ctx, h)
	<-engine.started
	cancel()

	if err := waitRun(t, result); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.shutdowns != 1 {
		t.Errorf("expected 1 shutdown, got %d", engine.shutdowns)
	}
	if engine.ctxErrOnStop != nil {
		t.Errorf("engine context should not be cancelled before shutdown, got %v", engine.ctxErrOnStop)
	}
}

func TestHostShutdownTimeout(t *testing.T) {
	engine := newFakeEngine()
	engine.blockStop = true
	h := New(engine, Options{
		Notify:           (&notifyRecorder{}).notify,
		Logger:           testLogger(),
		ShutdownTimeout:  50 * time.Millisecond,
		WatchdogInterval: -1,
	})

	result := startHost(t, context.Background(), h)
	<-engine.started
	h.Quit()

	err := waitRun(t, result)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestHostQuitBeforeRun(t *testing.T) {
	engine := newFakeEngine()
	h := New(engine, Options{Notify: (&notifyRecorder{}).notify, Logger: testLogger(), WatchdogInterval: -1})

	h.Quit()
	if err := waitRun(t, startHost(t, context.Background(), h)); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if n := engine.shutdownCount(); n != 1 {
		t.Errorf("expected 1 shutdown, got %d", n)
	}
}

func TestHostRunTwice(t *testing.T) {
	engine := newFakeEngine()
	h := New(engine, Options{Notify: (&notifyRecorder{}).notify, Logger: testLogger(), WatchdogInterval: -1})

	h.Quit()
	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if err := h.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestHostSurvivesEngineGivingUp(t *testing.T) {
	engine := newFakeEngine()
	h := New(engine, Options{Notify: (&notifyRecorder{}).notify, Logger: testLogger(), WatchdogInterval: -1})

	result := startHost(t, context.Background(), h)
	<-engine.started
	engine.stop()

	select {
	case err := <-result:
		t.Fatalf("host should keep running after the engine stopped, Run returned %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	h.Quit()
	if err := waitRun(t, result); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestHostWatchdogPings(t *testing.T) {
	engine := newFakeEngine()
	rec := &notifyRecorder{}
	h := New(engine, Options{Notify: rec.notify, Logger: testLogger(), WatchdogInterval: 10 * time.Millisecond})

	result := startHost(t, context.Background(), h)
	<-engine.started

	deadline := time.Now().Add(2 * time.Second)
	for !slices.Contains(rec.snapshot(), "WATCHDOG=1") {
		if time.Now().After(deadline) {
			t.Fatal("no watchdog ping sent")
		}
		time.Sleep(10 * time.Millisecond)
	}

	h.Quit()
	if err := waitRun(t, result); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}
