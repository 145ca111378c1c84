package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type testConfig struct {
	Name  string `toml:"name"`
	Value int    `toml:"value"`
}

func loadTestConfig(path string) (testConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return testConfig{}, err
	}
	var cfg testConfig
	err = toml.Unmarshal(data, &cfg)
	return cfg, err
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatcher[T any](t *testing.T, w *Watcher[T]) {
	t.Helper()
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	})
	// Let fsnotify register the directory watch.
	time.Sleep(100 * time.Millisecond)
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigWatcher_BasicReload(t *testing.T) {
	path := writeConfig(t, "name = \"initial\"\nvalue = 1\n")

	received := make(chan testConfig, 1)
	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](50*time.Millisecond))
	watcher.OnReload(func(cfg testConfig) {
		received <- cfg
	})
	startWatcher(t, watcher)

	mustWrite(t, path, "name = \"updated\"\nvalue = 42\n")

	select {
	case cfg := <-received:
		if cfg.Name != "updated" || cfg.Value != 42 {
			t.Errorf("got %+v, want name=updated, value=42", cfg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}
}

func TestConfigWatcher_AtomicReplace(t *testing.T) {
	path := writeConfig(t, "value = 1\n")

	received := make(chan testConfig, 4)
	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](50*time.Millisecond))
	watcher.OnReload(func(cfg testConfig) {
		received <- cfg
	})
	startWatcher(t, watcher)

	// Editors save by writing a sibling file and renaming it over the target.
	tmp := filepath.Join(filepath.Dir(path), ".config.toml.swp")
	mustWrite(t, tmp, "value = 7\n")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-received:
		if cfg.Value != 7 {
			t.Errorf("value = %d, want 7", cfg.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestConfigWatcher_IgnoresSiblings(t *testing.T) {
	path := writeConfig(t, "value = 1\n")

	var count atomic.Int32
	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](50*time.Millisecond))
	watcher.OnReload(func(_ testConfig) {
		count.Add(1)
	})
	startWatcher(t, watcher)

	mustWrite(t, filepath.Join(filepath.Dir(path), "other.toml"), "value = 2\n")
	time.Sleep(300 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected no reloads for sibling file, got %d", got)
	}
}

func TestConfigWatcher_FreshConfig(t *testing.T) {
	path := writeConfig(t, "value = 1\n")

	var loadCount atomic.Int32
	loader := func(p string) (testConfig, error) {
		loadCount.Add(1)
		return loadTestConfig(p)
	}

	received := make(chan testConfig, 10)
	watcher := NewConfigWatcher(path, loader, newTestLogger(),
		WithDebounce[testConfig](50*time.Millisecond))
	watcher.OnReload(func(cfg testConfig) {
		received <- cfg
	})
	startWatcher(t, watcher)

	mustWrite(t, path, "value = 10\n")
	<-received

	time.Sleep(100 * time.Millisecond)
	mustWrite(t, path, "value = 20\n")
	cfg := <-received

	if cfg.Value != 20 {
		t.Errorf("expected value=20, got %d", cfg.Value)
	}
	if got := loadCount.Load(); got < 2 {
		t.Errorf("expected at least 2 loads, got %d", got)
	}
}

func TestConfigWatcher_MultipleHandlers(t *testing.T) {
	path := writeConfig(t, "name = \"test\"\nvalue = 1\n")

	var count atomic.Int32
	var configs []testConfig
	var mu sync.Mutex

	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](50*time.Millisecond))
	for range 3 {
		watcher.OnReload(func(cfg testConfig) {
			count.Add(1)
			mu.Lock()
			configs = append(configs, cfg)
			mu.Unlock()
		})
	}
	startWatcher(t, watcher)

	mustWrite(t, path, "name = \"new\"\nvalue = 2\n")
	time.Sleep(300 * time.Millisecond)

	if got := count.Load(); got != 3 {
		t.Errorf("expected 3 handlers called, got %d", got)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, cfg := range configs {
		if cfg.Name != "new" || cfg.Value != 2 {
			t.Errorf("handler %d got wrong config: %+v", i, cfg)
		}
	}
}

func TestConfigWatcher_Unsubscribe(t *testing.T) {
	path := writeConfig(t, "value = 1\n")

	var count1, count2 atomic.Int32
	var lastValue1, lastValue2 atomic.Int32
	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](50*time.Millisecond))

	watcher.OnReload(func(cfg testConfig) {
		lastValue1.Store(int32(cfg.Value))
		count1.Add(1)
	})
	unsub2 := watcher.OnReload(func(cfg testConfig) {
		lastValue2.Store(int32(cfg.Value))
		count2.Add(1)
	})
	startWatcher(t, watcher)

	mustWrite(t, path, "value = 10\n")
	time.Sleep(300 * time.Millisecond)

	unsub2()

	mustWrite(t, path, "value = 20\n")
	time.Sleep(300 * time.Millisecond)

	if got := count1.Load(); got != 2 {
		t.Errorf("handler1: expected 2 calls, got %d", got)
	}
	if got := count2.Load(); got != 1 {
		t.Errorf("handler2: expected 1 call, got %d", got)
	}
	if got := lastValue1.Load(); got != 20 {
		t.Errorf("handler1: expected last value 20, got %d", got)
	}
	if got := lastValue2.Load(); got != 10 {
		t.Errorf("handler2: expected last value 10, got %d", got)
	}
}

func TestConfigWatcher_ErrorHandler(t *testing.T) {
	path := writeConfig(t, "name = \"valid\"\nvalue = 1\n")

	errorReceived := make(chan error, 1)
	configReceived := make(chan testConfig, 1)

	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](50*time.Millisecond),
		WithErrorHandler[testConfig](func(err error) {
			select {
			case errorReceived <- err:
			default:
			}
		}),
	)
	watcher.OnReload(func(cfg testConfig) {
		configReceived <- cfg
	})
	startWatcher(t, watcher)

	mustWrite(t, path, "invalid toml [[[")

	select {
	case <-errorReceived:
	case <-configReceived:
		t.Fatal("config handler should not be called on error")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	path := writeConfig(t, "value = 0\n")

	var count atomic.Int32
	var lastValue atomic.Int32
	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](200*time.Millisecond))
	watcher.OnReload(func(cfg testConfig) {
		count.Add(1)
		lastValue.Store(int32(cfg.Value))
	})
	startWatcher(t, watcher)

	for i := 1; i <= 5; i++ {
		mustWrite(t, path, fmt.Sprintf("value = %d\n", i))
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 debounced call, got %d", got)
	}
	if got := lastValue.Load(); got != 5 {
		t.Errorf("expected final value 5, got %d", got)
	}
}

func TestConfigWatcher_EngineConfigReload(t *testing.T) {
	path := writeConfig(t, "[engine]\npath = \"/opt/engine/one\"\n")

	received := make(chan EngineConfig, 1)
	watcher := NewConfigWatcher(path, LoadEngineConfig, newTestLogger(),
		WithDebounce[EngineConfig](50*time.Millisecond))
	watcher.OnReload(func(cfg EngineConfig) {
		received <- cfg
	})
	startWatcher(t, watcher)

	mustWrite(t, path, "[engine]\npath = \"/opt/engine/two\"\nargs = [\"--port\", \"8234\"]\n")

	select {
	case cfg := <-received:
		if cfg.Path != "/opt/engine/two" {
			t.Errorf("path = %q, want /opt/engine/two", cfg.Path)
		}
		if len(cfg.Args) != 2 || cfg.Args[1] != "8234" {
			t.Errorf("args = %v", cfg.Args)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for engine config reload")
	}
}

func TestConfigWatcher_Stop(t *testing.T) {
	path := writeConfig(t, "value = 1\n")

	var count atomic.Int32
	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](50*time.Millisecond))
	watcher.OnReload(func(_ testConfig) {
		count.Add(1)
	})

	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := watcher.Stop(); err != nil {
		t.Fatal(err)
	}

	mustWrite(t, path, "value = 99\n")
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 calls after stop, got %d", got)
	}
}

func TestConfigWatcher_StartTwice(t *testing.T) {
	path := writeConfig(t, "value = 1\n")

	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger())
	startWatcher(t, watcher)

	if err := watcher.Start(); err != ErrWatcherStarted {
		t.Errorf("second Start = %v, want ErrWatcherStarted", err)
	}
}

func TestConfigWatcher_RemoveThenRecreate(t *testing.T) {
	path := writeConfig(t, "value = 1\n")

	received := make(chan testConfig, 4)
	watcher := NewConfigWatcher(path, loadTestConfig, newTestLogger(),
		WithDebounce[testConfig](50*time.Millisecond))
	watcher.OnReload(func(cfg testConfig) {
		received <- cfg
	})
	startWatcher(t, watcher)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-received:
		t.Fatalf("unexpected reload after remove: %+v", cfg)
	case <-time.After(200 * time.Millisecond):
	}

	mustWrite(t, path, "value = 3\n")
	select {
	case cfg := <-received:
		if cfg.Value != 3 {
			t.Errorf("value = %d, want 3", cfg.Value)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after recreate")
	}
}
