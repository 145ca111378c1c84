package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func resetLogging(t *testing.T) {
	t.Helper()
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	logCallback = nil
	mutex.Unlock()
	t.Cleanup(func() {
		SetLogCallback(nil)
		_ = Close()
	})
}

func TestModuleLevelOverride(t *testing.T) {
	resetLogging(t)

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"supervisor": "debug",
			"http":       "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"supervisor", true, true, true},
		{"http", false, false, true},
		{"other", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()

			if got := handler.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, got, tt.wantDebug)
			}
			if got := handler.Enabled(context.Background(), slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, got, tt.wantInfo)
			}
			if got := handler.Enabled(context.Background(), slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetLogging(t)

	before := GetLogger("engine")
	if before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger created before Initialize should default to info")
	}

	Initialize(Config{
		Level:   "info",
		Modules: map[string]string{"engine": "debug"},
	})

	// The early logger shares the module LevelVar.
	if !before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("early logger should follow the module level set by Initialize")
	}
	if !GetLogger("engine").Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger after Initialize should have debug enabled")
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetLogging(t)
	Initialize(Config{Level: "info"})

	logger := GetLogger("host")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be off at info level")
	}

	if !SetModuleLevel("host", "debug") {
		t.Fatal("SetModuleLevel rejected a valid level")
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be on after SetModuleLevel")
	}
	if SetModuleLevel("host", "loud") {
		t.Error("SetModuleLevel accepted an invalid level")
	}
}

func TestBufferHandlerCallback(t *testing.T) {
	resetLogging(t)
	Initialize(Config{Level: "debug"})

	var mu sync.Mutex
	var received []LogEntry
	SetLogCallback(func(entry LogEntry) {
		mu.Lock()
		received = append(received, entry)
		mu.Unlock()
	})

	GetLogger("engine").Info("[ENGINE] listening", "run_id", "abc", "uptime", 1500*time.Millisecond)

	entries := GetBuffer().ReadAll()
	if len(entries) == 0 {
		t.Fatal("expected entry in ring buffer")
	}
	last := entries[len(entries)-1]
	if last.Module != "engine" {
		t.Errorf("expected module engine, got %q", last.Module)
	}
	if last.Message != "[ENGINE] listening" {
		t.Errorf("unexpected message %q", last.Message)
	}
	if last.Attributes["run_id"] != "abc" {
		t.Errorf("expected run_id attribute, got %v", last.Attributes)
	}
	if last.Attributes["uptime"] != "1.5s" {
		t.Errorf("expected duration rendered as string, got %v", last.Attributes["uptime"])
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0].Message != "[ENGINE] listening" {
		t.Errorf("callback got %+v", received)
	}
}

func TestInitializeWithFile(t *testing.T) {
	resetLogging(t)
	path := filepath.Join(t.TempDir(), "app.log")

	Initialize(Config{Level: "info", Format: "json", File: path})
	GetLogger("supervisor").Info("Spawning engine", "attempt", 1)
	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"Spawning engine"`) {
		t.Errorf("log file missing entry: %s", data)
	}
	if !strings.Contains(string(data), `"module":"supervisor"`) {
		t.Errorf("log file missing module attribute: %s", data)
	}
}

func TestMultiHandlerDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")

	output := buf.String()
	if count := strings.Count(output, "debug only message"); count != 1 {
		t.Errorf("Expected 1 debug message, got %d. Output: %s", count, output)
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			if tt.isNil {
				if got != nil {
					t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefaultLogFile(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	path, err := DefaultLogFile()
	if err != nil {
		t.Skipf("no user cache dir: %v", err)
	}
	if filepath.Base(path) != "app.log" || filepath.Base(filepath.Dir(path)) != "biodockify" {
		t.Errorf("DefaultLogFile() = %q", path)
	}
}
