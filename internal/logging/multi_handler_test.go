package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failingHandler struct {
	slog.Handler
	err error
}

func (f failingHandler) Handle(context.Context, slog.Record) error {
	return f.err
}

func TestMultiHandlerJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	sinkErr := errors.New("journal unavailable")

	handler := NewMultiHandler(
		failingHandler{Handler: slog.NewTextHandler(&buf, nil), err: sinkErr},
		nil,
		slog.NewTextHandler(&buf, nil),
	)
	if len(handler.handlers) != 2 {
		t.Fatalf("expected nil handler to be dropped, got %d sinks", len(handler.handlers))
	}

	err := handler.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "still written", 0))
	if !errors.Is(err, sinkErr) {
		t.Errorf("Handle error = %v, want %v", err, sinkErr)
	}
	if !strings.Contains(buf.String(), "still written") {
		t.Errorf("healthy sink should still receive the record, got %q", buf.String())
	}
}

func TestMultiHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	handler := NewMultiHandler(slog.NewTextHandler(&buf, nil))

	if handler.WithGroup("") != slog.Handler(handler) {
		t.Error("empty group should return the same handler")
	}

	slog.New(handler.WithGroup("engine")).Info("spawned", "pid", 42)
	if !strings.Contains(buf.String(), "engine.pid=42") {
		t.Errorf("expected grouped attribute, got %q", buf.String())
	}
}
