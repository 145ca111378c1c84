package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler fans a record out to the stdout, journal, file and buffer
// sinks. A failing sink does not stop the others.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a handler writing to every non-nil handler.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	sinks := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			sinks = append(sinks, h)
		}
	}
	return &MultiHandler{handlers: sinks}
}

// Enabled reports whether any sink wants records at level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes r to each sink that accepts its level and joins their errors.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = fn(h)
	}
	return &MultiHandler{handlers: handlers}
}
