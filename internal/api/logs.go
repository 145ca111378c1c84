package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/biodockify/enginehost/internal/events"
	"github.com/biodockify/enginehost/internal/logging"
)

// LogStreamInput selects how much history precedes the live stream and
// which entries are sent at all.
type LogStreamInput struct {
	Tail  int    `query:"tail" minimum:"0" default:"0" doc:"Only replay the last N buffered entries, 0 replays all"`
	Level string `query:"level" enum:"debug,info,warn,error" doc:"Minimum level to send"`
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

func (in *LogStreamInput) keep(level string) bool {
	if in.Level == "" {
		return true
	}
	return levelRank[level] >= levelRank[in.Level]
}

func (s *Server) registerLogRoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Host and engine log entries. Buffered entries are replayed first, then new ones stream as they are written.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, input *LogStreamInput, send sse.Sender) {
		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.Tail(input.Tail) {
				if !input.keep(entry.Level) {
					continue
				}
				if err := send.Data(logEntryEvent(entry)); err != nil {
					return
				}
			}
		}

		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannelFunc(s.eventBus, eventCh, func(e events.LogEntryEvent) bool {
			return input.keep(e.Level)
		})
		defer unsubscribe()

		forward(ctx, eventCh, send)
	})
}

// logEntryEvent converts a buffered entry. Replayed entries carry no Seq.
func logEntryEvent(entry logging.LogEntry) events.LogEntryEvent {
	return events.LogEntryEvent{
		Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
		Level:      entry.Level,
		Module:     entry.Module,
		Message:    entry.Message,
		Attributes: entry.Attributes,
	}
}
