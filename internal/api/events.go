package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/biodockify/enginehost/internal/api/models"
	"github.com/biodockify/enginehost/internal/events"
	"github.com/biodockify/enginehost/internal/metrics"
)

// OutputStreamInput filters the engine output stream.
type OutputStreamInput struct {
	Source string `query:"source" enum:"stdout,stderr" doc:"Only stream lines from this source"`
}

// registerSSERoutes registers the native Huma SSE endpoints.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time engine lifecycle and window events. The first message is a status snapshot.",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"engine-status":        models.EngineStatusData{},
		"engine-state-changed": events.EngineStateChangedEvent{},
		"engine-spawned":       events.EngineSpawnedEvent{},
		"engine-spawn-failed":  events.EngineSpawnFailedEvent{},
		"engine-exited":        events.EngineExitedEvent{},
		"engine-ready":         events.EngineReadyEvent{},
		"window-visibility":    events.WindowVisibilityEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 10)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.EngineStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.EngineSpawnedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.EngineSpawnFailedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.EngineExitedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.EngineReadyEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.WindowVisibilityEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		if s.options.Engine != nil {
			snapshot := engineStatusData(s.options.Engine.Status(), metrics.GetEngineCounters(), time.Now())
			if err := send.Data(snapshot); err != nil {
				return
			}
		}

		forward(ctx, eventCh, send)
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "engine-output-stream",
		Method:      http.MethodGet,
		Path:        "/api/engine/output",
		Summary:     "Engine Output Stream",
		Description: "Lines written by the engine to stdout and stderr, as they arrive",
		Tags:        []string{"engine"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"line": events.EngineOutputEvent{},
	}, func(ctx context.Context, input *OutputStreamInput, send sse.Sender) {
		// Engines can be chatty at startup.
		eventCh := make(chan any, 256)

		var keep func(events.EngineOutputEvent) bool
		if input.Source != "" {
			keep = func(e events.EngineOutputEvent) bool { return e.Source == input.Source }
		}
		unsubscribe := events.SubscribeToChannelFunc(s.eventBus, eventCh, keep)
		defer unsubscribe()

		forward(ctx, eventCh, send)
	})
}

// forward sends bus events until the client goes away.
func forward(ctx context.Context, eventCh <-chan any, send sse.Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eventCh:
			if err := send.Data(event); err != nil {
				return
			}
		}
	}
}
