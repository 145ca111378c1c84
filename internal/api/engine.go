package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/biodockify/enginehost/internal/api/models"
	"github.com/biodockify/enginehost/internal/metrics"
	"github.com/biodockify/enginehost/internal/supervisor"
)

func (s *Server) registerEngineRoutes() {
	if s.options.Engine == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-engine-status",
		Method:      http.MethodGet,
		Path:        "/api/engine",
		Summary:     "Engine Status",
		Description: "Get the supervisor state and the current engine run",
		Tags:        []string{"engine"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.EngineStatusResponse, error) {
		return &models.EngineStatusResponse{
			Body: engineStatusData(s.options.Engine.Status(), metrics.GetEngineCounters(), time.Now()),
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "restart-engine",
		Method:        http.MethodPost,
		Path:          "/api/engine/restart",
		Summary:       "Restart Engine",
		Description:   "Stop the engine and start it again without waiting for the restart delay. A path in the body replaces the engine command; this requires auth to be configured.",
		Tags:          []string{"engine"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{400, 401, 403, 409},
	}, func(_ context.Context, input *models.EngineRestartRequest) (*models.ActionResponse, error) {
		var command *supervisor.Command
		replacing := input.Body != nil && (input.Body.Path != "" || len(input.Body.Args) > 0)
		if replacing && !s.options.authEnabled() {
			s.logger.Warn("Refused engine command replacement without auth", "path", input.Body.Path)
			return nil, huma.Error403Forbidden("replacing the engine command requires auth to be configured")
		}
		if input.Body != nil && input.Body.Path != "" {
			current := s.options.Engine.Status()
			s.logger.Info("Engine command replaced via API", "previous", current.Command, "path", input.Body.Path)
			command = &supervisor.Command{Path: input.Body.Path, Args: input.Body.Args}
		} else if input.Body != nil && len(input.Body.Args) > 0 {
			return nil, huma.Error400BadRequest("args require a path")
		}

		if err := s.options.Engine.RequestRestart(command); err != nil {
			if errors.Is(err, supervisor.ErrSupervisorStopped) {
				return nil, huma.Error409Conflict("Engine supervisor has stopped", err)
			}
			return nil, huma.Error500InternalServerError("Failed to request restart", err)
		}
		return &models.ActionResponse{
			Body: models.ActionData{
				Action:  "restart",
				Message: "Restart requested",
			},
		}, nil
	})
}

func engineStatusData(status supervisor.Status, counters metrics.EngineCounters, now time.Time) models.EngineStatusData {
	data := models.EngineStatusData{
		State:               string(status.State),
		Command:             status.Command,
		RunID:               status.RunID,
		PID:                 status.PID,
		Ready:               status.Ready,
		RestartCount:        status.RestartCount,
		ConsecutiveFailures: status.ConsecutiveFailures,
		LastExitCode:        status.LastExitCode,
		Counters: models.EngineCounters{
			Spawns:          counters.Spawns,
			SpawnFailures:   counters.SpawnFailures,
			UnexpectedExits: counters.UnexpectedExits,
			OutputLines:     counters.OutputLines,
		},
	}
	if status.LastError != nil {
		data.LastError = status.LastError.Error()
	}
	// StartedAt survives the run for diagnostics; uptime only means
	// something while a process is live.
	if !status.StartedAt.IsZero() {
		startedAt := status.StartedAt
		data.StartedAt = &startedAt
		if status.PID != 0 {
			data.UptimeSeconds = now.Sub(startedAt).Seconds()
		}
	}
	return data
}
