package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/biodockify/enginehost/internal/api/models"
)

func (s *Server) registerHostRoutes() {
	if s.options.Host == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID:   "quit-host",
		Method:        http.MethodPost,
		Path:          "/api/host/quit",
		Summary:       "Quit",
		Description:   "Stop the engine and exit the host process",
		Tags:          []string{"host"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ActionResponse, error) {
		s.logger.Info("Quit requested via API")
		s.options.Host.Quit()
		return &models.ActionResponse{
			Body: models.ActionData{
				Action:  "quit",
				Message: "Shutting down",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-window",
		Method:      http.MethodGet,
		Path:        "/api/host/window",
		Summary:     "Window Visibility",
		Description: "Report whether the host window is visible",
		Tags:        []string{"host"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.WindowResponse, error) {
		return &models.WindowResponse{
			Body: models.WindowData{Visible: s.options.Host.WindowVisible()},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "hide-window",
		Method:        http.MethodPost,
		Path:          "/api/host/window/hide",
		Summary:       "Hide Window",
		Description:   "Hide the host window. The engine keeps running.",
		Tags:          []string{"host"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ActionResponse, error) {
		s.options.Host.HideWindow()
		return &models.ActionResponse{
			Body: models.ActionData{
				Action:  "hide",
				Message: "Window hide requested",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "show-window",
		Method:        http.MethodPost,
		Path:          "/api/host/window/show",
		Summary:       "Show Window",
		Description:   "Show the host window",
		Tags:          []string{"host"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.ActionResponse, error) {
		s.options.Host.ShowWindow()
		return &models.ActionResponse{
			Body: models.ActionData{
				Action:  "show",
				Message: "Window show requested",
			},
		}, nil
	})
}

func (s *Server) registerServiceRoutes() {
	if s.options.ServiceManager == nil {
		return
	}
	manager := s.options.ServiceManager

	huma.Register(s.api, huma.Operation{
		OperationID: "get-service-status",
		Method:      http.MethodGet,
		Path:        "/api/host/service",
		Summary:     "Service Status",
		Description: "Get the systemd status of the host unit",
		Tags:        []string{"systemd"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.ServiceStatusResponse, error) {
		status, err := manager.Status(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to get service status", err)
		}
		return &models.ServiceStatusResponse{
			Body: models.ServiceStatusData{
				Unit:        status.Unit,
				LoadState:   status.LoadState,
				ActiveState: status.ActiveState,
				SubState:    status.SubState,
				MainPID:     status.MainPID,
				Active:      status.Active(),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "restart-service",
		Method:        http.MethodPost,
		Path:          "/api/host/service/restart",
		Summary:       "Restart Service",
		Description:   "Restart the host unit through systemd. The engine is restarted with it.",
		Tags:          []string{"systemd"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.ActionResponse, error) {
		s.logger.Info("Service restart requested via API", "unit", manager.Unit())
		if err := manager.Restart(ctx); err != nil {
			return nil, huma.Error500InternalServerError("Failed to restart service", err)
		}
		return &models.ActionResponse{
			Body: models.ActionData{
				Action:  "restart",
				Message: "Restart of " + manager.Unit() + " queued",
			},
		}, nil
	})
}
