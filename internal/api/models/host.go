package models

// WindowData reports the host window visibility.
type WindowData struct {
	Visible bool `json:"visible" example:"true" doc:"Whether the window is visible"`
}

type WindowResponse struct {
	Body WindowData
}

// ServiceStatusData contains the status of the host's systemd unit.
type ServiceStatusData struct {
	Unit        string `json:"unit" example:"biodockify.service" doc:"Unit name"`
	LoadState   string `json:"load_state" example:"loaded" doc:"Unit load state"`
	ActiveState string `json:"active_state" example:"active" doc:"Unit status (active, inactive, failed, etc.)"`
	SubState    string `json:"sub_state" example:"running" doc:"Unit sub-state"`
	MainPID     uint32 `json:"main_pid,omitempty" example:"1234" doc:"Main process ID"`
	Active      bool   `json:"active" example:"true" doc:"Whether the unit is running"`
}

type ServiceStatusResponse struct {
	Body ServiceStatusData
}
