package models

import "time"

// EngineCounters are running totals since the host started.
type EngineCounters struct {
	Spawns          uint64 `json:"spawns" example:"3" doc:"Engine processes started"`
	SpawnFailures   uint64 `json:"spawn_failures" example:"0" doc:"Attempts the OS refused"`
	UnexpectedExits uint64 `json:"unexpected_exits" example:"2" doc:"Runs that ended without being asked to"`
	OutputLines     uint64 `json:"output_lines" example:"1200" doc:"Lines read from engine stdout and stderr"`
}

// EngineStatusData is a snapshot of the supervisor.
type EngineStatusData struct {
	State               string         `json:"state" enum:"idle,starting,running,backing_off,shutting_down,stopped" example:"running" doc:"Supervisor state"`
	Command             string         `json:"command" example:"biodockify-engine --port 8234" doc:"Engine command line"`
	RunID               string         `json:"run_id,omitempty" doc:"Identifier of the current run"`
	PID                 int            `json:"pid,omitempty" example:"4242" doc:"Engine process ID, 0 when not running"`
	StartedAt           *time.Time     `json:"started_at,omitempty" doc:"When the current run started"`
	UptimeSeconds       float64        `json:"uptime_seconds,omitempty" example:"93.4" doc:"How long the current run has lasted"`
	Ready               bool           `json:"ready" example:"true" doc:"Whether the engine accepted a readiness probe"`
	RestartCount        int            `json:"restart_count" example:"2" doc:"Respawns since the host started"`
	ConsecutiveFailures int            `json:"consecutive_failures" example:"0" doc:"Failed runs since the last stable one"`
	LastExitCode        int            `json:"last_exit_code" example:"1" doc:"Exit code of the previous run"`
	LastError           string         `json:"last_error,omitempty" doc:"Most recent failure"`
	Counters            EngineCounters `json:"counters" doc:"Lifetime counters"`
}

type EngineStatusResponse struct {
	Body EngineStatusData
}

// EngineRestartRequest optionally replaces the engine command.
type EngineRestartRequest struct {
	Body *EngineRestartData `required:"false"`
}

type EngineRestartData struct {
	Path string   `json:"path,omitempty" example:"/opt/biodockify/biodockify-engine" doc:"New executable; empty keeps the current one"`
	Args []string `json:"args,omitempty" doc:"New arguments, used only with path"`
}

type ActionData struct {
	Action  string `json:"action" example:"restart" doc:"Action performed"`
	Message string `json:"message" example:"Restart requested" doc:"Result message"`
}

type ActionResponse struct {
	Body ActionData
}
