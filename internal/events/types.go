package events

// Event type constants for kelindar/event.
const (
	TypeEngineStateChanged uint32 = iota + 1
	TypeEngineSpawned
	TypeEngineSpawnFailed
	TypeEngineExited
	TypeEngineReady
	TypeEngineOutput
	TypeWindowVisibility
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// EngineStateChangedEvent is published on every supervisor state transition.
type EngineStateChangedEvent struct {
	From      string `json:"from" example:"running" doc:"Previous supervisor state"`
	To        string `json:"to" example:"backing_off" doc:"New supervisor state"`
	Error     string `json:"error,omitempty" example:"UNEXPECTED_EXIT: engine exited with code 1" doc:"Failure that caused the transition"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for EngineStateChangedEvent.
func (e EngineStateChangedEvent) Type() uint32 { return TypeEngineStateChanged }

// EngineSpawnedEvent is published after the engine process started.
type EngineSpawnedEvent struct {
	RunID     string `json:"run_id" example:"0b5c4c1e-8f0e-4d5a-9a63-2f0f6b1f4e7d" doc:"Identifier of this engine run"`
	PID       int    `json:"pid" example:"4242" doc:"Engine process ID"`
	Command   string `json:"command" example:"biodockify-engine" doc:"Command line"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for EngineSpawnedEvent.
func (e EngineSpawnedEvent) Type() uint32 { return TypeEngineSpawned }

// EngineSpawnFailedEvent is published when the OS refused to start the engine.
type EngineSpawnFailedEvent struct {
	Error     string `json:"error" example:"SPAWN_FAILED: failed to start engine: executable file not found in $PATH" doc:"Spawn error"`
	Failures  int    `json:"failures" example:"3" doc:"Consecutive failed attempts"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for EngineSpawnFailedEvent.
func (e EngineSpawnFailedEvent) Type() uint32 { return TypeEngineSpawnFailed }

// EngineExitedEvent is published once an engine process is gone.
type EngineExitedEvent struct {
	RunID         string  `json:"run_id" doc:"Identifier of the engine run"`
	PID           int     `json:"pid" example:"4242" doc:"Engine process ID"`
	ExitCode      int     `json:"exit_code" example:"1" doc:"Exit code, -1 when killed or unknown"`
	Expected      bool    `json:"expected" example:"false" doc:"True for shutdown or requested restart"`
	UptimeSeconds float64 `json:"uptime_seconds" example:"12.5" doc:"How long the process ran"`
	Error         string  `json:"error,omitempty" doc:"Exit error"`
	Timestamp     string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for EngineExitedEvent.
func (e EngineExitedEvent) Type() uint32 { return TypeEngineExited }

// EngineReadyEvent is published when the engine first accepts connections.
type EngineReadyEvent struct {
	RunID     string `json:"run_id" doc:"Identifier of the engine run"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for EngineReadyEvent.
func (e EngineReadyEvent) Type() uint32 { return TypeEngineReady }

// EngineOutputEvent carries one line of engine output to the UI.
type EngineOutputEvent struct {
	Source    string `json:"source" example:"stdout" doc:"stdout or stderr"`
	Line      string `json:"line" example:"Uvicorn running on http://127.0.0.1:8000" doc:"Output line"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00.123Z" doc:"When the line was read"`
}

// Type returns the event type identifier for EngineOutputEvent.
func (e EngineOutputEvent) Type() uint32 { return TypeEngineOutput }

// WindowVisibilityEvent is published when the host window is hidden or shown.
type WindowVisibilityEvent struct {
	Visible   bool   `json:"visible" example:"false" doc:"Whether the window is visible"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for WindowVisibilityEvent.
func (e WindowVisibilityEvent) Type() uint32 { return TypeWindowVisibility }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"supervisor" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
