package supervisor

import "time"

// State represents the current state of the supervisor.
type State string

// Supervisor states.
const (
	StateIdle         State = "idle"          // Not started yet
	StateStarting     State = "starting"      // Spawning the engine
	StateRunning      State = "running"       // Engine is live
	StateBackingOff   State = "backing_off"   // Waiting before the next attempt
	StateShuttingDown State = "shutting_down" // Host quit, stopping the engine
	StateStopped      State = "stopped"       // Terminal
)

// Terminal reports whether no further transitions can happen from s.
func (s State) Terminal() bool {
	return s == StateStopped
}

// Status is a point-in-time snapshot of the supervisor.
type Status struct {
	State               State
	Command             string
	RunID               string
	PID                 int
	StartedAt           time.Time
	Ready               bool
	RestartCount        int
	ConsecutiveFailures int
	LastExitCode        int
	LastError           error
}

// ExitInfo describes a child process that has gone away.
type ExitInfo struct {
	RunID    string
	PID      int
	ExitCode int
	Err      error
	Uptime   time.Duration
	// Expected is true when the exit was caused by shutdown or a restart request.
	Expected bool
}
