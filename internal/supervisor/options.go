package supervisor

import "github.com/biodockify/enginehost/internal/logging"

// DefaultOutputTag prefixes every engine output line in the log sink.
const DefaultOutputTag = "ENGINE"

// OutputHandler receives output lines from the engine.
// Implementations forward them to the UI, metrics, etc.
type OutputHandler interface {
	HandleLine(source, line string)
}

// OutputHandlerFunc adapts a function to OutputHandler.
type OutputHandlerFunc func(source, line string)

// HandleLine calls f.
func (f OutputHandlerFunc) HandleLine(source, line string) {
	f(source, line)
}

// StateChangeCallback is called on every state transition. err is set when
// the transition was caused by a failure.
type StateChangeCallback func(oldState, newState State, err error)

// SpawnCallback is called after the engine process has started.
type SpawnCallback func(runID string, pid int)

// ExitCallback is called once the engine process has been reaped.
type ExitCallback func(info ExitInfo)

// ReadyCallback is called when the readiness probe first succeeds for a run.
type ReadyCallback func(runID string)

// Options configures a Supervisor.
type Options struct {
	// Command launches the engine (required).
	Command Command

	// Policy controls restart delays and caps. Zero durations use defaults.
	Policy RestartPolicy

	// OutputTag prefixes output lines in the log (default "ENGINE").
	OutputTag string

	// ReadyAddr is an optional TCP address polled after each spawn.
	ReadyAddr string

	// Logger for lifecycle events. If nil, a discard logger is used.
	Logger logging.Logger

	// OutputLogger receives engine output lines. If nil, Logger is used.
	OutputLogger logging.Logger

	// OutputHandler receives each output line (optional).
	OutputHandler OutputHandler

	// Callbacks run on the supervisor goroutine and must not block.
	OnStateChange StateChangeCallback
	OnSpawn       SpawnCallback
	OnExit        ExitCallback
	OnReady       ReadyCallback
}
