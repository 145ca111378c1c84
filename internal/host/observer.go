package host

import (
	"time"

	"github.com/biodockify/enginehost/internal/events"
	"github.com/biodockify/enginehost/internal/metrics"
	"github.com/biodockify/enginehost/internal/supervisor"
)

// Observer publishes supervisor activity on the event bus and records it
// in metrics. All methods are supervisor callbacks and return quickly.
type Observer struct {
	bus      *events.Bus
	failures int // consecutive spawn failures, supervisor goroutine only
	command  func() string
}

// NewObserver creates an observer. bus may be nil to record metrics only.
func NewObserver(bus *events.Bus) *Observer {
	return &Observer{bus: bus}
}

// Attach installs the observer's hooks on opts. An OutputHandler already set
// on opts still receives every line.
func (o *Observer) Attach(opts *supervisor.Options) {
	next := opts.OutputHandler
	opts.OutputHandler = supervisor.OutputHandlerFunc(func(source, line string) {
		o.HandleLine(source, line)
		if next != nil {
			next.HandleLine(source, line)
		}
	})
	opts.OnStateChange = o.OnStateChange
	opts.OnSpawn = o.OnSpawn
	opts.OnExit = o.OnExit
	opts.OnReady = o.OnReady
}

// Bind lets spawn events report the command line of the running engine.
func (o *Observer) Bind(s *supervisor.Supervisor) {
	o.command = func() string { return s.Status().Command }
}

// HandleLine forwards one engine output line to the UI channel.
func (o *Observer) HandleLine(source, line string) {
	metrics.RecordOutputLine(source)
	o.publish(events.EngineOutputEvent{
		Source:    source,
		Line:      line,
		Timestamp: time.Now().Format(time.RFC3339Nano),
	})
}

// OnStateChange records the new state and reports spawn failures.
func (o *Observer) OnStateChange(oldState, newState supervisor.State, err error) {
	metrics.SetEngineState(string(newState))

	ev := events.EngineStateChangedEvent{
		From:      string(oldState),
		To:        string(newState),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	o.publish(ev)

	if newState == supervisor.StateBackingOff && supervisor.ErrorCode(err) == supervisor.ErrCodeSpawnFailed {
		o.failures++
		metrics.RecordSpawnFailure()
		o.publish(events.EngineSpawnFailedEvent{
			Error:     err.Error(),
			Failures:  o.failures,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}

// OnSpawn records a started engine.
func (o *Observer) OnSpawn(runID string, pid int) {
	o.failures = 0
	metrics.RecordSpawn()

	command := ""
	if o.command != nil {
		command = o.command()
	}
	o.publish(events.EngineSpawnedEvent{
		RunID:     runID,
		PID:       pid,
		Command:   command,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// OnExit records an engine exit.
func (o *Observer) OnExit(info supervisor.ExitInfo) {
	metrics.RecordExit(info.Expected, info.ExitCode, info.Uptime.Seconds())

	ev := events.EngineExitedEvent{
		RunID:         info.RunID,
		PID:           info.PID,
		ExitCode:      info.ExitCode,
		Expected:      info.Expected,
		UptimeSeconds: info.Uptime.Seconds(),
		Timestamp:     time.Now().Format(time.RFC3339),
	}
	if info.Err != nil {
		ev.Error = info.Err.Error()
	}
	o.publish(ev)
}

// OnReady records that the engine accepts connections.
func (o *Observer) OnReady(runID string) {
	metrics.SetEngineReady()
	o.publish(events.EngineReadyEvent{
		RunID:     runID,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (o *Observer) publish(ev events.Event) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}
