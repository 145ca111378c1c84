package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/biodockify/enginehost/internal/logging"
)

type exitReason int

const (
	exitReasonProcessExit exitReason = iota
	exitReasonShutdown
	exitReasonRestart
)

// Supervisor keeps one engine process running until shutdown.
type Supervisor struct {
	opts         Options
	policy       RestartPolicy
	outputTag    string
	logger       logging.Logger
	outputLogger logging.Logger

	mu     sync.RWMutex
	state  State
	status Status
	// command is only written by the run goroutine.
	command Command

	startOnce    sync.Once
	shutdownOnce sync.Once
	// spawnMu orders spawn attempts against closing shutdownCh.
	spawnMu     sync.Mutex
	shutdownCh  chan struct{}
	restartChan chan *Command // receives the command for the next run; nil keeps the current one
	done        chan struct{}
}

// New creates a supervisor in the idle state. Nothing is spawned until Start.
func New(opts Options) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	outputLogger := opts.OutputLogger
	if outputLogger == nil {
		outputLogger = logger
	}
	tag := opts.OutputTag
	if tag == "" {
		tag = DefaultOutputTag
	}

	return &Supervisor{
		opts:         opts,
		policy:       opts.Policy.withDefaults(),
		outputTag:    tag,
		logger:       logger,
		outputLogger: outputLogger,
		state:        StateIdle,
		command:      opts.Command,
		status:       Status{State: StateIdle, Command: opts.Command.String()},
		shutdownCh:   make(chan struct{}),
		restartChan:  make(chan *Command, 1),
		done:         make(chan struct{}),
	}
}

// Start runs the supervisor in the background and returns immediately.
// Cancelling ctx has the same effect as Shutdown. Calling Start more than
// once, or after Shutdown, does nothing.
func (s *Supervisor) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		go func() {
			select {
			case <-s.shutdownCh:
				cancel()
			case <-runCtx.Done():
			}
		}()
		go func() {
			defer cancel()
			s.run(runCtx)
		}()
	})
}

// Shutdown stops restart attempts and terminates the live engine, if any.
// It blocks until the supervisor is stopped or ctx is done. After Shutdown
// has been called no new engine process is spawned.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.logger.Info("Shutdown requested")
		s.spawnMu.Lock()
		close(s.shutdownCh)
		s.spawnMu.Unlock()
	})

	// Never started: stop without spawning.
	s.startOnce.Do(func() {
		s.transition(StateShuttingDown, nil)
		s.transition(StateStopped, nil)
		close(s.done)
	})

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestRestart stops the running engine and starts it again without the
// backoff delay. A non-nil command replaces the current one. Non-blocking:
// if a restart is already pending, this is a no-op.
func (s *Supervisor) RequestRestart(command *Command) error {
	if s.isShuttingDown() || s.State().Terminal() {
		return ErrSupervisorStopped
	}
	select {
	case s.restartChan <- command:
		s.logger.Info("Restart requested")
	default:
		s.logger.Warn("Restart already pending, ignoring")
	}
	return nil
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status returns a snapshot of the supervisor.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Done is closed when the supervisor reaches the stopped state.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

func (s *Supervisor) isShuttingDown() bool {
	select {
	case <-s.shutdownCh:
		return true
	default:
		return false
	}
}

func (s *Supervisor) stopping(ctx context.Context) bool {
	return ctx.Err() != nil || s.isShuttingDown()
}

// run is the supervisor loop. It owns the child handle.
func (s *Supervisor) run(ctx context.Context) {
	var live *child

	defer close(s.done)
	defer func() {
		// Every exit path tries to stop the engine, panics included.
		if r := recover(); r != nil {
			s.logger.Error("Supervisor panicked", "panic", r)
		}
		if live != nil && !live.hasExited() {
			s.transition(StateShuttingDown, nil)
			_ = s.stopChild(live)
		}
		if s.State() != StateStopped {
			s.transition(StateStopped, nil)
		}
		s.logger.Info("Supervisor stopped")
	}()

	s.logger.Info("Supervisor started", "command", s.command.String())

	for attempt := 1; ; attempt++ {
		c, ok, err := s.spawnAttempt(ctx, attempt)
		if !ok {
			s.transition(StateShuttingDown, nil)
			return
		}
		if err != nil {
			s.logger.Error("Failed to spawn engine", "attempt", attempt, "error", err,
				"retry_in", s.policy.SpawnFailureDelay)
			if !s.backOff(ctx, err, s.policy.SpawnFailureDelay) {
				return
			}
			continue
		}

		live = c
		s.recordSpawn(c)
		s.logger.Info("Engine started", "pid", c.pid, "run_id", c.runID)
		if s.opts.OnSpawn != nil {
			s.opts.OnSpawn(c.runID, c.pid)
		}
		s.transition(StateRunning, nil)

		reason := s.monitor(ctx, c)

		switch reason {
		case exitReasonShutdown:
			s.transition(StateShuttingDown, nil)
			stopErr := s.stopChild(c)
			s.recordExit(c, true, stopErr)
			live = nil
			return

		case exitReasonRestart:
			s.logger.Info("Stopping engine for restart", "pid", c.pid)
			stopErr := s.stopChild(c)
			s.recordExit(c, true, stopErr)
			live = nil
			continue

		case exitReasonProcessExit:
			shuttingDown, stopErr := s.awaitExit(ctx, c)
			if shuttingDown {
				s.transition(StateShuttingDown, nil)
				s.recordExit(c, true, s.stopChild(c))
				live = nil
				return
			}
			uptime := time.Since(c.startedAt)
			exitCode, waitErr := -1, error(nil)
			if c.hasExited() {
				exitCode, waitErr = c.exitCode, c.waitErr
			}
			if stopErr != nil {
				waitErr = errors.Join(waitErr, stopErr)
			}
			exitErr := newError(ErrCodeUnexpectedExit,
				fmt.Sprintf("engine exited with code %d", exitCode), waitErr)
			s.recordExit(c, false, exitErr)
			live = nil

			if s.policy.Stable(uptime) {
				s.mu.Lock()
				s.status.ConsecutiveFailures = 0
				s.mu.Unlock()
			}
			s.logger.Warn("Engine exited unexpectedly", "pid", c.pid, "exit_code", exitCode,
				"uptime", uptime.Round(time.Millisecond), "retry_in", s.policy.UnexpectedExitDelay)
			if !s.backOff(ctx, exitErr, s.policy.UnexpectedExitDelay) {
				return
			}
		}
	}
}

// spawnAttempt starts the engine unless shutdown has begun, in which case
// ok is false. Shutdown cannot close shutdownCh between the check and the
// spawn.
func (s *Supervisor) spawnAttempt(ctx context.Context, attempt int) (c *child, ok bool, err error) {
	s.spawnMu.Lock()
	defer s.spawnMu.Unlock()
	if s.stopping(ctx) {
		return nil, false, nil
	}

	s.transition(StateStarting, nil)
	if attempt > 1 {
		s.mu.Lock()
		s.status.RestartCount++
		s.mu.Unlock()
		s.logger.Info("Restarting engine", "attempt", attempt)
	}
	s.logger.Info("Spawning engine", "attempt", attempt, "command", s.command.String())

	c, err = s.spawn(s.command)
	return c, true, err
}

// awaitExit waits for c to be reaped after its stdout closed, stopping it if
// it outlives ExitGrace. shuttingDown reports that shutdown began first; the
// caller then owns stopping c.
func (s *Supervisor) awaitExit(ctx context.Context, c *child) (shuttingDown bool, stopErr error) {
	timer := time.NewTimer(s.policy.ExitGrace)
	defer timer.Stop()

	select {
	case <-c.exited:
		return false, nil
	case <-ctx.Done():
		return true, nil
	case <-s.shutdownCh:
		return true, nil
	case <-timer.C:
		s.logger.Warn("Engine closed stdout but is still running, stopping it", "pid", c.pid)
		return false, s.stopChild(c)
	}
}

// monitor blocks until the engine's stdout closes, a restart is requested,
// or ctx is cancelled.
func (s *Supervisor) monitor(ctx context.Context, c *child) exitReason {
	probeCtx, cancelProbe := context.WithCancel(ctx)
	defer cancelProbe()
	if s.opts.ReadyAddr != "" {
		go s.probeReady(probeCtx, c)
	}

	select {
	case <-ctx.Done():
		return exitReasonShutdown
	case <-s.shutdownCh:
		return exitReasonShutdown
	case command := <-s.restartChan:
		s.applyRestart(command)
		return exitReasonRestart
	case <-c.stdoutDone:
		return exitReasonProcessExit
	}
}

// backOff records a failed attempt and waits before the next one. It
// returns false when the loop must end, either because of shutdown or
// because the restart cap was reached.
func (s *Supervisor) backOff(ctx context.Context, cause error, delay time.Duration) bool {
	s.mu.Lock()
	s.status.ConsecutiveFailures++
	failures := s.status.ConsecutiveFailures
	s.mu.Unlock()

	s.transition(StateBackingOff, cause)

	if s.policy.Exhausted(failures) {
		limitErr := newError(ErrCodeRestartLimit,
			fmt.Sprintf("giving up after %d consecutive failures", failures), cause)
		s.logger.Error("Restart limit reached, giving up", "failures", failures, "max_restarts", s.policy.MaxRestarts)
		s.transition(StateStopped, limitErr)
		return false
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		s.transition(StateShuttingDown, nil)
		return false
	case <-s.shutdownCh:
		s.transition(StateShuttingDown, nil)
		return false
	case command := <-s.restartChan:
		s.applyRestart(command)
		return true
	case <-timer.C:
		return true
	}
}

func (s *Supervisor) applyRestart(command *Command) {
	if command == nil {
		return
	}
	s.command = *command
	s.mu.Lock()
	s.status.Command = command.String()
	s.mu.Unlock()
	s.logger.Info("Engine command updated", "command", command.String())
}

func (s *Supervisor) transition(newState State, err error) {
	s.mu.Lock()
	oldState := s.state
	if oldState == newState || oldState.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = newState
	s.status.State = newState
	if err != nil {
		s.status.LastError = err
	}
	s.mu.Unlock()

	s.logger.Debug("State changed", "from", oldState, "to", newState)
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(oldState, newState, err)
	}
}

func (s *Supervisor) recordSpawn(c *child) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.RunID = c.runID
	s.status.PID = c.pid
	s.status.StartedAt = c.startedAt
	s.status.Ready = false
}

func (s *Supervisor) recordExit(c *child, expected bool, err error) {
	info := ExitInfo{
		RunID:    c.runID,
		PID:      c.pid,
		Uptime:   time.Since(c.startedAt),
		Expected: expected,
		Err:      err,
	}
	if c.hasExited() {
		info.ExitCode = c.exitCode
	} else {
		info.ExitCode = -1
	}

	s.mu.Lock()
	s.status.PID = 0
	s.status.Ready = false
	s.status.LastExitCode = info.ExitCode
	if err != nil {
		s.status.LastError = err
	}
	s.mu.Unlock()

	if s.opts.OnExit != nil {
		s.opts.OnExit(info)
	}
}
