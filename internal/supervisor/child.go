package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

const (
	maxLineSize        = 1024 * 1024
	stderrDrainTimeout = time.Second
)

// child is the handle to one running engine process.
type child struct {
	runID     string
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time

	stdoutDone chan struct{} // closed when stdout reaches EOF
	stderrDone chan struct{}
	exited     chan struct{} // closed after Wait returns

	// set before exited is closed
	waitErr  error
	exitCode int
}

func (c *child) hasExited() bool {
	select {
	case <-c.exited:
		return true
	default:
		return false
	}
}

// spawn starts the engine and its output readers.
func (s *Supervisor) spawn(command Command) (*child, error) {
	if command.Path == "" {
		return nil, newError(ErrCodeSpawnFailed, "empty engine command", nil)
	}

	cmd := exec.Command(command.Path, command.Args...)
	cmd.Dir = command.Dir
	if len(command.Env) > 0 {
		cmd.Env = append(os.Environ(), command.Env...)
	}
	setSysProcAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, newError(ErrCodeSpawnFailed, "failed to create stdout pipe", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		return nil, newError(ErrCodeSpawnFailed, "failed to create stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, newError(ErrCodeSpawnFailed, "failed to start engine", err)
	}

	c := &child{
		runID:      uuid.NewString(),
		cmd:        cmd,
		pid:        cmd.Process.Pid,
		startedAt:  time.Now(),
		stdoutDone: make(chan struct{}),
		stderrDone: make(chan struct{}),
		exited:     make(chan struct{}),
	}

	go func() {
		s.streamOutput(stdout, "stdout")
		close(c.stdoutDone)
	}()
	go func() {
		s.streamOutput(stderr, "stderr")
		close(c.stderrDone)
	}()

	// Wait must not run before stdout is drained, or it closes the pipe
	// under the reader and lines are lost.
	go func() {
		<-c.stdoutDone
		select {
		case <-c.stderrDone:
		case <-time.After(stderrDrainTimeout):
		}
		c.waitErr = cmd.Wait()
		c.exitCode = exitCodeFromError(c.waitErr)
		close(c.exited)
	}()

	return c, nil
}

// streamOutput forwards lines in the order the engine wrote them.
func (s *Supervisor) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()

		if s.opts.OutputHandler != nil {
			s.opts.OutputHandler.HandleLine(source, line)
		}

		msg := fmt.Sprintf("[%s] %s", s.outputTag, line)
		if source == "stderr" {
			s.outputLogger.Warn(msg, "source", source)
		} else {
			s.outputLogger.Info(msg)
		}
	}

	err := scanner.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		s.logger.Warn("Engine output line too long, discarding rest of stream", "source", source, "limit", maxLineSize)
		// Keep draining so EOF still marks the exit.
		_, err = io.Copy(io.Discard, reader)
	}
	if err != nil && !errors.Is(err, os.ErrClosed) {
		s.logger.Warn("Error reading engine output", "source", source, "error", err)
	}
}

// stopChild terminates c and waits for it, escalating to SIGKILL after
// GracefulTimeout. It is a no-op once c has exited.
func (s *Supervisor) stopChild(c *child) error {
	if c.hasExited() {
		return nil
	}

	s.logger.Info("Sending termination signal to engine", "pid", c.pid)
	if err := terminateProcess(c.cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Warn("Failed to signal engine", "pid", c.pid, "error", err)
	}

	timer := time.NewTimer(s.policy.GracefulTimeout)
	defer timer.Stop()

	select {
	case <-c.exited:
		return nil
	case <-timer.C:
	}

	timeoutErr := newError(ErrCodeShutdownTimeout,
		fmt.Sprintf("engine did not exit within %s", s.policy.GracefulTimeout), nil)
	s.logger.Warn("Graceful shutdown timeout, forcing kill", "pid", c.pid, "timeout", s.policy.GracefulTimeout)
	if err := killProcess(c.cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Error("Failed to kill engine", "pid", c.pid, "error", err)
	}

	select {
	case <-c.exited:
	case <-time.After(s.policy.KillTimeout):
		s.logger.Error("Engine did not exit after kill signal", "pid", c.pid)
	}
	return timeoutErr
}

// exitCodeFromError extracts the exit code from a Wait error.
// Returns 0 for nil, the exit code for ExitError, or -1 otherwise.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
