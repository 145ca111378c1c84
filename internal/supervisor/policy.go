package supervisor

import "time"

// Default restart policy values.
const (
	DefaultUnexpectedExitDelay = 2 * time.Second
	DefaultSpawnFailureDelay   = 5 * time.Second
	DefaultStableAfter         = time.Minute
	DefaultGracefulTimeout     = 5 * time.Second
	DefaultKillTimeout         = 5 * time.Second
	DefaultExitGrace           = 5 * time.Second
)

// RestartPolicy controls how the supervisor reacts to engine failures.
// It is read-only once passed to New.
type RestartPolicy struct {
	// UnexpectedExitDelay is the wait after the engine's stdout closes.
	UnexpectedExitDelay time.Duration
	// SpawnFailureDelay is the wait after the OS refused to start the engine.
	SpawnFailureDelay time.Duration
	// MaxRestarts caps consecutive failed runs. 0 retries forever.
	MaxRestarts int
	// StableAfter is how long a run must last to reset the failure count.
	// 0 never resets.
	StableAfter time.Duration
	// GracefulTimeout is how long to wait after SIGTERM before SIGKILL.
	GracefulTimeout time.Duration
	// KillTimeout is how long to wait after SIGKILL before giving up.
	KillTimeout time.Duration
	// ExitGrace is how long to wait for the process after stdout closed
	// before stopping it.
	ExitGrace time.Duration
}

// DefaultRestartPolicy returns the stock policy: retry forever, 2s after an
// exit and 5s after a spawn failure.
func DefaultRestartPolicy() RestartPolicy {
	return RestartPolicy{
		UnexpectedExitDelay: DefaultUnexpectedExitDelay,
		SpawnFailureDelay:   DefaultSpawnFailureDelay,
		StableAfter:         DefaultStableAfter,
		GracefulTimeout:     DefaultGracefulTimeout,
		KillTimeout:         DefaultKillTimeout,
		ExitGrace:           DefaultExitGrace,
	}
}

// withDefaults fills zero durations. StableAfter and MaxRestarts keep their
// zero meaning.
func (p RestartPolicy) withDefaults() RestartPolicy {
	if p.UnexpectedExitDelay <= 0 {
		p.UnexpectedExitDelay = DefaultUnexpectedExitDelay
	}
	if p.SpawnFailureDelay <= 0 {
		p.SpawnFailureDelay = DefaultSpawnFailureDelay
	}
	if p.GracefulTimeout <= 0 {
		p.GracefulTimeout = DefaultGracefulTimeout
	}
	if p.KillTimeout <= 0 {
		p.KillTimeout = DefaultKillTimeout
	}
	if p.ExitGrace <= 0 {
		p.ExitGrace = DefaultExitGrace
	}
	if p.MaxRestarts < 0 {
		p.MaxRestarts = 0
	}
	return p
}

// Exhausted reports whether failures consecutive failed runs exceed the cap.
func (p RestartPolicy) Exhausted(failures int) bool {
	return p.MaxRestarts > 0 && failures > p.MaxRestarts
}

// Stable reports whether a run of the given length resets the failure count.
func (p RestartPolicy) Stable(uptime time.Duration) bool {
	return p.StableAfter > 0 && uptime >= p.StableAfter
}
