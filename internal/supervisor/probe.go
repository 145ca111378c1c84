package supervisor

import (
	"context"
	"net"
	"time"
)

const (
	readyPollInterval = 250 * time.Millisecond
	readyDialTimeout  = time.Second
)

// probeReady polls ReadyAddr until the engine accepts a TCP connection or
// ctx ends. Not becoming ready never triggers a restart.
func (s *Supervisor) probeReady(ctx context.Context, c *child) {
	dialer := net.Dialer{Timeout: readyDialTimeout}
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		conn, err := dialer.DialContext(ctx, "tcp", s.opts.ReadyAddr)
		if err == nil {
			conn.Close()
			s.markReady(c)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Supervisor) markReady(c *child) {
	s.mu.Lock()
	if s.status.RunID != c.runID {
		s.mu.Unlock()
		return
	}
	s.status.Ready = true
	s.mu.Unlock()

	s.logger.Info("Engine ready", "addr", s.opts.ReadyAddr, "run_id", c.runID,
		"after", time.Since(c.startedAt).Round(time.Millisecond))
	if s.opts.OnReady != nil {
		s.opts.OnReady(c.runID)
	}
}
