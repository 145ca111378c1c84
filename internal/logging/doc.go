// Package logging provides structured logging with per-module log levels.
//
// # Overview
//
// Every module gets its own *slog.Logger backed by a slog.LevelVar, so
// levels can be changed at runtime. Records fan out to:
//   - stdout, when a terminal, pipe or file is attached
//   - the systemd journal, when journald is reachable
//   - a rotating log file, when Config.File is set
//   - an in-memory ring buffer that feeds the log stream endpoint
//
// # Usage
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		File:   filepath.Join(cacheDir, "biodockify", "app.log"),
//		Modules: map[string]string{
//			"supervisor": "debug",
//			"http":       "warn",
//		},
//	})
//	defer logging.Close()
//
//	logger := logging.GetLogger("supervisor")
//	logger.Info("Spawning engine", "attempt", 1)
//
// Engine output is logged through the "engine" module with the output tag
// in the message, e.g. "[ENGINE] listening on :8000".
//
// # Viewing Logs
//
//	journalctl -t biodockify -f
//	journalctl -t biodockify MODULE=engine
//	journalctl -t biodockify -p err
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//	file = "/var/log/biodockify/app.log"
//	max_size_mb = 10
//	max_backups = 3
//
//	[logging.modules]
//	engine = "info"
//	api = "warn"
package logging
