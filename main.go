package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/biodockify/enginehost/cmd"
	"github.com/biodockify/enginehost/internal/api"
	"github.com/biodockify/enginehost/internal/config"
	"github.com/biodockify/enginehost/internal/events"
	"github.com/biodockify/enginehost/internal/host"
	"github.com/biodockify/enginehost/internal/logging"
	"github.com/biodockify/enginehost/internal/supervisor"
	"github.com/biodockify/enginehost/internal/systemd"
)

// Options for the CLI - flat structure with toml mapping.
//
// The [engine] table is read with config.LoadEngineConfig so it can be
// reloaded; the Engine* fields here are CLI/env overrides layered on top.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"biodockify.toml"`

	// Engine overrides
	EnginePath      string `help:"Engine executable; bare names are looked up next to the host, then in PATH" short:"e" env:"ENGINE_PATH"`
	EngineArgs      string `help:"Engine arguments as one shell-quoted string" env:"ENGINE_ARGS"`
	EngineDir       string `help:"Engine working directory" env:"ENGINE_DIR"`
	EngineOutputTag string `help:"Prefix for engine output lines in the log" env:"ENGINE_OUTPUT_TAG"`
	EngineReadyAddr string `help:"TCP address probed to detect engine readiness" env:"ENGINE_READY_ADDR"`

	// Restart policy
	RestartUnexpectedExitDelay time.Duration `help:"Delay before restarting after the engine exits" default:"2s" toml:"restart.unexpected_exit_delay" env:"RESTART_UNEXPECTED_EXIT_DELAY"`
	RestartSpawnFailureDelay   time.Duration `help:"Delay before retrying after the engine failed to start" default:"5s" toml:"restart.spawn_failure_delay" env:"RESTART_SPAWN_FAILURE_DELAY"`
	RestartMaxRestarts         int           `help:"Consecutive failures before giving up (0 retries forever)" default:"0" toml:"restart.max_restarts" env:"RESTART_MAX_RESTARTS"`
	RestartStableAfter         time.Duration `help:"Run length that resets the failure count" default:"1m" toml:"restart.stable_after" env:"RESTART_STABLE_AFTER"`
	RestartGracefulTimeout     time.Duration `help:"Wait after SIGTERM before SIGKILL" default:"5s" toml:"restart.graceful_timeout" env:"RESTART_GRACEFUL_TIMEOUT"`
	RestartKillTimeout         time.Duration `help:"Wait after SIGKILL before giving up on the engine" default:"5s" toml:"restart.kill_timeout" env:"RESTART_KILL_TIMEOUT"`

	// Host settings
	HostShutdownTimeout time.Duration `help:"Upper bound for stopping the engine on quit" default:"15s" toml:"host.shutdown_timeout" env:"HOST_SHUTDOWN_TIMEOUT"`
	HostWatchConfig     bool          `help:"Restart the engine when the [engine] table changes" default:"true" toml:"host.watch_config" env:"HOST_WATCH_CONFIG"`

	// Server settings
	ServerAddr           string `help:"Control API listen address, empty disables it" default:"127.0.0.1:8235" toml:"server.addr" env:"SERVER_ADDR"`
	ServerAllowedOrigins string `help:"Comma-separated browser origins allowed to call the API, \"*\" for any" toml:"server.allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`

	// Auth settings
	AuthUsername string `help:"Basic auth username, empty disables auth" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Systemd settings
	SystemdControl   bool   `help:"Expose the host unit's status and restart over the API" default:"false" toml:"systemd.control_enabled" env:"SYSTEMD_CONTROL"`
	SystemdUnit      string `help:"Unit the host runs as" default:"biodockify.service" toml:"systemd.unit" env:"SYSTEMD_UNIT"`
	SystemdSystemBus bool   `help:"Use the system bus instead of the user bus" default:"false" toml:"systemd.system_bus" env:"SYSTEMD_SYSTEM_BUS"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingFile   string `help:"Rotating log file; \"cache\" writes app.log under the user cache dir" toml:"logging.file" env:"LOGGING_FILE"`
}

func (o *Options) restartPolicy() supervisor.RestartPolicy {
	policy := supervisor.DefaultRestartPolicy()
	policy.UnexpectedExitDelay = o.RestartUnexpectedExitDelay
	policy.SpawnFailureDelay = o.RestartSpawnFailureDelay
	policy.MaxRestarts = o.RestartMaxRestarts
	policy.StableAfter = o.RestartStableAfter
	policy.GracefulTimeout = o.RestartGracefulTimeout
	policy.KillTimeout = o.RestartKillTimeout
	return policy
}

// engineOverrides collects the engine settings given on the command line or
// in the environment.
func (o *Options) engineOverrides() (config.EngineConfig, error) {
	args, err := supervisor.ParseArgs(o.EngineArgs)
	if err != nil {
		return config.EngineConfig{}, err
	}
	return config.EngineConfig{
		Path:      o.EnginePath,
		Args:      args,
		Dir:       o.EngineDir,
		OutputTag: o.EngineOutputTag,
		ReadyAddr: o.EngineReadyAddr,
	}, nil
}

func (o *Options) allowedOrigins() []string {
	var origins []string
	for origin := range strings.SplitSeq(o.ServerAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (o *Options) loggingConfig() logging.Config {
	cfg := config.LoadLoggingConfig(o.Config)
	cfg.Level = o.LoggingLevel
	cfg.Format = o.LoggingFormat
	if o.LoggingFile != "" {
		cfg.File = o.LoggingFile
	}
	if cfg.File == "cache" {
		path, err := logging.DefaultLogFile()
		if err != nil {
			slog.Warn("No user cache dir, file logging disabled", "error", err)
			path = ""
		}
		cfg.File = path
	}
	return cfg
}

// loadEngineTable reads [engine] from the config file. A missing file
// yields the defaults.
func loadEngineTable(path string) (config.EngineConfig, error) {
	cfg, err := config.LoadEngineConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.EngineConfig{}, nil
	}
	return cfg, err
}

func resolveEngine(name string) string {
	return supervisor.ResolveEngine(name, "")
}

func main() {
	var root *cobra.Command

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, root); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		eventBus := events.New()

		var logSeq atomic.Uint64
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        logSeq.Add(1),
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		overrides, err := opts.engineOverrides()
		if err != nil {
			logger.Error("Invalid engine arguments", "error", err)
			os.Exit(2)
		}
		engineTable, err := loadEngineTable(opts.Config)
		if err != nil {
			logger.Warn("Failed to load engine config, using defaults", "error", err)
		}
		engineCfg := engineTable.Merge(overrides)
		command := engineCfg.Command(resolveEngine)

		supOpts := supervisor.Options{
			Command:      command,
			Policy:       opts.restartPolicy(),
			OutputTag:    engineCfg.OutputTag,
			ReadyAddr:    engineCfg.ReadyAddr,
			Logger:       logging.GetLogger("supervisor"),
			OutputLogger: logging.GetLogger("engine"),
		}
		observer := host.NewObserver(eventBus)
		observer.Attach(&supOpts)
		sup := supervisor.New(supOpts)
		observer.Bind(sup)

		h := host.New(sup, host.Options{
			ShutdownTimeout: opts.HostShutdownTimeout,
			EventBus:        eventBus,
			Logger:          logging.GetLogger("host"),
		})

		var watcher *config.Watcher[config.EngineConfig]
		if opts.HostWatchConfig {
			watcher = config.NewConfigWatcher(opts.Config, config.LoadEngineConfig, logging.GetLogger("config"))
			current := command
			watcher.OnReload(func(table config.EngineConfig) {
				next := table.Merge(overrides).Command(resolveEngine)
				if next.Equal(current) {
					logger.Debug("Engine command unchanged, not restarting")
					return
				}
				if restartErr := sup.RequestRestart(&next); restartErr != nil {
					logger.Warn("Engine command changed but restart failed", "error", restartErr)
					return
				}
				logger.Info("Engine command changed, restarting", "command", next.String())
				current = next
			})
		}

		stopped := make(chan struct{})

		hooks.OnStart(func() {
			defer close(stopped)

			if watcher != nil {
				if startErr := watcher.Start(); startErr != nil {
					logger.Warn("Config watcher not started", "path", opts.Config, "error", startErr)
					watcher = nil
				}
			}

			var serviceManager *systemd.Manager
			apiOpts := &api.Options{
				AuthUsername:      opts.AuthUsername,
				AuthPassword:      opts.AuthPassword,
				Engine:            sup,
				Host:              h,
				EventBus:          eventBus,
				PrometheusHandler: promhttp.Handler(),
				AllowOrigins:      opts.allowedOrigins(),
			}
			if opts.SystemdControl {
				manager, managerErr := systemd.NewManager(context.Background(), opts.SystemdUnit, opts.SystemdSystemBus)
				if managerErr != nil {
					logger.Warn("Systemd control unavailable", "error", managerErr)
				} else {
					serviceManager = manager
					apiOpts.ServiceManager = manager
				}
			}

			var server *api.Server
			if opts.ServerAddr != "" {
				server = api.NewServer(apiOpts)
				go func() {
					if startErr := server.Start(opts.ServerAddr); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
						logger.Error("Failed to start HTTP server", "error", startErr)
						h.Quit()
					}
				}()
			}

			runErr := h.Run(context.Background())

			if server != nil {
				if stopErr := server.Stop(); stopErr != nil {
					logger.Error("Error stopping HTTP server", "error", stopErr)
				}
			}
			if watcher != nil {
				if stopErr := watcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping config watcher", "error", stopErr)
				}
			}
			if serviceManager != nil {
				serviceManager.Close()
			}

			if runErr != nil {
				logger.Error("Host stopped with error", "error", runErr)
			} else {
				logger.Info("Host stopped")
			}
			_ = logging.Close()
		})

		hooks.OnStop(func() {
			// The CLI exits as soon as this returns.
			h.Quit()
			select {
			case <-stopped:
			case <-time.After(opts.HostShutdownTimeout + 5*time.Second):
				logger.Error("Timed out waiting for host to stop")
			}
		})
	})

	root = cli.Root()
	root.Use = "biodockify-enginehost"
	root.Short = "Supervise the BioDockify engine sidecar"

	root.AddCommand(cmd.CreateSuperviseCmd())
	root.AddCommand(cmd.CreateResolveEngineCmd())
	root.AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}
