package cmd

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/biodockify/enginehost/internal/config"
	"github.com/biodockify/enginehost/internal/host"
	"github.com/biodockify/enginehost/internal/logging"
	"github.com/biodockify/enginehost/internal/supervisor"
)

// CreateSuperviseCmd creates the supervise command.
func CreateSuperviseCmd() *cobra.Command {
	var configFile string
	var enginePath string
	var engineArgs string
	var readyAddr string
	var maxRestarts int
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "supervise",
		Short: "Run the engine under the supervisor without the control API",
		Long: `Spawns the engine and keeps it running in the foreground until interrupted. ` +
			`Reads the [engine] table from the config file; flags override it. ` +
			`Useful for debugging an engine build or as a minimal systemd unit.`,
		Args: cobra.NoArgs,
		// Skip the server setup done by the root command.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(_ *cobra.Command, _ []string) {
			loggingConfig := logging.Config{
				Level:  "info",
				Format: "text",
			}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			defer logging.Close()
			logger := logging.GetLogger("supervise")

			engineCfg, err := config.LoadEngineConfig(configFile)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				logger.Error("Failed to load engine configuration", "error", err, "config", configFile)
				os.Exit(1)
			}

			args, err := supervisor.ParseArgs(engineArgs)
			if err != nil {
				logger.Error("Invalid engine arguments", "error", err)
				os.Exit(2)
			}
			engineCfg = engineCfg.Merge(config.EngineConfig{
				Path:      enginePath,
				Args:      args,
				ReadyAddr: readyAddr,
			})

			policy := supervisor.DefaultRestartPolicy()
			policy.MaxRestarts = maxRestarts

			supOpts := supervisor.Options{
				Command: engineCfg.Command(func(name string) string {
					return supervisor.ResolveEngine(name, "")
				}),
				Policy:       policy,
				OutputTag:    engineCfg.OutputTag,
				ReadyAddr:    engineCfg.ReadyAddr,
				Logger:       logger,
				OutputLogger: logging.GetLogger("engine"),
			}
			host.NewObserver(nil).Attach(&supOpts)
			sup := supervisor.New(supOpts)

			logger.Info("Starting supervise command", "command", supOpts.Command.String(), "config", configFile)

			h := host.New(sup, host.Options{Logger: logging.GetLogger("host")})
			if err := h.Run(context.Background()); err != nil {
				logger.Error("Supervise stopped with error", "error", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "biodockify.toml", "Configuration file with an [engine] table")
	cmd.Flags().StringVarP(&enginePath, "engine", "e", "", "Engine executable (overrides engine.path)")
	cmd.Flags().StringVar(&engineArgs, "args", "", "Engine arguments as one shell-quoted string (overrides engine.args)")
	cmd.Flags().StringVar(&readyAddr, "ready-addr", "", "TCP address probed to detect readiness (overrides engine.ready_addr)")
	cmd.Flags().IntVar(&maxRestarts, "max-restarts", 0, "Consecutive failures before giving up (0 retries forever)")
	cmd.Flags().BoolVar(&logJSON, "json", false, "Output logs in JSON format")

	return cmd
}
