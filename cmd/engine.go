package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/biodockify/enginehost/internal/config"
	"github.com/biodockify/enginehost/internal/supervisor"
)

// CreateResolveEngineCmd creates the resolve-engine command.
func CreateResolveEngineCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "resolve-engine [name]",
		Short: "Print the engine executable the host would launch",
		Long: `Resolves an engine name the way the host does: next to the host executable ` +
			`(plain and with the platform target triple), then PATH.`,
		Args:             cobra.MaximumNArgs(1),
		PersistentPreRun: func(*cobra.Command, []string) {},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := config.DefaultEngineName
			if len(args) == 1 {
				name = args[0]
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, supervisor.ResolveEngine(name, dir))
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				triple := supervisor.TargetTriple(runtime.GOOS, runtime.GOARCH)
				if triple == "" {
					triple = "(none)"
				}
				fmt.Fprintf(out, "platform: %s/%s\ntarget triple: %s\n", runtime.GOOS, runtime.GOARCH, triple)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory to search before PATH (default: next to the host executable)")
	cmd.Flags().BoolP("verbose", "v", false, "Also print the platform and target triple")

	return cmd
}
