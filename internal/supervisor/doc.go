// Package supervisor keeps the backend engine sidecar alive.
//
// A Supervisor owns exactly one child process at a time:
//   - Spawns the engine at host startup and respawns it after every exit
//   - Streams stdout (and stderr) line by line to a logger and an OutputHandler
//   - Treats end of stdout as the exit signal; exit codes never change the policy
//   - Backs off for a fixed delay between attempts (RestartPolicy)
//   - On Shutdown sends SIGTERM to the process group, then SIGKILL after a timeout
//
// States move idle -> starting -> running -> backing_off -> starting ... and
// any state -> shutting_down -> stopped. Stopped is terminal.
//
// Example:
//
//	sup := supervisor.New(supervisor.Options{
//	    Command: supervisor.Command{Path: supervisor.ResolveEngine("biodockify-engine", "")},
//	    Policy:  supervisor.DefaultRestartPolicy(),
//	    Logger:  logging.GetLogger("supervisor"),
//	})
//	sup.Start(ctx)
//	defer sup.Shutdown(context.Background())
package supervisor
