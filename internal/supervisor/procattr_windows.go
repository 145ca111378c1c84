//go:build windows

package supervisor

import (
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

// setSysProcAttr keeps the engine from opening a console window.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true, CreationFlags: createNoWindow}
}

// terminateProcess has no graceful equivalent for a windowless process on
// Windows, so it kills.
func terminateProcess(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func killProcess(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
