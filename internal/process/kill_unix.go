//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// KillProcessGroup kills a process and all its children by sending SIGKILL
// to the process group (negative PID).
func KillProcessGroup(pid int) {
	// Best-effort cleanup; callers that own a handle kill it directly as well
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// Isolate puts cmd in its own process group and makes context cancellation
// kill the whole group. Office converters fork helpers that would otherwise
// outlive the timeout.
func Isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		KillProcessGroup(cmd.Process.Pid)
		return nil
	}
}
