//go:build !windows

package llm

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the subprocess in its own process group so a
// timeout can kill the whole tree, not just the direct child —
// mirrors the teacher's dispatch.runAgentTurn.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
}
