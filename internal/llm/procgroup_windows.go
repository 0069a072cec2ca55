//go:build windows

package llm

import "os/exec"

// setProcessGroup is a no-op on Windows; there is no Setpgid
// equivalent wired here, matching the teacher's Windows posture of
// relying on WaitDelay alone.
func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
