// Package sysinfo answers the two environment questions a receipt or
// status output needs to record (spec §3/§6): which runner produced it
// (native vs WSL) and, when known, which Linux distribution.
package sysinfo

import (
	"os"
	"runtime"
	"strings"
)

// RunnerLabel reports "wsl" when running inside Windows Subsystem for
// Linux, else "native". Detection follows the common /proc/version
// heuristic (WSL1 and WSL2 both stamp "microsoft" into the kernel
// release string); there is no syscall that answers this directly.
func RunnerLabel() string {
	if runtime.GOOS != "linux" {
		return "native"
	}
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return "native"
	}
	if strings.Contains(strings.ToLower(string(data)), "microsoft") {
		return "wsl"
	}
	return "native"
}

// Distro returns the PRETTY_NAME field of /etc/os-release, if present.
func Distro() (string, bool) {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(data), "\n") {
		name, value, ok := strings.Cut(line, "=")
		if !ok || name != "PRETTY_NAME" {
			continue
		}
		return strings.Trim(strings.TrimSpace(value), `"`), true
	}
	return "", false
}
