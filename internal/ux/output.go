package ux

import (
	"fmt"
	"time"

	"github.com/xchecker/xchecker/internal/phaseid"
)

// ANSI color helpers
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// PhaseHeader prints a timestamped header before a phase runs.
func PhaseHeader(id phaseid.ID) {
	fmt.Printf("\n%s[%s]%s %s══════════════════════════════════════%s\n",
		Dim, timestamp(), Reset, Cyan, Reset)
	fmt.Printf("%s[%s]%s  %sPhase: %s%s\n",
		Dim, timestamp(), Reset, Bold, id, Reset)
	fmt.Printf("%s[%s]%s %s══════════════════════════════════════%s\n",
		Dim, timestamp(), Reset, Cyan, Reset)
}

// PhaseComplete prints a phase completion message.
func PhaseComplete(id phaseid.ID, duration time.Duration) {
	m := int(duration.Minutes())
	s := int(duration.Seconds()) % 60
	fmt.Printf("%s[%s]%s  %s✓ %s complete (%dm %02ds)%s\n",
		Dim, timestamp(), Reset, Green, id, m, s, Reset)
}

// PhaseFail prints a phase failure message, naming the receipt's closed
// error kind so the next command to run (usually "xchecker doctor") is
// obvious without re-reading the receipt.
func PhaseFail(id phaseid.ID, exitCode int, errorKind, reason string) {
	fmt.Printf("%s[%s]%s  %s✗ %s failed (exit %d, %s): %s%s\n",
		Dim, timestamp(), Reset, Red, id, exitCode, errorKind, reason, Reset)
}

// ResumeHint prints the command to retry a failed phase.
func ResumeHint(specID string, id phaseid.ID) {
	fmt.Printf("\n%sResume:%s xchecker run %s %s\n", Yellow, Reset, specID, id)
}

// Success prints a final success message after RunAll completes.
func Success(count int) {
	fmt.Printf("\n%s[%s]%s  %s%s══ %d phase(s) complete ══%s\n\n",
		Dim, timestamp(), Reset, Bold, Green, count, Reset)
}
