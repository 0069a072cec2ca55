// Package doctor implements AI-assisted diagnosis of a spec's most
// recent failing receipt (adapted from the teacher's own doctor
// package, which diagnosed a failed phase's logs/prompt/feedback files
// instead of a structured receipt).
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/xchecker/xchecker/internal/errkind"
	"github.com/xchecker/xchecker/internal/facade"
	"github.com/xchecker/xchecker/internal/receipt"
)

const diagPromptTemplate = `You are diagnosing a failed xchecker phase run. Analyze the receipt below and provide a concise diagnosis.

## Receipt Summary
%s

## Suggested Direction
%s

Instructions:
1. Identify what went wrong from the receipt's error_kind, error_reason, and stderr tail.
2. Classify this as a CONFIGURATION problem (budgets, globs, backend wiring) or a CONTENT problem (something about the spec's own source files or prior artifacts).
3. Suggest specific fixes.
4. Recommend the next command to run:
   - xchecker run <spec> %s          (retry the failed phase as-is)
   - xchecker run <spec> %s --force  (if the failure was a stale lock)
   - Fix the underlying issue first, then retry

Be direct and concise. Focus on actionable advice.`

// Run diagnoses f's most recently written receipt. It is a no-op,
// printing a status line instead of invoking a backend, when no
// receipt exists yet or the latest one recorded a success.
func Run(ctx context.Context, f *facade.Facade) error {
	rec, ok, err := f.LastReceipt()
	if err != nil {
		return fmt.Errorf("doctor: reading latest receipt: %w", err)
	}
	if !ok {
		fmt.Println("No receipts recorded yet.")
		return nil
	}
	if rec.ExitCode == 0 {
		fmt.Println("No failed run to diagnose.")
		return nil
	}

	summary := gatherReceiptSummary(rec)
	hint := remediationHint(errkind.Kind(rec.ErrorKind))
	prompt := fmt.Sprintf(diagPromptTemplate, summary, hint, rec.Phase, rec.Phase)

	fmt.Printf("\n══ Doctor: diagnosing phase %q (exit %d) ══\n\n", rec.Phase, rec.ExitCode)

	if err := runClaude(ctx, prompt); err != nil {
		return fmt.Errorf("doctor: running claude: %w", err)
	}

	fmt.Println()
	fmt.Printf("Resume: xchecker run <spec> %s\n", rec.Phase)
	return nil
}

// gatherReceiptSummary renders the fields of rec most relevant to
// diagnosing a failure into a flat, human-readable block.
func gatherReceiptSummary(r receipt.Receipt) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Phase: %s", r.Phase))
	parts = append(parts, fmt.Sprintf("Exit code: %d", r.ExitCode))
	parts = append(parts, fmt.Sprintf("Error kind: %s", r.ErrorKind))
	if r.ErrorReason != "" {
		parts = append(parts, fmt.Sprintf("Error reason: %s", r.ErrorReason))
	}
	if r.Model.Name != "" {
		parts = append(parts, fmt.Sprintf("Model: %s", r.Model.Name))
	}
	if r.BackendTag != "" {
		parts = append(parts, fmt.Sprintf("Backend: %s", r.BackendTag))
	}
	if r.Packet != nil {
		parts = append(parts, fmt.Sprintf("Packet: %d files, byte budget %d, line budget %d",
			len(r.Packet.Files), r.Packet.ByteBudget, r.Packet.LineBudget))
	}
	if len(r.Warnings) > 0 {
		parts = append(parts, fmt.Sprintf("Warnings: %s", strings.Join(r.Warnings, "; ")))
	}
	if r.Llm != nil {
		parts = append(parts, fmt.Sprintf("LLM invocation: id=%s budget=%d/%d exhausted=%v",
			r.Llm.InvocationID, r.Llm.BudgetUsed, r.Llm.BudgetLimit, r.Llm.BudgetExhausted))
	}
	if r.StderrTailRedact != "" {
		parts = append(parts, fmt.Sprintf("Stderr tail (redacted):\n%s", r.StderrTailRedact))
	}
	return strings.Join(parts, "\n")
}

// remediationHint gives the model (and a human skimming doctor output)
// a starting point specific to the closed error taxonomy (spec §7).
func remediationHint(kind errkind.Kind) string {
	switch kind {
	case errkind.CliArgs:
		return "Check the requested phase against the fixed chain: requirements -> design -> tasks -> review -> fixup -> final, and confirm every dependency phase already has a successful receipt."
	case errkind.PacketOverflow:
		return "An Upstream-priority file could not fit its budget. Narrow selectors.include_globs, widen selectors.exclude_globs, or raise selectors.byte_budget/line_budget in .xchecker/config.toml."
	case errkind.SecretDetected:
		return "A candidate file matched a redaction pattern. Remove the secret from source, or add a scoped security.ignore_redact_patterns entry if it is a known false positive."
	case errkind.LockHeld:
		return "Another process holds this spec's lock, or it is stale. Wait for the other run to finish, or retry with --force once you've confirmed no other process is active."
	case errkind.PhaseTimeout:
		return "The backend call exceeded its deadline. Raise defaults.phase_timeout_seconds, or shrink the packet so the backend responds faster."
	case errkind.ClaudeFailure:
		return "The backend returned an error or its output was rejected during postprocessing. Inspect the stderr tail below for the underlying provider error."
	default:
		return "Uncategorized failure. Inspect the stderr tail and error reason below."
	}
}

// filteredEnv strips the current process's own Claude Code session
// variables before handing the environment to the diagnostic
// subprocess, so a nested claude invocation doesn't inherit them.
func filteredEnv() []string {
	var env []string
	for _, e := range os.Environ() {
		key := strings.SplitN(e, "=", 2)[0]
		if strings.HasPrefix(key, "CLAUDECODE") {
			continue
		}
		env = append(env, e)
	}
	return env
}

func runClaude(ctx context.Context, prompt string) error {
	cmd := exec.CommandContext(ctx, "claude", "-p", prompt, "--model", "sonnet")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = filteredEnv()
	return cmd.Run()
}
