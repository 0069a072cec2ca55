package llm

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// GeminiCliBackend shells out to the `gemini` binary, non-interactively,
// using the same process-group-and-deadline shape as ClaudeCliBackend.
// Unlike claude -p, the gemini CLI's wire format is treated as an
// external-collaborator detail (SPEC_FULL.md §1): stdout is captured
// whole rather than parsed as a structured stream.
type GeminiCliBackend struct {
	Binary string
}

func (g *GeminiCliBackend) binary() string {
	if g.Binary != "" {
		return g.Binary
	}
	return "gemini"
}

func buildGeminiArgs(inv LlmInvocation) []string {
	args := []string{"-p", flattenMessages(inv.Messages)}
	if inv.Model != "" {
		args = append(args, "-m", inv.Model)
	}
	return args
}

func (g *GeminiCliBackend) Invoke(ctx context.Context, inv LlmInvocation) (*LlmResult, *LlmError) {
	ctx, cancel := deadlineContext(ctx, inv.Deadline)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.binary(), buildGeminiArgs(inv)...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, providerError("gemini: starting subprocess", err)
	}
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return nil, timeoutError()
	}
	if waitErr != nil {
		return nil, providerError("gemini: subprocess exited non-zero", waitErr)
	}

	return &LlmResult{Text: stdout.String(), StderrTail: tail(stderr.Bytes(), 2048)}, nil
}
