package doctor

import (
	"context"
	"strings"
	"testing"

	"github.com/xchecker/xchecker/internal/errkind"
	"github.com/xchecker/xchecker/internal/facade"
	"github.com/xchecker/xchecker/internal/llm"
	"github.com/xchecker/xchecker/internal/phaseid"
	"github.com/xchecker/xchecker/internal/receipt"
)

func newTestFacade(t *testing.T) *facade.Facade {
	t.Helper()
	p := facade.Params{
		StorageRoot:   t.TempDir(),
		WorkspaceRoot: t.TempDir(),
		SpecID:        "demo",
		Backend:       &llm.MockBackend{},
	}
	f, err := facade.New(p)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestRun_NoReceiptsYet(t *testing.T) {
	f := newTestFacade(t)
	if err := Run(context.Background(), f); err != nil {
		t.Errorf("expected nil error with no receipts, got %v", err)
	}
}

func TestRun_NotFailed(t *testing.T) {
	text := "```markdown file=00-requirements.md\nbody\n```\n```yaml file=00-requirements.core.yaml\nkey: value\n```\n"
	f := facadeWithMock(t, text)
	if err := Run(context.Background(), f); err != nil {
		t.Errorf("expected nil error for a successful last receipt, got %v", err)
	}
}

func facadeWithMock(t *testing.T, responseText string) *facade.Facade {
	t.Helper()
	p := facade.Params{
		StorageRoot:   t.TempDir(),
		WorkspaceRoot: t.TempDir(),
		SpecID:        "demo",
		Backend:       &llm.MockBackend{Result: &llm.LlmResult{Text: responseText}},
	}
	f, err := facade.New(p)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	if _, err := f.RunPhase(context.Background(), phaseid.Requirements); err != nil {
		t.Fatalf("seeding a successful receipt failed: %v", err)
	}
	return f
}

func TestGatherReceiptSummary_IncludesCoreFields(t *testing.T) {
	r := receipt.Receipt{
		Phase:       "design",
		ExitCode:    70,
		ErrorKind:   "claude_failure",
		ErrorReason: "provider error: boom",
		Warnings:    []string{"rename_retry_count: 2"},
		Llm:         &receipt.LlmSubRecord{InvocationID: "abc-123", BudgetUsed: 3, BudgetLimit: 20},
	}
	summary := gatherReceiptSummary(r)
	for _, want := range []string{"Phase: design", "Exit code: 70", "claude_failure", "boom", "rename_retry_count: 2", "abc-123"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestRemediationHint_CoversEveryKind(t *testing.T) {
	kinds := []errkind.Kind{
		errkind.CliArgs, errkind.PacketOverflow, errkind.SecretDetected,
		errkind.LockHeld, errkind.PhaseTimeout, errkind.ClaudeFailure, errkind.Unknown,
	}
	for _, k := range kinds {
		if remediationHint(k) == "" {
			t.Errorf("remediationHint(%v) returned an empty hint", k)
		}
	}
}
