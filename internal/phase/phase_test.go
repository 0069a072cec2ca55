package phase

import (
	"strings"
	"testing"

	"github.com/xchecker/xchecker/internal/artifact"
	"github.com/xchecker/xchecker/internal/llm"
	"github.com/xchecker/xchecker/internal/packet"
	"github.com/xchecker/xchecker/internal/phaseid"
	"github.com/xchecker/xchecker/internal/redact"
	"github.com/xchecker/xchecker/internal/sandbox"
)

func newTestContext(t *testing.T, specID string) (Context, *artifact.Manager) {
	t.Helper()
	root := t.TempDir()
	mgr, err := artifact.New(root, specID, artifact.Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mgr.Close() })

	sb, err := sandbox.New(t.TempDir(), sandbox.Policy{})
	if err != nil {
		t.Fatal(err)
	}
	red, err := redact.New(redact.Config{})
	if err != nil {
		t.Fatal(err)
	}

	return Context{
		SpecID:    specID,
		Artifacts: mgr,
		Sandbox:   sb,
		Redactor:  red,
		Model:     "mock",
		Budgets:   packet.DefaultBudgets,
	}, mgr
}

func promoteArtifact(t *testing.T, mgr *artifact.Manager, name, content string) {
	t.Helper()
	if _, err := mgr.StorePartialStagedArtifact(artifact.Artifact{Name: name, Content: []byte(content)}); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.PromoteStagedToFinal(name); err != nil {
		t.Fatal(err)
	}
}

func TestAnalyticalPhase_PostprocessRequiresBothBlocks(t *testing.T) {
	ctx, _ := newTestContext(t, "demo")
	p := NewRequirements()

	if _, err := p.Postprocess(ctx, llm.LlmResult{Text: "no fenced blocks here"}); err == nil {
		t.Fatal("expected an error when the response has no fenced blocks")
	}

	text := "```markdown file=00-requirements.md\nbody\n```\n"
	if _, err := p.Postprocess(ctx, llm.LlmResult{Text: text}); err == nil {
		t.Fatal("expected an error when the .core.yaml block is missing")
	}
}

func TestAnalyticalPhase_PostprocessExtractsBothArtifacts(t *testing.T) {
	ctx, _ := newTestContext(t, "demo")
	p := NewRequirements()

	text := "```markdown file=00-requirements.md\nthe requirements\n```\n" +
		"```yaml file=00-requirements.core.yaml\nkey: value\n```\n"

	result, err := p.Postprocess(ctx, llm.LlmResult{Text: text})
	if err != nil {
		t.Fatal(err)
	}
	if result.NextStep != Continue {
		t.Fatalf("NextStep = %v, want Continue", result.NextStep)
	}
	if len(result.Artifacts) != 2 {
		t.Fatalf("got %d artifacts, want 2", len(result.Artifacts))
	}
	if result.Artifacts[0].Name != "00-requirements.md" || string(result.Artifacts[0].Content) != "the requirements" {
		t.Fatalf("unexpected md artifact: %+v", result.Artifacts[0])
	}
	if result.Artifacts[1].Name != "00-requirements.core.yaml" || result.Artifacts[1].Classifier != artifact.ClassCoreYAML {
		t.Fatalf("unexpected yaml artifact: %+v", result.Artifacts[1])
	}
}

func TestAnalyticalPhase_PromptIncludesPacketAndNames(t *testing.T) {
	ctx, _ := newTestContext(t, "demo")
	p := NewDesign()

	prompt, err := p.Prompt(ctx, packet.Packet{Content: "PACKET-BODY"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "PACKET-BODY") || !strings.Contains(prompt, "10-design.md") || !strings.Contains(prompt, "10-design.core.yaml") {
		t.Fatalf("prompt missing expected substitutions: %s", prompt)
	}
}

func TestReviewPhase_PromptRequiresTasksArtifact(t *testing.T) {
	ctx, _ := newTestContext(t, "demo")
	p := NewReview()

	if _, err := p.Prompt(ctx, packet.Packet{}); err == nil {
		t.Fatal("expected error reading a nonexistent tasks artifact")
	}
}

func TestReviewPhase_PromptEmbedsTasksContent(t *testing.T) {
	ctx, mgr := newTestContext(t, "demo")
	promoteArtifact(t, mgr, "20-tasks.md", "TASK LIST BODY")

	p := NewReview()
	prompt, err := p.Prompt(ctx, packet.Packet{Content: "pkt"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "TASK LIST BODY") {
		t.Fatalf("prompt missing tasks content: %s", prompt)
	}
}

func TestFixupPhase_NoOpsWithoutBackendCall(t *testing.T) {
	ctx, mgr := newTestContext(t, "demo")
	promoteArtifact(t, mgr, "30-review.core.yaml", "diff: \"\"\n")

	p := NewFixup()
	pkt, err := p.MakePacket(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pkt.Content != "" {
		t.Fatalf("expected a degenerate empty packet, got %+v", pkt)
	}
	prompt, err := p.Prompt(ctx, pkt)
	if err != nil {
		t.Fatal(err)
	}
	if prompt != "" {
		t.Fatalf("expected an empty prompt, got %q", prompt)
	}

	result, err := p.Postprocess(ctx, llm.LlmResult{})
	if err != nil {
		t.Fatal(err)
	}
	if result.NextStep != Continue {
		t.Fatalf("NextStep = %v, want Continue for apply mode with no diff", result.NextStep)
	}
	if len(result.Artifacts) != 1 || result.Artifacts[0].Name != "40-fixup.md" {
		t.Fatalf("unexpected artifacts: %+v", result.Artifacts)
	}
}

func TestFixupPhase_AppliesDiffToTargetArtifact(t *testing.T) {
	ctx, mgr := newTestContext(t, "demo")
	promoteArtifact(t, mgr, "00-requirements.md", "line one\nline two\nline three\n")

	diff := "--- a/00-requirements.md\n+++ b/00-requirements.md\n" +
		"@@ -1,3 +1,3 @@\n line one\n-line two\n+line TWO\n line three\n"
	reviewCore := "diff: |\n" + indent(diff) + "\n"
	promoteArtifact(t, mgr, "30-review.core.yaml", reviewCore)

	p := NewFixup()
	result, err := p.Postprocess(ctx, llm.LlmResult{})
	if err != nil {
		t.Fatal(err)
	}
	if result.NextStep != Continue {
		t.Fatalf("NextStep = %v, want Continue", result.NextStep)
	}

	var rewritten string
	for _, a := range result.Artifacts {
		if a.Name == "00-requirements.md" {
			rewritten = string(a.Content)
		}
	}
	want := "line one\nline TWO\nline three"
	if rewritten != want {
		t.Fatalf("rewritten = %q, want %q", rewritten, want)
	}
}

func TestFixupPhase_PreviewModeNeverContinues(t *testing.T) {
	ctx, mgr := newTestContext(t, "demo")
	ctx.FixupMode = Preview
	promoteArtifact(t, mgr, "30-review.core.yaml", "diff: \"\"\n")

	p := NewFixup()
	result, err := p.Postprocess(ctx, llm.LlmResult{})
	if err != nil {
		t.Fatal(err)
	}
	if result.NextStep != PreviewStep {
		t.Fatalf("NextStep = %v, want PreviewStep", result.NextStep)
	}
}

func TestFinalPhase_PromptToleratesMissingFixup(t *testing.T) {
	ctx, mgr := newTestContext(t, "demo")
	promoteArtifact(t, mgr, "00-requirements.md", "reqs")
	promoteArtifact(t, mgr, "10-design.md", "design")
	promoteArtifact(t, mgr, "20-tasks.md", "tasks")

	p := NewFinal()
	prompt, err := p.Prompt(ctx, packet.Packet{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "fixup not run") {
		t.Fatalf("expected a fixup-not-run placeholder, got: %s", prompt)
	}
}

func TestFinalPhase_PostprocessEmitsOnlyMarkdown(t *testing.T) {
	ctx, _ := newTestContext(t, "demo")
	p := NewFinal()

	text := "```markdown file=50-final.md\nsummary\n```\n"
	result, err := p.Postprocess(ctx, llm.LlmResult{Text: text})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Artifacts) != 1 || result.Artifacts[0].Classifier != artifact.ClassMarkdown {
		t.Fatalf("unexpected artifacts: %+v", result.Artifacts)
	}
}

func TestRegistry_AllReturnsSixPhasesInOrder(t *testing.T) {
	phases := All()
	if len(phases) != 6 {
		t.Fatalf("got %d phases, want 6", len(phases))
	}
	for i, p := range phases {
		if p.ID() != phaseid.All[i] {
			t.Fatalf("phase %d has ID %v, want %v", i, p.ID(), phaseid.All[i])
		}
	}
}

// indent prepends two spaces to every line, for embedding a raw diff
// inside a YAML block scalar in test fixtures.
func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
