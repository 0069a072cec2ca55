// Package phase implements the phase contract (spec §4.9): one
// uniform interface the orchestrator drives, and the six concrete
// phases built on it.
package phase

import (
	"github.com/xchecker/xchecker/internal/artifact"
	"github.com/xchecker/xchecker/internal/llm"
	"github.com/xchecker/xchecker/internal/packet"
	"github.com/xchecker/xchecker/internal/phaseid"
	"github.com/xchecker/xchecker/internal/redact"
	"github.com/xchecker/xchecker/internal/sandbox"
)

// FixupMode selects whether the Fixup phase only previews the rewrites
// it would make (no promotion) or applies them (SPEC_FULL.md §5
// supplemented feature 1).
type FixupMode string

const (
	Preview FixupMode = "preview"
	Apply   FixupMode = "apply"
)

// NextStep is the orchestrator instruction a phase's postprocess
// returns.
type NextStep string

const (
	// Continue tells the orchestrator to promote every staged artifact.
	Continue NextStep = "continue"
	// Stop ends the run without error but without promoting (used when
	// a phase determines there is nothing further to do).
	Stop NextStep = "stop"
	// Fail signals postprocess itself rejected the backend's output
	// (e.g. a required artifact block was absent).
	Fail NextStep = "fail"
	// PreviewStep is Fixup's dry-run outcome: artifacts are staged for
	// inspection but never promoted.
	PreviewStep NextStep = "preview"
)

// Context is everything a phase needs to build its packet, prompt, and
// interpret its own output. It is constructed fresh by the
// orchestrator for each phase execution.
type Context struct {
	SpecID       string
	Artifacts    *artifact.Manager
	Sandbox      *sandbox.Sandbox
	Redactor     *redact.Redactor
	Model        string
	IncludeGlobs []string
	ExcludeGlobs []string
	Budgets      packet.Budgets
	FixupMode    FixupMode
}

// PhaseResult is what postprocess returns: zero or more artifacts
// ready for staging, the orchestrator's next instruction, and free-form
// metadata folded into the receipt (e.g. llm.budget_exhausted).
type PhaseResult struct {
	Artifacts []artifact.Artifact
	NextStep  NextStep
	Metadata  map[string]any
}

// Phase is the uniform contract the orchestrator drives (spec §4.9).
type Phase interface {
	ID() phaseid.ID
	Deps() []phaseid.ID
	CanResume() bool
	MakePacket(ctx Context) (packet.Packet, error)
	Prompt(ctx Context, pkt packet.Packet) (string, error)
	Postprocess(ctx Context, raw llm.LlmResult) (PhaseResult, error)
}

// artifactName returns the standard `<prefix>-<slug><ext>` filename
// for a phase's artifact.
func artifactName(id phaseid.ID, ext string) string {
	return id.Prefix() + "-" + id.Slug() + ext
}
