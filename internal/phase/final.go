package phase

import (
	"fmt"

	"github.com/xchecker/xchecker/internal/llm"
	"github.com/xchecker/xchecker/internal/packet"
	"github.com/xchecker/xchecker/internal/phaseid"
)

const finalPromptTemplate = `You are producing the final consolidated summary for spec ${SPEC_ID}.

Requirements:
${REQUIREMENTS_MD}

Design:
${DESIGN_MD}

Tasks:
${TASKS_MD}

Fixup notes:
${FIXUP_MD}

Respond with exactly one fenced block:

` + "```" + `markdown file=${MD_NAME}
<the final summary, referencing what changed across requirements,
design, tasks, and any applied fixups>
` + "```" + `
`

// finalPhase is the terminal phase: it reads every prior phase's final
// artifact and asks the model for one consolidated summary. Unlike the
// analytical phases it emits only a `.md` artifact (spec §4.6: Fixup
// and Final never produce a .core.yaml companion).
type finalPhase struct{}

func (finalPhase) ID() phaseid.ID     { return phaseid.Final }
func (finalPhase) Deps() []phaseid.ID { return phaseid.Deps(phaseid.Final) }
func (finalPhase) CanResume() bool    { return true }

func (finalPhase) MakePacket(ctx Context) (packet.Packet, error) {
	return packet.Build(packet.Options{
		Root:         ctx.Sandbox,
		IncludeGlobs: ctx.IncludeGlobs,
		ExcludeGlobs: ctx.ExcludeGlobs,
		Budgets:      ctx.Budgets,
		Redactor:     ctx.Redactor,
	})
}

func (finalPhase) Prompt(ctx Context, pkt packet.Packet) (string, error) {
	requirementsMD, err := ctx.Artifacts.ReadFinalArtifact(artifactName(phaseid.Requirements, ".md"))
	if err != nil {
		return "", fmt.Errorf("final: reading requirements artifact: %w", err)
	}
	designMD, err := ctx.Artifacts.ReadFinalArtifact(artifactName(phaseid.Design, ".md"))
	if err != nil {
		return "", fmt.Errorf("final: reading design artifact: %w", err)
	}
	tasksMD, err := ctx.Artifacts.ReadFinalArtifact(artifactName(phaseid.Tasks, ".md"))
	if err != nil {
		return "", fmt.Errorf("final: reading tasks artifact: %w", err)
	}
	fixupMD, err := ctx.Artifacts.ReadFinalArtifact(artifactName(phaseid.Fixup, ".md"))
	if err != nil {
		// Fixup is optional ahead of Final (spec §4.10's transition
		// table allows Tasks -> Final directly); its absence isn't an
		// error.
		fixupMD = []byte("(fixup not run)")
	}

	return expandVars(finalPromptTemplate, map[string]string{
		"SPEC_ID":         ctx.SpecID,
		"REQUIREMENTS_MD": string(requirementsMD),
		"DESIGN_MD":       string(designMD),
		"TASKS_MD":        string(tasksMD),
		"FIXUP_MD":        string(fixupMD),
		"MD_NAME":         artifactName(phaseid.Final, ".md"),
	}), nil
}

func (finalPhase) Postprocess(ctx Context, raw llm.LlmResult) (PhaseResult, error) {
	result, err := postprocessFencedArtifacts(phaseid.Final, raw.Text, false)
	if err != nil {
		return PhaseResult{}, err
	}
	return result, nil
}

// NewFinal constructs the Final phase.
func NewFinal() Phase { return finalPhase{} }
