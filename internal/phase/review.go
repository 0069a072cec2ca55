package phase

import (
	"fmt"

	"github.com/xchecker/xchecker/internal/llm"
	"github.com/xchecker/xchecker/internal/packet"
	"github.com/xchecker/xchecker/internal/phaseid"
)

const reviewPromptTemplate = `You are reviewing the task breakdown for spec ${SPEC_ID}.

Tasks artifact:
${TASKS_MD}

Context packet:
${PACKET}

Respond with exactly two fenced blocks. The yaml block's top-level
"diff" key holds a unified diff (one or more hunks, each with a
"--- a/<name>" / "+++ b/<name>" header naming an existing artifact by
its file name, e.g. 00-requirements.md) describing the edits you
recommend; leave it empty if you recommend none.

` + "```" + `markdown file=${MD_NAME}
<the review notes>
` + "```" + `

` + "```" + `yaml file=${YAML_NAME}
diff: |
  <unified diff, or blank>
` + "```" + `
`

// reviewPhase reads the Tasks artifact as input and emits a review
// artifact pairing human-readable notes with a machine-readable diff
// payload that Fixup later applies.
type reviewPhase struct{}

func (reviewPhase) ID() phaseid.ID     { return phaseid.Review }
func (reviewPhase) Deps() []phaseid.ID { return phaseid.Deps(phaseid.Review) }
func (reviewPhase) CanResume() bool    { return true }

func (reviewPhase) MakePacket(ctx Context) (packet.Packet, error) {
	return packet.Build(packet.Options{
		Root:         ctx.Sandbox,
		IncludeGlobs: ctx.IncludeGlobs,
		ExcludeGlobs: ctx.ExcludeGlobs,
		Budgets:      ctx.Budgets,
		Redactor:     ctx.Redactor,
	})
}

func (reviewPhase) Prompt(ctx Context, pkt packet.Packet) (string, error) {
	tasksMD, err := ctx.Artifacts.ReadFinalArtifact(artifactName(phaseid.Tasks, ".md"))
	if err != nil {
		return "", fmt.Errorf("review: reading tasks artifact: %w", err)
	}
	return expandVars(reviewPromptTemplate, map[string]string{
		"SPEC_ID":   ctx.SpecID,
		"TASKS_MD":  string(tasksMD),
		"PACKET":    pkt.Content,
		"MD_NAME":   artifactName(phaseid.Review, ".md"),
		"YAML_NAME": artifactName(phaseid.Review, ".core.yaml"),
	}), nil
}

func (reviewPhase) Postprocess(ctx Context, raw llm.LlmResult) (PhaseResult, error) {
	return postprocessFencedArtifacts(phaseid.Review, raw.Text, true)
}

// NewReview constructs the Review phase.
func NewReview() Phase { return reviewPhase{} }
