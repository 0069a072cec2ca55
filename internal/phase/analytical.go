package phase

import (
	"fmt"
	"os"

	"github.com/xchecker/xchecker/internal/artifact"
	"github.com/xchecker/xchecker/internal/fileblocks"
	"github.com/xchecker/xchecker/internal/llm"
	"github.com/xchecker/xchecker/internal/packet"
	"github.com/xchecker/xchecker/internal/phaseid"
)

// expandVars is a minimal ${VAR}-style template substitution, the
// same os.Expand-based shape as the teacher's dispatch.ExpandVars, but
// kept local so internal/phase doesn't pick up a dependency on
// internal/dispatch's config.Phase-shaped environment.
func expandVars(template string, vars map[string]string) string {
	return os.Expand(template, func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		return os.Getenv(key)
	})
}

// analyticalPhase implements the "packet-in, artifacts-out" shape
// shared by Requirements, Design, and Tasks (spec §4.9): build a
// packet from the sandbox, prompt the model once, and expect the
// response to contain two fenced file= blocks naming this phase's
// `.md` and `.core.yaml` artifacts.
type analyticalPhase struct {
	id             phaseid.ID
	promptTemplate string
}

func (p analyticalPhase) ID() phaseid.ID     { return p.id }
func (p analyticalPhase) Deps() []phaseid.ID { return phaseid.Deps(p.id) }
func (p analyticalPhase) CanResume() bool    { return true }

func (p analyticalPhase) MakePacket(ctx Context) (packet.Packet, error) {
	return packet.Build(packet.Options{
		Root:         ctx.Sandbox,
		IncludeGlobs: ctx.IncludeGlobs,
		ExcludeGlobs: ctx.ExcludeGlobs,
		Budgets:      ctx.Budgets,
		Redactor:     ctx.Redactor,
	})
}

func (p analyticalPhase) Prompt(ctx Context, pkt packet.Packet) (string, error) {
	return expandVars(p.promptTemplate, map[string]string{
		"SPEC_ID":   ctx.SpecID,
		"PHASE":     p.id.Slug(),
		"PACKET":    pkt.Content,
		"MD_NAME":   artifactName(p.id, ".md"),
		"YAML_NAME": artifactName(p.id, ".core.yaml"),
	}), nil
}

func (p analyticalPhase) Postprocess(ctx Context, raw llm.LlmResult) (PhaseResult, error) {
	return postprocessFencedArtifacts(p.id, raw.Text, true)
}

// postprocessFencedArtifacts extracts this phase's `.md` (and,
// if requireYAML, `.core.yaml`) fenced blocks from the backend's raw
// text via the teacher's fileblocks.Parse, and fails loudly if a
// required block is missing rather than silently staging a partial
// result.
func postprocessFencedArtifacts(id phaseid.ID, text string, requireYAML bool) (PhaseResult, error) {
	blocks := fileblocks.Parse(text)
	byPath := make(map[string]string, len(blocks))
	for _, b := range blocks {
		byPath[b.Path] = b.Content
	}

	mdName := artifactName(id, ".md")
	md, ok := byPath[mdName]
	if !ok {
		return PhaseResult{}, fmt.Errorf("phase %s: response did not contain a %q block", id, mdName)
	}

	artifacts := []artifact.Artifact{
		{Name: mdName, Content: []byte(md), Classifier: artifact.ClassMarkdown},
	}

	if requireYAML {
		yamlName := artifactName(id, ".core.yaml")
		yamlContent, ok := byPath[yamlName]
		if !ok {
			return PhaseResult{}, fmt.Errorf("phase %s: response did not contain a %q block", id, yamlName)
		}
		artifacts = append(artifacts, artifact.Artifact{
			Name: yamlName, Content: []byte(yamlContent), Classifier: artifact.ClassCoreYAML,
		})
	}

	return PhaseResult{Artifacts: artifacts, NextStep: Continue}, nil
}

const requirementsPromptTemplate = `You are producing the requirements artifact for spec ${SPEC_ID}.

Context packet:
${PACKET}

Respond with exactly two fenced blocks:

` + "```" + `markdown file=${MD_NAME}
<the requirements document>
` + "```" + `

` + "```" + `yaml file=${YAML_NAME}
<a structured summary of the requirements>
` + "```" + `
`

const designPromptTemplate = `You are producing the design artifact for spec ${SPEC_ID}, building on
the requirements already recorded in the context packet below.

Context packet:
${PACKET}

Respond with exactly two fenced blocks:

` + "```" + `markdown file=${MD_NAME}
<the design document>
` + "```" + `

` + "```" + `yaml file=${YAML_NAME}
<a structured summary of the design>
` + "```" + `
`

const tasksPromptTemplate = `You are producing the task breakdown for spec ${SPEC_ID}, building on
the design already recorded in the context packet below.

Context packet:
${PACKET}

Respond with exactly two fenced blocks:

` + "```" + `markdown file=${MD_NAME}
<the task list>
` + "```" + `

` + "```" + `yaml file=${YAML_NAME}
<a structured summary of the tasks>
` + "```" + `
`

// NewRequirements, NewDesign, and NewTasks construct the three
// analytical phases.
func NewRequirements() Phase {
	return analyticalPhase{id: phaseid.Requirements, promptTemplate: requirementsPromptTemplate}
}
func NewDesign() Phase {
	return analyticalPhase{id: phaseid.Design, promptTemplate: designPromptTemplate}
}
func NewTasks() Phase {
	return analyticalPhase{id: phaseid.Tasks, promptTemplate: tasksPromptTemplate}
}
