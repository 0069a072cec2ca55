// Package orchestrator implements the phase orchestrator (spec §4.10):
// the dependency-ordered state machine that runs one phase or the full
// chain, enforcing legal transitions, dependency coverage, staging
// discipline, and the receipt/exit-code invariants from spec §3/§7.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/xchecker/xchecker/internal/artifact"
	"github.com/xchecker/xchecker/internal/canon"
	"github.com/xchecker/xchecker/internal/errkind"
	"github.com/xchecker/xchecker/internal/llm"
	"github.com/xchecker/xchecker/internal/packet"
	"github.com/xchecker/xchecker/internal/phase"
	"github.com/xchecker/xchecker/internal/phaseid"
	"github.com/xchecker/xchecker/internal/receipt"
	"github.com/xchecker/xchecker/internal/redact"
	"github.com/xchecker/xchecker/internal/sandbox"
)

// Config is the fully-resolved set of values one phase execution
// needs. The façade (C11) is responsible for merging config sources
// down to this flat shape before constructing an Orchestrator.
type Config struct {
	Model        string
	IncludeGlobs []string
	ExcludeGlobs []string
	Budgets      packet.Budgets
	PhaseTimeout time.Duration
	FixupMode    phase.FixupMode
	BackendTag   string
	ToolVersions receipt.ToolVersions
	Runner       string
	Distro       string
	Flags        map[string]bool
}

// ExecutionResult is what RunPhase/RunAll return on both success and
// failure — the receipt is always populated (spec §8 invariant 2: the
// last receipt written for a phase always carries the exit code the
// process will exit with).
type ExecutionResult struct {
	Success     bool
	Phase       phaseid.ID
	Receipt     receipt.Receipt
	ReceiptPath string
}

// Orchestrator runs one phase or the full chain against a single spec.
// It is not safe for concurrent use — the façade above it is explicitly
// single-threaded (spec §4.11).
type Orchestrator struct {
	SpecID    string
	Artifacts *artifact.Manager
	Workspace *sandbox.Sandbox
	Redactor  *redact.Redactor
	Backend   llm.Backend
	Receipts  *receipt.Store
	Config    Config
}

// New constructs an Orchestrator. am must already hold the spec's lock
// (or be a read-only handle, for status-only callers that never call
// RunPhase/RunAll).
func New(specID string, am *artifact.Manager, workspace *sandbox.Sandbox, redactor *redact.Redactor, backend llm.Backend, receipts *receipt.Store, cfg Config) *Orchestrator {
	return &Orchestrator{
		SpecID:    specID,
		Artifacts: am,
		Workspace: workspace,
		Redactor:  redactor,
		Backend:   backend,
		Receipts:  receipts,
		Config:    cfg,
	}
}

// RunPhase executes exactly one phase (spec §4.10's numbered steps).
func (o *Orchestrator) RunPhase(ctx context.Context, requested phaseid.ID) (ExecutionResult, error) {
	if !requested.Valid() {
		return o.fail(requested, errkind.New(errkind.CliArgs, fmt.Sprintf("unknown phase %q", requested)))
	}

	completed, _ := o.Artifacts.GetLatestCompletedPhase()
	if !phaseid.CanTransition(completed, requested) {
		return o.fail(requested, errkind.New(errkind.CliArgs,
			fmt.Sprintf("%s is not a legal next phase (last completed: %s)", requested, completedLabel(completed))))
	}

	for _, dep := range phaseid.Deps(requested) {
		if !o.Artifacts.PhaseCompleted(dep) {
			return o.fail(requested, errkind.New(errkind.CliArgs,
				fmt.Sprintf("%s depends on %s, which has not completed", requested, dep)))
		}
		latest, ok, err := o.Receipts.ReadLatest(dep.Slug())
		if err != nil {
			return o.fail(requested, errkind.Wrap(errkind.Unknown, "reading dependency receipt", err))
		}
		if !ok || latest.ExitCode != 0 {
			return o.fail(requested, errkind.New(errkind.CliArgs,
				fmt.Sprintf("%s depends on %s, which has no successful receipt", requested, dep)))
		}
	}

	if err := o.Artifacts.RemoveStalePartialDir(); err != nil {
		return o.fail(requested, errkind.Wrap(errkind.Unknown, "clearing stale partial staging", err))
	}

	concrete, ok := phase.Get(requested)
	if !ok {
		return o.fail(requested, errkind.New(errkind.Unknown, fmt.Sprintf("no concrete phase registered for %s", requested)))
	}

	pctx := phase.Context{
		SpecID:       o.SpecID,
		Artifacts:    o.Artifacts,
		Sandbox:      o.Workspace,
		Redactor:     o.Redactor,
		Model:        o.Config.Model,
		IncludeGlobs: o.Config.IncludeGlobs,
		ExcludeGlobs: o.Config.ExcludeGlobs,
		Budgets:      o.Config.Budgets,
		FixupMode:    o.Config.FixupMode,
	}

	pkt, err := concrete.MakePacket(pctx)
	if err != nil {
		return o.fail(requested, classifyPhaseInputError(err))
	}

	promptText, err := concrete.Prompt(pctx, pkt)
	if err != nil {
		return o.fail(requested, errkind.Wrap(errkind.Unknown, "building prompt", err))
	}

	var result llm.LlmResult
	var llmSub *receipt.LlmSubRecord

	if promptText != "" {
		var deadline time.Time
		if o.Config.PhaseTimeout > 0 {
			deadline = time.Now().Add(o.Config.PhaseTimeout)
		}
		inv := llm.LlmInvocation{
			SpecID:   o.SpecID,
			Phase:    requested.Slug(),
			Model:    o.Config.Model,
			Deadline: deadline,
			Messages: []llm.Message{{Role: "user", Content: promptText}},
		}

		llmSub = &receipt.LlmSubRecord{InvocationID: uuid.NewString()}
		if budgeted, ok := o.Backend.(*llm.BudgetedBackend); ok {
			llmSub.BudgetLimit = budgeted.Limit()
		}

		start := time.Now()
		res, llmErr := o.Backend.Invoke(ctx, inv)
		llmSub.DurationMicro = time.Since(start).Microseconds()
		if budgeted, ok := o.Backend.(*llm.BudgetedBackend); ok {
			llmSub.BudgetUsed = int(budgeted.Used())
		}

		if llmErr != nil {
			kind := classifyLlmErrorKind(llmErr)
			if llmErr.Kind == llm.ErrBudgetExceeded {
				llmSub.BudgetExhausted = true
			}
			return o.failWithLlm(requested, errkind.Wrap(kind, llmErr.Error(), llmErr), llmSub, "")
		}
		result = *res
	}

	phaseResult, err := concrete.Postprocess(pctx, result)
	if err != nil {
		return o.failWithLlm(requested, errkind.Wrap(errkind.ClaudeFailure, "postprocessing backend output: "+err.Error(), err), llmSub, result.StderrTail)
	}
	if phaseResult.NextStep == phase.Fail {
		return o.failWithLlm(requested, errkind.New(errkind.ClaudeFailure, "phase postprocess rejected the backend output"), llmSub, result.StderrTail)
	}

	var warnings []string
	for _, a := range phaseResult.Artifacts {
		stored, err := o.Artifacts.StorePartialStagedArtifact(a)
		if err != nil {
			return o.failWithLlm(requested, errkind.Wrap(errkind.Unknown, "staging artifact "+a.Name, err), llmSub, result.StderrTail)
		}
		if stored.Retries > 0 {
			warnings = append(warnings, fmt.Sprintf("rename_retry_count: %d", stored.Retries))
		}
	}

	var outputHashes []receipt.OutputHash
	if phaseResult.NextStep == phase.Continue {
		for _, a := range phaseResult.Artifacts {
			finalPath, err := o.Artifacts.PromoteStagedToFinal(a.Name)
			if err != nil {
				return o.failWithLlm(requested, errkind.Wrap(errkind.Unknown, "promoting artifact "+a.Name, err), llmSub, result.StderrTail)
			}
			content, err := os.ReadFile(finalPath)
			if err != nil {
				return o.failWithLlm(requested, errkind.Wrap(errkind.Unknown, "reading promoted artifact "+a.Name, err), llmSub, result.StderrTail)
			}
			hash, err := canon.HashCanonical(content, a.Classifier.CanonType())
			if err != nil {
				return o.failWithLlm(requested, errkind.Wrap(errkind.Unknown, "canonicalizing "+a.Name, err), llmSub, result.StderrTail)
			}
			outputHashes = append(outputHashes, receipt.OutputHash{Path: "artifacts/" + a.Name, Hash: hash})
		}
	}

	args := receipt.Args{
		SpecID:       o.SpecID,
		Phase:        requested,
		ToolVersions: o.Config.ToolVersions,
		Model:        receipt.ModelIdentity{Name: o.Config.Model},
		BackendTag:   o.Config.BackendTag,
		Flags:        o.Config.Flags,
		Runner:       o.Config.Runner,
		Distro:       o.Config.Distro,
		Packet:       evidenceFromPacket(pkt),
		OutputHashes: outputHashes,
		ExitCode:     0,
		StderrTail:   result.StderrTail,
		Warnings:     warnings,
		Llm:          llmSub,
		EmittedAt:    time.Now().UTC(),
	}
	rec := receipt.CreateReceipt(args, o.Redactor)
	path, err := o.Receipts.Write(rec)
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("orchestrator: writing success receipt: %w", err)
	}

	return ExecutionResult{Success: true, Phase: requested, Receipt: rec, ReceiptPath: path}, nil
}

// RunAll iterates the dependency order (Requirements, Design, Tasks),
// stopping on the first failure (spec §4.10's "run-all"). Review,
// Fixup, and Final are optional and not invoked here unless a caller
// extends the sequence explicitly via repeated RunPhase calls.
func (o *Orchestrator) RunAll(ctx context.Context) (ExecutionResult, error) {
	sequence := []phaseid.ID{phaseid.Requirements, phaseid.Design, phaseid.Tasks}
	var last ExecutionResult
	var lastErr error
	for _, id := range sequence {
		last, lastErr = o.RunPhase(ctx, id)
		if lastErr != nil {
			return last, lastErr
		}
	}
	return last, lastErr
}

func completedLabel(completed phaseid.ID) string {
	if completed == phaseid.NoneCompleted {
		return "(none)"
	}
	return completed.String()
}

// classifyPhaseInputError maps MakePacket's two named failure modes
// (spec §4.10 step 4) to their exit codes; anything else is Unknown.
func classifyPhaseInputError(err error) *errkind.Error {
	if _, ok := err.(*packet.Overflow); ok {
		return errkind.Wrap(errkind.PacketOverflow, err.Error(), err)
	}
	if sd, ok := err.(*redact.SecretDetected); ok {
		return errkind.Wrap(errkind.SecretDetected, sd.Error(), err)
	}
	return errkind.Wrap(errkind.Unknown, "building packet", err)
}

// classifyLlmErrorKind maps an *llm.LlmError to the errkind it carries
// at the orchestrator boundary (spec §4.10 step 6).
func classifyLlmErrorKind(err *llm.LlmError) errkind.Kind {
	switch err.Kind {
	case llm.ErrTimeout:
		return errkind.PhaseTimeout
	default:
		// Both plain provider errors and BudgetExceeded reuse the
		// ClaudeFailure exit-code slot (spec §4.10 step 6).
		return errkind.ClaudeFailure
	}
}

func evidenceFromPacket(pkt packet.Packet) *receipt.PacketEvidence {
	if len(pkt.Evidence.Files) == 0 && pkt.Evidence.ByteBudget == 0 && pkt.Evidence.LineBudget == 0 {
		return nil
	}
	files := make([]receipt.PacketFile, 0, len(pkt.Evidence.Files))
	for _, f := range pkt.Evidence.Files {
		files = append(files, receipt.PacketFile{
			Path:          f.Path,
			HashPreRedact: f.HashPreRedact,
			Priority:      f.Priority.String(),
		})
	}
	return &receipt.PacketEvidence{
		Files:      files,
		ByteBudget: pkt.Evidence.ByteBudget,
		LineBudget: pkt.Evidence.LineBudget,
	}
}

// fail builds and (best-effort) writes an error receipt with no LLM
// sub-record, then returns the typed error (spec §4.10: every fatal
// step constructs an error receipt before returning).
func (o *Orchestrator) fail(ph phaseid.ID, terr *errkind.Error) (ExecutionResult, error) {
	return o.failWithLlm(ph, terr, nil, "")
}

func (o *Orchestrator) failWithLlm(ph phaseid.ID, terr *errkind.Error, llmSub *receipt.LlmSubRecord, stderrTail string) (ExecutionResult, error) {
	args := receipt.Args{
		SpecID:       o.SpecID,
		Phase:        ph,
		ToolVersions: o.Config.ToolVersions,
		Model:        receipt.ModelIdentity{Name: o.Config.Model},
		BackendTag:   o.Config.BackendTag,
		Flags:        o.Config.Flags,
		Runner:       o.Config.Runner,
		Distro:       o.Config.Distro,
		StderrTail:   stderrTail,
		Llm:          llmSub,
		EmittedAt:    time.Now().UTC(),
	}
	rec := receipt.CreateErrorReceipt(args, terr, o.Redactor)
	path, writeErr := o.Receipts.Write(rec)
	if writeErr != nil {
		// Best-effort: the process exit code still matches rec.ExitCode
		// even if the receipt itself couldn't be persisted (spec §7).
		fmt.Fprintf(os.Stderr, "orchestrator: warning: failed to write error receipt: %v\n", writeErr)
	}
	return ExecutionResult{Success: false, Phase: ph, Receipt: rec, ReceiptPath: path}, terr
}
