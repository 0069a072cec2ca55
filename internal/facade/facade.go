// Package facade implements the orchestrator façade (spec §4.11): the
// single external entry point that owns configuration merging and
// wraps the lock-acquiring artifact.Manager + orchestrator.Orchestrator
// pair behind a small, single-threaded API. Not safe for concurrent use
// by design — callers are expected to hold one Facade per spec at a
// time, exactly like the teacher's Runner owns one Config/State pair.
package facade

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xchecker/xchecker/internal/artifact"
	"github.com/xchecker/xchecker/internal/canon"
	"github.com/xchecker/xchecker/internal/diffblocks"
	"github.com/xchecker/xchecker/internal/errkind"
	"github.com/xchecker/xchecker/internal/llm"
	"github.com/xchecker/xchecker/internal/orchestrator"
	"github.com/xchecker/xchecker/internal/packet"
	"github.com/xchecker/xchecker/internal/phase"
	"github.com/xchecker/xchecker/internal/phaseid"
	"github.com/xchecker/xchecker/internal/receipt"
	"github.com/xchecker/xchecker/internal/redact"
	"github.com/xchecker/xchecker/internal/sandbox"
	"github.com/xchecker/xchecker/internal/sysinfo"
	"github.com/xchecker/xchecker/internal/xconfig"
)

// Params names the two roots a Facade needs: where this spec's own
// state lives, and which project tree its phases read candidate files
// from. They are usually the same directory but kept distinct because
// nothing requires it.
type Params struct {
	StorageRoot   string
	WorkspaceRoot string
	SpecID        string
	Force         bool
	StaleTTL      int64
	Backend       llm.Backend // nil resolves llm.New(provider) from config
}

// Facade is the stable, sequential-use handle described in spec §4.11.
type Facade struct {
	specID  string
	am      *artifact.Manager
	orc     *orchestrator.Orchestrator
	config  *xconfig.Merged
	dryRun  bool
}

// New opens specID with xchecker's built-in defaults plus any
// .xchecker/config.toml found under WorkspaceRoot, merged with the
// process environment.
func New(p Params) (*Facade, error) {
	merged := xconfig.NewMerged()
	merged.ApplyEnv(os.Environ())
	if fc, err := xconfig.LoadFile(filepath.Join(p.WorkspaceRoot, ".xchecker", "config.toml")); err == nil {
		merged.ApplyFile(fc)
	} else {
		return nil, fmt.Errorf("facade: loading config: %w", err)
	}
	return FromConfig(p, merged)
}

// FromConfig builds a Facade from an already-resolved Merged
// configuration, translating it into the orchestrator's flat config
// and wiring the redactor (spec §4.11's "Config merge").
func FromConfig(p Params, cfg *xconfig.Merged) (*Facade, error) {
	am, err := artifact.New(p.StorageRoot, p.SpecID, artifact.Options{Force: p.Force, StaleTTL: p.StaleTTL})
	if err != nil {
		return nil, classifyLockError(err)
	}
	f, err := build(p, am, cfg, false)
	if err != nil {
		am.Close()
		return nil, err
	}
	return f, nil
}

// WithForce is New with the lock's --force override enabled, for
// recovering a spec behind a stale lock (spec §5).
func WithForce(p Params) (*Facade, error) {
	p.Force = true
	return New(p)
}

// Readonly opens specID without acquiring the lock. Only Status,
// CanRunPhase, CurrentPhase, and LegalNextPhases are safe to call; the
// returned Facade must never be used to run a phase.
func Readonly(p Params) (*Facade, error) {
	am, err := artifact.NewReadonly(p.StorageRoot, p.SpecID)
	if err != nil {
		return nil, err
	}
	merged := xconfig.NewMerged()
	merged.ApplyEnv(os.Environ())
	if fc, err := xconfig.LoadFile(filepath.Join(p.WorkspaceRoot, ".xchecker", "config.toml")); err == nil {
		merged.ApplyFile(fc)
	}
	return build(p, am, merged, true)
}

func build(p Params, am *artifact.Manager, cfg *xconfig.Merged, readonly bool) (*Facade, error) {
	workspace, err := sandbox.New(p.WorkspaceRoot, sandbox.Policy{})
	if err != nil {
		return nil, fmt.Errorf("facade: workspace sandbox: %w", err)
	}
	securityCfg := redact.Config{
		ExtraPatterns: cfg.GetList("security.extra_redact_patterns"),
		IgnorePatterns: cfg.GetList("security.ignore_redact_patterns"),
	}
	red, err := redact.New(securityCfg)
	if err != nil {
		return nil, fmt.Errorf("facade: building redactor: %w", err)
	}

	backend := p.Backend
	if backend == nil && !readonly {
		provider := llm.Provider(cfg.GetString("llm.provider", string(llm.ClaudeCli)))
		backend, err = llm.New(provider)
		if err != nil {
			return nil, errkind.Wrap(errkind.CliArgs, "resolving llm provider", err)
		}
		if limit := cfg.GetInt("llm.budget_limit", 0); limit > 0 {
			backend = llm.NewBudgetedBackend(backend, limit)
		}
	}

	store := receipt.NewStore(filepath.Join(am.Root(), "receipts"))
	orc := orchestrator.New(p.SpecID, am, workspace, red, backend, store, orchestratorConfig(cfg))

	return &Facade{specID: p.SpecID, am: am, orc: orc, config: cfg}, nil
}

func orchestratorConfig(cfg *xconfig.Merged) orchestrator.Config {
	timeoutSecs := cfg.GetInt("defaults.phase_timeout_seconds", 0)
	var timeout time.Duration
	if timeoutSecs > 0 {
		timeout = time.Duration(timeoutSecs) * time.Second
	}
	distro, _ := sysinfo.Distro()
	runner := cfg.GetString("runner.label", sysinfo.RunnerLabel())

	return orchestrator.Config{
		Model:        cfg.GetString("defaults.model", string(llm.ClaudeCli)),
		IncludeGlobs: cfg.GetList("selectors.include_globs"),
		ExcludeGlobs: cfg.GetList("selectors.exclude_globs"),
		Budgets: packet.Budgets{
			ByteLimit: cfg.GetInt("selectors.byte_budget", packet.DefaultBudgets.ByteLimit),
			LineLimit: cfg.GetInt("selectors.line_budget", packet.DefaultBudgets.LineLimit),
		},
		PhaseTimeout: timeout,
		FixupMode:    phase.Apply,
		BackendTag:   cfg.GetString("defaults.backend_tag", ""),
		ToolVersions: receipt.ToolVersions{Self: "xchecker/dev"},
		Runner:       runner,
		Distro:       distro,
		Flags:        map[string]bool{},
	}
}

// classifyLockError maps artifact.New's two lock-contention errors onto
// errkind.LockHeld (exit 9); every other construction failure passes
// through unclassified.
func classifyLockError(err error) error {
	var concurrent *artifact.ConcurrentExecution
	if errors.As(err, &concurrent) {
		return errkind.Wrap(errkind.LockHeld, concurrent.Error(), err)
	}
	var stale *artifact.StaleLock
	if errors.As(err, &stale) {
		return errkind.Wrap(errkind.LockHeld, stale.Error(), err)
	}
	return err
}

// Close releases the underlying lock, if held.
func (f *Facade) Close() error { return f.am.Close() }

// RunPhase executes exactly one phase.
func (f *Facade) RunPhase(ctx context.Context, p phaseid.ID) (orchestrator.ExecutionResult, error) {
	return f.orc.RunPhase(ctx, p)
}

// RunAll runs the default subsequence (Requirements, Design, Tasks).
func (f *Facade) RunAll(ctx context.Context) (orchestrator.ExecutionResult, error) {
	return f.orc.RunAll(ctx)
}

// CurrentPhase returns the most recently completed phase, or
// phaseid.NoneCompleted if none has run yet.
func (f *Facade) CurrentPhase() phaseid.ID {
	completed, _ := f.am.GetLatestCompletedPhase()
	return completed
}

// CanRunPhase reports whether p is a legal next request given the
// current completion state — a pure state query, no side effects.
func (f *Facade) CanRunPhase(p phaseid.ID) bool {
	return phaseid.CanTransition(f.CurrentPhase(), p)
}

// LegalNextPhases lists every phase CanRunPhase would accept right now.
func (f *Facade) LegalNextPhases() []phaseid.ID {
	return phaseid.LegalNext(f.CurrentPhase())
}

// LastReceiptPath returns the newest receipt across all phases, if any.
func (f *Facade) LastReceiptPath() (string, bool) {
	path, ok, err := f.orc.Receipts.LatestPath()
	if err != nil {
		return "", false
	}
	return path, ok
}

// LastReceipt returns the newest parsed receipt across all phases, for
// callers (internal/doctor) that need the record itself rather than
// its path.
func (f *Facade) LastReceipt() (receipt.Receipt, bool, error) {
	return f.orc.Receipts.Latest()
}

// SetConfig records a programmatic override and re-derives the
// orchestrator's flat config from it (spec §4.11).
func (f *Facade) SetConfig(key, value string) {
	f.config.SetProgrammatic(key, value)
	f.orc.Config = orchestratorConfig(f.config)
	f.applyDryRun()
}

// GetConfig resolves key across every configuration layer.
func (f *Facade) GetConfig(key string) (xconfig.Value, bool) {
	return f.config.Get(key)
}

// SetDryRun toggles Fixup's Preview mode: a dry run stages rewritten
// artifacts without ever promoting them (spec §9's resolved Open
// Question on Fixup's NextStep).
func (f *Facade) SetDryRun(dryRun bool) {
	f.dryRun = dryRun
	f.applyDryRun()
}

func (f *Facade) applyDryRun() {
	if f.dryRun {
		f.orc.Config.FixupMode = phase.Preview
	} else {
		f.orc.Config.FixupMode = phase.Apply
	}
	f.orc.Config.Flags["dry_run"] = f.dryRun
}

// ArtifactSummary is one entry in StatusOutput's artifact listing.
type ArtifactSummary struct {
	Path         string `json:"path"`
	Blake3First8 string `json:"blake3_first8"`
}

// LockDriftInfo reports that another process has since taken the lock
// this Facade no longer holds (readonly Status callers only).
type LockDriftInfo struct {
	Pid  int    `json:"pid"`
	Host string `json:"host"`
}

// PendingFixupInfo summarizes an unapplied Review diff.
type PendingFixupInfo struct {
	TargetCount int      `json:"target_count"`
	Targets     []string `json:"targets"`
}

// StatusOutput is the structured record spec §6 describes.
type StatusOutput struct {
	SchemaVersion    string                     `json:"schema_version"`
	Runner           string                     `json:"runner"`
	Distro           string                     `json:"distro,omitempty"`
	CanonAlgoVersion string                     `json:"canon_algo_version"`
	Artifacts        []ArtifactSummary          `json:"artifacts"`
	LastReceiptPath  string                     `json:"last_receipt_path,omitempty"`
	EffectiveConfig  map[string]xconfig.Value   `json:"effective_config"`
	LockDrift        *LockDriftInfo             `json:"lock_drift,omitempty"`
	PendingFixup     *PendingFixupInfo          `json:"pending_fixup,omitempty"`
}

// Status builds the full status record: artifacts, effective config,
// lock-drift, and pending-fixup counts (spec §4.11/§6).
func (f *Facade) Status() (StatusOutput, error) {
	names, err := f.am.ListArtifacts()
	if err != nil {
		return StatusOutput{}, fmt.Errorf("facade: listing artifacts: %w", err)
	}
	sort.Strings(names)

	summaries := make([]ArtifactSummary, 0, len(names))
	for _, name := range names {
		content, err := f.am.ReadFinalArtifact(name)
		if err != nil {
			continue
		}
		hash := canon.HashBytes(content)
		if len(hash) > 8 {
			hash = hash[:8]
		}
		summaries = append(summaries, ArtifactSummary{Path: "artifacts/" + name, Blake3First8: hash})
	}

	lastReceipt, _ := f.LastReceiptPath()

	out := StatusOutput{
		SchemaVersion:    receipt.SchemaVersion,
		Runner:           f.orc.Config.Runner,
		Distro:           f.orc.Config.Distro,
		CanonAlgoVersion: receipt.CanonAlgoVersion,
		Artifacts:        summaries,
		LastReceiptPath:  lastReceipt,
		EffectiveConfig:  f.config.All(),
		LockDrift:        f.lockDrift(),
		PendingFixup:     f.pendingFixup(),
	}
	return out, nil
}

// lockDrift reports a live lock another process currently holds. It is
// populated only for read-only Facades: one that holds its own lock
// would otherwise see its own pid reflected back as "drift" against
// itself, which is not what spec §6's "lock-drift record" means.
func (f *Facade) lockDrift() *LockDriftInfo {
	if !f.am.Readonly() {
		return nil
	}
	info, ok, err := f.am.PeekLock()
	if err != nil || !ok {
		return nil
	}
	return &LockDriftInfo{Pid: info.Pid, Host: info.Host}
}

// pendingFixup reports the Review diff's target file count when Review
// has completed but Fixup has not yet run against it.
func (f *Facade) pendingFixup() *PendingFixupInfo {
	if !f.am.PhaseCompleted(phaseid.Review) || f.am.PhaseCompleted(phaseid.Fixup) {
		return nil
	}
	content, err := f.am.ReadFinalArtifact("30-review.core.yaml")
	if err != nil {
		return nil
	}
	var parsed struct {
		Diff string `yaml:"diff"`
	}
	if err := yaml.Unmarshal(content, &parsed); err != nil || parsed.Diff == "" {
		return nil
	}
	diffs, err := diffblocks.Parse(parsed.Diff)
	if err != nil || len(diffs) == 0 {
		return nil
	}
	targets := make([]string, 0, len(diffs))
	for _, d := range diffs {
		targets = append(targets, d.TargetPath())
	}
	return &PendingFixupInfo{TargetCount: len(targets), Targets: targets}
}
