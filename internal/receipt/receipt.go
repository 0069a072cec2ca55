// Package receipt builds, serializes, and persists the per-phase audit
// receipts described in spec §3/§4.5. Receipts are immutable once
// written: a new phase run always produces a new receipt file.
package receipt

import (
	"time"

	"github.com/xchecker/xchecker/internal/errkind"
	"github.com/xchecker/xchecker/internal/phaseid"
)

// SchemaVersion is the receipt schema's current version.
const SchemaVersion = "1"

// CanonAlgoVersion identifies the canonicalization rule set in force
// when this receipt's artifacts were hashed (spec §4.3's version tag).
const CanonAlgoVersion = "yaml-v1,md-v1"

const maxStderrTail = 2 * 1024 // 2 KiB, per spec §3

// PacketFile is one admitted file in a packet's evidence record.
type PacketFile struct {
	Path          string `json:"path"`
	LineRangeFrom int    `json:"line_range_from,omitempty"`
	LineRangeTo   int    `json:"line_range_to,omitempty"`
	HashPreRedact string `json:"hash_pre_redact"`
	Priority      string `json:"priority"`
}

// PacketEvidence records which files were included in a packet, their
// pre-redaction hashes and priority class, and the budgets in force.
type PacketEvidence struct {
	Files      []PacketFile `json:"files"`
	ByteBudget int          `json:"byte_budget"`
	LineBudget int          `json:"line_budget"`
}

// ToolVersions records the version of xchecker itself and, when a
// backend CLI was invoked, its probed version string.
type ToolVersions struct {
	Self    string `json:"self"`
	Backend string `json:"backend,omitempty"`
}

// ModelIdentity names the model a phase invoked.
type ModelIdentity struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
}

// LlmSubRecord captures the backend invocation's own bookkeeping
// (invocation id, budget counters) for audit purposes.
type LlmSubRecord struct {
	InvocationID    string `json:"invocation_id"`
	BudgetLimit     int    `json:"budget_limit,omitempty"`
	BudgetUsed      int    `json:"budget_used,omitempty"`
	BudgetExhausted bool   `json:"budget_exhausted,omitempty"`
	DurationMicro   int64  `json:"duration_micro,omitempty"`
}

// Receipt is one immutable record of a single phase invocation.
type Receipt struct {
	SchemaVersion    string          `json:"schema_version"`
	EmittedAt        time.Time       `json:"emitted_at"`
	SpecID           string          `json:"spec_id"`
	Phase            string          `json:"phase"`
	ToolVersions     ToolVersions    `json:"tool_versions"`
	Model            ModelIdentity   `json:"model,omitempty"`
	CanonAlgoVersion string          `json:"canon_algo_version"`
	BackendTag       string          `json:"backend_tag"`
	Flags            map[string]bool `json:"flags,omitempty"`
	Runner           string          `json:"runner"`
	Distro           string          `json:"distro,omitempty"`
	Packet           *PacketEvidence `json:"packet,omitempty"`
	OutputHashes     []OutputHash    `json:"output_hashes"`
	ExitCode         int             `json:"exit_code"`
	ErrorKind        string          `json:"error_kind,omitempty"`
	ErrorReason      string          `json:"error_reason,omitempty"`
	StderrTailRaw    string          `json:"stderr_tail_raw,omitempty"`
	StderrTailRedact string          `json:"stderr_tail_redacted,omitempty"`
	Warnings         []string        `json:"warnings,omitempty"`
	Llm              *LlmSubRecord   `json:"llm,omitempty"`
}

// OutputHash names one artifact produced by this phase and its BLAKE3.
type OutputHash struct {
	Path string `json:"path"`
	Hash string `json:"hash"`
}

// Redactor is the narrow interface receipt needs from internal/redact,
// kept local to avoid a hard dependency edge in the other direction.
type Redactor interface {
	RedactUserString(text string) string
}

// Args collects everything needed to build a Receipt.
type Args struct {
	SpecID       string
	Phase        phaseid.ID
	ToolVersions ToolVersions
	Model        ModelIdentity
	BackendTag   string
	Flags        map[string]bool
	Runner       string
	Distro       string
	Packet       *PacketEvidence
	OutputHashes []OutputHash
	ExitCode     int
	ErrorKind    errkind.Kind
	ErrorReason  string
	StderrTail   string
	Warnings     []string
	Llm          *LlmSubRecord
	EmittedAt    time.Time
}

// CreateReceipt populates every field and applies RedactUserString to
// error_reason, stderr_tail, and every warnings entry before returning.
// exit_code == 0 iff error_kind is empty, per the invariant in spec §3.
func CreateReceipt(a Args, r Redactor) Receipt {
	if (a.ExitCode == 0) != (a.ErrorKind == "") {
		panic("receipt: exit_code == 0 must coincide with an empty error_kind")
	}

	rec := Receipt{
		SchemaVersion:    SchemaVersion,
		EmittedAt:        a.EmittedAt,
		SpecID:           a.SpecID,
		Phase:            a.Phase.Slug(),
		ToolVersions:     a.ToolVersions,
		Model:            a.Model,
		CanonAlgoVersion: CanonAlgoVersion,
		BackendTag:       a.BackendTag,
		Flags:            a.Flags,
		Runner:           a.Runner,
		Distro:           a.Distro,
		Packet:           a.Packet,
		OutputHashes:     sortedOutputHashes(a.OutputHashes),
		ExitCode:         a.ExitCode,
		ErrorKind:        string(a.ErrorKind),
		Llm:              a.Llm,
	}
	if a.ErrorReason != "" {
		rec.ErrorReason = r.RedactUserString(a.ErrorReason)
	}
	if a.StderrTail != "" {
		raw := truncateTail(a.StderrTail)
		rec.StderrTailRaw = raw
		rec.StderrTailRedact = truncateTail(r.RedactUserString(raw))
	}
	for _, w := range a.Warnings {
		rec.Warnings = append(rec.Warnings, r.RedactUserString(w))
	}
	return rec
}

// CreateErrorReceipt derives exit_code and error_kind from err via
// errkind.Classify before delegating to CreateReceipt.
func CreateErrorReceipt(a Args, err error, r Redactor) Receipt {
	kind := errkind.Classify(err)
	a.ErrorKind = kind
	a.ExitCode = kind.ExitCode()
	if a.ErrorReason == "" && err != nil {
		a.ErrorReason = err.Error()
	}
	return CreateReceipt(a, r)
}

func truncateTail(s string) string {
	if len(s) <= maxStderrTail {
		return s
	}
	return s[len(s)-maxStderrTail:]
}
