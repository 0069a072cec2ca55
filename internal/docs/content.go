package docs

var topics = []Topic{
	{
		Name:    "quickstart",
		Title:   "Quick Start",
		Summary: "Getting started with xchecker",
		Content: topicQuickstart,
	},
	{
		Name:    "config",
		Title:   "Configuration Reference",
		Summary: "config.toml schema, precedence, and defaults",
		Content: topicConfig,
	},
	{
		Name:    "phases",
		Title:   "The Six Phases",
		Summary: "Requirements, Design, Tasks, Review, Fixup, Final",
		Content: topicPhases,
	},
	{
		Name:    "packets",
		Title:   "Packet Building",
		Summary: "Priority classes, budgets, and secret redaction",
		Content: topicPackets,
	},
	{
		Name:    "receipts",
		Title:   "Receipts and Exit Codes",
		Summary: "The audit record every phase emits and its error taxonomy",
		Content: topicReceipts,
	},
	{
		Name:    "fixup",
		Title:   "Fixup and Dry Runs",
		Summary: "Unified-diff rewrites, Preview vs Apply",
		Content: topicFixup,
	},
}

const topicQuickstart = `Quick Start
===========

1. Initialize a spec in your project:

    cd your-project
    xchecker init

   This creates .xchecker/config.toml.

2. Run phases in order:

    xchecker run my-spec requirements
    xchecker run my-spec design
    xchecker run my-spec tasks

   Or run the default subsequence in one call:

    xchecker run my-spec --all

3. Check progress:

    xchecker status my-spec

4. After Tasks, optionally run a review pass and apply its fixups:

    xchecker run my-spec review
    xchecker run my-spec fixup --dry-run   # preview only
    xchecker run my-spec fixup             # apply
    xchecker run my-spec final

CLI Flags
---------

  xchecker run <spec> <phase>      Run exactly one phase
  xchecker run <spec> --all        Run Requirements, Design, Tasks
  xchecker run <spec> --force      Override a stale lock
  xchecker status <spec>           Show artifacts, config, and pending fixups
  xchecker init                    Scaffold .xchecker/config.toml
  xchecker docs                    List documentation topics
  xchecker doctor <spec>           Diagnose the most recent failing receipt
`

const topicConfig = `Configuration Reference
========================

xchecker reads .xchecker/config.toml, relative to the workspace root.
Every setting can also come from an XCHECKER_* environment variable,
a CLI flag, or a programmatic override — in that order of precedence,
highest first: programmatic > cli > env > file > default.

[defaults]
  model = "claude_cli"
  phase_timeout_seconds = 0        # 0 means no backend deadline
  backend_tag = ""

[selectors]
  include_globs = ["**/*.go"]
  exclude_globs = ["**/vendor/**"]
  byte_budget = 65536
  line_budget = 1200

[runner]
  label = "native"                 # override auto-detected native/wsl

[llm]
  provider = "claude_cli"          # claude_cli | gemini_cli | openrouter_http | anthropic_http | mock_for_tests
  budget_limit = 20                # per-process invocation ceiling

  [llm.claude]
  binary = "claude"

  [llm.openrouter]
  base_url = "https://openrouter.ai/api/v1"

[phases.design]
  model = "claude_cli"
  include_globs = ["**/*.go", "**/*.md"]

[hooks]
  pre_phase = []
  post_phase = []

[security]
  extra_redact_patterns = []
  ignore_redact_patterns = []

Every resolved key in "xchecker status" output names the source that
won: "default", "config", "env", "cli", or "programmatic".
`

const topicPhases = `The Six Phases
==============

xchecker runs a fixed, six-phase chain per spec — there is no
arbitrary phase list like older script/agent/gate pipelines:

  1. requirements   no dependency; always the first legal phase
  2. design         depends on requirements
  3. tasks          depends on design
  4. review         depends on tasks; optional
  5. fixup          depends on review; optional
  6. final          depends on tasks (review/fixup are not required)

Requirements, Design, and Tasks each call the configured backend once
and emit two artifacts: a Markdown narrative and a ".core.yaml"
structured companion. Review additionally emits a unified diff inside
its ".core.yaml". Fixup never calls the backend at all — it rewrites
files by replaying Review's diff. Final reads every prior phase's
Markdown (tolerating a missing Fixup output) and emits a single
summary Markdown file.

Two independent checks gate every phase request:
  - Is the request a *legal transition* given the last completed phase?
    (e.g. you cannot request Design before Requirements has completed)
  - Are the phase's *dependencies* satisfied — both their artifacts and
    a successful receipt?

Re-running an already-completed phase is always legal and overwrites
its artifacts on success; there is no incremental diff-based resume.
`

const topicPackets = `Packet Building
===============

Before most phases call the backend, xchecker assembles a "packet": a
budgeted bundle of source file contents to ground the prompt in. Files
are classified into priority classes — Upstream, High, Medium, Low —
and admitted under a byte and line budget. When the budget is
exceeded, lower-priority files are evicted first (LIFO within a
class); Upstream files can never be evicted, and an unevictable
overflow there fails the phase with a packet_overflow error (exit 7)
rather than silently truncating required context.

Every candidate file is scanned for secrets before admission. A match
against any built-in or configured pattern (GitHub PATs, AWS keys,
Slack tokens, bearer tokens, a generic KEY/TOKEN/SECRET heuristic)
fails the phase immediately with a secret_detected error (exit 8) —
the packet is never sent to a backend with an unredacted secret in it.

Every admitted file's path, pre-redaction hash, and priority class is
recorded in the phase's receipt under "packet", so a packet's contents
are always auditable after the fact even though the packet body itself
is never persisted.
`

const topicReceipts = `Receipts and Exit Codes
========================

Every phase invocation — success or failure — writes exactly one
receipt to receipts/<phase>-<timestamp>.json, serialized as
RFC 8785 canonical JSON. A receipt's exit_code is 0 if and only if its
error_kind is empty; this invariant is enforced at construction time,
never left to the caller to maintain by convention.

Exit codes are a closed, total mapping from error_kind:

  0   success
  1   unknown            uncategorized internal error
  2   cli_args           illegal phase request or unmet dependency
  7   packet_overflow     an Upstream-class file could not fit its budget
  8   secret_detected     a candidate file matched a redaction pattern
  9   lock_held           another process (or a stale one) holds the spec's lock
  10  phase_timeout       the backend call exceeded its deadline
  70  claude_failure      the backend returned an error, or rejected output

"xchecker doctor <spec>" reads the newest receipt and, for anything
past exit code 1, prints the specific remediation for that error_kind
(release the lock, shrink the packet's scope, rerun with a longer
timeout, and so on).
`

const topicFixup = `Fixup and Dry Runs
===================

Fixup is the one phase that never calls the backend. It reads the
unified diff embedded in Review's ".core.yaml" output, reads each
target file's current promoted content, and replays the diff's hunks
directly — the same mechanism "git apply" uses, scoped to the files
Review named.

Two modes control what happens next:

  apply (default)   Rewritten files are promoted to artifacts/ and a
                     40-fixup.md summary is written. The phase behaves
                     like every other phase: a normal zero-exit-code
                     receipt with output hashes.

  preview (--dry-run) Rewritten files are staged under .partial/ but
                     never promoted — nothing under artifacts/
                     changes. "xchecker status" reports a pending-fixup
                     summary (the target file count from Review's
                     diff) for as long as Fixup has not been run in
                     apply mode.

A context-mismatch between a hunk's expected lines and a target's
actual current content fails the phase rather than guessing — Fixup
never partially applies a diff.
`
