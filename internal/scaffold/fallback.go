package scaffold

// defaultConfig is the starter .xchecker/config.toml, matching
// internal/xconfig's FileConfig shape and internal/xconfig.NewMerged's
// baked-in defaults, written out explicitly so a new user sees every
// knob without having to read source.
const defaultConfig = `[defaults]
model = "claude_cli"
phase_timeout_seconds = 0
backend_tag = ""

[selectors]
include_globs = ["**/*.go", "**/*.md"]
exclude_globs = ["**/vendor/**", "**/.git/**"]
byte_budget = 65536
line_budget = 1200

[runner]
label = ""

[llm]
provider = "claude_cli"
budget_limit = 20

  [llm.claude]
  binary = "claude"

[hooks]
pre_phase = []
post_phase = []

[security]
extra_redact_patterns = []
ignore_redact_patterns = []
`
