// Package xconfig merges the four configuration sources spec §3/§6
// recognize — file, environment, CLI flags, and programmatic overrides —
// into a single flat key/value view, each value tagged with the source
// that won it. Precedence is programmatic > cli > env > file > default.
package xconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/xchecker/xchecker/internal/llm"
	"github.com/xchecker/xchecker/internal/packet"
)

// Source identifies which layer produced a resolved value.
type Source string

const (
	SourceDefault      Source = "default"
	SourceFile         Source = "config"
	SourceEnv          Source = "env"
	SourceCli          Source = "cli"
	SourceProgrammatic Source = "programmatic"
)

// envPrefix namespaces every environment-variable key this package reads.
const envPrefix = "XCHECKER_"

// Value is one resolved key: its winning string and the source it came
// from, for status reporting (spec §6's "effective config").
type Value struct {
	Value  string
	Source Source
}

// FileConfig is the shape of .xchecker/config.toml.
type FileConfig struct {
	Defaults  DefaultsSection         `toml:"defaults"`
	Selectors SelectorsSection        `toml:"selectors"`
	Runner    RunnerSection           `toml:"runner"`
	Llm       LlmSection              `toml:"llm"`
	Phases    map[string]PhaseSection `toml:"phases"`
	Hooks     HooksSection            `toml:"hooks"`
	Security  SecuritySection         `toml:"security"`
}

type DefaultsSection struct {
	Model             string `toml:"model"`
	PhaseTimeoutSecs  int    `toml:"phase_timeout_seconds"`
	BackendTag        string `toml:"backend_tag"`
}

type SelectorsSection struct {
	IncludeGlobs []string `toml:"include_globs"`
	ExcludeGlobs []string `toml:"exclude_globs"`
	ByteBudget   int      `toml:"byte_budget"`
	LineBudget   int      `toml:"line_budget"`
}

type RunnerSection struct {
	Label string `toml:"label"` // override RunnerLabel's auto-detection, e.g. in CI
}

type LlmSection struct {
	Provider    string           `toml:"provider"`
	BudgetLimit int              `toml:"budget_limit"`
	Claude      ProviderSection  `toml:"claude"`
	Gemini      ProviderSection  `toml:"gemini"`
	OpenRouter  ProviderSection  `toml:"openrouter"`
	Anthropic   ProviderSection  `toml:"anthropic"`
}

// ProviderSection carries per-backend knobs; which fields apply depends
// on the provider (spec §4.8 treats the wire-format details as an
// external-collaborator concern, so this stays intentionally narrow).
type ProviderSection struct {
	Binary  string `toml:"binary"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// PhaseSection overrides defaults/selectors for one named phase.
type PhaseSection struct {
	Model          string   `toml:"model"`
	IncludeGlobs   []string `toml:"include_globs"`
	ExcludeGlobs   []string `toml:"exclude_globs"`
	PromptTemplate string   `toml:"prompt_template"`
}

type HooksSection struct {
	PrePhase  []string `toml:"pre_phase"`
	PostPhase []string `toml:"post_phase"`
}

type SecuritySection struct {
	ExtraRedactPatterns  []string `toml:"extra_redact_patterns"`
	IgnoreRedactPatterns []string `toml:"ignore_redact_patterns"`
}

// LoadFile parses path as TOML. A missing file is not an error — callers
// fall back to defaults, matching the teacher's own config.Load
// tolerance for an absent optional file.
func LoadFile(path string) (*FileConfig, error) {
	var fc FileConfig
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &fc, nil
	}
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, fmt.Errorf("xconfig: parsing %q: %w", path, err)
	}
	return &fc, nil
}

// Merged resolves the four layers into one flat view, keyed by dotted
// path ("defaults.model", "selectors.byte_budget", ...).
type Merged struct {
	defaults     map[string]string
	file         map[string]string
	env          map[string]string
	cli          map[string]string
	programmatic map[string]string
}

// NewMerged seeds a Merged with xchecker's built-in defaults.
func NewMerged() *Merged {
	return &Merged{
		defaults: map[string]string{
			"defaults.model":               string(llm.ClaudeCli),
			"defaults.phase_timeout_seconds": "0",
			"selectors.byte_budget":        strconv.Itoa(packet.DefaultBudgets.ByteLimit),
			"selectors.line_budget":        strconv.Itoa(packet.DefaultBudgets.LineLimit),
			"llm.provider":                 string(llm.ClaudeCli),
		},
		file:         map[string]string{},
		env:          map[string]string{},
		cli:         map[string]string{},
		programmatic: map[string]string{},
	}
}

// ApplyFile flattens fc's scalar fields into the file layer.
func (m *Merged) ApplyFile(fc *FileConfig) {
	set := func(k, v string) {
		if v != "" {
			m.file[k] = v
		}
	}
	set("defaults.model", fc.Defaults.Model)
	if fc.Defaults.PhaseTimeoutSecs != 0 {
		m.file["defaults.phase_timeout_seconds"] = strconv.Itoa(fc.Defaults.PhaseTimeoutSecs)
	}
	set("defaults.backend_tag", fc.Defaults.BackendTag)
	if fc.Selectors.ByteBudget != 0 {
		m.file["selectors.byte_budget"] = strconv.Itoa(fc.Selectors.ByteBudget)
	}
	if fc.Selectors.LineBudget != 0 {
		m.file["selectors.line_budget"] = strconv.Itoa(fc.Selectors.LineBudget)
	}
	if len(fc.Selectors.IncludeGlobs) > 0 {
		m.file["selectors.include_globs"] = strings.Join(fc.Selectors.IncludeGlobs, ",")
	}
	if len(fc.Selectors.ExcludeGlobs) > 0 {
		m.file["selectors.exclude_globs"] = strings.Join(fc.Selectors.ExcludeGlobs, ",")
	}
	set("runner.label", fc.Runner.Label)
	set("llm.provider", fc.Llm.Provider)
	if fc.Llm.BudgetLimit != 0 {
		m.file["llm.budget_limit"] = strconv.Itoa(fc.Llm.BudgetLimit)
	}
	if len(fc.Security.ExtraRedactPatterns) > 0 {
		m.file["security.extra_redact_patterns"] = strings.Join(fc.Security.ExtraRedactPatterns, ",")
	}
	if len(fc.Security.IgnoreRedactPatterns) > 0 {
		m.file["security.ignore_redact_patterns"] = strings.Join(fc.Security.IgnoreRedactPatterns, ",")
	}
}

// ApplyEnv reads every XCHECKER_* environment variable into the env
// layer, lower-casing and dotting the name (XCHECKER_DEFAULTS_MODEL ->
// defaults.model).
func (m *Merged) ApplyEnv(environ []string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, envPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
		key = strings.ReplaceAll(key, "_", ".")
		m.env[key] = value
	}
}

// SetCli records a CLI-flag-sourced override.
func (m *Merged) SetCli(key, value string) { m.cli[key] = value }

// SetProgrammatic records a programmatic override (façade.SetConfig).
func (m *Merged) SetProgrammatic(key, value string) { m.programmatic[key] = value }

// Get resolves key across all four layers in precedence order.
func (m *Merged) Get(key string) (Value, bool) {
	layers := []struct {
		m map[string]string
		s Source
	}{
		{m.programmatic, SourceProgrammatic},
		{m.cli, SourceCli},
		{m.env, SourceEnv},
		{m.file, SourceFile},
		{m.defaults, SourceDefault},
	}
	for _, l := range layers {
		if v, ok := l.m[key]; ok {
			return Value{Value: v, Source: l.s}, true
		}
	}
	return Value{}, false
}

// All returns every key this Merged has ever seen (across all layers),
// each resolved to its winning value — the shape spec §6's status output
// needs for "effective config".
func (m *Merged) All() map[string]Value {
	seen := map[string]struct{}{}
	for _, layer := range []map[string]string{m.defaults, m.file, m.env, m.cli, m.programmatic} {
		for k := range layer {
			seen[k] = struct{}{}
		}
	}
	out := make(map[string]Value, len(seen))
	for k := range seen {
		v, _ := m.Get(k)
		out[k] = v
	}
	return out
}

// GetInt resolves key and parses it as an int, falling back to def on
// any error (including an unset key).
func (m *Merged) GetInt(key string, def int) int {
	v, ok := m.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v.Value)
	if err != nil {
		return def
	}
	return n
}

// GetString resolves key, falling back to def if unset.
func (m *Merged) GetString(key, def string) string {
	v, ok := m.Get(key)
	if !ok || v.Value == "" {
		return def
	}
	return v.Value
}

// GetList resolves a comma-joined key back into its slice form.
func (m *Merged) GetList(key string) []string {
	v, ok := m.Get(key)
	if !ok || v.Value == "" {
		return nil
	}
	return strings.Split(v.Value, ",")
}
