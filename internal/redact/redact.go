// Package redact prevents secrets from reaching backends, logs, or disk
// (spec §4.4).
package redact

import (
	"fmt"
	"regexp"
)

// Pattern is one named secret-detection rule.
type Pattern struct {
	ID    string
	regex *regexp.Regexp
}

// Match records one redaction hit: which pattern fired and where.
type Match struct {
	PatternID string
	Span      [2]int // byte offsets into the original text
}

// builtinPatterns is the minimum set spec §4.4 requires: GitHub PAT, AWS
// access key id + secret key, Slack bot/user tokens, generic bearer
// tokens, and a generic env-var-leak heuristic.
var builtinPatterns = []Pattern{
	{ID: "github_pat", regex: regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`)},
	{ID: "aws_access_key_id", regex: regexp.MustCompile(`\b(AKIA|ASIA)[A-Z0-9]{16}\b`)},
	{ID: "aws_secret_access_key", regex: regexp.MustCompile(`(?i)\baws_secret_access_key\b\s*[:=]\s*['"]?([A-Za-z0-9/+=]{40})['"]?`)},
	{ID: "slack_token", regex: regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`)},
	{ID: "bearer_token", regex: regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._\-]{20,}\b`)},
	{ID: "env_var_leak", regex: regexp.MustCompile(`(?i)\b([A-Z0-9_]*(?:KEY|TOKEN|SECRET|PASSWORD)[A-Z0-9_]*)\s*[:=]\s*['"]?([^\s'"]{8,})['"]?`)},
}

// Redactor holds the effective pattern set: built-ins plus any
// configured extra patterns, minus any configured ignore patterns.
type Redactor struct {
	patterns []Pattern
}

// Config configures a Redactor's pattern set relative to the built-ins.
type Config struct {
	ExtraPatterns  map[string]string // id -> Go regexp source
	IgnorePatterns []string          // ids to drop from the built-in set
}

// New builds a Redactor from the built-in pattern set adjusted by cfg.
func New(cfg Config) (*Redactor, error) {
	ignore := make(map[string]bool, len(cfg.IgnorePatterns))
	for _, id := range cfg.IgnorePatterns {
		ignore[id] = true
	}

	patterns := make([]Pattern, 0, len(builtinPatterns)+len(cfg.ExtraPatterns))
	for _, p := range builtinPatterns {
		if !ignore[p.ID] {
			patterns = append(patterns, p)
		}
	}
	for id, src := range cfg.ExtraPatterns {
		if ignore[id] {
			continue
		}
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("redact: extra pattern %q: %w", id, err)
		}
		patterns = append(patterns, Pattern{ID: id, regex: re})
	}
	return &Redactor{patterns: patterns}, nil
}

// SecretDetected is raised by RedactContent when called on packet
// construction input and a match is found; the phase aborts with exit
// code 8 (spec §4.4, §6).
type SecretDetected struct {
	PatternID string
	Location  string
}

func (e *SecretDetected) Error() string {
	return fmt.Sprintf("redact: secret detected (pattern %q) in %s", e.PatternID, e.Location)
}

// RedactContent scans text for every configured pattern, replacing each
// match with "[REDACTED:<pattern_id>]". It returns the redacted text and
// every match found, in order of appearance. This is the hard-stop form:
// origin identifies the input for a SecretDetected error.
//
// For packet-construction input, callers must treat a non-empty matches
// list as fatal by wrapping the result in a SecretDetected error; this
// function itself never returns one directly, since the non-hard-stop
// callers (logging, stderr) need the same scan without the abort.
func (r *Redactor) RedactContent(text, origin string) (redacted string, matches []Match) {
	redacted = text
	for _, p := range r.patterns {
		locs := p.regex.FindAllStringIndex(redacted, -1)
		if locs == nil {
			continue
		}
		replacement := "[REDACTED:" + p.ID + "]"
		redacted = p.regex.ReplaceAllString(redacted, replacement)
		for _, loc := range locs {
			matches = append(matches, Match{PatternID: p.ID, Span: [2]int{loc[0], loc[1]}})
		}
	}
	_ = origin
	return redacted, matches
}

// RedactString is a convenience wrapper around RedactContent that
// discards the match list — used for the non-hard-stop (logging,
// stderr) redaction path.
func (r *Redactor) RedactString(text string) string {
	redacted, _ := r.RedactContent(text, "")
	return redacted
}

// RedactUserString is used on any string headed for a persisted receipt
// (error_reason, stderr_tail, warnings entries).
func (r *Redactor) RedactUserString(text string) string {
	return r.RedactString(text)
}

// ScanHardStop applies RedactContent and, if any secret was found,
// returns a *SecretDetected naming the first pattern that matched.
// Callers on the packet-construction path (spec §4.7) must call this
// instead of RedactContent directly.
func (r *Redactor) ScanHardStop(text, origin string) (redacted string, err error) {
	redacted, matches := r.RedactContent(text, origin)
	if len(matches) > 0 {
		return redacted, &SecretDetected{PatternID: matches[0].PatternID, Location: origin}
	}
	return redacted, nil
}
