package packet

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Priority is one of the four admission classes, outer-to-inner.
// Lower numeric value means higher priority (admitted first, evicted
// last).
type Priority int

const (
	Upstream Priority = iota // *.core.yaml — non-evictable, always included
	High                     // SPEC*, ADR*, REPORT*, problem-statement*
	Medium                   // README*, SCHEMA*
	Low                      // everything else matching the include globs
)

func (p Priority) String() string {
	switch p {
	case Upstream:
		return "upstream"
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

var highPrefixes = regexp.MustCompile(`(?i)^(SPEC|ADR|REPORT|problem-statement)`)
var mediumPrefixes = regexp.MustCompile(`(?i)^(README|SCHEMA)`)

// classify assigns path's priority class based on its basename.
func classify(path string) Priority {
	base := filepath.Base(path)
	if strings.HasSuffix(base, ".core.yaml") {
		return Upstream
	}
	if highPrefixes.MatchString(base) {
		return High
	}
	if mediumPrefixes.MatchString(base) {
		return Medium
	}
	return Low
}
