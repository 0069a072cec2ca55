// Package diffblocks extracts unified-diff hunks from LLM output, the
// format the Fixup phase's Review-artifact input uses (SPEC_FULL.md §5
// supplemented feature 2). It mirrors the teacher's
// internal/fileblocks line-scanning technique, applied to a
// structurally different input: `--- a/path` / `+++ b/path` file
// headers followed by `@@ -l,s +l,s @@` hunk headers and +/-/context
// lines, instead of fenced `file=` code blocks.
package diffblocks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Line is one line of a hunk body, tagged with its diff role.
type Line struct {
	Kind    LineKind
	Content string
}

type LineKind int

const (
	Context LineKind = iota
	Added
	Removed
)

// Hunk is one `@@ ... @@` block.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Body     []Line
}

// FileDiff is every hunk targeting one file.
type FileDiff struct {
	OldPath string
	NewPath string
	Hunks   []Hunk
}

// TargetPath returns the path the diff should be applied to: NewPath
// unless the file was deleted (NewPath == "/dev/null"), in which case
// OldPath.
func (d FileDiff) TargetPath() string {
	if d.NewPath == "" || d.NewPath == "/dev/null" {
		return d.OldPath
	}
	return d.NewPath
}

var (
	oldHeaderRe = regexp.MustCompile(`^--- (?:a/)?(\S+)`)
	newHeaderRe = regexp.MustCompile(`^\+\+\+ (?:b/)?(\S+)`)
	hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)
)

// Parse scans text for unified-diff file sections in order of
// appearance. Non-diff text (prose surrounding the diff blocks in an
// LLM response) is ignored.
func Parse(text string) ([]FileDiff, error) {
	lines := strings.Split(text, "\n")
	var diffs []FileDiff
	var current *FileDiff
	var hunk *Hunk

	flushHunk := func() {
		if current != nil && hunk != nil {
			current.Hunks = append(current.Hunks, *hunk)
			hunk = nil
		}
	}
	flushFile := func() {
		flushHunk()
		if current != nil {
			diffs = append(diffs, *current)
			current = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := oldHeaderRe.FindStringSubmatch(line); m != nil {
			flushFile()
			current = &FileDiff{OldPath: m[1]}
			continue
		}
		if m := newHeaderRe.FindStringSubmatch(line); m != nil {
			if current == nil {
				return nil, fmt.Errorf("diffblocks: line %d: +++ header without preceding --- header", i+1)
			}
			current.NewPath = m[1]
			continue
		}
		if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
			if current == nil {
				return nil, fmt.Errorf("diffblocks: line %d: hunk header without a file header", i+1)
			}
			flushHunk()
			h, err := newHunk(m)
			if err != nil {
				return nil, err
			}
			hunk = h
			continue
		}

		if hunk == nil {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+"):
			hunk.Body = append(hunk.Body, Line{Kind: Added, Content: line[1:]})
		case strings.HasPrefix(line, "-"):
			hunk.Body = append(hunk.Body, Line{Kind: Removed, Content: line[1:]})
		case strings.HasPrefix(line, " "):
			hunk.Body = append(hunk.Body, Line{Kind: Context, Content: line[1:]})
		case line == "":
			hunk.Body = append(hunk.Body, Line{Kind: Context, Content: ""})
		default:
			// A line that doesn't belong to the hunk (e.g. trailing
			// prose) ends it.
			flushHunk()
			continue
		}
		// The hunk header's counts are authoritative: once both the old
		// and new side have seen their declared number of lines, the
		// hunk is done even if more context/prose follows immediately
		// (e.g. a trailing blank line before the next file header).
		if hunkConsumed(hunk) {
			flushHunk()
		}
	}
	flushFile()

	return diffs, nil
}

// hunkConsumed reports whether h's body already accounts for its
// declared old-side and new-side line counts.
func hunkConsumed(h *Hunk) bool {
	var oldSeen, newSeen int
	for _, l := range h.Body {
		switch l.Kind {
		case Context:
			oldSeen++
			newSeen++
		case Removed:
			oldSeen++
		case Added:
			newSeen++
		}
	}
	return oldSeen >= h.OldLines && newSeen >= h.NewLines
}

func newHunk(m []string) (*Hunk, error) {
	oldStart, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("diffblocks: invalid hunk old-start %q: %w", m[1], err)
	}
	newStart, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, fmt.Errorf("diffblocks: invalid hunk new-start %q: %w", m[3], err)
	}
	oldLines := 1
	if m[2] != "" {
		oldLines, err = strconv.Atoi(m[2])
		if err != nil {
			return nil, fmt.Errorf("diffblocks: invalid hunk old-count %q: %w", m[2], err)
		}
	}
	newLines := 1
	if m[4] != "" {
		newLines, err = strconv.Atoi(m[4])
		if err != nil {
			return nil, fmt.Errorf("diffblocks: invalid hunk new-count %q: %w", m[4], err)
		}
	}
	return &Hunk{OldStart: oldStart, OldLines: oldLines, NewStart: newStart, NewLines: newLines}, nil
}
