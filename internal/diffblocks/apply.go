package diffblocks

import (
	"fmt"
	"strings"
)

// Apply produces the post-diff content of a file by replaying d's
// hunks against original, in order. Hunks are applied against
// original's original line numbers (not against each other's output),
// matching how a unified diff is generated from one reference
// version.
func Apply(original string, d FileDiff) (string, error) {
	oldLines := splitLines(original)
	var out []string
	cursor := 0 // 0-based index into oldLines, next unconsumed line

	for _, h := range d.Hunks {
		start := h.OldStart - 1
		if h.OldLines == 0 {
			// Pure insertion hunks point at the line *after* which the
			// insertion happens.
			start = h.OldStart
		}
		if start < cursor || start > len(oldLines) {
			return "", fmt.Errorf("diffblocks: hunk at old line %d is out of order or out of range (cursor %d, file has %d lines)", h.OldStart, cursor, len(oldLines))
		}

		out = append(out, oldLines[cursor:start]...)
		cursor = start

		for _, l := range h.Body {
			switch l.Kind {
			case Context:
				if cursor >= len(oldLines) || oldLines[cursor] != l.Content {
					return "", fmt.Errorf("diffblocks: context mismatch at old line %d: hunk expected %q", cursor+1, l.Content)
				}
				out = append(out, l.Content)
				cursor++
			case Removed:
				if cursor >= len(oldLines) || oldLines[cursor] != l.Content {
					return "", fmt.Errorf("diffblocks: removal mismatch at old line %d: hunk expected %q", cursor+1, l.Content)
				}
				cursor++
			case Added:
				out = append(out, l.Content)
			}
		}
	}
	out = append(out, oldLines[cursor:]...)

	return strings.Join(out, "\n"), nil
}

// splitLines splits content into lines without a trailing empty
// element for a final newline, matching unified diff's line counting.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
