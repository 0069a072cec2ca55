// Package packet assembles a bounded, evidence-bearing context packet
// for a phase: file discovery under include/exclude globs, priority-
// class budgeting with LIFO-within-class eviction, and pre-redaction
// secret scanning with hard-stop semantics (spec §4.7).
package packet

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/xchecker/xchecker/internal/canon"
	"github.com/xchecker/xchecker/internal/redact"
	"github.com/xchecker/xchecker/internal/sandbox"
)

// delimiterFor names the fixed per-file delimiter used to concatenate
// admitted files into one packet body. The exact form isn't part of the
// cross-process interface contract (spec §4.7) since only phases
// re-parse their own packets; this one is shared by every phase that
// builds a plain textual packet.
func delimiterFor(path string) string {
	return fmt.Sprintf("\n----- FILE: %s -----\n", path)
}

// Options configures one Build call.
type Options struct {
	Root           *sandbox.Sandbox
	IncludeGlobs   []string
	ExcludeGlobs   []string
	Budgets        Budgets
	Redactor       *redact.Redactor
}

// Build discovers candidates under opts.Root, admits them under the
// priority-class budget algorithm, and returns the assembled Packet. A
// non-empty secret match on any admitted file's content is fatal for
// the whole build (*redact.SecretDetected); a *Overflow is returned only
// when an Upstream candidate alone cannot fit.
func Build(opts Options) (Packet, error) {
	candidates, err := discover(opts.Root, opts.IncludeGlobs, opts.ExcludeGlobs)
	if err != nil {
		return Packet{}, err
	}

	admitted, err := admit(candidates, opts.Budgets)
	if err != nil {
		return Packet{}, err
	}

	return assemble(admitted, opts.Budgets, opts.Redactor)
}

// discover walks root's sandbox, applying include then exclude globs,
// and returns one candidate per matching regular file, reading content
// through a per-build cache.
func discover(sb *sandbox.Sandbox, includeGlobs, excludeGlobs []string) ([]candidate, error) {
	cache := newReadCache()
	var candidates []candidate
	index := 0

	root := sb.Root()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if !matchesAny(rel, includeGlobs) {
			return nil
		}
		if matchesAny(rel, excludeGlobs) {
			return nil
		}

		data, err := cache.read(path)
		if err != nil {
			return fmt.Errorf("packet: reading %q: %w", rel, err)
		}
		candidates = append(candidates, candidate{
			path:           rel,
			raw:            data,
			lineCount:      countLines(data),
			priority:       classify(rel),
			discoveryIndex: index,
		})
		index++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("packet: discovering candidates: %w", err)
	}
	return candidates, nil
}

func matchesAny(rel string, globs []string) bool {
	if len(globs) == 0 {
		return false
	}
	for _, g := range globs {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := strings.Count(string(data), "\n")
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

// admitted is one candidate that made it through budgeting.
type admittedFile struct {
	candidate
}

// admit runs the greedy priority-ordered admission algorithm with
// LIFO-within-class eviction (spec §4.7).
func admit(candidates []candidate, budgets Budgets) ([]admittedFile, error) {
	byClass := map[Priority][]candidate{}
	for _, c := range candidates {
		byClass[c.priority] = append(byClass[c.priority], c)
	}
	// LIFO on discovery: within each class, most-recently-discovered
	// first.
	for _, class := range []Priority{Upstream, High, Medium, Low} {
		list := byClass[class]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].discoveryIndex > list[j].discoveryIndex
		})
		byClass[class] = list
	}

	var admitted []admittedFile
	usedBytes, usedLines := 0, 0

	fits := func(c candidate) bool {
		return usedBytes+len(c.raw) <= budgets.ByteLimit && usedLines+c.lineCount <= budgets.LineLimit
	}

	evictForRoom := func(needBytes, needLines int, notLowerThan Priority) bool {
		for i := len(admitted) - 1; i >= 0; i-- {
			if admitted[i].priority <= notLowerThan {
				continue
			}
			usedBytes -= len(admitted[i].raw)
			usedLines -= admitted[i].lineCount
			admitted = append(admitted[:i], admitted[i+1:]...)
			if usedBytes+needBytes <= budgets.ByteLimit && usedLines+needLines <= budgets.LineLimit {
				return true
			}
		}
		return usedBytes+needBytes <= budgets.ByteLimit && usedLines+needLines <= budgets.LineLimit
	}

	for _, class := range []Priority{Upstream, High, Medium, Low} {
		for _, c := range byClass[class] {
			if fits(c) {
				admitted = append(admitted, admittedFile{c})
				usedBytes += len(c.raw)
				usedLines += c.lineCount
				continue
			}
			if class == Upstream {
				return nil, &Overflow{
					UsedBytes: usedBytes, LimitBytes: budgets.ByteLimit,
					UsedLines: usedLines, LimitLines: budgets.LineLimit,
				}
			}
			if evictForRoom(len(c.raw), c.lineCount, class) {
				admitted = append(admitted, admittedFile{c})
				usedBytes += len(c.raw)
				usedLines += c.lineCount
			}
			// Eviction exhausted for a non-upstream class: skip this
			// candidate and continue (spec §4.7).
		}
	}

	return admitted, nil
}

// assemble redacts each admitted file's content (recording the
// pre-redaction hash in evidence, aborting on any hard-stop match),
// concatenates the redacted bodies with the shared delimiter, and
// hashes the whole content.
func assemble(admitted []admittedFile, budgets Budgets, r *redact.Redactor) (Packet, error) {
	sort.SliceStable(admitted, func(i, j int) bool {
		if admitted[i].priority != admitted[j].priority {
			return admitted[i].priority < admitted[j].priority
		}
		return admitted[i].path < admitted[j].path
	})

	var body strings.Builder
	evidence := Evidence{ByteBudget: budgets.ByteLimit, LineBudget: budgets.LineLimit}
	usedBytes, usedLines := 0, 0

	for _, a := range admitted {
		preHash := canon.HashBytes(a.raw)
		redacted, err := r.ScanHardStop(string(a.raw), a.path)
		if err != nil {
			return Packet{}, err
		}

		body.WriteString(delimiterFor(a.path))
		body.WriteString(redacted)

		evidence.Files = append(evidence.Files, SelectedFile{
			Path:          a.path,
			LineCount:     a.lineCount,
			HashPreRedact: preHash,
			Priority:      a.priority,
		})
		usedBytes += len(a.raw)
		usedLines += a.lineCount
	}

	content := body.String()
	return Packet{
		Content:         content,
		HashOfContent:   canon.HashBytes([]byte(content)),
		Evidence:        evidence,
		BudgetUsedBytes: usedBytes,
		BudgetUsedLines: usedLines,
	}, nil
}
