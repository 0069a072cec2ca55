// Package phaseid defines the fixed six-phase chain and its legal
// transition table.
package phaseid

import "fmt"

// ID identifies one phase in the fixed chain. The zero value is invalid;
// use the named constants.
type ID int

const (
	invalid ID = iota
	Requirements
	Design
	Tasks
	Review
	Fixup
	Final
)

// All lists every phase in declared order.
var All = []ID{Requirements, Design, Tasks, Review, Fixup, Final}

// prefix is the stable numeric artifact-naming prefix for each phase.
var prefix = map[ID]string{
	Requirements: "00",
	Design:       "10",
	Tasks:        "20",
	Review:       "30",
	Fixup:        "40",
	Final:        "50",
}

// slug is the lowercase name used in artifact filenames and receipt names.
var slug = map[ID]string{
	Requirements: "requirements",
	Design:       "design",
	Tasks:        "tasks",
	Review:       "review",
	Fixup:        "fixup",
	Final:        "final",
}

// Prefix returns the two-digit artifact-naming prefix, e.g. "10" for Design.
func (id ID) Prefix() string { return prefix[id] }

// Slug returns the lowercase phase name, e.g. "design".
func (id ID) Slug() string { return slug[id] }

// String implements fmt.Stringer with the phase's title-case name.
func (id ID) String() string {
	switch id {
	case Requirements:
		return "Requirements"
	case Design:
		return "Design"
	case Tasks:
		return "Tasks"
	case Review:
		return "Review"
	case Fixup:
		return "Fixup"
	case Final:
		return "Final"
	default:
		return "Invalid"
	}
}

// Valid reports whether id is one of the six declared phases.
func (id ID) Valid() bool {
	_, ok := slug[id]
	return ok
}

// Parse looks up a phase by its slug (case-insensitive not attempted —
// callers normalize).
func Parse(s string) (ID, error) {
	for _, id := range All {
		if id.Slug() == s {
			return id, nil
		}
	}
	return invalid, fmt.Errorf("phaseid: unknown phase %q", s)
}

// Index returns the 0-based position of id in the declared chain, or -1.
func Index(id ID) int {
	for i, candidate := range All {
		if candidate == id {
			return i
		}
	}
	return -1
}

// legalNext encodes the state machine from §4.10: for a given *completed*
// state (the empty ID means nothing has completed yet), which phases may
// legally be requested next. Re-running a phase already completed is
// always legal (it appears in its own row).
var legalNext = map[ID][]ID{
	invalid:      {Requirements},
	Requirements: {Requirements, Design},
	Design:       {Design, Tasks},
	Tasks:        {Tasks, Review, Final},
	Review:       {Review, Fixup, Final},
	Fixup:        {Fixup, Final},
	Final:        {Final},
}

// NoneCompleted is the sentinel "completed state" meaning no phase has
// finished yet — only Requirements may be requested.
var NoneCompleted ID = invalid

// LegalNext returns the phases that may legally be requested given that
// `completed` is the most recently completed phase (NoneCompleted if none).
func LegalNext(completed ID) []ID {
	return legalNext[completed]
}

// CanTransition reports whether `requested` is a legal next phase given
// `completed` is the most recently completed phase.
func CanTransition(completed, requested ID) bool {
	for _, id := range legalNext[completed] {
		if id == requested {
			return true
		}
	}
	return false
}

// Deps returns the phases whose final artifacts + successful receipts
// must exist before `id` may run. This answers a different question than
// CanTransition: artifact readiness vs. user-requested transition — both
// are enforced independently (§4.10, §9).
func Deps(id ID) []ID {
	switch id {
	case Requirements:
		return nil
	case Design:
		return []ID{Requirements}
	case Tasks:
		return []ID{Design}
	case Review:
		return []ID{Tasks}
	case Fixup:
		return []ID{Review}
	case Final:
		return []ID{Tasks}
	default:
		return nil
	}
}
