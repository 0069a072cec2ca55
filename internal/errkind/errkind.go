// Package errkind implements the closed error taxonomy from spec §7 and
// its single total mapping to a process exit code.
package errkind

import "errors"

// Kind is one of the seven categorized error kinds. There is no
// catch-all branch beyond Unknown, and Unknown is reserved for genuinely
// unexpected internal errors — every categorized failure path must
// construct its own Kind explicitly.
type Kind string

const (
	Unknown         Kind = "unknown"
	CliArgs         Kind = "cli_args"
	PacketOverflow  Kind = "packet_overflow"
	SecretDetected  Kind = "secret_detected"
	LockHeld        Kind = "lock_held"
	PhaseTimeout    Kind = "phase_timeout"
	ClaudeFailure   Kind = "claude_failure"
)

// exitCodes is the single total function from Kind to exit code (§6 table).
var exitCodes = map[Kind]int{
	Unknown:        1,
	CliArgs:        2,
	PacketOverflow: 7,
	SecretDetected: 8,
	LockHeld:       9,
	PhaseTimeout:   10,
	ClaudeFailure:  70,
}

// ExitCode returns the process exit code for k.
func (k Kind) ExitCode() int {
	if code, ok := exitCodes[k]; ok {
		return code
	}
	return exitCodes[Unknown]
}

// Error is a typed error carrying its Kind and a human-readable reason.
// Every fatal phase error is wrapped in one of these before it reaches
// the orchestrator boundary, so exit-code derivation never has to guess.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a typed Error of the given kind.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap constructs a typed Error of the given kind wrapping an underlying error.
func Wrap(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// Classify extracts the Kind from err, defaulting to Unknown for any
// error that isn't one of our typed errors.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return Unknown
}
