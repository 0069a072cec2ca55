package errkind

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCodeTable(t *testing.T) {
	cases := []struct {
		kind Kind
		code int
	}{
		{Unknown, 1},
		{CliArgs, 2},
		{PacketOverflow, 7},
		{SecretDetected, 8},
		{LockHeld, 9},
		{PhaseTimeout, 10},
		{ClaudeFailure, 70},
		{Kind("not_a_real_kind"), 1},
	}
	for _, c := range cases {
		if got := c.kind.ExitCode(); got != c.code {
			t.Errorf("%v.ExitCode() = %d, want %d", c.kind, got, c.code)
		}
	}
}

func TestClassifyDirect(t *testing.T) {
	err := New(SecretDetected, "found an api key")
	if got := Classify(err); got != SecretDetected {
		t.Fatalf("Classify = %v, want %v", got, SecretDetected)
	}
}

func TestClassifyThroughWrap(t *testing.T) {
	inner := New(PacketOverflow, "upstream file too large")
	outer := fmt.Errorf("packet build failed: %w", inner)
	if got := Classify(outer); got != PacketOverflow {
		t.Fatalf("Classify = %v, want %v", got, PacketOverflow)
	}
}

func TestClassifyUntyped(t *testing.T) {
	if got := Classify(errors.New("boom")); got != Unknown {
		t.Fatalf("Classify = %v, want %v", got, Unknown)
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != "" {
		t.Fatalf("Classify(nil) = %v, want empty", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("exec: not found")
	err := Wrap(ClaudeFailure, "invoking claude cli", cause)
	if !errors.Is(err, cause) {
		t.Fatal("Wrap must preserve the cause for errors.Is")
	}
}
