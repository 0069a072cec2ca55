package canon

import (
	"testing"
)

func TestCanonicalizeYAML_SortsKeys(t *testing.T) {
	a, err := Canonicalize([]byte("b: 2\na: 1\n"), YAML)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Canonicalize([]byte("a: 1\nb: 2\n"), YAML)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatalf("canonical forms differ:\n%q\nvs\n%q", a, b)
	}
}

func TestCanonicalizeYAML_NestedKeySort(t *testing.T) {
	input := []byte("outer:\n  z: 1\n  a: 2\n")
	out, err := Canonicalize(input, YAML)
	if err != nil {
		t.Fatal(err)
	}
	want := "outer:\n  a: 2\n  z: 1\n"
	if string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestCanonicalizeYAML_InvalidSurfacesTypedError(t *testing.T) {
	_, err := Canonicalize([]byte("key: [unterminated"), YAML)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	var cerr *Error
	if ce, ok := err.(*Error); ok {
		cerr = ce
	}
	if cerr == nil || cerr.Type != YAML {
		t.Fatalf("expected *canon.Error{Type: YAML}, got %v (%T)", err, err)
	}
}

func TestCanonicalizeMarkdown_CollapsesBlankRuns(t *testing.T) {
	input := []byte("one\n\n\n\n\ntwo\n")
	out := canonicalizeMarkdown(input)
	want := "one\n\n\ntwo\n"
	if string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestCanonicalizeMarkdown_StripsTrailingWhitespace(t *testing.T) {
	input := []byte("line one   \nline two\t\t\n")
	out := canonicalizeMarkdown(input)
	want := "line one\nline two\n"
	if string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestCanonicalizeMarkdown_NormalizesCRLF(t *testing.T) {
	out := canonicalizeMarkdown([]byte("a\r\nb\r\n"))
	if string(out) != "a\nb\n" {
		t.Fatalf("got %q", out)
	}
}

func TestCanonicalizeText_EnsuresTrailingNewline(t *testing.T) {
	out := canonicalizeText([]byte("no newline"))
	if string(out) != "no newline\n" {
		t.Fatalf("got %q", out)
	}
}

func TestCanonicalizeText_Idempotent(t *testing.T) {
	once := canonicalizeText([]byte("already\nfine\n"))
	twice := canonicalizeText(once)
	if string(once) != string(twice) {
		t.Fatalf("not idempotent: %q vs %q", once, twice)
	}
}

func TestHashCanonical_StableAcrossWhitespace(t *testing.T) {
	h1, err := HashCanonical([]byte("a: 1\nb: 2\n"), YAML)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := HashCanonical([]byte("a:   1\nb:   2\n"), YAML)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("hashes differ across whitespace-only variation: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("hash length = %d, want 64", len(h1))
	}
}

func TestMarshalJCS_SortsObjectKeys(t *testing.T) {
	a, err := MarshalJCS(map[string]any{"b": 1, "a": 2})
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != `{"a":2,"b":1}` {
		t.Fatalf("got %s", a)
	}
}

func TestMarshalJCS_NoInsignificantWhitespace(t *testing.T) {
	out, err := MarshalJCS(map[string]any{"x": []any{1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"x":[1,2,3]}`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestMarshalJCS_IntegralFloatHasNoDecimalPoint(t *testing.T) {
	out, err := MarshalJCS(map[string]any{"n": 5.0})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"n":5}` {
		t.Fatalf("got %s", out)
	}
}

func TestMarshalJCS_StringEscaping(t *testing.T) {
	out, err := MarshalJCS(map[string]any{"s": "line1\nline2\t\"quoted\""})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"s":"line1\nline2\t\"quoted\""}`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestMarshalJCS_NonASCIINotEscaped(t *testing.T) {
	out, err := MarshalJCS(map[string]any{"s": "café"})
	if err != nil {
		t.Fatal(err)
	}
	want := "{\"s\":\"café\"}"
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestMarshalJCS_NestedStructureStable(t *testing.T) {
	type payload struct {
		Zeta  string `json:"zeta"`
		Alpha int    `json:"alpha"`
	}
	out, err := MarshalJCS(payload{Zeta: "z", Alpha: 1})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"alpha":1,"zeta":"z"}` {
		t.Fatalf("got %s", out)
	}
}
