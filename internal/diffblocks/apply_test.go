package diffblocks

import "testing"

func TestApply_SimpleReplacement(t *testing.T) {
	original := "package widget\n\nfunc Name() string {\n\treturn \"old\"\n}\n"
	diffs, err := Parse(sampleDiff)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Apply(original, diffs[0])
	if err != nil {
		t.Fatal(err)
	}
	want := "package widget\n\nfunc Name() string {\n\treturn \"new\"\n\t// trailing comment\n}"
	if got != want {
		t.Fatalf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestApply_ContextMismatchIsError(t *testing.T) {
	original := "completely different content\n"
	diffs, err := Parse(sampleDiff)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Apply(original, diffs[0])
	if err == nil {
		t.Fatal("expected a context mismatch error")
	}
}

func TestApply_PureInsertion(t *testing.T) {
	original := "one\ntwo\nthree\n"
	text := `--- a/f.txt
+++ b/f.txt
@@ -1,0 +2,1 @@
+inserted
`
	diffs, err := Parse(text)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Apply(original, diffs[0])
	if err != nil {
		t.Fatal(err)
	}
	want := "one\ninserted\ntwo\nthree"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
