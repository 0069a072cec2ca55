package diffblocks

import "testing"

const sampleDiff = `Here is the fix:

--- a/internal/widget/widget.go
+++ b/internal/widget/widget.go
@@ -1,4 +1,5 @@
 package widget

 func Name() string {
-	return "old"
+	return "new"
+	// trailing comment
 }

That should resolve it.
`

func TestParse_SingleFileSingleHunk(t *testing.T) {
	diffs, err := Parse(sampleDiff)
	if err != nil {
		t.Fatal(err)
	}
	if len(diffs) != 1 {
		t.Fatalf("expected 1 file diff, got %d", len(diffs))
	}
	d := diffs[0]
	if d.OldPath != "internal/widget/widget.go" || d.NewPath != "internal/widget/widget.go" {
		t.Fatalf("unexpected paths: %+v", d)
	}
	if len(d.Hunks) != 1 {
		t.Fatalf("expected 1 hunk, got %d", len(d.Hunks))
	}
	h := d.Hunks[0]
	if h.OldStart != 1 || h.OldLines != 4 || h.NewStart != 1 || h.NewLines != 5 {
		t.Fatalf("unexpected hunk header: %+v", h)
	}
	if len(h.Body) != 6 {
		t.Fatalf("expected 6 body lines, got %d: %+v", len(h.Body), h.Body)
	}
}

func TestParse_MultipleFiles(t *testing.T) {
	text := `--- a/one.txt
+++ b/one.txt
@@ -1,1 +1,1 @@
-old one
+new one
--- a/two.txt
+++ b/two.txt
@@ -1,1 +1,1 @@
-old two
+new two
`
	diffs, err := Parse(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(diffs) != 2 {
		t.Fatalf("expected 2 file diffs, got %d", len(diffs))
	}
	if diffs[0].OldPath != "one.txt" || diffs[1].OldPath != "two.txt" {
		t.Fatalf("unexpected order/paths: %+v", diffs)
	}
}

func TestParse_NoDiffReturnsEmpty(t *testing.T) {
	diffs, err := Parse("just some prose, no diff here")
	if err != nil {
		t.Fatal(err)
	}
	if len(diffs) != 0 {
		t.Fatalf("expected no diffs, got %+v", diffs)
	}
}

func TestParse_PlusHeaderWithoutMinusIsError(t *testing.T) {
	_, err := Parse("+++ b/only.txt\n@@ -1,1 +1,1 @@\n-a\n+b\n")
	if err == nil {
		t.Fatal("expected an error for a +++ header with no preceding --- header")
	}
}

func TestFileDiff_TargetPath_DeletedFileUsesOldPath(t *testing.T) {
	d := FileDiff{OldPath: "gone.txt", NewPath: "/dev/null"}
	if d.TargetPath() != "gone.txt" {
		t.Fatalf("expected old path for a deleted file, got %q", d.TargetPath())
	}
}
