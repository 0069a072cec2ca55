package atomicfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWrite_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.txt")

	res, err := Write(dest, []byte("hello"), 0644)
	if err != nil {
		t.Fatal(err)
	}
	if res.FallbackUsed {
		t.Fatal("first write should not need fallback")
	}
	if res.Retries != 0 {
		t.Fatalf("Retries = %d, want 0", res.Retries)
	}
	if res.HashPreWrite != "" {
		t.Fatal("HashPreWrite should be empty for a new file")
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("content = %q, want %q", got, "hello")
	}
}

func TestWrite_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.txt")
	if _, err := Write(dest, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.txt" {
		t.Fatalf("directory contains unexpected entries: %v", entries)
	}
}

func TestWrite_OverwriteRecordsPreHash(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.txt")
	if _, err := Write(dest, []byte("version one"), 0644); err != nil {
		t.Fatal(err)
	}
	res, err := Write(dest, []byte("version two"), 0644)
	if err != nil {
		t.Fatal(err)
	}
	if res.HashPreWrite == "" {
		t.Fatal("HashPreWrite should be set when overwriting an existing file")
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "version two" {
		t.Fatalf("content = %q, want %q", got, "version two")
	}
}

func TestWrite_NeverObservesTruncatedContent(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.txt")
	original := make([]byte, 1<<20)
	for i := range original {
		original[i] = 'a'
	}
	if _, err := Write(dest, original, 0644); err != nil {
		t.Fatal(err)
	}
	replacement := make([]byte, 1<<20)
	for i := range replacement {
		replacement[i] = 'b'
	}
	if _, err := Write(dest, replacement, 0644); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(replacement) || got[0] != 'b' || got[len(got)-1] != 'b' {
		t.Fatal("post-write content must be exactly the new bytes, never a mix")
	}
}
