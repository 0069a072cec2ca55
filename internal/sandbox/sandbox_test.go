package sandbox

import (
	"os"
	"path/filepath"
	"testing"
)

func TestJoin_Basic(t *testing.T) {
	root := t.TempDir()
	sb, err := New(root, Policy{})
	if err != nil {
		t.Fatal(err)
	}
	got, err := sb.Join("artifacts/00-requirements.md")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(sb.Root(), "artifacts", "00-requirements.md")
	if got != want {
		t.Fatalf("Join = %q, want %q", got, want)
	}
}

func TestJoin_RejectsAbsolute(t *testing.T) {
	sb, err := New(t.TempDir(), Policy{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sb.Join("/etc/passwd"); err == nil {
		t.Fatal("expected PathEscape for absolute path")
	}
}

func TestJoin_RejectsDotDot(t *testing.T) {
	sb, err := New(t.TempDir(), Policy{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sb.Join("../escape"); err == nil {
		t.Fatal("expected PathEscape for traversal")
	}
	if _, err := sb.Join("a/../../b"); err == nil {
		t.Fatal("expected PathEscape for nested traversal")
	}
}

func TestJoin_RejectsSymlinkByDefault(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	sb, err := New(root, Policy{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sb.Join("link/file.txt"); err == nil {
		t.Fatal("expected SymlinkForbidden")
	}
}

func TestJoin_AllowsSymlinkWhenPolicyPermits(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	sb, err := New(root, Policy{AllowSymlinks: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sb.Join("link/file.txt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJoin_NonexistentPathIsFine(t *testing.T) {
	sb, err := New(t.TempDir(), Policy{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sb.Join("not/created/yet.txt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
