package scaffold

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/xchecker/xchecker/internal/xconfig"
)

func TestInit_CreatesDirectoryStructure(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	for _, path := range []string{
		".xchecker",
		".xchecker/specs",
		filepath.Join(".xchecker", "config.toml"),
		filepath.Join(".xchecker", ".gitignore"),
	} {
		full := filepath.Join(dir, path)
		info, err := os.Stat(full)
		if err != nil {
			t.Fatalf("%s not created: %v", path, err)
		}
		if !info.IsDir() && info.Size() == 0 {
			t.Fatalf("%s is empty", path)
		}
	}

	gitignore, err := os.ReadFile(filepath.Join(dir, ".xchecker", ".gitignore"))
	if err != nil {
		t.Fatalf("reading .gitignore: %v", err)
	}
	if !strings.Contains(string(gitignore), "specs/") {
		t.Fatalf(".gitignore missing specs/ entry, got: %q", string(gitignore))
	}
}

func TestInit_GeneratedConfigParsesIntoFileConfig(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	configPath := filepath.Join(dir, ".xchecker", "config.toml")
	var fc xconfig.FileConfig
	if _, err := toml.DecodeFile(configPath, &fc); err != nil {
		t.Fatalf("decoding generated config: %v", err)
	}

	if fc.Defaults.Model != "claude_cli" {
		t.Fatalf("defaults.model = %q, want claude_cli", fc.Defaults.Model)
	}
	if fc.Llm.Provider != "claude_cli" {
		t.Fatalf("llm.provider = %q, want claude_cli", fc.Llm.Provider)
	}
	if fc.Selectors.ByteBudget == 0 {
		t.Fatal("selectors.byte_budget should be set")
	}
	if len(fc.Selectors.IncludeGlobs) == 0 {
		t.Fatal("selectors.include_globs should be set")
	}
}

func TestInit_FailsIfDirExists(t *testing.T) {
	dir := t.TempDir()
	xcheckerDir := filepath.Join(dir, ".xchecker")
	if err := os.MkdirAll(xcheckerDir, 0755); err != nil {
		t.Fatal(err)
	}

	err := Init(dir)
	if err == nil {
		t.Fatal("expected error when .xchecker already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected error containing 'already exists', got: %s", err)
	}
}
