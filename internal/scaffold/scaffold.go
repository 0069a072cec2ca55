// Package scaffold implements "xchecker init": writing a starter
// .xchecker/config.toml plus its supporting directories. Unlike the
// teacher's init (which asked an AI backend to invent an arbitrary phase
// list, since its pipeline's phases were themselves user-defined),
// xchecker's six phases are fixed — there is nothing for a backend to
// design here, so init is deterministic and never shells out.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xchecker/xchecker/internal/ux"
)

// Init creates a new .xchecker/ directory with a default config.toml,
// a specs/ storage root, and a .gitignore excluding it.
func Init(targetDir string) error {
	xcheckerDir := filepath.Join(targetDir, ".xchecker")
	if _, err := os.Stat(xcheckerDir); err == nil {
		return fmt.Errorf(".xchecker directory already exists in %s", targetDir)
	}

	specsDir := filepath.Join(xcheckerDir, "specs")
	if err := os.MkdirAll(specsDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", specsDir, err)
	}

	configPath := filepath.Join(xcheckerDir, "config.toml")
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}

	gitignorePath := filepath.Join(xcheckerDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("specs/\n"), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", gitignorePath, err)
	}

	printSuccess([]string{
		".xchecker/config.toml",
		".xchecker/.gitignore",
		".xchecker/specs/",
	})
	return nil
}

// printSuccess prints the initialization success message and file list.
func printSuccess(written []string) {
	fmt.Printf("\n%s%s  ✓ Initialized .xchecker/ directory%s\n\n", ux.Bold, ux.Green, ux.Reset)
	fmt.Printf("  Created:\n")
	for _, path := range written {
		fmt.Printf("    %s%s%s\n", ux.Cyan, path, ux.Reset)
	}
	fmt.Printf("\n  %sEdit .xchecker/config.toml to adjust selectors, budgets, and the backend.%s\n", ux.Dim, ux.Reset)
	fmt.Printf("\n  Next: %sxchecker run <spec> requirements%s\n\n", ux.Cyan, ux.Reset)
}
