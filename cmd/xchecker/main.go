package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/xchecker/xchecker/internal/doctor"
	"github.com/xchecker/xchecker/internal/docs"
	"github.com/xchecker/xchecker/internal/errkind"
	"github.com/xchecker/xchecker/internal/facade"
	"github.com/xchecker/xchecker/internal/phaseid"
	"github.com/xchecker/xchecker/internal/scaffold"
	"github.com/xchecker/xchecker/internal/ux"
)

func main() {
	app := &cli.Command{
		Name:        "xchecker",
		Usage:       "Deterministic, receipt-audited spec pipeline",
		Description: "Run 'xchecker docs' for documentation on config, phases, packets, and receipts.",
		Commands: []*cli.Command{
			initCmd(),
			runCmd(),
			statusCmd(),
			doctorCmd(),
			docsCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", ux.Red, ux.Reset, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a returned error to the closed exit-code taxonomy
// (spec §7) when it carries a classifiable errkind.Kind, else 1.
func exitCodeFor(err error) int {
	kind := errkind.Classify(err)
	if kind == "" {
		return 1
	}
	return kind.ExitCode()
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run one phase, or every legal phase in sequence, for a spec",
		ArgsUsage: "<spec> [phase]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Usage: "Run every phase the spec is ready for, in chain order"},
			&cli.BoolFlag{Name: "force", Usage: "Override a stale lock held by a dead process"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Run Fixup in preview mode; stage rewrites without promoting them"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if os.Getenv("CLAUDECODE") != "" {
				return fmt.Errorf("xchecker cannot run inside Claude Code (CLAUDECODE env var is set); run from a regular terminal")
			}

			specID := cmd.Args().First()
			if specID == "" {
				return fmt.Errorf("spec argument is required")
			}

			all := cmd.Bool("all")
			phaseArg := cmd.Args().Get(1)
			if !all && phaseArg == "" {
				return fmt.Errorf("either a phase argument or --all is required")
			}

			var requested phaseid.ID
			if !all {
				var err error
				requested, err = phaseid.Parse(phaseArg)
				if err != nil {
					return err
				}
			}

			workspaceRoot, err := findWorkspaceRoot()
			if err != nil {
				return err
			}

			f, err := facade.New(facade.Params{
				StorageRoot:   filepath.Join(workspaceRoot, ".xchecker", "specs"),
				WorkspaceRoot: workspaceRoot,
				SpecID:        specID,
				Force:         cmd.Bool("force"),
			})
			if err != nil {
				return err
			}
			defer f.Close()

			f.SetDryRun(cmd.Bool("dry-run"))

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			if all {
				return runAll(ctx, f)
			}
			return runOne(ctx, f, specID, requested)
		},
	}
}

func runOne(ctx context.Context, f *facade.Facade, specID string, id phaseid.ID) error {
	ux.PhaseHeader(id)
	start := time.Now()
	result, err := f.RunPhase(ctx, id)
	if err != nil {
		return err
	}
	if !result.Success {
		ux.PhaseFail(id, result.Receipt.ExitCode, result.Receipt.ErrorKind, result.Receipt.ErrorReason)
		ux.ResumeHint(specID, id)
		return errkind.New(errkind.Kind(result.Receipt.ErrorKind), result.Receipt.ErrorReason)
	}
	ux.PhaseComplete(id, time.Since(start))
	return nil
}

func runAll(ctx context.Context, f *facade.Facade) error {
	count := 0
	for {
		next := f.LegalNextPhases()
		if len(next) == 0 {
			break
		}
		id := next[0]
		ux.PhaseHeader(id)
		start := time.Now()
		result, err := f.RunPhase(ctx, id)
		if err != nil {
			return err
		}
		if !result.Success {
			ux.PhaseFail(id, result.Receipt.ExitCode, result.Receipt.ErrorKind, result.Receipt.ErrorReason)
			return errkind.New(errkind.Kind(result.Receipt.ErrorKind), result.Receipt.ErrorReason)
		}
		ux.PhaseComplete(id, time.Since(start))
		count++
		if id == phaseid.Final {
			break
		}
	}
	ux.Success(count)
	return nil
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show artifacts, effective config, and pending fixups for a spec",
		ArgsUsage: "<spec>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			specID := cmd.Args().First()
			if specID == "" {
				return fmt.Errorf("spec argument is required")
			}

			workspaceRoot, err := findWorkspaceRoot()
			if err != nil {
				return err
			}

			f, err := facade.Readonly(facade.Params{
				StorageRoot:   filepath.Join(workspaceRoot, ".xchecker", "specs"),
				WorkspaceRoot: workspaceRoot,
				SpecID:        specID,
			})
			if err != nil {
				return err
			}
			defer f.Close()

			st, err := f.Status()
			if err != nil {
				return err
			}
			ux.RenderStatus(specID, st)
			return nil
		},
	}
}

func doctorCmd() *cli.Command {
	return &cli.Command{
		Name:      "doctor",
		Usage:     "Diagnose a spec's most recent failing receipt using AI",
		ArgsUsage: "<spec>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			specID := cmd.Args().First()
			if specID == "" {
				return fmt.Errorf("spec argument is required")
			}

			workspaceRoot, err := findWorkspaceRoot()
			if err != nil {
				return err
			}

			f, err := facade.Readonly(facade.Params{
				StorageRoot:   filepath.Join(workspaceRoot, ".xchecker", "specs"),
				WorkspaceRoot: workspaceRoot,
				SpecID:        specID,
			})
			if err != nil {
				return err
			}
			defer f.Close()

			return doctor.Run(ctx, f)
		},
	}
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new .xchecker/ directory with a default config.toml",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			return scaffold.Init(dir)
		},
	}
}

func docsCmd() *cli.Command {
	return &cli.Command{
		Name:      "docs",
		Usage:     "Show documentation",
		ArgsUsage: "[topic]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				fmt.Print("\nAvailable topics:\n\n")
				for _, t := range docs.All() {
					fmt.Printf("  %-14s %s\n", t.Name, t.Summary)
				}
				fmt.Println("\nRun 'xchecker docs <topic>' to read a topic.")
				return nil
			}
			t, err := docs.Get(name)
			if err != nil {
				return err
			}
			fmt.Print(t.Content)
			return nil
		},
	}
}

// findWorkspaceRoot walks up from cwd looking for .xchecker/config.toml.
func findWorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		configPath := filepath.Join(dir, ".xchecker", "config.toml")
		if _, err := os.Stat(configPath); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no .xchecker/config.toml found (searched from cwd to root); run 'xchecker init' first")
		}
		dir = parent
	}
}
