// Package initialize wires a consuming project up to the toolkit:
// shared config symlinks, an aggregated dependency list, a virtual
// environment, and git hooks. Every step is guarded by an existence
// check so running it twice is a no-op.
package initialize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/olib-dev/olib/internal/shell"
	"github.com/olib-dev/olib/internal/workspace"
)

// Options selects development mode and force-refresh behavior.
type Options struct {
	// Dev installs git hooks and development dependencies.
	Dev bool
	// Force skips the version-control check and recreates the virtual
	// environment from scratch.
	Force bool
}

// Symlinked from the toolkit share directory into the project root.
var sharedLinks = []string{
	".envrc",
	".envrc.leave",
	".pre-commit-config.yaml",
}

// Copied rather than linked: projects are expected to extend it.
const sharedCopy = ".gitignore"

type Initializer struct {
	WS     *workspace.Workspace
	Runner shell.CommandRunner
	Log    *slog.Logger
}

func New(ws *workspace.Workspace, runner shell.CommandRunner, log *slog.Logger) *Initializer {
	if log == nil {
		log = slog.Default()
	}
	return &Initializer{WS: ws, Runner: runner, Log: log}
}

// Run performs the initialization sequence, aborting on the first
// failing step.
func (i *Initializer) Run(ctx context.Context, opts Options) error {
	if !opts.Force {
		if err := i.checkVersionControl(); err != nil {
			return err
		}
	}
	if err := i.linkShared(); err != nil {
		return err
	}
	if err := i.installRequirements(ctx, opts); err != nil {
		return err
	}
	if opts.Dev {
		if err := i.installHooks(ctx); err != nil {
			return err
		}
	}
	i.Log.Info("project initialized", "root", i.WS.Root, "dev", opts.Dev)
	return nil
}

func (i *Initializer) checkVersionControl() error {
	gitDir := filepath.Join(i.WS.Root, ".git")
	if fi, err := os.Stat(gitDir); err != nil || !fi.IsDir() {
		return fmt.Errorf("no version-control root at %s (use --force to initialize anyway)", i.WS.Root)
	}
	return nil
}

func (i *Initializer) linkShared() error {
	share := i.WS.ShareDir()

	for _, name := range sharedLinks {
		src := filepath.Join(share, name)
		if _, err := os.Stat(src); err != nil {
			// Toolkit checkout without a share dir; nothing to link.
			continue
		}
		dst := filepath.Join(i.WS.Root, name)
		res, err := EnsureSymlink(src, dst)
		if err != nil {
			return err
		}
		switch res {
		case linkCreated:
			i.Log.Info("linked", "file", name)
		case linkConflict:
			i.Log.Warn("leaving existing file in place", "file", name)
			if diff := ConflictDiff(src, dst); diff != "" {
				fmt.Fprint(os.Stderr, diff)
			}
		}
	}

	src := filepath.Join(share, sharedCopy)
	if _, err := os.Stat(src); err == nil {
		copied, err := CopyIfAbsent(src, filepath.Join(i.WS.Root, sharedCopy))
		if err != nil {
			return err
		}
		if copied {
			i.Log.Info("copied", "file", sharedCopy)
		}
	}
	return nil
}

func (i *Initializer) installRequirements(ctx context.Context, opts Options) error {
	reqs, err := AggregateRequirements(i.WS.Root)
	if err != nil {
		return err
	}

	venv := i.WS.VenvDir()
	if opts.Force {
		if err := os.RemoveAll(venv); err != nil {
			return fmt.Errorf("failed to remove virtual environment: %w", err)
		}
	}
	if _, err := os.Stat(venv); os.IsNotExist(err) {
		i.Log.Info("creating virtual environment", "path", venv)
		cmd := fmt.Sprintf(
			"if command -v uv >/dev/null 2>&1; then uv venv %[1]s; else python3 -m venv %[1]s; fi",
			shell.Quote(venv),
		)
		if err := i.Runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("failed to create virtual environment: %w", err)
		}
	}

	if len(reqs) == 0 {
		return nil
	}
	reqFile, err := WriteAggregated(i.WS.Root, reqs)
	if err != nil {
		return err
	}
	i.Log.Info("installing requirements", "count", len(reqs))
	install := fmt.Sprintf("%s install -r %s",
		shell.Quote(filepath.Join(venv, "bin", "pip")), shell.Quote(reqFile))
	if err := i.Runner.Run(ctx, install); err != nil {
		return fmt.Errorf("failed to install requirements: %w", err)
	}
	return nil
}

func (i *Initializer) installHooks(ctx context.Context) error {
	hook := filepath.Join(i.WS.Root, ".git", "hooks", "pre-commit")
	if _, err := os.Stat(hook); err == nil {
		return nil
	}
	i.Log.Info("installing git hooks")
	if err := i.Runner.Run(ctx, "pre-commit install"); err != nil {
		return fmt.Errorf("failed to install git hooks: %w", err)
	}
	return nil
}
