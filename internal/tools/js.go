package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/olib-dev/olib/internal/shell"
)

// findPackageDir walks up from dir (relative to projectRoot) to the
// closest directory containing package.json. Returns "" when none is
// found inside the project.
func findPackageDir(projectRoot, dir string) string {
	if dir == "" {
		dir = "."
	}
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, dir, "package.json")); err == nil {
			return dir
		}
		if dir == "." {
			return ""
		}
		dir = filepath.Dir(dir)
	}
}

// jsPackageDirs groups the given files (or, with none, the project's
// JS-bearing directories) by their closest package.json directory.
func jsPackageDirs(projectRoot string, files []string) ([]string, error) {
	if len(files) == 0 {
		entries, err := os.ReadDir(projectRoot)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project root: %w", err)
		}
		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || e.Name() == "olib" || e.Name() == "node_modules" {
				continue
			}
			for _, pat := range []string{"*.js", "*.ts", "*.tsx", "*.mjs"} {
				matches, err := doublestar.FilepathGlob(filepath.Join(projectRoot, e.Name(), "**", pat))
				if err != nil {
					return nil, fmt.Errorf("failed to glob %s: %w", e.Name(), err)
				}
				if len(matches) > 0 {
					files = append(files, e.Name())
					break
				}
			}
		}
	}

	seen := map[string]bool{}
	var dirs []string
	for _, f := range files {
		dir := f
		if fi, err := os.Stat(filepath.Join(projectRoot, f)); err != nil || !fi.IsDir() {
			dir = filepath.Dir(f)
		}
		pkg := findPackageDir(projectRoot, dir)
		if pkg == "" || seen[pkg] {
			continue
		}
		seen[pkg] = true
		dirs = append(dirs, pkg)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// frontendDir is where JS tests and the TypeScript build live by
// convention.
func (t *Toolchain) frontendDir() string {
	if _, err := os.Stat(filepath.Join(t.WS.Root, "frontend", "package.json")); err == nil {
		return "frontend"
	}
	return "."
}

// JSLint runs the lint script in every package directory in scope.
func (t *Toolchain) JSLint(ctx context.Context, files []string) error {
	dirs, err := jsPackageDirs(t.WS.Root, files)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		t.Log.Info("eslint", "dir", dir)
		cmd := fmt.Sprintf("cd %s && nice npm run lint .", shell.Quote(dir))
		if err := t.Runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("eslint failed in %s: %w", dir, err)
		}
	}
	return nil
}

// JSTsc type-checks the frontend without emitting output.
func (t *Toolchain) JSTsc(ctx context.Context) error {
	dir := t.frontendDir()
	t.Log.Info("tsc", "dir", dir)
	cmd := fmt.Sprintf("cd %s && nice npm run env -- tsc --noEmit", shell.Quote(dir))
	if err := t.Runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("tsc failed in %s: %w", dir, err)
	}
	return nil
}

// JSTest runs the frontend unit tests. noUI forces CI mode so the test
// runner does not open an interactive watcher.
func (t *Toolchain) JSTest(ctx context.Context, noUI bool) error {
	dir := t.frontendDir()
	prefix := ""
	if noUI {
		prefix = "CI=1 "
	}
	t.Log.Info("js test", "dir", dir)
	cmd := fmt.Sprintf("cd %s && %snice npm run test", shell.Quote(dir), prefix)
	if err := t.Runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("js tests failed in %s: %w", dir, err)
	}
	return nil
}
