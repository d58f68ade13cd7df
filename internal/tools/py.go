package tools

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/olib-dev/olib/internal/config"
	"github.com/olib-dev/olib/internal/shell"
	"github.com/olib-dev/olib/internal/template"
)

// Directories never scanned for Python sources.
var pySkipDirs = map[string]bool{
	"olib":         true,
	"node_modules": true,
	".venv":        true,
}

// pyGroup is a set of lint/check targets sharing one Python root and,
// optionally, the Django configuration of that root.
type pyGroup struct {
	Root   string // relative to the project root
	Django *config.DjangoRoot
	Files  []string
}

// findPyRoot returns the Python root a file belongs to: the configured
// Django root containing it, or "." with no Django config.
func findPyRoot(projectRoot, file string, roots []config.DjangoRoot) (string, *config.DjangoRoot) {
	abs := file
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(projectRoot, file)
	}
	for i := range roots {
		rootAbs := filepath.Join(projectRoot, roots[i].WorkingDir)
		if abs == rootAbs || strings.HasPrefix(abs, rootAbs+string(filepath.Separator)) {
			return roots[i].WorkingDir, &roots[i]
		}
	}
	return ".", nil
}

// groupPyFiles groups explicit files by their Python root. With no files
// given, it discovers all roots and fills each with its top-level
// Python-bearing directories plus a *.py catch-all.
func groupPyFiles(projectRoot string, files []string, roots []config.DjangoRoot) ([]pyGroup, error) {
	if len(files) > 0 {
		byRoot := map[string]*pyGroup{}
		var order []string
		for _, f := range files {
			root, dj := findPyRoot(projectRoot, f, roots)
			g, ok := byRoot[root]
			if !ok {
				g = &pyGroup{Root: root, Django: dj}
				byRoot[root] = g
				order = append(order, root)
			}
			g.Files = append(g.Files, f)
		}
		var groups []pyGroup
		for _, root := range order {
			groups = append(groups, *byRoot[root])
		}
		return groups, nil
	}

	var discovered []pyGroup
	djangoDirs := map[string]bool{}
	for i := range roots {
		djangoDirs[filepath.Base(roots[i].WorkingDir)] = true
		discovered = append(discovered, pyGroup{Root: roots[i].WorkingDir, Django: &roots[i]})
	}
	hasDot := false
	for _, g := range discovered {
		if g.Root == "." {
			hasDot = true
		}
	}
	if !hasDot {
		discovered = append(discovered, pyGroup{Root: "."})
	}

	var groups []pyGroup
	for _, g := range discovered {
		dirs, err := listPyDirs(filepath.Join(projectRoot, g.Root), djangoDirs)
		if err != nil {
			return nil, err
		}
		if len(dirs) == 0 {
			continue
		}
		g.Files = dirs
		groups = append(groups, g)
	}
	return groups, nil
}

// listPyDirs returns the top-level directories under root that contain
// Python files, plus the "*.py" catch-all for root-level scripts.
func listPyDirs(root string, exclude map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || pySkipDirs[e.Name()] || exclude[e.Name()] {
			continue
		}
		matches, err := doublestar.FilepathGlob(filepath.Join(root, e.Name(), "**", "*.py"))
		if err != nil {
			return nil, fmt.Errorf("failed to glob %s: %w", e.Name(), err)
		}
		if len(matches) > 0 {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	return append(dirs, "*.py"), nil
}

// hash distinguishes rendered config variants per Django root.
func djangoHash(dj *config.DjangoRoot) string {
	h := fnv.New32a()
	h.Write([]byte(dj.WorkingDir + ":" + dj.Settings))
	return fmt.Sprintf("%08x", h.Sum32())
}

func (t *Toolchain) pyEnvPrefix(g pyGroup) string {
	if g.Django == nil {
		return ""
	}
	return fmt.Sprintf("PYTHONPATH=%s DJANGO_SETTINGS_MODULE=%s ",
		shell.Quote(g.Root), shell.Quote(g.Django.Settings))
}

func (t *Toolchain) renderPyConfig(name string, g pyGroup) (string, error) {
	suffix := ""
	if g.Django != nil {
		suffix = ".django." + djangoHash(g.Django)
	}
	return t.Renderer.Render(name, template.Data{
		Config: t.RC.Config,
		Inst:   t.RC.Inst,
		Extra:  map[string]any{"django": g.Django},
	}, suffix)
}

// PyLint runs pylint per Python root group.
func (t *Toolchain) PyLint(ctx context.Context, files []string, quiet bool) error {
	groups, err := groupPyFiles(t.WS.Root, files, t.RC.Config.Django)
	if err != nil {
		return err
	}
	for _, g := range groups {
		rcPath, err := t.renderPyConfig("config/pylintrc", g)
		if err != nil {
			return err
		}
		flags := ""
		if quiet {
			flags = "-rn -sn "
		}
		t.Log.Info("pylint", "root", g.Root, "targets", strings.Join(g.Files, " "))
		cmd := fmt.Sprintf("%snice pylint --rcfile=%s %s%s",
			t.pyEnvPrefix(g), shell.Quote(rcPath), flags, strings.Join(g.Files, " "))
		if err := t.Runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("pylint failed in %s: %w", g.Root, err)
		}
	}
	return nil
}

// PyTypeCheck runs mypy (or the mypy daemon) per Python root group.
func (t *Toolchain) PyTypeCheck(ctx context.Context, files []string, installTypes, daemon bool) error {
	groups, err := groupPyFiles(t.WS.Root, files, t.RC.Config.Django)
	if err != nil {
		return err
	}

	// Config puts the mypy cache under .output.
	if err := os.MkdirAll(filepath.Join(t.WS.Root, ".output"), 0o755); err != nil {
		return fmt.Errorf("failed to create .output: %w", err)
	}

	base := "nice mypy"
	if daemon {
		base = "dmypy start --"
	}
	extra := ""
	if installTypes && !daemon {
		extra = "--install-types --non-interactive "
	}

	for _, g := range groups {
		rcPath, err := t.renderPyConfig("config/mypy", g)
		if err != nil {
			return err
		}
		t.Log.Info("mypy", "root", g.Root, "targets", strings.Join(g.Files, " "))
		cmd := fmt.Sprintf("%s%s --config-file=%s %s--exclude='.*/olib/.*' %s",
			t.pyEnvPrefix(g), base, shell.Quote(rcPath), extra, strings.Join(g.Files, " "))
		if err := t.Runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("mypy failed in %s: %w", g.Root, err)
		}
	}
	return nil
}

// relToRoot rewrites a project-root-relative file path to be relative
// to the group root, which the generated command enters with cd.
func relToRoot(projectRoot, root, file string) string {
	if root == "." {
		return file
	}
	abs := file
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(projectRoot, file)
	}
	rel, err := filepath.Rel(filepath.Join(projectRoot, root), abs)
	if err != nil {
		return file
	}
	return rel
}

// PyTest runs pytest per Python root group, from inside the root.
func (t *Toolchain) PyTest(ctx context.Context, files []string) error {
	groups, err := groupPyFiles(t.WS.Root, files, t.RC.Config.Django)
	if err != nil {
		return err
	}
	for _, g := range groups {
		targets := ""
		if len(files) > 0 {
			rels := make([]string, len(g.Files))
			for i, f := range g.Files {
				rels[i] = relToRoot(t.WS.Root, g.Root, f)
			}
			targets = " " + strings.Join(rels, " ")
		}
		// The assignments must prefix the pytest invocation itself; put
		// before `cd` they would scope to cd and never reach pytest. After
		// cd the root is the working directory, so PYTHONPATH is ".".
		env := ""
		if g.Django != nil {
			env = fmt.Sprintf("PYTHONPATH=. DJANGO_SETTINGS_MODULE=%s ", shell.Quote(g.Django.Settings))
		}
		t.Log.Info("pytest", "root", g.Root)
		cmd := fmt.Sprintf("cd %s && %snice pytest%s", shell.Quote(g.Root), env, targets)
		if err := t.Runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("pytest failed in %s: %w", g.Root, err)
		}
	}
	return nil
}

// PreCommit runs one pre-commit hook against the given files, or all
// files when none are given.
func (t *Toolchain) PreCommit(ctx context.Context, hook string, files []string) error {
	fileArgs := "--all-files"
	if len(files) > 0 {
		quoted := make([]string, len(files))
		for i, f := range files {
			quoted[i] = shell.Quote(f)
		}
		fileArgs = "--files " + strings.Join(quoted, " ")
	}
	return t.Runner.Run(ctx, fmt.Sprintf("pre-commit run %s %s", hook, fileArgs))
}

// PyFormat applies the formatting hooks through pre-commit.
func (t *Toolchain) PyFormat(ctx context.Context, files []string) error {
	return t.PreCommit(ctx, "format", files)
}
