// Package workspace locates the project root and derives the paths and
// environment the rest of the CLI operates in.
package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

// MarkerFile identifies a directory as an olib-managed project root.
const MarkerFile = "olib.yaml"

// Discover walks ancestor directories of start until one contains the
// marker file or a version-control directory, and returns it. It returns
// "" when the filesystem root is reached without a match; callers fall
// back to a default rather than treating that as an error.
func Discover(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	for {
		if isRoot(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func isRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, MarkerFile)); err == nil {
		return true
	}
	if fi, err := os.Stat(filepath.Join(dir, ".git")); err == nil && fi.IsDir() {
		return true
	}
	return false
}

// Workspace bundles the discovered paths for one CLI invocation. Root is
// the project root, OlibPath the toolkit checkout inside (or beside) it,
// and Module the dotted path used to address the CLI entry point.
type Workspace struct {
	Root     string
	OlibPath string
	Module   string
}

// Resolve builds a Workspace starting from start. When no project root is
// found, start itself is used. olibPathOverride, when non-empty, pins the
// toolkit checkout instead of probing conventional locations.
func Resolve(start, olibPathOverride string) *Workspace {
	root := Discover(start)
	if root == "" {
		root, _ = filepath.Abs(start)
	}

	olibPath := olibPathOverride
	if olibPath == "" {
		olibPath = findOlibPath(root)
	}

	return &Workspace{
		Root:     root,
		OlibPath: olibPath,
		Module:   DottedModulePath(root, olibPath),
	}
}

// findOlibPath probes the conventional locations of the toolkit checkout
// relative to a project root. Falls back to the root itself (the toolkit
// repository is its own project).
func findOlibPath(root string) string {
	for _, cand := range []string{
		filepath.Join(root, "olib"),
		filepath.Join(root, "tools", "olib"),
	} {
		if fi, err := os.Stat(cand); err == nil && fi.IsDir() {
			return cand
		}
	}
	return root
}

// DottedModulePath converts the toolkit location relative to the project
// root into the dotted module path used to invoke its CLI ("olib",
// "tools.olib", ...). A toolkit outside the root addresses itself as the
// base module name.
func DottedModulePath(root, olibPath string) string {
	rel, err := filepath.Rel(root, olibPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "olib"
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")
}

// VenvDir is the virtual environment location inside the project.
func (w *Workspace) VenvDir() string {
	return filepath.Join(w.Root, ".venv")
}

// ShareDir holds the config files (ignore rules, pre-commit config, envrc)
// that init links into consuming projects.
func (w *Workspace) ShareDir() string {
	return filepath.Join(w.OlibPath, "share")
}
