package initialize

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olib-dev/olib/internal/workspace"
)

// recordingRunner captures commands and simulates their filesystem
// side effects where a step checks for them afterwards.
type recordingRunner struct {
	commands []string
	onRun    func(cmd string) error
}

func (r *recordingRunner) Run(_ context.Context, cmd string) error {
	r.commands = append(r.commands, cmd)
	if r.onRun != nil {
		return r.onRun(cmd)
	}
	return nil
}

func (r *recordingRunner) ran(substr string) bool {
	for _, c := range r.commands {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

func setupProject(t *testing.T) *workspace.Workspace {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "hooks"), 0o755))

	// Toolkit checkout with a share directory inside the project.
	share := filepath.Join(root, "olib", "share")
	require.NoError(t, os.MkdirAll(share, 0o755))
	for _, name := range []string{".envrc", ".envrc.leave", ".pre-commit-config.yaml", ".gitignore"} {
		require.NoError(t, os.WriteFile(filepath.Join(share, name), []byte("# shared "+name+"\n"), 0o644))
	}
	return workspace.Resolve(root, "")
}

// venvCreatingRunner simulates venv creation so the existence checks in
// later steps and reruns see a real directory.
func venvCreatingRunner(ws *workspace.Workspace) *recordingRunner {
	return &recordingRunner{onRun: func(cmd string) error {
		if strings.Contains(cmd, "venv") && !strings.Contains(cmd, "pip") {
			return os.MkdirAll(filepath.Join(ws.VenvDir(), "bin"), 0o755)
		}
		return nil
	}}
}

func TestInitIsIdempotent(t *testing.T) {
	ws := setupProject(t)
	runner := venvCreatingRunner(ws)
	init := New(ws, runner, nil)

	require.NoError(t, init.Run(context.Background(), Options{Dev: false}))

	for _, name := range sharedLinks {
		target, err := os.Readlink(filepath.Join(ws.Root, name))
		require.NoError(t, err, name)
		assert.Equal(t, filepath.Join(ws.ShareDir(), name), target)
	}
	assert.FileExists(t, filepath.Join(ws.Root, ".gitignore"))
	fi, err := os.Lstat(filepath.Join(ws.Root, ".gitignore"))
	require.NoError(t, err)
	assert.Zero(t, fi.Mode()&os.ModeSymlink, ".gitignore must be a copy, not a link")

	firstRunCommands := len(runner.commands)

	// Second run: no duplicate links, no error, no venv recreation.
	require.NoError(t, init.Run(context.Background(), Options{Dev: false}))
	assert.Equal(t, firstRunCommands, len(runner.commands), "second run must not re-run venv creation")
}

func TestInitForceRecreatesVenv(t *testing.T) {
	ws := setupProject(t)
	runner := venvCreatingRunner(ws)
	init := New(ws, runner, nil)

	require.NoError(t, init.Run(context.Background(), Options{}))

	// Plant a marker inside the venv; force must wipe it.
	marker := filepath.Join(ws.VenvDir(), "marker")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644))

	require.NoError(t, init.Run(context.Background(), Options{Force: true}))
	assert.NoFileExists(t, marker)
	assert.DirExists(t, ws.VenvDir())
}

func TestInitRequiresVersionControl(t *testing.T) {
	root := t.TempDir()
	ws := workspace.Resolve(root, "")
	runner := &recordingRunner{}
	init := New(ws, runner, nil)

	err := init.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version-control")

	// Force skips the check.
	assert.NoError(t, init.Run(context.Background(), Options{Force: true}))
}

func TestInitConflictLeavesFileAlone(t *testing.T) {
	ws := setupProject(t)
	existing := filepath.Join(ws.Root, ".envrc")
	require.NoError(t, os.WriteFile(existing, []byte("my own envrc\n"), 0o644))

	runner := venvCreatingRunner(ws)
	init := New(ws, runner, nil)
	require.NoError(t, init.Run(context.Background(), Options{}))

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "my own envrc\n", string(data))
}

func TestInitDevInstallsHooks(t *testing.T) {
	ws := setupProject(t)
	runner := venvCreatingRunner(ws)
	init := New(ws, runner, nil)

	require.NoError(t, init.Run(context.Background(), Options{Dev: true}))
	assert.True(t, runner.ran("pre-commit install"))

	// With the hook present, a rerun skips installation.
	hook := filepath.Join(ws.Root, ".git", "hooks", "pre-commit")
	require.NoError(t, os.WriteFile(hook, []byte("#!/bin/sh\n"), 0o755))
	before := len(runner.commands)
	require.NoError(t, init.Run(context.Background(), Options{Dev: true}))
	for _, c := range runner.commands[before:] {
		assert.NotContains(t, c, "pre-commit install")
	}
}

func TestInitInstallsAggregatedRequirements(t *testing.T) {
	ws := setupProject(t)
	reqDir := filepath.Join(ws.Root, RequirementsDir)
	require.NoError(t, os.MkdirAll(reqDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(reqDir, "requirements.txt"), []byte("django\n# comment\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(reqDir, "requirements-dev.txt"), []byte("pytest\ndjango\n"), 0o644))

	runner := venvCreatingRunner(ws)
	init := New(ws, runner, nil)
	require.NoError(t, init.Run(context.Background(), Options{}))

	assert.True(t, runner.ran("pip"))
	data, err := os.ReadFile(filepath.Join(ws.Root, ".output", "requirements.txt"))
	require.NoError(t, err)
	assert.Equal(t, "django\npytest\n", string(data))
}

// The toolkit checkout must actually carry the files linkShared links
// and init copies; a checkout without them initializes to nothing.
func TestShippedShareAssets(t *testing.T) {
	share := filepath.Join("..", "..", "share")
	for _, name := range sharedLinks {
		assert.FileExists(t, filepath.Join(share, name))
	}
	assert.FileExists(t, filepath.Join(share, sharedCopy))

	// The hook set is part of the external interface.
	data, err := os.ReadFile(filepath.Join(share, ".pre-commit-config.yaml"))
	require.NoError(t, err)
	for _, id := range []string{"lint", "type-check", "format", "license-header", "security-scan"} {
		assert.Contains(t, string(data), "id: "+id)
	}
}

func TestAggregateRequirementsEmptyProject(t *testing.T) {
	reqs, err := AggregateRequirements(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, reqs)
}
