package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

// Environment variables set by the activation shim.
const (
	EnvOlibPath   = "OLIB_PATH"
	EnvOlibModule = "OLIB_MODULE"
	EnvVirtualEnv = "VIRTUAL_ENV"
)

// IDE terminals manage their own interpreter; auto-activation there would
// fight the IDE's environment.
var ideTerminalPrograms = map[string]bool{
	"vscode": true,
	"cursor": true,
}

// Environ returns base extended with the toolkit variables and, when
// appropriate, virtual environment activation. Activation is skipped when
// the venv does not exist, when one is already active, or when running
// inside an IDE-managed terminal.
func (w *Workspace) Environ(base []string) []string {
	env := setEnv(base, EnvOlibPath, w.OlibPath)
	env = setEnv(env, EnvOlibModule, w.Module)

	if !w.shouldActivate(env) {
		return env
	}

	venv := w.VenvDir()
	env = setEnv(env, EnvVirtualEnv, venv)
	binDir := filepath.Join(venv, "bin")
	if path, ok := getEnv(env, "PATH"); ok {
		return setEnv(env, "PATH", binDir+string(os.PathListSeparator)+path)
	}
	return setEnv(env, "PATH", binDir)
}

func (w *Workspace) shouldActivate(env []string) bool {
	if fi, err := os.Stat(w.VenvDir()); err != nil || !fi.IsDir() {
		return false
	}
	if v, ok := getEnv(env, EnvVirtualEnv); ok && v != "" {
		return false
	}
	if term, ok := getEnv(env, "TERM_PROGRAM"); ok && ideTerminalPrograms[strings.ToLower(term)] {
		return false
	}
	return true
}

func getEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return env[i][len(prefix):], true
		}
	}
	return "", false
}

func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			out := make([]string, len(env))
			copy(out, env)
			out[i] = prefix + value
			return out
		}
	}
	return append(append([]string{}, env...), prefix+value)
}
