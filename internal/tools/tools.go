// Package tools implements the py/js/dev subcommand groups: thin,
// convention-heavy wrappers that aim linters, type checkers, and test
// runners at the right directories with the right environment.
package tools

import (
	"log/slog"

	"github.com/olib-dev/olib/internal/config"
	"github.com/olib-dev/olib/internal/shell"
	"github.com/olib-dev/olib/internal/template"
	"github.com/olib-dev/olib/internal/workspace"
)

// Toolchain carries the shared collaborators of all tool commands.
type Toolchain struct {
	RC       *config.RunContext
	WS       *workspace.Workspace
	Runner   shell.CommandRunner
	Renderer *template.Renderer
	Log      *slog.Logger
}

func New(rc *config.RunContext, ws *workspace.Workspace, runner shell.CommandRunner, renderer *template.Renderer, log *slog.Logger) *Toolchain {
	if log == nil {
		log = slog.Default()
	}
	return &Toolchain{RC: rc, WS: ws, Runner: runner, Renderer: renderer, Log: log}
}
