// Package shell runs command strings through an embedded POSIX/Bash
// interpreter instead of shelling out to /bin/bash.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// CommandRunner is the execution seam: production code uses Runner, tests
// substitute recorders.
type CommandRunner interface {
	Run(ctx context.Context, command string) error
}

// Runner executes shell command strings with a fixed working directory
// and environment.
type Runner struct {
	Dir    string
	Env    []string // full environment; nil means os.Environ()
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func New(dir string, env []string) *Runner {
	return &Runner{
		Dir:    dir,
		Env:    env,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run parses and executes command. A non-zero exit status is returned as
// an error satisfying interp.IsExitStatus.
func (r *Runner) Run(ctx context.Context, command string) error {
	file, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return fmt.Errorf("failed to parse command: %w", err)
	}

	env := r.Env
	if env == nil {
		env = os.Environ()
	}
	stdin := r.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := r.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := r.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	runner, err := interp.New(
		interp.Dir(r.Dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(stdin, stdout, stderr),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}
	return runner.Run(ctx, file)
}

// ExitCode extracts the exit status from a Run error. nil maps to 0,
// non-exit errors to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if status, ok := interp.IsExitStatus(err); ok {
		return int(status)
	}
	return 1
}
