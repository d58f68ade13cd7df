// Package bootstrap installs language toolchains on a developer machine.
// Each installer is a fixed ordered list of steps: skip when a probe
// says the tool is present, otherwise run the official installer and its
// one-time configuration. The first failing step aborts the installer;
// these are one-shot setup scripts, so there are no retries and no
// partial-state cleanup.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olib-dev/olib/internal/shell"
)

// Step is one guarded installation action.
type Step struct {
	Name string
	// Check exits 0 when the step is already satisfied; empty means the
	// step always runs.
	Check string
	// Run is the shell command performing the step.
	Run string
}

// Installer is a named, ordered step list for one toolchain.
type Installer struct {
	Name  string
	Steps []Step
}

// Run executes the step list against runner, fail-fast.
func (ins *Installer) Run(ctx context.Context, runner shell.CommandRunner, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	for _, step := range ins.Steps {
		if step.Check != "" {
			if err := runner.Run(ctx, step.Check); err == nil {
				log.Debug("step already satisfied", "installer", ins.Name, "step", step.Name)
				continue
			}
		}
		log.Info("running step", "installer", ins.Name, "step", step.Name)
		log.Debug("command", "cmd", shell.Format(step.Run))
		if err := runner.Run(ctx, step.Run); err != nil {
			return fmt.Errorf("%s: step %q failed: %w", ins.Name, step.Name, err)
		}
	}
	log.Info("toolchain ready", "installer", ins.Name)
	return nil
}

// ByName returns the installer for a toolchain name.
func ByName(name string) (*Installer, error) {
	switch name {
	case "python":
		return Python(), nil
	case "node":
		return Node(), nil
	case "rust":
		return Rust(), nil
	default:
		return nil, fmt.Errorf("unknown toolchain: %s", name)
	}
}

// All returns every installer in the order bootstrap-all runs them.
func All() []*Installer {
	return []*Installer{Python(), Node(), Rust()}
}
