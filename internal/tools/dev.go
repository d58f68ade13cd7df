package tools

import (
	"context"
	"time"

	"github.com/olib-dev/olib/internal/proc"
)

// TestAll runs every check that makes sense for the project's declared
// tools as procs on one manager: checks of the same language share a
// lock (their caches are not concurrency-safe), different languages run
// in parallel, and a single aggregated error reports all failures.
func (t *Toolchain) TestAll(ctx context.Context, files []string) error {
	m := proc.NewManager(ctx, t.Log)

	if err := m.Proto("py", proc.Options{
		Locks:   []string{"py-env"},
		Timeout: 30 * time.Minute,
	}); err != nil {
		return err
	}
	if err := m.Proto("js", proc.Options{
		Locks:   []string{"node-env"},
		Timeout: 30 * time.Minute,
	}); err != nil {
		return err
	}

	if t.RC.Config.HasTool("python") {
		if _, err := m.Register(proc.Options{Name: "py-lint", Proto: "py"}, func(ctx context.Context, _ map[string]string) error {
			return t.PyLint(ctx, files, true)
		}); err != nil {
			return err
		}
		if _, err := m.Register(proc.Options{Name: "py-mypy", Proto: "py"}, func(ctx context.Context, _ map[string]string) error {
			return t.PyTypeCheck(ctx, files, true, false)
		}); err != nil {
			return err
		}
		// Tests only run against a lint-clean tree.
		if _, err := m.Register(proc.Options{Name: "py-test", Proto: "py", Deps: []string{"py-lint"}}, func(ctx context.Context, _ map[string]string) error {
			return t.PyTest(ctx, files)
		}); err != nil {
			return err
		}
	}

	if t.RC.Config.HasTool("javascript") {
		if _, err := m.Register(proc.Options{Name: "js-lint", Proto: "js"}, func(ctx context.Context, _ map[string]string) error {
			return t.JSLint(ctx, files)
		}); err != nil {
			return err
		}
		if _, err := m.Register(proc.Options{Name: "js-tsc", Proto: "js"}, func(ctx context.Context, _ map[string]string) error {
			return t.JSTsc(ctx)
		}); err != nil {
			return err
		}
		if _, err := m.Register(proc.Options{Name: "js-test", Proto: "js", Deps: []string{"js-tsc"}}, func(ctx context.Context, _ map[string]string) error {
			return t.JSTest(ctx, true)
		}); err != nil {
			return err
		}
	}

	return m.WaitAll(ctx, true)
}
