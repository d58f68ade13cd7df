// Package template renders toolkit config templates (pylintrc, mypy
// config, deployment files) against the current run context. Rendered
// output is cached under .output/tmpl and only refreshed when the source
// template is newer.
package template

import (
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/olib-dev/olib/internal/config"
)

// Data is the context available inside templates.
type Data struct {
	Config *config.Config
	Inst   *config.Inst
	Extra  map[string]any
}

// Renderer resolves template names relative to the toolkit checkout and
// writes rendered output under the project's .output/tmpl directory.
type Renderer struct {
	// OlibPath is the toolkit checkout templates are loaded from.
	OlibPath string
	// BaseDir is the project directory the .output cache lives in.
	BaseDir string
}

// Render renders the named template with data. suffix distinguishes
// output variants of the same template (e.g. ".web.dev"). Returns the
// path of the rendered file. The file is rewritten only when missing or
// older than its source.
func (r *Renderer) Render(name string, data Data, suffix string) (string, error) {
	src := filepath.Join(r.OlibPath, name)
	out := filepath.Join(r.BaseDir, ".output", "tmpl", name+suffix)

	stale, err := r.isStale(src, out)
	if err != nil {
		return "", err
	}
	if !stale {
		return out, nil
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("failed to create template output dir: %w", err)
	}

	tmpl, err := template.New(filepath.Base(src)).ParseFiles(src)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("failed to create rendered file: %w", err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return out, nil
}

// isStale compares the rendered file against both the template source
// and the project config: the render data comes from olib.yaml, so an
// edited config invalidates the cache just like an edited template.
func (r *Renderer) isStale(src, out string) (bool, error) {
	outInfo, err := os.Stat(out)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("failed to stat rendered file: %w", err)
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, fmt.Errorf("failed to stat template: %w", err)
	}
	if srcInfo.ModTime().After(outInfo.ModTime()) {
		return true, nil
	}
	if cfgInfo, err := os.Stat(filepath.Join(r.BaseDir, config.FileName)); err == nil {
		return cfgInfo.ModTime().After(outInfo.ModTime()), nil
	}
	return false, nil
}

// InstSuffix builds the conventional output suffix for an inst
// (".<name>.<cluster>"), or "" when no inst is selected.
func InstSuffix(inst *config.Inst) string {
	if inst == nil {
		return ""
	}
	return fmt.Sprintf(".%s.%s", inst.Name, inst.Cluster)
}
