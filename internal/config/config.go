// Package config loads the per-project olib.yaml and resolves which
// deployment instance a command applies to.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// FileName is the project marker file. Its presence identifies a
// directory as an olib-managed project root.
const FileName = "olib.yaml"

var instNameRe = regexp.MustCompile(`^[a-z\-]+$`)

// Inst describes one deployment instance of the project (e.g. a dev or
// production install).
type Inst struct {
	Name        string   `yaml:"name"`
	Alias       string   `yaml:"alias,omitempty"`
	Cluster     string   `yaml:"cluster,omitempty"`
	Default     bool     `yaml:"default,omitempty"`
	EnvFiles    []string `yaml:"env_files,omitempty"`
	PckRegistry string   `yaml:"pck_registry,omitempty"`
}

// DjangoRoot marks a subdirectory holding a Django project, with the
// settings module used when running Python tooling inside it.
type DjangoRoot struct {
	WorkingDir string `yaml:"working_dir"`
	Settings   string `yaml:"settings"`
}

// Config is the parsed olib.yaml.
type Config struct {
	DisplayName string       `yaml:"display_name"`
	Tools       []string     `yaml:"tools"`
	License     string       `yaml:"license"`
	Insts       []*Inst      `yaml:"insts,omitempty"`
	Django      []DjangoRoot `yaml:"django,omitempty"`
}

// Default returns the configuration used when a project carries no
// olib.yaml of its own.
func Default() *Config {
	return &Config{
		DisplayName: "APP",
		Tools:       []string{"python"},
		License:     "restrictive",
	}
}

// Load reads olib.yaml from root, falling back to Default when the file
// does not exist. Zero-valued fields are filled from Default.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	def := Default()
	if cfg.DisplayName == "" {
		cfg.DisplayName = def.DisplayName
	}
	if len(cfg.Tools) == 0 {
		cfg.Tools = def.Tools
	}
	if cfg.License == "" {
		cfg.License = def.License
	}
	for _, inst := range cfg.Insts {
		applyInstDefaults(inst)
	}
	return &cfg, nil
}

func applyInstDefaults(inst *Inst) {
	if inst.Cluster == "" {
		inst.Cluster = "dev"
	}
	if inst.PckRegistry == "" {
		inst.PckRegistry = "pck-reg.home.arpa"
	}
	if inst.EnvFiles == nil {
		inst.EnvFiles = []string{}
	}
}

// HasTool reports whether the project declares the given tool
// ("python", "javascript", ...).
func (c *Config) HasTool(tool string) bool {
	for _, t := range c.Tools {
		if t == tool {
			return true
		}
	}
	return false
}

// ResolveInst picks the instance a command applies to.
//
// With no selector: a single configured inst is used as-is, otherwise the
// one marked default wins; no default means no inst (nil, nil). With a
// selector: name matches inst name or alias, cluster matches the cluster
// field. Ambiguous or missing matches are errors, as is an inst name that
// is not lowercase-letters-and-dashes.
func (c *Config) ResolveInst(name, cluster string) (*Inst, error) {
	if c.Insts == nil {
		return nil, nil
	}

	var sel []*Inst
	if name == "" && cluster == "" {
		if len(c.Insts) == 1 {
			sel = c.Insts
		} else {
			for _, inst := range c.Insts {
				if inst.Default {
					sel = append(sel, inst)
				}
			}
			if len(sel) > 1 {
				return nil, fmt.Errorf("multiple inst configs with default set")
			}
			if len(sel) == 0 {
				return nil, nil
			}
		}
	} else {
		for _, inst := range c.Insts {
			if (name != "" && (inst.Name == name || inst.Alias == name)) ||
				(cluster != "" && inst.Cluster == cluster) {
				sel = append(sel, inst)
			}
		}
		if len(sel) > 1 {
			return nil, fmt.Errorf("multiple matching insts")
		}
		if len(sel) == 0 {
			return nil, fmt.Errorf("no matching insts")
		}
	}

	inst := sel[0]
	if !instNameRe.MatchString(inst.Name) {
		return nil, fmt.Errorf("inst name %q can only consist of lowercase letters and dashes", inst.Name)
	}
	return inst, nil
}

// RunContext carries the resolved configuration for one CLI invocation.
type RunContext struct {
	Config *Config
	Inst   *Inst
}

// RequireInst returns the resolved inst or an error when the command
// needs one and none was selected or defaulted.
func (rc *RunContext) RequireInst() (*Inst, error) {
	if rc.Inst == nil {
		return nil, fmt.Errorf("inst must be specified or defaulted to for this command")
	}
	return rc.Inst, nil
}
