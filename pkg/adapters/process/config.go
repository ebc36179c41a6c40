package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Argument placeholders substituted with temp file paths.
const (
	PlaceholderDomain  = "{domain}"
	PlaceholderProblem = "{problem}"
	PlaceholderPlan    = "{plan}"
)

// PlannerConfig describes how to invoke an external solver.
//
// When Args mention {plan}, the plan is read from that file after the run,
// otherwise from stdout. Args without {domain}/{problem} get both paths
// appended.
type PlannerConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
	// NoPlanExitCodes are exit codes meaning "unsolvable" rather than "crashed".
	NoPlanExitCodes []int `yaml:"no_plan_exit_codes" json:"no_plan_exit_codes"`
	// NoPlanPatterns are output substrings (case-insensitive) meaning "unsolvable".
	NoPlanPatterns []string `yaml:"no_plan_patterns" json:"no_plan_patterns"`
}

// UsesPlanFile reports whether the solver writes its plan to {plan}.
func (c PlannerConfig) UsesPlanFile() bool {
	for _, a := range c.Args {
		if strings.Contains(a, PlaceholderPlan) {
			return true
		}
	}
	return false
}

// ConfigFile represents the structure of planners.yaml.
type ConfigFile struct {
	Default  string          `yaml:"default" json:"default"`
	Planners []PlannerConfig `yaml:"planners" json:"planners"`
}

// Select returns the named planner, or the default one when name is empty.
// With no default, a single configured planner is selected.
func (f ConfigFile) Select(name string) (PlannerConfig, error) {
	if name == "" {
		name = f.Default
	}
	if name == "" && len(f.Planners) == 1 {
		return f.Planners[0], nil
	}
	for _, p := range f.Planners {
		if p.Name == name {
			return p, nil
		}
	}
	if name == "" {
		return PlannerConfig{}, errors.New("no default planner configured")
	}
	return PlannerConfig{}, fmt.Errorf("planner %q not configured", name)
}

// LoadConfig reads a planners file (YAML or JSON by extension).
// A missing file yields an empty configuration.
func LoadConfig(path string) (ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ConfigFile{}, nil
		}
		return ConfigFile{}, fmt.Errorf("failed to read planner config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return ConfigFile{}, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ConfigFile{}, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	valid := cfg.Planners[:0]
	for _, p := range cfg.Planners {
		if p.Name == "" || p.Command == "" {
			continue
		}
		valid = append(valid, p)
	}
	cfg.Planners = valid
	return cfg, nil
}
