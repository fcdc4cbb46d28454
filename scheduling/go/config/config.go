// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the scheduler configuration from a YAML or JSON file and
// FJSP_ environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/fjsp-sat/fjsp/scheduling/go/fjsp"
	"github.com/fjsp-sat/fjsp/scheduling/go/problem"
	"github.com/fjsp-sat/fjsp/scheduling/go/solver"
	"github.com/fjsp-sat/fjsp/scheduling/go/tabular"
)

// EnvPrefix prefixes the environment variables overriding the configuration. Nested
// keys are separated by a double underscore, as in FJSP_SOLVER__TIMELIMIT.
const EnvPrefix = "FJSP_"

// Config is the scheduler configuration.
type Config struct {
	// Objective is "makespan" or "lmax".
	Objective string `json:"objective"`
	// Discovery is "first-operation" or "all-operations".
	Discovery string `json:"discovery"`
	// MixMachines offers every machine to every operation.
	MixMachines bool            `json:"mixMachines"`
	Verbose     bool            `json:"verbose"`
	Solver      SolverConfig    `json:"solver"`
	Input       InputConfig     `json:"input"`
	Selfcheck   SelfcheckConfig `json:"selfcheck"`
	Metrics     MetricsConfig   `json:"metrics"`
}

// SolverConfig holds the engine parameters.
type SolverConfig struct {
	// TimeLimit bounds the search, e.g. "30s". Zero means no limit.
	TimeLimit         time.Duration `json:"timeLimit"`
	Workers           int           `json:"workers"`
	RandomSeed        int           `json:"randomSeed"`
	LogSearchProgress bool          `json:"logSearchProgress"`
}

// Validate checks the engine parameters.
func (c SolverConfig) Validate() error {
	if c.TimeLimit < 0 {
		return fmt.Errorf("solver.timeLimit %v is negative", c.TimeLimit)
	}
	if c.Workers < 0 {
		return fmt.Errorf("solver.workers %d is negative", c.Workers)
	}
	return nil
}

// InputConfig locates the production schedule to load.
type InputConfig struct {
	Path    string          `json:"path"`
	Columns tabular.Columns `json:"columns"`
}

// SelfcheckConfig configures the self-check command.
type SelfcheckConfig struct {
	StopOnFailure bool `json:"stopOnFailure"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	// Textfile, if set, receives the metrics in the node exporter textfile format.
	Textfile string `json:"textfile"`
}

// Default returns the configuration used for unset keys.
func Default() Config {
	return Config{
		Objective: fjsp.Makespan.String(),
		Discovery: problem.DiscoverFirstOperation.String(),
		Input:     InputConfig{Columns: tabular.DefaultColumns()},
	}
}

// SetDefaults fills empty selectors.
func (c *Config) SetDefaults() {
	if c.Objective == "" {
		c.Objective = fjsp.Makespan.String()
	}
	if c.Discovery == "" {
		c.Discovery = problem.DiscoverFirstOperation.String()
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := fjsp.ParseObjective(c.Objective); err != nil {
		return err
	}
	if _, err := problem.ParseDiscoveryPolicy(c.Discovery); err != nil {
		return err
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	return c.Input.Columns.Validate()
}

// ObjectiveValue returns the parsed objective.
func (c *Config) ObjectiveValue() (fjsp.Objective, error) {
	return fjsp.ParseObjective(c.Objective)
}

// DiscoveryPolicy returns the parsed discovery policy.
func (c *Config) DiscoveryPolicy() (problem.DiscoveryPolicy, error) {
	return problem.ParseDiscoveryPolicy(c.Discovery)
}

// Parameters returns the engine parameters.
func (c *Config) Parameters() solver.Parameters {
	return solver.Parameters{
		TimeLimit:         c.Solver.TimeLimit,
		NumWorkers:        c.Solver.Workers,
		RandomSeed:        c.Solver.RandomSeed,
		LogSearchProgress: c.Solver.LogSearchProgress,
	}
}

// keys lists every configuration key, used to map environment variables back to
// their case.
var keys = []string{
	"objective", "discovery", "mixMachines", "verbose",
	"solver.timeLimit", "solver.workers", "solver.randomSeed", "solver.logSearchProgress",
	"input.path", "input.columns.name", "input.columns.machine", "input.columns.duration", "input.columns.dueDate",
	"selfcheck.stopOnFailure",
	"metrics.textfile",
}

var envKeys = func() map[string]string {
	m := make(map[string]string, len(keys))
	for _, k := range keys {
		m[strings.ToLower(k)] = k
	}
	return m
}()

// Load reads the configuration file at `path`, when not empty, then applies the
// environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return envKeys[strings.ReplaceAll(s, "__", ".")]
	}), nil); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
