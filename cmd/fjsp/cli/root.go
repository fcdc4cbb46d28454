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

// Package cli implements the fjsp command line on top of a solver backend.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fjsp-sat/fjsp/scheduling/go/config"
	"github.com/fjsp-sat/fjsp/scheduling/go/fjsp"
	"github.com/fjsp-sat/fjsp/scheduling/go/metrics"
	"github.com/fjsp-sat/fjsp/scheduling/go/problem"
	"github.com/fjsp-sat/fjsp/scheduling/go/solver"
)

type app struct {
	factory solver.Factory
	cfgPath string
	cfg     *config.Config

	registry *prometheus.Registry
	metrics  *metrics.Recorder
}

// NewRootCmd returns the fjsp command solving with sessions created by `factory`.
func NewRootCmd(factory solver.Factory) *cobra.Command {
	a := &app{factory: factory}
	root := &cobra.Command{
		Use:           "fjsp",
		Short:         "Flexible job-shop scheduler",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Flags())
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgPath, "config", "c", "", "configuration file (yaml or json)")
	flags.Bool("verbose", false, "print the solver progress, the schedule and the search statistics")
	flags.String("discover", problem.DiscoverFirstOperation.String(), "machine discovery policy: first-operation or all-operations")
	flags.Duration("time-limit", 0, "solver time limit, 0 for none")
	flags.Int("workers", 0, "number of search workers, 0 for the solver default")
	flags.Int("seed", 0, "solver random seed")
	flags.String("metrics-textfile", "", "write the solve metrics to this node exporter textfile")
	// glog flags.
	flags.AddGoFlagSet(flag.CommandLine)

	root.AddCommand(newSolveCmd(a), newSelfcheckCmd(a))
	return root
}

func (a *app) setup(flags *pflag.FlagSet) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyFlags(cfg, flags); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.registry = prometheus.NewRegistry()
	a.metrics, err = metrics.NewRecorder(a.registry)
	return err
}

// applyFlags overrides the configuration with the flags set on the command line.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "verbose":
			cfg.Verbose, err = flags.GetBool(f.Name)
		case "discover":
			cfg.Discovery = f.Value.String()
		case "time-limit":
			cfg.Solver.TimeLimit, err = flags.GetDuration(f.Name)
		case "workers":
			cfg.Solver.Workers, err = flags.GetInt(f.Name)
		case "seed":
			cfg.Solver.RandomSeed, err = flags.GetInt(f.Name)
		case "metrics-textfile":
			cfg.Metrics.Textfile = f.Value.String()
		case "objective":
			cfg.Objective = f.Value.String()
		case "input":
			cfg.Input.Path = f.Value.String()
		case "mix-machines":
			cfg.MixMachines, err = flags.GetBool(f.Name)
		case "stop-on-failure":
			cfg.Selfcheck.StopOnFailure, err = flags.GetBool(f.Name)
		}
	})
	return err
}

// scheduler returns a scheduler writing its verbose reports to `out`.
func (a *app) scheduler(policy problem.DiscoveryPolicy, verbose bool, out io.Writer) *fjsp.Scheduler {
	return fjsp.NewScheduler(a.factory,
		fjsp.WithDiscovery(policy),
		fjsp.WithParameters(a.cfg.Parameters()),
		fjsp.WithVerbose(verbose),
		fjsp.WithOutput(out),
		fjsp.WithMetrics(a.metrics),
	)
}

func (a *app) writeMetrics() {
	if a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(a.registry, a.cfg.Metrics.Textfile); err != nil {
		log.Errorf("Writing metrics to %s: %v", a.cfg.Metrics.Textfile, err)
	}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
