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

package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fjsp-sat/fjsp/scheduling/go/fjsp"
	"github.com/fjsp-sat/fjsp/scheduling/go/problem"
	"github.com/fjsp-sat/fjsp/scheduling/go/tabular"
)

// ErrNoInput is returned by solve when neither --input nor input.path is set.
var ErrNoInput = errors.New("no input file: set --input or input.path")

// textDumper is implemented by backends able to print their model.
type textDumper interface {
	DumpText() (string, error)
}

func newSolveCmd(a *app) *cobra.Command {
	var dumpModel bool
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve the production schedule read from a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.solve(cmd, dumpModel)
		},
	}
	cmd.Flags().String("input", "", "CSV production schedule")
	cmd.Flags().String("objective", fjsp.Makespan.String(), "objective: makespan or lmax")
	cmd.Flags().Bool("mix-machines", false, "allow every operation on every machine")
	cmd.Flags().BoolVar(&dumpModel, "dump-model", false, "print the model instead of solving it")
	return cmd
}

func (a *app) solve(cmd *cobra.Command, dumpModel bool) error {
	if a.cfg.Input.Path == "" {
		return ErrNoInput
	}
	objective, err := a.cfg.ObjectiveValue()
	if err != nil {
		return err
	}
	policy, err := a.cfg.DiscoveryPolicy()
	if err != nil {
		return err
	}
	p, err := tabular.LoadFile(a.cfg.Input.Path, a.cfg.Input.Columns)
	if err != nil {
		return err
	}
	if a.cfg.MixMachines {
		p = p.MixMachines(policy)
	}

	out := cmd.OutOrStdout()
	if dumpModel {
		text, err := a.dumpModel(p, policy, objective)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, text)
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()
	res, err := a.scheduler(policy, a.cfg.Verbose, out).Solve(ctx, p, objective)
	a.writeMetrics()
	if err != nil {
		return err
	}
	return printResult(out, res, objective)
}

func (a *app) dumpModel(p *problem.Problem, policy problem.DiscoveryPolicy, objective fjsp.Objective) (string, error) {
	flat, err := p.Flatten(policy)
	if err != nil {
		return "", err
	}
	s := a.factory()
	d, ok := s.(textDumper)
	if !ok {
		return "", fmt.Errorf("solver backend %T cannot print models", s)
	}
	if _, err := fjsp.Build(s, flat, objective); err != nil {
		return "", err
	}
	return d.DumpText()
}

func printResult(w io.Writer, res *fjsp.Result, objective fjsp.Objective) error {
	fmt.Fprintf(w, "Run %s: %v\n", res.RunID, res.Status)
	if res.Schedule == nil {
		fmt.Fprintln(w, "No schedule found.")
		return nil
	}
	fmt.Fprintf(w, "Objective %v: %d (%s)\n\n", objective, res.ObjectiveValue, tabular.FormatDuration(res.ObjectiveValue))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tOP\tMACHINE\tSTART\tDURATION\tEND")
	for _, ops := range res.Schedule.Operations {
		for _, op := range ops {
			job := res.Schedule.Jobs[op.Job]
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", job.Name, op.Operation, op.MachineName,
				tabular.FormatDuration(op.Start), tabular.FormatDuration(op.Duration), tabular.FormatDuration(op.End))
		}
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "JOB\tCOMPLETION\tDUE\tLATENESS")
	for _, job := range res.Schedule.Jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", job.Name,
			tabular.FormatDuration(job.Completion), tabular.FormatDuration(job.DueDate), tabular.FormatDuration(job.Lateness))
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Conflicts: %d\tBranches: %d\tWall time: %.3f s\n", res.Stats.Conflicts, res.Stats.Branches, res.Stats.WallTime.Seconds())
	return tw.Flush()
}
