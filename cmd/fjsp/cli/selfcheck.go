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

	"github.com/fjsp-sat/fjsp/scheduling/go/selfcheck"
)

// ErrSelfcheckFailed is returned when a reference scenario fails.
var ErrSelfcheckFailed = errors.New("self-check failed")

func newSelfcheckCmd(a *app) *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "selfcheck",
		Short: "Solve the reference scenarios and compare with their known optimum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.selfcheck(cmd, index)
		},
	}
	cmd.Flags().IntVar(&index, "index", -1, "only run this scenario")
	cmd.Flags().Bool("stop-on-failure", false, "stop at the first failing scenario")
	return cmd
}

func (a *app) selfcheck(cmd *cobra.Command, index int) error {
	policy, err := a.cfg.DiscoveryPolicy()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	r := &selfcheck.Runner{
		Solve:         a.scheduler(policy, a.cfg.Verbose, out).Solve,
		VerboseSolve:  a.scheduler(policy, true, out).Solve,
		StopOnFailure: a.cfg.Selfcheck.StopOnFailure,
		Verbose:       a.cfg.Verbose,
		Discovery:     policy,
	}

	ctx, stop := signalContext(cmd)
	defer stop()
	scenarios := selfcheck.Scenarios()
	report := &selfcheck.Report{}
	if index >= 0 {
		o, err := r.RunOne(ctx, scenarios, index)
		if err != nil {
			return err
		}
		report.Outcomes = []selfcheck.Outcome{o}
		if o.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
	} else {
		report = r.Run(ctx, scenarios)
	}
	a.writeMetrics()

	if err := printReport(out, report); err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("%w: %d of %d scenarios", ErrSelfcheckFailed, report.Failed, len(report.Outcomes))
	}
	return nil
}

func printReport(w io.Writer, report *selfcheck.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCENARIO\tEXPECTED\tGOT\tSTATUS\tWALL TIME\tRESULT")
	for _, o := range report.Outcomes {
		result := "PASS"
		if !o.Passed {
			result = "FAIL"
		}
		got := "-"
		if o.Err == nil || o.Status.HasSolution() {
			got = fmt.Sprint(o.Got)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%v\t%.3f s\t%s\n", o.Index, o.Name, o.Expected, got, o.Status, o.WallTime.Seconds(), result)
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "%d passed, %d failed, wall time %v ± %v\n", report.Passed, report.Failed, report.MeanWallTime, report.StdDevWallTime)
	return tw.Flush()
}
