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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjsp-sat/fjsp/scheduling/go/config"
	"github.com/fjsp-sat/fjsp/scheduling/go/solver"
	"github.com/fjsp-sat/fjsp/scheduling/go/solver/solvertest"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// oneHourRecorder answers with the single operation of a one hour job started at 0.
func oneHourRecorder(t *testing.T, byName map[string]int64) *solvertest.Recorder {
	t.Helper()
	rec := solvertest.New()
	rec.Respond = func(ctx context.Context, params solver.Parameters) (*solver.Response, error) {
		values, err := rec.Assignment(byName)
		if err != nil {
			return nil, err
		}
		if err := rec.Check(values); err != nil {
			return nil, err
		}
		return rec.RespondWith(solver.Optimal, values)(ctx, params)
	}
	return rec
}

func execute(t *testing.T, factory solver.Factory, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(factory)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSolve_Makespan(t *testing.T) {
	input := writeCSV(t, "name,machine,duration\nJ1,M1,1h\n")
	rec := oneHourRecorder(t, map[string]int64{"start_j0_t0": 0, "end_j0_t0": 3600, "overdue_0": 3600, "makespan": 3600})
	textfile := filepath.Join(t.TempDir(), "fjsp.prom")

	out, err := execute(t, solvertest.Factory(rec), "solve", "--input", input, "--time-limit", "5s", "--workers", "2", "--metrics-textfile", textfile)
	require.NoError(t, err)

	assert.Contains(t, out, "OPTIMAL")
	assert.Contains(t, out, "Objective makespan: 3600 (1h)")
	assert.Regexp(t, `J1\s+0\s+M1\s+0s\s+1h\s+1h`, out)
	assert.Equal(t, 1, rec.SolveCalls)
	assert.Equal(t, 5*time.Second, rec.Params.TimeLimit)
	assert.Equal(t, 2, rec.Params.NumWorkers)

	metrics, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `fjsp_solves_total{objective="makespan",status="OPTIMAL"} 1`)
}

func TestSolve_LmaxWithDueDateColumn(t *testing.T) {
	t.Setenv("FJSP_INPUT__COLUMNS__DUEDATE", "3")
	input := writeCSV(t, "name,machine,duration,due\nJ1,M1,1h,30m\n")
	rec := oneHourRecorder(t, map[string]int64{"start_j0_t0": 0, "end_j0_t0": 3600, "overdue_0": 1800, "lmax": 1800})

	out, err := execute(t, solvertest.Factory(rec), "solve", "--input", input, "--objective", "LMAX")
	require.NoError(t, err)

	assert.Contains(t, out, "Objective lmax: 1800 (30m)")
	assert.Regexp(t, `J1\s+1h\s+30m\s+30m`, out)
}

func TestSolve_Verbose(t *testing.T) {
	input := writeCSV(t, "name,machine,duration\nJ1,M1,1h\n")
	rec := oneHourRecorder(t, map[string]int64{"start_j0_t0": 0, "end_j0_t0": 3600, "overdue_0": 3600, "makespan": 3600})

	out, err := execute(t, solvertest.Factory(rec), "solve", "--input", input, "--verbose")
	require.NoError(t, err)

	assert.Contains(t, out, "task_0_0 starts at 0 (alt 0, machine M1, duration 3600)")
	assert.Contains(t, out, "overdue 3600")
	assert.Contains(t, out, "- conflicts : 0")
	assert.Contains(t, out, "- wall time :")
	assert.True(t, rec.Params.LogSearchProgress)

	rec = oneHourRecorder(t, map[string]int64{"start_j0_t0": 0, "end_j0_t0": 3600, "overdue_0": 3600, "makespan": 3600})
	out, err = execute(t, solvertest.Factory(rec), "solve", "--input", input)
	require.NoError(t, err)
	assert.NotContains(t, out, "starts at")
	assert.NotContains(t, out, "- conflicts")
}

func TestSolve_Errors(t *testing.T) {
	input := writeCSV(t, "name,machine,duration\nJ1,M1,1h\n")
	testCases := []struct {
		name string
		args []string
	}{
		{name: "NoInput", args: []string{"solve"}},
		{name: "MissingFile", args: []string{"solve", "--input", filepath.Join(t.TempDir(), "missing.csv")}},
		{name: "UnknownObjective", args: []string{"solve", "--input", input, "--objective", "tardiness"}},
		{name: "UnknownDiscovery", args: []string{"solve", "--input", input, "--discover", "never"}},
		{name: "NegativeWorkers", args: []string{"solve", "--input", input, "--workers", "-1"}},
		{name: "DumpUnsupported", args: []string{"solve", "--input", input, "--dump-model"}},
		{name: "UnexpectedArgument", args: []string{"solve", "extra"}},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			rec := solvertest.New()
			_, err := execute(t, solvertest.Factory(rec), test.args...)
			assert.Error(t, err)
			assert.Zero(t, rec.SolveCalls)
		})
	}
}

func TestSolve_NoSolution(t *testing.T) {
	input := writeCSV(t, "name,machine,duration\nJ1,M1,1h\n")
	rec := solvertest.New()
	rec.Respond = func(context.Context, solver.Parameters) (*solver.Response, error) {
		return &solver.Response{Status: solver.Infeasible}, nil
	}

	out, err := execute(t, solvertest.Factory(rec), "solve", "--input", input)
	require.NoError(t, err)
	assert.Contains(t, out, "INFEASIBLE")
	assert.Contains(t, out, "No schedule found.")
}

func TestSelfcheck_Failures(t *testing.T) {
	// Fresh recorders answer UNKNOWN without a solution.
	out, err := execute(t, solvertest.Factory(), "selfcheck")
	assert.ErrorIs(t, err, ErrSelfcheckFailed)
	assert.Contains(t, out, "0 passed, 3 failed")
	assert.Contains(t, out, "fourteen-jobs-on-time")

	out, err = execute(t, solvertest.Factory(), "selfcheck", "--stop-on-failure")
	assert.ErrorIs(t, err, ErrSelfcheckFailed)
	assert.Contains(t, out, "0 passed, 1 failed")

	out, err = execute(t, solvertest.Factory(), "selfcheck", "--index", "1")
	assert.ErrorIs(t, err, ErrSelfcheckFailed)
	assert.Contains(t, out, "three-jobs-early")
	assert.NotContains(t, out, "single-job-three-machines")
	// A single scenario is solved verbosely.
	assert.Contains(t, out, "solve status UNKNOWN")
	assert.Contains(t, out, "- conflicts : 0")

	_, err = execute(t, solvertest.Factory(), "selfcheck", "--index", "7")
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("verbose", false, "")
	flags.Duration("time-limit", 0, "")
	flags.Int("seed", 0, "")
	flags.Bool("mix-machines", false, "")
	flags.String("objective", "makespan", "")
	require.NoError(t, flags.Parse([]string{"--verbose", "--time-limit=2m", "--seed=7", "--mix-machines"}))

	require.NoError(t, applyFlags(&cfg, flags))

	assert.True(t, cfg.Verbose)
	assert.True(t, cfg.MixMachines)
	assert.Equal(t, 2*time.Minute, cfg.Solver.TimeLimit)
	assert.Equal(t, 7, cfg.Solver.RandomSeed)
	// Unset flags keep the configured value.
	assert.Equal(t, "makespan", cfg.Objective)
}
