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

package fjsp

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/fjsp-sat/fjsp/scheduling/go/metrics"
	"github.com/fjsp-sat/fjsp/scheduling/go/problem"
	"github.com/fjsp-sat/fjsp/scheduling/go/solver"
	"github.com/fjsp-sat/fjsp/scheduling/go/solver/solvertest"
)

// solvingRecorder answers Solve with the values of `plan`.
func solvingRecorder(t *testing.T, p *problem.Problem, policy problem.DiscoveryPolicy, objective Objective, plan [][]placement) *solvertest.Recorder {
	t.Helper()
	flat := mustFlatten(t, p, policy)
	rec := solvertest.New()
	rec.Respond = func(ctx context.Context, params solver.Parameters) (*solver.Response, error) {
		values, err := rec.Assignment(planValues(flat, objective, plan))
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

func TestScheduler_Solve(t *testing.T) {
	testCases := []struct {
		name      string
		problem   *problem.Problem
		plan      [][]placement
		want      int64
		wantAlts  []int
		wantMachs []string
	}{
		{
			name:      "OneJobThreeMachines",
			problem:   oneJobThreeMachines(),
			plan:      [][]placement{{{alt: 1, start: 0}}},
			want:      100,
			wantAlts:  []int{1},
			wantMachs: []string{"M1", "M2", "M3"},
		},
		{
			name:      "ThreeJobsTwoMachines",
			problem:   threeJobsTwoMachines(),
			plan:      [][]placement{{{alt: 0, start: 0}}, {{alt: 1, start: 0}}, {{alt: 1, start: 300}}},
			want:      -200,
			wantAlts:  []int{0, 1, 1},
			wantMachs: []string{"M1", "M2"},
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			rec := solvingRecorder(t, test.problem, problem.DiscoverFirstOperation, Lmax, test.plan)
			s := NewScheduler(solvertest.Factory(rec), WithParameters(solver.Parameters{TimeLimit: time.Second, NumWorkers: 8}))

			res, err := s.Solve(context.Background(), test.problem, Lmax)
			if err != nil {
				t.Fatalf("Solve() returned with unexpected error %v", err)
			}
			if res.Status != solver.Optimal || res.Schedule == nil {
				t.Fatalf("Solve() = status %v, schedule %v, want an optimal schedule", res.Status, res.Schedule)
			}
			if res.ObjectiveValue != test.want || res.Schedule.MaxLateness != test.want {
				t.Errorf("Solve() objective = %v, max lateness %v, want %v", res.ObjectiveValue, res.Schedule.MaxLateness, test.want)
			}
			var alts []int
			for _, ops := range res.Schedule.Operations {
				alts = append(alts, ops[0].Alternative)
			}
			if diff := cmp.Diff(test.wantAlts, alts); diff != "" {
				t.Errorf("Solve() selected unexpected alternatives (-want+got): %v", diff)
			}
			if diff := cmp.Diff(test.wantMachs, res.Machines); diff != "" {
				t.Errorf("Solve().Machines returned unexpected diff (-want+got): %v", diff)
			}
			if _, err := uuid.Parse(res.RunID); err != nil {
				t.Errorf("Solve().RunID = %q is not a uuid: %v", res.RunID, err)
			}
			if rec.SolveCalls != 1 || rec.Params.TimeLimit != time.Second || rec.Params.NumWorkers != 8 {
				t.Errorf("session solved %d times with %+v", rec.SolveCalls, rec.Params)
			}
		})
	}
}

func TestScheduler_NoSolution(t *testing.T) {
	for _, status := range []solver.Status{solver.Infeasible, solver.Unknown} {
		t.Run(status.String(), func(t *testing.T) {
			rec := solvertest.New()
			rec.Respond = rec.RespondWith(status, nil)
			res, err := NewScheduler(solvertest.Factory(rec)).Solve(context.Background(), oneJobThreeMachines(), Makespan)
			if err != nil {
				t.Fatalf("Solve() returned with unexpected error %v", err)
			}
			if res.Status != status || res.Schedule != nil {
				t.Errorf("Solve() = status %v, schedule %v, want %v without schedule", res.Status, res.Schedule, status)
			}
		})
	}
}

func TestScheduler_ModelInvalid(t *testing.T) {
	rec := solvertest.New()
	rec.Respond = func(context.Context, solver.Parameters) (*solver.Response, error) {
		return &solver.Response{Status: solver.ModelInvalid, SolutionInfo: "bad bounds"}, nil
	}
	_, err := NewScheduler(solvertest.Factory(rec)).Solve(context.Background(), oneJobThreeMachines(), Makespan)
	if !errors.Is(err, ErrModelInvalid) {
		t.Errorf("Solve() = %v, want %v", err, ErrModelInvalid)
	}
}

func TestScheduler_PropagatesSolverErrors(t *testing.T) {
	errEngine := errors.New("out of memory")
	rec := solvertest.New()
	rec.Respond = func(context.Context, solver.Parameters) (*solver.Response, error) {
		return nil, errEngine
	}
	_, err := NewScheduler(solvertest.Factory(rec)).Solve(context.Background(), oneJobThreeMachines(), Makespan)
	if !errors.Is(err, errEngine) {
		t.Errorf("Solve() = %v, want %v", err, errEngine)
	}
}

func TestScheduler_RejectsInvalidProblems(t *testing.T) {
	testCases := []struct {
		name    string
		problem *problem.Problem
		policy  problem.DiscoveryPolicy
		want    error
	}{
		{"EmptyOperation", problem.New(problem.NewJob("J", 0, problem.NewOperation())), problem.DiscoverAllOperations, problem.ErrInvalidOperation},
		{"UndiscoveredMachine", twoStages(), problem.DiscoverFirstOperation, problem.ErrUndiscoveredMachine},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			rec := solvertest.New()
			_, err := NewScheduler(solvertest.Factory(rec), WithDiscovery(test.policy)).Solve(context.Background(), test.problem, Makespan)
			if !errors.Is(err, test.want) {
				t.Errorf("Solve() = %v, want %v", err, test.want)
			}
			if len(rec.Vars) != 0 || rec.SolveCalls != 0 {
				t.Errorf("invalid problem reached the session")
			}
		})
	}
}

func TestScheduler_AllOperationsDiscovery(t *testing.T) {
	p := twoStages()
	flat := mustFlatten(t, p, problem.DiscoverAllOperations)
	rec := solvingRecorder(t, p, problem.DiscoverAllOperations, Makespan, serialPlan(flat))
	res, err := NewScheduler(solvertest.Factory(rec), WithDiscovery(problem.DiscoverAllOperations)).Solve(context.Background(), p, Makespan)
	if err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	if res.ObjectiveValue != 20 {
		t.Errorf("Solve().ObjectiveValue = %v, want 20", res.ObjectiveValue)
	}
	if err := Verify(flat, res.Schedule); err != nil {
		t.Errorf("Verify() = %v, want nil", err)
	}
}

func TestScheduler_Verbose(t *testing.T) {
	var out bytes.Buffer
	rec := solvingRecorder(t, oneJobThreeMachines(), problem.DiscoverFirstOperation, Lmax, [][]placement{{{alt: 1, start: 0}}})
	if _, err := NewScheduler(solvertest.Factory(rec), WithVerbose(true), WithOutput(&out)).Solve(context.Background(), oneJobThreeMachines(), Lmax); err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	if !rec.Params.LogSearchProgress || rec.Params.Observer == nil {
		t.Errorf("verbose solve used parameters %+v, want search logging and an observer", rec.Params)
	}
	rec.Params.Observer(solver.Incumbent{Number: 1, ObjectiveValue: 100})

	for _, want := range []string{
		"task_0_0 starts at 0 (alt 1, machine M2, duration 300)",
		"overdue 100",
		"Objective value: 100",
		"solve status OPTIMAL",
		"- conflicts : 0",
		"- branches  : 0",
		"Solution 1, time = 0.00 s, objective = 100",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("verbose output does not contain %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	rec = solvingRecorder(t, oneJobThreeMachines(), problem.DiscoverFirstOperation, Lmax, [][]placement{{{alt: 1, start: 0}}})
	if _, err := NewScheduler(solvertest.Factory(rec), WithOutput(&out)).Solve(context.Background(), oneJobThreeMachines(), Lmax); err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("quiet solve wrote %q, want nothing", out.String())
	}
}

func TestScheduler_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := metrics.NewRecorder(reg)
	if err != nil {
		t.Fatalf("NewRecorder() returned with unexpected error %v", err)
	}
	rec := solvingRecorder(t, oneJobThreeMachines(), problem.DiscoverFirstOperation, Lmax, [][]placement{{{alt: 1, start: 0}}})
	if _, err := NewScheduler(solvertest.Factory(rec), WithMetrics(r)).Solve(context.Background(), oneJobThreeMachines(), Lmax); err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	if got, err := testutil.GatherAndCount(reg, "fjsp_solves_total"); err != nil || got != 1 {
		t.Errorf("GatherAndCount(fjsp_solves_total) = %v, %v, want 1", got, err)
	}
}
