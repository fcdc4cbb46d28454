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

package solvertest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fjsp-sat/fjsp/scheduling/go/solver"
)

// twoTasks records two tasks of size 3 and 2 on one machine, the second being optional.
func twoTasks() *Recorder {
	r := New()
	s1 := r.NewIntVar(0, 10, "s1")
	e1 := r.NewIntVar(0, 10, "e1")
	s2 := r.NewIntVar(0, 10, "s2")
	e2 := r.NewIntVar(0, 10, "e2")
	p2 := r.NewBoolVar("p2")
	mk := r.NewIntVar(0, 10, "makespan")
	i1 := r.NewIntervalVar(s1, solver.Constant(3), e1, "i1")
	i2 := r.NewOptionalIntervalVar(s2, solver.Constant(2), e2, p2, "i2")
	r.AddNoOverlap(i1, i2)
	solver.AddGreaterOrEqual(r, s2, e1).OnlyEnforceIf(p2)
	r.AddMaxEquality(mk, e1, e2)
	r.Minimize(mk)
	return r
}

func TestRecorder_Records(t *testing.T) {
	r := twoTasks()
	if len(r.Vars) != 6 || len(r.Intervals) != 2 || len(r.Constraints) != 3 {
		t.Fatalf("recorded %d vars, %d intervals, %d constraints, want 6, 2, 3", len(r.Vars), len(r.Intervals), len(r.Constraints))
	}
	if got := len(r.ConstraintsOf(Linear)); got != 1 {
		t.Errorf("ConstraintsOf(Linear) returned %d constraints, want 1", got)
	}
	if got := r.ConstraintsOf(Linear)[0].Enforcement; len(got) != 1 || got[0].Index() != 4 {
		t.Errorf("Enforcement = %v, want [p2]", got)
	}
	if !r.Minimized {
		t.Errorf("Minimized = false after Minimize")
	}
	if v, ok := r.VarByName("p2"); !ok || v.Index() != 4 {
		t.Errorf("VarByName(p2) = %v, %v, want index 4", v.Index(), ok)
	}
	if _, ok := r.VarByName("missing"); ok {
		t.Errorf("VarByName(missing) found a variable")
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestRecorder_Check(t *testing.T) {
	testCases := []struct {
		name    string
		values  map[string]int64
		wantErr bool
	}{
		{
			name:   "Sequenced",
			values: map[string]int64{"s1": 0, "e1": 3, "s2": 3, "e2": 5, "p2": 1, "makespan": 5},
		},
		{
			name:   "AbsentOverlapping",
			values: map[string]int64{"s1": 0, "e1": 3, "s2": 0, "e2": 2, "p2": 0, "makespan": 3},
		},
		{
			name:    "PresentOverlapping",
			values:  map[string]int64{"s1": 0, "e1": 3, "s2": 1, "e2": 3, "p2": 1, "makespan": 3},
			wantErr: true,
		},
		{
			name:    "WrongMax",
			values:  map[string]int64{"s1": 0, "e1": 3, "s2": 3, "e2": 5, "p2": 1, "makespan": 4},
			wantErr: true,
		},
		{
			name:    "WrongIntervalSize",
			values:  map[string]int64{"s1": 0, "e1": 4, "s2": 4, "e2": 6, "p2": 1, "makespan": 6},
			wantErr: true,
		},
		{
			name:    "OutOfDomain",
			values:  map[string]int64{"s1": 8, "e1": 11, "s2": 0, "e2": 2, "p2": 0, "makespan": 11},
			wantErr: true,
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			r := twoTasks()
			values, err := r.Assignment(test.values)
			if err != nil {
				t.Fatalf("Assignment() returned with unexpected error %v", err)
			}
			err = r.Check(values)
			if (err != nil) != test.wantErr {
				t.Errorf("Check() = %v, want error %v", err, test.wantErr)
			}
			if err != nil && !errors.Is(err, ErrViolation) {
				t.Errorf("Check() = %v, want %v", err, ErrViolation)
			}
		})
	}
}

func TestRecorder_CheckExactlyOne(t *testing.T) {
	r := New()
	a, b := r.NewBoolVar("a"), r.NewBoolVar("b")
	r.AddExactlyOne(a, b)
	for _, test := range []struct {
		values  []int64
		wantErr bool
	}{
		{[]int64{1, 0}, false},
		{[]int64{0, 1}, false},
		{[]int64{0, 0}, true},
		{[]int64{1, 1}, true},
	} {
		if err := r.Check(test.values); (err != nil) != test.wantErr {
			t.Errorf("Check(%v) = %v, want error %v", test.values, err, test.wantErr)
		}
	}
	if err := r.Check([]int64{1}); err == nil {
		t.Errorf("Check() of a short assignment returned no error")
	}
}

func TestRecorder_Assignment(t *testing.T) {
	r := twoTasks()
	if _, err := r.Assignment(map[string]int64{"s1": 0}); err == nil {
		t.Errorf("Assignment() of a partial map returned no error")
	}
	values := map[string]int64{"s1": 0, "e1": 3, "s2": 3, "e2": 5, "p2": 1, "makespan": 5, "typo": 1}
	if _, err := r.Assignment(values); !errors.Is(err, ErrUnknownName) {
		t.Errorf("Assignment() = %v, want %v", err, ErrUnknownName)
	}
}

func TestRecorder_MixedSessions(t *testing.T) {
	r := New()
	other := New()
	x := other.NewIntVar(0, 5, "x")
	r.NewIntVar(0, 5, "y")
	r.AddLinear(x, 0, 1)
	if !errors.Is(r.Err(), solver.ErrMixedSessions) {
		t.Errorf("Err() = %v, want %v", r.Err(), solver.ErrMixedSessions)
	}
	if _, err := r.Solve(context.Background(), solver.Parameters{}); !errors.Is(err, solver.ErrMixedSessions) {
		t.Errorf("Solve() = %v, want %v", err, solver.ErrMixedSessions)
	}
}

func TestRecorder_Solve(t *testing.T) {
	r := twoTasks()
	resp, err := r.Solve(context.Background(), solver.Parameters{NumWorkers: 2})
	if err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	if resp.Status != solver.Unknown {
		t.Errorf("Solve().Status = %v, want %v", resp.Status, solver.Unknown)
	}

	values, err := r.Assignment(map[string]int64{"s1": 0, "e1": 3, "s2": 3, "e2": 5, "p2": 1, "makespan": 5})
	if err != nil {
		t.Fatalf("Assignment() returned with unexpected error %v", err)
	}
	r.Respond = r.RespondWith(solver.Optimal, values)
	resp, err = r.Solve(context.Background(), solver.Parameters{NumWorkers: 4})
	if err != nil {
		t.Fatalf("Solve() returned with unexpected error %v", err)
	}
	want := &solver.Response{Status: solver.Optimal, ObjectiveValue: 5, BestObjectiveBound: 5, Solution: values}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("Solve() returned unexpected diff (-want+got): %v", diff)
	}
	if r.SolveCalls != 2 || r.Params.NumWorkers != 4 {
		t.Errorf("SolveCalls, Params.NumWorkers = %v, %v, want 2, 4", r.SolveCalls, r.Params.NumWorkers)
	}
}

func TestFactory(t *testing.T) {
	first := New()
	f := Factory(first)
	if got := f(); got != first {
		t.Errorf("Factory()() = %p, want %p", got, first)
	}
	if got := f(); got == nil || got == first {
		t.Errorf("Factory()() after exhaustion = %p, want a fresh recorder", got)
	}
}
