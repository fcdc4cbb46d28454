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

// Package fjsp formulates the flexible job-shop scheduling problem as a constraint
// model and reads solved models back into schedules.
//
// `Build` writes the model of a flattened problem into a `solver.Session`: one master
// interval per operation, one optional interval per alternative machine, routing
// precedences, one no-overlap constraint per machine and a makespan or maximum lateness
// objective. `Extract` turns the solved values into a `Schedule` and `Verify` checks a
// schedule against the problem. `Scheduler` chains these steps for one solve request.
package fjsp

import (
	"fmt"
	"strings"

	"github.com/fjsp-sat/fjsp/scheduling/go/problem"
	"github.com/fjsp-sat/fjsp/scheduling/go/solver"
)

// Objective selects the quantity minimized by the model.
type Objective int

const (
	// Makespan minimizes the completion time of the last job.
	Makespan Objective = iota
	// Lmax minimizes the maximum lateness over all jobs. The optimum is negative when
	// every job can end before its due date.
	Lmax
)

func (o Objective) String() string {
	switch o {
	case Makespan:
		return "makespan"
	case Lmax:
		return "lmax"
	}
	return fmt.Sprintf("Objective(%d)", int(o))
}

// ParseObjective parses "makespan" or "lmax", ignoring case.
func ParseObjective(s string) (Objective, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "makespan":
		return Makespan, nil
	case "lmax":
		return Lmax, nil
	}
	return 0, fmt.Errorf("unknown objective %q (want makespan or lmax)", s)
}

// opVars are the variables of one operation.
type opVars struct {
	start    solver.Var
	duration solver.Var
	end      solver.Var
	interval solver.Interval
	// presences[a] is true iff alternative a is selected. It is nil for operations with a
	// single alternative, which is always selected.
	presences []solver.Var
}

// Model holds the variables created by Build for one session.
type Model struct {
	// Horizon bounds every start and end.
	Horizon int64
	// LatenessBound bounds the magnitude of every lateness.
	LatenessBound int64
	Objective     Objective
	// ObjectiveVar is the minimized variable.
	ObjectiveVar solver.Var

	flat     *problem.Flat
	ops      [][]opVars
	ends     []solver.Var
	overdues []solver.Var
	// intervalsPerMachine[m] holds every interval that may run on machine m.
	intervalsPerMachine [][]solver.Interval
}

// Flat returns the problem the model was built from.
func (m *Model) Flat() *problem.Flat {
	return m.flat
}

// NumIntervals returns the number of intervals registered on machines.
func (m *Model) NumIntervals() int {
	n := 0
	for _, ivs := range m.intervalsPerMachine {
		n += len(ivs)
	}
	return n
}

// Horizon returns the sum over all operations of their longest alternative. Any choice
// of alternatives scheduled back to back ends before it.
func Horizon(flat *problem.Flat) int64 {
	var horizon int64
	for _, job := range flat.Jobs {
		for _, alts := range job.Operations {
			var longest int64
			for _, alt := range alts {
				longest = max(longest, alt.Duration)
			}
			horizon += longest
		}
	}
	return horizon
}

// Build writes the model of `flat` minimizing `objective` into `s`.
//
// Variables are created job by job, operation by operation, alternative by
// alternative, so the same input always yields the same model.
func Build(s solver.Session, flat *problem.Flat, objective Objective) (*Model, error) {
	if flat == nil || len(flat.Jobs) == 0 {
		return nil, problem.ErrEmptyProblem
	}
	if objective != Makespan && objective != Lmax {
		return nil, fmt.Errorf("unsupported objective %v", objective)
	}
	if err := checkFlat(flat); err != nil {
		return nil, err
	}

	horizon := Horizon(flat)
	bound := horizon
	for _, job := range flat.Jobs {
		bound = max(bound, job.DueDate)
	}
	m := &Model{
		Horizon:             horizon,
		LatenessBound:       bound,
		Objective:           objective,
		flat:                flat,
		ops:                 make([][]opVars, len(flat.Jobs)),
		intervalsPerMachine: make([][]solver.Interval, flat.NumMachines()),
	}

	for j, job := range flat.Jobs {
		m.ops[j] = make([]opVars, len(job.Operations))
		var previousEnd solver.Var
		for t, alts := range job.Operations {
			ov := m.addOperation(s, j, t, alts)
			// Add precedence with previous operation in the same job.
			if t > 0 {
				solver.AddGreaterOrEqual(s, ov.start, previousEnd)
			}
			previousEnd = ov.end
			m.ops[j][t] = ov
		}
		m.ends = append(m.ends, previousEnd)

		// The lateness of a job is the end of its last operation minus its due date.
		overdue := s.NewIntVar(-bound, bound, fmt.Sprintf("overdue_%d", j))
		solver.AddEquality(s, overdue, previousEnd.AsExpr().AddConstant(-job.DueDate))
		m.overdues = append(m.overdues, overdue)
	}

	for _, intervals := range m.intervalsPerMachine {
		if len(intervals) > 1 {
			s.AddNoOverlap(intervals...)
		}
	}

	switch objective {
	case Makespan:
		m.ObjectiveVar = s.NewIntVar(0, horizon, "makespan")
		s.AddMaxEquality(m.ObjectiveVar, asArguments(m.ends)...)
	case Lmax:
		m.ObjectiveVar = s.NewIntVar(-bound, bound, "lmax")
		s.AddMaxEquality(m.ObjectiveVar, asArguments(m.overdues)...)
	}
	s.Minimize(m.ObjectiveVar)

	return m, nil
}

func (m *Model) addOperation(s solver.Session, j, t int, alts []problem.Alternative) opVars {
	minDuration, maxDuration := alts[0].Duration, alts[0].Duration
	for _, alt := range alts[1:] {
		minDuration = min(minDuration, alt.Duration)
		maxDuration = max(maxDuration, alt.Duration)
	}

	// Create the master interval of the operation.
	suffix := fmt.Sprintf("_j%d_t%d", j, t)
	ov := opVars{
		start:    s.NewIntVar(0, m.Horizon, "start"+suffix),
		duration: s.NewIntVar(minDuration, maxDuration, "duration"+suffix),
		end:      s.NewIntVar(0, m.Horizon, "end"+suffix),
	}
	ov.interval = s.NewIntervalVar(ov.start, ov.duration, ov.end, "interval"+suffix)

	if len(alts) == 1 {
		m.intervalsPerMachine[alts[0].Machine] = append(m.intervalsPerMachine[alts[0].Machine], ov.interval)
		return ov
	}

	// Create one optional interval per alternative.
	ov.presences = make([]solver.Var, len(alts))
	for a, alt := range alts {
		altSuffix := fmt.Sprintf("%s_a%d", suffix, a)
		presence := s.NewBoolVar("presence" + altSuffix)
		start := s.NewIntVar(0, m.Horizon, "start"+altSuffix)
		end := s.NewIntVar(0, m.Horizon, "end"+altSuffix)
		interval := s.NewOptionalIntervalVar(start, solver.Constant(alt.Duration), end, presence, "interval"+altSuffix)

		// The master interval takes the values of the selected alternative.
		solver.AddEquality(s, ov.start, start).OnlyEnforceIf(presence)
		solver.AddEquality(s, ov.duration, solver.Constant(alt.Duration)).OnlyEnforceIf(presence)
		solver.AddEquality(s, ov.end, end).OnlyEnforceIf(presence)

		m.intervalsPerMachine[alt.Machine] = append(m.intervalsPerMachine[alt.Machine], interval)
		ov.presences[a] = presence
	}
	s.AddExactlyOne(ov.presences...)

	return ov
}

func checkFlat(flat *problem.Flat) error {
	for j, job := range flat.Jobs {
		if len(job.Operations) == 0 {
			return fmt.Errorf("job %d (%q): %w", j, job.Name, problem.ErrEmptyJob)
		}
		for t, alts := range job.Operations {
			if len(alts) == 0 {
				return fmt.Errorf("job %d (%q) operation %d: %w", j, job.Name, t, problem.ErrInvalidOperation)
			}
			for a, alt := range alts {
				if alt.Machine < 0 || alt.Machine >= flat.NumMachines() {
					return fmt.Errorf("job %d (%q) operation %d alternative %d: machine index %d out of range [0, %d)", j, job.Name, t, a, alt.Machine, flat.NumMachines())
				}
				if alt.Duration <= 0 {
					return fmt.Errorf("job %d (%q) operation %d alternative %d: %w: duration %d is not positive", j, job.Name, t, a, problem.ErrInvalidTask, alt.Duration)
				}
			}
		}
	}
	return nil
}

func asArguments(vars []solver.Var) []solver.LinearArgument {
	las := make([]solver.LinearArgument, len(vars))
	for i, v := range vars {
		las[i] = v
	}
	return las
}
