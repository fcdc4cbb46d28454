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
	"errors"
	"fmt"
	"sort"

	"github.com/fjsp-sat/fjsp/scheduling/go/problem"
	"github.com/fjsp-sat/fjsp/scheduling/go/solver"
)

var (
	// ErrSelection is returned when a solution does not select exactly one alternative of
	// an operation.
	ErrSelection = errors.New("operation does not select exactly one alternative")
	// ErrInvalidSchedule wraps every violation found by Verify.
	ErrInvalidSchedule = errors.New("invalid schedule")
)

// Assignment is the placement of one operation.
type Assignment struct {
	Job       int
	Operation int
	// Alternative is the index of the selected alternative in the operation.
	Alternative int
	Machine     int
	MachineName string
	Start       int64
	Duration    int64
	End         int64
}

// JobOutcome is the completion of one job.
type JobOutcome struct {
	Name       string
	Completion int64
	DueDate    int64
	// Lateness is Completion - DueDate. It is negative for early jobs.
	Lateness int64
}

// Schedule is a decoded solution.
type Schedule struct {
	// Operations[j][t] is the assignment of operation t of job j.
	Operations  [][]Assignment
	Jobs        []JobOutcome
	Makespan    int64
	MaxLateness int64
}

// Extract reads the schedule of `m` from the solved values `values`.
//
// The end of every operation is its start plus the duration of the selected
// alternative. Lateness is read from the model rather than recomputed.
func Extract(m *Model, values solver.Values) (*Schedule, error) {
	sched := &Schedule{
		Operations: make([][]Assignment, len(m.flat.Jobs)),
		Jobs:       make([]JobOutcome, len(m.flat.Jobs)),
	}
	for j, job := range m.flat.Jobs {
		sched.Operations[j] = make([]Assignment, len(job.Operations))
		for t, alts := range job.Operations {
			ov := m.ops[j][t]
			selected := 0
			if ov.presences != nil {
				selected = -1
				for a, presence := range ov.presences {
					if !values.BoolValue(presence) {
						continue
					}
					if selected >= 0 {
						return nil, fmt.Errorf("job %d operation %d: alternatives %d and %d both selected: %w", j, t, selected, a, ErrSelection)
					}
					selected = a
				}
				if selected < 0 {
					return nil, fmt.Errorf("job %d operation %d: no alternative selected: %w", j, t, ErrSelection)
				}
			}
			alt := alts[selected]
			start := values.Value(ov.start)
			sched.Operations[j][t] = Assignment{
				Job:         j,
				Operation:   t,
				Alternative: selected,
				Machine:     alt.Machine,
				MachineName: m.flat.Machines[alt.Machine],
				Start:       start,
				Duration:    alt.Duration,
				End:         start + alt.Duration,
			}
		}

		last := sched.Operations[j][len(job.Operations)-1]
		sched.Jobs[j] = JobOutcome{
			Name:       job.Name,
			Completion: last.End,
			DueDate:    job.DueDate,
			Lateness:   values.Value(m.overdues[j]),
		}
	}
	sched.Makespan, sched.MaxLateness = sched.summary()
	return sched, nil
}

func (s *Schedule) summary() (makespan, maxLateness int64) {
	for i, job := range s.Jobs {
		if i == 0 {
			makespan, maxLateness = job.Completion, job.Lateness
			continue
		}
		makespan = max(makespan, job.Completion)
		maxLateness = max(maxLateness, job.Lateness)
	}
	return makespan, maxLateness
}

// ObjectiveValue returns the value of `objective` for the schedule.
func (s *Schedule) ObjectiveValue(objective Objective) int64 {
	if objective == Lmax {
		return s.MaxLateness
	}
	return s.Makespan
}

// MachineSequences returns, for every machine, its assignments in start order.
func (s *Schedule) MachineSequences(numMachines int) [][]Assignment {
	seqs := make([][]Assignment, numMachines)
	for _, ops := range s.Operations {
		for _, a := range ops {
			if a.Machine >= 0 && a.Machine < numMachines {
				seqs[a.Machine] = append(seqs[a.Machine], a)
			}
		}
	}
	for _, seq := range seqs {
		sort.SliceStable(seq, func(i, k int) bool { return seq[i].Start < seq[k].Start })
	}
	return seqs
}

// Verify checks `s` is a valid schedule of `flat`: every operation runs one of its
// alternatives for that alternative's duration, operations of a job run in routing
// order, no machine runs two operations at once and the job outcomes match the
// placements. All violations are reported, each wrapping ErrInvalidSchedule.
func Verify(flat *problem.Flat, s *Schedule) error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidSchedule, fmt.Sprintf(format, args...)))
	}

	if len(s.Operations) != len(flat.Jobs) || len(s.Jobs) != len(flat.Jobs) {
		fail("schedule has %d jobs and %d outcomes, want %d", len(s.Operations), len(s.Jobs), len(flat.Jobs))
		return errors.Join(errs...)
	}

	for j, job := range flat.Jobs {
		ops := s.Operations[j]
		if len(ops) != len(job.Operations) {
			fail("job %d has %d operations, want %d", j, len(ops), len(job.Operations))
			continue
		}
		for t, a := range ops {
			alts := job.Operations[t]
			if a.Alternative < 0 || a.Alternative >= len(alts) {
				fail("job %d operation %d selects alternative %d of %d", j, t, a.Alternative, len(alts))
				continue
			}
			alt := alts[a.Alternative]
			if a.Machine != alt.Machine || a.Duration != alt.Duration {
				fail("job %d operation %d runs on machine %d for %d, alternative %d is machine %d for %d", j, t, a.Machine, a.Duration, a.Alternative, alt.Machine, alt.Duration)
			}
			if a.Start < 0 || a.End != a.Start+a.Duration {
				fail("job %d operation %d spans [%d, %d) with duration %d", j, t, a.Start, a.End, a.Duration)
			}
			if t > 0 && a.Start < ops[t-1].End {
				fail("job %d operation %d starts at %d before operation %d ends at %d", j, t, a.Start, t-1, ops[t-1].End)
			}
		}

		outcome := s.Jobs[j]
		completion := ops[len(ops)-1].End
		if outcome.Completion != completion || outcome.Lateness != completion-job.DueDate {
			fail("job %d reports completion %d and lateness %d, want %d and %d", j, outcome.Completion, outcome.Lateness, completion, completion-job.DueDate)
		}
	}

	for m, seq := range s.MachineSequences(flat.NumMachines()) {
		for i := 1; i < len(seq); i++ {
			prev, cur := seq[i-1], seq[i]
			if cur.Start < prev.End {
				fail("machine %d runs job %d operation %d [%d, %d) and job %d operation %d [%d, %d) at once", m, prev.Job, prev.Operation, prev.Start, prev.End, cur.Job, cur.Operation, cur.Start, cur.End)
			}
		}
	}

	if len(errs) == 0 {
		makespan, maxLateness := s.summary()
		if s.Makespan != makespan || s.MaxLateness != maxLateness {
			fail("schedule reports makespan %d and max lateness %d, want %d and %d", s.Makespan, s.MaxLateness, makespan, maxLateness)
		}
	}
	return errors.Join(errs...)
}
