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
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/fjsp-sat/fjsp/scheduling/go/metrics"
	"github.com/fjsp-sat/fjsp/scheduling/go/problem"
	"github.com/fjsp-sat/fjsp/scheduling/go/solver"
)

// ErrModelInvalid is returned when the engine rejects the model.
var ErrModelInvalid = errors.New("model rejected by the solver")

// Result is the outcome of Scheduler.Solve.
type Result struct {
	// RunID identifies the solve in logs.
	RunID  string
	Status solver.Status
	// ObjectiveValue and BestBound are only meaningful when Schedule is set.
	ObjectiveValue int64
	BestBound      float64
	// Schedule is nil when no solution was found.
	Schedule *Schedule
	Stats    solver.Stats
	// Machines is the machine alphabet; Schedule assignments index it.
	Machines []string
}

// Scheduler solves problems with a fresh session per call. It is safe for concurrent use.
type Scheduler struct {
	factory solver.Factory
	policy  problem.DiscoveryPolicy
	params  solver.Parameters
	verbose bool
	out     io.Writer
	metrics *metrics.Recorder
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDiscovery sets the machine discovery policy. The default is
// problem.DiscoverFirstOperation.
func WithDiscovery(policy problem.DiscoveryPolicy) Option {
	return func(s *Scheduler) {
		s.policy = policy
	}
}

// WithParameters sets the engine parameters.
func WithParameters(params solver.Parameters) Option {
	return func(s *Scheduler) {
		s.params = params
	}
}

// WithVerbose prints improving solutions, the schedule and the search statistics to the
// output set by WithOutput.
func WithVerbose(verbose bool) Option {
	return func(s *Scheduler) {
		s.verbose = verbose
	}
}

// WithOutput sets where verbose reports are written. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Scheduler) {
		s.out = w
	}
}

// WithMetrics records every solve in `r`.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *Scheduler) {
		s.metrics = r
	}
}

// NewScheduler returns a scheduler creating its sessions with `factory`.
func NewScheduler(factory solver.Factory, opts ...Option) *Scheduler {
	s := &Scheduler{factory: factory, out: os.Stdout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve builds the model of `p` minimizing `objective`, solves it once and extracts the
// schedule. An infeasible model or a search stopped without a solution yields a Result
// without Schedule and no error.
func (s *Scheduler) Solve(ctx context.Context, p *problem.Problem, objective Objective) (*Result, error) {
	runID := uuid.NewString()
	flat, err := p.Flatten(s.policy)
	if err != nil {
		return nil, err
	}

	session := s.factory()
	m, err := Build(session, flat, objective)
	if err != nil {
		return nil, err
	}
	log.V(1).Infof("[%s] model: %d jobs, %d operations, %d machines, %d intervals, horizon %d", runID, len(flat.Jobs), p.NumOperations(), flat.NumMachines(), m.NumIntervals(), m.Horizon)

	params := s.params
	if s.verbose {
		params.LogSearchProgress = true
		if params.Observer == nil {
			params.Observer = func(inc solver.Incumbent) {
				fmt.Fprintf(s.out, "Solution %d, time = %.2f s, objective = %v\n", inc.Number, inc.WallTime.Seconds(), inc.ObjectiveValue)
			}
		}
	}

	resp, err := session.Solve(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	s.metrics.ObserveSolve(metrics.Solve{
		Objective: objective.String(),
		Status:    resp.Status.String(),
		WallTime:  resp.Stats.WallTime,
		Conflicts: resp.Stats.Conflicts,
		Branches:  resp.Stats.Branches,
		Intervals: m.NumIntervals(),
	})

	res := &Result{
		RunID:     runID,
		Status:    resp.Status,
		BestBound: resp.BestObjectiveBound,
		Stats:     resp.Stats,
		Machines:  flat.Machines,
	}
	if resp.Status == solver.ModelInvalid {
		return nil, fmt.Errorf("run %s: %w: %s", runID, ErrModelInvalid, resp.SolutionInfo)
	}
	if !resp.Status.HasSolution() {
		if s.verbose {
			s.printStats(runID, resp.Status, resp.Stats)
		}
		return res, nil
	}

	sched, err := Extract(m, resp)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	res.Schedule = sched
	res.ObjectiveValue = resp.Value(m.ObjectiveVar)

	if s.verbose {
		s.printSchedule(sched, flat)
		fmt.Fprintf(s.out, "Objective value: %d\n", res.ObjectiveValue)
		s.printStats(runID, resp.Status, resp.Stats)
	}
	return res, nil
}

func (s *Scheduler) printSchedule(sched *Schedule, flat *problem.Flat) {
	for j, ops := range sched.Operations {
		fmt.Fprintf(s.out, "Job %d (%s):\n", j, flat.Jobs[j].Name)
		for _, a := range ops {
			fmt.Fprintf(s.out, "  task_%d_%d starts at %d (alt %d, machine %s, duration %d)\n", a.Job, a.Operation, a.Start, a.Alternative, a.MachineName, a.Duration)
		}
		fmt.Fprintf(s.out, "  overdue %d\n", sched.Jobs[j].Lateness)
	}
}

func (s *Scheduler) printStats(runID string, status solver.Status, st solver.Stats) {
	fmt.Fprintf(s.out, "Run %s: solve status %v\n", runID, status)
	fmt.Fprintln(s.out, "Statistics")
	fmt.Fprintf(s.out, "  - conflicts : %d\n", st.Conflicts)
	fmt.Fprintf(s.out, "  - branches  : %d\n", st.Branches)
	fmt.Fprintf(s.out, "  - wall time : %f s\n", st.WallTime.Seconds())
}
