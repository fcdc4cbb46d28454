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

package selfcheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/golang/glog"
	"gonum.org/v1/gonum/stat"

	"github.com/fjsp-sat/fjsp/scheduling/go/fjsp"
	"github.com/fjsp-sat/fjsp/scheduling/go/problem"
	"github.com/fjsp-sat/fjsp/scheduling/go/solver"
)

// ErrNoSuchScenario is returned by RunOne for out of range indices.
var ErrNoSuchScenario = errors.New("no such scenario")

// SolveFunc solves one problem, typically (*fjsp.Scheduler).Solve.
type SolveFunc func(ctx context.Context, p *problem.Problem, objective fjsp.Objective) (*fjsp.Result, error)

// Outcome is the result of one scenario.
type Outcome struct {
	Index    int
	Name     string
	Expected int64
	// Got is only meaningful when a schedule was found.
	Got      int64
	Status   solver.Status
	WallTime time.Duration
	Passed   bool
	// Err holds the solve error or the reason the scenario failed.
	Err error
}

// Report summarizes a run.
type Report struct {
	Outcomes []Outcome
	Passed   int
	Failed   int
	// MeanWallTime and StdDevWallTime summarize the wall time of the solves.
	MeanWallTime   time.Duration
	StdDevWallTime time.Duration
}

// OK reports whether every scenario passed.
func (r *Report) OK() bool {
	return r.Failed == 0
}

// Runner solves scenarios with the maximum lateness objective.
type Runner struct {
	Solve SolveFunc
	// VerboseSolve, if set, solves RunOne's scenario and re-runs every failing scenario
	// so its schedule and statistics are reported. It typically wraps a verbose
	// fjsp.Scheduler.
	VerboseSolve SolveFunc
	// StopOnFailure stops the run at the first failing scenario.
	StopOnFailure bool
	// Verbose logs every outcome.
	Verbose bool
	// Discovery must match the policy used by Solve; schedules are verified against the
	// problem flattened with it.
	Discovery problem.DiscoveryPolicy
}

// Run solves every scenario in order.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) *Report {
	report := &Report{}
	var wallTimes []float64
	for i, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			log.Warningf("Self-check interrupted before scenario %d: %v", i, err)
			break
		}
		o := r.run(ctx, r.Solve, i, sc)
		report.Outcomes = append(report.Outcomes, o)
		wallTimes = append(wallTimes, o.WallTime.Seconds())
		if o.Passed {
			report.Passed++
			continue
		}
		report.Failed++
		if r.VerboseSolve != nil {
			log.Infof("Re-running failed scenario %d (%s) verbosely", i, sc.Name)
			if _, err := r.VerboseSolve(ctx, sc.Problem, fjsp.Lmax); err != nil {
				log.Errorf("Scenario %d (%s): verbose re-run: %v", i, sc.Name, err)
			}
		}
		if r.StopOnFailure {
			log.Warningf("Stopping after failed scenario %d (%s)", i, sc.Name)
			break
		}
	}

	if len(wallTimes) > 0 {
		mean, std := stat.MeanStdDev(wallTimes, nil)
		if len(wallTimes) < 2 {
			std = 0
		}
		report.MeanWallTime = seconds(mean)
		report.StdDevWallTime = seconds(std)
	}
	return report
}

// RunOne solves scenario `index`, with VerboseSolve when set, and logs its outcome.
func (r *Runner) RunOne(ctx context.Context, scenarios []Scenario, index int) (Outcome, error) {
	if index < 0 || index >= len(scenarios) {
		return Outcome{}, fmt.Errorf("%w: %d not in [0, %d)", ErrNoSuchScenario, index, len(scenarios))
	}
	solve := r.Solve
	if r.VerboseSolve != nil {
		solve = r.VerboseSolve
	}
	o := r.run(ctx, solve, index, scenarios[index])
	logOutcome(o)
	return o, nil
}

func (r *Runner) run(ctx context.Context, solve SolveFunc, i int, sc Scenario) Outcome {
	o := Outcome{Index: i, Name: sc.Name, Expected: sc.Expected}
	start := time.Now()
	res, err := solve(ctx, sc.Problem, fjsp.Lmax)
	o.WallTime = time.Since(start)
	if err != nil {
		o.Err = err
	} else {
		o.Status = res.Status
		o.Err = r.check(sc, res)
		o.Passed = o.Err == nil
		if res.Schedule != nil {
			o.Got = res.ObjectiveValue
		}
	}
	if r.Verbose || !o.Passed {
		logOutcome(o)
	}
	return o
}

func (r *Runner) check(sc Scenario, res *fjsp.Result) error {
	if res.Schedule == nil {
		return fmt.Errorf("no schedule found (status %v)", res.Status)
	}
	flat, err := sc.Problem.Flatten(r.Discovery)
	if err != nil {
		return err
	}
	if err := fjsp.Verify(flat, res.Schedule); err != nil {
		return err
	}
	if res.ObjectiveValue != sc.Expected {
		return fmt.Errorf("maximum lateness %d, want %d", res.ObjectiveValue, sc.Expected)
	}
	return nil
}

func logOutcome(o Outcome) {
	if o.Passed {
		log.Infof("Scenario %d (%s): PASS, Lmax %d in %v", o.Index, o.Name, o.Got, o.WallTime)
		return
	}
	log.Errorf("Scenario %d (%s): FAIL, expected Lmax %d: %v", o.Index, o.Name, o.Expected, o.Err)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
