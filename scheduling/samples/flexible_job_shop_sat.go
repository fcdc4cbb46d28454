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

// The flexible_job_shop_sat command solves a small flexible job-shop problem where every
// operation can run on any of three machines.
package main

import (
	"context"
	"fmt"
	"time"

	log "github.com/golang/glog"

	"github.com/fjsp-sat/fjsp/scheduling/go/cpsat"
	"github.com/fjsp-sat/fjsp/scheduling/go/fjsp"
	"github.com/fjsp-sat/fjsp/scheduling/go/problem"
	"github.com/fjsp-sat/fjsp/scheduling/go/solver"
)

// durations[j][t][m] is the duration of operation t of job j on machine m.
var durations = [][][]int64{
	{{3, 1, 5}, {2, 4, 6}, {2, 3, 1}},
	{{2, 3, 4}, {1, 5, 4}, {2, 1, 4}},
	{{2, 1, 4}, {2, 3, 4}, {3, 1, 5}},
}

func flexibleJobShopSat() error {
	var jobs []problem.Job
	for j, ops := range durations {
		var operations []problem.Operation
		for _, byMachine := range ops {
			var tasks []problem.Task
			for m, d := range byMachine {
				tasks = append(tasks, problem.Task{Machine: fmt.Sprintf("M%d", m), Duration: d})
			}
			operations = append(operations, problem.NewOperation(tasks...))
		}
		jobs = append(jobs, problem.NewJob(fmt.Sprintf("J%d", j), 0, operations...))
	}
	p := problem.New(jobs...)

	params := solver.Parameters{
		TimeLimit: 10 * time.Second,
		Observer: func(inc solver.Incumbent) {
			fmt.Printf("Solution %d, time = %.2f s, objective = %v\n", inc.Number, inc.WallTime.Seconds(), inc.ObjectiveValue)
		},
	}
	s := fjsp.NewScheduler(cpsat.Factory(), fjsp.WithParameters(params))
	res, err := s.Solve(context.Background(), p, fjsp.Makespan)
	if err != nil {
		return fmt.Errorf("failed to solve the model: %w", err)
	}

	fmt.Println(res.Status)
	if res.Schedule == nil {
		return nil
	}
	fmt.Println("Optimal makespan: ", res.ObjectiveValue)
	for _, ops := range res.Schedule.Operations {
		for _, a := range ops {
			fmt.Printf("Job %d task %d starts at %d on %s (duration %d)\n", a.Job, a.Operation, a.Start, a.MachineName, a.Duration)
		}
	}
	for m, seq := range res.Schedule.MachineSequences(len(res.Machines)) {
		fmt.Printf("%s:", res.Machines[m])
		for _, a := range seq {
			fmt.Printf(" J%d/T%d[%d,%d)", a.Job, a.Operation, a.Start, a.End)
		}
		fmt.Println()
	}
	fmt.Printf("Conflicts: %d, branches: %d, wall time: %.3f s\n", res.Stats.Conflicts, res.Stats.Branches, res.Stats.WallTime.Seconds())
	return nil
}

func main() {
	if err := flexibleJobShopSat(); err != nil {
		log.Exitf("flexibleJobShopSat returned with error: %v", err)
	}
}
