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

// Package selfcheck solves reference problems with known optimal maximum lateness and
// reports the ones the solver gets wrong.
package selfcheck

import "github.com/fjsp-sat/fjsp/scheduling/go/problem"

// Scenario is a problem with its known optimal maximum lateness.
type Scenario struct {
	Name     string
	Problem  *problem.Problem
	Expected int64
}

func op(tasks ...problem.Task) problem.Operation {
	return problem.NewOperation(tasks...)
}

func on(machine string, duration int64) problem.Task {
	return problem.Task{Machine: machine, Duration: duration}
}

// twoMachines returns a job with one operation runnable on M1 or M2.
func twoMachines(name string, m1, m2, due int64) problem.Job {
	return problem.NewJob(name, due, op(on("M1", m1), on("M2", m2)))
}

// Scenarios returns the reference scenarios. Each call returns fresh problems.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name: "single-job-three-machines",
			Problem: problem.New(
				problem.NewJob("J1", 200, op(on("M1", 400), on("M2", 300), on("M3", 400))),
			),
			Expected: 100,
		},
		{
			Name: "three-jobs-early",
			Problem: problem.New(
				twoMachines("J1", 500, 400, 800),
				twoMachines("J2", 400, 300, 600),
				twoMachines("J3", 400, 300, 800),
			),
			Expected: -200,
		},
		{
			Name: "fourteen-jobs-on-time",
			Problem: problem.New(
				twoMachines("J0", 500, 400, 500),
				twoMachines("J1", 400, 300, 900),
				twoMachines("J2", 300, 400, 1200),
				twoMachines("J3", 300, 400, 1500),
				twoMachines("J4", 300, 200, 1800),
				twoMachines("J5", 300, 200, 2100),
				twoMachines("J6", 300, 200, 2200),
				twoMachines("J7", 300, 200, 2000),
				twoMachines("J8", 300, 200, 1800),
				twoMachines("J9", 300, 200, 1600),
				twoMachines("J10", 200, 800, 1400),
				twoMachines("J11", 300, 200, 600),
				twoMachines("J12", 300, 200, 400),
				twoMachines("J13", 200, 200, 200),
			),
			Expected: 0,
		},
	}
}
