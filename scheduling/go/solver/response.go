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

package solver

import (
	"fmt"
	"time"
)

// Status is the outcome of a solve.
type Status int

const (
	// Unknown means the search stopped before finding a solution or proving there is none.
	Unknown Status = iota
	// ModelInvalid means the engine rejected the model.
	ModelInvalid
	// Feasible means a solution was found but not proven optimal.
	Feasible
	// Infeasible means the model has no solution.
	Infeasible
	// Optimal means the returned solution is proven optimal.
	Optimal
)

var statusNames = map[Status]string{
	Unknown:      "UNKNOWN",
	ModelInvalid: "MODEL_INVALID",
	Feasible:     "FEASIBLE",
	Infeasible:   "INFEASIBLE",
	Optimal:      "OPTIMAL",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// HasSolution reports whether a response with this status carries solution values.
func (s Status) HasSolution() bool {
	return s == Feasible || s == Optimal
}

// Stats holds the search statistics of a solve.
type Stats struct {
	Conflicts int64
	Branches  int64
	WallTime  time.Duration
}

// Incumbent describes an improving solution reported to a progress observer.
type Incumbent struct {
	Number         int
	ObjectiveValue float64
	WallTime       time.Duration
}

// Parameters configure one solve.
type Parameters struct {
	// TimeLimit bounds the search. Zero means no limit.
	TimeLimit time.Duration
	// NumWorkers is the number of parallel search workers. Zero lets the engine decide.
	NumWorkers int
	// RandomSeed seeds the engine's randomized heuristics.
	RandomSeed int
	// LogSearchProgress asks the engine to log its search.
	LogSearchProgress bool
	// Observer, if set, receives improving solutions. It must not use the session.
	Observer func(Incumbent)
}

// Values gives access to the values of a solution.
type Values interface {
	// Value returns the value of the linear argument in the solution.
	Value(la LinearArgument) int64
	// BoolValue returns the value of the Boolean variable in the solution.
	BoolValue(v Var) bool
}

// Response is the result of Session.Solve.
type Response struct {
	Status             Status
	ObjectiveValue     float64
	BestObjectiveBound float64
	// Solution holds one value per declared variable, indexed by VarIndex. It is empty
	// unless Status.HasSolution().
	Solution     []int64
	Stats        Stats
	SolutionInfo string
}

// Value returns the value of the linear argument `la` in the response.
func (r *Response) Value(la LinearArgument) int64 {
	e := la.AsExpr()
	result := e.Offset
	for _, t := range e.Terms {
		result += r.Solution[t.Var.Index()] * t.Coeff
	}
	return result
}

// BoolValue returns the value of the Boolean variable `v` in the response.
func (r *Response) BoolValue(v Var) bool {
	return r.Solution[v.Index()] != 0
}
