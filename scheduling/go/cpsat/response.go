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

package cpsat

import (
	"sort"
	"time"

	"google.golang.org/protobuf/proto"

	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
	sppb "github.com/google/or-tools/ortools/sat/proto/satparameters"

	"github.com/fjsp-sat/fjsp/scheduling/go/solver"
)

// satParameters converts `p` to the CP-SAT parameters. Zero values keep the solver
// defaults.
func satParameters(p solver.Parameters) *sppb.SatParameters {
	params := &sppb.SatParameters{}
	if p.TimeLimit > 0 {
		params.MaxTimeInSeconds = proto.Float64(p.TimeLimit.Seconds())
	}
	if p.NumWorkers > 0 {
		params.NumWorkers = proto.Int32(int32(p.NumWorkers))
	}
	if p.RandomSeed != 0 {
		params.RandomSeed = proto.Int32(int32(p.RandomSeed))
	}
	if p.LogSearchProgress {
		params.LogSearchProgress = proto.Bool(true)
	}
	if p.Observer != nil {
		params.FillAdditionalSolutionsInResponse = proto.Bool(true)
	}
	return params
}

var statuses = map[cmpb.CpSolverStatus]solver.Status{
	cmpb.CpSolverStatus_UNKNOWN:       solver.Unknown,
	cmpb.CpSolverStatus_MODEL_INVALID: solver.ModelInvalid,
	cmpb.CpSolverStatus_FEASIBLE:      solver.Feasible,
	cmpb.CpSolverStatus_INFEASIBLE:    solver.Infeasible,
	cmpb.CpSolverStatus_OPTIMAL:       solver.Optimal,
}

// response converts the CP-SAT response.
func response(r *cmpb.CpSolverResponse) *solver.Response {
	status, ok := statuses[r.GetStatus()]
	if !ok {
		status = solver.Unknown
	}
	resp := &solver.Response{
		Status:             status,
		ObjectiveValue:     r.GetObjectiveValue(),
		BestObjectiveBound: r.GetBestObjectiveBound(),
		Stats: solver.Stats{
			Conflicts: r.GetNumConflicts(),
			Branches:  r.GetNumBranches(),
			WallTime:  time.Duration(r.GetWallTime() * float64(time.Second)),
		},
		SolutionInfo: r.GetSolutionInfo(),
	}
	if status.HasSolution() {
		resp.Solution = r.GetSolution()
	}
	return resp
}

// incumbents returns the solutions of the pool in improving order, ending with the
// best one. The native solver only exposes the pool once it returns.
func incumbents(obj *cmpb.CpObjectiveProto, r *cmpb.CpSolverResponse) []solver.Incumbent {
	if obj == nil {
		return nil
	}
	wallTime := time.Duration(r.GetWallTime() * float64(time.Second))
	var values []float64
	for _, sol := range r.GetAdditionalSolutions() {
		values = append(values, objectiveValue(obj, sol.GetValues()))
	}
	if len(values) == 0 && len(r.GetSolution()) > 0 {
		values = append(values, objectiveValue(obj, r.GetSolution()))
	}
	// Minimization: larger objective values were found first.
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	var incs []solver.Incumbent
	for i, v := range values {
		if i > 0 && v == values[i-1] {
			continue
		}
		incs = append(incs, solver.Incumbent{Number: len(incs) + 1, ObjectiveValue: v, WallTime: wallTime})
	}
	return incs
}

func objectiveValue(obj *cmpb.CpObjectiveProto, values []int64) float64 {
	var v int64
	for i, ind := range obj.GetVars() {
		if int(ind) < len(values) {
			v += obj.GetCoeffs()[i] * values[ind]
		}
	}
	return float64(v) + obj.GetOffset()
}
