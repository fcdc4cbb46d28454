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

// Package solvertest provides an in-memory solver.Session that records the model built
// into it and checks assignments against the recorded constraints.
package solvertest

import (
	"context"
	"errors"
	"fmt"

	log "github.com/golang/glog"

	"github.com/fjsp-sat/fjsp/scheduling/go/solver"
)

// ErrUnknownName is returned by Assignment for names no variable carries.
var ErrUnknownName = errors.New("unknown variable name")

// VarInfo describes a recorded variable.
type VarInfo struct {
	Name string
	LB   int64
	UB   int64
}

// IntervalInfo describes a recorded interval.
type IntervalInfo struct {
	Name  string
	Start solver.Expr
	Size  solver.Expr
	End   solver.Expr
	// Optional intervals only exist when Presence is true.
	Optional bool
	Presence solver.Var
}

// Kind is the type of a recorded constraint.
type Kind int

const (
	// Linear is `LB <= Expr <= UB`.
	Linear Kind = iota
	// ExactlyOne is `sum(Lits) == 1`.
	ExactlyOne
	// NoOverlap forbids two present Intervals to overlap.
	NoOverlap
	// MaxEquality is `Target == max(Exprs)`.
	MaxEquality
)

func (k Kind) String() string {
	switch k {
	case Linear:
		return "linear"
	case ExactlyOne:
		return "exactly_one"
	case NoOverlap:
		return "no_overlap"
	case MaxEquality:
		return "max_equality"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Constraint is a recorded constraint. Only the fields of its Kind are set.
type Constraint struct {
	Kind Kind

	Expr   solver.Expr
	LB, UB int64

	Lits      []solver.Var
	Intervals []solver.Interval

	Target solver.Expr
	Exprs  []solver.Expr

	// Enforcement lists the literals that must all be true for the constraint to apply.
	Enforcement []solver.Var

	r *Recorder
}

// OnlyEnforceIf implements solver.Constraint.
func (c *Constraint) OnlyEnforceIf(lits ...solver.Var) solver.Constraint {
	c.r.checkVars("OnlyEnforceIf", lits...)
	c.Enforcement = append(c.Enforcement, lits...)
	return c
}

// Recorder is an in-memory solver.Session.
type Recorder struct {
	Vars        []VarInfo
	Intervals   []IntervalInfo
	Constraints []*Constraint
	// Objective is the minimized expression; Minimized is false until Minimize is called.
	Objective solver.Expr
	Minimized bool

	// Respond computes the response of Solve. A nil Respond answers solver.Unknown.
	Respond func(ctx context.Context, params solver.Parameters) (*solver.Response, error)
	// SolveCalls counts Solve calls and Params holds the parameters of the last one.
	SolveCalls int
	Params     solver.Parameters

	err error
}

var _ solver.Session = (*Recorder)(nil)

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{}
}

// Factory returns a solver.Factory handing out the given recorders in order. It returns
// fresh recorders once they are exhausted.
func Factory(recorders ...*Recorder) solver.Factory {
	return func() solver.Session {
		if len(recorders) == 0 {
			return New()
		}
		r := recorders[0]
		recorders = recorders[1:]
		return r
	}
}

// Err returns the first misuse recorded, such as an element of another session.
func (r *Recorder) Err() error {
	return r.err
}

func (r *Recorder) fail(err error) {
	if r.err == nil {
		r.err = err
	}
	log.Errorf("solvertest: %v", err)
}

func (r *Recorder) checkVars(op string, vars ...solver.Var) {
	for _, v := range vars {
		if !v.BelongsTo(r) || int(v.Index()) >= len(r.Vars) {
			r.fail(fmt.Errorf("%s: variable %d: %w", op, v.Index(), solver.ErrMixedSessions))
		}
	}
}

func (r *Recorder) checkExprs(op string, las ...solver.LinearArgument) []solver.Expr {
	exprs := make([]solver.Expr, len(las))
	for i, la := range las {
		exprs[i] = la.AsExpr()
		for _, t := range exprs[i].Terms {
			r.checkVars(op, t.Var)
		}
	}
	return exprs
}

// NewIntVar implements solver.Session.
func (r *Recorder) NewIntVar(lb, ub int64, name string) solver.Var {
	r.Vars = append(r.Vars, VarInfo{Name: name, LB: lb, UB: ub})
	return solver.NewVar(r, solver.VarIndex(len(r.Vars)-1))
}

// NewBoolVar implements solver.Session.
func (r *Recorder) NewBoolVar(name string) solver.Var {
	return r.NewIntVar(0, 1, name)
}

// NewIntervalVar implements solver.Session.
func (r *Recorder) NewIntervalVar(start, size, end solver.LinearArgument, name string) solver.Interval {
	exprs := r.checkExprs("NewIntervalVar", start, size, end)
	r.Intervals = append(r.Intervals, IntervalInfo{Name: name, Start: exprs[0], Size: exprs[1], End: exprs[2]})
	return solver.NewInterval(r, solver.IntervalIndex(len(r.Intervals)-1))
}

// NewOptionalIntervalVar implements solver.Session.
func (r *Recorder) NewOptionalIntervalVar(start, size, end solver.LinearArgument, presence solver.Var, name string) solver.Interval {
	exprs := r.checkExprs("NewOptionalIntervalVar", start, size, end)
	r.checkVars("NewOptionalIntervalVar", presence)
	r.Intervals = append(r.Intervals, IntervalInfo{Name: name, Start: exprs[0], Size: exprs[1], End: exprs[2], Optional: true, Presence: presence})
	return solver.NewInterval(r, solver.IntervalIndex(len(r.Intervals)-1))
}

func (r *Recorder) add(c *Constraint) *Constraint {
	c.r = r
	r.Constraints = append(r.Constraints, c)
	return c
}

// AddLinear implements solver.Session.
func (r *Recorder) AddLinear(expr solver.LinearArgument, lb, ub int64) solver.Constraint {
	e := r.checkExprs("AddLinear", expr)[0]
	return r.add(&Constraint{Kind: Linear, Expr: e, LB: lb, UB: ub})
}

// AddExactlyOne implements solver.Session.
func (r *Recorder) AddExactlyOne(lits ...solver.Var) solver.Constraint {
	r.checkVars("AddExactlyOne", lits...)
	return r.add(&Constraint{Kind: ExactlyOne, Lits: append([]solver.Var(nil), lits...)})
}

// AddNoOverlap implements solver.Session.
func (r *Recorder) AddNoOverlap(intervals ...solver.Interval) solver.Constraint {
	for _, iv := range intervals {
		if !iv.BelongsTo(r) || int(iv.Index()) >= len(r.Intervals) {
			r.fail(fmt.Errorf("AddNoOverlap: interval %d: %w", iv.Index(), solver.ErrMixedSessions))
		}
	}
	return r.add(&Constraint{Kind: NoOverlap, Intervals: append([]solver.Interval(nil), intervals...)})
}

// AddMaxEquality implements solver.Session.
func (r *Recorder) AddMaxEquality(target solver.LinearArgument, exprs ...solver.LinearArgument) solver.Constraint {
	t := r.checkExprs("AddMaxEquality", target)[0]
	return r.add(&Constraint{Kind: MaxEquality, Target: t, Exprs: r.checkExprs("AddMaxEquality", exprs...)})
}

// Minimize implements solver.Session.
func (r *Recorder) Minimize(obj solver.LinearArgument) {
	r.Objective = r.checkExprs("Minimize", obj)[0]
	r.Minimized = true
}

// Solve implements solver.Session. It returns the first recorded misuse, if any, before
// calling Respond.
func (r *Recorder) Solve(ctx context.Context, params solver.Parameters) (*solver.Response, error) {
	r.SolveCalls++
	r.Params = params
	if r.err != nil {
		return nil, r.err
	}
	if r.Respond == nil {
		return &solver.Response{Status: solver.Unknown}, nil
	}
	return r.Respond(ctx, params)
}

// VarByName returns the first variable named `name`.
func (r *Recorder) VarByName(name string) (solver.Var, bool) {
	for i, v := range r.Vars {
		if v.Name == name {
			return solver.NewVar(r, solver.VarIndex(i)), true
		}
	}
	return solver.Var{}, false
}

// CountVars returns the number of variables whose name satisfies `pred`.
func (r *Recorder) CountVars(pred func(name string) bool) int {
	n := 0
	for _, v := range r.Vars {
		if pred(v.Name) {
			n++
		}
	}
	return n
}

// ConstraintsOf returns the recorded constraints of kind `k`.
func (r *Recorder) ConstraintsOf(k Kind) []*Constraint {
	var cs []*Constraint
	for _, c := range r.Constraints {
		if c.Kind == k {
			cs = append(cs, c)
		}
	}
	return cs
}

// Assignment returns a full assignment from values given by variable name. Fixed
// variables (LB == UB) default to their value; any other variable must be named.
func (r *Recorder) Assignment(byName map[string]int64) ([]int64, error) {
	known := make(map[string]bool, len(byName))
	values := make([]int64, len(r.Vars))
	var missing []error
	for i, v := range r.Vars {
		if val, ok := byName[v.Name]; ok && v.Name != "" {
			values[i] = val
			known[v.Name] = true
			continue
		}
		if v.LB == v.UB {
			values[i] = v.LB
			continue
		}
		missing = append(missing, fmt.Errorf("no value for variable %d (%q)", i, v.Name))
	}
	for name := range byName {
		if !known[name] {
			missing = append(missing, fmt.Errorf("%w: %q", ErrUnknownName, name))
		}
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}
	return values, nil
}

// RespondWith returns a Respond function answering `status` with `values` as the solution
// and the recorded objective evaluated on them.
func (r *Recorder) RespondWith(status solver.Status, values []int64) func(context.Context, solver.Parameters) (*solver.Response, error) {
	return func(context.Context, solver.Parameters) (*solver.Response, error) {
		resp := &solver.Response{Status: status}
		if status.HasSolution() {
			resp.Solution = append([]int64(nil), values...)
			obj := float64(resp.Value(r.Objective))
			resp.ObjectiveValue, resp.BestObjectiveBound = obj, obj
		}
		return resp, nil
	}
}
