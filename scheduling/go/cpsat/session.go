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

// Package cpsat implements solver.Session on top of the CP-SAT solver of OR-Tools.
//
// The session writes a CpModelProto while the model is built and hands it, with the
// SatParameters derived from solver.Parameters, to the native solver through cgo.
package cpsat

import (
	"fmt"

	log "github.com/golang/glog"
	"google.golang.org/protobuf/encoding/prototext"

	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"

	"github.com/fjsp-sat/fjsp/scheduling/go/solver"
)

// Session builds a CpModelProto. It implements solver.Session.
type Session struct {
	model *cmpb.CpModelProto
	// The first and only the first error is reported by Proto and Solve.
	err error
}

var _ solver.Session = (*Session)(nil)

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{model: &cmpb.CpModelProto{}}
}

// Factory returns a solver.Factory creating CP-SAT sessions.
func Factory() solver.Factory {
	return func() solver.Session { return NewSession() }
}

// setErrorf keeps the first misuse of the session.
func (s *Session) setErrorf(format string, a ...any) {
	args := make([]any, len(a)+1)
	copy(args, a)
	args[len(a)] = solver.ErrMixedSessions
	err := fmt.Errorf(format+": %w", args...)
	log.Errorf("%v; use `-log_backtrace_at` flag to get the error stack", err)
	if s.err == nil {
		s.err = err
	}
}

func (s *Session) checkVar(v solver.Var, format string, a ...any) bool {
	if v.BelongsTo(s) && int(v.Index()) < len(s.model.GetVariables()) {
		return true
	}
	s.setErrorf(format, a...)
	return false
}

func (s *Session) linearExpressionProto(la solver.LinearArgument) *cmpb.LinearExpressionProto {
	e := la.AsExpr()
	lep := &cmpb.LinearExpressionProto{Offset: e.Offset}
	for _, t := range e.Terms {
		s.checkVar(t.Var, "variable %v used in an expression of constraint %v", t.Var.Index(), len(s.model.GetConstraints()))
		lep.Vars = append(lep.GetVars(), int32(t.Var.Index()))
		lep.Coeffs = append(lep.GetCoeffs(), t.Coeff)
	}
	return lep
}

func (s *Session) literals(lits []solver.Var) []int32 {
	literals := make([]int32, 0, len(lits))
	for _, l := range lits {
		s.checkVar(l, "literal %v added to constraint %v", l.Index(), len(s.model.GetConstraints()))
		literals = append(literals, int32(l.Index()))
	}
	return literals
}

// NewIntVar implements solver.Session.
func (s *Session) NewIntVar(lb, ub int64, name string) solver.Var {
	v := solver.NewVar(s, solver.VarIndex(len(s.model.GetVariables())))
	s.model.Variables = append(s.model.GetVariables(), &cmpb.IntegerVariableProto{Name: name, Domain: []int64{lb, ub}})
	return v
}

// NewBoolVar implements solver.Session.
func (s *Session) NewBoolVar(name string) solver.Var {
	return s.NewIntVar(0, 1, name)
}

// NewIntervalVar implements solver.Session.
func (s *Session) NewIntervalVar(start, size, end solver.LinearArgument, name string) solver.Interval {
	return s.newInterval(start, size, end, nil, name)
}

// NewOptionalIntervalVar implements solver.Session.
func (s *Session) NewOptionalIntervalVar(start, size, end solver.LinearArgument, presence solver.Var, name string) solver.Interval {
	return s.newInterval(start, size, end, []solver.Var{presence}, name)
}

func (s *Session) newInterval(start, size, end solver.LinearArgument, presence []solver.Var, name string) solver.Interval {
	// The interval only carries its bounds, `start + size == end` is a separate constraint.
	s.AddLinear(solver.Sum(start, size).Minus(end), 0, 0).OnlyEnforceIf(presence...)

	ind := solver.IntervalIndex(len(s.model.GetConstraints()))
	s.model.Constraints = append(s.model.GetConstraints(), &cmpb.ConstraintProto{
		Name:               name,
		EnforcementLiteral: s.literals(presence),
		Constraint: &cmpb.ConstraintProto_Interval{Interval: &cmpb.IntervalConstraintProto{
			Start: s.linearExpressionProto(start),
			Size:  s.linearExpressionProto(size),
			End:   s.linearExpressionProto(end),
		}},
	})
	return solver.NewInterval(s, ind)
}

// Constraint is a reference to a constraint of a Session.
type Constraint struct {
	s   *Session
	ind int32
}

// OnlyEnforceIf implements solver.Constraint.
func (c Constraint) OnlyEnforceIf(lits ...solver.Var) solver.Constraint {
	ct := c.s.model.GetConstraints()[c.ind]
	ct.EnforcementLiteral = append(ct.GetEnforcementLiteral(), c.s.literals(lits)...)
	return c
}

// Index returns the index of the constraint in the model.
func (c Constraint) Index() int32 {
	return c.ind
}

func (s *Session) appendConstraint(ct *cmpb.ConstraintProto) Constraint {
	i := int32(len(s.model.GetConstraints()))
	s.model.Constraints = append(s.model.GetConstraints(), ct)
	return Constraint{s: s, ind: i}
}

// AddLinear implements solver.Session. The constant offset of `expr` is moved to the
// bounds.
func (s *Session) AddLinear(expr solver.LinearArgument, lb, ub int64) solver.Constraint {
	e := expr.AsExpr()
	lcp := &cmpb.LinearConstraintProto{Domain: bounds{lb, ub}.offset(-e.Offset).flattened()}
	for _, t := range e.Terms {
		s.checkVar(t.Var, "variable %v added to linear constraint %v", t.Var.Index(), len(s.model.GetConstraints()))
		lcp.Vars = append(lcp.GetVars(), int32(t.Var.Index()))
		lcp.Coeffs = append(lcp.GetCoeffs(), t.Coeff)
	}
	return s.appendConstraint(&cmpb.ConstraintProto{
		Constraint: &cmpb.ConstraintProto_Linear{Linear: lcp},
	})
}

// AddExactlyOne implements solver.Session.
func (s *Session) AddExactlyOne(lits ...solver.Var) solver.Constraint {
	return s.appendConstraint(&cmpb.ConstraintProto{
		Constraint: &cmpb.ConstraintProto_ExactlyOne{ExactlyOne: &cmpb.BoolArgumentProto{Literals: s.literals(lits)}},
	})
}

// AddNoOverlap implements solver.Session.
func (s *Session) AddNoOverlap(intervals ...solver.Interval) solver.Constraint {
	inds := make([]int32, len(intervals))
	for i, iv := range intervals {
		if !iv.BelongsTo(s) {
			s.setErrorf("invalid interval %v added to the AddNoOverlap constraint %v", iv.Index(), len(s.model.GetConstraints()))
		}
		inds[i] = int32(iv.Index())
	}
	return s.appendConstraint(&cmpb.ConstraintProto{
		Constraint: &cmpb.ConstraintProto_NoOverlap{NoOverlap: &cmpb.NoOverlapConstraintProto{Intervals: inds}},
	})
}

// AddMaxEquality implements solver.Session.
func (s *Session) AddMaxEquality(target solver.LinearArgument, exprs ...solver.LinearArgument) solver.Constraint {
	protos := make([]*cmpb.LinearExpressionProto, len(exprs))
	for i, e := range exprs {
		protos[i] = s.linearExpressionProto(e)
	}
	return s.appendConstraint(&cmpb.ConstraintProto{
		Constraint: &cmpb.ConstraintProto_LinMax{LinMax: &cmpb.LinearArgumentProto{
			Target: s.linearExpressionProto(target),
			Exprs:  protos,
		}},
	})
}

// Minimize implements solver.Session.
func (s *Session) Minimize(obj solver.LinearArgument) {
	e := obj.AsExpr()
	opb := &cmpb.CpObjectiveProto{Offset: float64(e.Offset)}
	for _, t := range e.Terms {
		s.checkVar(t.Var, "variable %v added to the objective", t.Var.Index())
		opb.Vars = append(opb.GetVars(), int32(t.Var.Index()))
		opb.Coeffs = append(opb.GetCoeffs(), t.Coeff)
	}
	s.model.Objective = opb
}

// Proto returns the model built so far, or the first error met while building it.
//
// The returned model is the one owned by the session; modifying it changes what Solve
// sends to the solver.
func (s *Session) Proto() (*cmpb.CpModelProto, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.model, nil
}

// DumpText renders the model in the protobuf text format.
func (s *Session) DumpText() (string, error) {
	m, err := s.Proto()
	if err != nil {
		return "", err
	}
	return prototext.MarshalOptions{Multiline: true, Indent: "  "}.Format(m), nil
}
