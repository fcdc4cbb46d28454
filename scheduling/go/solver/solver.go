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

// Package solver defines the contract between the scheduling model builder and a
// constraint-optimization engine.
//
// A `Session` is one model under construction plus the single solve performed on it.
// `Var` and `Interval` values are references to variables of the session that declared
// them; passing them to another session is an error reported by the session.
// The `Expr` struct and the `LinearArgument` interface describe the linear expressions
// used by constraints and by the objective.
package solver

import (
	"context"
	"errors"
	"math"
)

// ErrMixedSessions holds the error when elements added to a session were declared by
// another session.
var ErrMixedSessions = errors.New("elements are not part of the same session")

type (
	// VarIndex is the index of a variable in the session that declared it.
	VarIndex int32
	// IntervalIndex is the index of an interval variable in the session that declared it.
	IntervalIndex int32
)

// LinearArgument provides an interface for Var and Expr.
type LinearArgument interface {
	AsExpr() Expr
}

// Var is a reference to an integer or Boolean variable of a Session.
type Var struct {
	ind   VarIndex
	owner any
}

// NewVar returns a reference to the variable `ind` of `owner`. It is meant for Session
// implementations.
func NewVar(owner any, ind VarIndex) Var {
	return Var{ind: ind, owner: owner}
}

// Index returns the index of the variable.
func (v Var) Index() VarIndex {
	return v.ind
}

// BelongsTo reports whether the variable was declared by `owner`.
func (v Var) BelongsTo(owner any) bool {
	return v.owner == owner
}

// AsExpr returns the expression `1*v`.
func (v Var) AsExpr() Expr {
	return Expr{Terms: []Term{{Var: v, Coeff: 1}}}
}

// Interval is a reference to an interval variable of a Session.
type Interval struct {
	ind   IntervalIndex
	owner any
}

// NewInterval returns a reference to the interval `ind` of `owner`. It is meant for
// Session implementations.
func NewInterval(owner any, ind IntervalIndex) Interval {
	return Interval{ind: ind, owner: owner}
}

// Index returns the index of the interval.
func (iv Interval) Index() IntervalIndex {
	return iv.ind
}

// BelongsTo reports whether the interval was declared by `owner`.
func (iv Interval) BelongsTo(owner any) bool {
	return iv.owner == owner
}

// Term is one `Coeff * Var` product of an expression.
type Term struct {
	Var   Var
	Coeff int64
}

// Expr is a linear expression `sum(Terms) + Offset`.
type Expr struct {
	Terms  []Term
	Offset int64
}

// Constant returns the expression holding only the constant `c`.
func Constant(c int64) Expr {
	return Expr{Offset: c}
}

// Sum returns the sum of the linear arguments.
func Sum(las ...LinearArgument) Expr {
	var e Expr
	for _, la := range las {
		e = e.Plus(la)
	}
	return e
}

// Diff returns `lhs - rhs`.
func Diff(lhs, rhs LinearArgument) Expr {
	return lhs.AsExpr().Minus(rhs)
}

// AsExpr returns the expression itself.
func (e Expr) AsExpr() Expr {
	return e
}

// Plus returns `e + la`. The receiver is not modified.
func (e Expr) Plus(la LinearArgument) Expr {
	return e.plusScaled(la.AsExpr(), 1)
}

// Minus returns `e - la`. The receiver is not modified.
func (e Expr) Minus(la LinearArgument) Expr {
	return e.plusScaled(la.AsExpr(), -1)
}

// AddConstant returns `e + c`.
func (e Expr) AddConstant(c int64) Expr {
	return e.plusScaled(Constant(c), 1)
}

func (e Expr) plusScaled(o Expr, c int64) Expr {
	terms := make([]Term, 0, len(e.Terms)+len(o.Terms))
	terms = append(terms, e.Terms...)
	for _, t := range o.Terms {
		terms = append(terms, Term{Var: t.Var, Coeff: t.Coeff * c})
	}
	return Expr{Terms: terms, Offset: e.Offset + o.Offset*c}
}

// Constraint is a reference to a constraint posted in a Session.
type Constraint interface {
	// OnlyEnforceIf adds a condition on the constraint. The constraint is only enforced
	// iff all literals given are true.
	OnlyEnforceIf(lits ...Var) Constraint
}

// Session is a constraint model under construction and the single solve performed on it.
//
// Sessions are not safe for concurrent use. Variables and constraints live as long as
// the session; nothing is shared between sessions.
type Session interface {
	// NewIntVar declares an integer variable with domain [lb, ub].
	NewIntVar(lb, ub int64, name string) Var
	// NewBoolVar declares a Boolean variable.
	NewBoolVar(name string) Var
	// NewIntervalVar declares an interval enforcing `start + size == end`.
	NewIntervalVar(start, size, end LinearArgument, name string) Interval
	// NewOptionalIntervalVar declares an interval that only exists when `presence` is
	// true. An absent interval constrains nothing.
	NewOptionalIntervalVar(start, size, end LinearArgument, presence Var, name string) Interval
	// AddLinear posts `lb <= expr <= ub`.
	AddLinear(expr LinearArgument, lb, ub int64) Constraint
	// AddExactlyOne posts that exactly one of the literals is true.
	AddExactlyOne(lits ...Var) Constraint
	// AddNoOverlap posts that no two present intervals overlap in time.
	AddNoOverlap(intervals ...Interval) Constraint
	// AddMaxEquality posts `target == max(exprs)`.
	AddMaxEquality(target LinearArgument, exprs ...LinearArgument) Constraint
	// Minimize sets the objective to the minimization of `obj`.
	Minimize(obj LinearArgument)
	// Solve runs the engine on the model and blocks until it stops. Cancelling `ctx`
	// interrupts the search; the best solution found so far is still returned.
	// Outcomes such as infeasibility are reported through Response.Status, errors are
	// reserved for faults.
	Solve(ctx context.Context, params Parameters) (*Response, error)
}

// Factory creates a fresh Session for every solve.
type Factory func() Session

// AddEquality posts `lhs == rhs`.
func AddEquality(s Session, lhs, rhs LinearArgument) Constraint {
	return s.AddLinear(Diff(lhs, rhs), 0, 0)
}

// AddGreaterOrEqual posts `lhs >= rhs`.
func AddGreaterOrEqual(s Session, lhs, rhs LinearArgument) Constraint {
	return s.AddLinear(Diff(lhs, rhs), 0, math.MaxInt64)
}
