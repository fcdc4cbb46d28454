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

package solvertest

import (
	"errors"
	"fmt"

	"github.com/fjsp-sat/fjsp/scheduling/go/solver"
)

// ErrViolation wraps every violation reported by Check.
var ErrViolation = errors.New("constraint violated")

// Check evaluates every recorded domain, interval and constraint on the full assignment
// `values` and returns the violations joined, or nil.
func (r *Recorder) Check(values []int64) error {
	if len(values) != len(r.Vars) {
		return fmt.Errorf("%w: assignment has %d values, want %d", ErrViolation, len(values), len(r.Vars))
	}
	eval := func(e solver.Expr) int64 {
		v := e.Offset
		for _, t := range e.Terms {
			v += t.Coeff * values[t.Var.Index()]
		}
		return v
	}
	truth := func(v solver.Var) bool { return values[v.Index()] != 0 }

	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrViolation, fmt.Sprintf(format, args...)))
	}

	for i, v := range r.Vars {
		if values[i] < v.LB || values[i] > v.UB {
			fail("variable %q = %d outside [%d, %d]", v.Name, values[i], v.LB, v.UB)
		}
	}

	present := func(iv IntervalInfo) bool { return !iv.Optional || truth(iv.Presence) }
	for _, iv := range r.Intervals {
		if !present(iv) {
			continue
		}
		start, size, end := eval(iv.Start), eval(iv.Size), eval(iv.End)
		if size < 0 || start+size != end {
			fail("interval %q: start %d + size %d != end %d", iv.Name, start, size, end)
		}
	}

	for i, c := range r.Constraints {
		enforced := true
		for _, lit := range c.Enforcement {
			enforced = enforced && truth(lit)
		}
		if !enforced {
			continue
		}
		switch c.Kind {
		case Linear:
			if v := eval(c.Expr); v < c.LB || v > c.UB {
				fail("constraint %d (%v): %d outside [%d, %d]", i, c.Kind, v, c.LB, c.UB)
			}
		case ExactlyOne:
			n := 0
			for _, lit := range c.Lits {
				if truth(lit) {
					n++
				}
			}
			if n != 1 {
				fail("constraint %d (%v): %d literals true", i, c.Kind, n)
			}
		case NoOverlap:
			var live []IntervalInfo
			for _, handle := range c.Intervals {
				if iv := r.Intervals[handle.Index()]; present(iv) {
					live = append(live, iv)
				}
			}
			for a := 0; a < len(live); a++ {
				for b := a + 1; b < len(live); b++ {
					if eval(live[a].Start) < eval(live[b].End) && eval(live[b].Start) < eval(live[a].End) {
						fail("constraint %d (%v): intervals %q and %q overlap", i, c.Kind, live[a].Name, live[b].Name)
					}
				}
			}
		case MaxEquality:
			if len(c.Exprs) == 0 {
				fail("constraint %d (%v): no expressions", i, c.Kind)
				continue
			}
			m := eval(c.Exprs[0])
			for _, e := range c.Exprs[1:] {
				m = max(m, eval(e))
			}
			if t := eval(c.Target); t != m {
				fail("constraint %d (%v): target %d != max %d", i, c.Kind, t, m)
			}
		}
	}
	return errors.Join(errs...)
}
