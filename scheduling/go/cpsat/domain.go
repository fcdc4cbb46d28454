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

import "math"

// bounds stores the closed interval `[lo,hi]` of a linear constraint. MinInt64 and MaxInt64
// stand for unbounded sides.
type bounds struct {
	lo int64
	hi int64
}

// shift adds `delta` to `i`, saturating at MinInt64 and MaxInt64. Infinite sides stay
// infinite.
func shift(i, delta int64) int64 {
	switch {
	case i == math.MinInt64 || i == math.MaxInt64:
		return i
	case delta > 0 && i > math.MaxInt64-delta:
		return math.MaxInt64
	case delta < 0 && i < math.MinInt64-delta:
		return math.MinInt64
	}
	return i + delta
}

// offset moves both sides of `b` by `delta`, keeping unbounded sides unbounded.
func (b bounds) offset(delta int64) bounds {
	return bounds{shift(b.lo, delta), shift(b.hi, delta)}
}

// flattened returns the domain of `b` as stored in a LinearConstraintProto.
func (b bounds) flattened() []int64 {
	return []int64{b.lo, b.hi}
}
