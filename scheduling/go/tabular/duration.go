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

package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseDuration converts the compact duration notation ("1d2h3m4s") to seconds.
//
// Units are read left to right in the fixed order d, h, m, s; the text is cut once at
// each unit letter, the left part being the unit's integer and the right part the rest
// to parse. Missing units count as zero. Colons are stripped from the h, m and s
// integers, which accepts a legacy "01:30m" fragment. A trailing number without unit
// letter is ignored, so "400" is 0 seconds. Totals that overflow an int64
// are rejected.
func ParseDuration(s string) (int64, error) {
	rest := s

	var hours int64
	if left, right, ok := strings.Cut(rest, "d"); ok {
		days, err := parseComponent(s, left, "d", false)
		if err != nil {
			return 0, err
		}
		hours = days
		rest = right
	}

	var h, m, sec int64
	for _, unit := range []struct {
		letter string
		dst    *int64
	}{{"h", &h}, {"m", &m}, {"s", &sec}} {
		left, right, ok := strings.Cut(rest, unit.letter)
		if !ok {
			continue
		}
		v, err := parseComponent(s, left, unit.letter, true)
		if err != nil {
			return 0, err
		}
		*unit.dst = v
		rest = right
	}
	hours, ok := mulAdd(hours, 24, h)
	if ok {
		sec, ok = mulAdd(m, 60, sec)
	}
	if ok {
		sec, ok = mulAdd(hours, 3600, sec)
	}
	if !ok {
		return 0, fmt.Errorf("%w: duration %q overflows", ErrMalformedInput, s)
	}
	return sec, nil
}

// mulAdd returns a*k + b for k > 0, or false when the result does not fit in an int64.
func mulAdd(a, k, b int64) (int64, bool) {
	if a > math.MaxInt64/k || a < math.MinInt64/k {
		return 0, false
	}
	p := a * k
	if (b > 0 && p > math.MaxInt64-b) || (b < 0 && p < math.MinInt64-b) {
		return 0, false
	}
	return p + b, true
}

func parseComponent(input, part, unit string, stripColons bool) (int64, error) {
	if stripColons {
		part = strings.ReplaceAll(part, ":", "")
	}
	v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: duration %q: %q before %q is not an integer", ErrMalformedInput, input, part, unit)
	}
	return v, nil
}

// FormatDuration renders non-negative seconds in the notation read by ParseDuration,
// omitting zero units. Zero renders as "0s"; negative values get a leading '-' and are
// only meant for display.
func FormatDuration(seconds int64) string {
	if seconds == 0 {
		return "0s"
	}
	var b strings.Builder
	if seconds < 0 {
		b.WriteByte('-')
		seconds = -seconds
	}
	for _, u := range []struct {
		letter string
		size   int64
	}{{"d", 86400}, {"h", 3600}, {"m", 60}, {"s", 1}} {
		if n := seconds / u.size; n > 0 {
			fmt.Fprintf(&b, "%d%s", n, u.letter)
			seconds -= n * u.size
		}
	}
	return b.String()
}
