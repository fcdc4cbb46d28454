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

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ObserveSolve(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	r.ObserveSolve(Solve{Objective: "lmax", Status: "OPTIMAL", WallTime: 50 * time.Millisecond, Conflicts: 3, Branches: 10, Intervals: 7})
	r.ObserveSolve(Solve{Objective: "lmax", Status: "OPTIMAL", WallTime: time.Second, Conflicts: 2, Branches: 5, Intervals: 4})
	r.ObserveSolve(Solve{Objective: "makespan", Status: "INFEASIBLE"})

	expected := `
# HELP fjsp_solves_total Total number of solves by objective and final status
# TYPE fjsp_solves_total counter
fjsp_solves_total{objective="lmax",status="OPTIMAL"} 2
fjsp_solves_total{objective="makespan",status="INFEASIBLE"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(r.solves, strings.NewReader(expected)))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.conflicts))
	assert.Equal(t, 15.0, testutil.ToFloat64(r.branches))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.intervals))
	assert.Equal(t, 2, testutil.CollectAndCount(r.wallTime))
}

func TestNewRecorder_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewRecorder(reg)
	require.NoError(t, err)
	second, err := NewRecorder(reg)
	require.NoError(t, err)

	second.ObserveSolve(Solve{Objective: "makespan", Status: "FEASIBLE"})
	assert.Equal(t, 1.0, testutil.ToFloat64(first.solves.WithLabelValues("makespan", "FEASIBLE")))
}

func TestNewRecorder_ConflictingCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(prometheus.NewGauge(prometheus.GaugeOpts{Name: "fjsp_solves_total", Help: "other"})))
	_, err := NewRecorder(reg)
	assert.Error(t, err)
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() { r.ObserveSolve(Solve{Objective: "lmax", Status: "OPTIMAL"}) })
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)
	r.ObserveSolve(Solve{Objective: "lmax", Status: "OPTIMAL", Intervals: 3})

	path := filepath.Join(t.TempDir(), "fjsp.prom")
	require.NoError(t, WriteTextfile(reg, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `fjsp_solves_total{objective="lmax",status="OPTIMAL"} 1`)
	assert.Contains(t, string(data), "fjsp_model_intervals 3")
}
