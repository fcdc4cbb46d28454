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

// Package metrics records solve statistics in Prometheus collectors.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Solve describes one finished solve.
type Solve struct {
	Objective string
	Status    string
	WallTime  time.Duration
	Conflicts int64
	Branches  int64
	// Intervals is the number of machine intervals in the model.
	Intervals int
}

// Recorder records solves. A nil *Recorder records nothing.
type Recorder struct {
	solves    *prometheus.CounterVec
	wallTime  *prometheus.HistogramVec
	conflicts prometheus.Counter
	branches  prometheus.Counter
	intervals prometheus.Gauge
}

// NewRecorder registers the solve metrics on `reg`. A nil registerer defaults to the
// global Prometheus registerer. Collectors already registered by a previous recorder are
// reused.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	solves, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fjsp_solves_total",
		Help: "Total number of solves by objective and final status",
	}, []string{"objective", "status"}))
	if err != nil {
		return nil, err
	}
	wallTime, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fjsp_solve_wall_seconds",
		Help:    "Wall time spent in the solver",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"objective"}))
	if err != nil {
		return nil, err
	}
	conflicts, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fjsp_solver_conflicts_total",
		Help: "Conflicts reported by the solver",
	}))
	if err != nil {
		return nil, err
	}
	branches, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fjsp_solver_branches_total",
		Help: "Branches reported by the solver",
	}))
	if err != nil {
		return nil, err
	}
	intervals, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fjsp_model_intervals",
		Help: "Number of machine intervals in the last solved model",
	}))
	if err != nil {
		return nil, err
	}
	return &Recorder{
		solves:    solves,
		wallTime:  wallTime,
		conflicts: conflicts,
		branches:  branches,
		intervals: intervals,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return c, err
		}
		existing, ok := are.ExistingCollector.(C)
		if !ok {
			return c, err
		}
		return existing, nil
	}
	return c, nil
}

// ObserveSolve records one solve.
func (r *Recorder) ObserveSolve(s Solve) {
	if r == nil {
		return
	}
	r.solves.WithLabelValues(s.Objective, s.Status).Inc()
	r.wallTime.WithLabelValues(s.Objective).Observe(s.WallTime.Seconds())
	r.conflicts.Add(float64(max(s.Conflicts, 0)))
	r.branches.Add(float64(max(s.Branches, 0)))
	r.intervals.Set(float64(s.Intervals))
}

// WriteTextfile writes every metric gathered by `g` to `path` in the text format read by
// the node exporter textfile collector.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}
