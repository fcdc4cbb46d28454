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

// Package problem holds the flexible job-shop problem: jobs made of ordered operations,
// each operation executable by one of several (machine, duration) alternatives.
//
// A `Problem` is built once and never modified by this package: `Flatten` and
// `MixMachines` return new values. `Flatten` interns machine names to dense indices and
// produces the index-based view consumed by the model builder.
package problem

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyProblem is returned for a problem without jobs.
	ErrEmptyProblem = errors.New("problem has no jobs")
	// ErrEmptyJob is returned for a job without operations.
	ErrEmptyJob = errors.New("job has no operations")
	// ErrInvalidOperation is returned for an operation without alternatives.
	ErrInvalidOperation = errors.New("operation has no alternatives")
	// ErrInvalidTask is returned for an alternative with an empty machine or a
	// non-positive duration.
	ErrInvalidTask = errors.New("invalid alternative")
	// ErrInvalidDueDate is returned for a negative due date.
	ErrInvalidDueDate = errors.New("due date must be non-negative")
	// ErrUndiscoveredMachine is returned when an alternative uses a machine that the
	// discovery policy did not index.
	ErrUndiscoveredMachine = errors.New("machine not discovered")
)

// Task is one way to execute an operation: a machine and a processing duration.
type Task struct {
	Machine  string
	Duration int64
}

// Operation is a unit of work of a job, executed by exactly one of its Tasks.
type Operation struct {
	Tasks []Task
}

// Job is a sequence of operations executed in order.
type Job struct {
	Name       string
	Operations []Operation
	// DueDate is the time by which the last operation should end.
	DueDate int64
}

// Problem is a set of jobs competing for machines.
type Problem struct {
	Jobs []Job
}

// New returns a problem made of the given jobs.
func New(jobs ...Job) *Problem {
	return &Problem{Jobs: jobs}
}

// NewJob returns a job with the given operations and due date.
func NewJob(name string, dueDate int64, ops ...Operation) Job {
	return Job{Name: name, Operations: ops, DueDate: dueDate}
}

// NewOperation returns an operation executable by any of the tasks.
func NewOperation(tasks ...Task) Operation {
	return Operation{Tasks: tasks}
}

// Validate checks the problem is well formed. The first problem found is returned,
// wrapped with the location of the faulty element.
func (p *Problem) Validate() error {
	if p == nil || len(p.Jobs) == 0 {
		return ErrEmptyProblem
	}
	for j, job := range p.Jobs {
		if job.DueDate < 0 {
			return fmt.Errorf("job %d (%q): %w, got %d", j, job.Name, ErrInvalidDueDate, job.DueDate)
		}
		if len(job.Operations) == 0 {
			return fmt.Errorf("job %d (%q): %w", j, job.Name, ErrEmptyJob)
		}
		for o, op := range job.Operations {
			if len(op.Tasks) == 0 {
				return fmt.Errorf("job %d (%q) operation %d: %w", j, job.Name, o, ErrInvalidOperation)
			}
			for a, t := range op.Tasks {
				if strings.TrimSpace(t.Machine) == "" {
					return fmt.Errorf("job %d (%q) operation %d alternative %d: %w: empty machine", j, job.Name, o, a, ErrInvalidTask)
				}
				if t.Duration <= 0 {
					return fmt.Errorf("job %d (%q) operation %d alternative %d: %w: duration %d is not positive", j, job.Name, o, a, ErrInvalidTask, t.Duration)
				}
			}
		}
	}
	return nil
}

// NumOperations returns the total number of operations of the problem.
func (p *Problem) NumOperations() int {
	n := 0
	for _, job := range p.Jobs {
		n += len(job.Operations)
	}
	return n
}

// MixMachines returns a copy of the problem where every operation can run on every
// machine discovered with `policy`, in discovery order, with the duration of the
// operation's first alternative. The receiver is left untouched.
func (p *Problem) MixMachines(policy DiscoveryPolicy) *Problem {
	machines := p.Machines(policy)
	mixed := &Problem{Jobs: make([]Job, len(p.Jobs))}
	for j, job := range p.Jobs {
		ops := make([]Operation, len(job.Operations))
		for o, op := range job.Operations {
			if len(op.Tasks) == 0 {
				continue
			}
			duration := op.Tasks[0].Duration
			tasks := make([]Task, len(machines))
			for m, name := range machines {
				tasks[m] = Task{Machine: name, Duration: duration}
			}
			ops[o] = Operation{Tasks: tasks}
		}
		mixed.Jobs[j] = Job{Name: job.Name, Operations: ops, DueDate: job.DueDate}
	}
	return mixed
}
