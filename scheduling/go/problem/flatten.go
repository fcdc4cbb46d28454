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

package problem

import (
	"fmt"
	"strings"
)

// DiscoveryPolicy selects which operations are scanned to build the machine alphabet.
type DiscoveryPolicy int

const (
	// DiscoverFirstOperation only scans the first operation of every job. A machine used
	// exclusively by later operations gets no index.
	DiscoverFirstOperation DiscoveryPolicy = iota
	// DiscoverAllOperations scans every operation of every job.
	DiscoverAllOperations
)

func (d DiscoveryPolicy) String() string {
	switch d {
	case DiscoverFirstOperation:
		return "first-operation"
	case DiscoverAllOperations:
		return "all-operations"
	}
	return fmt.Sprintf("DiscoveryPolicy(%d)", int(d))
}

// ParseDiscoveryPolicy parses "first-operation" or "all-operations".
func ParseDiscoveryPolicy(s string) (DiscoveryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first-operation":
		return DiscoverFirstOperation, nil
	case "all-operations":
		return DiscoverAllOperations, nil
	}
	return 0, fmt.Errorf("unknown machine discovery policy %q (want first-operation or all-operations)", s)
}

// Alternative is a task whose machine has been replaced by its dense index.
type Alternative struct {
	Duration int64
	Machine  int
}

// FlatJob is the index-based view of a job.
type FlatJob struct {
	Name    string
	DueDate int64
	// Operations holds, in routing order, the alternatives of every operation.
	Operations [][]Alternative
}

// Flat is the index-based view of a problem. Machines[i] is the name of machine i.
type Flat struct {
	Machines []string
	Jobs     []FlatJob
}

// NumMachines returns the size of the machine alphabet.
func (f *Flat) NumMachines() int {
	return len(f.Machines)
}

// Machines returns the machine alphabet: machine names in order of first appearance,
// scanning jobs in declaration order and, within a job, the operations selected by
// `policy`.
func (p *Problem) Machines(policy DiscoveryPolicy) []string {
	var machines []string
	seen := make(map[string]bool)
	for _, job := range p.Jobs {
		ops := job.Operations
		if policy == DiscoverFirstOperation && len(ops) > 1 {
			ops = ops[:1]
		}
		for _, op := range ops {
			for _, t := range op.Tasks {
				if !seen[t.Machine] {
					seen[t.Machine] = true
					machines = append(machines, t.Machine)
				}
			}
		}
	}
	return machines
}

// Flatten validates the problem and returns its index-based view. It fails with
// ErrUndiscoveredMachine when an alternative uses a machine outside the alphabet of
// `policy`.
func (p *Problem) Flatten(policy DiscoveryPolicy) (*Flat, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	machines := p.Machines(policy)
	index := make(map[string]int, len(machines))
	for i, m := range machines {
		index[m] = i
	}

	flat := &Flat{Machines: machines, Jobs: make([]FlatJob, len(p.Jobs))}
	for j, job := range p.Jobs {
		fj := FlatJob{Name: job.Name, DueDate: job.DueDate, Operations: make([][]Alternative, len(job.Operations))}
		for o, op := range job.Operations {
			alts := make([]Alternative, len(op.Tasks))
			for a, t := range op.Tasks {
				m, ok := index[t.Machine]
				if !ok {
					return nil, fmt.Errorf("job %d (%q) operation %d: %w: %q is not in the %s alphabet, use the %s policy", j, job.Name, o, ErrUndiscoveredMachine, t.Machine, policy, DiscoverAllOperations)
				}
				alts[a] = Alternative{Duration: t.Duration, Machine: m}
			}
			fj.Operations[o] = alts
		}
		flat.Jobs[j] = fj
	}
	return flat, nil
}
