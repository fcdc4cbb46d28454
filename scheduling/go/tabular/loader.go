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

// Package tabular loads flexible job-shop problems from CSV production schedules.
//
// Every data row describes a job with a single operation that has a single
// alternative: a name, a machine and a duration written in the compact duration
// notation (see ParseDuration). The header row is skipped.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/golang/glog"

	"github.com/fjsp-sat/fjsp/scheduling/go/problem"
)

// ErrMalformedInput is returned for rows with missing columns or unparsable values.
var ErrMalformedInput = errors.New("malformed input")

// Columns maps the record fields to zero-based CSV column indices. DueDate is optional
// and disabled with a negative index.
type Columns struct {
	Name     int `json:"name"`
	Machine  int `json:"machine"`
	Duration int `json:"duration"`
	DueDate  int `json:"dueDate"`
}

// DefaultColumns returns the layout name, machine, duration without a due date column.
func DefaultColumns() Columns {
	return Columns{Name: 0, Machine: 1, Duration: 2, DueDate: -1}
}

// Validate checks the mapping uses non-negative indices for the mandatory fields.
func (c Columns) Validate() error {
	if c.Name < 0 || c.Machine < 0 || c.Duration < 0 {
		return fmt.Errorf("invalid column mapping %+v: name, machine and duration must be >= 0", c)
	}
	return nil
}

func (c Columns) width() int {
	w := max(c.Name, c.Machine, c.Duration, c.DueDate)
	return w + 1
}

// Load reads a problem from CSV data.
func Load(r io.Reader, cols Columns) (*problem.Problem, error) {
	if err := cols.Validate(); err != nil {
		return nil, err
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	// Skip headers.
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty input", ErrMalformedInput)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	var jobs []problem.Job
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		line, _ := reader.FieldPos(0)
		job, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		jobs = append(jobs, job)
	}
	log.V(1).Infof("Loaded %d jobs", len(jobs))
	return problem.New(jobs...), nil
}

// LoadFile reads a problem from the CSV file at `path`.
func LoadFile(path string, cols Columns) (*problem.Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Load(f, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func parseRow(row []string, cols Columns) (problem.Job, error) {
	if len(row) < cols.width() {
		return problem.Job{}, fmt.Errorf("%w: %d columns, want at least %d", ErrMalformedInput, len(row), cols.width())
	}
	duration, err := ParseDuration(row[cols.Duration])
	if err != nil {
		return problem.Job{}, err
	}
	var due int64
	if cols.DueDate >= 0 {
		text := strings.TrimSpace(row[cols.DueDate])
		if due, err = ParseDuration(text); err != nil {
			return problem.Job{}, err
		}
		// A bare number would silently read as 0s.
		if due == 0 && text != "" && text != "0" && !strings.ContainsAny(text, "dhms") {
			return problem.Job{}, fmt.Errorf("%w: due date %q has no unit", ErrMalformedInput, text)
		}
	}
	task := problem.Task{Machine: row[cols.Machine], Duration: duration}
	return problem.NewJob(row[cols.Name], due, problem.NewOperation(task)), nil
}
