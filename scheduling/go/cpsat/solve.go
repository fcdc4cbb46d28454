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

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	log "github.com/golang/glog"
	"google.golang.org/protobuf/proto"

	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
	sppb "github.com/google/or-tools/ortools/sat/proto/satparameters"

	"github.com/fjsp-sat/fjsp/scheduling/go/solver"
)

/*
#cgo LDFLAGS: -lortools
#include <stdlib.h> // for free
#include <stdint.h>
#include "ortools/sat/go/cpmodel/cp_solver_c.h"
*/
import "C"

// Solve implements solver.Session. Cancelling `ctx` stops the search; the response then
// holds the best solution found so far.
func (s *Session) Solve(ctx context.Context, params solver.Parameters) (*solver.Response, error) {
	m, err := s.Proto()
	if err != nil {
		return nil, err
	}
	log.V(1).Infof("Solving model with %d variables and %d constraints", len(m.GetVariables()), len(m.GetConstraints()))

	res, err := solveNative(ctx, m, satParameters(params))
	if err != nil {
		return nil, err
	}
	if params.Observer != nil {
		for _, inc := range incumbents(m.GetObjective(), res) {
			params.Observer(inc)
		}
	}
	return response(res), nil
}

// cBuffer marshals `m` into C memory the caller must free.
func cBuffer(m proto.Message) (unsafe.Pointer, C.int, error) {
	b, err := proto.Marshal(m)
	if err != nil {
		return nil, 0, err
	}
	return C.CBytes(b), C.int(len(b)), nil
}

// solveNative runs CP-SAT on `m` until it stops or `ctx` is done.
func solveNative(ctx context.Context, m *cmpb.CpModelProto, params *sppb.SatParameters) (*cmpb.CpSolverResponse, error) {
	model, modelLen, err := cBuffer(m)
	if err != nil {
		return nil, fmt.Errorf("cpsat: marshal model: %w", err)
	}
	defer C.free(model)
	sat, satLen, err := cBuffer(params)
	if err != nil {
		return nil, fmt.Errorf("cpsat: marshal parameters: %w", err)
	}
	defer C.free(sat)

	st := newStopper()
	defer st.release()
	unwatch := context.AfterFunc(ctx, st.stop)
	defer unwatch()
	if ctx.Err() != nil {
		st.stop()
	}

	var out unsafe.Pointer
	var outLen C.int
	C.SolveCpInterruptible(st.ptr, model, modelLen, sat, satLen, &out, &outLen)
	defer C.free(out)

	res := &cmpb.CpSolverResponse{}
	if err := proto.Unmarshal(C.GoBytes(out, outLen), res); err != nil {
		return nil, fmt.Errorf("cpsat: unmarshal response: %w", err)
	}
	return res, nil
}

// stopper owns the native flag polled by a running search.
type stopper struct {
	mu  sync.Mutex
	ptr unsafe.Pointer
}

func newStopper() *stopper {
	return &stopper{ptr: C.SolveCpNewAtomicBool()}
}

// stop raises the flag. It is a no-op after release.
func (st *stopper) stop() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ptr != nil {
		C.SolveCpStopSolve(st.ptr)
	}
}

func (st *stopper) release() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.ptr != nil {
		C.SolveCpDestroyAtomicBool(st.ptr)
		st.ptr = nil
	}
}
