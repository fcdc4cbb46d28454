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

// The fjsp command solves flexible job-shop problems with CP-SAT.
package main

import (
	log "github.com/golang/glog"

	"github.com/fjsp-sat/fjsp/cmd/fjsp/cli"
	"github.com/fjsp-sat/fjsp/scheduling/go/cpsat"
)

func main() {
	defer log.Flush()
	if err := cli.NewRootCmd(cpsat.Factory()).Execute(); err != nil {
		log.Exitf("fjsp: %v", err)
	}
}
