// Copyright 2020-2021 Dolthub, Inc.
//
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

package finalize

import "github.com/dlflow/compiler/dflow"

// Run drives the Finalizer stage in the order spec §4 lists its
// responsibilities: relabel group-ids (already current from induction/CSE,
// left untouched here), finalize column identifiers, compute predecessor/
// successor links, classify differential-update capability, verify the DFG
// is internally consistent, then sweep dead nodes and build the back-end-
// facing Output. Returns nil if CheckInvariants logged an Internal
// diagnostic (spec §7 policy: no finalized output once that happens).
func Run(ctx *dflow.Context) *Output {
	span, finish := ctx.StartSpan("finalize.Run")
	defer finish()
	_ = span

	FinalizeColumnIDs(ctx)
	LinkPredecessorsSuccessors(ctx)
	ClassifyDifferential(ctx)

	if !CheckInvariants(ctx) {
		return nil
	}

	ctx.Arena.Sweep()

	return BuildOutput(ctx)
}
