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

package optimize

import (
	"github.com/dlflow/compiler/dflow"
	"github.com/dlflow/compiler/dflow/canon"
)

// Run drives canonicalization, CSE and dead-flow elimination to a joint
// fixpoint (spec §4.4: "CSE is run to fixpoint against canonicalization"),
// then applies the optional condition-sink pass once the graph has
// stabilized. Each constituent pass is individually disable-able via
// Config, mirroring go-mysql-server's per-rule analyzer toggles.
func Run(ctx *dflow.Context) {
	span, finish := ctx.StartSpan("optimize.Run")
	defer finish()
	_ = span

	maxIter := ctx.Config.MaxFixpointIterations
	if maxIter <= 0 {
		maxIter = 10_000
	}

	iter := 0
	for {
		iter++
		_, _ = canon.Run(ctx)

		changed := false
		if !ctx.Config.DisableCSE {
			// CSE's StructEquals checks rely on GroupIDs to keep two
			// otherwise-identical SELECTs apart (spec §4.2), so every live
			// view's set must be fresh before comparing.
			RelabelGroupIDs(ctx)
			changed = CSE(ctx) || changed
		}
		if !ctx.Config.DisableDeadFlowElim {
			changed = DeadFlowElim(ctx) || changed
		}
		if !changed {
			break
		}
		if iter >= maxIter {
			ctx.Logger.Warnf("optimize.Run: canon+CSE+dead-flow-elim did not converge after %d iterations", iter)
			break
		}
		if ctx.Cancelled() {
			return
		}
	}

	SinkConditions(ctx)
}
