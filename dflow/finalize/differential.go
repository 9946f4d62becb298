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

import (
	"github.com/dlflow/compiler/dflow"
	"github.com/dlflow/compiler/dflow/diag"
	"github.com/dlflow/compiler/dflow/node"
)

// ClassifyDifferential computes can_receive_deletions/can_produce_deletions
// for every live view by fixpoint (spec §4.7), grounded on
// original_source/lib/DataFlow/Differential.cpp's forward-propagation
// shape translated into Go's worklist-free, repeat-to-fixpoint idiom
// already used by dflow/canon and dflow/optimize. Emits
// diag.ErrDifferentialDiscrepancy for any message declared non-differential
// whose INS still ends up can_produce_deletions.
func ClassifyDifferential(ctx *dflow.Context) {
	span, finish := ctx.StartSpan("finalize.ClassifyDifferential")
	defer finish()
	_ = span

	views := ctx.Arena.LiveViews()
	for changed := true; changed; {
		changed = false
		for _, v := range views {
			b := v.Base()
			recv := b.CanReceiveDeletions
			prod := b.CanProduceDeletions

			if isConditionalTester(b) {
				recv = true
			}
			if sel, ok := v.(*node.Select); ok && sel.Source == node.SourceMessage &&
				sel.IO != nil && sel.IO.Decl != nil && sel.IO.Decl.Differential {
				recv = true
			}
			for _, p := range dflow.DirectPredecessors(v) {
				if p.Base().CanProduceDeletions {
					recv = true
					break
				}
			}

			if isUnconditionalProducer(v) || isConditionalTester(b) || recv {
				prod = true
			}

			if recv != b.CanReceiveDeletions || prod != b.CanProduceDeletions {
				b.CanReceiveDeletions = recv
				b.CanProduceDeletions = prod
				changed = true
			}
		}
	}

	checkDifferentialDiscrepancies(ctx, views)
}

func isConditionalTester(b *dflow.Base) bool {
	return len(b.PosConditions) > 0 || len(b.NegConditions) > 0
}

// isUnconditionalProducer reports whether v's kind always produces
// deletions regardless of reachability: NEGATE, KVINDEX, AGGREGATE, and a
// MAP over an impure functor (spec §4.7).
func isUnconditionalProducer(v dflow.View) bool {
	switch t := v.(type) {
	case *node.Negate:
		return true
	case *node.KVIndex:
		return true
	case *node.Aggregate:
		return true
	case *node.Map:
		return t.Impure
	}
	return false
}

// checkDifferentialDiscrepancies flags a non-differential message whose
// realized INS ended up producing deletions anyway (spec §4.7: "Messages
// declared non-differential whose INS nevertheless ends up
// can_produce_deletions trigger a diagnostic").
func checkDifferentialDiscrepancies(ctx *dflow.Context, views []dflow.View) {
	for _, v := range views {
		ins, ok := v.(*node.Insert)
		if !ok || ins.IO == nil || ins.IO.Decl == nil {
			continue
		}
		if ins.IO.Decl.Differential {
			continue
		}
		if ins.Base().CanProduceDeletions {
			ctx.Log.SemanticErr(diag.Range{}, diag.ErrDifferentialDiscrepancy.New(ins.IO.Decl.Name))
		}
	}
}
