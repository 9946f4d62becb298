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
	"fmt"

	"github.com/dlflow/compiler/dflow"
	"github.com/dlflow/compiler/dflow/diag"
)

// CheckInvariants verifies the internal-inconsistency class of spec §7 kind
// 3 before output is handed to a back-end: every live view's non-constant
// input/attached columns must originate from one predecessor view (I2), and
// every condition's setter/tester back-reference lists must agree with the
// PosConditions/NegConditions each tester records on itself. A violation is
// logged as Internal and the caller must discard any finalized Output (spec
// §7 policy). Returns whether compilation is still sound.
func CheckInvariants(ctx *dflow.Context) bool {
	span, finish := ctx.StartSpan("finalize.CheckInvariants")
	defer finish()
	_ = span

	sound := true
	for _, v := range ctx.Arena.LiveViews() {
		if !checkSinglePredecessor(ctx, v) {
			sound = false
		}
	}
	for _, c := range ctx.Arena.Conditions() {
		if !checkConditionSync(ctx, c) {
			sound = false
		}
	}
	return sound
}

func checkSinglePredecessor(ctx *dflow.Context, v dflow.View) bool {
	all := append(append([]*dflow.Column(nil), v.InputColumns()...), v.AttachedColumns()...)
	if _, ok := dflow.CheckIncomingViewsMatch(all); !ok {
		ctx.Log.InternalErr(diag.Range{}, diag.ErrInvariantViolation.New(
			fmt.Sprintf("view %d (%s) has input/attached columns from more than one predecessor", v.ID(), v.Kind())),
			dumpNote(v))
		return false
	}
	return true
}

// dumpNote renders v's subtree (spec §7: "mark the offending view with a
// tag the dumper can render") as a Note attached to the violating
// diagnostic, so a back-end can print exactly the shape that triggered it.
func dumpNote(v dflow.View) diag.Note {
	return diag.Note{Message: dflow.Dump([]dflow.View{v})}
}

func checkConditionSync(ctx *dflow.Context, c *dflow.Condition) bool {
	sound := true
	for _, tester := range c.PositiveTesters {
		if tester.Base().IsDead {
			continue
		}
		if !containsCondition(tester.Base().PosConditions, c) {
			ctx.Log.InternalErr(diag.Range{}, diag.ErrInvariantViolation.New(
				fmt.Sprintf("condition %d lists view %d as a positive tester but the view's PosConditions disagrees", c.ID(), tester.ID())),
				dumpNote(tester))
			sound = false
		}
	}
	for _, tester := range c.NegativeTesters {
		if tester.Base().IsDead {
			continue
		}
		if !containsCondition(tester.Base().NegConditions, c) {
			ctx.Log.InternalErr(diag.Range{}, diag.ErrInvariantViolation.New(
				fmt.Sprintf("condition %d lists view %d as a negative tester but the view's NegConditions disagrees", c.ID(), tester.ID())),
				dumpNote(tester))
			sound = false
		}
	}
	return sound
}

func containsCondition(list []*dflow.Condition, c *dflow.Condition) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}
