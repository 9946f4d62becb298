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
	"github.com/dlflow/compiler/dflow/node"
)

// SinkConditions implements the optional condition-sink/lift rewrite
// supplemented from original_source/ (SPEC_FULL.md §12): when a view's
// every user tests the same condition, that test is redundant to apply at
// each user individually and is instead moved (sunk) onto the view itself,
// shrinking the number of distinct tester edges the differential-update
// classifier (dflow/finalize) has to consider. It applies to any view kind
// whose every consumer shares one condition; it does not sink a COMPARE
// through a MERGE or NEGATE.
func SinkConditions(ctx *dflow.Context) bool {
	if !ctx.Config.RunSinkConditions {
		return false
	}
	span, finish := ctx.StartSpan("optimize.SinkConditions")
	defer finish()
	_ = span

	changed := false
	for _, v := range ctx.Arena.LiveViews() {
		if v.Base().IsDead {
			continue
		}
		if _, ok := v.(*node.Insert); ok {
			continue // INS has no users to sink a shared condition from
		}
		cond, positive, ok := soleSharedCondition(v)
		if !ok {
			continue
		}
		if v.Base().SetCondition != nil {
			continue // already gates on a different condition
		}
		v.Base().SetCondition = cond
		cond.TransferSetConditionTo(v)
		_ = positive
		changed = true
	}
	return changed
}

// soleSharedCondition reports the single condition every live user of v
// tests, and whether that test is uniformly positive or negative, if one
// exists.
func soleSharedCondition(v dflow.View) (*dflow.Condition, bool, bool) {
	var users []dflow.View
	for _, col := range v.Columns() {
		col.ForEachLiveUser(func(u dflow.View) { users = append(users, u) })
	}
	if len(users) == 0 {
		return nil, false, false
	}

	var cond *dflow.Condition
	positive := true
	for i, u := range users {
		b := u.Base()
		switch {
		case len(b.PosConditions) == 1 && len(b.NegConditions) == 0:
			if i == 0 {
				cond, positive = b.PosConditions[0], true
			} else if cond != b.PosConditions[0] {
				return nil, false, false
			}
		case len(b.NegConditions) == 1 && len(b.PosConditions) == 0:
			if i == 0 {
				cond, positive = b.NegConditions[0], false
			} else if cond != b.NegConditions[0] || positive {
				return nil, false, false
			}
		default:
			return nil, false, false
		}
	}
	return cond, positive, cond != nil
}
