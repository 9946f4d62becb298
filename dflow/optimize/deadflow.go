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

// DeadFlowElim marks every view unreachable from a live root dead (spec
// §4.5). A view is live iff reachable by transitive data flow from a view
// whose inputs originate at an external stream (a received message) or
// from an all-constants view. Returns whether anything changed.
func DeadFlowElim(ctx *dflow.Context) bool {
	span, finish := ctx.StartSpan("optimize.DeadFlowElim")
	defer finish()
	_ = span

	live := computeLiveSet(ctx)

	changed := false
	for _, v := range ctx.Arena.LiveViews() {
		if !live[v.ID()] {
			v.Base().IsDead = true
			changed = true
		}
	}
	if changed {
		changed = killDanglingConditions(ctx) || changed
	}
	return changed
}

// computeLiveSet floods forward from every root (a SELECT over a message
// or constant stream) through column uses and the merged/joined/
// inserted-into relationships, applying the special rules of spec §4.5:
// a JOIN is only live if every joined view is live; a SELECT over a
// relation pulls liveness from that relation's live INSERTs.
func computeLiveSet(ctx *dflow.Context) map[dflow.ViewID]bool {
	live := map[dflow.ViewID]bool{}
	views := ctx.Arena.LiveViews()

	var roots []dflow.View
	for _, v := range views {
		sel, ok := v.(*node.Select)
		if !ok {
			continue
		}
		if sel.Source == node.SourceMessage || sel.Source == node.SourceConstant || sel.Source == node.SourceTag {
			roots = append(roots, v)
		}
	}

	// Fixpoint: mark roots live, then repeatedly mark any view reachable
	// from a live view via column use, join/merge membership, or
	// relation-select<-insert linkage, honoring the all-joined-views-live
	// rule for JOIN. A plain worklist suffices since the graph is finite
	// and monotone.
	queue := append([]dflow.View(nil), roots...)
	for _, v := range queue {
		live[v.ID()] = true
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]

		for _, col := range v.Columns() {
			col.ForEachLiveUser(func(user dflow.View) {
				if live[user.ID()] {
					return
				}
				if j, ok := user.(*node.Join); ok && !allJoinedLive(j, live) {
					return
				}
				live[user.ID()] = true
				queue = append(queue, user)
			})
		}

		if sel, ok := v.(*node.Select); ok && sel.Source == node.SourceRelation && sel.Relation != nil {
			for _, ins := range sel.Relation.Inserts {
				if ins.Base().IsDead || live[ins.ID()] {
					continue
				}
				live[ins.ID()] = true
				queue = append(queue, ins)
			}
		}
	}

	// A JOIN may have been skipped above while one of its joined views was
	// still unknown; sweep once more until no new join becomes live.
	for progress := true; progress; {
		progress = false
		for _, v := range views {
			j, ok := v.(*node.Join)
			if !ok || live[j.ID()] {
				continue
			}
			if allJoinedLive(j, live) {
				anyInputLive := false
				for _, col := range j.InputColumns() {
					if col.View != nil && live[col.View.ID()] {
						anyInputLive = true
						break
					}
				}
				if anyInputLive {
					live[j.ID()] = true
					progress = true
				}
			}
		}
	}

	return live
}

func allJoinedLive(j *node.Join, live map[dflow.ViewID]bool) bool {
	for _, jv := range j.JoinedViews {
		if !live[jv.ID()] {
			return false
		}
	}
	return true
}

// killDanglingConditions unlinks negative testers and kills (marks unsat)
// positive testers of any condition whose setter just died, repeating to
// fixpoint since killing a positive tester can itself cause further
// conditions to dangle (spec §4.5: "the cycle of kill-propagation repeats
// until fixpoint").
func killDanglingConditions(ctx *dflow.Context) bool {
	changed := false
	for progress := true; progress; {
		progress = false
		for _, v := range ctx.Arena.LiveViews() {
			b := v.Base()
			if b.SetCondition == nil || !b.IsDead {
				continue
			}
			cond := b.SetCondition
			for _, tester := range cond.NegativeTesters {
				// vacuously true: nothing to do structurally beyond
				// letting canonicalization drop the now-unconditional
				// test on its next pass.
				_ = tester
			}
			for _, tester := range cond.PositiveTesters {
				if !tester.Base().IsUnsat {
					tester.Base().IsUnsat = true
					progress = true
					changed = true
				}
			}
			cond.NegativeTesters = nil
			cond.PositiveTesters = nil
		}
	}
	return changed
}
