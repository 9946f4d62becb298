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
	"sort"

	"github.com/dlflow/compiler/dflow"
)

// LinkPredecessorsSuccessors (re)computes Base.Predecessors/Successors for
// every live view from the current column-use graph, so back-ends can walk
// the DFG without rediscovering edges from raw column references (spec §6:
// "per view... predecessors, successors").
func LinkPredecessorsSuccessors(ctx *dflow.Context) {
	span, finish := ctx.StartSpan("finalize.LinkPredecessorsSuccessors")
	defer finish()
	_ = span

	views := ctx.Arena.LiveViews()
	succ := map[dflow.ViewID]map[dflow.ViewID]bool{}
	for _, v := range views {
		v.Base().Predecessors = nil
	}
	for _, v := range views {
		preds := dflow.DirectPredecessors(v)
		ids := make([]dflow.ViewID, 0, len(preds))
		for _, p := range preds {
			ids = append(ids, p.ID())
			if succ[p.ID()] == nil {
				succ[p.ID()] = map[dflow.ViewID]bool{}
			}
			succ[p.ID()][v.ID()] = true
		}
		v.Base().Predecessors = ids
	}
	for _, v := range views {
		set := succ[v.ID()]
		ids := make([]dflow.ViewID, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		v.Base().Successors = ids
	}
}
