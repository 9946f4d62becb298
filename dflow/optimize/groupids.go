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

// ownGroupID reports the group id a JOIN, AGG, or KVINDEX introduces on its
// own account, the three view kinds spec §4.2 names as group-id sources.
func ownGroupID(v dflow.View) (dflow.GroupID, bool) {
	switch n := v.(type) {
	case *node.Join:
		return n.GroupID, true
	case *node.Aggregate:
		return n.GroupID, true
	case *node.KVIndex:
		return n.GroupID, true
	default:
		return 0, false
	}
}

// RelabelGroupIDs recomputes every live view's GroupIDs multiset from
// scratch: JOIN/AGG/KVINDEX views each own a single fresh id, and every
// other view picks up the ids of everything downstream of it, to a
// fixpoint (spec §4.2: "the builder propagates group ids transitively down
// from every such node to all columns reachable from its outputs").
// Grounded on original_source/lib/DataFlow/Optimize.cpp's RelabelGroupIDs,
// which clears every view's set, seeds JOIN/AGG/KVINDEX with a unique id,
// then repeatedly walks each column's users — taking a user's own id
// directly if it has one, or its whole accumulated set otherwise — until
// nothing changes. Must run before CSE compares two views, or two SELECTs
// that only later feed distinct JOINs (spec §8 scenario 2) would still
// look identical and be wrongly merged.
func RelabelGroupIDs(ctx *dflow.Context) {
	span, finish := ctx.StartSpan("optimize.RelabelGroupIDs")
	defer finish()
	_ = span

	views := ctx.Arena.LiveViews()
	sets := make(map[dflow.ViewID]map[dflow.GroupID]int, len(views))
	for _, v := range views {
		s := map[dflow.GroupID]int{}
		if gid, ok := ownGroupID(v); ok {
			s[gid] = 1
		}
		sets[v.Base().ID()] = s
	}

	for changed := true; changed; {
		changed = false
		for _, v := range views {
			s := sets[v.Base().ID()]
			before := len(s)
			for _, col := range v.Columns() {
				col.ForEachLiveUser(func(user dflow.View) {
					if gid, ok := ownGroupID(user); ok {
						s[gid]++
						return
					}
					for ugid, n := range sets[user.Base().ID()] {
						s[ugid] += n
					}
				})
			}
			if len(s) > before {
				changed = true
			}
		}
	}

	for _, v := range views {
		v.Base().GroupIDs = sets[v.Base().ID()]
	}
}
