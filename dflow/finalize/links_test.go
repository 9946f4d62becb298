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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dlflow/compiler/dflow"
	"github.com/dlflow/compiler/dflow/node"
)

func TestLinkPredecessorsSuccessorsWiresBothDirections(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	tup := node.NewTuple(a, sel.Columns())
	ins := node.NewRelationInsert(a, rel, tup.Columns())

	LinkPredecessorsSuccessors(ctx)

	assert.Equal(t, []dflow.ViewID{sel.ID()}, tup.Base().Predecessors)
	assert.Equal(t, []dflow.ViewID{tup.ID()}, ins.Base().Predecessors)
	assert.Equal(t, []dflow.ViewID{tup.ID()}, sel.Base().Successors)
	assert.Equal(t, []dflow.ViewID{ins.ID()}, tup.Base().Successors)
	assert.Empty(t, ins.Base().Successors)
	assert.Empty(t, sel.Base().Predecessors)
}

func TestLinkPredecessorsSuccessorsSortsMultipleSuccessors(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	tup1 := node.NewTuple(a, sel.Columns())
	tup2 := node.NewTuple(a, sel.Columns())

	LinkPredecessorsSuccessors(ctx)

	succs := sel.Base().Successors
	assert.Len(t, succs, 2)
	assert.True(t, succs[0] < succs[1])
	ids := map[dflow.ViewID]bool{tup1.ID(): true, tup2.ID(): true}
	assert.True(t, ids[succs[0]] && ids[succs[1]])
}
