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

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlflow/compiler/dflow"
	"github.com/dlflow/compiler/dflow/node"
)

func TestBuildOutputSnapshotsLiveViewsAndConditions(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	ins := node.NewRelationInsert(a, rel, sel.Columns())

	c := a.NewCondition()
	c.SetConditionOn(sel)
	c.AddPositiveTester(ins)

	FinalizeColumnIDs(ctx)
	LinkPredecessorsSuccessors(ctx)
	ClassifyDifferential(ctx)

	out := BuildOutput(ctx)

	require.Len(t, out.Views, 2)
	require.Len(t, out.Conditions, 1)

	byID := map[dflow.ViewID]ViewSnapshot{}
	for _, v := range out.Views {
		byID[v.ID] = v
	}
	assert.Equal(t, []dflow.ViewID{sel.ID()}, byID[ins.ID()].Predecessors)
	assert.Equal(t, []dflow.ViewID{ins.ID()}, byID[sel.ID()].Successors)

	cond := out.Conditions[0]
	assert.Equal(t, sel.ID(), cond.Setter)
	assert.Equal(t, []dflow.ViewID{ins.ID()}, cond.PositiveTesters)
}

// TestBuildOutputIsIdempotentOnAFinalizedGraph exercises the round-trip
// idempotency law spec §8 states for a graph that's already finalized: a
// second Run/BuildOutput pass over unchanged arena state must snapshot
// byte-for-byte the same Output, since nothing upstream left anything to
// rewrite. go-cmp diffs the two snapshots field by field rather than
// relying on reflect.DeepEqual's less readable failure output.
func TestBuildOutputIsIdempotentOnAFinalizedGraph(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	ins := node.NewRelationInsert(a, rel, sel.Columns())

	c := a.NewCondition()
	c.SetConditionOn(sel)
	c.AddPositiveTester(ins)

	FinalizeColumnIDs(ctx)
	LinkPredecessorsSuccessors(ctx)
	ClassifyDifferential(ctx)
	first := BuildOutput(ctx)

	FinalizeColumnIDs(ctx)
	LinkPredecessorsSuccessors(ctx)
	ClassifyDifferential(ctx)
	second := BuildOutput(ctx)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("BuildOutput not idempotent on an already-finalized graph (-first +second):\n%s", diff)
	}
}

func TestBuildOutputOmitsDeadViews(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	sel.IsDead = true

	out := BuildOutput(ctx)

	assert.Empty(t, out.Views)
}
