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
	"github.com/stretchr/testify/require"

	"github.com/dlflow/compiler/dflow"
	"github.com/dlflow/compiler/dflow/node"
)

func TestCheckInvariantsPassesOnWellFormedGraph(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	_ = node.NewRelationInsert(a, rel, sel.Columns())

	assert.True(t, CheckInvariants(ctx))
	assert.False(t, ctx.Log.HasInternalErrors())
}

func TestCheckInvariantsCatchesMultiPredecessorView(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	selA := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	selB := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})

	// A well-formed TUPLE never mixes two distinct non-constant
	// predecessors across its inputs (invariant I2); build one by hand to
	// exercise the invariant checker's failure path.
	bad := node.NewTuple(a, []*dflow.Column{selA.Columns()[0], selB.Columns()[0]})
	_ = bad

	assert.False(t, CheckInvariants(ctx))
	assert.True(t, ctx.Log.HasInternalErrors())
	require.Len(t, ctx.Log.Entries(), 1)
	require.Len(t, ctx.Log.Entries()[0].Notes, 1)
	assert.Contains(t, ctx.Log.Entries()[0].Notes[0].Message, "TUPLE")
}

func TestCheckInvariantsCatchesDesyncedConditionTester(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	setter := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	tester := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})

	c := a.NewCondition()
	c.SetConditionOn(setter)
	// Desync by hand: record tester on the condition's side only, skipping
	// AddPositiveTester's normal two-way update.
	c.PositiveTesters = append(c.PositiveTesters, tester)

	assert.False(t, CheckInvariants(ctx))
	assert.True(t, ctx.Log.HasInternalErrors())
}
