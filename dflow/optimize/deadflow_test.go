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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dlflow/compiler/dflow"
	"github.com/dlflow/compiler/dflow/node"
)

func TestDeadFlowElimKeepsChainReachableFromMessageRoot(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	io := a.IOByName("events", &dflow.Declaration{Name: "events", Kind: dflow.DeclMessage})
	sel := node.NewMessageSelect(a, io, []dflow.TypeTag{dflow.TypeI64})
	tup := node.NewTuple(a, sel.Columns())

	changed := DeadFlowElim(ctx)

	assert.False(t, changed)
	assert.False(t, sel.IsDead)
	assert.False(t, tup.IsDead)
}

func TestDeadFlowElimKillsUnreachableRelationSelect(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	// A SELECT reading from a relation is not itself a root (spec §4.5);
	// with nothing flowing into it from a message/constant root, it is
	// unreachable and must be pruned.
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})

	changed := DeadFlowElim(ctx)

	assert.True(t, changed)
	assert.True(t, sel.IsDead)
}

func TestDeadFlowElimKillsDanglingPositiveTesterOfDeadSetter(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	setter := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64}) // unreachable, will die
	io := a.IOByName("events", &dflow.Declaration{Name: "events", Kind: dflow.DeclMessage})
	tester := node.NewMessageSelect(a, io, []dflow.TypeTag{dflow.TypeI64}) // reachable root

	c := a.NewCondition()
	c.SetConditionOn(setter)
	c.AddPositiveTester(tester)

	DeadFlowElim(ctx)

	assert.True(t, setter.IsDead)
	assert.True(t, tester.IsUnsat)
}
