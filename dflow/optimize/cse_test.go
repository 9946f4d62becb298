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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dlflow/compiler/dflow"
	"github.com/dlflow/compiler/dflow/node"
)

func newTestContext(t *testing.T) *dflow.Context {
	t.Helper()
	return dflow.NewContext(context.Background(), nil)
}

func TestCSEMergesStructurallyIdenticalTuples(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})

	tup1 := node.NewTuple(a, sel.Columns())
	tup2 := node.NewTuple(a, sel.Columns())

	changed := CSE(ctx)

	assert.True(t, changed)
	assert.True(t, tup1.IsDead != tup2.IsDead, "exactly one duplicate should survive")
}

func TestCSELeavesDistinctViewsAlone(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	relA := a.Relation("a", &dflow.Declaration{Name: "a"})
	relB := a.Relation("b", &dflow.Declaration{Name: "b"})
	selA := node.NewRelationSelect(a, relA, []dflow.TypeTag{dflow.TypeI64})
	selB := node.NewRelationSelect(a, relB, []dflow.TypeTag{dflow.TypeI64})

	tupA := node.NewTuple(a, selA.Columns())
	tupB := node.NewTuple(a, selB.Columns())

	changed := CSE(ctx)

	assert.False(t, changed)
	assert.False(t, tupA.IsDead)
	assert.False(t, tupB.IsDead)
}

func TestCSERespectsMismatchedConditions(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})

	tup1 := node.NewTuple(a, sel.Columns())
	tup2 := node.NewTuple(a, sel.Columns())

	c := a.NewCondition()
	c.AddPositiveTester(tup1)

	changed := CSE(ctx)

	assert.False(t, changed)
	assert.False(t, tup1.IsDead)
	assert.False(t, tup2.IsDead)
}
