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

func TestFinalizeColumnIDsTupleAliasesInputs(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64, dflow.TypeI64})
	tup := node.NewTuple(a, sel.Columns())

	FinalizeColumnIDs(ctx)

	assert.Equal(t, sel.Columns()[0].EqID, tup.Columns()[0].EqID)
	assert.Equal(t, sel.Columns()[1].EqID, tup.Columns()[1].EqID)
	assert.NotEqual(t, tup.Columns()[0].EqID, tup.Columns()[1].EqID)
}

func TestFinalizeColumnIDsCompareEqualityUnifiesOperands(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64, dflow.TypeI64})
	lhs, rhs := sel.Columns()[0], sel.Columns()[1]
	cmp := node.NewCompare(a, dflow.CompareEq, lhs, rhs, nil)

	FinalizeColumnIDs(ctx)

	// The equality output, LHS, and RHS all land in one equivalence class.
	assert.Equal(t, lhs.EqID, rhs.EqID)
	assert.Equal(t, lhs.EqID, cmp.Columns()[0].EqID)
}

func TestFinalizeColumnIDsSelectsMintFreshClasses(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	relA := a.Relation("a", &dflow.Declaration{Name: "a"})
	relB := a.Relation("b", &dflow.Declaration{Name: "b"})
	selA := node.NewRelationSelect(a, relA, []dflow.TypeTag{dflow.TypeI64})
	selB := node.NewRelationSelect(a, relB, []dflow.TypeTag{dflow.TypeI64})

	FinalizeColumnIDs(ctx)

	assert.NotEqual(t, selA.Columns()[0].EqID, selB.Columns()[0].EqID)
}
