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

package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlflow/compiler/dflow"
)

func TestMergeDedupesRepeatedBranch(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	sel := NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})

	m := NewMerge(a, []dflow.View{sel, sel}, []dflow.TypeTag{dflow.TypeI64})
	changed, err := m.Canonicalize(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	// A single surviving branch degenerates straight to a TUPLE.
	assert.True(t, m.IsDead)
}

func TestMergeDropsDeadBranches(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	selA := NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	selB := NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	selB.IsDead = true

	m := NewMerge(a, []dflow.View{selA, selB}, []dflow.TypeTag{dflow.TypeI64})
	changed, err := m.Canonicalize(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, m.IsDead) // one live branch left: collapsed to TUPLE
}

func TestMergeAllBranchesDeadBecomesUnsat(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	selA := NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	selA.IsUnsat = true

	m := NewMerge(a, []dflow.View{selA}, []dflow.TypeTag{dflow.TypeI64})
	changed, err := m.Canonicalize(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, m.IsUnsat)
}

func TestMergeFlattensNestedNonInductiveMerge(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	selA := NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	selB := NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	selC := NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})

	inner := NewMerge(a, []dflow.View{selA, selB}, []dflow.TypeTag{dflow.TypeI64})
	outer := NewMerge(a, []dflow.View{inner, selC}, []dflow.TypeTag{dflow.TypeI64})

	changed, err := outer.Canonicalize(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, outer.MergedViews, 3)
	assert.NotContains(t, outer.MergedViews, dflow.View(inner))
}

func TestMergeLeavesInductiveMergeUnflattened(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	selA := NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	selB := NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})

	inner := NewMerge(a, []dflow.View{selA, selB}, []dflow.TypeTag{dflow.TypeI64})
	selC := NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	outer := NewMerge(a, []dflow.View{inner, selC}, []dflow.TypeTag{dflow.TypeI64})
	outer.IsInductive = true

	changed, err := outer.Canonicalize(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, outer.MergedViews, 2)
	assert.Contains(t, outer.MergedViews, dflow.View(inner))
}
