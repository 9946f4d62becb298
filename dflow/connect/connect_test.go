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

package connect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlflow/compiler/dflow"
	"github.com/dlflow/compiler/dflow/node"
)

func newTestContext(t *testing.T) *dflow.Context {
	t.Helper()
	return dflow.NewContext(context.Background(), nil)
}

func TestConnectCollapsesSingleInsertDirectly(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	decl := &dflow.Declaration{Name: "r"}
	rel := a.Relation("r", decl)
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	tup := node.NewTuple(a, sel.Columns())
	_ = tup
	io := a.IOByName("events", &dflow.Declaration{Name: "events", Kind: dflow.DeclMessage})
	src := node.NewMessageSelect(a, io, []dflow.TypeTag{dflow.TypeI64})
	ins := node.NewRelationInsert(a, rel, src.Columns())
	_ = ins

	Connect(ctx)

	// sel's uses now come from a TUP over ins's input columns directly,
	// not a single-branch MERGE (spec §4 item 3 collapse-to-one rule).
	require.Len(t, tup.InputColumns(), 1)
	row, ok := tup.InputColumns()[0].View.(*node.Tuple)
	require.True(t, ok)
	assert.Equal(t, ins.InputColumns()[0], row.InputColumns()[0])
}

func TestConnectUnionsMultipleInserts(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	decl := &dflow.Declaration{Name: "r"}
	rel := a.Relation("r", decl)
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	tup := node.NewTuple(a, sel.Columns())

	io := a.IOByName("events", &dflow.Declaration{Name: "events", Kind: dflow.DeclMessage})
	srcA := node.NewMessageSelect(a, io, []dflow.TypeTag{dflow.TypeI64})
	srcB := node.NewMessageSelect(a, io, []dflow.TypeTag{dflow.TypeI64})
	_ = node.NewRelationInsert(a, rel, srcA.Columns())
	_ = node.NewRelationInsert(a, rel, srcB.Columns())

	Connect(ctx)

	merged, ok := tup.InputColumns()[0].View.(*node.Merge)
	require.True(t, ok)
	assert.Len(t, merged.MergedViews, 2)
}

func TestConnectWrapsMutableParamDeclarationInKVIndex(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	decl := &dflow.Declaration{
		Name: "counts",
		Params: []dflow.Param{
			{Name: "key", Mode: dflow.ParamBound, Type: dflow.TypeI64},
			{Name: "total", Mode: dflow.ParamMutable, Type: dflow.TypeI64, MergeFunctor: "sum"},
		},
	}
	rel := a.Relation("counts", decl)
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64, dflow.TypeI64})
	tup := node.NewTuple(a, sel.Columns())

	io := a.IOByName("events", &dflow.Declaration{Name: "events", Kind: dflow.DeclMessage})
	src := node.NewMessageSelect(a, io, []dflow.TypeTag{dflow.TypeI64, dflow.TypeI64})
	_ = node.NewRelationInsert(a, rel, src.Columns())

	Connect(ctx)

	_, ok := tup.InputColumns()[0].View.(*node.KVIndex)
	assert.True(t, ok)
}
