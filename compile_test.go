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

package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlflow/compiler/dflow"
	"github.com/dlflow/compiler/dflow/builder"
	"github.com/dlflow/compiler/dflow/node"
)

func varArg(name string) builder.Term {
	return builder.Term{IsVar: true, VarName: name, Type: dflow.TypeI64}
}

// TestCompileTransitiveClosure runs the classic two-clause transitive
// closure program through every stage: edge(X,Y) sourced from an external
// message feed, path(X,Y) :- edge(X,Y), and the recursive
// path(X,Z) :- edge(X,Y), path(Y,Z). path's self-reference through its own
// predecessor is exactly the shape induction analysis exists to classify.
func TestCompileTransitiveClosure(t *testing.T) {
	ctx := dflow.NewContext(context.Background(), nil)
	a := ctx.Arena

	edgeDecl := &dflow.Declaration{Name: "edge", Kind: dflow.DeclLocal}
	pathDecl := &dflow.Declaration{Name: "path", Kind: dflow.DeclLocal, Divergent: true}
	edge := a.Relation("edge", edgeDecl)
	path := a.Relation("path", pathDecl)

	io := a.IOByName("edges", &dflow.Declaration{Name: "edges", Kind: dflow.DeclMessage})
	src := node.NewMessageSelect(a, io, []dflow.TypeTag{dflow.TypeI64, dflow.TypeI64})
	node.NewRelationInsert(a, edge, src.Columns())

	base := &builder.Clause{
		Head:     &builder.Predicate{Relation: path, Args: []builder.Term{varArg("X"), varArg("Y")}},
		Positive: []*builder.Predicate{{Relation: edge, Args: []builder.Term{varArg("X"), varArg("Y")}}},
	}
	recursive := &builder.Clause{
		Head: &builder.Predicate{Relation: path, Args: []builder.Term{varArg("X"), varArg("Z")}},
		Positive: []*builder.Predicate{
			{Relation: edge, Args: []builder.Term{varArg("X"), varArg("Y")}},
			{Relation: path, Args: []builder.Term{varArg("Y"), varArg("Z")}},
		},
	}

	out, err := Compile(ctx, []*builder.Clause{base, recursive})
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.False(t, ctx.Log.HasInternalErrors())
	assert.NotEmpty(t, out.Views)

	var sawInductiveMerge bool
	for _, v := range ctx.Arena.LiveViews() {
		if m, ok := v.(*node.Merge); ok && m.IsInductive {
			sawInductiveMerge = true
			assert.NotEmpty(t, m.Base().GroupIDs)
		}
	}
	assert.True(t, sawInductiveMerge, "expected the recursive path clause to produce an inductive MERGE")
}

// TestCompileNonRecursiveProgramHasNoInduction confirms induction analysis
// stays quiet when nothing in the program is self-referential.
func TestCompileNonRecursiveProgramHasNoInduction(t *testing.T) {
	ctx := dflow.NewContext(context.Background(), nil)
	a := ctx.Arena

	s := a.Relation("s", &dflow.Declaration{Name: "s", Kind: dflow.DeclLocal})
	r := a.Relation("r", &dflow.Declaration{Name: "r", Kind: dflow.DeclLocal})
	io := a.IOByName("events", &dflow.Declaration{Name: "events", Kind: dflow.DeclMessage})
	src := node.NewMessageSelect(a, io, []dflow.TypeTag{dflow.TypeI64})
	node.NewRelationInsert(a, s, src.Columns())

	c := &builder.Clause{
		Head:     &builder.Predicate{Relation: r, Args: []builder.Term{varArg("X")}},
		Positive: []*builder.Predicate{{Relation: s, Args: []builder.Term{varArg("X")}}},
	}

	out, err := Compile(ctx, []*builder.Clause{c})
	require.NoError(t, err)
	require.NotNil(t, out)

	for _, v := range ctx.Arena.LiveViews() {
		if m, ok := v.(*node.Merge); ok {
			assert.False(t, m.IsInductive)
		}
	}
}
