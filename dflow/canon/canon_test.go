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

package canon

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

func TestRunConvergesOnEmptyGraph(t *testing.T) {
	ctx := newTestContext(t)
	rounds, converged := Run(ctx)
	assert.True(t, converged)
	assert.Equal(t, 1, rounds)
}

func TestRunDrivesCompareToFixpoint(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	col := sel.Columns()[0]
	cmp := node.NewCompare(a, dflow.CompareEq, col, col, nil)

	rounds, converged := Run(ctx)

	assert.True(t, converged)
	assert.Equal(t, 3, rounds)
	assert.True(t, cmp.IsDead)
}

func TestRunStopsAtRoundCapWithoutConverging(t *testing.T) {
	ctx := newTestContext(t)
	ctx.Config.MaxCanonicalizeRounds = 1
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	sel := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	col := sel.Columns()[0]
	_ = node.NewCompare(a, dflow.CompareEq, col, col, nil)

	rounds, converged := Run(ctx)

	assert.False(t, converged)
	assert.Equal(t, 1, rounds)
}
