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

	"github.com/dlflow/compiler/dflow"
)

func TestConstantSelectIsConstant(t *testing.T) {
	ctx := newTestContext(t)
	sel := NewConstantSelect(ctx.Arena, int64(7), dflow.TypeI64)
	assert.True(t, sel.IsConstantSelect())
	assert.True(t, sel.Columns()[0].IsConstant())
}

func TestTagSelectIsConstantAndCarriesItsValue(t *testing.T) {
	ctx := newTestContext(t)
	sel := NewTagSelect(ctx.Arena, 42)
	assert.True(t, sel.IsConstantSelect())
	assert.True(t, sel.Columns()[0].IsConstant())
	assert.Equal(t, uint16(42), sel.TagValue)
}

func TestRelationAndMessageSelectsAreNotConstant(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	relSel := NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	assert.False(t, relSel.IsConstantSelect())

	io := a.IOByName("events", &dflow.Declaration{Name: "events", Kind: dflow.DeclMessage})
	msgSel := NewMessageSelect(a, io, []dflow.TypeTag{dflow.TypeI64})
	assert.False(t, msgSel.IsConstantSelect())
}

func TestTwoTagSelectsWithDistinctValuesAreNotStructEqual(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Arena
	selA := NewTagSelect(a, 1)
	selB := NewTagSelect(a, 2)
	assert.False(t, selA.StructEquals(selB, dflow.NewVisitedPairs()))
	assert.NotEqual(t, selA.ShallowHash(), selB.ShallowHash())
}
