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

package dflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dlflow/compiler/dflow"
	"github.com/dlflow/compiler/dflow/node"
)

func TestConditionSetterAndTesterSync(t *testing.T) {
	a := dflow.NewArena()
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	setter := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	posTester := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	negTester := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})

	c := a.NewCondition()
	c.SetConditionOn(setter)
	c.AddPositiveTester(posTester)
	c.AddNegativeTester(negTester)

	assert.Same(t, c, setter.Base().SetCondition)
	assert.Contains(t, posTester.Base().PosConditions, c)
	assert.Contains(t, negTester.Base().NegConditions, c)
	assert.False(t, c.IsDangling())

	dflow.DropTestedConditions(posTester)
	assert.Empty(t, posTester.Base().PosConditions)
	assert.NotContains(t, c.PositiveTesters, dflow.View(posTester))
}

func TestConditionIsDanglingWhenSetterDies(t *testing.T) {
	a := dflow.NewArena()
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	setter := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})

	c := a.NewCondition()
	c.SetConditionOn(setter)
	assert.False(t, c.IsDangling())

	setter.Base().IsDead = true
	assert.True(t, c.IsDangling())
}

func TestTransferSetConditionTo(t *testing.T) {
	a := dflow.NewArena()
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	from := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	to := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})

	c := a.NewCondition()
	c.SetConditionOn(from)

	c.TransferSetConditionTo(to)
	assert.Nil(t, from.Base().SetCondition)
	assert.Same(t, to, c.Setter)
	assert.Same(t, c, to.Base().SetCondition)
}

func TestCopyTestedConditionsTo(t *testing.T) {
	a := dflow.NewArena()
	rel := a.Relation("r", &dflow.Declaration{Name: "r"})
	setter := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	from := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})
	to := node.NewRelationSelect(a, rel, []dflow.TypeTag{dflow.TypeI64})

	c := a.NewCondition()
	c.SetConditionOn(setter)
	c.AddPositiveTester(from)

	dflow.CopyTestedConditionsTo(from, to)
	assert.Contains(t, to.Base().PosConditions, c)
	assert.Contains(t, c.PositiveTesters, dflow.View(to))
}
