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
	"fmt"

	"github.com/dlflow/compiler/dflow"
)

// Insert is the INS view: a sink writing into a relation or transmitting a
// message; carries no output columns (spec §3).
type Insert struct {
	dflow.Base
	inputs   []*dflow.Column
	Relation *dflow.Relation // set iff writing into a relation
	IO       *dflow.IO       // set iff transmitting a message
}

// NewRelationInsert builds an INS writing inputs into rel.
func NewRelationInsert(a *dflow.Arena, rel *dflow.Relation, inputs []*dflow.Column) *Insert {
	ins := &Insert{inputs: append([]*dflow.Column(nil), inputs...), Relation: rel}
	a.RegisterView(ins, dflow.KindInsert)
	wireInputs(ins, inputs)
	rel.Inserts = append(rel.Inserts, ins)
	return ins
}

// NewMessageInsert builds an INS transmitting inputs on io.
func NewMessageInsert(a *dflow.Arena, io *dflow.IO, inputs []*dflow.Column) *Insert {
	ins := &Insert{inputs: append([]*dflow.Column(nil), inputs...), IO: io}
	a.RegisterView(ins, dflow.KindInsert)
	wireInputs(ins, inputs)
	io.Inserts = append(io.Inserts, ins)
	return ins
}

func (ins *Insert) Columns() []*dflow.Column         { return nil }
func (ins *Insert) InputColumns() []*dflow.Column    { return ins.inputs }
func (ins *Insert) AttachedColumns() []*dflow.Column { return nil }

// Canonicalize implements spec §4.3's INSERT rule: becomes dead if its
// predecessor is unsatisfiable.
func (ins *Insert) Canonicalize(ctx *dflow.Context) (bool, error) {
	if ins.IsDead {
		return false, nil
	}
	pred, ok := dflow.CheckIncomingViewsMatch(ins.inputs)
	if ok && pred != nil && pred.Base().IsUnsat {
		ins.IsDead = true
		return true, nil
	}
	return false, nil
}

func (ins *Insert) StructEquals(other dflow.View, visited *dflow.VisitedPairs) bool {
	o, ok := other.(*Insert)
	if !ok || ins.Relation != o.Relation || ins.IO != o.IO {
		return false
	}
	if dflow.InsertSetsOverlap(&ins.Base, &o.Base) {
		return false
	}
	return columnListsEqual(ins.inputs, o.inputs, visited)
}

func (ins *Insert) ShallowHash() uint64 {
	h := dflow.HashKind(dflow.KindInsert)
	return dflow.HashColumns(h, ins.inputs)
}

func (ins *Insert) String() string {
	if ins.Relation != nil {
		return fmt.Sprintf("INSERT[rel](id=%d)", ins.ID())
	}
	return fmt.Sprintf("INSERT[io](id=%d)", ins.ID())
}
