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

// Tuple is the TUP view: pure column rearrangement/forwarding (spec §3).
type Tuple struct {
	dflow.Base
	inputs []*dflow.Column // one per output column, same order
}

// NewTuple builds a TUP over inputs, forwarding each as the same-index
// output column.
func NewTuple(a *dflow.Arena, inputs []*dflow.Column) *Tuple {
	t := &Tuple{inputs: append([]*dflow.Column(nil), inputs...)}
	a.RegisterView(t, dflow.KindTuple)
	for i, in := range inputs {
		out := a.NewColumn(t, i, in.Type)
		out.EqID = in.EqID
		t.Base.Columns = append(t.Base.Columns, out)
	}
	wireInputs(t, inputs)
	return t
}

func wireInputs(v dflow.View, inputs []*dflow.Column) {
	b := v.Base()
	b.InputColumns = append(b.InputColumns, inputs...)
	for i, in := range inputs {
		in.AddUser(v, false, i)
	}
}

func (t *Tuple) Columns() []*dflow.Column         { return t.Base.GetColumns() }
func (t *Tuple) InputColumns() []*dflow.Column    { return t.inputs }
func (t *Tuple) AttachedColumns() []*dflow.Column { return nil }

// Canonicalize replaces all uses of this tuple with its predecessor when
// every input comes from that one predecessor in original column order with
// matching arity (spec §4.3 TUPLE rule). Unused outputs are not dropped.
func (t *Tuple) Canonicalize(ctx *dflow.Context) (bool, error) {
	if t.IsDead {
		return false, nil
	}
	pred, ok := dflow.CheckIncomingViewsMatch(t.inputs)
	if !ok {
		return false, nil
	}
	if pred == nil {
		return false, nil
	}
	predCols := pred.Columns()
	if len(predCols) != len(t.inputs) {
		return false, nil
	}
	identity := true
	for i, in := range t.inputs {
		if in != predCols[i] {
			identity = false
			break
		}
	}
	if !identity {
		return false, nil
	}
	dflow.ReplaceAllUsesWith(t, pred)
	return true, nil
}

func (t *Tuple) StructEquals(other dflow.View, visited *dflow.VisitedPairs) bool {
	o, ok := other.(*Tuple)
	if !ok || len(t.inputs) != len(o.inputs) {
		return false
	}
	if dflow.InsertSetsOverlap(&t.Base, &o.Base) {
		return false
	}
	for i := range t.inputs {
		if !columnsEqual(t.inputs[i], o.inputs[i], visited) {
			return false
		}
	}
	return true
}

// columnsEqual compares two column references for CSE purposes: same
// column object is trivially equal, otherwise recurse into the producing
// views' structural equality (tolerating cycles via visited).
func columnsEqual(a, b *dflow.Column, visited *dflow.VisitedPairs) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Index != b.Index || a.Type != b.Type {
		return false
	}
	if a.View == nil || b.View == nil {
		return a.View == b.View
	}
	if visited.Enter(a.View.ID(), b.View.ID()) {
		return true
	}
	return a.View.StructEquals(b.View, visited)
}

func (t *Tuple) ShallowHash() uint64 {
	h := dflow.HashKind(dflow.KindTuple)
	return dflow.HashColumns(h, t.inputs)
}

func (t *Tuple) String() string {
	return fmt.Sprintf("TUPLE(id=%d, arity=%d)", t.ID(), len(t.inputs))
}
