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

// Negate is the NEG view: admits a tuple iff a corresponding tuple is
// absent from NegatedView (spec §3). Never hints to the back-end that it
// may skip monotone re-checks when the negated relation cannot shrink.
type Negate struct {
	dflow.Base
	inputs      []*dflow.Column
	NegatedView dflow.View
	Never       bool
}

// NewNegate builds a NEG testing inputs for absence in negated.
func NewNegate(a *dflow.Arena, inputs []*dflow.Column, negated dflow.View, never bool) *Negate {
	n := &Negate{inputs: append([]*dflow.Column(nil), inputs...), NegatedView: negated, Never: never}
	a.RegisterView(n, dflow.KindNegate)
	wireInputs(n, inputs)
	for i, in := range inputs {
		out := a.NewColumn(n, i, in.Type)
		out.EqID = in.EqID
		n.Base.Columns = append(n.Base.Columns, out)
	}
	return n
}

func (n *Negate) Columns() []*dflow.Column         { return n.Base.GetColumns() }
func (n *Negate) InputColumns() []*dflow.Column    { return n.inputs }
func (n *Negate) AttachedColumns() []*dflow.Column { return nil }

// Canonicalize: if the negated view is unsatisfiable, the negate is
// vacuously true and degenerates to a forwarding TUPLE. Otherwise it makes
// no change; duplicate columns are not folded.
func (n *Negate) Canonicalize(ctx *dflow.Context) (bool, error) {
	if n.IsDead {
		return false, nil
	}
	if n.NegatedView.Base().IsUnsat {
		tup := NewTuple(n.Base.Arena, n.inputs)
		dflow.ReplaceAllUsesWith(n, tup)
		return true, nil
	}
	return false, nil
}

func (n *Negate) StructEquals(other dflow.View, visited *dflow.VisitedPairs) bool {
	o, ok := other.(*Negate)
	if !ok || n.Never != o.Never {
		return false
	}
	if dflow.InsertSetsOverlap(&n.Base, &o.Base) {
		return false
	}
	if visited.Enter(n.NegatedView.ID(), o.NegatedView.ID()) {
		// fine, tolerate cycle
	} else if !n.NegatedView.StructEquals(o.NegatedView, visited) {
		return false
	}
	return columnListsEqual(n.inputs, o.inputs, visited)
}

func (n *Negate) ShallowHash() uint64 {
	h := dflow.HashKind(dflow.KindNegate)
	h = dflow.HashValues(h, n.Never)
	return dflow.HashColumns(h, n.inputs)
}

func (n *Negate) String() string {
	return fmt.Sprintf("NEGATE(id=%d, never=%v)", n.ID(), n.Never)
}
