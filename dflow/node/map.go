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

// Map is the MAP view: applies a host functor with an enumerated binding
// pattern, each parameter either bound (input) or free (output); supports
// range semantics and may be impure (spec §3).
type Map struct {
	dflow.Base
	Functor  *dflow.Declaration
	Bound    []*dflow.Column // one per ParamBound parameter, in decl order
	RangeTag dflow.Range
	Impure   bool
}

// NewMap builds a MAP applying functor to bound, producing one output
// column per free parameter of functor.
func NewMap(a *dflow.Arena, functor *dflow.Declaration, bound []*dflow.Column, r dflow.Range) *Map {
	m := &Map{Functor: functor, Bound: bound, RangeTag: r, Impure: functor.FunctorPurity == dflow.FunctorImpure}
	a.RegisterView(m, dflow.KindMap)

	m.Base.InputColumns = append(m.Base.InputColumns, bound...)
	for i, b := range bound {
		b.AddUser(m, false, i)
	}

	idx := 0
	for _, p := range functor.Params {
		if p.Mode == dflow.ParamFree {
			out := a.NewColumn(m, idx, p.Type)
			m.Base.Columns = append(m.Base.Columns, out)
			idx++
		}
	}
	return m
}

func (m *Map) Columns() []*dflow.Column         { return m.Base.GetColumns() }
func (m *Map) InputColumns() []*dflow.Column    { return m.Base.GetInputColumns() }
func (m *Map) AttachedColumns() []*dflow.Column { return nil }

// Canonicalize marks a MAP unsatisfiable if its bound predecessor is unsat;
// it never rewrites to another kind since a functor call is never
// structurally redundant with a non-functor view.
func (m *Map) Canonicalize(ctx *dflow.Context) (bool, error) {
	if m.IsDead || m.IsUnsat {
		return false, nil
	}
	pred, ok := dflow.CheckIncomingViewsMatch(m.Bound)
	if ok && pred != nil && pred.Base().IsUnsat {
		m.IsUnsat = true
		return true, nil
	}
	return false, nil
}

func (m *Map) StructEquals(other dflow.View, visited *dflow.VisitedPairs) bool {
	o, ok := other.(*Map)
	if !ok || m.Functor != o.Functor || m.RangeTag != o.RangeTag || m.Impure {
		// An impure functor call is never CSE'd with another call: each
		// invocation may have its own side effect (spec §3 "optionally
		// impure (produces deletions)").
		return false
	}
	if dflow.InsertSetsOverlap(&m.Base, &o.Base) {
		return false
	}
	if len(m.Bound) != len(o.Bound) {
		return false
	}
	for i := range m.Bound {
		if !columnsEqual(m.Bound[i], o.Bound[i], visited) {
			return false
		}
	}
	return true
}

func (m *Map) ShallowHash() uint64 {
	h := dflow.HashKind(dflow.KindMap)
	if m.Impure {
		return dflow.HashValues(h, m.ID())
	}
	h = dflow.HashValues(h, m.Functor.Name, m.RangeTag)
	return dflow.HashColumns(h, m.Bound)
}

func (m *Map) String() string {
	return fmt.Sprintf("MAP[%s](id=%d)", m.Functor.Name, m.ID())
}
