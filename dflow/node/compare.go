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

	"github.com/spf13/cast"

	"github.com/dlflow/compiler/dflow"
)

// Compare is the CMP view: a binary relational operator on two input
// columns, with additional attached pass-through columns (spec §3).
type Compare struct {
	dflow.Base
	Op         dflow.CompareOp
	LHS, RHS   *dflow.Column
}

// NewCompare builds a CMP of lhs Op rhs, attaching attached as pass-through
// columns. An equality compare merges its two output columns into one
// (spec §3: "Equality merges its two output columns into one"), so for
// CompareEq only one output column is produced; every other op produces
// lhs and rhs unchanged plus the attached columns.
func NewCompare(a *dflow.Arena, op dflow.CompareOp, lhs, rhs *dflow.Column, attached []*dflow.Column) *Compare {
	c := &Compare{Op: op, LHS: lhs, RHS: rhs}
	a.RegisterView(c, dflow.KindCompare)

	c.Base.InputColumns = []*dflow.Column{lhs, rhs}
	lhs.AddUser(c, false, 0)
	rhs.AddUser(c, false, 1)

	if op == dflow.CompareEq {
		out := a.NewColumn(c, 0, lhs.Type)
		out.EqID = lhs.EqID
		c.Base.Columns = append(c.Base.Columns, out)
	} else {
		o1 := a.NewColumn(c, 0, lhs.Type)
		o1.EqID = lhs.EqID
		o2 := a.NewColumn(c, 1, rhs.Type)
		o2.EqID = rhs.EqID
		c.Base.Columns = append(c.Base.Columns, o1, o2)
	}

	c.Base.AttachedColumns = append(c.Base.AttachedColumns, attached...)
	base := len(c.Base.Columns)
	for i, ac := range attached {
		out := a.NewColumn(c, base+i, ac.Type)
		out.EqID = ac.EqID
		c.Base.Columns = append(c.Base.Columns, out)
		ac.AddUser(c, true, i)
	}
	return c
}

func (c *Compare) Columns() []*dflow.Column         { return c.Base.GetColumns() }
func (c *Compare) InputColumns() []*dflow.Column    { return c.Base.GetInputColumns() }
func (c *Compare) AttachedColumns() []*dflow.Column { return c.Base.GetAttachedColumns() }

// Canonicalize implements spec §4.3's COMPARE rule: a trivially satisfied
// compare (same column on both sides, for =) degenerates to a forwarding
// TUPLE; comparing two distinct unique constants is unsatisfiable; for !=,
// identical inputs are unsatisfiable. A compare is never sunk through a
// MERGE or NEGATE, here or in any other pass.
func (c *Compare) Canonicalize(ctx *dflow.Context) (bool, error) {
	if c.IsDead || c.IsUnsat {
		return false, nil
	}

	sameColumn := c.LHS == c.RHS || (c.LHS.ConstRef != nil && c.LHS.ConstRef == c.RHS.ConstRef)

	switch c.Op {
	case dflow.CompareEq:
		if sameColumn {
			cols := []*dflow.Column{c.LHS}
			cols = append(cols, c.AttachedColumns()...)
			tup := NewTuple(c.Base.Arena, cols)
			dflow.ReplaceAllUsesWith(c, tup)
			return true, nil
		}
		if c.LHS.IsConstant() && c.RHS.IsConstant() && !valuesEqual(c.LHS, c.RHS) {
			c.IsUnsat = true
			return true, nil
		}
	case dflow.CompareNeq:
		if sameColumn {
			c.IsUnsat = true
			return true, nil
		}
	}
	return false, nil
}

// valuesEqual compares two constant columns by their static value when
// known. Same ConstRef is the cheap case; otherwise both sides are traced
// back to their owning constant SELECT and compared by decoded value,
// coercing across Go's literal types (int vs int64 vs string) with cast so
// a comparison between two constants built through different code paths
// (e.g. one parsed from source text, one computed during canonicalization)
// is still recognized as unsatisfiable when the values differ. Equal values
// in two distinct constant columns leave the CMP in place.
func valuesEqual(a, b *dflow.Column) bool {
	if a.ConstRef != nil && b.ConstRef != nil && a.ConstRef == b.ConstRef {
		return true
	}
	av, aok := constantValueOf(a)
	bv, bok := constantValueOf(b)
	if !aok || !bok {
		return false
	}
	return coercedEqual(av, bv)
}

// constantValueOf resolves c (following ConstRef chains) to the literal
// value of its owning constant SELECT, if any.
func constantValueOf(c *dflow.Column) (interface{}, bool) {
	for c.ConstRef != nil {
		c = c.ConstRef
	}
	sel, ok := c.View.(*Select)
	if !ok || sel.Source != SourceConstant {
		return nil, false
	}
	return sel.ConstantValue, true
}

func coercedEqual(a, b interface{}) bool {
	if af, err := cast.ToFloat64E(a); err == nil {
		if bf, err := cast.ToFloat64E(b); err == nil {
			return af == bf
		}
	}
	as, aerr := cast.ToStringE(a)
	bs, berr := cast.ToStringE(b)
	if aerr == nil && berr == nil {
		return as == bs
	}
	return a == b
}

func (c *Compare) StructEquals(other dflow.View, visited *dflow.VisitedPairs) bool {
	o, ok := other.(*Compare)
	if !ok || c.Op != o.Op {
		return false
	}
	if dflow.InsertSetsOverlap(&c.Base, &o.Base) {
		return false
	}
	if !columnsEqual(c.LHS, o.LHS, visited) || !columnsEqual(c.RHS, o.RHS, visited) {
		return false
	}
	att, oatt := c.AttachedColumns(), o.AttachedColumns()
	if len(att) != len(oatt) {
		return false
	}
	for i := range att {
		if !columnsEqual(att[i], oatt[i], visited) {
			return false
		}
	}
	return true
}

func (c *Compare) ShallowHash() uint64 {
	h := dflow.HashKind(dflow.KindCompare)
	h = dflow.HashValues(h, c.Op)
	return dflow.HashColumns(h, c.Base.InputColumns)
}

func (c *Compare) String() string {
	return fmt.Sprintf("COMPARE(id=%d, op=%s)", c.ID(), c.Op)
}
