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

// OutMapping records, for one JOIN output column, the input columns it's
// derived from across the joined views: exactly one per joined view for a
// pivot output, exactly one entry total for a non-pivot output (spec §3
// JOIN: "out_to_in: out_col ↦ multiset of in_cols").
type OutMapping struct {
	IsPivot bool
	Ins     []*dflow.Column
}

// Join is the JOIN view: an equi-join over NumPivots pivot columns spanning
// JoinedViews (spec §3). NumPivots == 0 means Cartesian product.
type Join struct {
	dflow.Base

	NumPivots   int
	JoinedViews []dflow.View
	OutToIn     []OutMapping

	GroupID dflow.GroupID
}

// NewJoin builds a JOIN over joined, wiring outCols (one OutMapping per
// output) and tagging the JOIN's own Base with a fresh group id (spec §4.2);
// spreading that id to other views is left to optimize.RelabelGroupIDs.
func NewJoin(a *dflow.Arena, joined []dflow.View, numPivots int, outCols []OutMapping, types []dflow.TypeTag) *Join {
	j := &Join{NumPivots: numPivots, JoinedViews: joined, OutToIn: outCols}
	a.RegisterView(j, dflow.KindJoin)
	j.GroupID = a.NewGroupID()
	j.Base.AddGroupID(j.GroupID)

	var allIns []*dflow.Column
	for _, m := range outCols {
		allIns = append(allIns, m.Ins...)
	}
	j.Base.InputColumns = allIns
	for i, in := range allIns {
		in.AddUser(j, false, i)
	}

	for i, t := range types {
		out := a.NewColumn(j, i, t)
		j.Base.Columns = append(j.Base.Columns, out)
	}
	return j
}

func (j *Join) Columns() []*dflow.Column         { return j.Base.GetColumns() }
func (j *Join) InputColumns() []*dflow.Column    { return j.Base.GetInputColumns() }
func (j *Join) AttachedColumns() []*dflow.Column { return nil }

// Canonicalize marks the join unsatisfiable if any joined view is, and
// degenerates a single-view join to a TUPLE. It does not proxy an
// under-used joined view with a narrower TUPLE and does not guard constant
// outputs; no other pass does either.
func (j *Join) Canonicalize(ctx *dflow.Context) (bool, error) {
	if j.IsDead {
		return false, nil
	}
	for _, jv := range j.JoinedViews {
		if jv.Base().IsUnsat {
			j.IsUnsat = true
			return true, nil
		}
	}
	if len(j.JoinedViews) == 1 {
		cols := make([]*dflow.Column, 0, len(j.OutToIn))
		for _, m := range j.OutToIn {
			if len(m.Ins) > 0 {
				cols = append(cols, m.Ins[0])
			}
		}
		tup := NewTuple(j.Base.Arena, cols)
		dflow.ReplaceAllUsesWith(j, tup)
		return true, nil
	}
	return false, nil
}

func (j *Join) StructEquals(other dflow.View, visited *dflow.VisitedPairs) bool {
	o, ok := other.(*Join)
	if !ok || j.NumPivots != o.NumPivots || len(j.JoinedViews) != len(o.JoinedViews) {
		return false
	}
	if dflow.InsertSetsOverlap(&j.Base, &o.Base) {
		return false
	}
	if len(j.OutToIn) != len(o.OutToIn) {
		return false
	}
	for i := range j.OutToIn {
		a, b := j.OutToIn[i], o.OutToIn[i]
		if a.IsPivot != b.IsPivot || len(a.Ins) != len(b.Ins) {
			return false
		}
		for k := range a.Ins {
			if !columnsEqual(a.Ins[k], b.Ins[k], visited) {
				return false
			}
		}
	}
	return true
}

func (j *Join) ShallowHash() uint64 {
	h := dflow.HashKind(dflow.KindJoin)
	h = dflow.HashValues(h, j.NumPivots, len(j.JoinedViews))
	return dflow.HashColumns(h, j.Base.InputColumns)
}

func (j *Join) String() string {
	return fmt.Sprintf("JOIN(id=%d, pivots=%d, views=%d)", j.ID(), j.NumPivots, len(j.JoinedViews))
}
