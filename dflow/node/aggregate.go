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

// Aggregate is the AGG view: partitions by GroupByColumns, parameterizes
// the functor by ConfigColumns, reduces over AggregatedColumns, yields one
// or more summary output columns (spec §3).
type Aggregate struct {
	dflow.Base
	Functor           *dflow.Declaration
	GroupByColumns    []*dflow.Column
	ConfigColumns     []*dflow.Column
	AggregatedColumns []*dflow.Column

	GroupID dflow.GroupID
}

// NewAggregate builds an AGG. summaryTypes gives the type of each summary
// output column produced after the (forwarded) group-by columns.
func NewAggregate(a *dflow.Arena, functor *dflow.Declaration, groupBy, config, aggregated []*dflow.Column, summaryTypes []dflow.TypeTag) *Aggregate {
	agg := &Aggregate{Functor: functor, GroupByColumns: groupBy, ConfigColumns: config, AggregatedColumns: aggregated}
	a.RegisterView(agg, dflow.KindAggregate)
	agg.GroupID = a.NewGroupID()
	agg.Base.AddGroupID(agg.GroupID)

	var ins []*dflow.Column
	ins = append(ins, groupBy...)
	ins = append(ins, config...)
	ins = append(ins, aggregated...)
	agg.Base.InputColumns = ins
	for i, c := range ins {
		c.AddUser(agg, false, i)
	}

	for i, gb := range groupBy {
		out := a.NewColumn(agg, i, gb.Type)
		out.EqID = gb.EqID
		agg.Base.Columns = append(agg.Base.Columns, out)
	}
	base := len(groupBy)
	for i, t := range summaryTypes {
		out := a.NewColumn(agg, base+i, t)
		agg.Base.Columns = append(agg.Base.Columns, out)
	}
	return agg
}

func (agg *Aggregate) Columns() []*dflow.Column         { return agg.Base.GetColumns() }
func (agg *Aggregate) InputColumns() []*dflow.Column    { return agg.Base.GetInputColumns() }
func (agg *Aggregate) AttachedColumns() []*dflow.Column { return nil }

// Canonicalize drops duplicate (same EqID) and constant group-by columns
// from GroupByColumns, never touching the summary output semantics. A
// dropped constant group-by is not replaced by a guarding tuple.
func (agg *Aggregate) Canonicalize(ctx *dflow.Context) (bool, error) {
	if agg.IsDead || agg.IsUnsat {
		return false, nil
	}
	changed := false
	seen := map[int]bool{}
	kept := agg.GroupByColumns[:0]
	for _, gb := range agg.GroupByColumns {
		if gb.IsConstant() {
			changed = true
			continue
		}
		if seen[gb.EqID] {
			changed = true
			continue
		}
		seen[gb.EqID] = true
		kept = append(kept, gb)
	}
	if changed {
		agg.GroupByColumns = kept
	}
	return changed, nil
}

func (agg *Aggregate) StructEquals(other dflow.View, visited *dflow.VisitedPairs) bool {
	o, ok := other.(*Aggregate)
	if !ok || agg.Functor != o.Functor {
		return false
	}
	if dflow.InsertSetsOverlap(&agg.Base, &o.Base) {
		return false
	}
	if !columnListsEqual(agg.GroupByColumns, o.GroupByColumns, visited) ||
		!columnListsEqual(agg.ConfigColumns, o.ConfigColumns, visited) ||
		!columnListsEqual(agg.AggregatedColumns, o.AggregatedColumns, visited) {
		return false
	}
	return true
}

func columnListsEqual(a, b []*dflow.Column, visited *dflow.VisitedPairs) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !columnsEqual(a[i], b[i], visited) {
			return false
		}
	}
	return true
}

func (agg *Aggregate) ShallowHash() uint64 {
	h := dflow.HashKind(dflow.KindAggregate)
	h = dflow.HashValues(h, agg.Functor.Name)
	h = dflow.HashColumns(h, agg.GroupByColumns)
	h = dflow.HashColumns(h, agg.ConfigColumns)
	return dflow.HashColumns(h, agg.AggregatedColumns)
}

func (agg *Aggregate) String() string {
	return fmt.Sprintf("AGGREGATE[%s](id=%d)", agg.Functor.Name, agg.ID())
}
