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

package finalize

import "github.com/dlflow/compiler/dflow"

// ColumnView is the back-end-facing snapshot of one column (spec §6: "per
// column, its id, type, index, and constant resolution").
type ColumnView struct {
	ID            int32
	EqID          int
	Type          dflow.TypeTag
	Index         int
	IsConstant    bool
	ConstantValue interface{}
}

// ViewSnapshot is the back-end-facing snapshot of one live view (spec §6:
// "per view, its column list, input columns, predecessors, successors,
// group/induction ids, differential flags").
type ViewSnapshot struct {
	ID                  dflow.ViewID
	Kind                dflow.Kind
	Columns             []ColumnView
	InputColumns        []ColumnView
	Predecessors        []dflow.ViewID
	Successors          []dflow.ViewID
	GroupIDs            map[dflow.GroupID]int
	CanReceiveDeletions bool
	CanProduceDeletions bool
	Description         string
}

// ConditionSnapshot is the back-end-facing snapshot of one condition (spec
// §6: "per condition, its setter and tester view lists").
type ConditionSnapshot struct {
	ID              int32
	Setter          dflow.ViewID
	PositiveTesters []dflow.ViewID
	NegativeTesters []dflow.ViewID
}

// Output is the immutable finalized-DFG view handed to back-ends (spec §6
// "Output to back-ends"). It never aliases the mutable Arena so a back-end
// can retain it past further compiler activity (there is none after
// finalize, spec §5, but the boundary is kept firm regardless).
type Output struct {
	Views      []ViewSnapshot
	Conditions []ConditionSnapshot
}

// BuildOutput snapshots ctx's finalized arena. Callers must run
// FinalizeColumnIDs, ClassifyDifferential, and LinkPredecessorsSuccessors
// first; BuildOutput itself performs no analysis, only projection.
func BuildOutput(ctx *dflow.Context) *Output {
	span, finish := ctx.StartSpan("finalize.BuildOutput")
	defer finish()
	_ = span

	out := &Output{}
	for _, v := range ctx.Arena.LiveViews() {
		b := v.Base()
		out.Views = append(out.Views, ViewSnapshot{
			ID:                  v.ID(),
			Kind:                v.Kind(),
			Columns:             snapshotColumns(v.Columns()),
			InputColumns:        snapshotColumns(v.InputColumns()),
			Predecessors:        b.Predecessors,
			Successors:          b.Successors,
			GroupIDs:            b.GroupIDs,
			CanReceiveDeletions: b.CanReceiveDeletions,
			CanProduceDeletions: b.CanProduceDeletions,
			Description:         v.String(),
		})
	}
	for _, c := range ctx.Arena.Conditions() {
		setterID := dflow.ViewID(-1)
		if c.Setter != nil {
			setterID = c.Setter.ID()
		}
		out.Conditions = append(out.Conditions, ConditionSnapshot{
			ID:              c.ID(),
			Setter:          setterID,
			PositiveTesters: viewIDs(c.PositiveTesters),
			NegativeTesters: viewIDs(c.NegativeTesters),
		})
	}
	return out
}

func snapshotColumns(cols []*dflow.Column) []ColumnView {
	out := make([]ColumnView, 0, len(cols))
	for _, c := range cols {
		if c == nil {
			continue
		}
		cv := ColumnView{ID: c.ID(), EqID: c.EqID, Type: c.Type, Index: c.Index, IsConstant: c.IsConstant()}
		if c.ConstRef != nil {
			cv.ConstantValue = c.ConstRef
		}
		out = append(out, cv)
	}
	return out
}

func viewIDs(vs []dflow.View) []dflow.ViewID {
	out := make([]dflow.ViewID, 0, len(vs))
	for _, v := range vs {
		if v != nil && !v.Base().IsDead {
			out = append(out, v.ID())
		}
	}
	return out
}
