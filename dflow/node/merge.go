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

// Merge is the MERGE/Union view: set union of MergedViews, all of which
// must expose matching arity and column types (spec §3).
type Merge struct {
	dflow.Base
	MergedViews []dflow.View

	// IsInductive marks a MERGE identified by the induction pass as the
	// entry point of a recursive relation (spec §4.6); Canonicalize never
	// flattens an inductive merge, and StructEquals/ShallowHash include it.
	IsInductive bool
}

// NewMerge builds a MERGE over branches, whose columns must all share
// types, exposing one output column per position.
func NewMerge(a *dflow.Arena, branches []dflow.View, types []dflow.TypeTag) *Merge {
	m := &Merge{MergedViews: append([]dflow.View(nil), branches...)}
	a.RegisterView(m, dflow.KindMerge)
	for i, t := range types {
		out := a.NewColumn(m, i, t)
		m.Base.Columns = append(m.Base.Columns, out)
	}
	var attached []*dflow.Column
	for _, b := range branches {
		attached = append(attached, b.Columns()...)
	}
	m.Base.AttachedColumns = attached
	for i, c := range attached {
		c.AddUser(m, true, i)
	}
	return m
}

func (m *Merge) Columns() []*dflow.Column         { return m.Base.GetColumns() }
func (m *Merge) InputColumns() []*dflow.Column    { return nil }
func (m *Merge) AttachedColumns() []*dflow.Column { return m.Base.GetAttachedColumns() }

// Canonicalize implements spec §4.3's MERGE rule: dedupe branches, flatten
// nested non-conditional merges, and degenerate to a TUPLE when only one
// branch remains.
func (m *Merge) Canonicalize(ctx *dflow.Context) (bool, error) {
	if m.IsDead {
		return false, nil
	}
	changed := false

	live := m.MergedViews[:0]
	seen := map[dflow.ViewID]bool{}
	for _, v := range m.MergedViews {
		if v.Base().IsDead || v.Base().IsUnsat {
			changed = true
			continue
		}
		if seen[v.ID()] {
			changed = true
			continue
		}
		seen[v.ID()] = true
		live = append(live, v)
	}
	m.MergedViews = live

	if !m.IsInductive {
		var flattened []dflow.View
		didFlatten := false
		for _, v := range m.MergedViews {
			if nested, ok := v.(*Merge); ok && !nested.IsInductive && nested.SetCondition == nil {
				flattened = append(flattened, nested.MergedViews...)
				didFlatten = true
				continue
			}
			flattened = append(flattened, v)
		}
		if didFlatten {
			m.MergedViews = flattened
			changed = true
		}
	}

	if len(m.MergedViews) == 0 {
		m.IsUnsat = true
		return true, nil
	}
	if len(m.MergedViews) == 1 {
		cols := m.MergedViews[0].Columns()
		tup := NewTuple(m.Base.Arena, cols)
		dflow.ReplaceAllUsesWith(m, tup)
		return true, nil
	}
	return changed, nil
}

func (m *Merge) StructEquals(other dflow.View, visited *dflow.VisitedPairs) bool {
	o, ok := other.(*Merge)
	if !ok || len(m.MergedViews) != len(o.MergedViews) || m.IsInductive != o.IsInductive {
		return false
	}
	if dflow.InsertSetsOverlap(&m.Base, &o.Base) {
		return false
	}
	used := make([]bool, len(o.MergedViews))
	for _, a := range m.MergedViews {
		found := false
		for i, b := range o.MergedViews {
			if used[i] {
				continue
			}
			if visited.Enter(a.ID(), b.ID()) || a.StructEquals(b, visited) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (m *Merge) ShallowHash() uint64 {
	h := dflow.HashKind(dflow.KindMerge)
	h = dflow.HashValues(h, len(m.MergedViews), m.IsInductive)
	return h
}

func (m *Merge) String() string {
	return fmt.Sprintf("MERGE(id=%d, branches=%d, inductive=%v)", m.ID(), len(m.MergedViews), m.IsInductive)
}
