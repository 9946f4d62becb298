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

// Package finalize implements the Finalizer stage (spec §2 step 6, §4.7,
// §4.8): relabels column equivalence ids, classifies differential-update
// capability, links predecessors/successors, and hands back-ends an
// immutable view of the finished graph (spec §6 "Output to back-ends").
package finalize

import (
	"github.com/dlflow/compiler/dflow"
	"github.com/dlflow/compiler/dflow/node"
)

// colSet is a union-find node over *dflow.Column identity, used to relabel
// equivalence classes per spec §4.8 before handing out final integer ids.
type colSet struct {
	parent *colSet
	rank   int
	col    *dflow.Column
}

func (s *colSet) find() *colSet {
	root := s
	for root.parent != nil {
		root = root.parent
	}
	for s.parent != nil {
		next := s.parent
		s.parent = root
		s = next
	}
	return root
}

func unionCols(a, b *colSet) {
	ra, rb := a.find(), b.find()
	if ra == rb {
		return
	}
	if ra.rank < rb.rank {
		ra, rb = rb, ra
	}
	rb.parent = ra
	if ra.rank == rb.rank {
		ra.rank++
	}
}

// FinalizeColumnIDs relabels every live column's EqID so that, within one
// scope, two columns share an id iff they are proven equal at runtime (spec
// §4.8). SELs and MERGEs mint fresh classes; TUP/INS pass inputs through
// unchanged (already true of their EqID at construction); JOIN pivot
// outputs mint fresh classes while non-pivot outputs alias their one input;
// MAP outputs are all free-parameter outputs in this implementation (bound
// values are not re-exposed) so every MAP output mints a fresh class; CMP
// equality unifies its one merged output with both operands into a single
// class; KVINDEX mints fresh classes for value columns. Unification is
// computed once over the whole live graph (the union-find itself needs no
// ordering), then a single depth-ordered pass assigns the final sequential
// ids so the result is deterministic.
func FinalizeColumnIDs(ctx *dflow.Context) {
	span, finish := ctx.StartSpan("finalize.FinalizeColumnIDs")
	defer finish()
	_ = span

	views := ctx.Arena.ViewsInDepthOrder()
	sets := map[*dflow.Column]*colSet{}
	setFor := func(c *dflow.Column) *colSet {
		if s, ok := sets[c]; ok {
			return s
		}
		s := &colSet{col: c}
		sets[c] = s
		return s
	}
	for _, v := range views {
		for _, c := range v.Columns() {
			setFor(c)
		}
	}

	for _, v := range views {
		switch t := v.(type) {
		case *node.Select, *node.Merge:
			// Fresh classes: nothing to union.
		case *node.Tuple:
			for i, out := range t.Columns() {
				if i < len(t.InputColumns()) {
					unionCols(setFor(out), setFor(t.InputColumns()[i]))
				}
			}
		case *node.Join:
			for i, m := range t.OutToIn {
				if m.IsPivot || len(m.Ins) == 0 {
					continue
				}
				unionCols(setFor(t.Columns()[i]), setFor(m.Ins[0]))
			}
		case *node.Compare:
			aliasCompareOutputs(t, setFor, unionCols)
		case *node.Aggregate:
			for i, gb := range t.GroupByColumns {
				unionCols(setFor(t.Columns()[i]), setFor(gb))
			}
		case *node.KVIndex:
			for i, k := range t.Keys {
				unionCols(setFor(t.Columns()[i]), setFor(k))
			}
		case *node.Negate:
			for i, out := range t.Columns() {
				if i < len(t.InputColumns()) {
					unionCols(setFor(out), setFor(t.InputColumns()[i]))
				}
			}
		case *node.Insert:
			// Columns() is nil (spec §3); nothing to relabel.
		case *node.Map:
			// Every output is a free-parameter output in this
			// implementation; each mints its own fresh class (no union).
		}
	}

	next := 1
	assigned := map[*colSet]int{}
	for _, v := range views {
		for _, c := range v.Columns() {
			root := setFor(c).find()
			id, ok := assigned[root]
			if !ok {
				id = next
				next++
				assigned[root] = id
			}
			c.EqID = id
		}
	}
}

// aliasCompareOutputs unions a CMP's merged equality output (spec §4.8:
// "CMP equality outputs unify into one new id") with both operand columns
// it derives from, or (for a non-equality comparison) unions its two
// attached-forward output columns with their respective operands.
func aliasCompareOutputs(c *node.Compare, setFor func(*dflow.Column) *colSet, union func(a, b *colSet)) {
	if c.Op == dflow.CompareEq {
		if len(c.Columns()) == 0 {
			return
		}
		out := c.Columns()[0]
		union(setFor(out), setFor(c.LHS))
		union(setFor(out), setFor(c.RHS))
		return
	}
	if len(c.Columns()) < 2 {
		return
	}
	union(setFor(c.Columns()[0]), setFor(c.LHS))
	union(setFor(c.Columns()[1]), setFor(c.RHS))
}
