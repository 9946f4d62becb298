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

package builder

import (
	"fmt"

	"github.com/dlflow/compiler/dflow"
	"github.com/dlflow/compiler/dflow/diag"
	"github.com/dlflow/compiler/dflow/node"
)

// item is one entry of the builder's work list: a view together with the
// var-root each of its exposed columns corresponds to (spec §4.1 step 4).
type item struct {
	view   dflow.View
	varsOf []string // varsOf[i] is the var-root for view.Columns()[i], "" if none
}

func (it *item) columnFor(root string) (*dflow.Column, bool) {
	if root == "" {
		return nil, false
	}
	for i, v := range it.varsOf {
		if v == root {
			return it.view.Columns()[i], true
		}
	}
	return nil, false
}

// Builder runs the clause-builder algorithm of spec §4.1 against one
// dflow.Context/Arena. A Builder is reused across every clause of a module
// so join candidates CSE across clause bodies via candidateCache (spec
// §4.1 step 5), but its union-find is reset per clause since variable
// scope never crosses a clause boundary.
type Builder struct {
	ctx *dflow.Context
	uf  *unionFind

	// candidateCache memoizes join candidates by a structural key so
	// structurally equal JOINs across clauses share one node at build time
	// (spec §4.1 step 5: "cached by structural hash").
	candidateCache map[string]dflow.View
}

func New(ctx *dflow.Context) *Builder {
	return &Builder{ctx: ctx, uf: newUnionFind(), candidateCache: map[string]dflow.View{}}
}

// Build realizes one clause into an INS view plus its supporting views,
// returning the INS (or nil with a diagnostic already logged on failure).
func (b *Builder) Build(c *Clause) (*node.Insert, error) {
	span, finish := b.ctx.StartSpan("builder.Build")
	defer finish()
	_ = span

	b.uf = newUnionFind()
	b.applyComparisonUnions(c)

	items := b.buildPositivePredicates(c)
	pendingFunctors := b.pendingFunctors(c)

	final, ok := b.resolveWorkList(items, pendingFunctors)
	if !ok {
		b.ctx.Log.Structural(diag.Range{}, diag.ErrNoDataflowProduced.New(headName(c)))
		return nil, nil
	}

	final, ok = b.applyNegatedPredicates(c, final)
	if !ok {
		return nil, nil
	}

	return b.realizeHead(c, final)
}

// applyNegatedPredicates wires every non-zero-arg negated body predicate as
// a NEGATE gating the already-joined positive dataflow (spec §4.1's body
// covers negated predicates, though the step list only spells out the
// positive-literal join; original_source/lib/DataFlow builds a NEGATE over
// the predicate's own SEL and splices its gated columns back into the row
// at the positions the negated variables occupy there).
//
// Two constructs the original left unfinished are rejected with a
// structural diagnostic instead of silently producing a wrong DFG: negation
// over an unpivoted join of more than two views ("table-product under
// negation"), and negation of a relation with no recorded INSERT yet at
// build time (a forward reference the single-pass builder can't resolve).
func (b *Builder) applyNegatedPredicates(c *Clause, final *item) (*item, bool) {
	for _, p := range c.Negated {
		if p.Decl != nil && p.Decl.Kind == dflow.DeclFunctor {
			b.ctx.Log.Structural(diag.Range{}, diag.ErrUnsupportedNegation.New(p.Decl.Name))
			return nil, false
		}

		var negSel dflow.View
		switch {
		case p.Relation != nil:
			if len(p.Relation.Inserts) == 0 {
				name := ""
				if p.Relation.Decl != nil {
					name = p.Relation.Decl.Name
				}
				b.ctx.Log.Structural(diag.Range{}, diag.ErrForwardNegation.New(name))
				return nil, false
			}
			types := make([]dflow.TypeTag, len(p.Args))
			for i, a := range p.Args {
				types[i] = a.Type
			}
			negSel = node.NewRelationSelect(b.ctx.Arena, p.Relation, types)
		case p.IO != nil:
			types := make([]dflow.TypeTag, len(p.Args))
			for i, a := range p.Args {
				types[i] = a.Type
			}
			negSel = node.NewMessageSelect(b.ctx.Arena, p.IO, types)
		default:
			b.ctx.Log.Structural(diag.Range{}, diag.ErrUnrecognizedPredicate.New(headName(c)))
			return nil, false
		}

		negItem := b.dedupRepeatedVars(negSel, p.Args)

		if j, ok := negItem.view.(*node.Join); ok && j.NumPivots == 0 && len(j.JoinedViews) > 2 {
			b.ctx.Log.Structural(diag.Range{}, diag.ErrTableProductUnderNegate.New())
			return nil, false
		}

		bound := make([]*dflow.Column, len(negItem.varsOf))
		for i, root := range negItem.varsOf {
			col, ok := final.columnFor(root)
			if !ok {
				b.ctx.Log.Structural(diag.Range{}, diag.ErrNotRangeRestricted.New(root))
				return nil, false
			}
			bound[i] = col
		}

		neg := node.NewNegate(b.ctx.Arena, bound, negItem.view, false)
		gated := map[*dflow.Column]*dflow.Column{}
		for i, col := range bound {
			gated[col] = neg.Columns()[i]
		}

		rowCols := final.view.Columns()
		newCols := make([]*dflow.Column, len(rowCols))
		for i, col := range rowCols {
			if g, ok := gated[col]; ok {
				newCols[i] = g
			} else {
				newCols[i] = col
			}
		}
		tup := node.NewTuple(b.ctx.Arena, newCols)
		final = &item{view: tup, varsOf: final.varsOf}
	}
	return final, true
}

func headName(c *Clause) string {
	if c.Head == nil || c.Head.Decl == nil {
		return "<anonymous>"
	}
	return c.Head.Decl.Name
}

// applyComparisonUnions folds body comparisons with CompareEq between two
// bare variables directly into the union-find, so later pivot discovery
// sees them as one var-root without needing a runtime CMP for the common
// case of repeated variables (spec §4.1 step 1/3).
func (b *Builder) applyComparisonUnions(c *Clause) {
	for _, cmp := range c.Comparisons {
		if cmp.Op == dflow.CompareEq {
			b.uf.union(cmp.Left, cmp.Right)
		}
	}
}

// buildPositivePredicates realizes each positive relation/message predicate
// as a SEL, pre-filtered with CMPs for repeated variables within the same
// predicate so every exposed column carries a unique var-root (spec §4.1
// steps 2-3).
func (b *Builder) buildPositivePredicates(c *Clause) []*item {
	var items []*item
	for _, p := range c.Positive {
		if p.Decl != nil && p.Decl.Kind == dflow.DeclFunctor {
			continue // handled by pendingFunctors
		}
		if len(p.Args) == 0 {
			continue // zero-arg predicates feed applyZeroArgTests only
		}
		types := make([]dflow.TypeTag, len(p.Args))
		for i, a := range p.Args {
			types[i] = a.Type
		}
		var sel dflow.View
		switch {
		case p.Relation != nil:
			sel = node.NewRelationSelect(b.ctx.Arena, p.Relation, types)
		case p.IO != nil:
			sel = node.NewMessageSelect(b.ctx.Arena, p.IO, types)
		default:
			b.ctx.Log.Structural(diag.Range{}, diag.ErrUnrecognizedPredicate.New(headName(c)))
			continue
		}
		items = append(items, b.dedupRepeatedVars(sel, p.Args))
	}
	return items
}

// dedupRepeatedVars pre-filters sel with CMPs enforcing equalities induced
// by repeated variables within one predicate's argument list (spec §4.1
// step 3), returning an item whose exposed columns each have a distinct
// var-root.
func (b *Builder) dedupRepeatedVars(sel dflow.View, args []Term) *item {
	cur := sel
	roots := make([]string, len(args))
	for i, a := range args {
		if a.IsVar {
			roots[i] = b.uf.find(a.VarName)
		}
	}

	// Fold duplicate var-roots pairwise via equality CMPs; each CMP merges
	// its two inputs into one output column (dflow/node CompareEq rule).
	for i := 0; i < len(roots); i++ {
		if roots[i] == "" {
			continue
		}
		for j := i + 1; j < len(roots); j++ {
			if roots[j] != roots[i] {
				continue
			}
			cols := cur.Columns()
			if i >= len(cols) || j >= len(cols) {
				continue
			}
			var attached []*dflow.Column
			attached = append(attached, cols[:i]...)
			attached = append(attached, cols[i+1:j]...)
			attached = append(attached, cols[j+1:]...)
			cmp := node.NewCompare(b.ctx.Arena, dflow.CompareEq, cols[i], cols[j], attached)
			cur = cmp
			roots = collapseDuplicate(roots, i, j)
			i--
			break
		}
	}
	return &item{view: cur, varsOf: roots}
}

// collapseDuplicate removes index j from roots, matching the column
// reshuffle NewCompare performs when folding a duplicate: the merged
// column (roots[i]) moves to position 0, every other column keeps its
// relative order after it.
func collapseDuplicate(roots []string, i, j int) []string {
	out := make([]string, 0, len(roots)-1)
	out = append(out, roots[i])
	for k, r := range roots {
		if k == i || k == j {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (b *Builder) pendingFunctors(c *Clause) []*Predicate {
	var out []*Predicate
	for _, p := range c.Positive {
		if p.Decl != nil && p.Decl.Kind == dflow.DeclFunctor {
			out = append(out, p)
		}
	}
	return out
}

// resolveWorkList runs spec §4.1 step 4 to fixpoint: repeatedly find a join
// candidate by shared var-id, trying every rotation before giving up;
// realize pending functors once their bound arguments become available;
// fall back to a single zero-pivot Cartesian join over every remaining item
// when no shared var-root exists anywhere in the work list (spec §8
// scenario 2, e.g. `pairs(A,B) :- node(A), node(B)`); stop when one view
// remains and no functors are pending.
func (b *Builder) resolveWorkList(items []*item, functors []*Predicate) (*item, bool) {
	for {
		if len(items) <= 1 && len(functors) == 0 {
			break
		}
		if joined, ok := b.tryJoin(items); ok {
			items = joined
			continue
		}
		if len(functors) > 0 {
			if realized, rest, ok := b.tryRealizeFunctor(items, functors); ok {
				items = append(items, realized)
				functors = rest
				continue
			}
		}
		if len(items) >= 2 {
			// tryJoin already tried every rotation and found no pair sharing
			// a var-root anywhere in the work list, so every remaining item
			// is independent of every other: fold them all into one
			// zero-pivot JOIN rather than bailing out.
			items = []*item{b.cartesianJoinAll(items)}
			continue
		}
		// No join, no realizable functor, and fewer than two items left:
		// exhausted the work list without reaching a single view (spec
		// §4.1 Failure modes).
		break
	}

	if len(items) != 1 || len(functors) != 0 {
		return nil, false
	}
	return items[0], true
}

// tryJoin implements spec §4.1's "find a join candidate" sub-algorithm:
// pick a column of the first view, scan other views for a column sharing
// its var-root; expand the pivot set from the two views' shared var-roots;
// emit a JOIN; if no pivot is found for any column of the first view,
// rotate the list and retry all rotations before giving up.
func (b *Builder) tryJoin(items []*item) ([]*item, bool) {
	n := len(items)
	if n < 2 {
		return items, false
	}
	for rot := 0; rot < n; rot++ {
		first := items[0]
		for _, root := range first.varsOf {
			if root == "" {
				continue
			}
			partnerIdx := -1
			for k := 1; k < n; k++ {
				if _, ok := items[k].columnFor(root); ok {
					partnerIdx = k
					break
				}
			}
			if partnerIdx < 0 {
				continue
			}
			joined := b.joinTwo(first, items[partnerIdx])
			rest := make([]*item, 0, n-1)
			for k := 1; k < n; k++ {
				if k != partnerIdx {
					rest = append(rest, items[k])
				}
			}
			rest = append(rest, joined)
			return rest, true
		}
		// rotate: move first view to the back and retry.
		rotated := make([]*item, n)
		copy(rotated, items[1:])
		rotated[n-1] = items[0]
		items = rotated
	}
	return items, false
}

// joinTwo builds a JOIN over a and b, pivoting on every var-root the two
// share (spec §4.1: "Expand the pivot set by scanning... for additional
// shared var-ids"), producing one output per pivot plus one output per
// remaining non-pivot column of each view. Joins are cached and reused
// (spec §4.1 step 5) under a key made of the two view ids and the number
// of pivots; which variables are the pivots is not part of the key.
func (b *Builder) joinTwo(a, bb *item) *item {
	shared := map[string]bool{}
	for _, r := range a.varsOf {
		if r == "" {
			continue
		}
		if _, ok := bb.columnFor(r); ok {
			shared[r] = true
		}
	}

	var outCols []node.OutMapping
	var roots []string
	var types []dflow.TypeTag

	for root := range shared {
		ca, _ := a.columnFor(root)
		cb, _ := bb.columnFor(root)
		outCols = append(outCols, node.OutMapping{IsPivot: true, Ins: []*dflow.Column{ca, cb}})
		roots = append(roots, root)
		types = append(types, ca.Type)
	}
	for i, col := range a.view.Columns() {
		root := a.varsOf[i]
		if root != "" && shared[root] {
			continue
		}
		outCols = append(outCols, node.OutMapping{Ins: []*dflow.Column{col}})
		roots = append(roots, root)
		types = append(types, col.Type)
	}
	for i, col := range bb.view.Columns() {
		root := bb.varsOf[i]
		if root != "" && shared[root] {
			continue
		}
		outCols = append(outCols, node.OutMapping{Ins: []*dflow.Column{col}})
		roots = append(roots, root)
		types = append(types, col.Type)
	}

	key := joinCacheKey(a.view.ID(), bb.view.ID(), len(shared))
	if cached, ok := b.candidateCache[key]; ok {
		return &item{view: cached, varsOf: roots}
	}

	j := node.NewJoin(b.ctx.Arena, []dflow.View{a.view, bb.view}, len(shared), outCols, types)
	b.candidateCache[key] = j
	return &item{view: j, varsOf: roots}
}

// cartesianJoinAll builds a single zero-pivot JOIN spanning every item in
// items, each item's columns passed straight through as a non-pivot output.
// Called once resolveWorkList has exhausted every rotation of tryJoin
// without finding any pair that shares a var-root (spec §3 JOIN: "When
// num_pivots == 0, acts as Cartesian product"; spec §8 scenario 2, e.g.
// `pairs(A,B) :- node(A), node(B)`).
func (b *Builder) cartesianJoinAll(items []*item) *item {
	var views []dflow.View
	var outCols []node.OutMapping
	var roots []string
	var types []dflow.TypeTag
	for _, it := range items {
		views = append(views, it.view)
		for i, col := range it.view.Columns() {
			outCols = append(outCols, node.OutMapping{Ins: []*dflow.Column{col}})
			roots = append(roots, it.varsOf[i])
			types = append(types, col.Type)
		}
	}
	j := node.NewJoin(b.ctx.Arena, views, 0, outCols, types)
	return &item{view: j, varsOf: roots}
}

func joinCacheKey(a, c dflow.ViewID, pivots int) string {
	if a > c {
		a, c = c, a
	}
	return fmt.Sprintf("%d:%d:%d", a, c, pivots)
}

// tryRealizeFunctor realizes the first pending functor whose bound
// arguments are all satisfied by the current work list, as a MAP. A free
// output whose variable is already bound elsewhere is matched by an
// equality CMP immediately after the MAP (spec §4.1 step 4: "a functor
// whose free output must match an existing column is realized as a MAP
// followed by CMPs that equality-check the matches").
func (b *Builder) tryRealizeFunctor(items []*item, functors []*Predicate) (*item, []*Predicate, bool) {
	for fi, p := range functors {
		bound := make([]*dflow.Column, 0, len(p.Decl.Params))
		allBound := true
		for i, param := range p.Decl.Params {
			if param.Mode != dflow.ParamBound {
				continue
			}
			root := b.uf.find(p.Args[i].VarName)
			col, ok := findInItems(items, root)
			if !ok {
				allBound = false
				break
			}
			bound = append(bound, col)
		}
		if !allBound {
			continue
		}

		var view dflow.View = node.NewMap(b.ctx.Arena, p.Decl, bound, p.Range)
		freeIdx := 0
		roots := make([]string, len(view.Columns()))
		for i, param := range p.Decl.Params {
			if param.Mode != dflow.ParamFree {
				continue
			}
			root := b.uf.find(p.Args[i].VarName)
			if existing, ok := findInItems(items, root); ok {
				out := view.Columns()[freeIdx]
				cmp := node.NewCompare(b.ctx.Arena, dflow.CompareEq, out, existing, nil)
				view = cmp
				roots = []string{root}
				freeIdx = 0
				continue
			}
			roots[freeIdx] = root
			freeIdx++
		}

		rest := append([]*Predicate(nil), functors[:fi]...)
		rest = append(rest, functors[fi+1:]...)
		return &item{view: view, varsOf: roots}, rest, true
	}
	return nil, functors, false
}

func findInItems(items []*item, root string) (*dflow.Column, bool) {
	for _, it := range items {
		if c, ok := it.columnFor(root); ok {
			return c, true
		}
	}
	return nil, false
}

// realizeHead matches the clause head's variables against final's columns
// and forwards them with a TUP into an INS on the head relation/message
// (spec §4.1 step 6). Zero-argument heads set an anonymous COND on the
// INS instead of forwarding any columns.
func (b *Builder) realizeHead(c *Clause, final *item) (*node.Insert, error) {
	head := c.Head
	if len(head.Args) == 0 {
		var ins *node.Insert
		if head.Relation != nil {
			ins = node.NewRelationInsert(b.ctx.Arena, head.Relation, nil)
		} else {
			ins = node.NewMessageInsert(b.ctx.Arena, head.IO, nil)
		}
		cond := b.ctx.Arena.NewCondition()
		cond.SetConditionOn(ins)
		b.applyZeroArgTests(c, ins)
		return ins, nil
	}

	cols := make([]*dflow.Column, 0, len(head.Args))
	for _, a := range head.Args {
		root := b.uf.find(a.VarName)
		col, ok := final.columnFor(root)
		if !ok {
			b.ctx.Log.Structural(diag.Range{}, diag.ErrNoColumnForVariable.New(a.VarName))
			return nil, nil
		}
		cols = append(cols, col)
	}

	tup := node.NewTuple(b.ctx.Arena, cols)
	var ins *node.Insert
	if head.Relation != nil {
		ins = node.NewRelationInsert(b.ctx.Arena, head.Relation, tup.Columns())
	} else {
		ins = node.NewMessageInsert(b.ctx.Arena, head.IO, tup.Columns())
	}
	b.applyZeroArgTests(c, ins)
	return ins, nil
}

// applyZeroArgTests wires the clause body's zero-argument positive/negative
// tests as condition testers on ins (spec §4.1 step 7).
func (b *Builder) applyZeroArgTests(c *Clause, ins dflow.View) {
	for _, p := range c.ZeroArgTests {
		if p.Decl == nil {
			continue
		}
		cond := b.zeroArgCondition(p)
		if cond == nil {
			continue
		}
		if p.Negated {
			cond.AddNegativeTester(ins)
		} else {
			cond.AddPositiveTester(ins)
		}
	}
}

// zeroArgCondition realizes a zero-argument predicate as a zero-column
// SELECT and returns the condition it sets, so the caller can register
// ins as a positive or negative tester of it.
func (b *Builder) zeroArgCondition(p *Predicate) *dflow.Condition {
	var sel dflow.View
	switch {
	case p.Relation != nil:
		sel = node.NewRelationSelect(b.ctx.Arena, p.Relation, nil)
	case p.IO != nil:
		sel = node.NewMessageSelect(b.ctx.Arena, p.IO, nil)
	default:
		return nil
	}
	cond := b.ctx.Arena.NewCondition()
	cond.SetConditionOn(sel)
	return cond
}
