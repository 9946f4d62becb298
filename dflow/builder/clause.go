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

// Package builder implements the clause builder of spec §4.1: it turns one
// parsed Horn clause into an INS view plus whatever SEL/MAP/CMP/JOIN/AGG
// views support it. Grounded on go-mysql-server's sql/memo join-order-builder
// idiom (join_order_builder_test.go: a work-list of join candidates merged
// by shared column references) generalized from SQL join-graph
// construction to Datalog clause-body resolution, and on
// original_source/lib/DataFlow for exact tie-breaking rules the distilled
// spec leaves at the description level.
package builder

import "github.com/dlflow/compiler/dflow"

// Term is one argument of a body predicate or clause head: either a
// variable reference or a literal constant.
type Term struct {
	IsVar    bool
	VarName  string           // set iff IsVar
	Constant interface{}      // set iff !IsVar
	Type     dflow.TypeTag
}

// Predicate is one positive or negated body atom: a reference to a
// relation, message, or functor declaration applied to Args.
type Predicate struct {
	Decl     *dflow.Declaration
	Relation *dflow.Relation
	IO       *dflow.IO
	Args     []Term
	Negated  bool
	Range    dflow.Range // meaningful only when Decl.Kind == DeclFunctor
}

// Assignment binds a variable to a constant literal directly in the body
// (e.g. `X = 1`). Builder.Build does not read Clause.Assignments: no view
// is built for an assignment.
type Assignment struct {
	VarName  string
	Constant interface{}
	Type     dflow.TypeTag
}

// Aggregate is one body aggregate: GroupBy/Config/Summarized variables
// reduced by Functor over the nested scope Body. Builder.Build does not
// read Clause.Aggregates: no AGGREGATE view is built from a clause.
type Aggregate struct {
	Functor    *dflow.Declaration
	GroupBy    []string
	Config     []string
	Summarized []string
	Body       *Clause // the nested scope producing the summarized columns
}

// Clause is one parsed Horn clause: a head predicate over HeadArgs, plus a
// body of positive/negated predicates, assignments, comparisons, and
// aggregates (spec §4.1 Input).
type Clause struct {
	Head         *Predicate
	Positive     []*Predicate
	Negated      []*Predicate
	Assignments  []Assignment
	Aggregates   []Aggregate
	Comparisons  []Comparison
	ZeroArgTests []*Predicate // zero-argument body predicates, spec §4.1 step 7
}

// Comparison is a body comparison between two variables (repeated-variable
// equalities are instead folded directly into union-find by the builder;
// this type covers explicit non-equality comparisons like `X < Y`).
type Comparison struct {
	Op    dflow.CompareOp
	Left  string
	Right string
}
