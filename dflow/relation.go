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

package dflow

// Param describes one parameter of a declaration (spec §6): its binding
// mode and type, plus whether a mutable parameter carries a merge functor
// name (resolved against the host by a back-end, not by the core).
type Param struct {
	Name          string
	Mode          ParamMode
	Type          TypeTag
	MergeFunctor  string // only meaningful when Mode == ParamMutable
}

// DeclKind is the kind of declaration a Relation/IO's owning Declaration
// represents (spec §6: export, local, query, message, functor).
type DeclKind uint8

const (
	DeclExport DeclKind = iota
	DeclLocal
	DeclQuery
	DeclMessage
	DeclFunctor
)

// FunctorPurity distinguishes a pure host functor (no hidden state, cannot
// produce deletions) from an impure one.
type FunctorPurity uint8

const (
	FunctorPure FunctorPurity = iota
	FunctorImpure
)

// Declaration captures the attributes spec §6 says the core must recognize.
type Declaration struct {
	Name   string
	Kind   DeclKind
	Params []Param

	// Differential marks a message declaration that may carry
	// retractions (required via @differential on messages that produce
	// them, spec §6).
	Differential bool

	// FunctorRange/FunctorPurity only apply to DeclFunctor.
	FunctorRange  Range
	FunctorPurity FunctorPurity

	// Divergent suppresses the non-linearizable-induction diagnostic
	// (@divergent, spec §6/§4.6).
	Divergent bool

	// Highlight colors a clause for the formatter (@highlight); carried
	// through purely for back-end consumption, never inspected by the
	// optimizer.
	Highlight bool
}

// IsFilterOnly reports whether every parameter of a functor declaration is
// bound, i.e. the functor can only test, never generate (spec §6).
func (d *Declaration) IsFilterOnly() bool {
	if d.Kind != DeclFunctor {
		return false
	}
	for _, p := range d.Params {
		if p.Mode != ParamBound {
			return false
		}
	}
	return true
}

// Relation is a named scope for an internal predicate: an owning namespace
// for SELECT and INSERT views over the same relation (spec §3).
type Relation struct {
	id      int32
	Decl    *Declaration
	Selects []View // SELECT views reading this relation
	Inserts []View // INSERT views writing this relation
}

func (r *Relation) ID() int32 { return r.id }

// IO is a named scope for an external message: receives are exposed via
// Selects, transmits via Inserts, same shape as Relation but semantically
// external (spec §3).
type IO struct {
	id      int32
	Decl    *Declaration
	Selects []View
	Inserts []View
}

func (io *IO) ID() int32 { return io.id }
