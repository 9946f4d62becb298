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

// Package node holds the ten concrete VIEW kinds of spec §3: the
// Base-embedding structs that implement dflow.View, plus their per-kind
// Canonicalize and StructEquals rules from spec §4.3/§4.4. Grounded on
// go-mysql-server's sql/plan node family (*_test.go only, since the pack
// carries no sql/plan implementation source) for the embed-a-common-header,
// dispatch-on-tag shape, and on original_source/ for exact per-kind
// semantics the distilled spec left at the description level.
package node

import (
	"fmt"

	"github.com/dlflow/compiler/dflow"
)

// SourceKind distinguishes what a SELECT reads from (spec §3: "relation...,
// a stream (message/constant), or an IO").
type SourceKind uint8

const (
	SourceRelation SourceKind = iota
	SourceMessage
	SourceConstant
	SourceTag
)

func (k SourceKind) String() string {
	switch k {
	case SourceRelation:
		return "relation"
	case SourceMessage:
		return "message"
	case SourceConstant:
		return "constant"
	case SourceTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Select is the SEL view: an entry point into the dataflow graph. A
// Constant or Tag select (spec §3 "Constant / Tag — degenerate views
// producing one immutable value; tags are unique 16-bit opaque
// identifiers") is modeled as a single-column SELECT whose Source is
// SourceConstant/SourceTag rather than as separate view kinds, since both
// share every structural property a SELECT already has (one owning view,
// zero inputs, columns used downstream exactly like any other select).
type Select struct {
	dflow.Base

	Source SourceKind

	Relation *dflow.Relation // set iff Source == SourceRelation
	IO       *dflow.IO       // set iff Source == SourceMessage

	// ConstantValue holds the literal for a SourceConstant select; TagValue
	// holds the 16-bit opaque id for a SourceTag select.
	ConstantValue interface{}
	TagValue      uint16
}

// NewRelationSelect builds a SELECT reading relType's arity from rel,
// registers it with rel's Selects list, and allocates one output column per
// type in colTypes.
func NewRelationSelect(a *dflow.Arena, rel *dflow.Relation, colTypes []dflow.TypeTag) *Select {
	s := &Select{Source: SourceRelation, Relation: rel}
	a.RegisterView(s, dflow.KindSelect)
	for i, t := range colTypes {
		s.Columns = append(s.Columns, a.NewColumn(s, i, t))
	}
	rel.Selects = append(rel.Selects, s)
	return s
}

// NewMessageSelect builds a SELECT receiving io's message.
func NewMessageSelect(a *dflow.Arena, io *dflow.IO, colTypes []dflow.TypeTag) *Select {
	s := &Select{Source: SourceMessage, IO: io}
	a.RegisterView(s, dflow.KindSelect)
	for i, t := range colTypes {
		s.Columns = append(s.Columns, a.NewColumn(s, i, t))
	}
	io.Selects = append(io.Selects, s)
	return s
}

// NewConstantSelect builds a single-column SELECT over a statically known
// literal.
func NewConstantSelect(a *dflow.Arena, val interface{}, t dflow.TypeTag) *Select {
	s := &Select{Source: SourceConstant, ConstantValue: val}
	a.RegisterView(s, dflow.KindSelect)
	s.Columns = append(s.Columns, a.NewColumn(s, 0, t))
	return s
}

// NewTagSelect builds a single-column SELECT over an opaque 16-bit tag.
func NewTagSelect(a *dflow.Arena, tag uint16) *Select {
	s := &Select{Source: SourceTag, TagValue: tag}
	a.RegisterView(s, dflow.KindSelect)
	s.Columns = append(s.Columns, a.NewColumn(s, 0, dflow.TypeOpaque))
	return s
}

func (s *Select) Columns() []*dflow.Column         { return s.Base.GetColumns() }
func (s *Select) InputColumns() []*dflow.Column    { return nil }
func (s *Select) AttachedColumns() []*dflow.Column { return nil }

// IsConstantSelect implements dflow.ConstantSelect.
func (s *Select) IsConstantSelect() bool {
	return s.Source == SourceConstant || s.Source == SourceTag
}

// Canonicalize for a SELECT makes no change: it has no inputs to propagate
// constants through and can never itself become unsatisfiable (spec §4.3
// step (a)/(b) are vacuous for a source). Unused columns are not dropped.
func (s *Select) Canonicalize(ctx *dflow.Context) (bool, error) {
	if s.IsDead {
		return false, nil
	}
	return false, nil
}

func (s *Select) StructEquals(other dflow.View, visited *dflow.VisitedPairs) bool {
	o, ok := other.(*Select)
	if !ok || s.Source != o.Source {
		return false
	}
	if dflow.InsertSetsOverlap(&s.Base, &o.Base) {
		return false
	}
	switch s.Source {
	case SourceRelation:
		return s.Relation == o.Relation && len(s.Columns()) == len(o.Columns())
	case SourceMessage:
		return s.IO == o.IO && len(s.Columns()) == len(o.Columns())
	case SourceConstant:
		return s.ConstantValue == o.ConstantValue
	case SourceTag:
		return s.TagValue == o.TagValue
	}
	return false
}

func (s *Select) ShallowHash() uint64 {
	h := dflow.HashKind(dflow.KindSelect)
	h = dflow.HashValues(h, s.Source)
	switch s.Source {
	case SourceConstant:
		h = dflow.HashValues(h, s.ConstantValue)
	case SourceTag:
		h = dflow.HashValues(h, s.TagValue)
	}
	return h
}

func (s *Select) String() string {
	switch s.Source {
	case SourceConstant:
		return fmt.Sprintf("SELECT[const=%v](id=%d)", s.ConstantValue, s.ID())
	case SourceTag:
		return fmt.Sprintf("SELECT[tag=%d](id=%d)", s.TagValue, s.ID())
	case SourceMessage:
		return fmt.Sprintf("SELECT[io](id=%d)", s.ID())
	default:
		return fmt.Sprintf("SELECT[rel](id=%d)", s.ID())
	}
}
