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

// ColumnUse records that View uses Column at a particular slot, so that
// ReplaceAllUsesWith can walk a column's use list once instead of rescanning
// every view in the arena (spec §9 design notes: "each node owns a... list
// of its incoming uses").
type ColumnUse struct {
	User     View
	Attached bool // false: InputColumns slot. true: AttachedColumns slot.
	Pos      int
}

// Column represents one value position produced by exactly one view
// (spec §3 COL).
type Column struct {
	id int32

	// View is the single owning view; non-null.
	View View

	// Index is this column's position within View's output tuple.
	Index int

	// EqID is the logical equivalence-class id: two columns with the same
	// EqID at the same program point are equal at runtime. Assigned
	// provisionally by the builder's union-find and relabeled to fixpoint
	// by the finalizer (spec §4.8).
	EqID int

	// VarName is the source-language variable this column was derived
	// from, if any; purely diagnostic/debugging, never used for equality.
	VarName string

	Type TypeTag

	// ConstRef, if non-nil, is a weak reference to the constant-producing
	// column whose value this column is known to equal statically, even
	// though this column itself is not produced by a CONSTANT select.
	ConstRef *Column

	// Users is the incoming use list: every (view, slot) pair that
	// references this column as an input or attached column.
	Users []*ColumnUse
}

func (c *Column) ID() int32 { return c.id }

// IsConstant reports whether this column's value is known statically,
// either because its own view is a constant-producing SELECT or because a
// ConstRef has been attached during constant propagation.
func (c *Column) IsConstant() bool {
	if c.ConstRef != nil {
		return true
	}
	if sel, ok := c.View.(ConstantSelect); ok {
		return sel.IsConstantSelect()
	}
	return false
}

// ConstantSelect is implemented by SELECT views over a constant stream, so
// IsConstant can recognize a column as constant without an import cycle on
// the node package.
type ConstantSelect interface {
	IsConstantSelect() bool
}

// AddUser records that user references this column at the given slot.
func (c *Column) AddUser(user View, attached bool, pos int) {
	c.Users = append(c.Users, &ColumnUse{User: user, Attached: attached, Pos: pos})
}

// ForEachLiveUser invokes cb for every recorded user whose owning view is
// not dead. Dead producers leave stale entries in Users rather than paying
// for removal on every mutation; liveness-sensitive walks must filter here.
func (c *Column) ForEachLiveUser(cb func(View)) {
	for _, u := range c.Users {
		if u.User.Base().IsDead {
			continue
		}
		cb(u.User)
	}
}
