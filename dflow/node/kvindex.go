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

// ValueColumn is one KVINDEX value column, carrying the merge functor that
// combines old and new values on update (spec §3).
type ValueColumn struct {
	Column       *dflow.Column
	MergeFunctor *dflow.Declaration
}

// KVIndex is the KVINDEX view: key columns as input, value columns as
// attached, each value carrying a merge functor (spec §3).
type KVIndex struct {
	dflow.Base
	Keys   []*dflow.Column
	Values []ValueColumn

	GroupID dflow.GroupID
}

// NewKVIndex builds a KVINDEX over keys/values, exposing the keys followed
// by the (possibly merged) values as output columns.
func NewKVIndex(a *dflow.Arena, keys []*dflow.Column, values []ValueColumn) *KVIndex {
	kv := &KVIndex{Keys: keys, Values: values}
	a.RegisterView(kv, dflow.KindKVIndex)
	kv.GroupID = a.NewGroupID()
	kv.Base.AddGroupID(kv.GroupID)

	kv.Base.InputColumns = keys
	for i, k := range keys {
		k.AddUser(kv, false, i)
	}
	var attached []*dflow.Column
	for _, v := range values {
		attached = append(attached, v.Column)
	}
	kv.Base.AttachedColumns = attached
	for i, c := range attached {
		c.AddUser(kv, true, i)
	}

	for i, k := range keys {
		out := a.NewColumn(kv, i, k.Type)
		out.EqID = k.EqID
		kv.Base.Columns = append(kv.Base.Columns, out)
	}
	base := len(keys)
	for i, v := range values {
		out := a.NewColumn(kv, base+i, v.Column.Type)
		kv.Base.Columns = append(kv.Base.Columns, out)
	}
	return kv
}

func (kv *KVIndex) Columns() []*dflow.Column         { return kv.Base.GetColumns() }
func (kv *KVIndex) InputColumns() []*dflow.Column    { return kv.Base.GetInputColumns() }
func (kv *KVIndex) AttachedColumns() []*dflow.Column { return kv.Base.GetAttachedColumns() }

// Canonicalize degenerates the KVINDEX to a TUPLE over its keys when no
// value output column has a user. Constants are not propagated through the
// key columns.
func (kv *KVIndex) Canonicalize(ctx *dflow.Context) (bool, error) {
	if kv.IsDead || kv.IsUnsat {
		return false, nil
	}
	anyValueUsed := false
	base := len(kv.Keys)
	for i := range kv.Values {
		col := kv.Base.Columns[base+i]
		if len(col.Users) > 0 {
			anyValueUsed = true
			break
		}
	}
	if !anyValueUsed {
		tup := NewTuple(kv.Base.Arena, kv.Keys)
		dflow.ReplaceAllUsesWith(kv, tup)
		return true, nil
	}
	return false, nil
}

func (kv *KVIndex) StructEquals(other dflow.View, visited *dflow.VisitedPairs) bool {
	o, ok := other.(*KVIndex)
	if !ok || len(kv.Keys) != len(o.Keys) || len(kv.Values) != len(o.Values) {
		return false
	}
	if dflow.InsertSetsOverlap(&kv.Base, &o.Base) {
		return false
	}
	if !columnListsEqual(kv.Keys, o.Keys, visited) {
		return false
	}
	for i := range kv.Values {
		if kv.Values[i].MergeFunctor != o.Values[i].MergeFunctor {
			return false
		}
		if !columnsEqual(kv.Values[i].Column, o.Values[i].Column, visited) {
			return false
		}
	}
	return true
}

func (kv *KVIndex) ShallowHash() uint64 {
	h := dflow.HashKind(dflow.KindKVIndex)
	h = dflow.HashColumns(h, kv.Keys)
	for _, v := range kv.Values {
		h = dflow.HashValues(h, v.MergeFunctor.Name)
	}
	return h
}

func (kv *KVIndex) String() string {
	return fmt.Sprintf("KVINDEX(id=%d, keys=%d, values=%d)", kv.ID(), len(kv.Keys), len(kv.Values))
}
