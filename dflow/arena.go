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

import "fmt"

// Arena is the allocator for every DFG node kind, and the sole owner of
// every View, Column, Condition, Relation and IO created during one
// compilation (spec §3 Lifecycle, §5: "the entire DFG is owned by one
// compilation context"). Nothing is freed until the final dead-code sweep;
// mutation proceeds by replacement and marking nodes dead, never by
// removing them from the arena mid-pass.
type Arena struct {
	views      []View
	columns    []*Column
	conditions []*Condition
	relations  map[string]*Relation
	ios        map[string]*IO

	nextViewID ViewID
	nextColID  int32
	nextCondID int32
	nextRelID  int32
	nextGroup  GroupID
}

func NewArena() *Arena {
	return &Arena{
		relations: map[string]*Relation{},
		ios:       map[string]*IO{},
	}
}

// RegisterView assigns v a fresh id, initializes its Base.Arena/kind/id, and
// records it in the arena's master list. Concrete view constructors in
// package node call this once per new node.
func (a *Arena) RegisterView(v View, kind Kind) {
	b := v.Base()
	b.Arena = a
	b.kind = kind
	b.id = a.nextViewID
	a.nextViewID++
	a.views = append(a.views, v)
}

// NewColumn allocates a fresh output column owned by view at the given
// tuple index.
func (a *Arena) NewColumn(view View, index int, t TypeTag) *Column {
	c := &Column{id: a.nextColID, View: view, Index: index, Type: t}
	a.nextColID++
	a.columns = append(a.columns, c)
	return c
}

// NewCondition allocates a fresh, setter-less condition.
func (a *Arena) NewCondition() *Condition {
	c := &Condition{id: a.nextCondID}
	a.nextCondID++
	a.conditions = append(a.conditions, c)
	return c
}

// NewGroupID allocates a fresh group id (spec §4.2): one per JOIN,
// AGGREGATE and KVINDEX at construction, and one per merge set found by
// induction analysis.
func (a *Arena) NewGroupID() GroupID {
	id := a.nextGroup
	a.nextGroup++
	return id
}

// Relation returns the named relation, creating it (and its Declaration
// stub) on first use.
func (a *Arena) Relation(name string, decl *Declaration) *Relation {
	if r, ok := a.relations[name]; ok {
		return r
	}
	r := &Relation{id: a.nextRelID, Decl: decl}
	a.nextRelID++
	a.relations[name] = r
	return r
}

// IOByName returns the named IO, creating it on first use.
func (a *Arena) IOByName(name string, decl *Declaration) *IO {
	if io, ok := a.ios[name]; ok {
		return io
	}
	io := &IO{id: a.nextRelID, Decl: decl}
	a.nextRelID++
	a.ios[name] = io
	return io
}

// Views returns every view ever allocated, including dead ones. Passes that
// care about liveness must check Base().IsDead themselves.
func (a *Arena) Views() []View { return a.views }

// LiveViews returns every non-dead view, in allocation order.
func (a *Arena) LiveViews() []View {
	out := make([]View, 0, len(a.views))
	for _, v := range a.views {
		if !v.Base().IsDead {
			out = append(out, v)
		}
	}
	return out
}

// ViewsInDepthOrder returns live views sorted by ascending Depth, the
// iteration order spec §5 mandates for passes.
func (a *Arena) ViewsInDepthOrder() []View {
	out := a.LiveViews()
	// Simple insertion sort: arenas in this compiler are small enough
	// (thousands of views, not millions) that an O(n log n) stable sort
	// isn't worth the import; depth rarely changes between adjacent
	// passes so this stays close to linear in practice.
	sortViewsByDepth(out)
	return out
}

func sortViewsByDepth(views []View) {
	depths := make([]int, len(views))
	for i, v := range views {
		depths[i] = Depth(v)
	}
	for i := 1; i < len(views); i++ {
		d, v := depths[i], views[i]
		j := i - 1
		for j >= 0 && depths[j] > d {
			depths[j+1] = depths[j]
			views[j+1] = views[j]
			j--
		}
		depths[j+1] = d
		views[j+1] = v
	}
}

// Conditions returns every condition allocated in this arena, including
// ones whose setter has since died (callers filter via IsDangling/Setter).
func (a *Arena) Conditions() []*Condition { return a.conditions }

// Relations returns every relation created in this arena.
func (a *Arena) Relations() map[string]*Relation { return a.relations }

// IOs returns every IO created in this arena.
func (a *Arena) IOs() map[string]*IO { return a.ios }

// Sweep performs the final dead-node removal pass (spec §3 Lifecycle: "A
// final sweep removes dead nodes"), compacting the arena's view list and
// every relation/IO's select/insert lists.
func (a *Arena) Sweep() {
	live := a.views[:0]
	for _, v := range a.views {
		if !v.Base().IsDead {
			live = append(live, v)
		}
	}
	a.views = live

	for _, r := range a.relations {
		r.Selects = sweepViews(r.Selects)
		r.Inserts = sweepViews(r.Inserts)
	}
	for _, io := range a.ios {
		io.Selects = sweepViews(io.Selects)
		io.Inserts = sweepViews(io.Inserts)
	}
}

func sweepViews(vs []View) []View {
	out := vs[:0]
	for _, v := range vs {
		if !v.Base().IsDead {
			out = append(out, v)
		}
	}
	return out
}

func (a *Arena) String() string {
	return fmt.Sprintf("Arena{views=%d live=%d}", len(a.views), len(a.LiveViews()))
}
