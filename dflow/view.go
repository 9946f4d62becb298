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

// ViewID identifies a view within its owning Arena. Spec §9 design notes
// call for "small integer indices"; Go's GC makes pointer edges memory-safe
// on their own; the id is retained purely for stable iteration order,
// printing, and depth-order scheduling (spec §5).
type ViewID int32

// GroupID tags the join/aggregate that introduced a column's equivalence
// class, used to forbid unsound merges of structurally-identical SELECTs
// (spec §4.2).
type GroupID int32

// View is the common interface every VIEW kind implements (spec §3 VIEW).
// canonicalize and structural equality dispatch on Kind(), matching spec §9
// design notes' "sum type... canonicalize and equals dispatch on the tag."
type View interface {
	ID() ViewID
	Kind() Kind
	Base() *Base

	// Columns returns this view's ordered output columns.
	Columns() []*Column

	// InputColumns returns the primary input column references (spec §3:
	// "partitioned into input_columns (primary) and attached_columns").
	InputColumns() []*Column

	// AttachedColumns returns the pass-through context column references.
	AttachedColumns() []*Column

	// Canonicalize puts this view into its unique normal form, returning
	// whether any non-local change was made (spec §4.3).
	Canonicalize(ctx *Context) (bool, error)

	// StructEquals reports structural equality with other, recursing
	// through inputs via visited to tolerate cycles (spec §4.4, §9).
	StructEquals(other View, visited *VisitedPairs) bool

	// ShallowHash returns the CSE bucketing hash (spec §4.4 HashInit):
	// stable under unrelated-node mutation, cheap, not required to be
	// collision-free.
	ShallowHash() uint64

	String() string
}

// VisitedPairs lets Equals/Hash recursion tolerate cycles by assuming
// equality on an already-visited pair (spec §9 design notes).
type VisitedPairs struct {
	seen map[[2]ViewID]bool
}

func NewVisitedPairs() *VisitedPairs { return &VisitedPairs{seen: map[[2]ViewID]bool{}} }

// Enter reports whether (a,b) was already visited (in which case the caller
// should treat them as equal and not recurse further), and marks them
// visited either way.
func (v *VisitedPairs) Enter(a, b ViewID) (alreadyVisited bool) {
	key := [2]ViewID{a, b}
	if v.seen[key] {
		return true
	}
	v.seen[key] = true
	return false
}

// Base holds the fields common to every view kind (spec §3 VIEW). Concrete
// kinds in package node embed Base and implement the remaining View methods
// kind-specifically.
type Base struct {
	Arena *Arena
	id    ViewID
	kind  Kind

	Columns         []*Column
	InputColumns    []*Column
	AttachedColumns []*Column

	PosConditions []*Condition
	NegConditions []*Condition
	SetCondition  *Condition

	CanReceiveDeletions bool
	CanProduceDeletions bool

	IsDead      bool
	IsCanonical bool
	IsUnsat     bool

	IsUsedByMerge    bool
	IsUsedByJoin     bool
	IsUsedByNegation bool

	// GroupIDs is the multiset of group ids flowing through this view's
	// columns, used by InsertSetsOverlap (spec §4.2).
	GroupIDs map[GroupID]int

	// Predecessors/Successors are weak, recomputed by the finalizer
	// (spec §4, Finalizer stage) and by passes that need them early as a
	// best-effort cache (invalidated on mutation, like hash/depth).
	Predecessors []ViewID
	Successors   []ViewID

	cachedHash  *uint64
	cachedDepth *int
}

func (b *Base) ID() ViewID                        { return b.id }
func (b *Base) Kind() Kind                        { return b.kind }
func (b *Base) Base() *Base                       { return b }
func (b *Base) GetColumns() []*Column             { return b.Columns }
func (b *Base) GetInputColumns() []*Column        { return b.InputColumns }
func (b *Base) GetAttachedColumns() []*Column     { return b.AttachedColumns }

// InvalidateCaches clears the cached hash/depth of this view. Spec §5:
// "every mutation that drops a strong reference invalidates cached hash and
// depth on the affected node." Propagation to transitive users is the
// caller's responsibility (Update, below) since Base doesn't know how to
// enumerate a view's users on its own (that's a Column-level concept).
func (b *Base) InvalidateCaches() {
	b.cachedHash = nil
	b.cachedDepth = nil
}

// Update invalidates v's caches and transitively every live view that uses
// one of v's output columns, per spec §5's "Update propagation."
func Update(v View) {
	seen := map[ViewID]bool{}
	var walk func(View)
	walk = func(cur View) {
		b := cur.Base()
		if seen[b.id] {
			return
		}
		seen[b.id] = true
		b.InvalidateCaches()
		for _, col := range cur.Columns() {
			col.ForEachLiveUser(walk)
		}
	}
	walk(v)
}

// AddGroupID increments the multiset count for gid on this view.
func (b *Base) AddGroupID(gid GroupID) {
	if b.GroupIDs == nil {
		b.GroupIDs = map[GroupID]int{}
	}
	b.GroupIDs[gid]++
}

// MergeGroupIDsFrom unions other's group-id multiset into b's, used when a
// view absorbs another's uses (CSE rewrite, ReplaceAllUsesWith).
func (b *Base) MergeGroupIDsFrom(other *Base) {
	for gid, n := range other.GroupIDs {
		if b.GroupIDs == nil {
			b.GroupIDs = map[GroupID]int{}
		}
		b.GroupIDs[gid] += n
	}
}

// InsertSetsOverlap reports whether a and b share any group id, the check
// spec §4.2 requires inside every Equals implementation before merging two
// structurally-identical views: "Two SELs may be structurally identical but
// must not be merged if their group_ids sets overlap."
func InsertSetsOverlap(a, b *Base) bool {
	if len(a.GroupIDs) == 0 || len(b.GroupIDs) == 0 {
		return false
	}
	small, large := a.GroupIDs, b.GroupIDs
	if len(large) < len(small) {
		small, large = large, small
	}
	for gid := range small {
		if _, ok := large[gid]; ok {
			return true
		}
	}
	return false
}

// Depth returns v's depth (longest path from a root SELECT/CONSTANT),
// recomputing and caching it if invalidated. Depth order is how passes
// iterate views (spec §5).
func Depth(v View) int {
	b := v.Base()
	if b.cachedDepth != nil {
		return *b.cachedDepth
	}
	max := -1
	for _, col := range v.InputColumns() {
		if col.View == nil {
			continue
		}
		if d := Depth(col.View); d > max {
			max = d
		}
	}
	for _, col := range v.AttachedColumns() {
		if col.View == nil {
			continue
		}
		if d := Depth(col.View); d > max {
			max = d
		}
	}
	d := max + 1
	b.cachedDepth = &d
	return d
}

// CachedHash returns a cached ShallowHash if present, else computes,
// caches, and returns it.
func CachedHash(v View) uint64 {
	b := v.Base()
	if b.cachedHash != nil {
		return *b.cachedHash
	}
	h := v.ShallowHash()
	b.cachedHash = &h
	return h
}

// ReplaceAllUsesWith substitutes every use of `from` by the corresponding
// output column of `to`, transfers from's set-condition and group ids to
// to, and marks from dead (spec §5, §9).
func ReplaceAllUsesWith(from, to View) {
	fCols, tCols := from.Columns(), to.Columns()
	n := len(fCols)
	if len(tCols) < n {
		n = len(tCols)
	}
	for i := 0; i < n; i++ {
		replaceColumn(fCols[i], tCols[i])
	}

	fb, tb := from.Base(), to.Base()
	if fb.SetCondition != nil {
		fb.SetCondition.TransferSetConditionTo(to)
	}
	tb.MergeGroupIDsFrom(fb)
	fb.IsDead = true
	Update(to)
}

// replaceColumn redirects every live user of old to reference next instead,
// walking old's use list exactly once.
func replaceColumn(old, next *Column) {
	for _, u := range old.Users {
		if u.User.Base().IsDead {
			continue
		}
		b := u.User.Base()
		if u.Attached {
			if u.Pos < len(b.AttachedColumns) {
				b.AttachedColumns[u.Pos] = next
			}
		} else {
			if u.Pos < len(b.InputColumns) {
				b.InputColumns[u.Pos] = next
			}
		}
		next.AddUser(u.User, u.Attached, u.Pos)
	}
	old.Users = nil
}

// DirectPredecessors returns the distinct views v reads from. MERGE and JOIN
// expose their branches/joined-views as attached/input columns respectively,
// so walking input and attached columns alone is enough to reach them
// without a kind-specific branch traversal.
func DirectPredecessors(v View) []View {
	var out []View
	seen := map[ViewID]bool{}
	add := func(view View) {
		if view == nil || seen[view.ID()] {
			return
		}
		seen[view.ID()] = true
		out = append(out, view)
	}
	for _, c := range v.InputColumns() {
		if c != nil {
			add(c.View)
		}
	}
	for _, c := range v.AttachedColumns() {
		if c != nil {
			add(c.View)
		}
	}
	return out
}

// CheckIncomingViewsMatch enforces invariant I2 (spec §3): all non-constant
// input columns of a view must originate from the same predecessor view.
// Returns the single shared predecessor (nil if the view has no
// non-constant inputs) and ok=false if two distinct predecessors are found.
func CheckIncomingViewsMatch(cols []*Column) (pred View, ok bool) {
	for _, c := range cols {
		if c.IsConstant() {
			continue
		}
		if pred == nil {
			pred = c.View
			continue
		}
		if pred.ID() != c.View.ID() {
			return nil, false
		}
	}
	return pred, true
}
