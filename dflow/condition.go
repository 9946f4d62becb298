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

// Condition is the reference-counted boolean gate of spec §3 COND. The
// runtime refcount itself is a back-end concern; the compiler only tracks
// the setter/tester structure so it can keep §9's two back-reference halves
// ("setter and tester lists... weak back-reference lists on the condition
// object") synchronized.
type Condition struct {
	id int32

	// Setter is the single strong-owning view that produces (sets) this
	// condition. Nil until a view claims it via SetConditionOn.
	Setter View

	// PositiveTesters/NegativeTesters are weak back-reference lists: views
	// that gate their output on this condition being nonzero/zero.
	PositiveTesters []View
	NegativeTesters []View
}

func (c *Condition) ID() int32 { return c.id }

// IsDangling reports whether this condition has no live setter, meaning a
// negative tester should be unlinked (vacuously true) and a positive tester
// should be killed (unsatisfiable) — spec §4.5.
func (c *Condition) IsDangling() bool {
	return c.Setter == nil || c.Setter.Base().IsDead
}

// SetConditionOn makes view the (sole) setter of Condition c, keeping the
// condition object and the view's SetCondition field synchronized, per the
// TransferSetConditionTo contract of spec §9.
func (c *Condition) SetConditionOn(view View) {
	view.Base().SetCondition = c
	c.Setter = view
}

// AddPositiveTester registers view as testing c positively (gates output on
// c != 0), keeping both halves of the relationship synchronized.
func (c *Condition) AddPositiveTester(view View) {
	c.PositiveTesters = append(c.PositiveTesters, view)
	b := view.Base()
	b.PosConditions = append(b.PosConditions, c)
}

// AddNegativeTester registers view as testing c negatively (gates output on
// c == 0).
func (c *Condition) AddNegativeTester(view View) {
	c.NegativeTesters = append(c.NegativeTesters, view)
	b := view.Base()
	b.NegConditions = append(b.NegConditions, c)
}

// TransferSetConditionTo moves c's setter role from its current setter to
// `to`, used when a view degenerates into another (e.g. a MERGE collapsing
// to a TUPLE, spec §4.3) and must forward the condition it used to set.
func (c *Condition) TransferSetConditionTo(to View) {
	if c.Setter != nil {
		c.Setter.Base().SetCondition = nil
	}
	c.SetConditionOn(to)
}

// DropTestedConditions removes every positive/negative condition test that
// `view` performs, unlinking view from each condition's tester lists. Used
// when a view is proven unconditional (e.g. its predecessor became unsat,
// or the condition itself went dangling).
func DropTestedConditions(view View) {
	b := view.Base()
	for _, c := range b.PosConditions {
		c.PositiveTesters = removeView(c.PositiveTesters, view)
	}
	for _, c := range b.NegConditions {
		c.NegativeTesters = removeView(c.NegativeTesters, view)
	}
	b.PosConditions = nil
	b.NegConditions = nil
}

// CopyTestedConditionsTo copies from's tested conditions onto to, e.g. when
// a CMP is sunk through a MERGE and duplicated above each branch (spec
// §4.3).
func CopyTestedConditionsTo(from, to View) {
	fb, tb := from.Base(), to.Base()
	for _, c := range fb.PosConditions {
		c.AddPositiveTester(to)
	}
	for _, c := range fb.NegConditions {
		c.AddNegativeTester(to)
	}
	_ = tb
}

func removeView(vs []View, target View) []View {
	out := vs[:0]
	for _, v := range vs {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}
