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

// Package optimize implements the global optimizer of spec §4.4/§4.5:
// common-subexpression elimination and dead-flow elimination, run to
// fixpoint against the canonicalizer (dflow/canon). Grounded on
// go-mysql-server's analyzer rule-pipeline idiom (sql/analyzer test fixtures show
// a fixed sequence of whole-plan rewrite rules iterated to fixpoint) and,
// for CSE's bucket-then-recurse shape, on sql/memo's group/expression
// hashing (join_order_builder_test.go).
package optimize

import (
	"github.com/dlflow/compiler/dflow"
)

// CSE groups every live view by ShallowHash, then inside each bucket
// performs pairwise structural equality (tolerant of cycles via
// VisitedPairs); matching pairs are rewritten so the older (lower-depth)
// view absorbs all uses of the newer, which is marked dead (spec §4.4).
// Returns whether any rewrite happened.
func CSE(ctx *dflow.Context) bool {
	span, finish := ctx.StartSpan("optimize.CSE")
	defer finish()
	_ = span

	buckets := map[uint64][]dflow.View{}
	for _, v := range ctx.Arena.ViewsInDepthOrder() {
		if v.Base().IsDead {
			continue
		}
		h := dflow.CachedHash(v)
		buckets[h] = append(buckets[h], v)
	}

	changed := false
	for _, bucket := range buckets {
		if len(bucket) < 2 {
			continue
		}
		for i := 0; i < len(bucket); i++ {
			older := bucket[i]
			if older.Base().IsDead {
				continue
			}
			for j := i + 1; j < len(bucket); j++ {
				newer := bucket[j]
				if newer.Base().IsDead {
					continue
				}
				if older.Kind() != newer.Kind() {
					continue
				}
				if len(older.Columns()) != len(newer.Columns()) {
					continue
				}
				if !conditionsMatch(older, newer) {
					continue
				}
				if !older.StructEquals(newer, dflow.NewVisitedPairs()) {
					continue
				}
				// older has the lower depth since views are iterated in
				// depth order and bucket preserves that order.
				dflow.ReplaceAllUsesWith(newer, older)
				changed = true
			}
		}
	}
	return changed
}

// conditionsMatch reports whether a and b test the exact same set of
// conditions, positively and negatively (spec §4.4: "matching condition
// lists").
func conditionsMatch(a, b dflow.View) bool {
	ab, bb := a.Base(), b.Base()
	return sameConditionSet(ab.PosConditions, bb.PosConditions) &&
		sameConditionSet(ab.NegConditions, bb.NegConditions)
}

func sameConditionSet(a, b []*dflow.Condition) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[int32]bool{}
	for _, c := range a {
		seen[c.ID()] = true
	}
	for _, c := range b {
		if !seen[c.ID()] {
			return false
		}
	}
	return true
}
