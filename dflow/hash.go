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

import (
	"github.com/mitchellh/hashstructure"
)

// columnShape is the part of a Column that feeds into a view's shallow
// hash: identity of the producing view is intentionally excluded (spec
// §4.4 HashInit must be "stable under mutation of unrelated nodes", so two
// columns from distinct-but-structurally-equal producers must hash alike),
// leaving only what's locally knowable about the column itself.
type columnShape struct {
	Index int
	Type  TypeTag
	EqID  int
}

// HashKind mixes a Kind tag into a running hash, the first ingredient of
// every ShallowHash implementation in package node.
func HashKind(k Kind) uint64 {
	h, err := hashstructure.Hash(struct{ K Kind }{k}, nil)
	if err != nil {
		// hashstructure only errors on unsupported field types; Kind is a
		// plain uint8 and can never trigger this.
		panic(err)
	}
	return h
}

// HashColumns folds a view's input/attached columns into seed, using only
// each column's locally-stable shape (not its producing view's identity,
// which would defeat CSE across structurally-equal subtrees) combined with
// the column's own id when it's a direct self-reference (CSE must still
// distinguish "this view's own column 0" from "some other column of the
// same shape").
func HashColumns(seed uint64, cols []*Column) uint64 {
	for _, c := range cols {
		var part uint64
		if c == nil {
			part = 0
		} else {
			shape := columnShape{Index: c.Index, Type: c.Type, EqID: c.EqID}
			h, err := hashstructure.Hash(shape, nil)
			if err != nil {
				panic(err)
			}
			part = h
		}
		seed = mix(seed, part)
	}
	return seed
}

// HashValues folds arbitrary hashable payloads (a CompareOp, a constant
// literal, a functor name) into seed, for views whose identity depends on
// more than just their columns.
func HashValues(seed uint64, vals ...interface{}) uint64 {
	for _, v := range vals {
		h, err := hashstructure.Hash(v, nil)
		if err != nil {
			panic(err)
		}
		seed = mix(seed, h)
	}
	return seed
}

// mix combines two hash values with a 64-bit variant of boost::hash_combine,
// cheap and good enough for bucketing (spec §4.4: "not required to be
// collision-free").
func mix(seed, v uint64) uint64 {
	const golden = 0x9e3779b97f4a7c15
	seed ^= v + golden + (seed << 6) + (seed >> 2)
	return seed
}
