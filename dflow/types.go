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

// TypeTag is the closed set of column value types the core understands.
// A full source-language type system (spec §1 Non-goals: "No type inference
// of the source language") is out of scope; the core only needs enough of a
// type tag to detect trivially unsatisfiable comparisons and to drive
// constant coercion (SPEC_FULL.md §11, spf13/cast).
type TypeTag uint8

const (
	TypeInvalid TypeTag = iota
	TypeI8
	TypeI16
	TypeI32
	TypeI64
	TypeU8
	TypeU16
	TypeU32
	TypeU64
	TypeFloat
	TypeDouble
	TypeBytes
	TypeASCII
	TypeUTF8
	TypeUUID
	TypeOpaque
)

func (t TypeTag) String() string {
	switch t {
	case TypeI8:
		return "i8"
	case TypeI16:
		return "i16"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeU8:
		return "u8"
	case TypeU16:
		return "u16"
	case TypeU32:
		return "u32"
	case TypeU64:
		return "u64"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeBytes:
		return "bytes"
	case TypeASCII:
		return "ascii"
	case TypeUTF8:
		return "utf8"
	case TypeUUID:
		return "uuid"
	case TypeOpaque:
		return "opaque"
	default:
		return "invalid"
	}
}

// IsNumeric reports whether the type tag is one of the signed/unsigned
// integer or floating-point widths, i.e. eligible for cast-based coercion
// when folding constants across mismatched-but-compatible widths.
func (t TypeTag) IsNumeric() bool {
	switch t {
	case TypeI8, TypeI16, TypeI32, TypeI64, TypeU8, TypeU16, TypeU32, TypeU64, TypeFloat, TypeDouble:
		return true
	default:
		return false
	}
}

// Kind tags a View's variant, mirroring go-mysql-server's dispatch-by-tag
// plan nodes (sql/plan) but as a closed sum type instead of an open interface
// hierarchy, per spec §9 design notes ("use a sum type... canonicalize and
// equals dispatch on the tag").
type Kind uint8

const (
	KindSelect Kind = iota
	KindTuple
	KindJoin
	KindMerge
	KindCompare
	KindMap
	KindAggregate
	KindKVIndex
	KindNegate
	KindInsert
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindTuple:
		return "TUPLE"
	case KindJoin:
		return "JOIN"
	case KindMerge:
		return "MERGE"
	case KindCompare:
		return "COMPARE"
	case KindMap:
		return "MAP"
	case KindAggregate:
		return "AGGREGATE"
	case KindKVIndex:
		return "KVINDEX"
	case KindNegate:
		return "NEGATE"
	case KindInsert:
		return "INSERT"
	default:
		return "UNKNOWN"
	}
}

// CompareOp is the binary relational operator a COMPARE view tests.
type CompareOp uint8

const (
	CompareEq CompareOp = iota
	CompareNeq
	CompareLt
	CompareGt
)

func (o CompareOp) String() string {
	switch o {
	case CompareEq:
		return "="
	case CompareNeq:
		return "!="
	case CompareLt:
		return "<"
	case CompareGt:
		return ">"
	default:
		return "?"
	}
}

// Range is a MAP view's binding-pattern cardinality (spec §3 MAP).
type Range uint8

const (
	RangeOne Range = iota
	RangeZeroOrOne
	RangeZeroOrMore
	RangeOneOrMore
)

// ParamMode is a declaration parameter's binding mode (spec §6).
type ParamMode uint8

const (
	ParamBound ParamMode = iota
	ParamFree
	ParamAggregate
	ParamSummary
	ParamMutable
)
