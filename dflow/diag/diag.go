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

// Package diag is the error-log collaborator described in spec §6/§7: the
// core never renders diagnostics, it only accumulates them as
// (display-range, message, notes) tuples for an external collaborator to
// print.
package diag

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
	goerrors "gopkg.in/src-d/go-errors.v1"
)

// Kind distinguishes the three diagnostic families of spec §7.
type Kind int

const (
	// Structural marks a source error: unrecognized predicate kind,
	// variable not range-restricted, could not find column for variable,
	// negation over an unsupported predicate.
	Structural Kind = iota
	// Semantic marks a well-formed-but-invalid program: unsatisfiable
	// comparisons between distinct constants, a variable used as both
	// summary and aggregate, a message with both receives and transmits,
	// a differential discrepancy, or non-linearizable induction without
	// @divergent.
	Semantic
	// Internal marks an invariant violation. Internal diagnostics abort
	// compilation (spec §7 policy).
	Internal
)

func (k Kind) String() string {
	switch k {
	case Structural:
		return "structural"
	case Semantic:
		return "semantic"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Known error kinds, declared with go-errors.v1 the way go-mysql-server
// declares its ErrXxx = errors.NewKind(...) family (sql/errors_test.go).
var (
	ErrUnrecognizedPredicate   = goerrors.NewKind("unrecognized predicate kind: %s")
	ErrNotRangeRestricted      = goerrors.NewKind("variable %q is not range-restricted in clause body")
	ErrNoColumnForVariable     = goerrors.NewKind("could not find a column for variable %q")
	ErrUnsupportedNegation     = goerrors.NewKind("negated predicate %q does not support negation")
	ErrNoDataflowProduced      = goerrors.NewKind("no dataflow produced for clause head %q")
	ErrTableProductUnderNegate = goerrors.NewKind("negation over an unpivoted join of more than two views is not supported")
	ErrForwardNegation         = goerrors.NewKind("negated relation %q has not been built yet")

	ErrUnsatisfiableComparison = goerrors.NewKind("comparison between distinct constants %v and %v is trivially unsatisfiable")
	ErrSummaryAndAggregate     = goerrors.NewKind("variable %q is used as both a summary and an aggregated column")
	ErrMessageBothDirections   = goerrors.NewKind("message %q declares both receives and transmits")
	ErrDifferentialDiscrepancy = goerrors.NewKind("message %q is declared non-differential but its insert can produce deletions")
	ErrNonLinearizable         = goerrors.NewKind("induction on relation %q is not linearizable; mark it @divergent to suppress this diagnostic")

	ErrInvariantViolation = goerrors.NewKind("internal invariant violated: %s")
)

// Range is the external display-range collaborator's handle; the core never
// interprets it, only carries it through.
type Range struct {
	File        string
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

func (r Range) String() string {
	if r.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", r.File, r.StartLine, r.StartColumn)
}

// Note is a secondary annotation attached to a diagnostic, e.g. one per
// unbound variable in a "no dataflow produced" error (spec §4.1).
type Note struct {
	Range   Range
	Message string
}

// Entry is one accumulated diagnostic.
type Entry struct {
	Range Range
	Kind  Kind
	Err   error
	Notes []Note
}

func (e Entry) String() string {
	s := fmt.Sprintf("%s: %s: %v", e.Range, e.Kind, e.Err)
	for _, n := range e.Notes {
		s += fmt.Sprintf("\n  note: %s: %s", n.Range, n.Message)
	}
	return s
}

// Log accumulates diagnostics. Errors are accumulated, not raised: per spec
// §7 policy "the compiler continues until a pass would require assuming
// well-formed input." Internal errors are tracked separately because their
// presence means the caller must discard any finalized output.
type Log struct {
	entries  []Entry
	internal bool
}

// Add records a diagnostic at the given range with optional notes.
func (l *Log) Add(r Range, kind Kind, err error, notes ...Note) {
	l.entries = append(l.entries, Entry{Range: r, Kind: kind, Err: err, Notes: notes})
	if kind == Internal {
		l.internal = true
	}
}

// Structural is a convenience wrapper for Add(r, Structural, err, notes...).
func (l *Log) Structural(r Range, err error, notes ...Note) {
	l.Add(r, Structural, err, notes...)
}

// SemanticErr is a convenience wrapper for Add(r, Semantic, err, notes...).
func (l *Log) SemanticErr(r Range, err error, notes ...Note) {
	l.Add(r, Semantic, err, notes...)
}

// InternalErr is a convenience wrapper for Add(r, Internal, err, notes...).
// The error is wrapped with a stack trace (spec §7 policy: "internal
// invariant violations mark the offending view with a tag the dumper can
// render") so a crash dump can show where in the compiler the violation was
// detected, not just which view it concerns. Callers should stop producing
// finalized output once this has been called.
func (l *Log) InternalErr(r Range, err error, notes ...Note) {
	l.Add(r, Internal, pkgerrors.WithStack(err), notes...)
}

// Entries returns every accumulated diagnostic, in insertion order.
func (l *Log) Entries() []Entry { return l.entries }

// HasInternalErrors reports whether any Internal-kind diagnostic was
// recorded; per spec §7, compilation must return no finalized output in
// that case.
func (l *Log) HasInternalErrors() bool { return l.internal }

// HasErrors reports whether any diagnostic at all was recorded.
func (l *Log) HasErrors() bool { return len(l.entries) > 0 }
