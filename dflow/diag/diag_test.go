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

package diag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAccumulatesWithoutAborting(t *testing.T) {
	var l Log
	assert.False(t, l.HasErrors())

	l.Structural(Range{}, ErrNotRangeRestricted.New("X"))
	l.SemanticErr(Range{}, ErrSummaryAndAggregate.New("Y"))

	assert.True(t, l.HasErrors())
	assert.False(t, l.HasInternalErrors())
	assert.Len(t, l.Entries(), 2)
}

func TestInternalErrMarksHasInternalErrors(t *testing.T) {
	var l Log
	l.InternalErr(Range{}, ErrInvariantViolation.New("view 3 has two predecessors"))

	assert.True(t, l.HasInternalErrors())
	require.Len(t, l.Entries(), 1)
	assert.Equal(t, Internal, l.Entries()[0].Kind)

	// InternalErr wraps with a stack trace so a crash dump can show where
	// the invariant fired, not just which view it concerns.
	extended := fmt.Sprintf("%+v", l.Entries()[0].Err)
	assert.Contains(t, extended, "TestInternalErrMarksHasInternalErrors")
}

func TestEntryStringIncludesNotes(t *testing.T) {
	e := Entry{
		Range: Range{File: "mod.dl", StartLine: 4, StartColumn: 2},
		Kind:  Structural,
		Err:   ErrNoColumnForVariable.New("X"),
		Notes: []Note{{Range: Range{File: "mod.dl", StartLine: 4, StartColumn: 10}, Message: "declared here"}},
	}
	s := e.String()
	assert.Contains(t, s, "mod.dl:4:2")
	assert.Contains(t, s, "declared here")
}
