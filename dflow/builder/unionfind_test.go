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

package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnionFindSingletonsByDefault(t *testing.T) {
	u := newUnionFind()
	assert.Equal(t, "x", u.find("x"))
	assert.NotEqual(t, u.find("x"), u.find("y"))
}

func TestUnionFindMergesClasses(t *testing.T) {
	u := newUnionFind()
	u.union("x", "y")
	assert.Equal(t, u.find("x"), u.find("y"))
}

func TestUnionFindChainsTransitively(t *testing.T) {
	u := newUnionFind()
	u.union("x", "y")
	u.union("y", "z")
	assert.Equal(t, u.find("x"), u.find("z"))
	assert.Equal(t, u.find("y"), u.find("z"))
}

func TestUnionFindIsIdempotent(t *testing.T) {
	u := newUnionFind()
	u.union("x", "y")
	root := u.find("x")
	u.union("x", "y")
	assert.Equal(t, root, u.find("x"))
}
