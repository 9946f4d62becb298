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

// Package canon drives the canonicalization fixpoint of spec §4.3: every
// view kind implements Canonicalize, returning whether it made a non-local
// change; this package iterates the whole graph in depth order until no
// view reports a change, round-robin with the rest of the optimizer
// (dflow/optimize) via the combined driver in Run.
package canon

import (
	"github.com/dlflow/compiler/dflow"
)

// Run iterates every live view in depth order, calling Canonicalize, until
// a full pass makes no change or Config.MaxCanonicalizeRounds is reached
// (spec §4.3: "The optimizer iterates in depth order until no view reports
// change"). Returns the number of rounds run and whether the graph was
// fully canonical when it stopped.
func Run(ctx *dflow.Context) (rounds int, converged bool) {
	limit := ctx.Config.MaxCanonicalizeRounds
	if limit <= 0 {
		limit = 10_000
	}
	span, finish := ctx.StartSpan("canon.Run")
	defer finish()
	_ = span

	for rounds = 0; rounds < limit; rounds++ {
		changed := false
		for _, v := range ctx.Arena.ViewsInDepthOrder() {
			b := v.Base()
			if b.IsDead {
				continue
			}
			ok, err := v.Canonicalize(ctx)
			if err != nil {
				ctx.Logger.WithError(err).WithField("view", v.String()).Warn("canonicalize failed")
				continue
			}
			if ok {
				changed = true
				dflow.Update(v)
			}
		}
		if !changed {
			return rounds + 1, true
		}
		if ctx.Cancelled() {
			return rounds + 1, false
		}
	}
	return rounds, false
}
