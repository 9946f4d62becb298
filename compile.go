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

// Package compiler ties the six dataflow-compiler stages together: Builder,
// Connector, Canonicalizer, Global Optimizer, Induction Analysis, and
// Finalizer. An embedder builds a fresh dflow.Context, parses its own module
// representation into builder.Clause values against that Context's Arena,
// then calls Compile.
package compiler

import (
	"fmt"

	"github.com/dlflow/compiler/dflow"
	"github.com/dlflow/compiler/dflow/builder"
	"github.com/dlflow/compiler/dflow/connect"
	"github.com/dlflow/compiler/dflow/finalize"
	"github.com/dlflow/compiler/dflow/induction"
	"github.com/dlflow/compiler/dflow/optimize"
)

// Compile runs every clause through the Builder, then drives the Connector,
// Global Optimizer (which folds the Canonicalizer fixpoint into itself),
// Induction Analysis, and Finalizer in the order spec §4 lists them,
// returning the back-end-facing Output. A Structural/Semantic diagnostic
// logged against ctx.Log during any stage does not by itself stop the
// pipeline (spec §7: "the compiler continues until a pass would require
// assuming well-formed input"); callers should inspect ctx.Log.HasErrors()
// regardless of whether Compile also returns an error. Compile returns an
// error only when no Output could be produced at all: either an Internal
// diagnostic fired (ctx.Log.HasInternalErrors()) or the Go context was
// canceled mid-pipeline.
func Compile(ctx *dflow.Context, clauses []*builder.Clause) (*finalize.Output, error) {
	span, finish := ctx.StartSpan("compiler.Compile")
	defer finish()
	_ = span

	b := builder.New(ctx)
	for _, c := range clauses {
		if _, err := b.Build(c); err != nil {
			ctx.Logger.WithError(err).Warn("clause build failed")
		}
		if ctx.Cancelled() {
			return nil, ctx.Err()
		}
	}

	connect.Connect(ctx)
	if ctx.Cancelled() {
		return nil, ctx.Err()
	}

	optimize.Run(ctx)
	if ctx.Cancelled() {
		return nil, ctx.Err()
	}

	induction.Run(ctx)
	if ctx.Cancelled() {
		return nil, ctx.Err()
	}

	out := finalize.Run(ctx)
	if out == nil {
		return nil, fmt.Errorf("compiler: internal invariant violated, see ctx.Log for detail")
	}
	return out, nil
}
