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
	"context"
	"io"
	"io/ioutil"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/dlflow/compiler/dflow/diag"
)

// Config holds the tunables an embedder may set before compiling, loaded
// from YAML the way go-mysql-server's engine loads its server config (spec
// §6 External Interfaces, SPEC_FULL.md §10).
type Config struct {
	// MaxCanonicalizeRounds bounds the canonicalizer fixpoint (spec §4.3)
	// so a bug in a Canonicalize implementation can't loop forever; zero
	// means "use the built-in default."
	MaxCanonicalizeRounds int `yaml:"max_canonicalize_rounds"`

	// DisableCSE and DisableDeadFlowElim let an embedder isolate a single
	// mandatory optimizer pass for debugging, mirroring go-mysql-server's
	// analyzer rule toggles (sql/analyzer).
	DisableCSE          bool `yaml:"disable_cse"`
	DisableDeadFlowElim bool `yaml:"disable_dead_flow_elim"`

	// MaxFixpointIterations bounds the outer canon+CSE+dead-flow-elim
	// joint fixpoint in dflow/optimize.Run (spec §4.4), distinct from
	// MaxCanonicalizeRounds which only bounds one canon.Run call within a
	// single iteration of that outer loop. Zero means "use the built-in
	// default." A bug in a rewrite that keeps reporting change without
	// converging is logged, not panicked, per spec §7's continue-past-
	// diagnostics policy.
	MaxFixpointIterations int `yaml:"max_fixpoint_iterations"`

	// RunSinkConditions opts into the supplemented condition-sink pass
	// (SPEC_FULL.md §12), off by default since it is not part of the
	// core pipeline spec §4 describes.
	RunSinkConditions bool `yaml:"run_sink_conditions"`

	// DivergentByDefault treats every declaration as if it carried
	// @divergent for the purpose of the non-linearizable-induction
	// diagnostic (spec §4.6), for embedders whose whole program is known
	// to tolerate non-deterministic merge order and would rather not
	// annotate every recursive relation individually.
	DivergentByDefault bool `yaml:"divergent_by_default"`

	// LogLevel is parsed with logrus.ParseLevel; empty means Info.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when an embedder supplies
// none.
func DefaultConfig() *Config {
	return &Config{MaxCanonicalizeRounds: 10_000, MaxFixpointIterations: 10_000, LogLevel: "info"}
}

// LoadConfig parses YAML-encoded configuration, the way go-mysql-server's
// engine loads its server config, starting from DefaultConfig and
// overlaying whatever the document sets.
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	bytes, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(bytes, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Context carries the per-compilation state every pass needs: the arena it
// mutates, the diagnostic log it accumulates into, a structured logger, an
// opentracing tracer for per-pass spans, and the Go context.Context used to
// honor cancellation on long-running passes (spec §5 Concurrency/Resource
// Model: "a single compilation may be canceled via context").
type Context struct {
	context.Context

	Arena  *Arena
	Log    *diag.Log
	Config *Config

	Logger *logrus.Entry
	Tracer opentracing.Tracer
}

// NewContext builds a fresh compilation Context over a new Arena, wiring a
// logrus entry and an opentracing tracer the way go-mysql-server's sql.Context
// wires its own logger and tracer (sql/core.go-style construction, inferred
// from go-mysql-server's exported Context surface in engine_test.go).
func NewContext(ctx context.Context, cfg *Config) *Context {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	return &Context{
		Context: ctx,
		Arena:   NewArena(),
		Log:     &diag.Log{},
		Config:  cfg,
		Logger:  logger.WithField("component", "dflow"),
		Tracer:  opentracing.GlobalTracer(),
	}
}

// StartSpan opens an opentracing span for one compiler pass, returning a
// finish func the caller defers. Every pipeline stage (builder, connect,
// canon, optimize, induction, finalize) wraps its Run in one of these, per
// SPEC_FULL.md §11's tracing requirement.
func (c *Context) StartSpan(name string) (opentracing.Span, func()) {
	span, spanCtx := opentracing.StartSpanFromContextWithTracer(c.Context, c.Tracer, name)
	c.Context = spanCtx
	return span, span.Finish
}

// WithLogger returns a copy of c whose Logger has the given fields added,
// for passes that want to tag every log line with e.g. the relation name
// they're working on.
func (c *Context) WithLogger(fields logrus.Fields) *Context {
	cp := *c
	cp.Logger = c.Logger.WithFields(fields)
	return &cp
}

// Cancelled reports whether the underlying context.Context has been
// canceled, the check long-running passes poll between views (spec §5).
func (c *Context) Cancelled() bool {
	select {
	case <-c.Context.Done():
		return true
	default:
		return false
	}
}
