// Package node implements the per-Kind execution behavior the dag engine
// dispatches to: one Executor per workflow.Kind, registered in a static
// Registry at startup (spec's "discovery" kind is the one exception —
// it reports a structured not-supported result rather than attempting
// dynamic code loading, see Registry.Build).
package node

import (
	"context"

	"github.com/relsen/agentgraph/workflow"
)

// Request carries everything an Executor needs for one node step. It is
// assembled fresh by the dag engine for every invocation; nothing here
// survives across steps except what the executor itself persists via
// Blackboard or Memory.
type Request struct {
	Node            *workflow.Node
	Inputs          map[string]interface{}
	ContextStr      string
	PersonaOverride string
	RunID           string
	Step            int
}

// Result is what every Executor returns: either a successful textual
// output, or a structured failure. This mirrors the {"ok": ..., ...}
// shape agent_node.py and its siblings return, generalized to every
// node kind.
type Result struct {
	OK     bool
	Output string
	Err    string
	// Route, when non-empty, overrides the engine's default
	// successor-edge evaluation (used by the router executor).
	Route []string
}

// Executor runs one node step to completion or failure. Implementations
// must respect ctx cancellation and must never panic — a panic recovery
// at the dag engine boundary is a backstop, not a substitute for correct
// executor behavior.
type Executor interface {
	Execute(ctx context.Context, req Request) Result
}

// Factory builds an Executor bound to a specific node's static
// configuration (provider id, persona, router conditions, etc).
type Factory func(n *workflow.Node) Executor

// Registry maps each closed Kind to the Factory that builds its
// Executor. It is populated once at startup and never mutated during a
// run.
type Registry struct {
	factories map[workflow.Kind]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[workflow.Kind]Factory)}
}

// Register installs factory for kind, replacing any existing entry.
func (r *Registry) Register(kind workflow.Kind, factory Factory) {
	r.factories[kind] = factory
}

// Build returns an Executor for n via its registered Factory. The
// "discovery" kind has no installable Factory by design: dynamic
// executor installation is not supported, and Build returns a
// DiscoveryExecutor unconditionally for it regardless of what's
// registered under that key.
func (r *Registry) Build(n *workflow.Node) (Executor, bool) {
	if n.Kind == workflow.KindDiscovery {
		return &DiscoveryExecutor{}, true
	}
	factory, ok := r.factories[n.Kind]
	if !ok {
		return nil, false
	}
	return factory(n), true
}

// DiscoveryExecutor is the fixed behavior for the "discovery" kind: it
// always reports that dynamic executor installation is unsupported,
// per the Open Question decision recorded in SPEC_FULL.md.
type DiscoveryExecutor struct{}

func (e *DiscoveryExecutor) Execute(ctx context.Context, req Request) Result {
	return Result{OK: false, Err: "dynamic executor installation is not supported; register a Factory at startup"}
}
