package node

import (
	"context"
	"testing"

	"github.com/relsen/agentgraph/workflow"
)

func TestRegistryBuildUsesRegisteredFactory(t *testing.T) {
	r := NewRegistry()
	r.Register(workflow.KindInput, func(n *workflow.Node) Executor {
		return &InputExecutor{Node: n}
	})
	n := &workflow.Node{ID: "in-1", Kind: workflow.KindInput, StaticInputs: map[string]interface{}{"text": "hello"}}
	exec, ok := r.Build(n)
	if !ok {
		t.Fatal("expected factory to build an executor")
	}
	result := exec.Execute(context.Background(), Request{})
	if result.Output != "hello" {
		t.Fatalf("expected static input forwarded, got %q", result.Output)
	}
}

func TestRegistryBuildReturnsDiscoveryStubRegardlessOfRegistration(t *testing.T) {
	r := NewRegistry()
	n := &workflow.Node{ID: "disc-1", Kind: workflow.KindDiscovery}
	exec, ok := r.Build(n)
	if !ok {
		t.Fatal("expected discovery kind to always resolve")
	}
	result := exec.Execute(context.Background(), Request{})
	if result.OK {
		t.Fatal("expected discovery executor to report unsupported")
	}
}

func TestRegistryBuildMissingKindFails(t *testing.T) {
	r := NewRegistry()
	n := &workflow.Node{ID: "x", Kind: workflow.KindGitHub}
	if _, ok := r.Build(n); ok {
		t.Fatal("expected unregistered kind to fail")
	}
}

func TestOutputExecutorRendersMarkdownWhenConfigured(t *testing.T) {
	exec := &OutputExecutor{Node: &workflow.Node{ID: "out-1"}, Render: true}
	result := exec.Execute(context.Background(), Request{Inputs: map[string]interface{}{"text": "# Title"}})
	if !result.OK {
		t.Fatalf("unexpected failure: %s", result.Err)
	}
	if result.Output == "# Title" {
		t.Fatal("expected markdown to be rendered to HTML")
	}
}

func TestOutputExecutorPassesThroughWithoutRender(t *testing.T) {
	exec := &OutputExecutor{Node: &workflow.Node{ID: "out-1"}}
	result := exec.Execute(context.Background(), Request{Inputs: map[string]interface{}{"text": "raw text"}})
	if result.Output != "raw text" {
		t.Fatalf("expected passthrough, got %q", result.Output)
	}
}
