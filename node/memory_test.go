package node

import (
	"context"
	"testing"

	"github.com/relsen/agentgraph/memory"
	"github.com/relsen/agentgraph/workflow"
)

func TestMemoryExecutorReturnsShortTermContextByDefault(t *testing.T) {
	mem := memory.NewSummaryBufferMemory()
	mem.AddMessage("user", "hello")
	n := &workflow.Node{ID: "mem-1"}
	exec := &MemoryExecutor{Node: n, Memory: mem}

	result := exec.Execute(context.Background(), Request{})
	if !result.OK || result.Output == "" {
		t.Fatalf("expected non-empty short-term context, got %+v", result)
	}
}

func TestMemoryExecutorStoresDocumentWhenConfiguredForStore(t *testing.T) {
	store := memory.NewVectorStore()
	n := &workflow.Node{ID: "mem-1", ProviderConfig: map[string]interface{}{"operation": "store"}}
	exec := &MemoryExecutor{Node: n, Store: store}

	result := exec.Execute(context.Background(), Request{Inputs: map[string]interface{}{
		"text": "the launch date is 2026-09-01",
		"tags": []interface{}{"launch", "schedule"},
	}})
	if !result.OK || result.Output == "" {
		t.Fatalf("expected a stored document id, got %+v", result)
	}

	found, err := store.Retrieve(context.Background(), "launch date", 5)
	if err != nil {
		t.Fatalf("Retrieve returned error: %v", err)
	}
	if found == "" {
		t.Fatalf("expected the stored document to be retrievable")
	}
}

func TestMemoryExecutorStoreIsNoopWithoutContent(t *testing.T) {
	store := memory.NewVectorStore()
	n := &workflow.Node{ID: "mem-1", ProviderConfig: map[string]interface{}{"operation": "store"}}
	exec := &MemoryExecutor{Node: n, Store: store}

	result := exec.Execute(context.Background(), Request{})
	if !result.OK || result.Output != "" {
		t.Fatalf("expected a silent no-op with no input text, got %+v", result)
	}
}
