package workflow

import (
	"strings"
	"testing"
)

func TestAddNodeRejectsDuplicateAndUnknownKind(t *testing.T) {
	w := New("wf-1", "test")
	if err := w.AddNode(&Node{ID: "a", Kind: KindAgent}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.AddNode(&Node{ID: "a", Kind: KindAgent}); err == nil {
		t.Fatalf("expected duplicate-id error")
	}
	if err := w.AddNode(&Node{ID: "b", Kind: "not-a-kind"}); err == nil {
		t.Fatalf("expected unknown-kind error")
	}
}

func TestValidateDetectsCycleInNonFeedbackSubgraph(t *testing.T) {
	w := New("wf-2", "test")
	_ = w.AddNode(&Node{ID: "a", Kind: KindAgent})
	_ = w.AddNode(&Node{ID: "b", Kind: KindAgent})
	_ = w.AddEdge(Edge{From: "a", To: "b"})
	_ = w.AddEdge(Edge{From: "b", To: "a"})
	if err := w.Validate(); err == nil {
		t.Fatalf("expected cycle detection to fail validation")
	}
}

func TestValidateAllowsFeedbackCycle(t *testing.T) {
	w := New("wf-3", "test")
	_ = w.AddNode(&Node{ID: "writer", Kind: KindAgent, MaxIterations: 2})
	_ = w.AddNode(&Node{ID: "critic", Kind: KindAuditor, MaxIterations: 1})
	_ = w.AddEdge(Edge{From: "writer", To: "critic"})
	_ = w.AddEdge(Edge{From: "critic", To: "writer", Feedback: true})
	if err := w.Validate(); err != nil {
		t.Fatalf("feedback cycle should validate: %v", err)
	}
}

func TestEntryNodesExcludesNodesWithNonFeedbackPredecessor(t *testing.T) {
	w := New("wf-4", "test")
	_ = w.AddNode(&Node{ID: "a", Kind: KindAgent})
	_ = w.AddNode(&Node{ID: "b", Kind: KindAgent})
	_ = w.AddNode(&Node{ID: "c", Kind: KindAgent})
	_ = w.AddEdge(Edge{From: "a", To: "b"})
	_ = w.AddEdge(Edge{From: "c", To: "a", Feedback: true})

	entries := w.EntryNodes()
	if len(entries) != 2 || entries[0].ID != "a" || entries[1].ID != "c" {
		t.Fatalf("expected 'a' and 'c' as entry nodes (b has a non-feedback predecessor), got %v", entries)
	}
}

func TestJSONRoundTripPreservesUnknownFields(t *testing.T) {
	w := New("wf-5", "test")
	_ = w.AddNode(&Node{ID: "a", Kind: KindInput})
	data, err := w.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	withExtra := append(data[:len(data)-1:len(data)-1], []byte(`,"x_custom":"kept"}`)...)

	var back Workflow
	if err := back.UnmarshalJSON(withExtra); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ID != w.ID || back.Name != w.Name {
		t.Fatalf("round-trip mismatch: got %+v", back)
	}
	again, err := back.MarshalJSON()
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if !strings.Contains(string(again), `"x_custom":"kept"`) {
		t.Fatalf("expected unknown field to survive round-trip, got %s", again)
	}
}
