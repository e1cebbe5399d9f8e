package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/relsen/agentgraph/provider"
)

var errBoom = errors.New("summarizer unavailable")

type stubSummarizer struct {
	result string
	err    error
}

func (s stubSummarizer) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.result, nil
}

func TestSummaryBufferMemoryContextLayout(t *testing.T) {
	m := NewSummaryBufferMemory()
	m.AddMessage("user", "hello")
	m.AddMessage("assistant", "hi there")

	got := m.Context()
	want := "## Recent Messages:\nUSER: hello\nASSISTANT: hi there\n"
	if got != want {
		t.Fatalf("Context() = %q, want %q", got, want)
	}
}

func TestSummaryBufferMemoryPruneFoldsOldestIntoSummary(t *testing.T) {
	m := NewSummaryBufferMemory()
	for i := 0; i < 11; i++ {
		m.AddMessage("user", "message")
	}

	if err := m.Prune(context.Background(), stubSummarizer{result: "condensed history"}); err != nil {
		t.Fatalf("Prune returned error: %v", err)
	}

	if len(m.buffer) != 6 {
		t.Fatalf("expected 6 remaining buffered messages, got %d", len(m.buffer))
	}
	if m.summary != "condensed history" {
		t.Fatalf("expected summary updated, got %q", m.summary)
	}

	ctx := m.Context()
	if !strings.Contains(ctx, "## Cumulative Summary of Previous Conversation:\ncondensed history") {
		t.Fatalf("expected context to include summary section, got %q", ctx)
	}
}

func TestSummaryBufferMemoryPruneDropsOldestOnSummarizerError(t *testing.T) {
	m := NewSummaryBufferMemory()
	for i := 0; i < 11; i++ {
		m.AddMessage("user", "message")
	}

	err := m.Prune(context.Background(), stubSummarizer{err: errBoom})
	if err == nil {
		t.Fatal("expected Prune to surface the summarizer error")
	}
	if len(m.buffer) != 6 {
		t.Fatalf("expected the oldest 5 messages dropped despite the error, got %d remaining", len(m.buffer))
	}
	if m.summary != "" {
		t.Fatalf("expected no summary recorded on failure, got %q", m.summary)
	}
}

func TestSummaryBufferMemoryPruneNoopBelowThreshold(t *testing.T) {
	m := NewSummaryBufferMemory()
	m.AddMessage("user", "only one")

	if err := m.Prune(context.Background(), stubSummarizer{result: "should not be used"}); err != nil {
		t.Fatalf("Prune returned error: %v", err)
	}
	if m.summary != "" {
		t.Fatalf("expected no summarization below threshold, got %q", m.summary)
	}
	if len(m.buffer) != 1 {
		t.Fatalf("expected buffer untouched, got %d messages", len(m.buffer))
	}
}
