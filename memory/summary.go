package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/relsen/agentgraph/provider"
)

// Message is one buffered conversation turn.
type Message struct {
	Role    string
	Content string
}

// Summarizer generates text from a prompt, satisfied by provider.Provider
// (or the failover.Manager for a failover-aware pruner).
type Summarizer interface {
	Generate(ctx context.Context, req provider.GenerateRequest) (string, error)
}

// SummaryBufferMemory keeps recent turns verbatim and folds older ones
// into a running summary once the buffer grows past pruneThreshold,
// implementing node.MemoryContext.
type SummaryBufferMemory struct {
	mu      sync.Mutex
	buffer  []Message
	summary string
}

// NewSummaryBufferMemory returns an empty memory.
func NewSummaryBufferMemory() *SummaryBufferMemory {
	return &SummaryBufferMemory{}
}

// AddMessage appends a turn to the buffer.
func (m *SummaryBufferMemory) AddMessage(role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer = append(m.buffer, Message{Role: role, Content: content})
}

// Context returns the summary (if any) followed by the buffered
// messages, in the exact section layout SummaryBufferMemory.get_context
// produces.
func (m *SummaryBufferMemory) Context() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b strings.Builder
	if m.summary != "" {
		b.WriteString("## Cumulative Summary of Previous Conversation:\n")
		b.WriteString(m.summary)
		b.WriteString("\n\n")
	}
	if len(m.buffer) > 0 {
		b.WriteString("## Recent Messages:\n")
		for _, msg := range m.buffer {
			fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(msg.Role), msg.Content)
		}
	}
	return b.String()
}

// pruneThreshold and pruneBatch match the original's fixed "summarize
// the first 5 once the buffer exceeds 10" policy.
const (
	pruneThreshold = 10
	pruneBatch     = 5
)

// Prune summarizes the oldest pruneBatch messages through summarizer
// once the buffer exceeds pruneThreshold, folding the result into the
// running summary.
func (m *SummaryBufferMemory) Prune(ctx context.Context, summarizer Summarizer) error {
	m.mu.Lock()
	if len(m.buffer) <= pruneThreshold {
		m.mu.Unlock()
		return nil
	}
	toSummarize := append([]Message{}, m.buffer[:pruneBatch]...)
	remaining := append([]Message{}, m.buffer[pruneBatch:]...)
	currentSummary := m.summary
	m.mu.Unlock()

	var snippet strings.Builder
	for _, msg := range toSummarize {
		fmt.Fprintf(&snippet, "%s: %s\n", msg.Role, msg.Content)
	}

	result, err := summarizer.Generate(ctx, provider.GenerateRequest{
		SystemPrompt: "You are a context manager. Summarize conversation history.",
		UserMessage:  fmt.Sprintf("Current Summary: %s\n\nNew Snippet:\n%s", currentSummary, snippet.String()),
	})
	if err != nil || provider.IsErrorResult(result) {
		if err == nil {
			err = fmt.Errorf("memory: prune summarization failed: %s", provider.AsError(result))
		}
		// Summarization failure is non-fatal: the oldest messages are
		// dropped anyway rather than left to grow the buffer forever.
		m.mu.Lock()
		m.buffer = remaining
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.buffer = remaining
	m.summary = result
	m.mu.Unlock()
	return nil
}
