package provider

import (
	"context"
	"sync"
)

// Mock is a test Provider: it replays a configured sequence of results
// (which may themselves be "Error: ..." strings to simulate a
// classifiable failure) and records every call for assertions.
type Mock struct {
	Responses []string
	Err       error

	mu    sync.Mutex
	Calls []GenerateRequest
	index int
}

func (m *Mock) Initialize(ctx context.Context) (bool, error) { return true, nil }

func (m *Mock) HealthCheck(ctx context.Context) (bool, error) { return true, nil }

func (m *Mock) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", nil
	}
	idx := m.index
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.index++
	}
	return m.Responses[idx], nil
}

func (m *Mock) Close() error { return nil }

// CallCount returns the number of Generate invocations so far.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Reset clears call history and rewinds the response index.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.index = 0
}
