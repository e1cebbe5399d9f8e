package emit

import (
	"context"
	"sync"
)

// Buffered accumulates events in memory and releases them to an inner
// Emitter only on Flush. Useful for a transport that wants to coalesce a
// burst of thought/log events (e.g. a websocket client reading a backlog
// on reconnect) rather than push them one at a time.
type Buffered struct {
	mu     sync.Mutex
	inner  Emitter
	events []Event
	cap    int
}

// NewBuffered wraps inner with a ring buffer of at most capacity events;
// capacity<=0 means unbounded.
func NewBuffered(inner Emitter, capacity int) *Buffered {
	return &Buffered{inner: inner, cap: capacity}
}

func (b *Buffered) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	if b.cap > 0 && len(b.events) > b.cap {
		b.events = b.events[len(b.events)-b.cap:]
	}
}

func (b *Buffered) EmitBatch(_ context.Context, events []Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, events...)
	if b.cap > 0 && len(b.events) > b.cap {
		b.events = b.events[len(b.events)-b.cap:]
	}
	return nil
}

// Flush drains the buffer into the inner emitter in arrival order.
func (b *Buffered) Flush(ctx context.Context) error {
	b.mu.Lock()
	pending := b.events
	b.events = nil
	b.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}
	return b.inner.EmitBatch(ctx, pending)
}

// Pending returns a copy of the currently buffered events without
// flushing them, for tests and for a transport doing a non-destructive
// peek.
func (b *Buffered) Pending() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}
