package emit

import "context"

// Emitter is implemented by every event sink. Emit must never block the
// engine for long; a transport with its own backpressure should buffer
// internally rather than push that latency onto the caller.
type Emitter interface {
	Emit(event Event)
	EmitBatch(ctx context.Context, events []Event) error
	Flush(ctx context.Context) error
}

// Multi fans a single Emit/EmitBatch out to every wrapped Emitter. A
// workflow_complete event, for example, commonly needs to reach both a
// LogEmitter (for the session log file) and a Redis emitter (for remote
// observers) at once.
type Multi struct {
	emitters []Emitter
}

// NewMulti wraps the given emitters for simultaneous fan-out.
func NewMulti(emitters ...Emitter) *Multi {
	return &Multi{emitters: emitters}
}

func (m *Multi) Emit(event Event) {
	for _, e := range m.emitters {
		e.Emit(event)
	}
}

func (m *Multi) EmitBatch(ctx context.Context, events []Event) error {
	var firstErr error
	for _, e := range m.emitters {
		if err := e.EmitBatch(ctx, events); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Multi) Flush(ctx context.Context) error {
	var firstErr error
	for _, e := range m.emitters {
		if err := e.Flush(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
