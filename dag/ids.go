package dag

import (
	"github.com/lithammer/shortuuid/v4"
	"github.com/oklog/ulid/v2"
)

// NewRunID returns a short, URL-safe identifier suitable for a run's
// session folder / log namespace, grounded on the pack's ID-generation
// convention for user-facing resource ids.
func NewRunID() string {
	return shortuuid.New()
}

// newTraceID returns a lexicographically sortable identifier for one
// trace event — ulid's monotonic ordering makes a step's trace events
// replay in the order they actually happened even when timestamps tie.
func newTraceID() string {
	return ulid.Make().String()
}
