// Package emit provides the event bus: fan-out of log, thought, status,
// trace, and blackboard events to zero or more observers.
package emit

import "time"

// Kind is one of the seven event kinds the engine emits, per §4.3.
type Kind string

const (
	KindLog              Kind = "log"
	KindThought          Kind = "node_thought"
	KindNodeStatus       Kind = "node_status"
	KindTrace            Kind = "trace_event"
	KindBlackboardUpdate Kind = "blackboard_update"
	KindA2UI             Kind = "a2ui_event"
	KindWorkflowComplete Kind = "workflow_complete"
)

// Event is the envelope carried through the bus. Not every field applies
// to every Kind; Data carries kind-specific payload so the Emitter
// interface stays uniform across all seven kinds.
type Event struct {
	Kind      Kind                   `json:"type"`
	RunID     string                 `json:"run_id"`
	Step      int                    `json:"step"`
	NodeID    string                 `json:"node_id,omitempty"`
	NodeName  string                 `json:"node_name,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Message   string                 `json:"message,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// TraceStatus values for KindTrace events.
const (
	TraceStart    = "start"
	TraceComplete = "complete"
	TraceFailed   = "failed"
)
