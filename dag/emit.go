package dag

import (
	"time"

	"github.com/relsen/agentgraph/emit"
	"github.com/relsen/agentgraph/workflow"
)

// emitStatus reports n's current status as a node_status event.
func (e *Engine) emitStatus(n *workflow.Node) {
	if e.Emitter == nil {
		return
	}
	e.Emitter.Emit(emit.Event{
		Kind:      emit.KindNodeStatus,
		RunID:     e.RunID,
		Step:      int(e.step.Load()),
		NodeID:    n.ID,
		NodeName:  displayName(n),
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"status": string(n.Status)},
	})
}

// emitTrace records a start/complete/failed trace event with its
// input/output payload for replay and observability.
func (e *Engine) emitTrace(n *workflow.Node, phase, input, output string) {
	if e.Emitter == nil {
		return
	}
	e.Emitter.Emit(emit.Event{
		Kind:      emit.KindTrace,
		RunID:     e.RunID,
		Step:      int(e.step.Load()),
		NodeID:    n.ID,
		NodeName:  displayName(n),
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"trace_id": newTraceID(),
			"status":   phase,
			"input":    input,
			"output":   output,
		},
	})
}

// emitLog emits a plain log line attributable to n — used for
// non-fatal, engine-internal diagnostics (recycling skips, save
// failures, snapshot failures).
func (e *Engine) emitLog(n *workflow.Node, message string) {
	if e.Emitter == nil {
		return
	}
	evt := emit.Event{
		Kind:      emit.KindLog,
		RunID:     e.RunID,
		Step:      int(e.step.Load()),
		Timestamp: time.Now(),
		Message:   message,
	}
	if n != nil {
		evt.NodeID = n.ID
		evt.NodeName = displayName(n)
	}
	e.Emitter.Emit(evt)
}

// emitBlackboardUpdate reports the full blackboard snapshot after a
// node's output has been scanned for set_state tags.
func (e *Engine) emitBlackboardUpdate() {
	if e.Emitter == nil {
		return
	}
	e.Emitter.Emit(emit.Event{
		Kind:      emit.KindBlackboardUpdate,
		RunID:     e.RunID,
		Step:      int(e.step.Load()),
		Timestamp: time.Now(),
		Data:      e.Blackboard.Snapshot(),
	})
}
