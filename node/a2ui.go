package node

import (
	"context"
	"time"

	"github.com/relsen/agentgraph/emit"
	"github.com/relsen/agentgraph/workflow"
)

// A2UIExecutor forwards its input to the UI-facing a2ui_event channel
// and passes the text through unchanged, so a workflow can interleave
// an agent-to-UI prompt with ordinary agent nodes without the UI
// surface needing special engine support.
type A2UIExecutor struct {
	Node  *workflow.Node
	Emit  emit.Emitter
	RunID string
}

func (e *A2UIExecutor) Execute(ctx context.Context, req Request) Result {
	text := firstNonEmpty(req.Inputs, "text", "query")
	if e.Emit != nil {
		e.Emit.Emit(emit.Event{
			Kind:      emit.KindA2UI,
			RunID:     e.RunID,
			NodeID:    e.Node.ID,
			NodeName:  e.Node.Name,
			Timestamp: time.Now(),
			Message:   text,
		})
	}
	return Result{OK: true, Output: text}
}
