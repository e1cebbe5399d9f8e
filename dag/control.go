package dag

import (
	"context"
	"time"

	"github.com/relsen/agentgraph/store"
	"github.com/relsen/agentgraph/workflow"
)

// pollApprovals checks every waiting-for-approval node once per Execute
// pass against CheckIntervention and any manually recorded decision
// (Approve/Reject below), applying the outcome and clearing it — an
// intervention is one-shot, it never fires twice for the same node.
func (e *Engine) pollApprovals(ctx context.Context) {
	for _, n := range e.Workflow.Nodes {
		if n.Status != workflow.StatusWaitingForApproval {
			continue
		}

		decision := e.manualDecisionFor(n.ID)
		if decision == "" && e.CheckIntervention != nil {
			decision = e.CheckIntervention(n.ID)
		}
		if decision == "" {
			continue
		}

		e.mu.Lock()
		delete(e.manualDecision, n.ID)
		output := ""
		if n.Output != nil {
			output = *n.Output
		}
		e.mu.Unlock()

		switch decision {
		case Approve:
			e.completeNode(n, "", output)
			e.routeAfterComplete(n, output, nil)
			e.snapshot(ctx, n)
		case Reject:
			e.failNode(n, "rejected by intervention")
		}
	}
}

// Approve records a one-shot APPROVE decision for nodeID, applied on the
// next Execute pass.
func (e *Engine) Approve(nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.manualDecision[nodeID] = Approve
}

// Reject records a one-shot REJECT decision for nodeID, applied on the
// next Execute pass.
func (e *Engine) Reject(nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.manualDecision[nodeID] = Reject
}

// Feedback appends intervention text to nodeID's reserved blackboard
// feedback key — picked up the next time that node (or, via a feedback
// edge, its upstream partner) builds its context.
func (e *Engine) Feedback(nodeID, text string) {
	e.Blackboard.AppendFeedback(nodeID, text)
}

// ClearBlackboard discards all blackboard state, leaving node outputs
// and statuses untouched.
func (e *Engine) ClearBlackboard() {
	e.Blackboard.Restore(map[string]interface{}{})
	e.emitBlackboardUpdate()
}

// Pause prevents any further node admission until Resume is called.
// Nodes already running are left to finish.
func (e *Engine) Pause() {
	e.paused.Store(true)
	if e.Traffic != nil {
		e.Traffic.Pause()
	}
}

// Resume lifts a prior Pause.
func (e *Engine) Resume() {
	e.paused.Store(false)
	if e.Traffic != nil {
		e.Traffic.Resume()
	}
}

// Stop halts Execute's loop after the current pass completes. The run is
// left in whatever state it reached; Execute returns with Success=false
// unless every node happened to already be complete.
func (e *Engine) Stop() {
	e.stopped.Store(true)
}

// Reset clears all engine-local run state (outputs, history, pending
// decisions, queue, step counter) so the Engine can be reused for a
// fresh Execute call against the same Workflow.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.outputs = make(map[string]string)
	e.history = nil
	e.priorityInput = make(map[string]string)
	e.manualDecision = make(map[string]InterventionDecision)
	e.mu.Unlock()
	e.queue = newFrontier()
	e.step.Store(0)
	e.stopped.Store(false)
	e.paused.Store(false)
}

// ReplayFrom restores the engine to the state recorded at stepIndex —
// blackboard, per-node outputs, and node statuses for every node whose
// output predates or matches that step — then resumes execution from
// there. Nodes not yet reached by stepIndex are reset to idle so the
// frontier recomputes readiness from scratch. Per §4.9.
func (e *Engine) ReplayFrom(ctx context.Context, stepIndex int, initialInput string) (Result, error) {
	if e.Store == nil {
		return Result{}, &Error{Message: "dag: replay requires a Store", Code: "NO_STORE"}
	}

	snap, err := e.Store.LoadAt(ctx, e.RunID, stepIndex)
	if err != nil {
		return Result{}, err
	}

	e.Blackboard.Restore(snap.Blackboard)
	e.emitBlackboardUpdate()

	e.mu.Lock()
	e.outputs = make(map[string]string, len(snap.Outputs))
	for k, v := range snap.Outputs {
		e.outputs[k] = v
	}
	e.history = nil
	e.mu.Unlock()

	for id, n := range e.Workflow.Nodes {
		if out, ok := snap.Outputs[id]; ok {
			o := out
			n.Output = &o
			n.Status = workflow.StatusComplete
			continue
		}
		n.Status = workflow.StatusIdle
		n.Output = nil
		n.Err = nil
	}

	e.queue = newFrontier()
	e.step.Store(int64(snap.StepIndex))

	return e.Execute(ctx, true, initialInput)
}

// loadCheckpoint is a convenience wrapper used by callers that label
// replay points explicitly (e.g. "before_summary") rather than by raw
// step index.
func (e *Engine) loadCheckpoint(ctx context.Context, label string) (store.Checkpoint, error) {
	return e.Store.LoadCheckpoint(ctx, label)
}

// saveCheckpoint labels the most recent snapshot for later ReplayFrom-
// style recall by name instead of step index.
func (e *Engine) saveCheckpoint(ctx context.Context, label string) error {
	e.mu.Lock()
	outputs := make(map[string]string, len(e.outputs))
	for k, v := range e.outputs {
		outputs[k] = v
	}
	e.mu.Unlock()

	return e.Store.SaveCheckpoint(ctx, store.Checkpoint{
		Label: label,
		Snapshot: store.Snapshot{
			RunID:      e.RunID,
			StepIndex:  int(e.step.Load()),
			Timestamp:  time.Now(),
			Blackboard: e.Blackboard.Snapshot(),
			Outputs:    outputs,
		},
	})
}
