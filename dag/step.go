package dag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/relsen/agentgraph/agreement"
	"github.com/relsen/agentgraph/blackboard"
	"github.com/relsen/agentgraph/emit"
	"github.com/relsen/agentgraph/node"
	"github.com/relsen/agentgraph/store"
	"github.com/relsen/agentgraph/traffic"
	"github.com/relsen/agentgraph/workflow"
)

// runStep executes one admitted node end to end: traffic acquire, context
// assembly, dispatch, tag post-processing, agreement validation, approval
// gating, persistence, conditional routing, and snapshotting. Mirrors the
// eight-step "Execution step" sequence in §4.1.
func (e *Engine) runStep(ctx context.Context, n *workflow.Node, initialInput string) {
	n.Status = workflow.StatusQueued
	e.emitStatus(n)

	priority := traffic.PriorityForKind(string(n.Kind))
	if e.Traffic != nil {
		if e.Traffic.QueueDepth() > 0 {
			e.Metrics.recordBackpressure(e.RunID, priorityLabel(priority))
		}
		if err := e.Traffic.Acquire(ctx, n.ID, priority); err != nil {
			n.Status = workflow.StatusFailed
			errStr := err.Error()
			n.Err = &errStr
			e.emitStatus(n)
			return
		}
		defer e.Traffic.Release()
	}

	n.Status = workflow.StatusRunning
	e.emitStatus(n)
	e.emitTrace(n, emit.TraceStart, "", "")
	e.Metrics.nodeStarted()
	defer e.Metrics.nodeFinished()
	stepStart := time.Now()
	defer func() {
		status := "success"
		if n.Status == workflow.StatusFailed {
			status = "error"
		}
		e.Metrics.recordStep(e.RunID, n.ID, string(n.Kind), status, time.Since(stepStart))
	}()

	contextStr := e.buildContext(n, initialInput)

	exec, ok := e.Registry.Build(n)
	if !ok {
		e.failNode(n, "no executor registered for kind "+string(n.Kind))
		return
	}

	req := node.Request{
		Node:       n,
		Inputs:     map[string]interface{}{"text": contextStr, "query": contextStr},
		ContextStr: contextStr,
		RunID:      e.RunID,
		Step:       int(e.step.Add(1)),
	}

	var result node.Result
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = node.Result{OK: false, Err: fmt.Sprintf("executor panic: %v", r)}
			}
		}()
		result = exec.Execute(ctx, req)
	}()
	if !result.OK {
		e.failNode(n, result.Err)
		e.emitTrace(n, emit.TraceFailed, contextStr, result.Err)
		return
	}

	output := result.Output
	n.IterationCount++

	blackboard.ExtractSetState(e.Blackboard, output)
	e.emitBlackboardUpdate()

	calls := parseDispatchTasks(output)
	e.handleDispatch(calls)
	for _, d := range parseSleeps(output) {
		e.sleep(ctx, d)
	}

	report := agreement.Validate(output, n.AgreementRules)
	if len(report.FailedRequired) > 0 {
		names := make([]string, len(report.FailedRequired))
		for i, r := range report.FailedRequired {
			names[i] = r.Name
		}
		e.failNode(n, "agreement validation failed: "+strings.Join(names, ", "))
		e.emitTrace(n, emit.TraceFailed, contextStr, *n.Err)
		return
	}

	e.mu.Lock()
	e.outputs[n.ID] = output
	e.mu.Unlock()
	n.Output = &output
	e.appendHistory(n, output)

	if n.RequiresApproval {
		n.Status = workflow.StatusWaitingForApproval
		e.emitStatus(n)
		e.queue.push(n.ID)
		e.emitTrace(n, emit.TraceComplete, contextStr, output)
		return
	}

	e.completeNode(n, contextStr, output)

	if len(n.SubWorkflows) > 0 {
		e.runSubWorkflows(ctx, n, output)
	}

	e.routeAfterComplete(n, output, result.Route)
	e.snapshot(ctx, n)
}

// completeNode marks n complete, persists its output, and emits a
// successful trace — factored out so both the normal path and the
// post-approval path (control.go) share it.
func (e *Engine) completeNode(n *workflow.Node, contextStr, output string) {
	n.Status = workflow.StatusComplete
	e.persistOutput(n, output)
	e.emitStatus(n)
	e.emitTrace(n, emit.TraceComplete, contextStr, output)
}

func (e *Engine) failNode(n *workflow.Node, message string) {
	n.Status = workflow.StatusFailed
	n.Err = &message
	e.emitStatus(n)
}

// sleep suspends the engine goroutine for d, respecting ctx cancellation
// — the explicit <sleep> suspension point from §5.
func (e *Engine) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// priorityLabel gives traffic.Priority a stable metric label without
// adding a String method to the traffic package for a concern only dag
// cares about.
func priorityLabel(p traffic.Priority) string {
	switch p {
	case traffic.VIP:
		return "vip"
	case traffic.HIGH:
		return "high"
	case traffic.BULK:
		return "bulk"
	default:
		return "standard"
	}
}

func (e *Engine) manualDecisionFor(nodeID string) InterventionDecision {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.manualDecision[nodeID]
}

// snapshot persists an execution snapshot after a successful step, per
// §4.9: {step_index, node_id, timestamp, blackboard snapshot, outputs
// snapshot}.
func (e *Engine) snapshot(ctx context.Context, n *workflow.Node) {
	if e.Store == nil {
		return
	}
	e.mu.Lock()
	outputs := make(map[string]string, len(e.outputs))
	for k, v := range e.outputs {
		outputs[k] = v
	}
	e.mu.Unlock()

	snap := store.Snapshot{
		RunID:      e.RunID,
		StepIndex:  int(e.step.Load()),
		NodeID:     n.ID,
		Timestamp:  time.Now(),
		Blackboard: e.Blackboard.Snapshot(),
		Outputs:    outputs,
	}
	if err := e.Store.SaveSnapshot(ctx, snap); err != nil {
		e.emitLog(n, "snapshot save failed: "+err.Error())
	}
}
