package dag

import (
	"strings"

	"github.com/relsen/agentgraph/workflow"
)

// ready reports whether every non-feedback predecessor of n is complete —
// the sole readiness criterion in §4.1. Feedback edges never contribute.
func (e *Engine) ready(n *workflow.Node) bool {
	if n.Status == workflow.StatusWaitingForApproval {
		return false
	}
	for _, predID := range e.Workflow.Predecessors(n.ID) {
		pred := e.Workflow.Nodes[predID]
		if pred == nil || pred.Status != workflow.StatusComplete {
			return false
		}
	}
	return true
}

// routeAfterComplete fires n's outgoing edges per §4.1's conditional
// routing rules and pushes each target onto the frontier.
func (e *Engine) routeAfterComplete(n *workflow.Node, output string, explicitRoute []string) {
	var targets []string

	switch {
	case len(explicitRoute) > 0:
		// A router executor (or any executor) may override default
		// edge evaluation outright via Result.Route.
		targets = explicitRoute

	case n.Kind == workflow.KindAuditor || n.Kind == workflow.KindCritic:
		rejected := containsAny(output, rejectionMarkers)
		approved := containsAny(output, approvalMarkers)
		for _, edge := range e.Workflow.Successors(n.ID) {
			if edge.Feedback {
				if rejected {
					targets = append(targets, edge.To)
				}
			} else if approved {
				targets = append(targets, edge.To)
			}
		}

	case n.Kind == workflow.KindRouter:
		lower := strings.ToLower(output)
		for _, edge := range e.Workflow.Successors(n.ID) {
			if edge.Condition == "" || strings.Contains(lower, strings.ToLower(edge.Condition)) {
				targets = append(targets, edge.To)
			}
		}

	default:
		for _, edge := range e.Workflow.Successors(n.ID) {
			targets = append(targets, edge.To)
		}
	}

	for _, t := range targets {
		e.admitSuccessor(t)
	}
}

// admitSuccessor pushes nodeID onto the frontier. A target already
// complete is still pushed — admitOrRecycle is what decides whether a
// complete node may loop back to idle (iteration_count < max_iterations)
// or must be skipped; rejecting it here would make loop recycling via a
// feedback edge impossible.
func (e *Engine) admitSuccessor(nodeID string) {
	if e.Workflow.Nodes[nodeID] == nil {
		return
	}
	e.queue.push(nodeID)
}

// handleDispatch applies every parsed <dispatch_task> call: the target
// node is re-marked idle, the call's input is stashed as priority
// context for its next buildContext call, and it is re-enqueued.
func (e *Engine) handleDispatch(calls []dispatchCall) {
	for _, c := range calls {
		target := e.resolveNode(c.Node)
		if target == nil {
			continue
		}
		e.mu.Lock()
		e.priorityInput[target.ID] = c.Input
		e.mu.Unlock()
		if target.Status != workflow.StatusRunning && target.Status != workflow.StatusQueued {
			target.Status = workflow.StatusIdle
		}
		e.queue.push(target.ID)
	}
}

// resolveNode looks a dispatch target up first by ID, then by display
// name, matching the "NAME-or-ID" grammar in §4.1.
func (e *Engine) resolveNode(ref string) *workflow.Node {
	if n, ok := e.Workflow.Nodes[ref]; ok {
		return n
	}
	for _, n := range e.Workflow.Nodes {
		if n.Name == ref {
			return n
		}
	}
	return nil
}
