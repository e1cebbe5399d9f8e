// Package dag implements the workflow engine: frontier scheduling over a
// workflow.Workflow, dispatch to node.Executors through the traffic
// controller, blackboard/tool-tag post-processing, conditional routing,
// loop recycling, approval gating, snapshot persistence, and replay.
package dag

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relsen/agentgraph/blackboard"
	"github.com/relsen/agentgraph/emit"
	"github.com/relsen/agentgraph/node"
	"github.com/relsen/agentgraph/store"
	"github.com/relsen/agentgraph/traffic"
	"github.com/relsen/agentgraph/workflow"
)

// noProgressSleep is the brief pause the engine takes when a full pass
// admits no nodes, per §4.1's "≈500 ms" figure.
const noProgressSleep = 500 * time.Millisecond

// approvalPollInterval is the nominal approval check interval. Execute
// does not reference it: pollApprovals runs once per pass, and a pass
// that admits no node is followed by a noProgressSleep pause.
const approvalPollInterval = time.Second

// InterventionDecision is the caller's verdict on a waiting-for-approval
// node. Anything other than Approve/Reject leaves the node waiting.
type InterventionDecision string

const (
	Approve InterventionDecision = "APPROVE"
	Reject  InterventionDecision = "REJECT"
)

// Error is returned for engine-level failures (bad configuration, missing
// nodes) distinct from a single node's execution failure, which never
// aborts the run.
type Error struct {
	Message string
	Code    string
}

func (e *Error) Error() string { return e.Message }

// Engine runs one Workflow to completion. It is not safe to call Execute
// concurrently on the same Engine from two goroutines; a sub-workflow
// attachment gets its own child Engine instance (see subworkflow.go).
type Engine struct {
	Workflow   *workflow.Workflow
	Registry   *node.Registry
	Blackboard *blackboard.Blackboard
	Traffic    *traffic.Controller
	Emitter    emit.Emitter
	Store      store.Store
	RunID      string

	// Metrics is optional; a nil value records nothing.
	Metrics *PrometheusMetrics

	// CheckIntervention is polled once per approval-gate pass for every
	// node in waiting-for-approval status. A nil func means no node can
	// ever be approved/rejected externally (intervention is driven only
	// through Approve/Reject below).
	CheckIntervention func(nodeID string) InterventionDecision

	// SubWorkflows resolves a sub_workflows attachment name to the child
	// Workflow document to run, for nodes with a non-empty SubWorkflows
	// list.
	SubWorkflows map[string]*workflow.Workflow

	mu            sync.Mutex
	outputs       map[string]string
	history       []historyEntry
	priorityInput map[string]string
	manualDecision map[string]InterventionDecision

	queue   *frontier
	step    atomic.Int64
	paused  atomic.Bool
	stopped atomic.Bool
}

// New returns an Engine ready to run wf. Traffic, Blackboard, and Store
// must be supplied by the caller — the dag package never constructs its
// own collaborators, since they are commonly process-wide singletons
// shared across concurrently running workflows.
func New(wf *workflow.Workflow, registry *node.Registry, bb *blackboard.Blackboard, tc *traffic.Controller, emitter emit.Emitter, st store.Store, runID string) *Engine {
	return &Engine{
		Workflow:       wf,
		Registry:       registry,
		Blackboard:     bb,
		Traffic:        tc,
		Emitter:        emitter,
		Store:          st,
		RunID:          runID,
		outputs:        make(map[string]string),
		priorityInput:  make(map[string]string),
		manualDecision: make(map[string]InterventionDecision),
		queue:          newFrontier(),
	}
}

// Result is execute's return contract per §4.1: success, per-node
// outputs, the final blackboard, and per-node status.
type Result struct {
	Success    bool
	Outputs    map[string]string
	Blackboard map[string]interface{}
	NodeStatus map[string]workflow.Status
}

// Execute runs the workflow to a terminal state. When resume is false
// every node is reset to idle and the queue seeds from entry nodes;
// otherwise the queue seeds from waiting-for-approval nodes plus idle
// nodes whose predecessors are already complete (the shape produced by
// ReplayFrom).
func (e *Engine) Execute(ctx context.Context, resume bool, initialInput string) (Result, error) {
	if e.Workflow == nil {
		return Result{}, &Error{Message: "dag: workflow is nil", Code: "NO_WORKFLOW"}
	}
	if e.Registry == nil {
		return Result{}, &Error{Message: "dag: registry is nil", Code: "NO_REGISTRY"}
	}

	e.seed(resume)

	for {
		if ctx.Err() != nil {
			return e.buildResult(false), ctx.Err()
		}
		if e.stopped.Load() {
			break
		}

		e.pollApprovals(ctx)

		if e.quiescent() {
			break
		}

		if e.paused.Load() {
			select {
			case <-ctx.Done():
				return e.buildResult(false), ctx.Err()
			case <-time.After(noProgressSleep):
			}
			continue
		}

		e.Metrics.setQueueDepth(e.queue.len())
		batch := e.queue.drainPass()
		admitted := e.runPass(ctx, batch, initialInput)

		if admitted == 0 {
			select {
			case <-ctx.Done():
				return e.buildResult(false), ctx.Err()
			case <-time.After(noProgressSleep):
			}
		}
	}

	return e.buildResult(e.allComplete()), nil
}

// seed resets node state (fresh run) or reconstructs the frontier from
// the node statuses already on the workflow (resume), per §4.1.
func (e *Engine) seed(resume bool) {
	if !resume {
		for _, n := range e.Workflow.Nodes {
			n.Status = workflow.StatusIdle
			n.Output = nil
			n.Err = nil
		}
		for _, n := range e.Workflow.EntryNodes() {
			e.queue.push(n.ID)
		}
		return
	}
	for _, n := range e.Workflow.Nodes {
		if n.Status == workflow.StatusWaitingForApproval {
			e.queue.push(n.ID)
			continue
		}
		if n.Status == workflow.StatusIdle && e.ready(n) {
			e.queue.push(n.ID)
		}
	}
}

// runPass admits every ready node in batch and runs it; non-ready nodes
// are re-enqueued for the next pass. Returns the number of nodes
// admitted this pass.
func (e *Engine) runPass(ctx context.Context, batch []string, initialInput string) int {
	var wg sync.WaitGroup
	var admitted atomic.Int32

	for _, id := range batch {
		n := e.Workflow.Nodes[id]
		if n == nil {
			continue
		}
		if !e.admitOrRecycle(n) {
			if n.Status != workflow.StatusComplete && n.Status != workflow.StatusFailed {
				e.queue.push(id)
			}
			continue
		}

		admitted.Add(1)
		wg.Add(1)
		go func(n *workflow.Node) {
			defer wg.Done()
			e.runStep(ctx, n, initialInput)
		}(n)
	}

	wg.Wait()
	return int(admitted.Load())
}

// admitOrRecycle resolves the loop-recycling rule: a complete node
// dequeued again (via feedback or dispatch) is reset to idle and
// re-admitted iff iteration_count < max_iterations; otherwise recycling
// is logged and skipped. Returns whether n should execute this pass.
func (e *Engine) admitOrRecycle(n *workflow.Node) bool {
	if n.Status == workflow.StatusComplete {
		if n.IterationCount >= n.MaxIterations {
			e.emitLog(n, fmt.Sprintf("loop recycling skipped for %q: max_iterations (%d) reached", n.ID, n.MaxIterations))
			return false
		}
		n.Status = workflow.StatusIdle
		e.Metrics.recordRecycle(e.RunID, n.ID)
	}
	if n.Status == workflow.StatusFailed || n.Status == workflow.StatusWaitingForApproval {
		return false
	}
	return e.ready(n)
}

// quiescent reports whether the run has nothing left to do: empty queue
// and no node in a pending (queued/running/waiting) state.
func (e *Engine) quiescent() bool {
	if e.queue.len() > 0 {
		return false
	}
	for _, n := range e.Workflow.Nodes {
		switch n.Status {
		case workflow.StatusQueued, workflow.StatusRunning, workflow.StatusWaitingForApproval:
			return false
		}
	}
	return true
}

func (e *Engine) allComplete() bool {
	for _, n := range e.Workflow.Nodes {
		if n.Status != workflow.StatusComplete {
			return false
		}
	}
	return true
}

func (e *Engine) buildResult(success bool) Result {
	e.mu.Lock()
	outputs := make(map[string]string, len(e.outputs))
	for k, v := range e.outputs {
		outputs[k] = v
	}
	e.mu.Unlock()

	status := make(map[string]workflow.Status, len(e.Workflow.Nodes))
	for id, n := range e.Workflow.Nodes {
		status[id] = n.Status
	}

	if e.Emitter != nil {
		e.Emitter.Emit(emit.Event{
			Kind:      emit.KindWorkflowComplete,
			RunID:     e.RunID,
			Step:      int(e.step.Load()),
			Timestamp: time.Now(),
			Data:      map[string]interface{}{"success": success},
		})
	}

	return Result{
		Success:    success,
		Outputs:    outputs,
		Blackboard: e.Blackboard.Snapshot(),
		NodeStatus: status,
	}
}

// persistOutput writes output to save_path when the node is configured
// for it, per §4.1 step 7. Failure is logged, never fatal to the run.
func (e *Engine) persistOutput(n *workflow.Node, output string) {
	if !n.SaveEnabled || n.SavePath == "" {
		return
	}
	if err := os.WriteFile(n.SavePath, []byte(output), 0o644); err != nil {
		e.emitLog(n, fmt.Sprintf("save_path write failed for %q: %v", n.SavePath, err))
	}
}
