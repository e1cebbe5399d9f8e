package dag

import (
	"context"
	"strings"

	"github.com/relsen/agentgraph/emit"
	"github.com/relsen/agentgraph/workflow"
)

// prefixingEmitter forwards every event to inner, prefixing log and
// node-name fields so a sub-workflow's events read as belonging to the
// parent node that dispatched it, per the ReturnEventBubble behavior
// in §4.1.
type prefixingEmitter struct {
	inner  emit.Emitter
	prefix string
}

func (p *prefixingEmitter) Emit(event emit.Event) {
	event.Message = p.prefix + event.Message
	if event.NodeName != "" {
		event.NodeName = p.prefix + event.NodeName
	}
	p.inner.Emit(event)
}

func (p *prefixingEmitter) EmitBatch(ctx context.Context, events []emit.Event) error {
	for i := range events {
		events[i].Message = p.prefix + events[i].Message
		if events[i].NodeName != "" {
			events[i].NodeName = p.prefix + events[i].NodeName
		}
	}
	return p.inner.EmitBatch(ctx, events)
}

func (p *prefixingEmitter) Flush(ctx context.Context) error {
	return p.inner.Flush(ctx)
}

// runSubWorkflows executes every attachment named in n.SubWorkflows as
// an independent child Engine seeded with n's own output, concatenates
// the child's OUTPUT-kind node outputs into n's final output, and
// optionally bubbles the child's events up through the parent's
// Emitter. Per §4.1's sub-workflow behavior.
func (e *Engine) runSubWorkflows(ctx context.Context, n *workflow.Node, output string) {
	var rendered []string

	for _, name := range n.SubWorkflows {
		child := e.SubWorkflows[name]
		if child == nil {
			e.emitLog(n, "sub_workflow not found: "+name)
			continue
		}

		childEngine := New(child, e.Registry, e.Blackboard, e.Traffic, e.childEmitter(n), e.Store, e.RunID+"/"+name)
		childEngine.SubWorkflows = e.SubWorkflows
		childEngine.CheckIntervention = e.CheckIntervention
		childEngine.Metrics = e.Metrics

		result, err := childEngine.Execute(ctx, false, output)
		if err != nil {
			e.emitLog(n, "sub_workflow "+name+" failed: "+err.Error())
			continue
		}

		for _, cn := range child.Nodes {
			if cn.Kind != workflow.KindOutput {
				continue
			}
			if out, ok := result.Outputs[cn.ID]; ok {
				rendered = append(rendered, out)
			}
		}
	}

	if len(rendered) == 0 {
		return
	}

	combined := strings.Join(rendered, "\n\n")
	e.mu.Lock()
	e.outputs[n.ID] = combined
	e.mu.Unlock()
	n.Output = &combined
}

// childEmitter returns the emitter a sub-workflow's engine should use:
// the parent's own emitter wrapped to prefix messages with the
// dispatching node's name when ReturnEventBubble requests it, the bare
// parent emitter otherwise.
func (e *Engine) childEmitter(n *workflow.Node) emit.Emitter {
	if e.Emitter == nil {
		return nil
	}
	if !n.ReturnEventBubble {
		return e.Emitter
	}
	return &prefixingEmitter{inner: e.Emitter, prefix: displayName(n) + ": "}
}
