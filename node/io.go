package node

import (
	"bytes"
	"context"

	"github.com/yuin/goldmark"

	"github.com/relsen/agentgraph/workflow"
)

// InputExecutor is the workflow's entry point: it has no predecessors
// and simply forwards its static_inputs (or an externally supplied
// "text"/"query" input) unchanged, so downstream nodes see a uniform
// text output regardless of how the run was triggered.
type InputExecutor struct {
	Node *workflow.Node
}

func (e *InputExecutor) Execute(ctx context.Context, req Request) Result {
	if text := firstNonEmpty(req.Inputs, "text", "query"); text != "" {
		return Result{OK: true, Output: text}
	}
	for _, v := range e.Node.StaticInputs {
		if s, ok := v.(string); ok && s != "" {
			return Result{OK: true, Output: s}
		}
	}
	return Result{OK: true, Output: ""}
}

// OutputExecutor is the workflow's terminal report node: it renders its
// input (assumed Markdown, as every agent node's prose output is) to
// HTML via goldmark when the node is configured for rendered output, or
// passes the raw text through otherwise.
type OutputExecutor struct {
	Node   *workflow.Node
	Render bool
}

func (e *OutputExecutor) Execute(ctx context.Context, req Request) Result {
	text := firstNonEmpty(req.Inputs, "text", "query")
	if !e.Render {
		return Result{OK: true, Output: text}
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return Result{OK: false, Err: "render report: " + err.Error()}
	}
	return Result{OK: true, Output: buf.String()}
}
