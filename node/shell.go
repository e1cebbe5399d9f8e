package node

import (
	"context"

	"github.com/relsen/agentgraph/tool"
	"github.com/relsen/agentgraph/workflow"
)

// ShellExecutor runs a single fixed command (from node configuration,
// not from LLM-generated output) through the same sandboxed processor
// used for agent tool tags, wrapped in a single synthetic
// <run_command> block so the dangerous-command blocklist and timeout
// still apply.
type ShellExecutor struct {
	Node      *workflow.Node
	Processor *tool.Processor
}

func (e *ShellExecutor) Execute(ctx context.Context, req Request) Result {
	cmd, _ := e.Node.ProviderConfig["command"].(string)
	if cmd == "" {
		cmd = firstNonEmpty(req.Inputs, "command")
	}
	if cmd == "" {
		return Result{OK: false, Err: "shell: no command configured"}
	}
	tag := "<run_command command=\"" + escapeAttr(cmd) + "\"/>"
	result := e.Processor.ProcessAll(ctx, tag)
	if len(result.Errors) > 0 {
		return Result{OK: false, Err: result.Errors[0]}
	}
	if len(result.CommandsRun) == 0 {
		return Result{OK: false, Err: "shell: command blocked or did not execute"}
	}
	return Result{OK: true, Output: "command executed"}
}

// SystemExecutor is the same sandboxed execution path as ShellExecutor,
// kept as a distinct Kind because the workflow author's intent differs
// (system-level maintenance task vs. an agent-directed one-off) even
// though the safety contract is identical.
type SystemExecutor struct {
	ShellExecutor
}

func escapeAttr(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '"':
			out = append(out, []rune("&quot;")...)
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
