package node

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/relsen/agentgraph/blackboard"
	"github.com/relsen/agentgraph/workflow"
)

// RouteCondition is one outgoing edge's label and CEL expression; the
// router evaluates every condition and routes to every edge whose
// expression evaluates true (fan-out), or to Default if none do.
type RouteCondition struct {
	ToNodeID  string
	Condition string
}

// RouterExecutor evaluates a node's outgoing edges' CEL conditions
// against the current blackboard state and node inputs, overriding the
// engine's default successor evaluation via Result.Route.
type RouterExecutor struct {
	Node       *workflow.Node
	Conditions []RouteCondition
	Default    string
	Blackboard *blackboard.Blackboard
}

func (e *RouterExecutor) Execute(ctx context.Context, req Request) Result {
	vars := make(map[string]interface{})
	if e.Blackboard != nil {
		for k, v := range e.Blackboard.Snapshot() {
			vars[k] = v
		}
	}
	for k, v := range req.Inputs {
		vars[k] = v
	}

	var declarations []cel.EnvOption
	for name := range vars {
		declarations = append(declarations, cel.Variable(name, cel.DynType))
	}
	env, err := cel.NewEnv(declarations...)
	if err != nil {
		return Result{OK: false, Err: fmt.Sprintf("router: build CEL environment: %v", err)}
	}

	var matched []string
	for _, c := range e.Conditions {
		ok, err := evalCondition(env, c.Condition, vars)
		if err != nil {
			return Result{OK: false, Err: fmt.Sprintf("router: condition %q: %v", c.Condition, err)}
		}
		if ok {
			matched = append(matched, c.ToNodeID)
		}
	}
	if len(matched) == 0 && e.Default != "" {
		matched = []string{e.Default}
	}
	return Result{OK: true, Output: "", Route: matched}
}

func evalCondition(env *cel.Env, expr string, vars map[string]interface{}) (bool, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, issues.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition did not evaluate to a boolean")
	}
	return b, nil
}
