package node

import (
	"context"
	"testing"

	"github.com/relsen/agentgraph/blackboard"
	"github.com/relsen/agentgraph/workflow"
)

func TestRouterExecutorRoutesOnMatchingCondition(t *testing.T) {
	bb := blackboard.New()
	bb.Set("score", 85.0)

	r := &RouterExecutor{
		Node:       &workflow.Node{ID: "router-1"},
		Blackboard: bb,
		Conditions: []RouteCondition{
			{ToNodeID: "high", Condition: "score >= 80.0"},
			{ToNodeID: "low", Condition: "score < 80.0"},
		},
	}
	result := r.Execute(context.Background(), Request{})
	if !result.OK {
		t.Fatalf("unexpected failure: %s", result.Err)
	}
	if len(result.Route) != 1 || result.Route[0] != "high" {
		t.Fatalf("expected route to high, got %v", result.Route)
	}
}

func TestRouterExecutorFallsBackToDefault(t *testing.T) {
	r := &RouterExecutor{
		Node:       &workflow.Node{ID: "router-1"},
		Blackboard: blackboard.New(),
		Conditions: []RouteCondition{
			{ToNodeID: "a", Condition: "false"},
		},
		Default: "fallback",
	}
	result := r.Execute(context.Background(), Request{})
	if !result.OK || len(result.Route) != 1 || result.Route[0] != "fallback" {
		t.Fatalf("expected fallback route, got %+v", result)
	}
}

func TestRouterExecutorReportsBadConditionError(t *testing.T) {
	r := &RouterExecutor{
		Node:       &workflow.Node{ID: "router-1"},
		Blackboard: blackboard.New(),
		Conditions: []RouteCondition{
			{ToNodeID: "a", Condition: "this is not valid cel +++"},
		},
	}
	result := r.Execute(context.Background(), Request{})
	if result.OK {
		t.Fatal("expected invalid CEL expression to fail")
	}
}
