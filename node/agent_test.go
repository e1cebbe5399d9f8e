package node

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/relsen/agentgraph/blackboard"
	"github.com/relsen/agentgraph/failover"
	"github.com/relsen/agentgraph/memory"
	"github.com/relsen/agentgraph/provider"
	"github.com/relsen/agentgraph/workflow"
)

func newAgentExecutor(t *testing.T, responses []string, rules []workflow.AgreementRule) (*AgentExecutor, *provider.Mock) {
	t.Helper()
	reg := provider.NewRegistry()
	mock := &provider.Mock{Responses: responses}
	reg.RegisterProvider("p", mock)
	reg.RegisterModel(provider.Key{ProviderID: "p", Model: "m"}, 0)

	n := &workflow.Node{ID: "agent-1", ProviderID: "p", Model: "m", Persona: "You are helpful.", AgreementRules: rules}
	exec := &AgentExecutor{
		Node:       n,
		Failover:   failover.New(reg, failover.Config{MaxRetries: 3, RetryDelay: 0}),
		Blackboard: blackboard.New(),
	}
	return exec, mock
}

func TestAgentExecutorReturnsOutputOnFirstSuccess(t *testing.T) {
	exec, mock := newAgentExecutor(t, []string{"final answer"}, nil)
	result := exec.Execute(context.Background(), Request{Inputs: map[string]interface{}{"text": "hi"}})
	if !result.OK || result.Output != "final answer" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected one generate call, got %d", mock.CallCount())
	}
}

func TestAgentExecutorRetriesOnRequiredRuleFailure(t *testing.T) {
	rules := []workflow.AgreementRule{{Name: "has-done", Kind: workflow.RuleContains, Value: "DONE", Required: true}}
	exec, mock := newAgentExecutor(t, []string{"not there yet", "now it is DONE"}, rules)
	result := exec.Execute(context.Background(), Request{Inputs: map[string]interface{}{"text": "hi"}})
	if !result.OK {
		t.Fatalf("expected eventual success, got error: %s", result.Err)
	}
	if mock.CallCount() != 2 {
		t.Fatalf("expected a retry after validation failure, got %d calls", mock.CallCount())
	}
}

func TestAgentExecutorExtractsBlackboardState(t *testing.T) {
	exec, _ := newAgentExecutor(t, []string{`<set_state key="phase" value="done"/>all set`}, nil)
	exec.Execute(context.Background(), Request{Inputs: map[string]interface{}{"text": "go"}})
	v, ok := exec.Blackboard.Get("phase")
	if !ok || v != "done" {
		t.Fatalf("expected blackboard to record phase=done, got %v ok=%v", v, ok)
	}
}

func TestAgentExecutorInjectsBlackboardSnapshotIntoPrompt(t *testing.T) {
	exec, _ := newAgentExecutor(t, []string{"ok"}, nil)
	exec.Blackboard.Set("phase", "planning")
	prompt := exec.buildSystemPrompt(Request{})
	if !strings.Contains(prompt, "## Blackboard") || !strings.Contains(prompt, "phase: planning") {
		t.Fatalf("expected blackboard snapshot in system prompt, got:\n%s", prompt)
	}
}

func TestAgentExecutorOmitsBlackboardSectionWhenEmpty(t *testing.T) {
	exec, _ := newAgentExecutor(t, []string{"ok"}, nil)
	prompt := exec.buildSystemPrompt(Request{})
	if strings.Contains(prompt, "## Blackboard") {
		t.Fatalf("expected no blackboard section for an empty blackboard, got:\n%s", prompt)
	}
}

func TestAgentExecutorUpgradesModelForLongPaidTierMessage(t *testing.T) {
	exec, mock := newAgentExecutor(t, []string{"ok"}, nil)
	exec.Node.Tier = "paid"
	longInput := strings.Repeat("x", complexMessageThreshold+1)
	exec.Execute(context.Background(), Request{Inputs: map[string]interface{}{"text": longInput}})
	if mock.CallCount() != 1 {
		t.Fatalf("expected one generate call, got %d", mock.CallCount())
	}
	got := mock.Calls[0].Model
	upgraded := false
	for _, m := range failover.ModelsIn(failover.GroupHighCapability) {
		if got == m {
			upgraded = true
		}
	}
	if !upgraded {
		t.Fatalf("expected model upgraded to a high_capability sibling, got %q", got)
	}
}

func TestAgentExecutorKeepsModelForShortOrFreeTierMessage(t *testing.T) {
	exec, mock := newAgentExecutor(t, []string{"ok"}, nil)
	exec.Execute(context.Background(), Request{Inputs: map[string]interface{}{"text": "short"}})
	if mock.Calls[0].Model != "m" {
		t.Fatalf("expected model unchanged for a free-tier/short message, got %q", mock.Calls[0].Model)
	}

	exec2, mock2 := newAgentExecutor(t, []string{"ok"}, nil)
	exec2.Node.Tier = "paid"
	exec2.Execute(context.Background(), Request{Inputs: map[string]interface{}{"text": "short"}})
	if mock2.Calls[0].Model != "m" {
		t.Fatalf("expected model unchanged for a short paid-tier message, got %q", mock2.Calls[0].Model)
	}
}

func TestAgentExecutorStripsThoughtBlocks(t *testing.T) {
	exec, _ := newAgentExecutor(t, []string{"<think>planning the answer</think>the final answer"}, nil)
	result := exec.Execute(context.Background(), Request{Inputs: map[string]interface{}{"text": "hi"}})
	if !result.OK || result.Output != "the final answer" {
		t.Fatalf("expected thought block stripped from output, got: %+v", result)
	}
}

func TestAgentExecutorPrunesMemoryAfterThreshold(t *testing.T) {
	exec, mock := newAgentExecutor(t, []string{"reply"}, nil)
	mem := memory.NewSummaryBufferMemory()
	exec.Memory = mem
	for i := 0; i < 12; i++ {
		mem.AddMessage("user", fmt.Sprintf("message %d", i))
	}

	exec.pruneMemory(context.Background(), "m")

	if mock.CallCount() != 1 {
		t.Fatalf("expected Prune to call the summarizer once, got %d calls", mock.CallCount())
	}
	if !strings.Contains(mem.Context(), "Cumulative Summary") {
		t.Fatalf("expected buffer folded into a running summary, got:\n%s", mem.Context())
	}
}

func TestAgentExecutorPruneDropsOldestOnSummarizerFailure(t *testing.T) {
	exec, mock := newAgentExecutor(t, []string{"Error: summarizer down"}, nil)
	mem := memory.NewSummaryBufferMemory()
	exec.Memory = mem
	for i := 0; i < 12; i++ {
		mem.AddMessage("user", fmt.Sprintf("message %d", i))
	}

	exec.pruneMemory(context.Background(), "m")

	if mock.CallCount() != 1 {
		t.Fatalf("expected one summarizer attempt, got %d", mock.CallCount())
	}
	if strings.Count(mem.Context(), "USER:") != 7 {
		t.Fatalf("expected the oldest 5 of 12 messages dropped despite summarizer failure, got:\n%s", mem.Context())
	}
}
