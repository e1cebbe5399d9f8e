package node

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/relsen/agentgraph/tool"
	"github.com/relsen/agentgraph/workflow"
)

func TestHTTPExecutorReturnsResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := &workflow.Node{ID: "http-1", ProviderConfig: map[string]interface{}{"method": "GET", "url": srv.URL}}
	exec := &HTTPExecutor{Node: n, Client: tool.NewHTTPClient()}
	result := exec.Execute(context.Background(), Request{})
	if !result.OK {
		t.Fatalf("unexpected failure: %s", result.Err)
	}
	if body := gjson.Get(result.Output, "body").String(); body != `{"ok":true}` {
		t.Fatalf("expected response body embedded, got %s (full output %s)", body, result.Output)
	}
}

func TestHTTPExecutorFailsOnMissingURL(t *testing.T) {
	exec := &HTTPExecutor{Node: &workflow.Node{ID: "http-1"}, Client: tool.NewHTTPClient()}
	result := exec.Execute(context.Background(), Request{})
	if result.OK {
		t.Fatal("expected failure with no url configured")
	}
}

func TestShellExecutorRunsConfiguredCommand(t *testing.T) {
	dir := t.TempDir()
	proc := tool.New(dir, nil, "run", "shell-1")
	n := &workflow.Node{ID: "shell-1", ProviderConfig: map[string]interface{}{"command": "echo hi"}}
	exec := &ShellExecutor{Node: n, Processor: proc}
	result := exec.Execute(context.Background(), Request{})
	if !result.OK {
		t.Fatalf("unexpected failure: %s", result.Err)
	}
}

func TestShellExecutorBlocksDangerousCommand(t *testing.T) {
	dir := t.TempDir()
	proc := tool.New(dir, nil, "run", "shell-1")
	n := &workflow.Node{ID: "shell-1", ProviderConfig: map[string]interface{}{"command": "rm -rf /"}}
	exec := &ShellExecutor{Node: n, Processor: proc}
	result := exec.Execute(context.Background(), Request{})
	if result.OK {
		t.Fatal("expected dangerous command to be blocked")
	}
}
