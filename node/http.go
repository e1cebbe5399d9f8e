package node

import (
	"context"
	"fmt"

	"github.com/tidwall/sjson"

	"github.com/relsen/agentgraph/tool"
	"github.com/relsen/agentgraph/workflow"
)

// HTTPExecutor calls an external endpoint through a sandboxed
// tool.HTTPClient (SSRF block-list applied before any request is
// issued) and returns the response body as JSON text. Used for both the
// "http" and "openapi" kinds — an OpenAPI node differs only in how its
// static configuration is authored upstream, not in its execution
// contract.
type HTTPExecutor struct {
	Node   *workflow.Node
	Client *tool.HTTPClient
}

func (e *HTTPExecutor) Execute(ctx context.Context, req Request) Result {
	method, _ := e.Node.ProviderConfig["method"].(string)
	url, _ := e.Node.ProviderConfig["url"].(string)
	if url == "" {
		url = firstNonEmpty(req.Inputs, "url")
	}
	if url == "" {
		return Result{OK: false, Err: "http: no url configured"}
	}

	headers := map[string]string{}
	if raw, ok := e.Node.ProviderConfig["headers"].(map[string]interface{}); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}

	body := firstNonEmpty(req.Inputs, "body")

	resp, err := e.Client.Do(ctx, tool.HTTPRequest{Method: method, URL: url, Headers: headers, Body: body})
	if err != nil {
		return Result{OK: false, Err: err.Error()}
	}

	out := "{}"
	out, _ = sjson.Set(out, "status_code", resp.StatusCode)
	out, _ = sjson.Set(out, "headers", resp.Headers)
	out, _ = sjson.Set(out, "body", resp.Body)

	if resp.StatusCode >= 400 {
		return Result{OK: false, Err: fmt.Sprintf("http %d: %s", resp.StatusCode, resp.Body)}
	}
	return Result{OK: true, Output: out}
}
