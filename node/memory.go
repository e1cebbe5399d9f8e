package node

import (
	"context"

	"github.com/lithammer/shortuuid/v4"

	"github.com/relsen/agentgraph/workflow"
)

// Retriever is implemented by the memory package's VectorStore: given a
// query, return the best-scoring stored documents as a single joined
// context string.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int) (string, error)
}

// DocumentStore is implemented by the memory package's VectorStore: the
// write half of long-term memory, alongside Retriever's read half.
type DocumentStore interface {
	Add(id, content string, tags []string) (string, error)
}

// MemoryExecutor exposes the running conversation summary as a node's
// output, so a workflow can branch on "what has been discussed so far"
// without every agent node needing direct memory access. When its node
// is configured with provider_config.operation == "store", it instead
// writes its input into Store as a long-term memory document.
type MemoryExecutor struct {
	Node   *workflow.Node
	Memory MemoryContext
	Store  DocumentStore
}

func (e *MemoryExecutor) Execute(ctx context.Context, req Request) Result {
	operation, _ := e.Node.ProviderConfig["operation"].(string)
	if operation == "store" {
		return e.store(req)
	}
	if e.Memory == nil {
		return Result{OK: true, Output: ""}
	}
	return Result{OK: true, Output: e.Memory.Context()}
}

func (e *MemoryExecutor) store(req Request) Result {
	content := firstNonEmpty(req.Inputs, "text", "content", "query")
	if e.Store == nil || content == "" {
		return Result{OK: true, Output: ""}
	}
	id := firstNonEmpty(req.Inputs, "id")
	if id == "" {
		id = shortuuid.New()
	}
	tags := stringSlice(req.Inputs["tags"])
	storedID, err := e.Store.Add(id, content, tags)
	if err != nil {
		return Result{OK: false, Err: "memory store: " + err.Error()}
	}
	return Result{OK: true, Output: storedID}
}

// stringSlice coerces a YAML/JSON-decoded tags value ([]string or
// []interface{}) into []string, ignoring non-string elements.
func stringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// RAGExecutor retrieves the passages most relevant to its input query
// from a Retriever and returns them as context for a downstream agent
// node.
type RAGExecutor struct {
	Node      *workflow.Node
	Retriever Retriever
	Limit     int
}

func (e *RAGExecutor) Execute(ctx context.Context, req Request) Result {
	query := firstNonEmpty(req.Inputs, "text", "query")
	if e.Retriever == nil || query == "" {
		return Result{OK: true, Output: ""}
	}
	limit := e.Limit
	if limit <= 0 {
		limit = 5
	}
	out, err := e.Retriever.Retrieve(ctx, query, limit)
	if err != nil {
		return Result{OK: false, Err: "rag: " + err.Error()}
	}
	return Result{OK: true, Output: out}
}
