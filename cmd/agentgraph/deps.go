package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relsen/agentgraph/blackboard"
	"github.com/relsen/agentgraph/config"
	"github.com/relsen/agentgraph/dag"
	"github.com/relsen/agentgraph/emit"
	"github.com/relsen/agentgraph/failover"
	"github.com/relsen/agentgraph/memory"
	"github.com/relsen/agentgraph/node"
	"github.com/relsen/agentgraph/provider"
	"github.com/relsen/agentgraph/provider/anthropic"
	"github.com/relsen/agentgraph/provider/bedrock"
	"github.com/relsen/agentgraph/provider/google"
	"github.com/relsen/agentgraph/provider/openai"
	"github.com/relsen/agentgraph/store"
	"github.com/relsen/agentgraph/traffic"
	"github.com/relsen/agentgraph/workflow"
)

// runtime bundles every long-lived collaborator one Engine needs,
// constructed once per CLI invocation from cfg.
type runtime struct {
	registry   *node.Registry
	blackboard *blackboard.Blackboard
	traffic    *traffic.Controller
	emitter    emit.Emitter
	store      store.Store
	failover   *failover.Manager
	metrics    *dag.PrometheusMetrics
}

// buildRuntime wires a provider.Registry from whatever API keys cfg
// carries, registers every node.Kind factory, and opens the configured
// store backend.
func buildRuntime(cfg config.Config, wf *workflow.Workflow, runID string) (*runtime, error) {
	providers := provider.NewRegistry()
	registerProviders(providers, cfg)

	failoverMgr := failover.New(providers, failover.Config{})

	st, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("agentgraph: opening store: %w", err)
	}

	bb := blackboard.New()
	emitter := emit.NewLogEmitter(os.Stdout, false)

	var metrics *dag.PrometheusMetrics
	if cfg.PrometheusAddr != "" {
		metrics = dag.NewPrometheusMetrics(nil)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() { _ = http.ListenAndServe(cfg.PrometheusAddr, mux) }()
	}

	vectorStore := memory.NewVectorStore()
	summaryMem := memory.NewSummaryBufferMemory()

	reg := node.BuildRegistry(node.Dependencies{
		Failover:    failoverMgr,
		Blackboard:  bb,
		Emitter:     emitter,
		RunID:       runID,
		Workflow:    wf,
		ToolBaseDir: cfg.ToolBaseDir,
		Memory:      summaryMem,
		Retriever:   vectorStore,
		Documents:   vectorStore,
	})

	return &runtime{
		registry:   reg,
		blackboard: bb,
		traffic:    traffic.New(cfg.MaxConcurrentNodes),
		emitter:    emitter,
		store:      st,
		failover:   failoverMgr,
		metrics:    metrics,
	}, nil
}

// registerProviders adds one adapter per configured credential. A
// workflow that references a provider_id with no matching key fails at
// generate time with a clear "no provider registered" error rather than at
// startup, since most runs exercise only one or two backends.
func registerProviders(reg *provider.Registry, cfg config.Config) {
	if cfg.AnthropicAPIKey != "" {
		reg.RegisterProvider("anthropic", anthropic.New(cfg.AnthropicAPIKey, "claude-sonnet-4-5"))
	}
	if cfg.OpenAIAPIKey != "" {
		reg.RegisterProvider("openai", openai.New(cfg.OpenAIAPIKey, "gpt-4o"))
	}
	if cfg.GoogleAPIKey != "" {
		reg.RegisterProvider("google", google.New(cfg.GoogleAPIKey, "gemini-2.0-flash"))
	}
	if cfg.BedrockRegion != "" {
		if p, err := bedrock.New(context.Background(), cfg.BedrockRegion, "anthropic.claude-3-5-sonnet-20241022-v2:0"); err == nil {
			reg.RegisterProvider("bedrock", p)
		}
	}
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "", "memory":
		return store.NewMemStore(), nil
	case "sqlite":
		return store.NewSQLiteStore(cfg.StoreDSN)
	case "mysql":
		return store.NewMySQLStore(cfg.StoreDSN)
	default:
		return nil, fmt.Errorf("agentgraph: unknown store driver %q", cfg.StoreDriver)
	}
}

func (rt *runtime) newEngine(wf *workflow.Workflow, runID string) *dag.Engine {
	e := dag.New(wf, rt.registry, rt.blackboard, rt.traffic, rt.emitter, rt.store, runID)
	e.Metrics = rt.metrics
	return e
}

func loadWorkflowFile(path string) (*workflow.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("agentgraph: reading workflow file: %w", err)
	}
	wf, err := workflow.FromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("agentgraph: parsing workflow: %w", err)
	}
	return wf, nil
}
