package node

import (
	"github.com/relsen/agentgraph/blackboard"
	"github.com/relsen/agentgraph/emit"
	"github.com/relsen/agentgraph/failover"
	"github.com/relsen/agentgraph/tool"
	"github.com/relsen/agentgraph/workflow"
)

// Workflow is the subset of *workflow.Workflow the router factory needs
// to resolve a node's outgoing edges into RouteConditions.
type Workflow interface {
	Successors(nodeID string) []workflow.Edge
}

// Dependencies bundles everything BuildRegistry needs to construct a
// production Registry. Fields left nil simply mean the kinds that
// depend on them fail at execution time with a clear error rather than
// at startup — a workflow that never uses a telegram-trigger node
// doesn't need a bot token configured.
type Dependencies struct {
	Failover   *failover.Manager
	Blackboard *blackboard.Blackboard
	Emitter    emit.Emitter
	RunID      string

	// Workflow resolves a router node's outgoing edges into
	// RouteConditions; nil means every router falls back to Default
	// routing only (no conditions ever match).
	Workflow Workflow

	// ToolBaseDir scopes every node's sandboxed tool.Processor (file and
	// shell operations confined to this directory).
	ToolBaseDir string

	Memory    MemoryContext
	Retriever Retriever
	Documents DocumentStore

	TelegramBot *TelegramTriggerExecutor
	DiscordHub  *DiscordWebhookServer
}

// BuildRegistry wires one Factory per workflow.Kind that has a concrete
// Executor, following the node-kind-to-behavior mapping the rest of the
// package establishes. Several integration kinds with no dedicated
// client in the pack (github, huggingface, notion, google, mcp, comfy,
// browser, openapi) reuse HTTPExecutor: their contract is identical —
// call an external endpoint configured on the node, return the response
// body — and no pack repo ships a bespoke SDK for any of them.
func BuildRegistry(deps Dependencies) *Registry {
	reg := NewRegistry()

	personaFactory := func(n *workflow.Node) Executor {
		return &AgentExecutor{
			Node:       n,
			Failover:   deps.Failover,
			Blackboard: deps.Blackboard,
			Tools:      tool.New(deps.ToolBaseDir, deps.Emitter, deps.RunID, n.ID),
			Memory:     deps.Memory,
			Emit:       deps.Emitter,
			RunID:      deps.RunID,
		}
	}
	for _, k := range []workflow.Kind{
		workflow.KindAgent, workflow.KindCharacter, workflow.KindDirector,
		workflow.KindAuditor, workflow.KindCritic, workflow.KindOptimizer,
		workflow.KindArchitect,
	} {
		reg.Register(k, personaFactory)
	}

	reg.Register(workflow.KindInput, func(n *workflow.Node) Executor {
		return &InputExecutor{Node: n}
	})
	reg.Register(workflow.KindOutput, func(n *workflow.Node) Executor {
		render, _ := n.ProviderConfig["render"].(bool)
		return &OutputExecutor{Node: n, Render: render}
	})

	reg.Register(workflow.KindRouter, func(n *workflow.Node) Executor {
		var conditions []RouteCondition
		def := ""
		if deps.Workflow != nil {
			for _, e := range deps.Workflow.Successors(n.ID) {
				if e.Condition == "" {
					def = e.To
					continue
				}
				conditions = append(conditions, RouteCondition{ToNodeID: e.To, Condition: e.Condition})
			}
		}
		return &RouterExecutor{Node: n, Conditions: conditions, Default: def, Blackboard: deps.Blackboard}
	})

	reg.Register(workflow.KindMemory, func(n *workflow.Node) Executor {
		return &MemoryExecutor{Node: n, Memory: deps.Memory, Store: deps.Documents}
	})
	reg.Register(workflow.KindRAG, func(n *workflow.Node) Executor {
		return &RAGExecutor{Node: n, Retriever: deps.Retriever}
	})

	httpFactory := func(n *workflow.Node) Executor {
		return &HTTPExecutor{Node: n, Client: tool.NewHTTPClient()}
	}
	for _, k := range []workflow.Kind{
		workflow.KindHTTP, workflow.KindOpenAPI, workflow.KindGitHub,
		workflow.KindHuggingFace, workflow.KindNotion, workflow.KindGoogle,
		workflow.KindMCP, workflow.KindComfy, workflow.KindBrowser,
	} {
		reg.Register(k, httpFactory)
	}

	shellFactory := func(n *workflow.Node) Executor {
		return &ShellExecutor{Node: n, Processor: tool.New(deps.ToolBaseDir, deps.Emitter, deps.RunID, n.ID)}
	}
	reg.Register(workflow.KindShell, shellFactory)
	reg.Register(workflow.KindSystem, func(n *workflow.Node) Executor {
		return &SystemExecutor{ShellExecutor: ShellExecutor{Node: n, Processor: tool.New(deps.ToolBaseDir, deps.Emitter, deps.RunID, n.ID)}}
	})
	reg.Register(workflow.KindScript, shellFactory)

	reg.Register(workflow.KindA2UI, func(n *workflow.Node) Executor {
		return &A2UIExecutor{Node: n, Emit: deps.Emitter, RunID: deps.RunID}
	})

	reg.Register(workflow.KindTelegramTrigger, func(n *workflow.Node) Executor {
		if deps.TelegramBot != nil {
			return &TelegramTriggerExecutor{Node: n, Bot: deps.TelegramBot.Bot}
		}
		return &TelegramTriggerExecutor{Node: n}
	})
	reg.Register(workflow.KindDiscordTrigger, func(n *workflow.Node) Executor {
		channelID, _ := n.ProviderConfig["channel_id"].(string)
		return &DiscordTriggerExecutor{Node: n, Server: deps.DiscordHub, ChannelID: channelID}
	})

	return reg
}
