// Package workflow defines the data model shared by every other package:
// Workflow, Node, Edge, AgreementRule, and their serialized form.
package workflow

import "time"

// Kind identifies a node's behavior. The set is closed; Validate rejects
// anything outside it.
type Kind string

const (
	KindAgent           Kind = "agent"
	KindAuditor         Kind = "auditor"
	KindInput           Kind = "input"
	KindOutput          Kind = "output"
	KindRouter          Kind = "router"
	KindCharacter       Kind = "character"
	KindDirector        Kind = "director"
	KindOptimizer       Kind = "optimizer"
	KindScript          Kind = "script"
	KindMemory          Kind = "memory"
	KindRAG             Kind = "rag"
	KindHTTP            Kind = "http"
	KindOpenAPI         Kind = "openapi"
	KindGitHub          Kind = "github"
	KindHuggingFace      Kind = "huggingface"
	KindNotion          Kind = "notion"
	KindGoogle          Kind = "google"
	KindMCP             Kind = "mcp"
	KindComfy           Kind = "comfy"
	KindBrowser         Kind = "browser"
	KindShell           Kind = "shell"
	KindSystem          Kind = "system"
	KindA2UI            Kind = "a2ui"
	KindDiscovery       Kind = "discovery"
	KindArchitect       Kind = "architect"
	KindCritic          Kind = "critic"
	KindTelegramTrigger Kind = "telegram-trigger"
	KindDiscordTrigger  Kind = "discord-trigger"
)

var knownKinds = map[Kind]bool{
	KindAgent: true, KindAuditor: true, KindInput: true, KindOutput: true,
	KindRouter: true, KindCharacter: true, KindDirector: true, KindOptimizer: true,
	KindScript: true, KindMemory: true, KindRAG: true, KindHTTP: true,
	KindOpenAPI: true, KindGitHub: true, KindHuggingFace: true, KindNotion: true,
	KindGoogle: true, KindMCP: true, KindComfy: true, KindBrowser: true,
	KindShell: true, KindSystem: true, KindA2UI: true, KindDiscovery: true,
	KindArchitect: true, KindCritic: true, KindTelegramTrigger: true, KindDiscordTrigger: true,
}

// IsKnown reports whether k is one of the closed set of node kinds.
func (k Kind) IsKnown() bool { return knownKinds[k] }

// Status is a node's lifecycle state.
type Status string

const (
	StatusIdle               Status = "idle"
	StatusQueued              Status = "queued"
	StatusRunning             Status = "running"
	StatusComplete            Status = "complete"
	StatusFailed              Status = "failed"
	StatusSkipped             Status = "skipped"
	StatusWaitingForApproval Status = "waiting-for-approval"
	StatusPaused              Status = "paused"
)

// AgreementRuleKind enumerates the supported validation rule kinds.
type AgreementRuleKind string

const (
	RuleContains    AgreementRuleKind = "contains"
	RuleNotContains AgreementRuleKind = "not_contains"
	RuleMinWords    AgreementRuleKind = "min_words"
	RuleMaxWords    AgreementRuleKind = "max_words"
	RuleRegex       AgreementRuleKind = "regex"
	RuleJSON        AgreementRuleKind = "json"
	RuleSchema      AgreementRuleKind = "schema"
)

// AgreementRule gates node completion. Required rules that fail trigger a
// correction-and-retry in the agent protocol; non-required failures are
// informational only.
type AgreementRule struct {
	Name     string            `json:"name" yaml:"name"`
	Kind     AgreementRuleKind `json:"type" yaml:"type"`
	Value    interface{}       `json:"value" yaml:"value"`
	Required bool              `json:"required" yaml:"required"`
}

// Node is one vertex of a Workflow. Fields are grouped by purpose per the
// data model: identity/placement, behavior, execution contract, runtime
// state. Runtime state is mutated only by the engine.
type Node struct {
	// Identity & placement.
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`

	// Behavior.
	Persona         string                 `json:"persona,omitempty" yaml:"persona,omitempty"`
	Backstory       string                 `json:"backstory,omitempty" yaml:"backstory,omitempty"`
	ProviderID      string                 `json:"provider_id,omitempty" yaml:"provider_id,omitempty"`
	Model           string                 `json:"model,omitempty" yaml:"model,omitempty"`
	ProviderConfig  map[string]interface{} `json:"provider_config,omitempty" yaml:"provider_config,omitempty"`
	StaticInputs    map[string]interface{} `json:"static_inputs,omitempty" yaml:"static_inputs,omitempty"`
	ToolUseEnabled  bool                   `json:"tool_use_enabled" yaml:"tool_use_enabled"`
	Tier            string                 `json:"tier,omitempty" yaml:"tier,omitempty"`
	TaskCategory    string                 `json:"task_category,omitempty" yaml:"task_category,omitempty"`

	// Execution contract.
	MaxIterations   int             `json:"max_iterations" yaml:"max_iterations"`
	IterationCount  int             `json:"iteration_count" yaml:"iteration_count"`
	RequiresApproval bool           `json:"requires_approval" yaml:"requires_approval"`
	AgreementRules  []AgreementRule `json:"agreement_rules,omitempty" yaml:"agreement_rules,omitempty"`
	SubWorkflows    []string        `json:"sub_workflows,omitempty" yaml:"sub_workflows,omitempty"`
	ReturnEventBubble bool          `json:"return_event_bubble" yaml:"return_event_bubble"`
	SaveEnabled     bool            `json:"save_enabled" yaml:"save_enabled"`
	SavePath        string          `json:"save_path,omitempty" yaml:"save_path,omitempty"`

	// Runtime state (engine-owned).
	Status        Status  `json:"status" yaml:"status"`
	Output        *string `json:"output,omitempty" yaml:"output,omitempty"`
	Err           *string `json:"error,omitempty" yaml:"error,omitempty"`
	DisplayStatus string  `json:"display_status,omitempty" yaml:"display_status,omitempty"`
}

// Edge connects two nodes. Feedback edges never contribute to
// predecessor-readiness and may form cycles; they exist for loops and
// conditional routing only.
type Edge struct {
	From      string `json:"from" yaml:"from"`
	To        string `json:"to" yaml:"to"`
	Label     string `json:"label,omitempty" yaml:"label,omitempty"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
	Feedback  bool   `json:"feedback" yaml:"feedback"`
}

// Workflow is a set of Nodes and Edges plus identity metadata. It owns its
// Nodes and Edges exclusively; the dag.Engine only borrows it for the
// duration of an execution.
type Workflow struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       map[string]*Node `json:"nodes" yaml:"nodes"`
	Edges       []Edge          `json:"edges" yaml:"edges"`
	CreatedAt   time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" yaml:"updated_at"`

	// unknown preserves any document fields this version doesn't model, so
	// a JSON serialize/deserialize round-trip never drops caller data. The
	// YAML form (ToYAML/FromYAML) does not carry them.
	unknown map[string]interface{} `json:"-" yaml:"-"`
}
