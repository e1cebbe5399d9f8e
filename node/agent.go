package node

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/relsen/agentgraph/agreement"
	"github.com/relsen/agentgraph/blackboard"
	"github.com/relsen/agentgraph/emit"
	"github.com/relsen/agentgraph/failover"
	"github.com/relsen/agentgraph/memory"
	"github.com/relsen/agentgraph/provider"
	"github.com/relsen/agentgraph/tool"
	"github.com/relsen/agentgraph/workflow"
)

// complexMessageThreshold is §4.6's tier/complexity scaling rule: a
// paid-tier node whose assembled user message grows past this length is
// bumped to a higher-capability sibling model before the call.
const complexMessageThreshold = 5000

// maxRetries bounds the agent's generate-validate-correct loop (spec
// §4.7's validation loop default).
const maxRetries = 3

// MemoryContext supplies the conversation-summary context an agent
// prepends to its system prompt, and records turns for future pruning.
// The memory package's SummaryBufferMemory implements this.
type MemoryContext interface {
	Context() string
	AddMessage(role, content string)
}

// AgentExecutor is the standard LLM node: builds a system prompt from
// persona/backstory/memory/tool-instructions, generates through the
// failover manager, processes tool tags and blackboard tags in the raw
// output, then validates against agreement rules, retrying with a
// correction preamble up to maxRetries.
type AgentExecutor struct {
	Node       *workflow.Node
	Failover   *failover.Manager
	Blackboard *blackboard.Blackboard
	Tools      *tool.Processor
	Memory     MemoryContext
	Emit       emit.Emitter
	RunID      string

	// CategoryHint resolves a task category to a preferred (provider,
	// model) before group/priority fallback — wired by the dag engine
	// from its tier configuration, if any.
	CategoryHint failover.CategoryHint
}

const toolsPrompt = `## Tools

You can take actions by emitting XML blocks in your output:

<write_file path="...">content</write_file>
<read_file path="..."/>
<append_file path="...">content</append_file>
<delete_file path="..."/>
<create_dir path="..."/>
<list_dir path="..."/>
<delete_dir path="..."/>
<copy path="..." to="..."/>
<move path="..." to="..."/>
<install_package name="..." manager="npm"/>
<install_tool name="..."/>
<run_command command="..." timeout="120"/>
<run_build command="..."/>

Use <set_state key="...">value</set_state> to record shared state other nodes can read.`

func (e *AgentExecutor) Execute(ctx context.Context, req Request) Result {
	n := e.Node
	inputText := firstNonEmpty(req.Inputs, "text", "query")
	correction := ""

	for attempt := 0; attempt < maxRetries; attempt++ {
		systemPrompt := e.buildSystemPrompt(req)
		userMessage := inputText
		if correction != "" {
			userMessage += "\n\n" + correction
		}

		if e.Memory != nil {
			e.Memory.AddMessage("user", inputText)
		}

		category := n.TaskCategory
		if category == "" {
			category = inferCategory(inputText + systemPrompt)
		}

		model := e.selectModel(userMessage)
		key := provider.Key{ProviderID: n.ProviderID, Model: model}
		genReq := provider.GenerateRequest{
			SystemPrompt: systemPrompt,
			UserMessage:  userMessage,
			Context:      req.ContextStr,
			Model:        model,
		}

		var failoverEvents []failover.FailoverEvent
		result, err := e.Failover.ExecuteWithFailover(ctx, key, category, e.CategoryHint, genReq, func(ev failover.FailoverEvent) {
			failoverEvents = append(failoverEvents, ev)
		})
		if err != nil {
			if attempt+1 >= maxRetries {
				return Result{OK: false, Err: err.Error()}
			}
			e.log(fmt.Sprintf("generation failed, retrying: %v", err))
			time.Sleep(time.Second)
			continue
		}
		for _, ev := range failoverEvents {
			e.log(fmt.Sprintf("failover: %s/%s -> %s/%s (%s)", ev.OldProvider, ev.OldModel, ev.NewProvider, ev.NewModel, ev.Reason))
		}

		output := e.stripThoughts(result.Output)
		if e.Tools != nil {
			toolResults := e.Tools.ProcessAll(ctx, output)
			total := len(toolResults.FilesCreated) + len(toolResults.DirsCreated) + len(toolResults.CommandsRun) + len(toolResults.PackagesInstalled)
			if total > 0 {
				e.log(fmt.Sprintf("tool actions: %d operations completed", total))
			}
		}
		if e.Blackboard != nil {
			blackboard.ExtractSetState(e.Blackboard, output)
		}
		if e.Memory != nil {
			history := output
			if len(history) > 500 {
				history = history[:500] + "..."
			}
			e.Memory.AddMessage("assistant", history)
			e.pruneMemory(ctx, model)
		}

		report := agreement.Validate(output, n.AgreementRules)
		if report.Passed {
			return Result{OK: true, Output: output}
		}
		if len(report.FailedRequired) == 0 {
			// only non-required rules failed; still a pass
			return Result{OK: true, Output: output}
		}
		if attempt+1 >= maxRetries {
			names := make([]string, len(report.FailedRequired))
			for i, r := range report.FailedRequired {
				names[i] = r.Name
			}
			return Result{OK: false, Err: "validation failed: " + strings.Join(names, ", ")}
		}
		correction = agreement.CorrectionPreamble(report.FailedRequired)
		e.log("validation failed, retrying with correction")
	}

	return Result{OK: false, Err: "max retries reached"}
}

func (e *AgentExecutor) buildSystemPrompt(req Request) string {
	n := e.Node
	persona := n.Persona
	if req.PersonaOverride != "" {
		persona = req.PersonaOverride
	}
	var parts []string
	parts = append(parts, persona)
	if n.Backstory != "" {
		parts = append(parts, "## Backstory\n"+n.Backstory)
	}
	if e.Memory != nil {
		if mc := e.Memory.Context(); mc != "" {
			parts = append(parts, "## Conversation History (Summarized)\n"+mc)
		}
	}
	if n.ToolUseEnabled {
		parts = append(parts, toolsPrompt)
	}
	if e.Blackboard != nil {
		if snap := renderBlackboard(e.Blackboard); snap != "" {
			parts = append(parts, snap)
		}
	}
	return strings.Join(parts, "\n\n")
}

// renderBlackboard renders the shared blackboard's current state as a
// system-prompt section, sorted by key for deterministic output (map
// iteration order is not).
func renderBlackboard(bb *blackboard.Blackboard) string {
	snap := bb.Snapshot()
	if len(snap) == 0 {
		return ""
	}
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("## Blackboard\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, snap[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

// selectModel applies §4.6's tier/complexity scaling: once the assembled
// user message exceeds complexMessageThreshold characters, a paid-tier
// node is bumped to a high-capability sibling model, falling back to its
// configured model if none is known for it. The choice is advisory —
// Failover still owns retry/fallback across whichever model is picked.
func (e *AgentExecutor) selectModel(userMessage string) string {
	n := e.Node
	if n.Tier != "paid" || len(userMessage) <= complexMessageThreshold {
		return n.Model
	}
	for _, candidate := range failover.ModelsIn(failover.GroupHighCapability) {
		if candidate != n.Model {
			e.log(fmt.Sprintf("tier upgrade: %s -> %s (user message %d chars)", n.Model, candidate, len(userMessage)))
			return candidate
		}
	}
	return n.Model
}

// stripThoughts extracts <think>...</think> blocks from output, emitting
// each as a KindThought event, and returns the remaining text.
func (e *AgentExecutor) stripThoughts(output string) string {
	extractor := NewThoughtExtractor(e.emitThought)
	var b strings.Builder
	b.WriteString(extractor.Feed(output))
	b.WriteString(extractor.Flush())
	return b.String()
}

func (e *AgentExecutor) emitThought(thought string) {
	if e.Emit == nil {
		return
	}
	e.Emit.Emit(emit.Event{
		Kind:      emit.KindThought,
		RunID:     e.RunID,
		NodeID:    e.Node.ID,
		NodeName:  e.Node.Name,
		Timestamp: time.Now(),
		Message:   thought,
	})
}

// pruner is satisfied by memory.SummaryBufferMemory; checked via type
// assertion so MemoryContext itself doesn't need to grow a method only
// one implementation needs.
type pruner interface {
	Prune(ctx context.Context, summarizer memory.Summarizer) error
}

// pruneMemory folds old buffered turns into Memory's running summary
// once it grows past threshold, using model as the summarizer's backend.
// A failure here is logged, not fatal: summarization failure still drops
// the oldest messages (memory.SummaryBufferMemory.Prune's contract).
func (e *AgentExecutor) pruneMemory(ctx context.Context, model string) {
	p, ok := e.Memory.(pruner)
	if !ok || e.Failover == nil {
		return
	}
	summarizer := failoverSummarizer{
		failover: e.Failover,
		key:      provider.Key{ProviderID: e.Node.ProviderID, Model: model},
	}
	if err := p.Prune(ctx, summarizer); err != nil {
		e.log(fmt.Sprintf("memory prune failed, oldest messages dropped: %v", err))
	}
}

// failoverSummarizer adapts a failover.Manager into a memory.Summarizer.
type failoverSummarizer struct {
	failover *failover.Manager
	key      provider.Key
}

func (s failoverSummarizer) Generate(ctx context.Context, req provider.GenerateRequest) (string, error) {
	result, err := s.failover.ExecuteWithFailover(ctx, s.key, "", nil, req, nil)
	if err != nil {
		return "", err
	}
	return result.Output, nil
}

func (e *AgentExecutor) log(message string) {
	if e.Emit == nil {
		return
	}
	e.Emit.Emit(emit.Event{
		Kind:      emit.KindLog,
		RunID:     e.RunID,
		NodeID:    e.Node.ID,
		NodeName:  e.Node.Name,
		Timestamp: time.Now(),
		Message:   message,
	})
}

func firstNonEmpty(inputs map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := inputs[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"coding", []string{"code", "programming", "function", "script", "bug", "debug"}},
	{"writing", []string{"write", "story", "article", "essay", "text"}},
	{"designing", []string{"design", "ui", "layout", "interface"}},
	{"graphics", []string{"graphic", "image", "visual", "artwork"}},
	{"art", []string{"art", "creative", "drawing", "painting"}},
}

// inferCategory guesses a task category from content when the node
// doesn't declare one explicitly, matching agent_node.py's keyword
// heuristic.
func inferCategory(content string) string {
	lower := strings.ToLower(content)
	for _, c := range categoryKeywords {
		for _, w := range c.words {
			if strings.Contains(lower, w) {
				return c.category
			}
		}
	}
	return "general"
}
