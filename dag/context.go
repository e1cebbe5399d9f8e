package dag

import (
	"fmt"
	"strings"

	"github.com/relsen/agentgraph/blackboard"
	"github.com/relsen/agentgraph/workflow"
)

// historyEntry is one line of the shared story history: the last few
// director/character/auditor outputs, visible to every subsequently
// admitted node regardless of graph position.
type historyEntry struct {
	NodeName string
	Output   string
}

// maxHistory and historyPreviewLen bound the "bounded-length shared story
// history" §4.1 calls for.
const (
	maxHistory        = 5
	historyPreviewLen = 1000
)

func (e *Engine) appendHistory(n *workflow.Node, output string) {
	switch n.Kind {
	case workflow.KindDirector, workflow.KindCharacter, workflow.KindAuditor:
	default:
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, historyEntry{NodeName: displayName(n), Output: preview(output, historyPreviewLen)})
	if len(e.history) > maxHistory {
		e.history = e.history[len(e.history)-maxHistory:]
	}
}

func (e *Engine) sharedHistorySnapshot() []historyEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]historyEntry, len(e.history))
	copy(out, e.history)
	return out
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func displayName(n *workflow.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// buildContext assembles a ready node's input per §4.1: predecessor
// outputs labelled by source name, a bounded shared history, and any
// pending intervention feedback or dispatch-injected priority context.
// The raw initial input is used only when the node has no predecessor
// with output (entry nodes, or a node reached only via feedback).
func (e *Engine) buildContext(n *workflow.Node, initialInput string) string {
	var parts []string

	e.mu.Lock()
	priority := e.priorityInput[n.ID]
	delete(e.priorityInput, n.ID)
	outputsCopy := make(map[string]string, len(e.outputs))
	for k, v := range e.outputs {
		outputsCopy[k] = v
	}
	e.mu.Unlock()

	if priority != "" {
		parts = append(parts, priority)
	}

	havePredecessorOutput := false
	for _, predID := range e.Workflow.Predecessors(n.ID) {
		out, ok := outputsCopy[predID]
		if !ok {
			continue
		}
		havePredecessorOutput = true
		pn := e.Workflow.Nodes[predID]
		name := predID
		if pn != nil {
			name = displayName(pn)
		}
		parts = append(parts, fmt.Sprintf("## %s\n%s", name, out))
	}

	if !havePredecessorOutput && priority == "" {
		parts = append(parts, initialInput)
	}

	if hist := e.sharedHistorySnapshot(); len(hist) > 0 {
		var b strings.Builder
		b.WriteString("## Recent Story History\n")
		for _, h := range hist {
			fmt.Fprintf(&b, "%s: %s\n", h.NodeName, h.Output)
		}
		parts = append(parts, b.String())
	}

	if fb, ok := e.Blackboard.Get(blackboard.FeedbackKey(n.ID)); ok {
		if s, ok := fb.(string); ok && s != "" {
			parts = append(parts, "## Intervention Feedback\n"+s)
		}
	}

	return strings.Join(parts, "\n\n")
}
