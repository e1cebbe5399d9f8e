package workflow

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// New creates an empty Workflow ready for AddNode/AddEdge calls.
func New(id, name string) *Workflow {
	now := time.Now()
	return &Workflow{
		ID:        id,
		Name:      name,
		Nodes:     make(map[string]*Node),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddNode inserts n, keyed by its ID. A blank ID or a duplicate ID is an
// error — mirrors the teacher engine's Add contract (graph.Engine.Add).
func (w *Workflow) AddNode(n *Node) error {
	if n == nil {
		return fmt.Errorf("workflow: nil node")
	}
	if n.ID == "" {
		return fmt.Errorf("workflow: node id must not be empty")
	}
	if !n.Kind.IsKnown() {
		return fmt.Errorf("workflow: unknown node kind %q for node %q", n.Kind, n.ID)
	}
	if _, exists := w.Nodes[n.ID]; exists {
		return fmt.Errorf("workflow: duplicate node id %q", n.ID)
	}
	if n.Status == "" {
		n.Status = StatusIdle
	}
	if n.MaxIterations == 0 {
		n.MaxIterations = 1
	}
	w.Nodes[n.ID] = n
	w.UpdatedAt = time.Now()
	return nil
}

// AddEdge appends an edge. Both endpoints must already exist.
func (w *Workflow) AddEdge(e Edge) error {
	if _, ok := w.Nodes[e.From]; !ok {
		return fmt.Errorf("workflow: edge references unknown source node %q", e.From)
	}
	if _, ok := w.Nodes[e.To]; !ok {
		return fmt.Errorf("workflow: edge references unknown target node %q", e.To)
	}
	w.Edges = append(w.Edges, e)
	w.UpdatedAt = time.Now()
	return nil
}

// EntryNodes returns nodes with no incoming non-feedback edge, sorted
// by ID (so results are deterministic — memory
// semantics note in the design notes applies equally here: never depend
// on map iteration order).
func (w *Workflow) EntryNodes() []*Node {
	hasIncoming := make(map[string]bool)
	for _, e := range w.Edges {
		if !e.Feedback {
			hasIncoming[e.To] = true
		}
	}
	var out []*Node
	for id, n := range w.Nodes {
		if !hasIncoming[id] {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Predecessors returns the IDs of nodes with a non-feedback edge into id.
func (w *Workflow) Predecessors(id string) []string {
	var out []string
	for _, e := range w.Edges {
		if e.To == id && !e.Feedback {
			out = append(out, e.From)
		}
	}
	sort.Strings(out)
	return out
}

// Successors returns every outgoing edge from id, feedback included —
// routing considers feedback edges, only readiness excludes them.
func (w *Workflow) Successors(id string) []Edge {
	var out []Edge
	for _, e := range w.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks structural invariants: every edge endpoint exists, every
// node kind is known, iteration_count <= max_iterations, and the
// non-feedback subgraph is acyclic.
func (w *Workflow) Validate() error {
	for _, e := range w.Edges {
		if _, ok := w.Nodes[e.From]; !ok {
			return fmt.Errorf("workflow: dangling edge source %q", e.From)
		}
		if _, ok := w.Nodes[e.To]; !ok {
			return fmt.Errorf("workflow: dangling edge target %q", e.To)
		}
	}
	for id, n := range w.Nodes {
		if !n.Kind.IsKnown() {
			return fmt.Errorf("workflow: node %q has unknown kind %q", id, n.Kind)
		}
		if n.IterationCount > n.MaxIterations {
			return fmt.Errorf("workflow: node %q iteration_count %d exceeds max_iterations %d", id, n.IterationCount, n.MaxIterations)
		}
	}
	return w.checkAcyclic()
}

// checkAcyclic runs DFS cycle detection over the non-feedback subgraph
// only; feedback edges are permitted to form cycles (§3 invariant).
func (w *Workflow) checkAcyclic() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(w.Nodes))
	adj := make(map[string][]string, len(w.Nodes))
	for _, e := range w.Edges {
		if !e.Feedback {
			adj[e.From] = append(adj[e.From], e.To)
		}
	}

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, next := range adj[id] {
			switch color[next] {
			case gray:
				return fmt.Errorf("workflow: cycle detected in non-feedback subgraph at node %q", next)
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	ids := make([]string, 0, len(w.Nodes))
	for id := range w.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// doc is the serialized form per §6: id/name/description/nodes/edges plus
// timestamps. Unknown fields are preserved across a JSON round-trip
// (MarshalJSON/UnmarshalJSON) only.
type doc struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Nodes       map[string]*Node `json:"nodes"`
	Edges       []Edge           `json:"edges"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// MarshalJSON serializes the workflow and re-injects any unknown top-level
// fields captured at parse time, preserving them across a round-trip.
func (w *Workflow) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(doc{
		ID: w.ID, Name: w.Name, Description: w.Description,
		Nodes: w.Nodes, Edges: w.Edges, CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	if len(w.unknown) == 0 {
		return base, nil
	}
	merged := map[string]interface{}{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range w.unknown {
		if _, known := merged[k]; !known {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON parses the serialized form and stashes any field this
// struct doesn't model into unknown, so MarshalJSON can restore it later.
func (w *Workflow) UnmarshalJSON(data []byte) error {
	var d doc
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	raw := map[string]interface{}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, known := range []string{"id", "name", "description", "nodes", "edges", "created_at", "updated_at"} {
		delete(raw, known)
	}
	w.ID, w.Name, w.Description = d.ID, d.Name, d.Description
	w.Nodes, w.Edges = d.Nodes, d.Edges
	w.CreatedAt, w.UpdatedAt = d.CreatedAt, d.UpdatedAt
	if len(raw) > 0 {
		w.unknown = raw
	}
	return nil
}

// ToYAML serializes the workflow document form as YAML, for file-based
// authoring/round-trip alongside the JSON wire form. Unknown fields
// captured by UnmarshalJSON are not written.
func (w *Workflow) ToYAML() ([]byte, error) {
	return yaml.Marshal(doc{
		ID: w.ID, Name: w.Name, Description: w.Description,
		Nodes: w.Nodes, Edges: w.Edges, CreatedAt: w.CreatedAt, UpdatedAt: w.UpdatedAt,
	})
}

// FromYAML parses a YAML document form into a Workflow. Fields it does
// not model are dropped.
func FromYAML(data []byte) (*Workflow, error) {
	var d doc
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if d.Nodes == nil {
		d.Nodes = map[string]*Node{}
	}
	return &Workflow{
		ID: d.ID, Name: d.Name, Description: d.Description,
		Nodes: d.Nodes, Edges: d.Edges, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}, nil
}
