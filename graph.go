package ruleflow

// NodeType tags a canvas node and selects the shape of its Data payload.
type NodeType string

const (
	NodeTrigger   NodeType = "trigger"
	NodeCondition NodeType = "condition"
	NodeAction    NodeType = "action"
	NodeWait      NodeType = "wait"
	NodeValidate  NodeType = "validate"
)

// IsValid reports whether the node type is one the editor knows.
func (t NodeType) IsValid() bool {
	switch t {
	case NodeTrigger, NodeCondition, NodeAction, NodeWait, NodeValidate:
		return true
	default:
		return false
	}
}

// Named output branches. Condition nodes expose yes/no, validate nodes expose
// match/none; every other type has a single unnamed output.
const (
	BranchYes   = "yes"
	BranchNo    = "no"
	BranchMatch = "match"
	BranchNone  = "none"
)

// OutputBranches returns the named outputs a node type exposes. A nil result
// means one unnamed output.
func (t NodeType) OutputBranches() []string {
	switch t {
	case NodeCondition:
		return []string{BranchYes, BranchNo}
	case NodeValidate:
		return []string{BranchMatch, BranchNone}
	default:
		return nil
	}
}

// Position is a canvas coordinate. Positions are user-dragged and stored
// opaquely; nothing in this package derives meaning from them.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a vertex on the editing canvas. Data is a free-form payload whose
// shape depends on Type; see the accessor helpers in serialize.go.
type Node struct {
	ID       string         `json:"id"`
	Type     NodeType       `json:"type"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data"`
}

// Edge is a directed connection between two nodes, optionally leaving a named
// branch on the source.
type Edge struct {
	ID           string `json:"id"`
	SourceID     string `json:"source_id"`
	TargetID     string `json:"target_id"`
	SourceBranch string `json:"source_branch,omitempty"`
}

// Graph is the in-memory canvas representation of a rule. It lives only for
// the duration of an editing session and is never persisted as such.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Clone returns a deep copy of the graph. Node data payloads are copied all
// the way down so the clone shares no maps or slices with the original; a
// clone handed to another goroutine is safe to read while the source keeps
// mutating.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	copy(out.Edges, g.Edges)
	for i, n := range g.Nodes {
		if n.Data != nil {
			n.Data = cloneValue(n.Data).(map[string]any)
		}
		out.Nodes[i] = n
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Node returns a pointer to the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// Edge returns a pointer to the edge with the given id, or nil.
func (g *Graph) Edge(id string) *Edge {
	for i := range g.Edges {
		if g.Edges[i].ID == id {
			return &g.Edges[i]
		}
	}
	return nil
}

// Trigger returns the graph's trigger node, or nil if absent.
func (g *Graph) Trigger() *Node {
	for i := range g.Nodes {
		if g.Nodes[i].Type == NodeTrigger {
			return &g.Nodes[i]
		}
	}
	return nil
}
