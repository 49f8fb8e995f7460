package ruleflow

import (
	"fmt"
	"strconv"
	"strings"
)

// Canvas layout defaults. Nodes stack vertically when no position is given.
const (
	defaultNodeX = 250
	defaultNodeY = 80
	nodeGapY     = 140
)

// Editor is the graph mutation engine. It owns one canvas graph for the
// duration of an editing session and keeps nodes and edges consistent as the
// user adds, rewires, and deletes.
//
// All operations are total over a well-formed graph: unknown ids are no-ops,
// matching a forgiving direct-manipulation UI. The editor is not safe for
// concurrent use; a canvas processes one gesture at a time.
type Editor struct {
	graph       Graph
	selected    string
	lastCreated string
	seq         int
}

// NewEditor starts an editing session over a graph, typically the output of
// RuleToGraph. The id counter is seeded past any loaded ids so session ids
// never collide with serializer ids.
func NewEditor(g Graph) *Editor {
	e := &Editor{graph: g}
	for _, n := range g.Nodes {
		e.bumpSeq(n.ID)
	}
	for _, ed := range g.Edges {
		e.bumpSeq(ed.ID)
	}
	return e
}

// bumpSeq advances the session counter past a "{prefix}-{n}" id.
func (e *Editor) bumpSeq(id string) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 {
		return
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return
	}
	if n >= e.seq {
		e.seq = n + 1
	}
}

func (e *Editor) nextID(prefix string) string {
	id := fmt.Sprintf("%s-%d", prefix, e.seq)
	e.seq++
	return id
}

// Graph returns the current canvas state. The caller must not mutate it
// behind the editor's back.
func (e *Editor) Graph() *Graph { return &e.graph }

// Select marks a node as the current selection. Selecting an unknown id
// clears the selection.
func (e *Editor) Select(nodeID string) {
	if e.graph.Node(nodeID) == nil {
		e.selected = ""
		return
	}
	e.selected = nodeID
}

// Selected returns the currently selected node id, or "".
func (e *Editor) Selected() string { return e.selected }

// defaultData builds the type-appropriate empty payload for a new node.
func defaultData(t NodeType) map[string]any {
	switch t {
	case NodeTrigger:
		return map[string]any{"kind": ""}
	case NodeCondition:
		return map[string]any{"rules": []any{}}
	case NodeWait:
		return map[string]any{"mode": WaitModeRelative}
	case NodeValidate:
		return map[string]any{"rules": []any{}}
	default:
		return map[string]any{"kind": "", "config": map[string]any{}}
	}
}

// AddChained creates a node of the given type with empty type-appropriate
// data. If any node already exists, an edge is drawn from the most recently
// created node (not necessarily the topologically last one) to the new node,
// with no branch tag. Position defaults to the bottom of the vertical stack.
// Returns the new node id.
func (e *Editor) AddChained(t NodeType, pos *Position) string {
	p := e.stackPosition()
	if pos != nil {
		p = *pos
	}
	node := Node{
		ID:       e.nextID(string(t)),
		Type:     t,
		Position: p,
		Data:     defaultData(t),
	}
	e.graph.Nodes = append(e.graph.Nodes, node)

	if e.lastCreated != "" && e.graph.Node(e.lastCreated) != nil {
		e.graph.Edges = append(e.graph.Edges, Edge{
			ID:       e.nextID("edge"),
			SourceID: e.lastCreated,
			TargetID: node.ID,
		})
	} else if prev := e.anyOtherNode(node.ID); prev != "" {
		e.graph.Edges = append(e.graph.Edges, Edge{
			ID:       e.nextID("edge"),
			SourceID: prev,
			TargetID: node.ID,
		})
	}

	e.lastCreated = node.ID
	return node.ID
}

// AddFromSource creates a node wired from an explicit source node and branch,
// placed below the source. Used when the user invokes "add" on a specific
// output handle. An unknown source still creates the node, just unwired.
func (e *Editor) AddFromSource(t NodeType, sourceID, sourceBranch string) string {
	p := e.stackPosition()
	if src := e.graph.Node(sourceID); src != nil {
		p = Position{X: src.Position.X, Y: src.Position.Y + nodeGapY}
	}
	node := Node{
		ID:       e.nextID(string(t)),
		Type:     t,
		Position: p,
		Data:     defaultData(t),
	}
	e.graph.Nodes = append(e.graph.Nodes, node)

	if e.graph.Node(sourceID) != nil {
		e.graph.Edges = append(e.graph.Edges, Edge{
			ID:           e.nextID("edge"),
			SourceID:     sourceID,
			TargetID:     node.ID,
			SourceBranch: sourceBranch,
		})
	}

	e.lastCreated = node.ID
	return node.ID
}

// UpdateNodeData shallow-merges partial into the node's data, leaving
// position and type untouched. A condition node carrying the legacy
// single-rule shape (field/operator/value at the data root) is upgraded to a
// one-element rules array on the way through. Unknown ids are no-ops.
func (e *Editor) UpdateNodeData(nodeID string, partial map[string]any) {
	node := e.graph.Node(nodeID)
	if node == nil {
		return
	}
	if node.Data == nil {
		node.Data = map[string]any{}
	}
	for k, v := range partial {
		node.Data[k] = v
	}
	if node.Type == NodeCondition {
		upgradeLegacyCondition(node.Data)
	}
}

// upgradeLegacyCondition rewrites the pre-rules condition payload
// {field, operator, value} into {rules: [{field, operator, value}]}.
func upgradeLegacyCondition(data map[string]any) {
	if _, ok := data["rules"]; ok {
		return
	}
	field, hasField := data["field"]
	op, hasOp := data["operator"]
	if !hasField && !hasOp {
		return
	}
	rule := map[string]any{}
	if hasField {
		rule["field"] = field
		delete(data, "field")
	}
	if hasOp {
		rule["operator"] = op
		delete(data, "operator")
	}
	if v, ok := data["value"]; ok {
		rule["value"] = v
		delete(data, "value")
	}
	data["rules"] = []any{rule}
}

// DeleteNode removes the node and every edge touching it, as source or
// target. If the deleted node was selected, the selection is cleared. The
// trigger node is structurally mandatory; callers never offer a delete
// affordance for it, and this method refuses it as a backstop.
func (e *Editor) DeleteNode(nodeID string) {
	node := e.graph.Node(nodeID)
	if node == nil || node.Type == NodeTrigger {
		return
	}

	nodes := e.graph.Nodes[:0]
	for _, n := range e.graph.Nodes {
		if n.ID != nodeID {
			nodes = append(nodes, n)
		}
	}
	e.graph.Nodes = nodes

	edges := e.graph.Edges[:0]
	for _, ed := range e.graph.Edges {
		if ed.SourceID != nodeID && ed.TargetID != nodeID {
			edges = append(edges, ed)
		}
	}
	e.graph.Edges = edges

	if e.selected == nodeID {
		e.selected = ""
	}
	if e.lastCreated == nodeID {
		e.lastCreated = ""
	}
}

// Connect appends a user-drawn edge as-is. No cardinality validation; the
// serializer's linear-path contract is documented, not enforced here.
// Returns the edge id, or "" if either endpoint is unknown.
func (e *Editor) Connect(sourceID, targetID, sourceBranch string) string {
	if e.graph.Node(sourceID) == nil || e.graph.Node(targetID) == nil {
		return ""
	}
	edge := Edge{
		ID:           e.nextID("edge"),
		SourceID:     sourceID,
		TargetID:     targetID,
		SourceBranch: sourceBranch,
	}
	e.graph.Edges = append(e.graph.Edges, edge)
	return edge.ID
}

// Disconnect removes exactly one edge. Unknown ids are no-ops.
func (e *Editor) Disconnect(edgeID string) {
	for i, ed := range e.graph.Edges {
		if ed.ID == edgeID {
			e.graph.Edges = append(e.graph.Edges[:i], e.graph.Edges[i+1:]...)
			return
		}
	}
}

// MoveNode records a user drag. Positions are opaque layout state.
func (e *Editor) MoveNode(nodeID string, pos Position) {
	if node := e.graph.Node(nodeID); node != nil {
		node.Position = pos
	}
}

// stackPosition places a new node below the current lowest node.
func (e *Editor) stackPosition() Position {
	if len(e.graph.Nodes) == 0 {
		return Position{X: defaultNodeX, Y: defaultNodeY}
	}
	maxY := e.graph.Nodes[0].Position.Y
	for _, n := range e.graph.Nodes[1:] {
		if n.Position.Y > maxY {
			maxY = n.Position.Y
		}
	}
	return Position{X: defaultNodeX, Y: maxY + nodeGapY}
}

// anyOtherNode returns the id of some existing node other than exclude, used
// to chain the first node added in a session that loaded an existing graph
// but has not created anything yet.
func (e *Editor) anyOtherNode(exclude string) string {
	for i := len(e.graph.Nodes) - 1; i >= 0; i-- {
		if e.graph.Nodes[i].ID != exclude {
			return e.graph.Nodes[i].ID
		}
	}
	return ""
}
