package ruleflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAddChained_WiresFromLastCreated verifies chaining follows creation
// order, not topology.
func TestAddChained_WiresFromLastCreated(t *testing.T) {
	e := NewEditor(Graph{})

	trig := e.AddChained(NodeTrigger, nil)
	cond := e.AddChained(NodeCondition, nil)
	act := e.AddChained(NodeAction, nil)

	g := e.Graph()
	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 2)

	assert.Equal(t, trig, g.Edges[0].SourceID)
	assert.Equal(t, cond, g.Edges[0].TargetID)
	assert.Equal(t, cond, g.Edges[1].SourceID)
	assert.Equal(t, act, g.Edges[1].TargetID)
	assert.Empty(t, g.Edges[0].SourceBranch)
	assert.Empty(t, g.Edges[1].SourceBranch)
}

// TestAddChained_StacksVertically checks the default position policy.
func TestAddChained_StacksVertically(t *testing.T) {
	e := NewEditor(Graph{})

	a := e.AddChained(NodeTrigger, nil)
	b := e.AddChained(NodeAction, nil)

	na, nb := e.Graph().Node(a), e.Graph().Node(b)
	assert.Greater(t, nb.Position.Y, na.Position.Y, "new nodes stack below existing ones")
	assert.Equal(t, na.Position.X, nb.Position.X)
}

// TestAddFromSource_BranchAndPlacement checks explicit-handle adds.
func TestAddFromSource_BranchAndPlacement(t *testing.T) {
	e := NewEditor(Graph{})
	trig := e.AddChained(NodeTrigger, nil)
	cond := e.AddChained(NodeCondition, nil)

	act := e.AddFromSource(NodeAction, cond, BranchNo)

	g := e.Graph()
	require.Len(t, g.Edges, 2)
	edge := g.Edges[1]
	assert.Equal(t, cond, edge.SourceID)
	assert.Equal(t, act, edge.TargetID)
	assert.Equal(t, BranchNo, edge.SourceBranch)

	src, dst := g.Node(cond), g.Node(act)
	assert.Equal(t, src.Position.X, dst.Position.X)
	assert.Greater(t, dst.Position.Y, src.Position.Y, "placed below the source")

	_ = trig
}

// TestAddFromSource_UnknownSource creates the node unwired.
func TestAddFromSource_UnknownSource(t *testing.T) {
	e := NewEditor(Graph{})
	id := e.AddFromSource(NodeAction, "ghost", "")

	assert.NotNil(t, e.Graph().Node(id))
	assert.Empty(t, e.Graph().Edges)
}

// TestDeleteNode_CascadesEdges verifies every touching edge goes, whether the
// node is source or target, and the selection is cleared.
func TestDeleteNode_CascadesEdges(t *testing.T) {
	e := NewEditor(Graph{})
	trig := e.AddChained(NodeTrigger, nil)
	cond := e.AddChained(NodeCondition, nil)
	yes := e.AddFromSource(NodeAction, cond, BranchYes)
	no := e.AddFromSource(NodeAction, cond, BranchNo)
	e.Connect(yes, no, "")

	e.Select(cond)
	e.DeleteNode(cond)

	g := e.Graph()
	assert.Nil(t, g.Node(cond))
	for _, edge := range g.Edges {
		assert.NotEqual(t, cond, edge.SourceID)
		assert.NotEqual(t, cond, edge.TargetID)
	}
	assert.Len(t, g.Edges, 1, "only the yes-to-no edge survives")
	assert.Empty(t, e.Selected(), "deleting the selected node clears selection")

	_ = trig
}

// TestDeleteNode_TriggerRefused: the trigger is structurally mandatory.
func TestDeleteNode_TriggerRefused(t *testing.T) {
	e := NewEditor(Graph{})
	trig := e.AddChained(NodeTrigger, nil)

	e.DeleteNode(trig)
	assert.NotNil(t, e.Graph().Node(trig))
}

// TestDeleteNode_UnknownID is a no-op.
func TestDeleteNode_UnknownID(t *testing.T) {
	e := NewEditor(Graph{})
	e.AddChained(NodeTrigger, nil)
	e.DeleteNode("ghost")
	assert.Len(t, e.Graph().Nodes, 1)
}

// TestConnectDisconnect covers manual edge management.
func TestConnectDisconnect(t *testing.T) {
	e := NewEditor(Graph{})
	a := e.AddChained(NodeTrigger, nil)
	b := e.AddChained(NodeAction, nil)

	id := e.Connect(a, b, "")
	require.NotEmpty(t, id)
	assert.Len(t, e.Graph().Edges, 2, "manual connect appends without cardinality checks")

	e.Disconnect(id)
	assert.Len(t, e.Graph().Edges, 1)
	assert.Nil(t, e.Graph().Edge(id))

	e.Disconnect("ghost") // no-op
	assert.Len(t, e.Graph().Edges, 1)

	assert.Empty(t, e.Connect("ghost", b, ""), "unknown endpoints refuse the edge")
}

// TestUpdateNodeData_ShallowMerge checks merge semantics leave position and
// type alone.
func TestUpdateNodeData_ShallowMerge(t *testing.T) {
	e := NewEditor(Graph{})
	id := e.AddChained(NodeAction, nil)
	pos := e.Graph().Node(id).Position

	e.UpdateNodeData(id, map[string]any{"kind": "send_email"})
	e.UpdateNodeData(id, map[string]any{"config": map[string]any{"to": "a@b.c"}})

	n := e.Graph().Node(id)
	assert.Equal(t, "send_email", n.Data["kind"])
	assert.Equal(t, map[string]any{"to": "a@b.c"}, n.Data["config"])
	assert.Equal(t, pos, n.Position)
	assert.Equal(t, NodeAction, n.Type)

	e.UpdateNodeData("ghost", map[string]any{"kind": "x"}) // no-op
}

// TestUpdateNodeData_LegacyConditionUpgrade verifies the old flat condition
// payload is upgraded to a rules array on the way through, so it serializes
// as a one-element AND chain.
func TestUpdateNodeData_LegacyConditionUpgrade(t *testing.T) {
	g := Graph{Nodes: []Node{
		{ID: "trigger-0", Type: NodeTrigger, Data: map[string]any{"kind": "t"}},
		{ID: "condition-0", Type: NodeCondition, Data: map[string]any{
			"field": "value", "operator": "greater_than", "value": "100",
		}},
	}}
	e := NewEditor(g)

	e.UpdateNodeData("condition-0", map[string]any{})

	n := e.Graph().Node("condition-0")
	assert.NotContains(t, n.Data, "field")
	assert.Contains(t, n.Data, "rules")

	out := GraphToRule(e.Graph(), &Rule{Trigger: TriggerRef{Kind: "t"}})
	require.Len(t, out.Conditions, 1)
	assert.Equal(t, Condition{Field: "value", Operator: OpGreaterThan, Value: "100"}, out.Conditions[0])
}

// TestEditor_IDsSeededPastLoadedGraph: session ids never collide with
// serializer-generated ids.
func TestEditor_IDsSeededPastLoadedGraph(t *testing.T) {
	rule := &Rule{
		Trigger:    TriggerRef{Kind: "t"},
		Conditions: []Condition{{Field: "a", Operator: OpEquals, Value: 1}},
		Actions:    []Action{{Kind: "x", Config: map[string]any{}}},
	}
	g := RuleToGraph(rule)
	e := NewEditor(g)

	seen := map[string]bool{}
	for _, n := range e.Graph().Nodes {
		seen[n.ID] = true
	}
	for i := 0; i < 5; i++ {
		id := e.AddChained(NodeAction, nil)
		assert.False(t, seen[id], "new id %s collides with a loaded id", id)
		seen[id] = true
	}
}

// TestMoveNode records drags and ignores unknown ids.
func TestMoveNode(t *testing.T) {
	e := NewEditor(Graph{})
	id := e.AddChained(NodeTrigger, nil)

	e.MoveNode(id, Position{X: 10, Y: 20})
	assert.Equal(t, Position{X: 10, Y: 20}, e.Graph().Node(id).Position)

	e.MoveNode("ghost", Position{}) // no-op
}

// TestSelect_UnknownClears mirrors the forgiving no-op contract.
func TestSelect_UnknownClears(t *testing.T) {
	e := NewEditor(Graph{})
	id := e.AddChained(NodeTrigger, nil)

	e.Select(id)
	assert.Equal(t, id, e.Selected())

	e.Select("ghost")
	assert.Empty(t, e.Selected())
}
