package ruleflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRuleToGraph_Scenario verifies the canonical expansion: one trigger, one
// condition, one action become three chained nodes with the affirmative
// branch into the action chain.
func TestRuleToGraph_Scenario(t *testing.T) {
	rule := &Rule{
		ID:      "r1",
		Name:    "notify",
		Trigger: TriggerRef{Kind: "opportunity_created"},
		Conditions: []Condition{
			{Field: "stage_id", Operator: OpEquals, Value: "S1"},
		},
		Actions: []Action{
			{Kind: "create_notification", Config: map[string]any{"title": "Hi"}},
		},
	}

	g := RuleToGraph(rule)

	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 2)

	assert.Equal(t, "trigger-0", g.Nodes[0].ID)
	assert.Equal(t, NodeTrigger, g.Nodes[0].Type)
	assert.Equal(t, "condition-0", g.Nodes[1].ID)
	assert.Equal(t, "action-0", g.Nodes[2].ID)

	assert.Equal(t, "trigger-0", g.Edges[0].SourceID)
	assert.Equal(t, "condition-0", g.Edges[0].TargetID)
	assert.Empty(t, g.Edges[0].SourceBranch, "trigger to condition edge carries no branch")

	assert.Equal(t, "condition-0", g.Edges[1].SourceID)
	assert.Equal(t, "action-0", g.Edges[1].TargetID)
	assert.Equal(t, BranchYes, g.Edges[1].SourceBranch, "condition into action chain uses the yes branch")
}

// TestGraphToRule_Scenario verifies the canonical flattening reproduces the
// original conditions and actions verbatim.
func TestGraphToRule_Scenario(t *testing.T) {
	rule := &Rule{
		ID:      "r1",
		Name:    "notify",
		Trigger: TriggerRef{Kind: "opportunity_created"},
		Conditions: []Condition{
			{Field: "stage_id", Operator: OpEquals, Value: "S1"},
		},
		Actions: []Action{
			{Kind: "create_notification", Config: map[string]any{"title": "Hi"}},
		},
	}

	g := RuleToGraph(rule)
	out := GraphToRule(&g, rule)

	assert.Equal(t, rule.Conditions, out.Conditions)
	assert.Equal(t, rule.Actions, out.Actions)
	assert.Equal(t, "opportunity_created", out.Trigger.Kind)
	assert.Equal(t, "r1", out.ID, "fields the graph does not own come from the base rule")
}

// TestRoundTrip_WaitAndValidate exercises the lossy-but-documented round trip
// across all node types with at most one AND-rule per condition.
func TestRoundTrip_WaitAndValidate(t *testing.T) {
	rule := &Rule{
		ID:      "r2",
		Name:    "full chain",
		Trigger: TriggerRef{Kind: "message_received"},
		Conditions: []Condition{
			{Field: "channel", Operator: OpEquals, Value: "email"},
			{Field: "body", Operator: OpIsNotEmpty},
		},
		Actions: []Action{
			{Kind: "send_reply", Config: map[string]any{"template": "t1"}},
			{Kind: ActionKindWait, Config: map[string]any{
				"mode": WaitModeRelative, "amount": 2, "unit": "hours", "minutes": 120,
			}},
			{Kind: ActionKindValidate, Config: map[string]any{
				"rules": []any{map[string]any{"operator": CheckContains, "value": "yes"}},
			}},
		},
	}

	g := RuleToGraph(rule)
	require.Len(t, g.Nodes, 6)
	require.Len(t, g.Edges, 5)

	out := GraphToRule(&g, rule)
	assert.Equal(t, rule.Conditions, out.Conditions)
	assert.Equal(t, rule.Actions, out.Actions)

	positions, ok := out.Trigger.Config[LayoutPositionsKey].(map[string]Position)
	require.True(t, ok, "layout side-channel must be captured")
	for _, n := range g.Nodes {
		assert.Contains(t, positions, n.ID, "every node gets a position entry")
	}
}

// TestRuleToGraph_BranchTagging checks that only the hop from the last
// condition into the action chain is branch-tagged.
func TestRuleToGraph_BranchTagging(t *testing.T) {
	rule := &Rule{
		Trigger: TriggerRef{Kind: "t"},
		Conditions: []Condition{
			{Field: "a", Operator: OpEquals, Value: 1},
			{Field: "b", Operator: OpEquals, Value: 2},
		},
		Actions: []Action{
			{Kind: "x", Config: map[string]any{}},
			{Kind: "y", Config: map[string]any{}},
		},
	}

	g := RuleToGraph(rule)
	require.Len(t, g.Edges, 4)

	tagged := 0
	for _, e := range g.Edges {
		if e.SourceBranch != "" {
			tagged++
			assert.Equal(t, BranchYes, e.SourceBranch)
			assert.Equal(t, "condition-1", e.SourceID)
			assert.Equal(t, "action-0", e.TargetID)
		}
	}
	assert.Equal(t, 1, tagged, "exactly one edge in a fresh graph carries a branch")
}

// TestRuleToGraph_RememberedPositions verifies that stored layout wins over
// the default stack, including after a JSON-shaped round trip.
func TestRuleToGraph_RememberedPositions(t *testing.T) {
	rule := &Rule{
		Trigger: TriggerRef{
			Kind: "t",
			Config: map[string]any{
				LayoutPositionsKey: map[string]any{
					"trigger-0": map[string]any{"x": 40.0, "y": 60.0},
				},
			},
		},
		Actions: []Action{{Kind: "x", Config: map[string]any{}}},
	}

	g := RuleToGraph(rule)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, Position{X: 40, Y: 60}, g.Nodes[0].Position)
	assert.NotEqual(t, g.Nodes[0].Position, g.Nodes[1].Position,
		"node without a remembered position falls to the default grid")
}

// TestRoundTrip_NilActionConfig: an action saved without config comes back
// without config, keeping the round trip exact rather than materializing an
// empty map.
func TestRoundTrip_NilActionConfig(t *testing.T) {
	rule := &Rule{
		Name:    "bare",
		Trigger: TriggerRef{Kind: "t"},
		Actions: []Action{{Kind: "archive_record"}},
	}

	g := RuleToGraph(rule)
	out := GraphToRule(&g, rule)

	require.Len(t, out.Actions, 1)
	assert.Nil(t, out.Actions[0].Config)
	assert.Equal(t, rule.Actions, out.Actions)
}

// TestNormalizeToMinutes covers the wait duration table.
func TestNormalizeToMinutes(t *testing.T) {
	assert.Equal(t, 120, NormalizeToMinutes(2, "hours"))
	assert.Equal(t, 1440, NormalizeToMinutes(1, "days"))
	assert.Equal(t, 7, NormalizeToMinutes(7, "minutes"))
	assert.Equal(t, 30, NormalizeToMinutes(30, ""), "unset unit passes through")
	assert.Equal(t, 5, NormalizeToMinutes(0, "minutes"), "zero amount falls back to the default")
	assert.Equal(t, 5, NormalizeToMinutes(nil, "hours"), "missing amount falls back to the default")
	assert.Equal(t, 90, NormalizeToMinutes(float64(90), "seconds"), "unknown unit passes through")
}

// TestGraphToRule_ScheduledWait checks that a scheduled wait carries no
// derived minutes at all.
func TestGraphToRule_ScheduledWait(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{ID: "trigger-0", Type: NodeTrigger, Data: map[string]any{"kind": "t"}},
			{ID: "wait-0", Type: NodeWait, Data: map[string]any{
				"mode": WaitModeScheduled, "date": "2025-01-10", "time": "09:00",
			}},
		},
	}

	out := GraphToRule(&g, &Rule{Trigger: TriggerRef{Kind: "t"}})
	require.Len(t, out.Actions, 1)
	cfg := out.Actions[0].Config
	assert.Equal(t, WaitModeScheduled, cfg["mode"])
	assert.Equal(t, "2025-01-10", cfg["date"])
	assert.NotContains(t, cfg, "minutes")
}

// TestGraphToRule_LegacyCondition checks the backward-compat read of the old
// single-rule condition payload.
func TestGraphToRule_LegacyCondition(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{ID: "trigger-0", Type: NodeTrigger, Data: map[string]any{"kind": "t"}},
			{ID: "condition-0", Type: NodeCondition, Data: map[string]any{
				"field": "value", "operator": "greater_than", "value": "100",
			}},
		},
	}

	out := GraphToRule(&g, &Rule{Trigger: TriggerRef{Kind: "t"}})
	require.Len(t, out.Conditions, 1)
	assert.Equal(t, Condition{Field: "value", Operator: OpGreaterThan, Value: "100"}, out.Conditions[0])
}

// TestGraphToRule_FirstRulePromotion documents the known truncation: only the
// first AND-rule of a condition node survives flattening.
func TestGraphToRule_FirstRulePromotion(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{ID: "trigger-0", Type: NodeTrigger, Data: map[string]any{"kind": "t"}},
			{ID: "condition-0", Type: NodeCondition, Data: map[string]any{
				"rules": []any{
					map[string]any{"field": "a", "operator": "equals", "value": "1"},
					map[string]any{"field": "b", "operator": "equals", "value": "2"},
				},
			}},
		},
	}

	out := GraphToRule(&g, &Rule{Trigger: TriggerRef{Kind: "t"}})
	require.Len(t, out.Conditions, 1)
	assert.Equal(t, "a", out.Conditions[0].Field)
}

// TestGraphToRule_UnconfiguredConditionOmitted pins the documented contract:
// a condition node whose rules are still empty has no flat-schema
// representation and does not serialize.
func TestGraphToRule_UnconfiguredConditionOmitted(t *testing.T) {
	e := NewEditor(RuleToGraph(&Rule{Trigger: TriggerRef{Kind: "t"}}))
	e.AddChained(NodeCondition, nil) // default data, rules still empty

	out := GraphToRule(e.Graph(), &Rule{Trigger: TriggerRef{Kind: "t"}})
	assert.Empty(t, out.Conditions)

	e.UpdateNodeData(e.Graph().Nodes[1].ID, map[string]any{
		"rules": []any{map[string]any{"field": "a", "operator": "equals", "value": "1"}},
	})
	out = GraphToRule(e.Graph(), &Rule{Trigger: TriggerRef{Kind: "t"}})
	require.Len(t, out.Conditions, 1, "the node serializes once it has a rule")
}

// TestGraphToRule_BucketOrder verifies the fixed concatenation order of the
// action list: plain actions, then waits, then validates, regardless of
// canvas topology.
func TestGraphToRule_BucketOrder(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{ID: "trigger-0", Type: NodeTrigger, Data: map[string]any{"kind": "t"}},
			{ID: "validate-0", Type: NodeValidate, Data: map[string]any{"rules": []any{}}},
			{ID: "wait-1", Type: NodeWait, Data: map[string]any{"mode": WaitModeRelative, "amount": 1, "unit": "minutes"}},
			{ID: "action-2", Type: NodeAction, Data: map[string]any{"kind": "x", "config": map[string]any{}}},
		},
	}

	out := GraphToRule(&g, &Rule{Trigger: TriggerRef{Kind: "t"}})
	require.Len(t, out.Actions, 3)
	assert.Equal(t, "x", out.Actions[0].Kind)
	assert.Equal(t, ActionKindWait, out.Actions[1].Kind)
	assert.Equal(t, ActionKindValidate, out.Actions[2].Kind)
}

// TestGraphToRule_TriggerConfigPreserved checks that unrelated trigger config
// keys survive the layout merge and the trigger kind falls back to the
// previously known value when the node data is unset.
func TestGraphToRule_TriggerConfigPreserved(t *testing.T) {
	base := &Rule{Trigger: TriggerRef{
		Kind:   "opportunity_created",
		Config: map[string]any{"pipeline_id": "p1"},
	}}
	g := Graph{
		Nodes: []Node{
			{ID: "trigger-0", Type: NodeTrigger, Data: map[string]any{"kind": ""}},
		},
	}

	out := GraphToRule(&g, base)
	assert.Equal(t, "opportunity_created", out.Trigger.Kind)
	assert.Equal(t, "p1", out.Trigger.Config["pipeline_id"])
	assert.Contains(t, out.Trigger.Config, LayoutPositionsKey)
	assert.NotContains(t, base.Trigger.Config, LayoutPositionsKey,
		"the base rule is not mutated")
}
