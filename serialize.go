package ruleflow

import "fmt"

// TriggerNodeID is the fixed id of the single trigger node every generated
// graph starts with.
const TriggerNodeID = "trigger-0"

// RuleToGraph expands a rule into a canvas graph: trigger, then the condition
// chain, then the action sequence, each node linked to the previous one. Node
// positions come from the rule's remembered layout when present, otherwise
// from a default vertical stack. The expansion is deterministic and
// side-effect-free; ids are positional ("{type}-{i}").
//
// The edge leaving the last condition into the action chain is tagged with
// the affirmative "yes" branch; no other generated edge carries a branch.
func RuleToGraph(r *Rule) Graph {
	positions := decodePositions(r.Trigger.Config[LayoutPositionsKey])

	var g Graph
	emitted := 0
	edgeSeq := 0

	place := func(id string) Position {
		p, ok := positions[id]
		if !ok {
			p = Position{X: defaultNodeX, Y: defaultNodeY + float64(emitted)*nodeGapY}
		}
		emitted++
		return p
	}

	g.Nodes = append(g.Nodes, Node{
		ID:       TriggerNodeID,
		Type:     NodeTrigger,
		Position: place(TriggerNodeID),
		Data:     map[string]any{"kind": r.Trigger.Kind},
	})
	prev := TriggerNodeID
	prevType := NodeTrigger

	link := func(target string) {
		edge := Edge{
			ID:       fmt.Sprintf("edge-%d", edgeSeq),
			SourceID: prev,
			TargetID: target,
		}
		if prevType == NodeCondition {
			edge.SourceBranch = BranchYes
		}
		edgeSeq++
		g.Edges = append(g.Edges, edge)
	}

	for i, c := range r.Conditions {
		id := fmt.Sprintf("condition-%d", i)
		rule := map[string]any{"field": c.Field, "operator": string(c.Operator)}
		if c.Value != nil {
			rule["value"] = c.Value
		}
		node := Node{
			ID:       id,
			Type:     NodeCondition,
			Position: place(id),
			Data:     map[string]any{"rules": []any{rule}},
		}
		g.Nodes = append(g.Nodes, node)
		// Chain edges between conditions stay untagged; only the hop into
		// the action chain uses the affirmative branch.
		g.Edges = append(g.Edges, Edge{
			ID:       fmt.Sprintf("edge-%d", edgeSeq),
			SourceID: prev,
			TargetID: id,
		})
		edgeSeq++
		prev, prevType = id, NodeCondition
	}

	for i, a := range r.Actions {
		t := actionNodeType(a.Kind)
		id := fmt.Sprintf("%s-%d", t, i)
		node := Node{
			ID:       id,
			Type:     t,
			Position: place(id),
			Data:     actionNodeData(t, a),
		}
		g.Nodes = append(g.Nodes, node)
		link(id)
		prev, prevType = id, t
	}

	return g
}

// actionNodeType maps an action kind to its concrete node type.
func actionNodeType(kind string) NodeType {
	switch kind {
	case ActionKindValidate:
		return NodeValidate
	case ActionKindWait:
		return NodeWait
	default:
		return NodeAction
	}
}

// actionNodeData extracts the node payload for one persisted action.
func actionNodeData(t NodeType, a Action) map[string]any {
	switch t {
	case NodeWait:
		data := map[string]any{}
		for _, k := range []string{"mode", "amount", "unit", "date", "time"} {
			if v, ok := a.Config[k]; ok {
				data[k] = v
			}
		}
		return data
	case NodeValidate:
		rules, ok := a.Config["rules"]
		if !ok {
			rules = []any{}
		}
		return map[string]any{"rules": rules}
	default:
		// A nil config stays absent so the round trip reproduces the rule
		// exactly instead of materializing an empty map.
		data := map[string]any{"kind": a.Kind}
		if a.Config != nil {
			data["config"] = a.Config
		}
		return data
	}
}

// GraphToRule flattens the canvas back into the rule schema. It does not walk
// edges: nodes are bucketed by type and emitted in bucket order, so only a
// single linear path with one AND chain of conditions feeding one action
// sequence is faithfully represented. Branchier topology collapses to "all
// actions, in bucket order" — the documented supported subset.
//
// base supplies the fields the graph does not own (id, name, previous trigger
// config); the result is a copy of base with trigger config, conditions and
// actions replaced. Current node positions are captured into the trigger
// config's layout side-channel so a reload restores the user's arrangement.
//
// A condition node with no rules yet has no flat-schema representation (a
// condition entry requires an operator) and is omitted: freshly added
// condition nodes stay transient until the user fills in a rule.
func GraphToRule(g *Graph, base *Rule) *Rule {
	out := base.Clone()

	positions := make(map[string]Position, len(g.Nodes))
	for _, n := range g.Nodes {
		positions[n.ID] = n.Position
	}

	cfg := cloneMap(base.Trigger.Config)
	if cfg == nil {
		cfg = map[string]any{}
	}
	cfg[LayoutPositionsKey] = positions
	out.Trigger.Config = cfg

	if tn := g.Trigger(); tn != nil {
		if kind, ok := tn.Data["kind"].(string); ok && kind != "" {
			out.Trigger.Kind = kind
		}
	}

	out.Conditions = nil
	out.Actions = nil

	var waits, validates []Node
	for _, n := range g.Nodes {
		switch n.Type {
		case NodeCondition:
			rules := conditionRules(n.Data)
			if len(rules) == 0 {
				continue
			}
			// Only the first AND-rule survives flattening; the flat schema has
			// one predicate per condition entry.
			out.Conditions = append(out.Conditions, rules[0])
		case NodeAction:
			out.Actions = append(out.Actions, plainAction(n.Data))
		case NodeWait:
			waits = append(waits, n)
		case NodeValidate:
			validates = append(validates, n)
		}
	}
	for _, n := range waits {
		out.Actions = append(out.Actions, waitAction(n.Data))
	}
	for _, n := range validates {
		rules, ok := n.Data["rules"]
		if !ok || rules == nil {
			rules = []any{}
		}
		out.Actions = append(out.Actions, Action{
			Kind:   ActionKindValidate,
			Config: map[string]any{"rules": rules},
		})
	}

	return out
}

// conditionRules reads a condition node's rule list, transparently upgrading
// the legacy single-rule shape (field/operator/value at the data root).
func conditionRules(data map[string]any) []Condition {
	if raw, ok := data["rules"]; ok {
		return decodeConditions(raw)
	}
	field, _ := data["field"].(string)
	op, _ := data["operator"].(string)
	if field == "" && op == "" {
		return nil
	}
	return []Condition{{Field: field, Operator: Operator(op), Value: data["value"]}}
}

func decodeConditions(raw any) []Condition {
	switch rules := raw.(type) {
	case []Condition:
		return rules
	case []any:
		out := make([]Condition, 0, len(rules))
		for _, r := range rules {
			m, ok := r.(map[string]any)
			if !ok {
				continue
			}
			field, _ := m["field"].(string)
			op, _ := m["operator"].(string)
			out = append(out, Condition{Field: field, Operator: Operator(op), Value: m["value"]})
		}
		return out
	case []map[string]any:
		out := make([]Condition, 0, len(rules))
		for _, m := range rules {
			field, _ := m["field"].(string)
			op, _ := m["operator"].(string)
			out = append(out, Condition{Field: field, Operator: Operator(op), Value: m["value"]})
		}
		return out
	default:
		return nil
	}
}

func plainAction(data map[string]any) Action {
	kind, _ := data["kind"].(string)
	cfg, _ := data["config"].(map[string]any)
	return Action{Kind: kind, Config: cfg}
}

// waitAction rebuilds a wait action from node data, recomputing the derived
// minutes field. Scheduled waits carry no minutes at all.
func waitAction(data map[string]any) Action {
	cfg := map[string]any{}
	for _, k := range []string{"mode", "amount", "unit", "date", "time"} {
		if v, ok := data[k]; ok {
			cfg[k] = v
		}
	}
	mode, _ := data["mode"].(string)
	if mode != WaitModeScheduled {
		unit, _ := data["unit"].(string)
		cfg["minutes"] = NormalizeToMinutes(data["amount"], unit)
	}
	return Action{Kind: ActionKindWait, Config: cfg}
}

// NormalizeToMinutes converts a relative wait duration to whole minutes:
// hours scale by 60, days by 1440, anything else passes through. A missing or
// zero amount falls back to 5 minutes.
func NormalizeToMinutes(amount any, unit string) int {
	n := toInt(amount)
	if n == 0 {
		return 5
	}
	switch unit {
	case "hours":
		return n * 60
	case "days":
		return n * 1440
	default:
		return n
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}

// decodePositions reads the layout side-channel, tolerating both the
// in-memory shape written by GraphToRule and the generic map shape produced
// by a JSON round-trip through the store.
func decodePositions(raw any) map[string]Position {
	switch m := raw.(type) {
	case map[string]Position:
		return m
	case map[string]any:
		out := make(map[string]Position, len(m))
		for id, v := range m {
			switch p := v.(type) {
			case Position:
				out[id] = p
			case map[string]any:
				x, _ := p["x"].(float64)
				y, _ := p["y"].(float64)
				out[id] = Position{X: x, Y: y}
			}
		}
		return out
	default:
		return map[string]Position{}
	}
}
