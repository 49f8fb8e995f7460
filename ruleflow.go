package ruleflow

import "time"

// Operator is a comparison applied by a rule condition.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpIsEmpty     Operator = "is_empty"
	OpIsNotEmpty  Operator = "is_not_empty"
)

// IsValid reports whether the operator is one of the supported comparisons.
func (o Operator) IsValid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan,
		OpIsEmpty, OpIsNotEmpty:
		return true
	default:
		return false
	}
}

// LayoutPositionsKey is the reserved trigger-config key holding node canvas
// coordinates. It exists only so the editor can restore a user's layout across
// reloads; the execution engine must ignore it.
const LayoutPositionsKey = "layoutPositions"

// Action kinds with structural meaning to the editor. Any other kind is
// passed through opaquely.
const (
	ActionKindWait     = "wait"
	ActionKindValidate = "validate"
)

// Wait modes.
const (
	WaitModeRelative  = "relative"
	WaitModeScheduled = "scheduled"
)

// TriggerRef names the event kind that starts a rule, plus its opaque
// configuration. Config is never interpreted by this package except for the
// reserved LayoutPositionsKey entry.
type TriggerRef struct {
	Kind   string         `json:"kind"`
	Config map[string]any `json:"config"`
}

// Condition is one AND-ed predicate gating rule execution.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
}

// Action is one step performed when a rule fires. "wait" and "validate" kinds
// carry structured config the serializer understands; everything else is
// opaque to the editor.
type Action struct {
	Kind   string         `json:"kind"`
	Config map[string]any `json:"config"`
}

// ValidationRule is one AND-ed check a "validate" action applies to the most
// recent inbound message content.
type ValidationRule struct {
	Operator    string `json:"operator"`
	ContentType string `json:"contentType,omitempty"`
	Value       string `json:"value,omitempty"`
	Min         *int   `json:"min,omitempty"`
	Max         *int   `json:"max,omitempty"`
}

// RuleStats carries execution counters maintained by the engine. The editor
// reads them for display only.
type RuleStats struct {
	Runs      int64 `json:"runs"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// Rule is the persisted automation: one trigger, an AND-list of conditions,
// and an ordered action sequence. It is the only durable entity; the editor
// graph is reconstructed from it on every load.
type Rule struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Active      bool        `json:"active"`
	Trigger     TriggerRef  `json:"trigger"`
	Conditions  []Condition `json:"conditions"`
	Actions     []Action    `json:"actions"`
	Stats       RuleStats   `json:"stats"`
	CreatedAt   time.Time   `json:"created_at,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at,omitempty"`
	DeletedAt   *time.Time  `json:"deleted_at,omitempty"`
}

// Clone returns a deep copy of the rule.
func (r *Rule) Clone() *Rule {
	out := *r
	out.Trigger.Config = cloneMap(r.Trigger.Config)
	out.Conditions = make([]Condition, len(r.Conditions))
	copy(out.Conditions, r.Conditions)
	out.Actions = make([]Action, len(r.Actions))
	for i, a := range r.Actions {
		out.Actions[i] = Action{Kind: a.Kind, Config: cloneMap(a.Config)}
	}
	return &out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// LogStatus is the outcome of one rule execution.
type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogError   LogStatus = "error"
	LogRunning LogStatus = "running"
	LogSkipped LogStatus = "skipped"
)

// ActionResult records the outcome of a single action within an execution.
type ActionResult struct {
	Kind   string    `json:"kind"`
	Status LogStatus `json:"status"`
}

// ExecutionLog is one engine-produced execution record. The editor only reads
// these for the history view.
type ExecutionLog struct {
	ID              string         `json:"id"`
	RuleID          string         `json:"rule_id"`
	Status          LogStatus      `json:"status"`
	TriggerKind     string         `json:"trigger_kind"`
	DurationMs      *int64         `json:"duration_ms,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	ActionsExecuted []ActionResult `json:"actions_executed,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}
