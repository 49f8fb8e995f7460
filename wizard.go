package ruleflow

// WizardStep is one stage of the linear step-form editor.
type WizardStep int

const (
	StepInfo WizardStep = iota
	StepTrigger
	StepConditions
	StepActions
)

// Wizard is the non-graph editor: a linear wizard over the same rule schema
// the canvas produces. Any rule it writes is a valid RuleToGraph input, and
// it loads graph-produced rules losslessly, sharing the canvas's one-rule-
// per-condition flattening.
type Wizard struct {
	step WizardStep
	rule Rule
}

// NewWizard starts a blank wizard at the info step.
func NewWizard() *Wizard {
	return &Wizard{rule: Rule{Trigger: TriggerRef{Config: map[string]any{}}}}
}

// LoadWizard starts a wizard over an existing rule.
func LoadWizard(r *Rule) *Wizard {
	return &Wizard{rule: *r.Clone()}
}

// Step returns the current wizard stage.
func (w *Wizard) Step() WizardStep { return w.step }

// Next advances to the following step, stopping at actions.
func (w *Wizard) Next() {
	if w.step < StepActions {
		w.step++
	}
}

// Back returns to the previous step, stopping at info.
func (w *Wizard) Back() {
	if w.step > StepInfo {
		w.step--
	}
}

// SetInfo fills the basic-info step.
func (w *Wizard) SetInfo(name, description string) {
	w.rule.Name = name
	w.rule.Description = description
}

// SetTrigger fills the trigger step. The layout side-channel from a
// previously graph-edited rule is preserved across a trigger change.
func (w *Wizard) SetTrigger(kind string, config map[string]any) {
	layout, hadLayout := w.rule.Trigger.Config[LayoutPositionsKey]
	cfg := cloneMap(config)
	if cfg == nil {
		cfg = map[string]any{}
	}
	if hadLayout {
		if _, ok := cfg[LayoutPositionsKey]; !ok {
			cfg[LayoutPositionsKey] = layout
		}
	}
	w.rule.Trigger = TriggerRef{Kind: kind, Config: cfg}
}

// AddCondition appends one AND-ed condition.
func (w *Wizard) AddCondition(c Condition) {
	w.rule.Conditions = append(w.rule.Conditions, c)
}

// RemoveCondition deletes the condition at index i. Out-of-range is a no-op.
func (w *Wizard) RemoveCondition(i int) {
	if i < 0 || i >= len(w.rule.Conditions) {
		return
	}
	w.rule.Conditions = append(w.rule.Conditions[:i], w.rule.Conditions[i+1:]...)
}

// AddAction appends one action to the sequence. Wait actions get their
// derived minutes recomputed so wizard output matches serializer output.
func (w *Wizard) AddAction(a Action) {
	if a.Config == nil {
		a.Config = map[string]any{}
	}
	if a.Kind == ActionKindWait {
		mode, _ := a.Config["mode"].(string)
		if mode != WaitModeScheduled {
			unit, _ := a.Config["unit"].(string)
			a.Config["minutes"] = NormalizeToMinutes(a.Config["amount"], unit)
		} else {
			delete(a.Config, "minutes")
		}
	}
	w.rule.Actions = append(w.rule.Actions, a)
}

// RemoveAction deletes the action at index i. Out-of-range is a no-op.
func (w *Wizard) RemoveAction(i int) {
	if i < 0 || i >= len(w.rule.Actions) {
		return
	}
	w.rule.Actions = append(w.rule.Actions[:i], w.rule.Actions[i+1:]...)
}

// SetActive toggles the rule on or off.
func (w *Wizard) SetActive(active bool) {
	w.rule.Active = active
}

// Rule validates and returns the assembled rule.
func (w *Wizard) Rule() (*Rule, error) {
	r := w.rule.Clone()
	if err := ValidateRule(r); err != nil {
		return nil, err
	}
	return r, nil
}
