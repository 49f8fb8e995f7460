package ruleflow

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validate-action operators, applied to inbound message content.
const (
	CheckEquals      = "equals"
	CheckContains    = "contains"
	CheckNotContains = "not_contains"
	CheckStartsWith  = "starts_with"
	CheckEndsWith    = "ends_with"
	CheckRegex       = "regex"
	CheckLength      = "length"
)

// ValidationError is a user-facing rejection of the current edit. It never
// reaches the persistence layer; the save is refused before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ErrNoActions rejects activating a rule that would never do anything.
var ErrNoActions = &ValidationError{Field: "actions", Message: "an active rule needs at least one action"}

// ValidateRule checks a rule's shape before it is saved. Inactive drafts may
// have zero actions; activation requires at least one.
func ValidateRule(r *Rule) error {
	if strings.TrimSpace(r.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if r.Active && len(r.Actions) == 0 {
		return ErrNoActions
	}
	for i, c := range r.Conditions {
		if !c.Operator.IsValid() {
			return &ValidationError{
				Field:   fmt.Sprintf("conditions[%d].operator", i),
				Message: fmt.Sprintf("unknown operator %q", c.Operator),
			}
		}
	}
	for i, a := range r.Actions {
		if a.Kind == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("actions[%d].kind", i),
				Message: "action kind is required",
			}
		}
		if a.Kind != ActionKindValidate {
			continue
		}
		for j, vr := range decodeValidationRules(a.Config["rules"]) {
			if err := checkValidationRule(vr); err != nil {
				return &ValidationError{
					Field:   fmt.Sprintf("actions[%d].rules[%d]", i, j),
					Message: err.Error(),
				}
			}
		}
	}
	return nil
}

func checkValidationRule(vr ValidationRule) error {
	if vr.Operator == "" {
		return errors.New("operator is required")
	}
	if vr.Operator == CheckRegex {
		return SafePattern(vr.Value)
	}
	if vr.Operator == CheckLength && vr.Min == nil && vr.Max == nil {
		return errors.New("length check needs min or max")
	}
	return nil
}

func decodeValidationRules(raw any) []ValidationRule {
	switch rules := raw.(type) {
	case []ValidationRule:
		return rules
	case []any:
		out := make([]ValidationRule, 0, len(rules))
		for _, r := range rules {
			m, ok := r.(map[string]any)
			if !ok {
				continue
			}
			vr := ValidationRule{}
			vr.Operator, _ = m["operator"].(string)
			vr.ContentType, _ = m["contentType"].(string)
			vr.Value, _ = m["value"].(string)
			if v, ok := m["min"]; ok {
				n := toInt(v)
				vr.Min = &n
			}
			if v, ok := m["max"]; ok {
				n := toInt(v)
				vr.Max = &n
			}
			out = append(out, vr)
		}
		return out
	default:
		return nil
	}
}

// SafePattern rejects a user-supplied regular expression that is either
// syntactically invalid or shaped to backtrack catastrophically. Go's own
// matcher is RE2 and immune, but the pattern travels to the execution engine
// whose matcher may not be; this is a hard gate, not a warning.
func SafePattern(pattern string) error {
	if pattern == "" {
		return errors.New("regex pattern is required")
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	if hasNestedQuantifier(pattern) {
		return errors.New("regex pattern rejected: nested quantifiers can backtrack catastrophically")
	}
	return nil
}

// hasNestedQuantifier flags the (x+)+ family: a quantified group that is
// itself quantified. It scans for a group closing right after a quantifier
// and immediately followed by another one. Backslash-escaped bytes are
// literals, not quantifiers or group closers, and are skipped.
func hasNestedQuantifier(pattern string) bool {
	for i := 2; i < len(pattern); i++ {
		if pattern[i-1] != ')' || escapedAt(pattern, i-1) {
			continue
		}
		inner := pattern[i-2]
		if inner != '*' && inner != '+' && inner != '?' && inner != '}' {
			continue
		}
		if escapedAt(pattern, i-2) {
			continue
		}
		outer := pattern[i]
		if outer == '*' || outer == '+' || outer == '{' {
			return true
		}
	}
	return false
}

// escapedAt reports whether the byte at index i sits behind an odd run of
// backslashes, i.e. is an escaped literal.
func escapedAt(pattern string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && pattern[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}
