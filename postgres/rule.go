package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meikuraledutech/ruleflow"
)

const ruleColumns = `id, name, description, active, trigger_ref, conditions, actions, stats, created_at, updated_at`

// ListRules returns all non-deleted rules, oldest first.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListRules(ctx context.Context) ([]ruleflow.Rule, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+ruleColumns+` FROM automation_rules WHERE deleted_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("ruleflow: list rules: %w", err)
	}
	defer rows.Close()

	rules := []ruleflow.Rule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ruleflow: rows rules: %w", err)
	}

	return rules, nil
}

// GetRule fetches a single non-deleted rule by its ID.
// Returns ErrRuleNotFound if it doesn't exist.
func (s *PGStore) GetRule(ctx context.Context, ruleID string) (*ruleflow.Rule, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM automation_rules WHERE id = $1 AND deleted_at IS NULL`, ruleID)

	r, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ruleflow.ErrRuleNotFound
		}
		return nil, err
	}
	return r, nil
}

// CreateRule inserts a new rule. If r.ID is empty, a UUID is auto-generated.
// Returns the stored rule with timestamps filled in.
func (s *PGStore) CreateRule(ctx context.Context, r *ruleflow.Rule) (*ruleflow.Rule, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	trigger, conditions, actions, stats, err := marshalRule(r)
	if err != nil {
		return nil, err
	}

	var createdAt, updatedAt time.Time
	err = s.db.QueryRow(ctx,
		`INSERT INTO automation_rules (id, name, description, active, trigger_ref, conditions, actions, stats)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		r.ID, r.Name, r.Description, r.Active, trigger, conditions, actions, stats,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("ruleflow: insert rule %s: %w", r.ID, err)
	}

	out := r.Clone()
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return out, nil
}

// UpdateRule replaces a rule's editable fields. A silent update (background
// autosave) leaves updated_at untouched so the user-visible modified time
// only reflects explicit saves.
// Returns ErrRuleNotFound if the rule doesn't exist or was deleted.
func (s *PGStore) UpdateRule(ctx context.Context, ruleID string, r *ruleflow.Rule, silent bool) (*ruleflow.Rule, error) {
	trigger, conditions, actions, stats, err := marshalRule(r)
	if err != nil {
		return nil, err
	}

	query := `UPDATE automation_rules
		 SET name = $1, description = $2, active = $3, trigger_ref = $4, conditions = $5, actions = $6, stats = $7, updated_at = NOW()
		 WHERE id = $8 AND deleted_at IS NULL
		 RETURNING created_at, updated_at`
	if silent {
		query = `UPDATE automation_rules
		 SET name = $1, description = $2, active = $3, trigger_ref = $4, conditions = $5, actions = $6, stats = $7
		 WHERE id = $8 AND deleted_at IS NULL
		 RETURNING created_at, updated_at`
	}

	var createdAt, updatedAt time.Time
	err = s.db.QueryRow(ctx, query,
		r.Name, r.Description, r.Active, trigger, conditions, actions, stats, ruleID,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ruleflow.ErrRuleNotFound
		}
		return nil, fmt.Errorf("ruleflow: update rule %s: %w", ruleID, err)
	}

	out := r.Clone()
	out.ID = ruleID
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return out, nil
}

// DeleteRule soft-deletes a rule by stamping deleted_at. The row stays for
// execution history. No error if the rule doesn't exist.
func (s *PGStore) DeleteRule(ctx context.Context, ruleID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE automation_rules SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, ruleID)
	if err != nil {
		return fmt.Errorf("ruleflow: delete rule %s: %w", ruleID, err)
	}
	return nil
}

func marshalRule(r *ruleflow.Rule) (trigger, conditions, actions, stats []byte, err error) {
	if trigger, err = json.Marshal(r.Trigger); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("ruleflow: marshal trigger: %w", err)
	}
	c := r.Conditions
	if c == nil {
		c = []ruleflow.Condition{}
	}
	if conditions, err = json.Marshal(c); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("ruleflow: marshal conditions: %w", err)
	}
	a := r.Actions
	if a == nil {
		a = []ruleflow.Action{}
	}
	if actions, err = json.Marshal(a); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("ruleflow: marshal actions: %w", err)
	}
	if stats, err = json.Marshal(r.Stats); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("ruleflow: marshal stats: %w", err)
	}
	return trigger, conditions, actions, stats, nil
}

func scanRule(row pgx.Row) (*ruleflow.Rule, error) {
	var r ruleflow.Rule
	var trigger, conditions, actions, stats []byte
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Active,
		&trigger, &conditions, &actions, &stats, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("ruleflow: scan rule: %w", err)
	}
	if err := json.Unmarshal(trigger, &r.Trigger); err != nil {
		return nil, fmt.Errorf("ruleflow: unmarshal trigger: %w", err)
	}
	if err := json.Unmarshal(conditions, &r.Conditions); err != nil {
		return nil, fmt.Errorf("ruleflow: unmarshal conditions: %w", err)
	}
	if err := json.Unmarshal(actions, &r.Actions); err != nil {
		return nil, fmt.Errorf("ruleflow: unmarshal actions: %w", err)
	}
	if err := json.Unmarshal(stats, &r.Stats); err != nil {
		return nil, fmt.Errorf("ruleflow: unmarshal stats: %w", err)
	}
	return &r, nil
}
