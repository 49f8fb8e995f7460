package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/ruleflow"
)

// ListExecutionLogs returns a rule's execution history, newest first. Logs
// are written by the execution engine; the editor only reads them.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListExecutionLogs(ctx context.Context, ruleID string) ([]ruleflow.ExecutionLog, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, rule_id, status, trigger_kind, duration_ms, error_message, actions_executed, created_at
		 FROM execution_logs WHERE rule_id = $1 ORDER BY created_at DESC`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("ruleflow: list logs: %w", err)
	}
	defer rows.Close()

	logs := []ruleflow.ExecutionLog{}
	for rows.Next() {
		var l ruleflow.ExecutionLog
		var actions []byte
		if err := rows.Scan(&l.ID, &l.RuleID, &l.Status, &l.TriggerKind,
			&l.DurationMs, &l.ErrorMessage, &actions, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("ruleflow: scan log: %w", err)
		}
		if err := json.Unmarshal(actions, &l.ActionsExecuted); err != nil {
			return nil, fmt.Errorf("ruleflow: unmarshal log actions: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ruleflow: rows logs: %w", err)
	}

	return logs, nil
}
