package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS automation_rules (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    active      BOOLEAN NOT NULL DEFAULT FALSE,
    trigger_ref JSONB NOT NULL DEFAULT '{}',
    conditions  JSONB NOT NULL DEFAULT '[]',
    actions     JSONB NOT NULL DEFAULT '[]',
    stats       JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    deleted_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS execution_logs (
    id               TEXT PRIMARY KEY,
    rule_id          TEXT NOT NULL REFERENCES automation_rules(id) ON DELETE CASCADE,
    status           TEXT NOT NULL,
    trigger_kind     TEXT NOT NULL DEFAULT '',
    duration_ms      BIGINT,
    error_message    TEXT NOT NULL DEFAULT '',
    actions_executed JSONB NOT NULL DEFAULT '[]',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_automation_rules_deleted ON automation_rules(deleted_at);
CREATE INDEX IF NOT EXISTS idx_execution_logs_rule_id   ON execution_logs(rule_id);
`

// CreateSchema creates the automation_rules and execution_logs tables if they
// don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the execution_logs and automation_rules tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS execution_logs, automation_rules CASCADE;`)
	return err
}
