package ruleflow

import (
	"context"
	"errors"
)

var ErrRuleNotFound = errors.New("ruleflow: rule not found")

// Store defines the contract for persisting and retrieving rules. The
// execution engine consumes the same records through its own access path;
// the editor only ever goes through this interface.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Rules
	ListRules(ctx context.Context) ([]Rule, error)
	GetRule(ctx context.Context, ruleID string) (*Rule, error)
	CreateRule(ctx context.Context, r *Rule) (*Rule, error)
	// UpdateRule replaces a rule's editable fields. A silent update is a
	// background autosave: it does not bump the user-visible modified time.
	UpdateRule(ctx context.Context, ruleID string, r *Rule, silent bool) (*Rule, error)
	// DeleteRule soft-deletes; the record stays around for execution history.
	DeleteRule(ctx context.Context, ruleID string) error

	// Execution history, written by the engine, read-only here.
	ListExecutionLogs(ctx context.Context, ruleID string) ([]ExecutionLog, error)
}
