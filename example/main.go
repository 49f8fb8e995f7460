package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/ruleflow"
	"github.com/meikuraledutech/ruleflow/postgres"
)

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	// Wire up the postgres implementation behind the Store interface.
	var store ruleflow.Store = postgres.New(pool)

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Create a rule with the step-form wizard ───────────────────────
	w := ruleflow.NewWizard()
	w.SetInfo("Notify on new opportunity", "Ping the team when a deal lands in stage S1")
	w.Next()
	w.SetTrigger("opportunity_created", nil)
	w.Next()
	w.AddCondition(ruleflow.Condition{Field: "stage_id", Operator: ruleflow.OpEquals, Value: "S1"})
	w.Next()
	w.AddAction(ruleflow.Action{Kind: "wait", Config: map[string]any{
		"mode": "relative", "amount": 2, "unit": "hours",
	}})
	w.AddAction(ruleflow.Action{Kind: "create_notification", Config: map[string]any{
		"title": "New opportunity in S1",
	}})
	w.SetActive(true)

	rule, err := w.Rule()
	if err != nil {
		log.Fatalf("assemble rule: %v", err)
	}

	created, err := store.CreateRule(ctx, rule)
	if err != nil {
		log.Fatalf("create rule: %v", err)
	}
	fmt.Println("rule created:")
	printJSON(created)

	// ── Load it onto the canvas ───────────────────────────────────────
	graph := ruleflow.RuleToGraph(created)
	fmt.Printf("\ngraph: %d nodes, %d edges\n", len(graph.Nodes), len(graph.Edges))

	// ── Edit with autosave running ────────────────────────────────────
	editor := ruleflow.NewEditor(graph)
	saver := ruleflow.NewAutosaver(store, 500*time.Millisecond)
	saver.Track(created, editor)
	defer saver.Close()

	saver.GraphChanged() // initial render, swallowed

	condID := "condition-0"
	editor.Select(condID)
	editor.UpdateNodeData(condID, map[string]any{
		"rules": []any{map[string]any{
			"field": "amount", "operator": "greater_than", "value": 1000,
		}},
	})
	saver.GraphChanged()

	actID := editor.AddFromSource(ruleflow.NodeAction, condID, ruleflow.BranchNo)
	editor.UpdateNodeData(actID, map[string]any{
		"kind":   "create_notification",
		"config": map[string]any{"title": "Deal below threshold"},
	})
	saver.GraphChanged()

	// Let the debounce fire once for the whole burst.
	time.Sleep(time.Second)

	reloaded, err := store.GetRule(ctx, created.ID)
	if err != nil {
		log.Fatalf("reload: %v", err)
	}
	fmt.Println("\nrule after autosave:")
	printJSON(reloaded)

	// ── Execution history (written by the engine, read here) ──────────
	logs, err := store.ListExecutionLogs(ctx, created.ID)
	if err != nil {
		log.Fatalf("logs: %v", err)
	}
	fmt.Printf("\nexecutions: %d\n", len(logs))

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := store.DeleteRule(ctx, created.ID); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("rule deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
