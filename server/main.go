package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/ruleflow"
	"github.com/meikuraledutech/ruleflow/postgres"
)

var validate = validator.New()

type createRuleRequest struct {
	Name        string               `json:"name" validate:"required"`
	Description string               `json:"description"`
	Active      bool                 `json:"active"`
	Trigger     ruleflow.TriggerRef  `json:"trigger"`
	Conditions  []ruleflow.Condition `json:"conditions"`
	Actions     []ruleflow.Action    `json:"actions"`
}

func main() {
	configPath := flag.String("config", "", "path to yaml config")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	var store ruleflow.Store = postgres.New(pool)

	app := fiber.New()
	app.Use(logger.New())
	app.Use(recoverer.New())

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := store.CreateSchema(c.Context()); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := store.DropSchema(c.Context()); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Rules ─────────────────────────────────────────────────────────
	app.Get("/rules", func(c fiber.Ctx) error {
		rules, err := store.ListRules(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(rules)
	})

	app.Post("/rules", func(c fiber.Ctx) error {
		var req createRuleRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		}
		rule := &ruleflow.Rule{
			Name:        req.Name,
			Description: req.Description,
			Active:      req.Active,
			Trigger:     req.Trigger,
			Conditions:  req.Conditions,
			Actions:     req.Actions,
		}
		if err := ruleflow.ValidateRule(rule); err != nil {
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		}
		created, err := store.CreateRule(c.Context(), rule)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(201).JSON(created)
	})

	app.Get("/rules/:id", func(c fiber.Ctx) error {
		rule, err := store.GetRule(c.Context(), c.Params("id"))
		if errors.Is(err, ruleflow.ErrRuleNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "rule not found"})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(rule)
	})

	app.Put("/rules/:id", func(c fiber.Ctx) error {
		var rule ruleflow.Rule
		if err := c.Bind().JSON(&rule); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		silent := fiber.Query[bool](c, "silent")
		if !silent {
			if err := ruleflow.ValidateRule(&rule); err != nil {
				return c.Status(422).JSON(fiber.Map{"error": err.Error()})
			}
		}
		updated, err := store.UpdateRule(c.Context(), c.Params("id"), &rule, silent)
		if errors.Is(err, ruleflow.ErrRuleNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "rule not found"})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(updated)
	})

	app.Delete("/rules/:id", func(c fiber.Ctx) error {
		if err := store.DeleteRule(c.Context(), c.Params("id")); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})

	// ── Graph ─────────────────────────────────────────────────────────
	app.Get("/rules/:id/graph", func(c fiber.Ctx) error {
		rule, err := store.GetRule(c.Context(), c.Params("id"))
		if errors.Is(err, ruleflow.ErrRuleNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "rule not found"})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(ruleflow.RuleToGraph(rule))
	})

	app.Put("/rules/:id/graph", func(c fiber.Ctx) error {
		var graph ruleflow.Graph
		if err := c.Bind().JSON(&graph); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		base, err := store.GetRule(c.Context(), c.Params("id"))
		if errors.Is(err, ruleflow.ErrRuleNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "rule not found"})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		rule := ruleflow.GraphToRule(&graph, base)
		silent := fiber.Query[bool](c, "silent")
		if !silent {
			if err := ruleflow.ValidateRule(rule); err != nil {
				return c.Status(422).JSON(fiber.Map{"error": err.Error()})
			}
		}
		updated, err := store.UpdateRule(c.Context(), c.Params("id"), rule, silent)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(updated)
	})

	// ── Execution history ─────────────────────────────────────────────
	app.Get("/rules/:id/logs", func(c fiber.Ctx) error {
		logs, err := store.ListExecutionLogs(c.Context(), c.Params("id"))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(logs)
	})

	log.Fatal(app.Listen(cfg.ListenAddr()))
}
