// Package web provides the REST API for workflow management and triggering.
package web

import (
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/edupulse/pulseflow/pkg/engine"
	"github.com/edupulse/pulseflow/pkg/graph"
	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/persistence"
)

type APIHandlers struct {
	persistence persistence.Persistence
	engine      *engine.Engine
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	store persistence.Persistence,
	eng *engine.Engine,
	validate *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		persistence: store,
		engine:      eng,
		validator:   validate,
		logger:      logger.With("module", "api"),
	}
}

// RegisterRoutes mounts all API routes on the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.Health)

	app.Get("/workflows", h.GetWorkflows)
	app.Post("/workflows", h.CreateWorkflow)
	app.Get("/workflows/:id", h.GetWorkflow)
	app.Delete("/workflows/:id", h.DeleteWorkflow)
	app.Post("/workflows/:id/trigger", h.TriggerWorkflow)
	app.Get("/workflows/:id/executions", h.GetWorkflowExecutions)

	app.Get("/executions/:id", h.GetExecution)
}

func (h *APIHandlers) Health(c fiber.Ctx) error {
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.Workflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.persistence.WorkflowByID(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "workflow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var workflow models.Workflow
	if err := c.Bind().Body(&workflow); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&workflow); err != nil {
		return badRequest(c, err.Error())
	}

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	warnings, err := graph.Validate(&workflow)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.SaveWorkflow(c.Context(), &workflow); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"workflow": workflow,
		"warnings": warnings,
	})
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.persistence.DeleteWorkflow(c.Context(), c.Params("id")); err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "workflow not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// TriggerWorkflow runs the workflow's trigger gates against the request body
// and starts an execution when they pass. A gated-out trigger is a 409, not a
// failure.
func (h *APIHandlers) TriggerWorkflow(c fiber.Ctx) error {
	payload := make(map[string]any)

	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&payload); err != nil {
			return badRequest(c, "Invalid request body: "+err.Error())
		}
	}

	execution, err := h.engine.TriggerWorkflow(c.Context(), c.Params("id"), "api", payload)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrTriggerRejected):
			return conflict(c, err.Error())
		case persistence.IsWorkflowNotFound(err):
			return notFound(c, "workflow not found")
		default:
			return internalError(c, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	executions, err := h.persistence.Executions(c.Context(), c.Params("id"))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.persistence.ExecutionByID(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsExecutionNotFound(err) {
			return notFound(c, "execution not found")
		}

		return internalError(c, err)
	}

	return c.JSON(execution)
}
