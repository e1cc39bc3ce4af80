// Package assignresource provides the resource assignment action.
package assignresource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/protocol"
	"github.com/edupulse/pulseflow/pkg/template"
)

var (
	// ErrResourceMissing is returned when resource_id or resource_type is absent.
	ErrResourceMissing = errors.New("resource_id and resource_type are required")
	// ErrAssigneeMissing is returned when assignee_id is absent.
	ErrAssigneeMissing = errors.New("assignee_id is required")
)

// Action assigns a learning resource (course, tutor slot, material) to a user.
type Action struct {
	ResourceID   string
	ResourceType string
	AssigneeID   string

	tasks protocol.TaskService
}

func NewAction(config map[string]any, tasks protocol.TaskService) (*Action, error) {
	resourceID, _ := config["resource_id"].(string)
	resourceType, _ := config["resource_type"].(string)

	if resourceID == "" || resourceType == "" {
		return nil, ErrResourceMissing
	}

	assigneeID, _ := config["assignee_id"].(string)
	if assigneeID == "" {
		return nil, ErrAssigneeMissing
	}

	return &Action{
		ResourceID:   resourceID,
		ResourceType: resourceType,
		AssigneeID:   assigneeID,
		tasks:        tasks,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "assignresource_action")

	resourceID := template.RenderString(a.ResourceID, executionCtx.Data)
	assigneeID := template.RenderString(a.AssigneeID, executionCtx.Data)

	err := a.tasks.AssignResource(ctx, executionCtx.OrgID, a.ResourceType, resourceID, assigneeID)
	if err != nil {
		return nil, fmt.Errorf("failed to assign %s %s: %w", a.ResourceType, resourceID, err)
	}

	logger.InfoContext(ctx, "Resource assigned",
		"resource_type", a.ResourceType,
		"resource_id", resourceID,
		"assignee_id", assigneeID)

	return map[string]any{
		"resource_id":   resourceID,
		"resource_type": a.ResourceType,
		"assignee_id":   assigneeID,
	}, nil
}
