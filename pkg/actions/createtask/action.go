// Package createtask provides the task creation action.
package createtask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/protocol"
	"github.com/edupulse/pulseflow/pkg/template"
)

// ErrTitleMissing is returned when the task title is absent.
var ErrTitleMissing = errors.New("task title is required")

// Action creates a work item in the surrounding task system.
type Action struct {
	Title       string
	Description string
	AssigneeID  string
	DueInHours  int

	tasks protocol.TaskService
}

func NewAction(config map[string]any, tasks protocol.TaskService) (*Action, error) {
	title, _ := config["title"].(string)
	if title == "" {
		return nil, ErrTitleMissing
	}

	description, _ := config["description"].(string)
	assigneeID, _ := config["assignee_id"].(string)

	dueInHours := 0
	if raw, ok := config["due_in_hours"].(float64); ok {
		dueInHours = int(raw)
	}

	return &Action{
		Title:       title,
		Description: description,
		AssigneeID:  assigneeID,
		DueInHours:  dueInHours,
		tasks:       tasks,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "createtask_action")

	task := protocol.Task{
		OrgID:       executionCtx.OrgID,
		Title:       template.RenderString(a.Title, executionCtx.Data),
		Description: template.RenderString(a.Description, executionCtx.Data),
		AssigneeID:  template.RenderString(a.AssigneeID, executionCtx.Data),
		DueInHours:  a.DueInHours,
	}

	taskID, err := a.tasks.CreateTask(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	logger.InfoContext(ctx, "Task created", "task_id", taskID)

	return map[string]any{
		"task_id":     taskID,
		"title":       task.Title,
		"assignee_id": task.AssigneeID,
	}, nil
}
