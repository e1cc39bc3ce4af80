package createtask

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/pulseflow/pkg/mocks"
	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/protocol"
)

func TestNewAction(t *testing.T) {
	t.Run("requires_title", func(t *testing.T) {
		_, err := NewAction(map[string]any{}, &mocks.MockTaskService{})
		assert.ErrorIs(t, err, ErrTitleMissing)
	})

	t.Run("parses_due_in_hours", func(t *testing.T) {
		action, err := NewAction(map[string]any{
			"title":        "Call student",
			"due_in_hours": float64(48),
		}, &mocks.MockTaskService{})
		require.NoError(t, err)
		assert.Equal(t, 48, action.DueInHours)
	})
}

func TestExecute_CreatesTemplatedTask(t *testing.T) {
	tasks := &mocks.MockTaskService{}

	action, err := NewAction(map[string]any{
		"title":       "Check in with {{student.name}}",
		"description": "Risk level {{student.risk}}",
		"assignee_id": "{{advisor_id}}",
	}, tasks)
	require.NoError(t, err)

	executionCtx := models.ExecutionContext{
		OrgID: "org-1",
		Data: map[string]any{
			"advisor_id": "advisor-7",
			"student":    map[string]any{"name": "Jo", "risk": "high"},
		},
	}

	tasks.On("CreateTask", mock.Anything, protocol.Task{
		OrgID:       "org-1",
		Title:       "Check in with Jo",
		Description: "Risk level high",
		AssigneeID:  "advisor-7",
	}).Return("task-1", nil)

	details, err := action.Execute(context.Background(), executionCtx, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, "task-1", details["task_id"])
	assert.Equal(t, "Check in with Jo", details["title"])
	assert.Equal(t, "advisor-7", details["assignee_id"])
	tasks.AssertExpectations(t)
}
