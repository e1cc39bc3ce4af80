// Package triggerworkflow provides the action that fires another workflow.
package triggerworkflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/protocol"
	"github.com/edupulse/pulseflow/pkg/template"
)

// ErrWorkflowIDMissing is returned when workflow_id is absent.
var ErrWorkflowIDMissing = errors.New("workflow_id is required")

// Action enqueues an independent run of another workflow. The run gets its own
// execution record and audit trail; this action succeeds once the request is
// enqueued, regardless of how the child run ends.
type Action struct {
	WorkflowID string
	Payload    map[string]any

	enqueuer protocol.WorkflowEnqueuer
}

func NewAction(config map[string]any, enqueuer protocol.WorkflowEnqueuer) (*Action, error) {
	workflowID, _ := config["workflow_id"].(string)
	if workflowID == "" {
		return nil, ErrWorkflowIDMissing
	}

	payload, _ := config["payload"].(map[string]any)

	return &Action{
		WorkflowID: workflowID,
		Payload:    payload,
		enqueuer:   enqueuer,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "triggerworkflow_action", "target_workflow_id", a.WorkflowID)

	payload := template.RenderConfig(a.Payload, executionCtx.Data)
	payload["parent_workflow_id"] = executionCtx.WorkflowID
	payload["parent_execution_id"] = executionCtx.ExecutionID

	triggeredBy := "workflow:" + executionCtx.WorkflowID

	if err := a.enqueuer.EnqueueWorkflow(ctx, a.WorkflowID, triggeredBy, payload); err != nil {
		return nil, fmt.Errorf("failed to enqueue workflow %s: %w", a.WorkflowID, err)
	}

	logger.InfoContext(ctx, "Workflow run enqueued")

	return map[string]any{
		"workflow_id":  a.WorkflowID,
		"triggered_by": triggeredBy,
	}, nil
}
