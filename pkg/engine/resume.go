package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/edupulse/pulseflow/pkg/events"
	"github.com/edupulse/pulseflow/pkg/graph"
	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/otelhelper"
)

// ResumeExecution wakes a waiting execution and continues the traversal from
// the nodes downstream of the delay that suspended it. It is idempotent: an
// execution that is not waiting (already resumed, completed, failed or
// cancelled) is left untouched, so duplicate wakeup deliveries are harmless.
func (e *Engine) ResumeExecution(ctx context.Context, executionID, nodeID string) error {
	logger := e.logger.With("execution_id", executionID, "node_id", nodeID)

	execution, err := e.persistence.ExecutionByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to fetch execution %s: %w", executionID, err)
	}

	if execution.Status != models.ExecutionStatusWaiting {
		logger.InfoContext(ctx, "Execution not waiting, resume is a no-op", "status", execution.Status)

		return nil
	}

	workflow, err := e.persistence.WorkflowByID(ctx, execution.WorkflowID)
	if err != nil {
		return fmt.Errorf("failed to fetch workflow %s: %w", execution.WorkflowID, err)
	}

	g, err := graph.New(workflow)
	if err != nil {
		return fmt.Errorf("workflow %s has an invalid graph: %w", workflow.ID, err)
	}

	resumeNodeID := execution.CurrentNodeID
	if resumeNodeID == "" {
		resumeNodeID = nodeID
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.resume",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.NodeIDKey, resumeNodeID),
	)
	defer span.End()

	execution.Status = models.ExecutionStatusRunning
	execution.CurrentNodeID = ""
	execution.ResumeAt = nil

	if err := e.persistence.SaveExecution(ctx, execution); err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to persist resumed execution: %w", err)
	}

	e.publish(ctx, events.ExecutionResumed{
		BaseEvent:   e.baseEvent(events.ExecutionResumedEvent, workflow.ID),
		ExecutionID: execution.ID,
		NodeID:      resumeNodeID,
	})

	logger.InfoContext(ctx, "Execution resumed")

	if err := e.run(ctx, workflow, g, execution, g.NextNodes(resumeNodeID)); err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	return nil
}
