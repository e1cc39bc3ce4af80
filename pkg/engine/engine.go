// Package engine executes workflow graphs: it gates incoming triggers,
// traverses nodes, suspends on delays and keeps the per-execution audit trail.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/edupulse/pulseflow/pkg/conditions"
	"github.com/edupulse/pulseflow/pkg/eventbus"
	"github.com/edupulse/pulseflow/pkg/events"
	"github.com/edupulse/pulseflow/pkg/graph"
	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/otelhelper"
	"github.com/edupulse/pulseflow/pkg/persistence"
	"github.com/edupulse/pulseflow/pkg/registry"
)

// ErrTriggerRejected is returned by TriggerWorkflow when a trigger gate
// (inactive workflow, cooldown, daily limit, trigger conditions) rejects the
// event. Rejection is a normal outcome, not a failure.
var ErrTriggerRejected = errors.New("trigger rejected")

// Resumer schedules a durable wakeup for a waiting execution.
type Resumer interface {
	Schedule(ctx context.Context, executionID, nodeID string, resumeAt time.Time) error
}

// Engine runs workflows against a persistence backend. All entry points are
// safe for concurrent use; per-execution state lives in the Execution record,
// never in the engine.
type Engine struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	resumer     Resumer
	bus         eventbus.EventPublisher
	logger      *slog.Logger
	tracer      trace.Tracer
	workerID    string
}

type Config struct {
	Persistence persistence.Persistence
	Registry    *registry.Registry
	Resumer     Resumer
	EventBus    eventbus.EventPublisher
	Logger      *slog.Logger
	Tracer      trace.Tracer
	WorkerID    string
}

func NewEngine(cfg Config) *Engine {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("engine")
	}

	return &Engine{
		persistence: cfg.Persistence,
		registry:    cfg.Registry,
		resumer:     cfg.Resumer,
		bus:         cfg.EventBus,
		logger:      cfg.Logger.With("module", "engine"),
		tracer:      tracer,
		workerID:    cfg.WorkerID,
	}
}

// ShouldTrigger evaluates the trigger gates in order: active flag, cooldown,
// daily limit, trigger conditions. It reads only its arguments, so callers can
// probe without side effects; acceptance bookkeeping happens in RecordTrigger.
func (e *Engine) ShouldTrigger(workflow *models.Workflow, now time.Time, data map[string]any) (bool, string) {
	if !workflow.Active {
		return false, "workflow inactive"
	}

	if workflow.InCooldown(now) {
		return false, "cooldown active"
	}

	if workflow.DailyLimitReached(now) {
		return false, "daily limit reached"
	}

	if !conditions.Evaluate(workflow.TriggerConfig.Conditions, workflow.TriggerConfig.Logic, data) {
		return false, "trigger conditions not met"
	}

	return true, ""
}

// TriggerWorkflow runs a workflow after its trigger gates pass. The cooldown
// and daily-limit check is repeated atomically by the persistence layer, so
// concurrent triggers cannot both claim the last slot of a limit. A gated-out
// trigger returns an error wrapping ErrTriggerRejected.
func (e *Engine) TriggerWorkflow(
	ctx context.Context,
	workflowID, triggeredBy string,
	payload map[string]any,
) (*models.Execution, error) {
	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	now := time.Now().UTC()

	ok, reason := e.ShouldTrigger(workflow, now, payload)
	if !ok {
		e.logger.InfoContext(ctx, "Trigger rejected",
			"workflow_id", workflowID, "triggered_by", triggeredBy, "reason", reason)

		return nil, fmt.Errorf("%w: %s", ErrTriggerRejected, reason)
	}

	accepted, err := e.persistence.RecordTrigger(ctx, workflowID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record trigger for workflow %s: %w", workflowID, err)
	}

	if !accepted {
		e.logger.InfoContext(ctx, "Trigger rejected by atomic re-check",
			"workflow_id", workflowID, "triggered_by", triggeredBy)

		return nil, fmt.Errorf("%w: rate limit claimed concurrently", ErrTriggerRejected)
	}

	return e.start(ctx, workflow, triggeredBy, payload)
}

// RunWorkflow starts a workflow without the trigger gates. Used for runs the
// caller already decided should happen: sub-workflow dispatch and run-request
// events from the bus.
func (e *Engine) RunWorkflow(
	ctx context.Context,
	workflowID, triggeredBy string,
	payload map[string]any,
) (*models.Execution, error) {
	workflow, err := e.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	return e.start(ctx, workflow, triggeredBy, payload)
}

func (e *Engine) start(
	ctx context.Context,
	workflow *models.Workflow,
	triggeredBy string,
	payload map[string]any,
) (*models.Execution, error) {
	g, err := graph.New(workflow)
	if err != nil {
		return nil, fmt.Errorf("workflow %s has an invalid graph: %w", workflow.ID, err)
	}

	execution := newExecution(workflow, triggeredBy, payload)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.TriggeredByKey, triggeredBy),
	)
	defer span.End()

	if err := e.persistence.SaveExecution(ctx, execution); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to persist execution: %w", err)
	}

	e.publish(ctx, events.ExecutionStarted{
		BaseEvent:    e.baseEvent(events.ExecutionStartedEvent, workflow.ID),
		ExecutionID:  execution.ID,
		WorkflowName: workflow.Name,
		TriggeredBy:  triggeredBy,
		TriggerData:  execution.TriggerData,
	})

	e.logger.InfoContext(ctx, "Execution started",
		"workflow_id", workflow.ID, "execution_id", execution.ID, "triggered_by", triggeredBy)

	if err := e.run(ctx, workflow, g, execution, []*models.Node{g.EntryNode()}); err != nil {
		otelhelper.SetError(span, err)

		return execution, err
	}

	return execution, nil
}

func newExecution(workflow *models.Workflow, triggeredBy string, payload map[string]any) *models.Execution {
	triggerData := make(map[string]any, len(payload))
	execContext := make(map[string]any, len(payload))

	for k, v := range payload {
		triggerData[k] = v
		execContext[k] = v
	}

	return &models.Execution{
		ID:          uuid.New().String(),
		WorkflowID:  workflow.ID,
		OrgID:       workflow.OrgID,
		Status:      models.ExecutionStatusRunning,
		TriggeredBy: triggeredBy,
		TriggerData: triggerData,
		Context:     execContext,
		NodeResults: []models.NodeResult{},
		StartedAt:   time.Now().UTC(),
	}
}

// EnqueueWorkflow publishes a run request on the event bus; a worker picks it
// up and starts the run without trigger gates. Implements
// protocol.WorkflowEnqueuer.
func (e *Engine) EnqueueWorkflow(ctx context.Context, workflowID, triggeredBy string, payload map[string]any) error {
	if e.bus == nil {
		return errors.New("no event bus configured for workflow enqueueing")
	}

	return e.bus.Publish(ctx, workflowID, events.WorkflowRunRequested{
		BaseEvent:   e.baseEvent(events.WorkflowRunRequestedEvent, workflowID),
		TriggeredBy: triggeredBy,
		Payload:     payload,
	})
}

func (e *Engine) baseEvent(eventType events.EventType, workflowID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, workflowID)
	base.WorkerID = e.workerID

	return base
}

// publish is best-effort: event delivery never fails an execution.
func (e *Engine) publish(ctx context.Context, event eventbus.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, string(event.GetType()), event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
