package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/edupulse/pulseflow/pkg/conditions"
	"github.com/edupulse/pulseflow/pkg/events"
	"github.com/edupulse/pulseflow/pkg/graph"
	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/otelhelper"
)

// maxTraversalIterations bounds a single traversal pass. Hitting the cap is
// treated as normal completion of a cyclic graph, not a failure.
const maxTraversalIterations = 100

// lastActionResultKey is the context key holding the most recent action output.
const lastActionResultKey = "last_action_result"

// nodeOutcome carries the audit payload and the next hops of one node. A
// non-empty failure marks the node's result failed without aborting the
// traversal pass; only engine-level errors abort.
type nodeOutcome struct {
	output  map[string]any
	failure string
	next    []*models.Node
	suspend bool
}

// run drains the traversal queue starting from startNodes. Each node executes
// at most once per pass; the stored execution status is re-checked before
// every node so an external cancellation stops the walk.
func (e *Engine) run(
	ctx context.Context,
	workflow *models.Workflow,
	g *graph.Graph,
	execution *models.Execution,
	startNodes []*models.Node,
) error {
	logger := e.logger.With("workflow_id", workflow.ID, "execution_id", execution.ID)

	queue := make([]*models.Node, 0, len(startNodes))
	queue = append(queue, startNodes...)

	// Visiting is scoped to this pass. Results from earlier passes stay in
	// the audit trail but do not block a retry loop that routes back through
	// an already-executed node after a delay.
	visited := make(map[string]bool)

	iterations := 0

	for len(queue) > 0 {
		if iterations >= maxTraversalIterations {
			logger.WarnContext(ctx, "Traversal iteration cap reached, completing execution",
				"cap", maxTraversalIterations)

			break
		}

		node := queue[0]
		queue = queue[1:]

		if node == nil || visited[node.ID] {
			continue
		}

		visited[node.ID] = true
		iterations++

		stored, err := e.persistence.ExecutionByID(ctx, execution.ID)
		if err != nil {
			return fmt.Errorf("failed to re-check execution %s: %w", execution.ID, err)
		}

		if stored.Status != models.ExecutionStatusRunning {
			logger.InfoContext(ctx, "Execution no longer running, stopping traversal",
				"status", stored.Status)

			return nil
		}

		outcome, err := e.executeNode(ctx, workflow, g, execution, node)
		if err != nil {
			return e.failExecution(ctx, execution, node, err)
		}

		if outcome.suspend {
			return nil
		}

		queue = append(queue, outcome.next...)
	}

	return e.completeExecution(ctx, execution)
}

func (e *Engine) executeNode(
	ctx context.Context,
	workflow *models.Workflow,
	g *graph.Graph,
	execution *models.Execution,
	node *models.Node,
) (outcome nodeOutcome, err error) {
	logger := e.logger.With(
		"workflow_id", workflow.ID,
		"execution_id", execution.ID,
		"node_id", node.ID,
		"node_type", node.Type,
	)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
	)
	defer span.End()

	started := time.Now().UTC()

	// A broken node payload must fail the execution, not the worker.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("node %s panicked: %v", node.ID, r)
			otelhelper.SetError(span, err)
		}
	}()

	logger.InfoContext(ctx, "Executing node")

	switch node.Type {
	case models.NodeTypeTrigger:
		outcome, err = e.runTriggerNode(g, node)
	case models.NodeTypeCondition:
		outcome, err = e.runConditionNode(g, execution, node)
	case models.NodeTypeAction:
		outcome, err = e.runActionNode(ctx, g, execution, node, logger)
	case models.NodeTypeDelay:
		outcome, err = e.runDelayNode(ctx, execution, node, logger)
	case models.NodeTypeBranch:
		outcome, err = e.runBranchNode(g, execution, node)
	case models.NodeTypeMerge:
		outcome = nodeOutcome{output: map[string]any{}, next: g.NextNodes(node.ID)}
	case models.NodeTypeSubworkflow:
		outcome, err = e.runSubworkflowNode(ctx, workflow, g, execution, node)
	default:
		err = fmt.Errorf("unknown node type %q on node %s", node.Type, node.ID)
	}

	if err != nil {
		otelhelper.SetError(span, err)

		return nodeOutcome{}, err
	}

	// Delay nodes record their own result before suspending.
	if !outcome.suspend {
		if err := e.recordNodeResult(ctx, execution, node, outcome, started); err != nil {
			return nodeOutcome{}, err
		}
	}

	return outcome, nil
}

func (e *Engine) runTriggerNode(g *graph.Graph, node *models.Node) (nodeOutcome, error) {
	data := node.TriggerData()

	return nodeOutcome{
		output: map[string]any{
			"trigger_type":   data.TriggerType,
			"conditions_met": true,
		},
		next: g.NextNodes(node.ID),
	}, nil
}

// runConditionNode annotates the audit trail with the evaluation result but
// never blocks traversal; authors gate paths with branch nodes.
func (e *Engine) runConditionNode(g *graph.Graph, execution *models.Execution, node *models.Node) (nodeOutcome, error) {
	data := node.ConditionData()
	result := conditions.Evaluate(data.Conditions, data.Logic, execution.Context)

	return nodeOutcome{
		output: map[string]any{"result": result},
		next:   g.NextNodes(node.ID),
	}, nil
}

func (e *Engine) runActionNode(
	ctx context.Context,
	g *graph.Graph,
	execution *models.Execution,
	node *models.Node,
	logger *slog.Logger,
) (nodeOutcome, error) {
	data := node.ActionData()

	config := make(map[string]any, len(data.Config)+2)
	for k, v := range data.Config {
		config[k] = v
	}

	config["_workflow_id"] = execution.WorkflowID
	config["_execution_id"] = execution.ID

	executionCtx := models.ExecutionContext{
		ExecutionID: execution.ID,
		WorkflowID:  execution.WorkflowID,
		OrgID:       execution.OrgID,
		Data:        execution.Context,
	}

	result := e.registry.Execute(ctx, data.ActionType, config, executionCtx, logger)
	if !result.Success {
		// A failed action is a recorded outcome, not an engine error.
		// Downstream nodes still run.
		return nodeOutcome{
			output:  result.Details,
			failure: fmt.Sprintf("action %s failed: %s", data.ActionType, result.Error),
			next:    g.NextNodes(node.ID),
		}, nil
	}

	if execution.Context == nil {
		execution.Context = make(map[string]any)
	}

	execution.Context[lastActionResultKey] = result.Details

	return nodeOutcome{output: result.Details, next: g.NextNodes(node.ID)}, nil
}

// runDelayNode suspends the execution: status goes to waiting, the wakeup is
// persisted through the resumer and the traversal pass ends. The delay node's
// audit entry is written here so resume can treat it as visited.
func (e *Engine) runDelayNode(
	ctx context.Context,
	execution *models.Execution,
	node *models.Node,
	logger *slog.Logger,
) (nodeOutcome, error) {
	if e.resumer == nil {
		return nodeOutcome{}, errors.New("delay node requires a resumer")
	}

	data := node.DelayData()
	resumeAt := time.Now().UTC().Add(data.ResumeDuration())

	execution.AppendNodeResult(models.NodeResult{
		NodeID: node.ID,
		Status: models.NodeResultSuccess,
		Output: map[string]any{
			"resume_at": resumeAt.Format(time.RFC3339),
			"duration":  data.Duration,
			"unit":      string(data.Unit),
		},
		Timestamp: time.Now().UTC(),
	})

	execution.Status = models.ExecutionStatusWaiting
	execution.CurrentNodeID = node.ID
	execution.ResumeAt = &resumeAt

	if err := e.persistence.SaveExecution(ctx, execution); err != nil {
		return nodeOutcome{}, fmt.Errorf("failed to suspend execution: %w", err)
	}

	if err := e.resumer.Schedule(ctx, execution.ID, node.ID, resumeAt); err != nil {
		return nodeOutcome{}, fmt.Errorf("failed to schedule wakeup: %w", err)
	}

	e.publish(ctx, events.ExecutionWaiting{
		BaseEvent:   e.baseEvent(events.ExecutionWaitingEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		NodeID:      node.ID,
		ResumeAt:    resumeAt,
	})

	logger.InfoContext(ctx, "Execution suspended", "resume_at", resumeAt)

	return nodeOutcome{suspend: true}, nil
}

// runBranchNode fires every branch whose predicate matches; the default branch
// fires only when none matched. With no matches at all, traversal falls back
// to the first outgoing edge so a miswired graph still makes progress.
func (e *Engine) runBranchNode(g *graph.Graph, execution *models.Execution, node *models.Node) (nodeOutcome, error) {
	data := node.BranchData()
	edges := g.OutgoingEdges(node.ID)

	matched := make([]string, 0, len(data.Branches))
	// Edges may address a branch by id or by positional index, so a matched
	// branch accepts either handle.
	handles := make(map[string]bool, len(data.Branches)*2)

	match := func(branch models.BranchSpec, index int) {
		matched = append(matched, branchHandle(branch, index))
		handles[strconv.Itoa(index)] = true

		if branch.ID != "" {
			handles[branch.ID] = true
		}
	}

	for i, branch := range data.Branches {
		if branch.IsDefault {
			continue
		}

		if conditions.Evaluate(branch.Conditions, branch.Logic, execution.Context) {
			match(branch, i)
		}
	}

	if len(matched) == 0 {
		for i, branch := range data.Branches {
			if branch.IsDefault {
				match(branch, i)
			}
		}
	}

	var next []*models.Node

	for _, edge := range edges {
		if !handles[edge.SourceHandle] {
			continue
		}

		if target := g.Node(edge.Target); target != nil {
			next = append(next, target)
		}
	}

	if len(next) == 0 && len(edges) > 0 {
		if target := g.Node(edges[0].Target); target != nil {
			next = append(next, target)
		}
	}

	return nodeOutcome{
		output: map[string]any{"matched_branches": matched},
		next:   next,
	}, nil
}

func branchHandle(branch models.BranchSpec, index int) string {
	if branch.ID != "" {
		return branch.ID
	}

	return strconv.Itoa(index)
}

// runSubworkflowNode dispatches a child workflow. Async children are enqueued
// fire-and-forget on the event bus; sync children run in-process and a failed
// child fails the parent node's result while the parent keeps traversing.
func (e *Engine) runSubworkflowNode(
	ctx context.Context,
	workflow *models.Workflow,
	g *graph.Graph,
	execution *models.Execution,
	node *models.Node,
) (nodeOutcome, error) {
	data := node.SubworkflowData()
	if data.WorkflowID == "" {
		return nodeOutcome{
			failure: fmt.Sprintf("subworkflow node %s has no workflow_id", node.ID),
			next:    g.NextNodes(node.ID),
		}, nil
	}

	triggeredBy := "workflow:" + workflow.ID

	payload := make(map[string]any, len(execution.Context)+2)
	for k, v := range execution.Context {
		payload[k] = v
	}

	payload["parent_workflow_id"] = workflow.ID
	payload["parent_execution_id"] = execution.ID

	if data.Async {
		if err := e.EnqueueWorkflow(ctx, data.WorkflowID, triggeredBy, payload); err != nil {
			return nodeOutcome{
				failure: fmt.Sprintf("failed to enqueue subworkflow %s: %v", data.WorkflowID, err),
				next:    g.NextNodes(node.ID),
			}, nil
		}

		return nodeOutcome{
			output: map[string]any{
				"child_workflow_id": data.WorkflowID,
				"dispatch":          "async",
			},
			next: g.NextNodes(node.ID),
		}, nil
	}

	child, err := e.RunWorkflow(ctx, data.WorkflowID, triggeredBy, payload)
	if err != nil {
		return nodeOutcome{
			failure: fmt.Sprintf("subworkflow %s failed to start: %v", data.WorkflowID, err),
			next:    g.NextNodes(node.ID),
		}, nil
	}

	if child.Status == models.ExecutionStatusFailed {
		return nodeOutcome{
			output: map[string]any{
				"child_workflow_id":  data.WorkflowID,
				"child_execution_id": child.ID,
				"child_status":       string(child.Status),
				"dispatch":           "sync",
			},
			failure: fmt.Sprintf("subworkflow %s failed: %s", data.WorkflowID, child.Error),
			next:    g.NextNodes(node.ID),
		}, nil
	}

	return nodeOutcome{
		output: map[string]any{
			"child_workflow_id":  data.WorkflowID,
			"child_execution_id": child.ID,
			"child_status":       string(child.Status),
			"dispatch":           "sync",
		},
		next: g.NextNodes(node.ID),
	}, nil
}

func (e *Engine) recordNodeResult(
	ctx context.Context,
	execution *models.Execution,
	node *models.Node,
	outcome nodeOutcome,
	started time.Time,
) error {
	now := time.Now().UTC()

	status := models.NodeResultSuccess
	if outcome.failure != "" {
		status = models.NodeResultFailed
	}

	execution.AppendNodeResult(models.NodeResult{
		NodeID:    node.ID,
		Status:    status,
		Output:    outcome.output,
		Error:     outcome.failure,
		Timestamp: now,
	})

	if err := e.persistence.SaveExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to persist node result: %w", err)
	}

	e.publish(ctx, events.NodeCompleted{
		BaseEvent:   e.baseEvent(events.NodeCompletedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		NodeID:      node.ID,
		NodeType:    string(node.Type),
		Status:      string(status),
		Error:       outcome.failure,
		Output:      outcome.output,
		DurationMs:  now.Sub(started).Milliseconds(),
	})

	if outcome.failure != "" {
		e.logger.WarnContext(ctx, "Node failed, continuing traversal",
			"workflow_id", execution.WorkflowID,
			"execution_id", execution.ID,
			"node_id", node.ID,
			"error", outcome.failure)
	}

	return nil
}

func (e *Engine) completeExecution(ctx context.Context, execution *models.Execution) error {
	now := time.Now().UTC()

	execution.Status = models.ExecutionStatusCompleted
	execution.CurrentNodeID = ""
	execution.ResumeAt = nil
	execution.CompletedAt = &now

	if err := e.persistence.SaveExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to persist completed execution: %w", err)
	}

	e.publish(ctx, events.ExecutionCompleted{
		BaseEvent:     e.baseEvent(events.ExecutionCompletedEvent, execution.WorkflowID),
		ExecutionID:   execution.ID,
		DurationMs:    now.Sub(execution.StartedAt).Milliseconds(),
		NodesExecuted: len(execution.NodeResults),
	})

	e.logger.InfoContext(ctx, "Execution completed",
		"workflow_id", execution.WorkflowID,
		"execution_id", execution.ID,
		"nodes_executed", len(execution.NodeResults))

	return nil
}

func (e *Engine) failExecution(
	ctx context.Context,
	execution *models.Execution,
	node *models.Node,
	cause error,
) error {
	now := time.Now().UTC()

	execution.AppendNodeResult(models.NodeResult{
		NodeID:    node.ID,
		Status:    models.NodeResultFailed,
		Error:     cause.Error(),
		Timestamp: now,
	})

	execution.Status = models.ExecutionStatusFailed
	execution.Error = cause.Error()
	execution.CurrentNodeID = ""
	execution.ResumeAt = nil
	execution.CompletedAt = &now

	if err := e.persistence.SaveExecution(ctx, execution); err != nil {
		return fmt.Errorf("failed to persist failed execution: %w", err)
	}

	e.publish(ctx, events.ExecutionFailed{
		BaseEvent:   e.baseEvent(events.ExecutionFailedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		NodeID:      node.ID,
		Error:       cause.Error(),
		DurationMs:  now.Sub(execution.StartedAt).Milliseconds(),
	})

	e.logger.ErrorContext(ctx, "Execution failed",
		"workflow_id", execution.WorkflowID,
		"execution_id", execution.ID,
		"node_id", node.ID,
		"error", cause)

	return nil
}
