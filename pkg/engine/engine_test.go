package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/pulseflow/pkg/actions/sendmessage"
	"github.com/edupulse/pulseflow/pkg/eventbus"
	"github.com/edupulse/pulseflow/pkg/events"
	"github.com/edupulse/pulseflow/pkg/mocks"
	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/persistence/file"
	"github.com/edupulse/pulseflow/pkg/protocol"
	"github.com/edupulse/pulseflow/pkg/recipients"
	"github.com/edupulse/pulseflow/pkg/registry"
	"github.com/edupulse/pulseflow/pkg/services"
	"github.com/edupulse/pulseflow/pkg/testutil"
)

// stubFactory registers a configurable test action under any id.
type stubFactory struct {
	id string
	fn func(ctx context.Context, executionCtx models.ExecutionContext) (map[string]any, error)
}

type stubAction struct {
	fn func(ctx context.Context, executionCtx models.ExecutionContext) (map[string]any, error)
}

func (a *stubAction) Execute(ctx context.Context, executionCtx models.ExecutionContext, _ *slog.Logger) (map[string]any, error) {
	return a.fn(ctx, executionCtx)
}

func (f *stubFactory) Create(_ map[string]any) (protocol.Action, error) {
	return &stubAction{fn: f.fn}, nil
}

func (f *stubFactory) ID() string          { return f.id }
func (f *stubFactory) Name() string        { return f.id }
func (f *stubFactory) Description() string { return "test action" }
func (f *stubFactory) Schema() map[string]any {
	return map[string]any{"type": "object"}
}

type fakeResumer struct {
	scheduled []scheduledWakeup
}

type scheduledWakeup struct {
	executionID string
	nodeID      string
	resumeAt    time.Time
}

func (r *fakeResumer) Schedule(_ context.Context, executionID, nodeID string, resumeAt time.Time) error {
	r.scheduled = append(r.scheduled, scheduledWakeup{executionID, nodeID, resumeAt})

	return nil
}

type capturePublisher struct {
	published []eventbus.Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.published = append(p.published, event)

	return nil
}

type testRig struct {
	engine  *Engine
	store   *file.Persistence
	resumer *fakeResumer
	bus     *capturePublisher
	reg     *registry.Registry
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	logger := slog.Default()
	store := file.NewPersistence(t.TempDir())
	resumer := &fakeResumer{}
	bus := &capturePublisher{}
	reg := registry.NewRegistry(logger)

	eng := NewEngine(Config{
		Persistence: store,
		Registry:    reg,
		Resumer:     resumer,
		EventBus:    bus,
		Logger:      logger,
		WorkerID:    "test-worker",
	})

	return &testRig{engine: eng, store: store, resumer: resumer, bus: bus, reg: reg}
}

func (r *testRig) registerAction(id string, fn func(ctx context.Context, executionCtx models.ExecutionContext) (map[string]any, error)) {
	r.reg.RegisterAction(&stubFactory{id: id, fn: fn})
}

func (r *testRig) registerNoop(id string) {
	r.registerAction(id, func(_ context.Context, _ models.ExecutionContext) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	})
}

func saveWorkflow(t *testing.T, rig *testRig, workflow *models.Workflow) {
	t.Helper()
	require.NoError(t, rig.store.SaveWorkflow(context.Background(), workflow))
}

func resultNodeIDs(execution *models.Execution) []string {
	ids := make([]string, 0, len(execution.NodeResults))
	for _, result := range execution.NodeResults {
		ids = append(ids, result.NodeID)
	}

	return ids
}

func TestShouldTrigger(t *testing.T) {
	rig := newTestRig(t)
	now := time.Now().UTC()
	recent := now.Add(-time.Minute)

	tests := []struct {
		name       string
		workflow   *models.Workflow
		data       map[string]any
		want       bool
		wantReason string
	}{
		{
			name:     "active_workflow_passes",
			workflow: testutil.CreateTestWorkflow(),
			want:     true,
		},
		{
			name: "inactive_workflow",
			workflow: testutil.CreateTestWorkflow(func(w *models.Workflow) {
				w.Active = false
			}),
			want:       false,
			wantReason: "workflow inactive",
		},
		{
			name: "cooldown_active",
			workflow: testutil.CreateTestWorkflow(func(w *models.Workflow) {
				w.CooldownMinutes = 60
				w.LastTriggeredAt = &recent
			}),
			want:       false,
			wantReason: "cooldown active",
		},
		{
			name: "daily_limit_reached",
			workflow: testutil.CreateTestWorkflow(func(w *models.Workflow) {
				w.DailyLimit = 1
				w.TriggersFiredToday = 1
				w.TriggerCountDay = now.Format("2006-01-02")
			}),
			want:       false,
			wantReason: "daily limit reached",
		},
		{
			name: "trigger_conditions_not_met",
			workflow: testutil.CreateTestWorkflow(func(w *models.Workflow) {
				w.TriggerConfig = models.TriggerConfig{
					Conditions: []models.ConditionAtom{
						{Field: "risk_level", Operator: models.OperatorEquals, Value: "high"},
					},
				}
			}),
			data:       map[string]any{"risk_level": "low"},
			want:       false,
			wantReason: "trigger conditions not met",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := rig.engine.ShouldTrigger(tt.workflow, now, tt.data)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestTriggerWorkflow_RejectedTriggerReturnsTypedError(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	workflow := testutil.CreateTestWorkflow(func(w *models.Workflow) {
		w.Active = false
	})
	saveWorkflow(t, rig, workflow)

	_, err := rig.engine.TriggerWorkflow(ctx, workflow.ID, "api", nil)
	assert.ErrorIs(t, err, ErrTriggerRejected)

	// No execution was recorded for the rejected trigger.
	executions, err := rig.store.Executions(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Empty(t, executions)
}

func TestTriggerWorkflow_LinearTraversal(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	var seenData map[string]any

	rig.registerAction("record_context", func(_ context.Context, executionCtx models.ExecutionContext) (map[string]any, error) {
		seenData = executionCtx.Data

		return map[string]any{"sent": true}, nil
	})
	rig.registerNoop("follow_up")

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			testutil.ActionNode("first", "record_context", nil),
			testutil.ActionNode("second", "follow_up", nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "first"),
			testutil.Edge("first", "second"),
		),
	)
	saveWorkflow(t, rig, workflow)

	execution, err := rig.engine.TriggerWorkflow(ctx, workflow.ID, "event", map[string]any{"risk_level": "high"})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, []string{"start", "first", "second"}, resultNodeIDs(execution))
	assert.NotNil(t, execution.CompletedAt)

	// The action saw the context seeded from the trigger payload.
	assert.Equal(t, "high", seenData["risk_level"])

	// TriggerData stays an untouched snapshot while Context accumulates.
	assert.Equal(t, map[string]any{"risk_level": "high"}, execution.TriggerData)
	assert.Contains(t, execution.Context, "last_action_result")

	// Trigger bookkeeping was recorded.
	stored, err := rig.store.WorkflowByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastTriggeredAt)
	assert.Equal(t, 1, stored.TriggersFiredToday)
}

func TestTriggerWorkflow_FailedActionIsRecordedAndTraversalContinues(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	rig.registerAction("explode", func(_ context.Context, _ models.ExecutionContext) (map[string]any, error) {
		return nil, errors.New("provider unavailable")
	})
	rig.registerNoop("still_runs")

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			testutil.ActionNode("boom", "explode", nil),
			testutil.ActionNode("after", "still_runs", nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "boom"),
			testutil.Edge("boom", "after"),
		),
	)
	saveWorkflow(t, rig, workflow)

	execution, err := rig.engine.TriggerWorkflow(ctx, workflow.ID, "event", nil)
	require.NoError(t, err)

	// The failed action is an audit entry, not an execution failure.
	// Downstream nodes still run.
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Empty(t, execution.Error)
	assert.Equal(t, []string{"start", "boom", "after"}, resultNodeIDs(execution))

	boom := execution.NodeResults[1]
	assert.Equal(t, models.NodeResultFailed, boom.Status)
	assert.Contains(t, boom.Error, "provider unavailable")

	after := execution.NodeResults[2]
	assert.Equal(t, models.NodeResultSuccess, after.Status)
}

func TestDelayRoundTrip(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	rig.registerNoop("after_delay")

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			testutil.DelayNode("wait", 2, models.DelayUnitDays),
			testutil.ActionNode("followup", "after_delay", nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "wait"),
			testutil.Edge("wait", "followup"),
		),
	)
	saveWorkflow(t, rig, workflow)

	execution, err := rig.engine.TriggerWorkflow(ctx, workflow.ID, "event", nil)
	require.NoError(t, err)

	// The execution suspended at the delay node.
	assert.Equal(t, models.ExecutionStatusWaiting, execution.Status)
	assert.Equal(t, "wait", execution.CurrentNodeID)
	require.NotNil(t, execution.ResumeAt)
	assert.Equal(t, []string{"start", "wait"}, resultNodeIDs(execution))

	// A durable wakeup was scheduled roughly two days out.
	require.Len(t, rig.resumer.scheduled, 1)
	wakeup := rig.resumer.scheduled[0]
	assert.Equal(t, execution.ID, wakeup.executionID)
	assert.Equal(t, "wait", wakeup.nodeID)
	assert.WithinDuration(t, time.Now().UTC().Add(48*time.Hour), wakeup.resumeAt, time.Minute)

	// Resume continues downstream of the delay node.
	require.NoError(t, rig.engine.ResumeExecution(ctx, execution.ID, "wait"))

	resumed, err := rig.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, resumed.Status)
	assert.Equal(t, []string{"start", "wait", "followup"}, resultNodeIDs(resumed))
	assert.Empty(t, resumed.CurrentNodeID)
	assert.Nil(t, resumed.ResumeAt)

	// Duplicate wakeup delivery is a no-op.
	require.NoError(t, rig.engine.ResumeExecution(ctx, execution.ID, "wait"))

	again, err := rig.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "wait", "followup"}, resultNodeIDs(again))
}

func TestResumeNonWaitingExecutionIsNoOp(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	workflow := testutil.CreateTestWorkflow()
	saveWorkflow(t, rig, workflow)

	execution, err := rig.engine.TriggerWorkflow(ctx, workflow.ID, "event", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)

	require.NoError(t, rig.engine.ResumeExecution(ctx, execution.ID, "trigger"))

	stored, err := rig.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
	assert.Equal(t, []string{"trigger"}, resultNodeIDs(stored))
}

func TestCyclicGraphTerminates(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	rig.registerNoop("noop")

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			testutil.ActionNode("a", "noop", nil),
			testutil.ActionNode("b", "noop", nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "a"),
			testutil.Edge("a", "b"),
			testutil.Edge("b", "a"), // cycle
		),
	)
	saveWorkflow(t, rig, workflow)

	execution, err := rig.engine.TriggerWorkflow(ctx, workflow.ID, "event", nil)
	require.NoError(t, err)

	// Each node ran exactly once despite the cycle.
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, []string{"start", "a", "b"}, resultNodeIDs(execution))
}

func TestRetryLoopAcrossDelayRerunsEarlierNodes(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	runs := 0

	rig.registerAction("ping", func(_ context.Context, _ models.ExecutionContext) (map[string]any, error) {
		runs++

		return map[string]any{"runs": runs}, nil
	})

	// start -> act -> wait -> act again: a polling loop that re-runs the
	// action after each delay.
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			testutil.ActionNode("act", "ping", nil),
			testutil.DelayNode("wait", 1, models.DelayUnitHours),
		),
		testutil.WithEdges(
			testutil.Edge("start", "act"),
			testutil.Edge("act", "wait"),
			testutil.Edge("wait", "act"),
		),
	)
	saveWorkflow(t, rig, workflow)

	execution, err := rig.engine.TriggerWorkflow(ctx, workflow.ID, "event", nil)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusWaiting, execution.Status)
	assert.Equal(t, 1, runs)

	// Resuming walks the loop again: the action re-runs even though it has a
	// result from the first pass, then the delay suspends once more.
	require.NoError(t, rig.engine.ResumeExecution(ctx, execution.ID, "wait"))

	resumed, err := rig.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusWaiting, resumed.Status)
	assert.Equal(t, 2, runs)
	assert.Equal(t, []string{"start", "act", "wait", "act", "wait"}, resultNodeIDs(resumed))
	require.Len(t, rig.resumer.scheduled, 2)
}

func TestBranchRouting(t *testing.T) {
	branchNode := func(branches []any) *models.Node {
		return &models.Node{
			ID:   "fork",
			Type: models.NodeTypeBranch,
			Data: map[string]any{"branches": branches},
		}
	}

	highBranch := map[string]any{
		"id": "high",
		"conditions": []any{
			map[string]any{"field": "risk", "operator": "equals", "value": "high"},
		},
	}
	anyBranch := map[string]any{
		"id": "present",
		"conditions": []any{
			map[string]any{"field": "risk", "operator": "is_not_null"},
		},
	}
	defaultBranch := map[string]any{"id": "fallback", "is_default": true}

	t.Run("all_matching_branches_fire", func(t *testing.T) {
		rig := newTestRig(t)
		rig.registerNoop("noop")

		workflow := testutil.CreateTestWorkflow(
			testutil.WithNodes(
				testutil.TriggerNode("start"),
				branchNode([]any{highBranch, anyBranch, defaultBranch}),
				testutil.ActionNode("on-high", "noop", nil),
				testutil.ActionNode("on-present", "noop", nil),
				testutil.ActionNode("on-default", "noop", nil),
			),
			testutil.WithEdges(
				testutil.Edge("start", "fork"),
				testutil.BranchEdge("fork", "on-high", "high"),
				testutil.BranchEdge("fork", "on-present", "present"),
				testutil.BranchEdge("fork", "on-default", "fallback"),
			),
		)
		saveWorkflow(t, rig, workflow)

		execution, err := rig.engine.TriggerWorkflow(context.Background(), workflow.ID, "event",
			map[string]any{"risk": "high"})
		require.NoError(t, err)

		ids := resultNodeIDs(execution)
		assert.Contains(t, ids, "on-high")
		assert.Contains(t, ids, "on-present")
		assert.NotContains(t, ids, "on-default")
	})

	t.Run("default_fires_only_when_nothing_matched", func(t *testing.T) {
		rig := newTestRig(t)
		rig.registerNoop("noop")

		workflow := testutil.CreateTestWorkflow(
			testutil.WithNodes(
				testutil.TriggerNode("start"),
				branchNode([]any{highBranch, defaultBranch}),
				testutil.ActionNode("on-high", "noop", nil),
				testutil.ActionNode("on-default", "noop", nil),
			),
			testutil.WithEdges(
				testutil.Edge("start", "fork"),
				testutil.BranchEdge("fork", "on-high", "high"),
				testutil.BranchEdge("fork", "on-default", "fallback"),
			),
		)
		saveWorkflow(t, rig, workflow)

		execution, err := rig.engine.TriggerWorkflow(context.Background(), workflow.ID, "event",
			map[string]any{"risk": "low"})
		require.NoError(t, err)

		ids := resultNodeIDs(execution)
		assert.NotContains(t, ids, "on-high")
		assert.Contains(t, ids, "on-default")
	})

	t.Run("no_match_and_no_default_falls_back_to_first_edge", func(t *testing.T) {
		rig := newTestRig(t)
		rig.registerNoop("noop")

		workflow := testutil.CreateTestWorkflow(
			testutil.WithNodes(
				testutil.TriggerNode("start"),
				branchNode([]any{highBranch}),
				testutil.ActionNode("on-high", "noop", nil),
				testutil.ActionNode("other", "noop", nil),
			),
			testutil.WithEdges(
				testutil.Edge("start", "fork"),
				testutil.BranchEdge("fork", "on-high", "high"),
				testutil.BranchEdge("fork", "other", "other"),
			),
		)
		saveWorkflow(t, rig, workflow)

		execution, err := rig.engine.TriggerWorkflow(context.Background(), workflow.ID, "event",
			map[string]any{"risk": "low"})
		require.NoError(t, err)

		assert.Contains(t, resultNodeIDs(execution), "on-high")
	})

	t.Run("edges_may_address_branches_by_positional_index", func(t *testing.T) {
		rig := newTestRig(t)
		rig.registerNoop("noop")

		// The branch carries an id, but the edge is wired against the
		// branch's position in the list. Both spellings route.
		workflow := testutil.CreateTestWorkflow(
			testutil.WithNodes(
				testutil.TriggerNode("start"),
				branchNode([]any{highBranch, defaultBranch}),
				testutil.ActionNode("on-high", "noop", nil),
				testutil.ActionNode("on-default", "noop", nil),
			),
			testutil.WithEdges(
				testutil.Edge("start", "fork"),
				testutil.BranchEdge("fork", "on-high", "0"),
				testutil.BranchEdge("fork", "on-default", "1"),
			),
		)
		saveWorkflow(t, rig, workflow)

		execution, err := rig.engine.TriggerWorkflow(context.Background(), workflow.ID, "event",
			map[string]any{"risk": "high"})
		require.NoError(t, err)

		ids := resultNodeIDs(execution)
		assert.Contains(t, ids, "on-high")
		assert.NotContains(t, ids, "on-default")
	})
}

func TestConditionNodeAnnotatesWithoutGating(t *testing.T) {
	rig := newTestRig(t)
	rig.registerNoop("noop")

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			&models.Node{
				ID:   "check",
				Type: models.NodeTypeCondition,
				Data: map[string]any{
					"conditions": []any{
						map[string]any{"field": "risk", "operator": "equals", "value": "high"},
					},
				},
			},
			testutil.ActionNode("after", "noop", nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "check"),
			testutil.Edge("check", "after"),
		),
	)
	saveWorkflow(t, rig, workflow)

	// The condition is false, but traversal continues regardless.
	execution, err := rig.engine.TriggerWorkflow(context.Background(), workflow.ID, "event",
		map[string]any{"risk": "low"})
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "check", "after"}, resultNodeIDs(execution))

	var checkResult *models.NodeResult

	for i := range execution.NodeResults {
		if execution.NodeResults[i].NodeID == "check" {
			checkResult = &execution.NodeResults[i]
		}
	}

	require.NotNil(t, checkResult)
	assert.Equal(t, false, checkResult.Output["result"])
}

func TestSubworkflowDispatch(t *testing.T) {
	t.Run("sync_child_runs_in_process", func(t *testing.T) {
		rig := newTestRig(t)
		rig.registerNoop("noop")

		child := testutil.CreateTestWorkflow(func(w *models.Workflow) {
			w.ID = "child"
			w.Nodes = []*models.Node{
				testutil.TriggerNode("child-start"),
				testutil.ActionNode("child-act", "noop", nil),
			}
			w.Edges = []*models.Edge{testutil.Edge("child-start", "child-act")}
		})
		saveWorkflow(t, rig, child)

		parent := testutil.CreateTestWorkflow(
			testutil.WithNodes(
				testutil.TriggerNode("start"),
				&models.Node{
					ID:   "call-child",
					Type: models.NodeTypeSubworkflow,
					Data: map[string]any{"workflow_id": "child", "async": false},
				},
			),
			testutil.WithEdges(testutil.Edge("start", "call-child")),
		)
		saveWorkflow(t, rig, parent)

		ctx := context.Background()

		execution, err := rig.engine.TriggerWorkflow(ctx, parent.ID, "event", map[string]any{"k": "v"})
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)

		// The child got its own execution with its own audit trail.
		childExecutions, err := rig.store.Executions(ctx, "child")
		require.NoError(t, err)
		require.Len(t, childExecutions, 1)
		assert.Equal(t, "workflow:"+parent.ID, childExecutions[0].TriggeredBy)
		assert.Equal(t, parent.ID, childExecutions[0].TriggerData["parent_workflow_id"])
		assert.Equal(t, execution.ID, childExecutions[0].TriggerData["parent_execution_id"])
	})

	t.Run("failed_sync_child_marks_node_failed_and_parent_continues", func(t *testing.T) {
		rig := newTestRig(t)
		rig.registerNoop("noop")

		// A node of unknown type is an engine error inside the child, so the
		// child execution itself fails.
		child := testutil.CreateTestWorkflow(func(w *models.Workflow) {
			w.ID = "child"
			w.Nodes = []*models.Node{
				testutil.TriggerNode("child-start"),
				{ID: "child-act", Type: "bogus"},
			}
			w.Edges = []*models.Edge{testutil.Edge("child-start", "child-act")}
		})
		saveWorkflow(t, rig, child)

		parent := testutil.CreateTestWorkflow(
			testutil.WithNodes(
				testutil.TriggerNode("start"),
				&models.Node{
					ID:   "call-child",
					Type: models.NodeTypeSubworkflow,
					Data: map[string]any{"workflow_id": "child", "async": false},
				},
				testutil.ActionNode("after", "noop", nil),
			),
			testutil.WithEdges(
				testutil.Edge("start", "call-child"),
				testutil.Edge("call-child", "after"),
			),
		)
		saveWorkflow(t, rig, parent)

		execution, err := rig.engine.TriggerWorkflow(context.Background(), parent.ID, "event", nil)
		require.NoError(t, err)

		// The child's failure lands on the call node's result; the parent
		// execution still completes and runs what comes after.
		assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
		assert.Empty(t, execution.Error)
		assert.Equal(t, []string{"start", "call-child", "after"}, resultNodeIDs(execution))

		callChild := execution.NodeResults[1]
		assert.Equal(t, models.NodeResultFailed, callChild.Status)
		assert.Contains(t, callChild.Error, "subworkflow child failed")
	})

	t.Run("missing_child_marks_node_failed_and_parent_continues", func(t *testing.T) {
		rig := newTestRig(t)
		rig.registerNoop("noop")

		parent := testutil.CreateTestWorkflow(
			testutil.WithNodes(
				testutil.TriggerNode("start"),
				&models.Node{
					ID:   "call-child",
					Type: models.NodeTypeSubworkflow,
					Data: map[string]any{"workflow_id": "nope", "async": false},
				},
				testutil.ActionNode("after", "noop", nil),
			),
			testutil.WithEdges(
				testutil.Edge("start", "call-child"),
				testutil.Edge("call-child", "after"),
			),
		)
		saveWorkflow(t, rig, parent)

		execution, err := rig.engine.TriggerWorkflow(context.Background(), parent.ID, "event", nil)
		require.NoError(t, err)

		assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
		assert.Equal(t, []string{"start", "call-child", "after"}, resultNodeIDs(execution))

		callChild := execution.NodeResults[1]
		assert.Equal(t, models.NodeResultFailed, callChild.Status)
		assert.Contains(t, callChild.Error, "failed to start")
	})

	t.Run("async_child_is_enqueued", func(t *testing.T) {
		rig := newTestRig(t)

		parent := testutil.CreateTestWorkflow(
			testutil.WithNodes(
				testutil.TriggerNode("start"),
				&models.Node{
					ID:   "call-child",
					Type: models.NodeTypeSubworkflow,
					Data: map[string]any{"workflow_id": "child", "async": true},
				},
			),
			testutil.WithEdges(testutil.Edge("start", "call-child")),
		)
		saveWorkflow(t, rig, parent)

		ctx := context.Background()

		execution, err := rig.engine.TriggerWorkflow(ctx, parent.ID, "event", nil)
		require.NoError(t, err)

		// The parent completed without running the child.
		assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)

		childExecutions, err := rig.store.Executions(ctx, "child")
		require.NoError(t, err)
		assert.Empty(t, childExecutions)

		// A run request rode the event bus.
		var found bool

		for _, event := range rig.bus.published {
			if event.GetType() == "workflow.run.requested" {
				found = true
			}
		}

		assert.True(t, found)
	})
}

func TestAuditTrailIsAppendOnlyAcrossSuspension(t *testing.T) {
	rig := newTestRig(t)
	rig.registerNoop("noop")

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			testutil.ActionNode("before", "noop", nil),
			testutil.DelayNode("wait", 1, models.DelayUnitSeconds),
			testutil.ActionNode("after", "noop", nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "before"),
			testutil.Edge("before", "wait"),
			testutil.Edge("wait", "after"),
		),
	)
	saveWorkflow(t, rig, workflow)

	ctx := context.Background()

	execution, err := rig.engine.TriggerWorkflow(ctx, workflow.ID, "event", nil)
	require.NoError(t, err)

	suspendedIDs := resultNodeIDs(execution)

	require.NoError(t, rig.engine.ResumeExecution(ctx, execution.ID, "wait"))

	final, err := rig.store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)

	finalIDs := resultNodeIDs(final)

	// The pre-suspension prefix is untouched; resume only appended.
	assert.Equal(t, suspendedIDs, finalIDs[:len(suspendedIDs)])
	assert.Equal(t, []string{"start", "before", "wait", "after"}, finalIDs)
}

// TestAtRiskOutreachScenario runs a realistic workflow end to end: a risk
// level transition gates the trigger, a condition node annotates the trail and
// the real send_message action delivers an SMS through the recipient resolver.
func TestAtRiskOutreachScenario(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	directory := services.NewStaticDirectory()
	directory.AddEntityChannel("student", "s-1", &protocol.Contact{ID: "s-1", Phone: "+15551230000"})

	messenger := &mocks.MockMessenger{}
	messenger.On("SendMessage", mock.Anything, "sms",
		protocol.Contact{ID: "s-1", Phone: "+15551230000"},
		"", "Hi Jo, your advisor would like to check in.").Return(nil)

	rig.reg.RegisterAction(sendmessage.NewActionFactory(recipients.NewResolver(directory), messenger))

	workflow := testutil.CreateTestWorkflow(
		func(w *models.Workflow) {
			w.Name = "At-risk outreach"
			w.TriggerConfig = models.TriggerConfig{
				Conditions: []models.ConditionAtom{
					{Field: "risk_level", Operator: models.OperatorChangedTo, Value: "high"},
				},
			}
		},
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			&models.Node{
				ID:   "still-high",
				Type: models.NodeTypeCondition,
				Data: map[string]any{
					"conditions": []any{
						map[string]any{"field": "risk_level", "operator": "equals", "value": "high"},
					},
				},
			},
			testutil.ActionNode("reach-out", "send_message", map[string]any{
				"channel": "sms",
				"recipients": map[string]any{
					"type": "entity", "entity_type": "student", "entity_id": "{{student.id}}",
				},
				"message": "Hi {{student.name}}, your advisor would like to check in.",
			}),
		),
		testutil.WithEdges(
			testutil.Edge("start", "still-high"),
			testutil.Edge("still-high", "reach-out"),
		),
	)
	saveWorkflow(t, rig, workflow)

	payload := map[string]any{
		"risk_level": "high",
		"student":    map[string]any{"id": "s-1", "name": "Jo"},
		"_previous":  map[string]any{"risk_level": "low"},
	}

	execution, err := rig.engine.TriggerWorkflow(ctx, workflow.ID, "event", payload)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, []string{"start", "still-high", "reach-out"}, resultNodeIDs(execution))
	messenger.AssertExpectations(t)

	// The same event without a risk transition is gated out.
	steady := map[string]any{
		"risk_level": "high",
		"student":    map[string]any{"id": "s-1", "name": "Jo"},
		"_previous":  map[string]any{"risk_level": "high"},
	}

	_, err = rig.engine.TriggerWorkflow(ctx, workflow.ID, "event", steady)
	assert.ErrorIs(t, err, ErrTriggerRejected)
}

func TestLifecycleEventsArePublished(t *testing.T) {
	logger := slog.Default()
	store := file.NewPersistence(t.TempDir())
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	eng := NewEngine(Config{
		Persistence: store,
		Registry:    registry.NewRegistry(logger),
		EventBus:    bus,
		Logger:      logger,
		WorkerID:    "test-worker",
	})

	workflow := testutil.CreateTestWorkflow()
	ctx := context.Background()
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	_, err := eng.TriggerWorkflow(ctx, workflow.ID, "event", nil)
	require.NoError(t, err)

	var types []events.EventType

	for _, call := range bus.Calls {
		event, ok := call.Arguments.Get(2).(eventbus.Event)
		require.True(t, ok)
		types = append(types, event.GetType())
	}

	// Started, one node completion, completed, in order.
	assert.Equal(t, []events.EventType{
		events.ExecutionStartedEvent,
		events.NodeCompletedEvent,
		events.ExecutionCompletedEvent,
	}, types)
}

// cancellingStore flips the stored execution to failed as soon as the named
// node's audit entry lands, simulating an external cancellation arriving
// between two nodes of a running traversal.
type cancellingStore struct {
	*file.Persistence

	afterNodeID string
}

func (s *cancellingStore) SaveExecution(ctx context.Context, execution *models.Execution) error {
	if err := s.Persistence.SaveExecution(ctx, execution); err != nil {
		return err
	}

	if execution.Status != models.ExecutionStatusRunning || len(execution.NodeResults) == 0 {
		return nil
	}

	if execution.NodeResults[len(execution.NodeResults)-1].NodeID != s.afterNodeID {
		return nil
	}

	cancelled := *execution
	cancelled.Status = models.ExecutionStatusFailed
	cancelled.Error = "cancelled externally"

	return s.Persistence.SaveExecution(ctx, &cancelled)
}

func TestExternallyCancelledExecutionStopsTraversal(t *testing.T) {
	logger := slog.Default()
	store := &cancellingStore{
		Persistence: file.NewPersistence(t.TempDir()),
		afterNodeID: "first",
	}
	reg := registry.NewRegistry(logger)
	reg.RegisterAction(&stubFactory{id: "noop", fn: func(_ context.Context, _ models.ExecutionContext) (map[string]any, error) {
		return map[string]any{"ok": true}, nil
	}})

	eng := NewEngine(Config{
		Persistence: store,
		Registry:    reg,
		Logger:      logger,
		WorkerID:    "test-worker",
	})

	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.TriggerNode("start"),
			testutil.ActionNode("first", "noop", nil),
			testutil.ActionNode("after", "noop", nil),
		),
		testutil.WithEdges(
			testutil.Edge("start", "first"),
			testutil.Edge("first", "after"),
		),
	)

	ctx := context.Background()
	require.NoError(t, store.SaveWorkflow(ctx, workflow))

	execution, err := eng.TriggerWorkflow(ctx, workflow.ID, "event", nil)
	require.NoError(t, err)

	stored, err := store.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)

	// The cancellation landed after "first"; traversal never reached "after"
	// and left the cancelled status untouched.
	assert.Equal(t, models.ExecutionStatusFailed, stored.Status)
	assert.Equal(t, []string{"start", "first"}, resultNodeIDs(stored))
}
