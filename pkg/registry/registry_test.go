package registry

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/protocol"
)

type testFactory struct {
	id        string
	schema    map[string]any
	createErr error
	execute   func(ctx context.Context, executionCtx models.ExecutionContext) (map[string]any, error)
}

type testAction struct {
	execute func(ctx context.Context, executionCtx models.ExecutionContext) (map[string]any, error)
}

func (a *testAction) Execute(ctx context.Context, executionCtx models.ExecutionContext, _ *slog.Logger) (map[string]any, error) {
	return a.execute(ctx, executionCtx)
}

func (f *testFactory) Create(_ map[string]any) (protocol.Action, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}

	return &testAction{execute: f.execute}, nil
}

func (f *testFactory) ID() string          { return f.id }
func (f *testFactory) Name() string        { return f.id }
func (f *testFactory) Description() string { return "test" }
func (f *testFactory) Schema() map[string]any {
	return f.schema
}

func TestExecute_Success(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.RegisterAction(&testFactory{
		id: "echo",
		execute: func(_ context.Context, executionCtx models.ExecutionContext) (map[string]any, error) {
			return map[string]any{"execution_id": executionCtx.ExecutionID}, nil
		},
	})

	result := reg.Execute(context.Background(), "echo", nil,
		models.ExecutionContext{ExecutionID: "exec-1"}, slog.Default())

	assert.True(t, result.Success)
	assert.Equal(t, "echo", result.ActionType)
	assert.Equal(t, "exec-1", result.Details["execution_id"])
	assert.False(t, result.ExecutedAt.IsZero())
}

func TestExecute_UnknownActionType(t *testing.T) {
	reg := NewRegistry(slog.Default())

	result := reg.Execute(context.Background(), "missing", nil, models.ExecutionContext{}, slog.Default())

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not registered")
}

func TestExecute_SchemaViolation(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.RegisterAction(&testFactory{
		id: "strict",
		schema: map[string]any{
			"type":     "object",
			"required": []any{"recipient"},
			"properties": map[string]any{
				"recipient": map[string]any{"type": "string"},
			},
		},
		execute: func(_ context.Context, _ models.ExecutionContext) (map[string]any, error) {
			return nil, nil
		},
	})

	result := reg.Execute(context.Background(), "strict",
		map[string]any{"other": true}, models.ExecutionContext{}, slog.Default())

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "recipient")
}

func TestExecute_FactoryError(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.RegisterAction(&testFactory{id: "broken", createErr: errors.New("bad config")})

	result := reg.Execute(context.Background(), "broken", nil, models.ExecutionContext{}, slog.Default())

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "bad config")
}

func TestExecute_ActionError(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.RegisterAction(&testFactory{
		id: "failing",
		execute: func(_ context.Context, _ models.ExecutionContext) (map[string]any, error) {
			return nil, errors.New("downstream unavailable")
		},
	})

	result := reg.Execute(context.Background(), "failing", nil, models.ExecutionContext{}, slog.Default())

	assert.False(t, result.Success)
	assert.Equal(t, "downstream unavailable", result.Error)
}

func TestExecute_PanicBecomesFailedResult(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.RegisterAction(&testFactory{
		id: "panicking",
		execute: func(_ context.Context, _ models.ExecutionContext) (map[string]any, error) {
			panic("nil map write")
		},
	})

	result := reg.Execute(context.Background(), "panicking", nil, models.ExecutionContext{}, slog.Default())

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "action panicked")
}

func TestActionTypesAndSchema(t *testing.T) {
	reg := NewRegistry(slog.Default())

	schema := map[string]any{"type": "object"}
	reg.RegisterAction(&testFactory{id: "b", schema: schema})
	reg.RegisterAction(&testFactory{id: "a", schema: schema})

	types := reg.ActionTypes()
	require.Len(t, types, 2)
	assert.Contains(t, types, "a")
	assert.Contains(t, types, "b")

	got, ok := reg.Schema("a")
	assert.True(t, ok)
	assert.Equal(t, schema, got)

	_, ok = reg.Schema("missing")
	assert.False(t, ok)
}
