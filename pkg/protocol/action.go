// Package protocol defines the contracts between the engine and pluggable
// actions, triggers and the external delivery services they call into.
package protocol

import (
	"context"
	"log/slog"
	"time"

	"github.com/edupulse/pulseflow/pkg/models"
)

// Action is a single side-effecting capability. Execute returns the details to
// record in the execution's audit trail; an error return marks the action as
// failed but never aborts the engine's traversal.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory creates action instances and describes the action type.
type ActionFactory interface {
	// Create builds an action from its node configuration.
	Create(config map[string]any) (Action, error)

	// ID returns the unique identifier for this action type.
	ID() string

	// Name returns the human-readable name for this action type.
	Name() string

	// Description returns a description of what this action does.
	Description() string

	// Schema returns the JSON schema for configuring this action.
	Schema() map[string]any
}

// ActionResult is the structured outcome the registry returns for every
// invocation, success or failure. It is never accompanied by a Go error.
type ActionResult struct {
	Success    bool           `json:"success"`
	ActionType string         `json:"action_type"`
	Details    map[string]any `json:"details,omitempty"`
	Error      string         `json:"error,omitempty"`
	ExecutedAt time.Time      `json:"executed_at"`
}

// TriggerCallback is invoked by trigger sources when an external event arrives.
type TriggerCallback func(ctx context.Context, workflowID string, data map[string]any) error
