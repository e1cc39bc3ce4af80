// Package registry dispatches action invocations to registered action factories.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/protocol"
)

// Registry maps action type names to their factories. Dispatch never panics
// and never returns a Go error for action-level failures: every outcome comes
// back as an ActionResult so one bad action cannot abort a traversal.
type Registry struct {
	logger          *slog.Logger
	actionFactories map[string]protocol.ActionFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:          logger.With("module", "registry"),
		actionFactories: make(map[string]protocol.ActionFactory),
	}
}

// RegisterAction adds a factory under its ID, replacing any previous one.
func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.actionFactories[factory.ID()] = factory
}

// ActionTypes returns the registered action type names.
func (r *Registry) ActionTypes() []string {
	types := make([]string, 0, len(r.actionFactories))
	for actionType := range r.actionFactories {
		types = append(types, actionType)
	}

	return types
}

// Schema returns the config schema for a registered action type.
func (r *Registry) Schema(actionType string) (map[string]any, bool) {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return nil, false
	}

	return factory.Schema(), true
}

// Execute runs an action type against the given config and execution context.
// Unknown types, schema violations, factory errors, action errors and panics
// all come back as a failed ActionResult.
func (r *Registry) Execute(
	ctx context.Context,
	actionType string,
	config map[string]any,
	executionCtx models.ExecutionContext,
	logger *slog.Logger,
) protocol.ActionResult {
	factory, ok := r.actionFactories[actionType]
	if !ok {
		return failure(actionType, fmt.Sprintf("action type %q not registered", actionType))
	}

	if err := validateConfig(factory.Schema(), config); err != nil {
		return failure(actionType, err.Error())
	}

	action, err := factory.Create(config)
	if err != nil {
		return failure(actionType, fmt.Sprintf("invalid configuration: %v", err))
	}

	details, err := safeExecute(ctx, action, executionCtx, logger.With("action_type", actionType))
	if err != nil {
		return failure(actionType, err.Error())
	}

	return protocol.ActionResult{
		Success:    true,
		ActionType: actionType,
		Details:    details,
		ExecutedAt: time.Now().UTC(),
	}
}

// safeExecute isolates the action call so a panicking implementation degrades
// to a failed result.
func safeExecute(
	ctx context.Context,
	action protocol.Action,
	executionCtx models.ExecutionContext,
	logger *slog.Logger,
) (details map[string]any, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("action panicked: %v", recovered)
		}
	}()

	return action.Execute(ctx, executionCtx, logger)
}

func validateConfig(schema map[string]any, config map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("config schema validation failed: %w", err)
	}

	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("invalid configuration: %s", errs[0].String())
		}

		return fmt.Errorf("invalid configuration")
	}

	return nil
}

func failure(actionType, message string) protocol.ActionResult {
	return protocol.ActionResult{
		Success:    false,
		ActionType: actionType,
		Error:      message,
		ExecutedAt: time.Now().UTC(),
	}
}
