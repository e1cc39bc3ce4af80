// Package updatefield provides the record field update action.
package updatefield

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/protocol"
	"github.com/edupulse/pulseflow/pkg/template"
)

// ErrTargetMissing is returned when entity_type, entity_id or field is absent.
var ErrTargetMissing = errors.New("entity_type, entity_id and field are required")

// Action writes a single field of a domain record through the FieldWriter.
type Action struct {
	EntityType string
	EntityID   string
	Field      string
	Value      any

	writer protocol.FieldWriter
}

func NewAction(config map[string]any, writer protocol.FieldWriter) (*Action, error) {
	entityType, _ := config["entity_type"].(string)
	entityID, _ := config["entity_id"].(string)
	field, _ := config["field"].(string)

	if entityType == "" || entityID == "" || field == "" {
		return nil, ErrTargetMissing
	}

	return &Action{
		EntityType: entityType,
		EntityID:   entityID,
		Field:      field,
		Value:      config["value"],
		writer:     writer,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "updatefield_action")

	entityID := template.RenderString(a.EntityID, executionCtx.Data)
	value := template.Render(a.Value, executionCtx.Data)

	if err := a.writer.UpdateField(ctx, a.EntityType, entityID, a.Field, value); err != nil {
		return nil, fmt.Errorf("failed to update %s.%s on %s: %w", a.EntityType, a.Field, entityID, err)
	}

	logger.InfoContext(ctx, "Field updated",
		"entity_type", a.EntityType,
		"entity_id", entityID,
		"field", a.Field)

	return map[string]any{
		"entity_type": a.EntityType,
		"entity_id":   entityID,
		"field":       a.Field,
		"value":       value,
	}, nil
}
