package updatefield

import (
	"github.com/edupulse/pulseflow/pkg/protocol"
)

// ActionFactory creates update-field action instances.
type ActionFactory struct {
	writer protocol.FieldWriter
}

func NewActionFactory(writer protocol.FieldWriter) *ActionFactory {
	return &ActionFactory{writer: writer}
}

func (*ActionFactory) ID() string {
	return "update_field"
}

func (*ActionFactory) Name() string {
	return "Update Field"
}

func (*ActionFactory) Description() string {
	return "Writes a single field of a domain record."
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.writer)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"entity_type": map[string]any{
				"type":        "string",
				"description": "Record type (student, course, enrollment)",
			},
			"entity_id": map[string]any{
				"type":        "string",
				"description": "Record identifier. Supports templating.",
			},
			"field": map[string]any{
				"type":        "string",
				"description": "Field name to write",
			},
			"value": map[string]any{
				"description": "New value. Strings support templating.",
			},
		},
		"required": []string{"entity_type", "entity_id", "field"},
	}
}
