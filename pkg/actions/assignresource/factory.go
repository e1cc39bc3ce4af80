package assignresource

import (
	"github.com/edupulse/pulseflow/pkg/protocol"
)

// ActionFactory creates assign-resource action instances.
type ActionFactory struct {
	tasks protocol.TaskService
}

func NewActionFactory(tasks protocol.TaskService) *ActionFactory {
	return &ActionFactory{tasks: tasks}
}

func (*ActionFactory) ID() string {
	return "assign_resource"
}

func (*ActionFactory) Name() string {
	return "Assign Resource"
}

func (*ActionFactory) Description() string {
	return "Assigns a learning resource to a user."
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.tasks)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"resource_id": map[string]any{
				"type":        "string",
				"description": "Resource identifier. Supports templating.",
			},
			"resource_type": map[string]any{
				"type":        "string",
				"description": "Kind of resource (course, tutor, material)",
			},
			"assignee_id": map[string]any{
				"type":        "string",
				"description": "User receiving the resource. Supports templating.",
			},
		},
		"required": []string{"resource_id", "resource_type", "assignee_id"},
	}
}
