package createtask

import (
	"github.com/edupulse/pulseflow/pkg/protocol"
)

// ActionFactory creates create-task action instances.
type ActionFactory struct {
	tasks protocol.TaskService
}

func NewActionFactory(tasks protocol.TaskService) *ActionFactory {
	return &ActionFactory{tasks: tasks}
}

func (*ActionFactory) ID() string {
	return "create_task"
}

func (*ActionFactory) Name() string {
	return "Create Task"
}

func (*ActionFactory) Description() string {
	return "Creates a follow-up task, optionally assigned and with a due date."
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.tasks)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Task title. Supports templating.",
			},
			"description": map[string]any{
				"type":        "string",
				"description": "Task body. Supports templating.",
			},
			"assignee_id": map[string]any{
				"type":        "string",
				"description": "User to assign the task to. Supports templating.",
			},
			"due_in_hours": map[string]any{
				"type":        "number",
				"description": "Hours until the task is due",
			},
		},
		"required": []string{"title"},
	}
}
