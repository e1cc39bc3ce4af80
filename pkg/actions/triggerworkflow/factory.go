package triggerworkflow

import (
	"github.com/edupulse/pulseflow/pkg/protocol"
)

// ActionFactory creates trigger-workflow action instances.
type ActionFactory struct {
	enqueuer protocol.WorkflowEnqueuer
}

func NewActionFactory(enqueuer protocol.WorkflowEnqueuer) *ActionFactory {
	return &ActionFactory{enqueuer: enqueuer}
}

func (*ActionFactory) ID() string {
	return "trigger_workflow"
}

func (*ActionFactory) Name() string {
	return "Trigger Workflow"
}

func (*ActionFactory) Description() string {
	return "Enqueues an independent run of another workflow with a templated payload."
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.enqueuer)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"workflow_id": map[string]any{
				"type":        "string",
				"description": "Workflow to run",
			},
			"payload": map[string]any{
				"type":        "object",
				"description": "Trigger payload for the child run. Values support templating.",
			},
		},
		"required": []string{"workflow_id"},
	}
}
