package notify

import (
	"github.com/edupulse/pulseflow/pkg/protocol"
	"github.com/edupulse/pulseflow/pkg/recipients"
)

// ActionFactory creates notify action instances.
type ActionFactory struct {
	resolver *recipients.Resolver
	notifier protocol.Notifier
}

func NewActionFactory(resolver *recipients.Resolver, notifier protocol.Notifier) *ActionFactory {
	return &ActionFactory{resolver: resolver, notifier: notifier}
}

func (*ActionFactory) ID() string {
	return "in_app_notify"
}

func (*ActionFactory) Name() string {
	return "In-App Notification"
}

func (*ActionFactory) Description() string {
	return "Posts an in-app notification to resolved users."
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.resolver, f.notifier)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipients": map[string]any{
				"description": "User descriptors or {{context.refs}}",
			},
			"title": map[string]any{
				"type":        "string",
				"description": "Notification title. Supports templating.",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Notification body. Supports templating.",
			},
		},
		"required": []string{"recipients", "message"},
	}
}
