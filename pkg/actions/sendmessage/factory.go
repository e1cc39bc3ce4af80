package sendmessage

import (
	"github.com/edupulse/pulseflow/pkg/protocol"
	"github.com/edupulse/pulseflow/pkg/recipients"
)

// ActionFactory creates send-message action instances.
type ActionFactory struct {
	resolver  *recipients.Resolver
	messenger protocol.Messenger
}

// NewActionFactory creates a new factory bound to its delivery services.
func NewActionFactory(resolver *recipients.Resolver, messenger protocol.Messenger) *ActionFactory {
	return &ActionFactory{resolver: resolver, messenger: messenger}
}

// ID returns the unique identifier for the action type.
func (*ActionFactory) ID() string {
	return "send_message"
}

// Name returns the name of the action type.
func (*ActionFactory) Name() string {
	return "Send Message"
}

// Description returns a brief description of the action.
func (*ActionFactory) Description() string {
	return "Delivers a templated message to resolved recipients over email, SMS or WhatsApp."
}

// Create creates a new action instance with the provided configuration.
func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.resolver, f.messenger)
}

// Schema returns the JSON schema for the action configuration.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"channel": map[string]any{
				"type":        "string",
				"description": "Delivery channel",
				"default":     "email",
				"enum":        []string{"email", "sms", "whatsapp"},
			},
			"recipients": map[string]any{
				"description": "Literal endpoints, {{context.refs}} or typed descriptors",
				"examples": []any{
					[]string{"{{student.phone}}"},
					map[string]any{"type": "role", "role": "advisor", "org_id": "{{org_id}}"},
				},
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Message subject (email only). Supports templating.",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Message body. Supports templating.",
				"examples":    []string{"Alert for {{student.name}}"},
			},
		},
		"required": []string{"recipients", "message"},
	}
}
