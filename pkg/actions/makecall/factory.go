package makecall

import (
	"github.com/edupulse/pulseflow/pkg/protocol"
	"github.com/edupulse/pulseflow/pkg/recipients"
)

// ActionFactory creates make-call action instances.
type ActionFactory struct {
	resolver *recipients.Resolver
	dialer   protocol.Dialer
}

func NewActionFactory(resolver *recipients.Resolver, dialer protocol.Dialer) *ActionFactory {
	return &ActionFactory{resolver: resolver, dialer: dialer}
}

func (*ActionFactory) ID() string {
	return "make_call"
}

func (*ActionFactory) Name() string {
	return "Make Call"
}

func (*ActionFactory) Description() string {
	return "Places an automated voice call with a templated script."
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.resolver, f.dialer)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipient": map[string]any{
				"description": "Literal phone number, {{context.ref}} or typed descriptor",
			},
			"script": map[string]any{
				"type":        "string",
				"description": "Call script. Supports templating.",
			},
		},
		"required": []string{"recipient", "script"},
	}
}
