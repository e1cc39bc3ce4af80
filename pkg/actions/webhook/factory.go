package webhook

import (
	"github.com/edupulse/pulseflow/pkg/protocol"
)

// ActionFactory creates webhook action instances.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (*ActionFactory) ID() string {
	return "http_webhook"
}

func (*ActionFactory) Name() string {
	return "HTTP Webhook"
}

func (*ActionFactory) Description() string {
	return "Delivers an HTTP request to an external endpoint with templated URL, headers and body."
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Target URL. Supports templating.",
				"examples":    []string{"https://hooks.example.com/alerts/{{student.id}}"},
			},
			"method": map[string]any{
				"type":    "string",
				"default": "POST",
				"enum":    []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Request headers. Values support templating.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body. Supports templating.",
			},
			"retry": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"attempts": map[string]any{"type": "number", "default": 1},
					"delay":    map[string]any{"type": "number", "default": 0},
				},
			},
		},
		"required": []string{"url"},
	}
}
