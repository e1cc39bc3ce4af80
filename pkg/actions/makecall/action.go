// Package makecall provides the outbound voice call action.
package makecall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/protocol"
	"github.com/edupulse/pulseflow/pkg/recipients"
	"github.com/edupulse/pulseflow/pkg/template"
)

var (
	// ErrRecipientMissing is returned when no recipient spec is configured.
	ErrRecipientMissing = errors.New("call recipient is required")
	// ErrScriptMissing is returned when no call script is configured.
	ErrScriptMissing = errors.New("call script is required")
	// ErrNoRecipientsResolved is returned when the recipient spec resolves to nobody.
	ErrNoRecipientsResolved = errors.New("no call recipients resolved")
)

// Action places a templated voice call to each resolved recipient.
type Action struct {
	Recipient any
	Script    string

	resolver *recipients.Resolver
	dialer   protocol.Dialer
}

func NewAction(config map[string]any, resolver *recipients.Resolver, dialer protocol.Dialer) (*Action, error) {
	recipientSpec, ok := config["recipient"]
	if !ok || recipientSpec == nil {
		return nil, ErrRecipientMissing
	}

	script, _ := config["script"].(string)
	if script == "" {
		return nil, ErrScriptMissing
	}

	return &Action{
		Recipient: recipientSpec,
		Script:    script,
		resolver:  resolver,
		dialer:    dialer,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "makecall_action")

	contacts, err := a.resolver.Resolve(ctx, a.Recipient, executionCtx.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve call recipients: %w", err)
	}

	if len(contacts) == 0 {
		return nil, ErrNoRecipientsResolved
	}

	script := template.RenderString(a.Script, executionCtx.Data)

	callIDs := make([]string, 0, len(contacts))

	for _, contact := range contacts {
		callID, err := a.dialer.PlaceCall(ctx, contact, script)
		if err != nil {
			return nil, fmt.Errorf("failed to place call to %s: %w", contact.Phone, err)
		}

		callIDs = append(callIDs, callID)
	}

	logger.InfoContext(ctx, "Calls placed", "count", len(callIDs))

	return map[string]any{
		"call_ids": callIDs,
		"script":   script,
	}, nil
}
