// Package sendmessage provides the message delivery action for email, SMS and
// WhatsApp channels.
package sendmessage

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
	// ErrChannelInvalid is returned when the configured channel is unknown.
	ErrChannelInvalid = errors.New("invalid message channel")
	// ErrRecipientsMissing is returned when no recipient spec is configured.
	ErrRecipientsMissing = errors.New("message recipients are required")
	// ErrNoRecipientsResolved is returned when the recipient spec resolves to nobody.
	ErrNoRecipientsResolved = errors.New("no recipients resolved")
)

var validChannels = map[string]bool{
	"email":    true,
	"sms":      true,
	"whatsapp": true,
}

// Action delivers a templated message to resolved recipients over one channel.
type Action struct {
	Channel    string
	Recipients any
	Subject    string
	Message    string

	resolver  *recipients.Resolver
	messenger protocol.Messenger
}

// NewAction creates a send-message action from node configuration.
func NewAction(config map[string]any, resolver *recipients.Resolver, messenger protocol.Messenger) (*Action, error) {
	channel, _ := config["channel"].(string)
	if channel == "" {
		channel = "email"
	}

	if !validChannels[channel] {
		return nil, fmt.Errorf("channel %q: %w", channel, ErrChannelInvalid)
	}

	recipientsSpec, ok := config["recipients"]
	if !ok || recipientsSpec == nil {
		return nil, ErrRecipientsMissing
	}

	subject, _ := config["subject"].(string)
	message, _ := config["message"].(string)

	return &Action{
		Channel:    channel,
		Recipients: recipientsSpec,
		Subject:    subject,
		Message:    message,
		resolver:   resolver,
		messenger:  messenger,
	}, nil
}

// Execute resolves recipients, interpolates the message and delivers it.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "sendmessage_action", "channel", a.Channel)

	contacts, err := a.resolver.Resolve(ctx, a.Recipients, executionCtx.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipients: %w", err)
	}

	if len(contacts) == 0 {
		return nil, ErrNoRecipientsResolved
	}

	subject := template.RenderString(a.Subject, executionCtx.Data)
	body := template.RenderString(a.Message, executionCtx.Data)

	delivered := make([]string, 0, len(contacts))

	for _, contact := range contacts {
		if err := a.messenger.SendMessage(ctx, a.Channel, contact, subject, body); err != nil {
			return nil, fmt.Errorf("failed to send %s message to %s: %w", a.Channel, endpoint(contact), err)
		}

		delivered = append(delivered, endpoint(contact))
	}

	logger.InfoContext(ctx, "Message delivered", "recipients", len(delivered))

	return map[string]any{
		"channel":    a.Channel,
		"recipients": delivered,
		"message":    body,
	}, nil
}

func endpoint(contact protocol.Contact) string {
	if contact.Email != "" {
		return contact.Email
	}

	return contact.Phone
}
