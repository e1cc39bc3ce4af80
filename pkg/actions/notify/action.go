// Package notify provides the in-app notification action.
package notify

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
	// ErrRecipientsMissing is returned when no recipient spec is configured.
	ErrRecipientsMissing = errors.New("notification recipients are required")
	// ErrMessageMissing is returned when the notification body is absent.
	ErrMessageMissing = errors.New("notification message is required")
)

// Action posts an in-app notification to each resolved recipient.
type Action struct {
	Recipients any
	Title      string
	Message    string

	resolver *recipients.Resolver
	notifier protocol.Notifier
}

func NewAction(config map[string]any, resolver *recipients.Resolver, notifier protocol.Notifier) (*Action, error) {
	recipientsSpec, ok := config["recipients"]
	if !ok || recipientsSpec == nil {
		return nil, ErrRecipientsMissing
	}

	message, _ := config["message"].(string)
	if message == "" {
		return nil, ErrMessageMissing
	}

	title, _ := config["title"].(string)

	return &Action{
		Recipients: recipientsSpec,
		Title:      title,
		Message:    message,
		resolver:   resolver,
		notifier:   notifier,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "notify_action")

	contacts, err := a.resolver.Resolve(ctx, a.Recipients, executionCtx.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve notification recipients: %w", err)
	}

	title := template.RenderString(a.Title, executionCtx.Data)
	message := template.RenderString(a.Message, executionCtx.Data)

	notified := make([]string, 0, len(contacts))

	for _, contact := range contacts {
		if contact.ID == "" {
			continue
		}

		if err := a.notifier.Notify(ctx, contact.ID, title, message); err != nil {
			return nil, fmt.Errorf("failed to notify user %s: %w", contact.ID, err)
		}

		notified = append(notified, contact.ID)
	}

	logger.InfoContext(ctx, "Notifications posted", "count", len(notified))

	return map[string]any{
		"notified": notified,
		"title":    title,
		"message":  message,
	}, nil
}
