// Package schedule fires workflow triggers on a cron schedule.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/edupulse/pulseflow/pkg/protocol"
)

type Trigger struct {
	WorkflowID string
	CronExpr   string
	Enabled    bool

	cron     *cron.Cron
	callback protocol.TriggerCallback
	logger   *slog.Logger
}

func NewTrigger(workflowID, cronExpr string, logger *slog.Logger) (*Trigger, error) {
	trigger := &Trigger{
		WorkflowID: workflowID,
		CronExpr:   cronExpr,
		Enabled:    true,
		logger: logger.With(
			"module", "schedule_trigger",
			"workflow_id", workflowID,
			"cron", cronExpr,
		),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.WorkflowID == "" {
		return errors.New("schedule trigger workflow_id is required")
	}

	if t.CronExpr == "" {
		return errors.New("schedule trigger cron expression is required")
	}

	if _, err := cron.ParseStandard(t.CronExpr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	if !t.Enabled {
		t.logger.InfoContext(ctx, "Schedule trigger is disabled")

		return nil
	}

	t.logger.InfoContext(ctx, "Starting schedule trigger")
	t.callback = callback

	t.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := t.cron.AddFunc(t.CronExpr, t.run); err != nil {
		return fmt.Errorf("failed to add cron job for workflow %s: %w", t.WorkflowID, err)
	}

	t.cron.Start()

	return nil
}

func (t *Trigger) run() {
	triggerData := map[string]any{
		"trigger":   "schedule",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	go func() {
		if err := t.callback(context.Background(), t.WorkflowID, triggerData); err != nil {
			t.logger.Error("Error triggering workflow", "error", err)
		}
	}()
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping schedule trigger")

	if t.cron != nil {
		t.cron.Stop()
	}

	return nil
}
