package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/edupulse/pulseflow/pkg/cmd"
	"github.com/edupulse/pulseflow/pkg/engine"
	"github.com/edupulse/pulseflow/pkg/eventbus"
	"github.com/edupulse/pulseflow/pkg/events"
	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/persistence"
	"github.com/edupulse/pulseflow/pkg/registry"
	"github.com/edupulse/pulseflow/pkg/scheduler"
	"github.com/edupulse/pulseflow/pkg/scheduler/store"
	"github.com/edupulse/pulseflow/pkg/services"
	"github.com/edupulse/pulseflow/pkg/triggers/queue"
	"github.com/edupulse/pulseflow/pkg/triggers/schedule"
)

const schedulerPollInterval = 10 * time.Second

type WorkerConfig struct {
	ID             string
	Persistence    persistence.Persistence
	EventBus       eventbus.EventBus
	Logger         *slog.Logger
	Directory      *services.StaticDirectory
	WakeupStoreURL string
	EventQueue     string
	RedisAddr      string
}

// WorkerManager owns one worker's engine, scheduler and trigger sources.
type WorkerManager struct {
	cfg    WorkerConfig
	logger *slog.Logger

	engine    *engine.Engine
	scheduler *scheduler.Scheduler

	scheduleTriggers []*schedule.Trigger
	queueTrigger     *queue.Trigger
}

func NewWorkerManager(cfg WorkerConfig) *WorkerManager {
	return &WorkerManager{
		cfg:    cfg,
		logger: cfg.Logger.With("module", "worker_manager"),
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	wakeupStore, err := newWakeupStore(ctx, w.cfg.WakeupStoreURL)
	if err != nil {
		return fmt.Errorf("failed to create wakeup store: %w", err)
	}

	defer func() {
		if err := wakeupStore.Close(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Failed to close wakeup store", "error", err)
		}
	}()

	w.scheduler = scheduler.NewScheduler(wakeupStore, schedulerPollInterval, w.cfg.Logger)

	reg := registry.NewRegistry(w.cfg.Logger)

	w.engine = engine.NewEngine(engine.Config{
		Persistence: w.cfg.Persistence,
		Registry:    reg,
		Resumer:     w.scheduler,
		EventBus:    w.cfg.EventBus,
		Logger:      w.cfg.Logger,
		WorkerID:    w.cfg.ID,
	})

	cmd.RegisterNativeActions(reg, cmd.Services{
		Directory:       w.cfg.Directory,
		Messenger:       services.NewLogMessenger(w.cfg.Logger),
		Dialer:          services.NewLogDialer(w.cfg.Logger),
		Notifier:        services.NewLogNotifier(w.cfg.Logger),
		Tasks:           services.NewLogTaskService(w.cfg.Logger),
		CourseGenerator: services.NewLogCourseGenerator(w.cfg.Logger),
		FieldWriter:     services.NewLogFieldWriter(w.cfg.Logger),
		Enqueuer:        w.engine,
	})

	if err := w.cfg.EventBus.Handle(events.WorkflowRunRequestedEvent, w.handleRunRequested); err != nil {
		return err
	}

	if err := w.cfg.EventBus.Subscribe(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	if err := w.scheduler.Start(ctx, w.engine.ResumeExecution); err != nil {
		return err
	}

	if err := w.startScheduleTriggers(ctx); err != nil {
		return err
	}

	if err := w.startQueueTrigger(ctx); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	return w.shutdown(ctx)
}

func (w *WorkerManager) shutdown(ctx context.Context) error {
	for _, trigger := range w.scheduleTriggers {
		if err := trigger.Stop(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Failed to stop schedule trigger", "error", err)
		}
	}

	if w.queueTrigger != nil {
		if err := w.queueTrigger.Stop(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Failed to stop queue trigger", "error", err)
		}
	}

	if err := w.scheduler.Stop(ctx); err != nil && !errors.Is(err, scheduler.ErrNotStarted) {
		return err
	}

	return nil
}

func (w *WorkerManager) handleRunRequested(ctx context.Context, event any) error {
	request, ok := event.(*events.WorkflowRunRequested)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for WorkflowRunRequested")

		return nil
	}

	_, err := w.engine.RunWorkflow(ctx, request.WorkflowID, request.TriggeredBy, request.Payload)
	if err != nil {
		w.logger.ErrorContext(ctx, "Requested run failed",
			"workflow_id", request.WorkflowID, "error", err)
	}

	return nil
}

// startScheduleTriggers registers a cron job for every active workflow whose
// trigger node carries a cron expression.
func (w *WorkerManager) startScheduleTriggers(ctx context.Context) error {
	workflows, err := w.cfg.Persistence.Workflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	for _, workflow := range workflows {
		if !workflow.Active {
			continue
		}

		cronExpr := cronExpression(workflow)
		if cronExpr == "" {
			continue
		}

		trigger, err := schedule.NewTrigger(workflow.ID, cronExpr, w.cfg.Logger)
		if err != nil {
			w.logger.WarnContext(ctx, "Skipping workflow with invalid schedule",
				"workflow_id", workflow.ID, "error", err)

			continue
		}

		if err := trigger.Start(ctx, w.triggerCallback); err != nil {
			return err
		}

		w.scheduleTriggers = append(w.scheduleTriggers, trigger)
	}

	return nil
}

func (w *WorkerManager) startQueueTrigger(ctx context.Context) error {
	if w.cfg.EventQueue == "" {
		return nil
	}

	trigger, err := queue.NewTrigger(map[string]any{
		"queue": w.cfg.EventQueue,
		"connection": map[string]any{
			"addr": w.cfg.RedisAddr,
		},
	}, w.cfg.Logger)
	if err != nil {
		return err
	}

	if err := trigger.Start(ctx, w.triggerCallback); err != nil {
		return err
	}

	w.queueTrigger = trigger

	return nil
}

// triggerCallback feeds trigger sources into the gated trigger path. A
// rejected trigger is expected traffic and only logged.
func (w *WorkerManager) triggerCallback(ctx context.Context, workflowID string, data map[string]any) error {
	_, err := w.engine.TriggerWorkflow(ctx, workflowID, "event", data)
	if err != nil {
		if errors.Is(err, engine.ErrTriggerRejected) {
			w.logger.InfoContext(ctx, "Trigger rejected", "workflow_id", workflowID, "reason", err)

			return nil
		}

		return err
	}

	return nil
}

func cronExpression(workflow *models.Workflow) string {
	for _, node := range workflow.Nodes {
		if node.Type != models.NodeTypeTrigger {
			continue
		}

		return node.TriggerData().Cron
	}

	return ""
}

func newWakeupStore(ctx context.Context, url string) (store.Store, error) {
	switch {
	case strings.HasPrefix(url, "redis://"):
		return store.NewRedisStore(ctx, strings.TrimPrefix(url, "redis://"), "", 0)
	default:
		return store.NewFileStore(strings.TrimPrefix(url, "file://"))
	}
}
