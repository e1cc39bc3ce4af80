// Package queue consumes external domain events from a Redis list and feeds
// them into workflow triggers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/edupulse/pulseflow/pkg/protocol"
)

const popTimeout = 1 * time.Second

// Trigger pops JSON messages from a Redis list. Each message carries a
// workflow_id and an event payload; the payload is forwarded to the trigger
// callback as trigger data.
type Trigger struct {
	Connection map[string]string
	Queue      string
	Enabled    bool

	client   redis.UniversalClient
	callback protocol.TriggerCallback
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	queue, _ := config["queue"].(string)

	connectionConfig, _ := config["connection"].(map[string]any)

	connection := make(map[string]string)
	for k, v := range connectionConfig {
		if str, ok := v.(string); ok {
			connection[k] = str
		}
	}

	trigger := &Trigger{
		Connection: connection,
		Queue:      queue,
		Enabled:    true,
		stopCh:     make(chan struct{}),
		logger: logger.With(
			"module", "queue_trigger",
			"queue", queue,
		),
	}

	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.Queue == "" {
		return errors.New("queue trigger queue name is required")
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	if !t.Enabled {
		t.logger.InfoContext(ctx, "Queue trigger is disabled")

		return nil
	}

	t.logger.InfoContext(ctx, "Starting queue trigger")
	t.callback = callback

	if err := t.initializeClient(ctx); err != nil {
		return fmt.Errorf("failed to initialize queue client: %w", err)
	}

	t.wg.Add(1)

	go t.consume(ctx)

	return nil
}

func (t *Trigger) initializeClient(ctx context.Context) error {
	addr := t.Connection["addr"]
	if addr == "" {
		addr = "localhost:6379"
	}

	db := 0

	if dbStr := t.Connection["db"]; dbStr != "" {
		parsed, err := strconv.Atoi(dbStr)
		if err != nil {
			return fmt.Errorf("invalid db value: %w", err)
		}

		db = parsed
	}

	t.client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: t.Connection["password"],
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := t.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	t.logger.InfoContext(ctx, "Connected to Redis", "addr", addr, "db", db)

	return nil
}

func (t *Trigger) consume(ctx context.Context) {
	defer t.wg.Done()

	t.logger.InfoContext(ctx, "Starting queue consumer")

	for {
		select {
		case <-t.stopCh:
			t.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			t.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			if err := t.processMessage(ctx); err != nil {
				t.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (t *Trigger) processMessage(ctx context.Context) error {
	result, err := t.client.BLPop(ctx, popTimeout, t.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	return t.handleMessage(ctx, result[1])
}

func (t *Trigger) handleMessage(ctx context.Context, message string) error {
	var envelope struct {
		WorkflowID string         `json:"workflow_id"`
		Event      map[string]any `json:"event"`
	}

	if err := json.Unmarshal([]byte(message), &envelope); err != nil {
		return fmt.Errorf("malformed queue message: %w", err)
	}

	if envelope.WorkflowID == "" {
		t.logger.WarnContext(ctx, "Queue message without workflow_id dropped")

		return nil
	}

	triggerData := envelope.Event
	if triggerData == nil {
		triggerData = make(map[string]any)
	}

	if triggerData["timestamp"] == nil {
		triggerData["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}

	go func() {
		if err := t.callback(ctx, envelope.WorkflowID, triggerData); err != nil {
			t.logger.ErrorContext(ctx, "Error triggering workflow",
				"workflow_id", envelope.WorkflowID, "error", err)
		}
	}()

	return nil
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping queue trigger")

	close(t.stopCh)
	t.wg.Wait()

	if t.client != nil {
		if err := t.client.Close(); err != nil {
			t.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
