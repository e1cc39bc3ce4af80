// Package scheduler provides the durable timer that resumes waiting
// executions after their delay elapses.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/edupulse/pulseflow/pkg/scheduler/store"
)

// ResumeFunc is invoked for each due wakeup. Delivery is at-least-once: the
// wakeup is deleted only after the callback returns nil, so callbacks must be
// idempotent per (execution_id, resume_at).
type ResumeFunc func(ctx context.Context, executionID, nodeID string) error

// ErrNotStarted is returned when Stop is called on a scheduler that never ran.
var ErrNotStarted = errors.New("scheduler not started")

const defaultPollInterval = 10 * time.Second

// Scheduler polls the wakeup store on a fixed interval and fires the resume
// callback for every due wakeup. Timer state lives in the store, not in
// memory, so wakeups survive process restarts.
type Scheduler struct {
	store    store.Store
	interval time.Duration
	logger   *slog.Logger

	callback ResumeFunc
	ticker   *time.Ticker
	done     chan struct{}
	started  bool
	mu       sync.Mutex
}

func NewScheduler(wakeupStore store.Store, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Scheduler{
		store:    wakeupStore,
		interval: interval,
		logger:   logger.With("module", "scheduler"),
	}
}

// Schedule persists a wakeup. Scheduling again for the same execution
// replaces the previous wakeup.
func (s *Scheduler) Schedule(ctx context.Context, executionID, nodeID string, resumeAt time.Time) error {
	return s.store.SaveWakeup(ctx, &store.Wakeup{
		ExecutionID: executionID,
		NodeID:      nodeID,
		ResumeAt:    resumeAt,
		CreatedAt:   time.Now().UTC(),
	})
}

// Start begins the polling loop.
func (s *Scheduler) Start(ctx context.Context, callback ResumeFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.callback = callback
	s.ticker = time.NewTicker(s.interval)
	s.done = make(chan struct{})
	s.started = true

	go s.poll(ctx)

	s.logger.InfoContext(ctx, "Scheduler started", "interval", s.interval)

	return nil
}

// Stop shuts down the polling loop.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}

	s.ticker.Stop()
	close(s.done)
	s.started = false

	s.logger.InfoContext(ctx, "Scheduler stopped")

	return nil
}

func (s *Scheduler) poll(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-s.ticker.C:
			s.processDueWakeups(ctx)
		}
	}
}

func (s *Scheduler) processDueWakeups(ctx context.Context) {
	now := time.Now().UTC()

	due, err := s.store.DueWakeups(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query due wakeups", "error", err)

		return
	}

	for _, wakeup := range due {
		logger := s.logger.With("execution_id", wakeup.ExecutionID, "resume_at", wakeup.ResumeAt)

		if err := s.callback(ctx, wakeup.ExecutionID, wakeup.NodeID); err != nil {
			// Leave the wakeup in place; the next poll retries it.
			logger.ErrorContext(ctx, "Resume callback failed", "error", err)

			continue
		}

		if err := s.store.DeleteWakeup(ctx, wakeup.ExecutionID); err != nil {
			logger.ErrorContext(ctx, "Failed to delete wakeup", "error", err)
		}
	}
}
