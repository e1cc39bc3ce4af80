// Package store persists scheduler wakeups.
package store

import (
	"context"
	"time"
)

// Wakeup is one pending resume for a waiting execution.
type Wakeup struct {
	ExecutionID string    `json:"execution_id"`
	NodeID      string    `json:"node_id"`
	ResumeAt    time.Time `json:"resume_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the durable wakeup backend. Implementations must be safe for
// concurrent use.
type Store interface {
	SaveWakeup(ctx context.Context, wakeup *Wakeup) error
	DueWakeups(ctx context.Context, before time.Time) ([]*Wakeup, error)
	DeleteWakeup(ctx context.Context, executionID string) error
	Close(ctx context.Context) error
}
