// Package persistence provides the data storage abstraction for workflows and
// executions.
package persistence

import (
	"context"
	"time"

	"github.com/edupulse/pulseflow/pkg/models"
)

// Persistence is the storage contract the engine runs against.
//
// RecordTrigger is the one atomic read-modify-write in the system: it
// re-checks the workflow's cooldown and daily limit under the store's own
// concurrency control and, when both gates pass, increments the daily counter
// and stamps last_triggered_at in the same operation. Two concurrent trigger
// evaluations must never both pass a limit with room for only one.
type Persistence interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error

	Executions(ctx context.Context, workflowID string) ([]*models.Execution, error)
	ExecutionByID(ctx context.Context, id string) (*models.Execution, error)
	SaveExecution(ctx context.Context, execution *models.Execution) error

	RecordTrigger(ctx context.Context, workflowID string, now time.Time) (bool, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
