// Package postgresql provides PostgreSQL persistence for workflows and
// executions. Graph payloads and audit trails are stored as JSONB documents;
// the trigger bookkeeping columns are relational so RecordTrigger can lock a
// single row.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/persistence"
	"github.com/edupulse/pulseflow/pkg/persistence/sqlbase"
)

// Persistence implements persistence.Persistence on PostgreSQL.
type Persistence struct {
	db         *sql.DB
	logger     *slog.Logger
	workflows  *workflowRepository
	executions *executionRepository
}

// NewPersistence connects to the database, runs pending migrations and
// returns a ready store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())
	if err := migrationManager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:         database,
		logger:     logger,
		workflows:  &workflowRepository{db: database, logger: logger},
		executions: &executionRepository{db: database, logger: logger},
	}, nil
}

func (p *Persistence) Close(_ context.Context) error {
	if p.db == nil {
		return nil
	}

	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Workflows returns every stored workflow ordered by creation time.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	return p.workflows.list(ctx)
}

// WorkflowByID fetches one workflow.
func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return p.workflows.getByID(ctx, id)
}

// SaveWorkflow upserts a workflow row.
func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return p.workflows.save(ctx, workflow)
}

// DeleteWorkflow removes a workflow row.
func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	return p.workflows.delete(ctx, id)
}

// Executions returns executions oldest first, optionally filtered by
// workflow. An empty workflowID returns all of them.
func (p *Persistence) Executions(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	return p.executions.list(ctx, workflowID)
}

// ExecutionByID fetches one execution.
func (p *Persistence) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	return p.executions.getByID(ctx, id)
}

// SaveExecution upserts an execution row.
func (p *Persistence) SaveExecution(ctx context.Context, execution *models.Execution) error {
	return p.executions.save(ctx, execution)
}

// RecordTrigger applies the cooldown and daily-limit gates and, when both
// pass, stamps the trigger bookkeeping. The workflow row is locked for the
// duration of the transaction so two concurrent claims serialize.
func (p *Persistence) RecordTrigger(ctx context.Context, workflowID string, now time.Time) (bool, error) {
	transaction, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, persistence.NewWorkflowError("RecordTrigger", workflowID, err)
	}

	defer func() {
		_ = transaction.Rollback()
	}()

	row := transaction.QueryRowContext(ctx, `
		SELECT cooldown_minutes, daily_limit, last_triggered_at, triggers_fired_today, trigger_count_day
		FROM workflows
		WHERE id = $1
		FOR UPDATE
	`, workflowID)

	workflow := models.Workflow{ID: workflowID}

	var lastTriggeredAt sql.NullTime

	err = row.Scan(
		&workflow.CooldownMinutes,
		&workflow.DailyLimit,
		&lastTriggeredAt,
		&workflow.TriggersFiredToday,
		&workflow.TriggerCountDay,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, persistence.NewWorkflowError("RecordTrigger", workflowID, persistence.ErrWorkflowNotFound)
		}

		return false, persistence.NewWorkflowError("RecordTrigger", workflowID, err)
	}

	if lastTriggeredAt.Valid {
		ts := lastTriggeredAt.Time
		workflow.LastTriggeredAt = &ts
	}

	if workflow.InCooldown(now) || workflow.DailyLimitReached(now) {
		return false, nil
	}

	workflow.RecordTrigger(now)

	_, err = transaction.ExecContext(ctx, `
		UPDATE workflows
		SET last_triggered_at = $1, triggers_fired_today = $2, trigger_count_day = $3, updated_at = $4
		WHERE id = $5
	`, workflow.LastTriggeredAt, workflow.TriggersFiredToday, workflow.TriggerCountDay, now, workflowID)
	if err != nil {
		return false, persistence.NewWorkflowError("RecordTrigger", workflowID, err)
	}

	if err := transaction.Commit(); err != nil {
		return false, persistence.NewWorkflowError("RecordTrigger", workflowID, err)
	}

	return true, nil
}
