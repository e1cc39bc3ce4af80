package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/persistence"
)

const executionColumns = `
	id
  , workflow_id
  , org_id
  , status
  , triggered_by
  , trigger_data
  , context
  , current_node_id
  , resume_at
  , node_results
  , error
  , started_at
  , completed_at
`

type executionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *executionRepository) getByID(ctx context.Context, id string) (*models.Execution, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+executionColumns+" FROM executions WHERE id = $1", id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to scan execution %s: %w", id, err)
	}

	return execution, nil
}

func (r *executionRepository) list(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	query := "SELECT " + executionColumns + " FROM executions"
	args := []any{}

	if workflowID != "" {
		query += " WHERE workflow_id = $1"
		args = append(args, workflowID)
	}

	query += " ORDER BY started_at ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	defer r.closeRows(ctx, rows)

	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func (r *executionRepository) save(ctx context.Context, execution *models.Execution) error {
	triggerData, err := json.Marshal(orEmptyMap(execution.TriggerData))
	if err != nil {
		return fmt.Errorf("failed to encode trigger data: %w", err)
	}

	contextData, err := json.Marshal(orEmptyMap(execution.Context))
	if err != nil {
		return fmt.Errorf("failed to encode context: %w", err)
	}

	nodeResults := execution.NodeResults
	if nodeResults == nil {
		nodeResults = []models.NodeResult{}
	}

	results, err := json.Marshal(nodeResults)
	if err != nil {
		return fmt.Errorf("failed to encode node results: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO executions (
			id, workflow_id, org_id, status, triggered_by, trigger_data, context,
			current_node_id, resume_at, node_results, error, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			context = EXCLUDED.context,
			current_node_id = EXCLUDED.current_node_id,
			resume_at = EXCLUDED.resume_at,
			node_results = EXCLUDED.node_results,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at
	`,
		execution.ID, execution.WorkflowID, execution.OrgID, execution.Status,
		execution.TriggeredBy, triggerData, contextData,
		execution.CurrentNodeID, execution.ResumeAt, results, execution.Error,
		execution.StartedAt, execution.CompletedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	return nil
}

func (r *executionRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution   models.Execution
		triggerData []byte
		contextData []byte
		results     []byte
		resumeAt    sql.NullTime
		completedAt sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.OrgID,
		&execution.Status,
		&execution.TriggeredBy,
		&triggerData,
		&contextData,
		&execution.CurrentNodeID,
		&resumeAt,
		&results,
		&execution.Error,
		&execution.StartedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(triggerData, &execution.TriggerData); err != nil {
		return nil, fmt.Errorf("failed to decode trigger data: %w", err)
	}

	if err := json.Unmarshal(contextData, &execution.Context); err != nil {
		return nil, fmt.Errorf("failed to decode context: %w", err)
	}

	if err := json.Unmarshal(results, &execution.NodeResults); err != nil {
		return nil, fmt.Errorf("failed to decode node results: %w", err)
	}

	if resumeAt.Valid {
		ts := resumeAt.Time
		execution.ResumeAt = &ts
	}

	if completedAt.Valid {
		ts := completedAt.Time
		execution.CompletedAt = &ts
	}

	return &execution, nil
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	return m
}
