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

const workflowColumns = `
	id
  , org_id
  , name
  , description
  , active
  , nodes
  , edges
  , trigger_config
  , cooldown_minutes
  , daily_limit
  , last_triggered_at
  , triggers_fired_today
  , trigger_count_day
  , created_at
  , updated_at
`

type workflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *workflowRepository) getByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+workflowColumns+" FROM workflows WHERE id = $1", id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to scan workflow %s: %w", id, err)
	}

	return workflow, nil
}

func (r *workflowRepository) list(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+workflowColumns+" FROM workflows ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer r.closeRows(ctx, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *workflowRepository) save(ctx context.Context, workflow *models.Workflow) error {
	nodes, err := json.Marshal(workflow.Nodes)
	if err != nil {
		return fmt.Errorf("failed to encode nodes: %w", err)
	}

	edges, err := json.Marshal(workflow.Edges)
	if err != nil {
		return fmt.Errorf("failed to encode edges: %w", err)
	}

	triggerConfig, err := json.Marshal(workflow.TriggerConfig)
	if err != nil {
		return fmt.Errorf("failed to encode trigger config: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflows (
			id, org_id, name, description, active, nodes, edges, trigger_config,
			cooldown_minutes, daily_limit, last_triggered_at, triggers_fired_today,
			trigger_count_day, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			org_id = EXCLUDED.org_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			active = EXCLUDED.active,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			trigger_config = EXCLUDED.trigger_config,
			cooldown_minutes = EXCLUDED.cooldown_minutes,
			daily_limit = EXCLUDED.daily_limit,
			last_triggered_at = EXCLUDED.last_triggered_at,
			triggers_fired_today = EXCLUDED.triggers_fired_today,
			trigger_count_day = EXCLUDED.trigger_count_day,
			updated_at = EXCLUDED.updated_at
	`,
		workflow.ID, workflow.OrgID, workflow.Name, workflow.Description, workflow.Active,
		nodes, edges, triggerConfig,
		workflow.CooldownMinutes, workflow.DailyLimit, workflow.LastTriggeredAt,
		workflow.TriggersFiredToday, workflow.TriggerCountDay,
		workflow.CreatedAt, workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (r *workflowRepository) delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result for workflow %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}

func (r *workflowRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow        models.Workflow
		nodes           []byte
		edges           []byte
		triggerConfig   []byte
		lastTriggeredAt sql.NullTime
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.OrgID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Active,
		&nodes,
		&edges,
		&triggerConfig,
		&workflow.CooldownMinutes,
		&workflow.DailyLimit,
		&lastTriggeredAt,
		&workflow.TriggersFiredToday,
		&workflow.TriggerCountDay,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodes, &workflow.Nodes); err != nil {
		return nil, fmt.Errorf("failed to decode nodes: %w", err)
	}

	if err := json.Unmarshal(edges, &workflow.Edges); err != nil {
		return nil, fmt.Errorf("failed to decode edges: %w", err)
	}

	if err := json.Unmarshal(triggerConfig, &workflow.TriggerConfig); err != nil {
		return nil, fmt.Errorf("failed to decode trigger config: %w", err)
	}

	if lastTriggeredAt.Valid {
		ts := lastTriggeredAt.Time
		workflow.LastTriggeredAt = &ts
	}

	return &workflow, nil
}
