package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/persistence"
)

type executionRepository struct {
	root string
}

func (r *executionRepository) path(id string) string {
	return filepath.Join(r.root, "executions", id+".json")
}

func (r *executionRepository) getByID(_ context.Context, id string) (*models.Execution, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to read execution file: %w", err)
	}

	var execution models.Execution
	if err := json.Unmarshal(data, &execution); err != nil {
		return nil, fmt.Errorf("failed to decode execution %s: %w", id, err)
	}

	return &execution, nil
}

func (r *executionRepository) save(_ context.Context, execution *models.Execution) error {
	if _, err := ensureDir(r.root, "executions"); err != nil {
		return fmt.Errorf("failed to create executions directory: %w", err)
	}

	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode execution %s: %w", execution.ID, err)
	}

	if err := os.WriteFile(r.path(execution.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write execution file: %w", err)
	}

	return nil
}

// Executions returns the executions of a workflow, oldest first. An empty
// workflowID returns every stored execution.
func (p *Persistence) Executions(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	dir := filepath.Join(p.root, "executions")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return []*models.Execution{}, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	executions := make([]*models.Execution, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		execution, err := p.executions.getByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		if workflowID != "" && execution.WorkflowID != workflowID {
			continue
		}

		executions = append(executions, execution)
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.Before(executions[j].StartedAt)
	})

	return executions, nil
}

// ExecutionByID fetches one execution.
func (p *Persistence) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	return p.executions.getByID(ctx, id)
}

// SaveExecution writes an execution document.
func (p *Persistence) SaveExecution(ctx context.Context, execution *models.Execution) error {
	return p.executions.save(ctx, execution)
}
