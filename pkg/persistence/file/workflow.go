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

type workflowRepository struct {
	root string
}

func (r *workflowRepository) path(id string) string {
	return filepath.Join(r.root, "workflows", id+".json")
}

func (r *workflowRepository) getByID(_ context.Context, id string) (*models.Workflow, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to decode workflow %s: %w", id, err)
	}

	return &workflow, nil
}

func (r *workflowRepository) save(_ context.Context, workflow *models.Workflow) error {
	if _, err := ensureDir(r.root, "workflows"); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workflow %s: %w", workflow.ID, err)
	}

	if err := os.WriteFile(r.path(workflow.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write workflow file: %w", err)
	}

	return nil
}

func (r *workflowRepository) list(ctx context.Context) ([]*models.Workflow, error) {
	root := os.DirFS(filepath.Join(r.root, "workflows"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflow, err := r.getByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// Workflows returns every stored workflow ordered by creation time.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	if _, err := os.Stat(filepath.Join(p.root, "workflows")); os.IsNotExist(err) {
		return []*models.Workflow{}, nil
	}

	return p.workflows.list(ctx)
}

// WorkflowByID fetches one workflow.
func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return p.workflows.getByID(ctx, id)
}

// SaveWorkflow writes a workflow document.
func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.workflows.save(ctx, workflow)
}

// DeleteWorkflow removes a workflow document.
func (p *Persistence) DeleteWorkflow(_ context.Context, id string) error {
	err := os.Remove(p.workflows.path(id))
	if os.IsNotExist(err) {
		return persistence.ErrWorkflowNotFound
	}

	return err
}
