// Package file provides file-based persistence for workflows and executions.
// Each record is one JSON document under the root directory.
package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/edupulse/pulseflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
// The mutex serializes RecordTrigger's read-modify-write; plain reads and
// writes only need it against concurrent trigger bookkeeping on the same
// workflow file.
type Persistence struct {
	root string
	mu   sync.Mutex

	workflows  *workflowRepository
	executions *executionRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
// A "file://" prefix is tolerated so database URLs can be passed through.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:       cleanRoot,
		workflows:  &workflowRepository{root: cleanRoot},
		executions: &executionRepository{root: cleanRoot},
	}
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// RecordTrigger applies the cooldown and daily-limit gates and, when both
// pass, records the accepted trigger, all under the store lock.
func (p *Persistence) RecordTrigger(ctx context.Context, workflowID string, now time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	workflow, err := p.workflows.getByID(ctx, workflowID)
	if err != nil {
		return false, persistence.NewWorkflowError("RecordTrigger", workflowID, err)
	}

	if workflow.InCooldown(now) || workflow.DailyLimitReached(now) {
		return false, nil
	}

	workflow.RecordTrigger(now)
	workflow.UpdatedAt = now

	if err := p.workflows.save(ctx, workflow); err != nil {
		return false, persistence.NewWorkflowError("RecordTrigger", workflowID, err)
	}

	return true, nil
}

func ensureDir(root, kind string) (string, error) {
	dir := filepath.Join(root, kind)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}

	return dir, nil
}
