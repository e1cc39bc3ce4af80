package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps wakeups in a single JSON file, keyed by execution ID.
type FileStore struct {
	dataDir string
	mu      sync.RWMutex
	wakeups map[string]*Wakeup
}

// NewFileStore creates a file-backed wakeup store and loads any wakeups
// persisted by a previous run.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	fs := &FileStore{
		dataDir: dataDir,
		wakeups: make(map[string]*Wakeup),
	}

	if err := fs.load(); err != nil {
		return nil, fmt.Errorf("failed to load wakeups: %w", err)
	}

	return fs, nil
}

func (fs *FileStore) SaveWakeup(_ context.Context, wakeup *Wakeup) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.wakeups[wakeup.ExecutionID] = wakeup

	return fs.flush()
}

func (fs *FileStore) DueWakeups(_ context.Context, before time.Time) ([]*Wakeup, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var due []*Wakeup

	for _, wakeup := range fs.wakeups {
		if !wakeup.ResumeAt.After(before) {
			due = append(due, wakeup)
		}
	}

	return due, nil
}

func (fs *FileStore) DeleteWakeup(_ context.Context, executionID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(fs.wakeups, executionID)

	return fs.flush()
}

func (fs *FileStore) Close(_ context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.flush()
}

func (fs *FileStore) load() error {
	file := filepath.Join(fs.dataDir, "wakeups.json")

	if _, err := os.Stat(file); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(file) // #nosec G304 -- path is constructed from controlled dataDir
	if err != nil {
		return fmt.Errorf("failed to read wakeups file: %w", err)
	}

	var wakeups []*Wakeup
	if err := json.Unmarshal(data, &wakeups); err != nil {
		return fmt.Errorf("failed to unmarshal wakeups: %w", err)
	}

	for _, wakeup := range wakeups {
		fs.wakeups[wakeup.ExecutionID] = wakeup
	}

	return nil
}

func (fs *FileStore) flush() error {
	file := filepath.Join(fs.dataDir, "wakeups.json")

	wakeups := make([]*Wakeup, 0, len(fs.wakeups))
	for _, wakeup := range fs.wakeups {
		wakeups = append(wakeups, wakeup)
	}

	data, err := json.MarshalIndent(wakeups, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wakeups: %w", err)
	}

	if err := os.WriteFile(file, data, 0o600); err != nil {
		return fmt.Errorf("failed to write wakeups file: %w", err)
	}

	return nil
}
