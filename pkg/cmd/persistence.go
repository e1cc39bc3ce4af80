package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/edupulse/pulseflow/pkg/persistence"
	"github.com/edupulse/pulseflow/pkg/persistence/file"
	"github.com/edupulse/pulseflow/pkg/persistence/postgresql"
)

// NewPersistence resolves a database URL into a storage backend. postgres://
// URLs get the PostgreSQL provider; everything else falls back to the file
// store, which treats the URL as a directory path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
