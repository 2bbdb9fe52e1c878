package app

import (
	"context"
	"log/slog"

	"github.com/leoedu/leobot/internal/database"
	"github.com/leoedu/leobot/internal/rag"
)

// TaskFunc is the signature for scheduled background tasks.
type TaskFunc func(ctx context.Context) error

// Task names as they appear in the scheduler configuration.
const (
	TaskRAGReindex     = "rag_reindex"
	TaskSQLMaintenance = "sql_maintenance"
)

// BuildTaskRegistry wires the background tasks: the hourly index
// rebuild that picks up newly published documents, and the nightly
// database maintenance.
func BuildTaskRegistry(store database.Store, reindexer *rag.Reindexer, logger *slog.Logger) map[string]TaskFunc {
	log := logger.With("component", "tasks")

	return map[string]TaskFunc{
		TaskRAGReindex: func(ctx context.Context) error {
			if err := reindexer.Reindex(ctx); err != nil {
				log.ErrorContext(ctx, "Periodic index rebuild failed", "error", err)

				return err
			}

			return nil
		},
		TaskSQLMaintenance: func(ctx context.Context) error {
			if err := store.RunSQLMaintenance(ctx); err != nil {
				log.ErrorContext(ctx, "Database maintenance failed", "error", err)

				return err
			}

			return nil
		},
	}
}
