package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/aqasim81/schema-shift/internal/config"
	"github.com/aqasim81/schema-shift/internal/database"
	"github.com/aqasim81/schema-shift/internal/executor"
	"github.com/aqasim81/schema-shift/internal/orchestrator"
	"github.com/aqasim81/schema-shift/internal/tracker"
)

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New(
	"database URL is required (set --database-url, MIGRATE_DATABASE_URL, or database_url in config)",
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

func connectDB(ctx context.Context, cfg *config.Config, out io.Writer) (*pgxpool.Pool, error) {
	fmt.Fprintf(out, "Connecting to %s\n", config.RedactURL(cfg.DatabaseURL))

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return pool, nil
}

// newOrchestrator wires the tracker, executor, and orchestrator onto one
// pool, with progress reported to the command's writer.
func newOrchestrator(pool *pgxpool.Pool, cfg *config.Config, out io.Writer, extra ...orchestrator.Option) *orchestrator.Orchestrator {
	t := tracker.New(pool)

	exec := executor.New(pool, t,
		executor.WithLockTimeout(cfg.LockTimeout),
		executor.WithStatementTimeout(cfg.StatementTimeout),
	)

	opts := append([]orchestrator.Option{
		orchestrator.WithProgressCallback(progressPrinter(out)),
	}, extra...)

	return orchestrator.New(pool, t, exec, cfg.MigrationsDir, opts...)
}

func progressPrinter(out io.Writer) func(orchestrator.ProgressEvent) {
	return func(event orchestrator.ProgressEvent) {
		switch event.Status {
		case orchestrator.StatusStarting:
			fmt.Fprintf(out, "  %s_%s ... ", event.Version, event.Name)
		case orchestrator.StatusCompleted:
			fmt.Fprintf(out, "done (%s)\n", event.Duration.Truncate(time.Millisecond))
		case orchestrator.StatusSkipped:
			fmt.Fprintf(out, "  %s_%s (dry run, skipped)\n", event.Version, event.Name)
		case orchestrator.StatusFailed:
			fmt.Fprintf(out, "FAILED\n    Error: %v\n", event.Error)
		}
	}
}
