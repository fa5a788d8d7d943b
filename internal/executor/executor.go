package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqasim81/schema-shift/internal/migration"
	"github.com/aqasim81/schema-shift/internal/tracker"
)

// MigrationTracker abstracts schema_migrations writes for testability. The
// write methods take a tracker.DBTX so the executor can run them inside its
// own transaction.
type MigrationTracker interface {
	RecordApplied(ctx context.Context, db tracker.DBTX, p tracker.RecordParams) error
	RemoveApplied(ctx context.Context, db tracker.DBTX, version string) error
}

// Executor applies or rolls back exactly one migration at a time. The
// execution strategy is decided once per migration by DetectMode: ordinary
// scripts run with their tracking insert in a single transaction; scripts
// containing statements PostgreSQL refuses inside a transaction block run
// statement by statement in autocommit, with the tracking insert decoupled
// into its own transaction on a fresh connection.
type Executor struct {
	pool             *pgxpool.Pool
	tracker          MigrationTracker
	lockTimeout      time.Duration
	statementTimeout time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithLockTimeout sets the per-transaction lock_timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Executor) { e.lockTimeout = d }
}

// WithStatementTimeout sets the per-transaction statement_timeout.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Executor) { e.statementTimeout = d }
}

// New creates an Executor with the given pool, tracker, and options.
func New(pool *pgxpool.Pool, t MigrationTracker, opts ...Option) *Executor {
	e := &Executor{
		pool:    pool,
		tracker: t,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Apply executes one migration's forward script and records it as applied,
// choosing the execution strategy up front. The returned error always
// carries the migration's version and name.
func (e *Executor) Apply(ctx context.Context, m *migration.Migration) error {
	decision := DetectMode(m.UpSQL)

	var err error

	if decision.Mode == ModeNonTransactional {
		err = e.applyNonTransactional(ctx, m)
	} else {
		err = e.applyTransactional(ctx, m)
	}

	if err != nil {
		return fmt.Errorf("applying migration %s_%s: %w", m.Version, m.Name, err)
	}

	return nil
}

// applyTransactional runs the forward script and the tracking insert in one
// transaction. A failure anywhere rolls both back: afterward neither the
// schema change nor the tracking row is visible, and a crash mid-execution
// leaves the database in the pre-migration state.
func (e *Executor) applyTransactional(ctx context.Context, m *migration.Migration) error {
	return ExecInTransaction(ctx, e.pool, func(tx pgx.Tx) error {
		if err := setTimeouts(ctx, tx, e.lockTimeout, e.statementTimeout); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, m.UpSQL); err != nil {
			return fmt.Errorf("executing forward script: %w", err)
		}

		return e.tracker.RecordApplied(ctx, tx, tracker.RecordParams{
			Version:        m.Version,
			Name:           m.Name,
			RollbackScript: m.DownSQL,
			Checksum:       m.Checksum,
		})
	})
}

// Rollback reverses one applied migration: the stored rollback script and
// the tracking-row delete run in a single transaction. It fails before
// touching the database when no rollback script was recorded. A failed
// rollback retains the tracking row, since the migration is still applied.
func (e *Executor) Rollback(ctx context.Context, rec tracker.AppliedMigration) error {
	if strings.TrimSpace(rec.RollbackScript) == "" {
		return fmt.Errorf("migration %s_%s: %w", rec.Version, rec.Name, ErrNoRollbackScript)
	}

	err := ExecInTransaction(ctx, e.pool, func(tx pgx.Tx) error {
		if err := setTimeouts(ctx, tx, e.lockTimeout, e.statementTimeout); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, rec.RollbackScript); err != nil {
			return fmt.Errorf("executing rollback script: %w", err)
		}

		return e.tracker.RemoveApplied(ctx, tx, rec.Version)
	})
	if err != nil {
		return fmt.Errorf("rolling back migration %s_%s: %w", rec.Version, rec.Name, err)
	}

	return nil
}
