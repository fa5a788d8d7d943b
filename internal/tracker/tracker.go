package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AppliedMigration represents a row from the schema_migrations table.
type AppliedMigration struct {
	Version        string
	Name           string
	AppliedAt      time.Time
	RollbackScript string
	Checksum       string
}

// RecordParams contains the fields needed to record a migration as applied.
type RecordParams struct {
	Version        string
	Name           string
	RollbackScript string
	Checksum       string
}

// DBTX is the subset of pgx execution methods shared by *pgxpool.Pool,
// *pgxpool.Conn, and pgx.Tx. Write operations accept it so the executor can
// run them inside its own transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Tracker manages the schema_migrations table.
type Tracker struct {
	pool *pgxpool.Pool
}

// New creates a Tracker backed by the given connection pool.
func New(pool *pgxpool.Pool) *Tracker {
	return &Tracker{pool: pool}
}

// EnsureTable creates the schema_migrations table and its version index if
// they do not exist. Safe to call on every startup.
func (t *Tracker) EnsureTable(ctx context.Context) error {
	_, err := t.pool.Exec(ctx, createSchemaSQL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTableCreation, err)
	}

	return nil
}

// IsApplied checks whether a migration version has been applied.
func (t *Tracker) IsApplied(ctx context.Context, version string) (bool, error) {
	var exists bool

	err := t.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`,
		version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking if migration %s is applied: %w", version, err)
	}

	return exists, nil
}

// GetApplied returns all applied migrations ordered by version ascending.
func (t *Tracker) GetApplied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := t.pool.Query(ctx,
		`SELECT version, name, applied_at, rollback_script, checksum
		 FROM schema_migrations
		 ORDER BY version`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	applied, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (AppliedMigration, error) {
		var m AppliedMigration
		if scanErr := row.Scan(&m.Version, &m.Name, &m.AppliedAt, &m.RollbackScript, &m.Checksum); scanErr != nil {
			return AppliedMigration{}, fmt.Errorf("scanning migration row: %w", scanErr)
		}

		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning applied migrations: %w", err)
	}

	return applied, nil
}

// GetRecord returns the tracking row for a single version.
func (t *Tracker) GetRecord(ctx context.Context, version string) (AppliedMigration, error) {
	var m AppliedMigration

	err := t.pool.QueryRow(ctx,
		`SELECT version, name, applied_at, rollback_script, checksum
		 FROM schema_migrations
		 WHERE version = $1`,
		version,
	).Scan(&m.Version, &m.Name, &m.AppliedAt, &m.RollbackScript, &m.Checksum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AppliedMigration{}, fmt.Errorf("migration %s: %w", version, ErrMigrationNotFound)
		}

		return AppliedMigration{}, fmt.Errorf("getting record for migration %s: %w", version, err)
	}

	return m, nil
}

// RecordApplied inserts the tracking row for a newly applied migration on
// the given handle, which may be a pool, a single connection, or an open
// transaction. A plain insert, not an upsert: the unique constraint on
// version is the backstop against double-application.
func (t *Tracker) RecordApplied(ctx context.Context, db DBTX, p RecordParams) error {
	_, err := db.Exec(ctx,
		`INSERT INTO schema_migrations (version, name, rollback_script, checksum)
		 VALUES ($1, $2, $3, $4)`,
		p.Version, p.Name, p.RollbackScript, p.Checksum,
	)
	if err != nil {
		return fmt.Errorf("recording migration %s as applied: %w", p.Version, err)
	}

	return nil
}

// RemoveApplied deletes the tracking row for a rolled-back migration on the
// given handle.
func (t *Tracker) RemoveApplied(ctx context.Context, db DBTX, version string) error {
	tag, err := db.Exec(ctx,
		`DELETE FROM schema_migrations WHERE version = $1`,
		version,
	)
	if err != nil {
		return fmt.Errorf("removing migration %s record: %w", version, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("migration %s: %w", version, ErrMigrationNotFound)
	}

	return nil
}

// GetChecksum returns the recorded checksum for a migration version.
func (t *Tracker) GetChecksum(ctx context.Context, version string) (string, error) {
	var checksum string

	err := t.pool.QueryRow(ctx,
		`SELECT checksum FROM schema_migrations WHERE version = $1`,
		version,
	).Scan(&checksum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("migration %s: %w", version, ErrMigrationNotFound)
		}

		return "", fmt.Errorf("getting checksum for migration %s: %w", version, err)
	}

	return checksum, nil
}
