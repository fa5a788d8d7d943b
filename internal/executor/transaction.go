package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExecInTransaction runs fn inside a database transaction on one pooled
// connection. On success the transaction is committed; on any error it is
// rolled back, so nothing fn did is visible afterward.
func ExecInTransaction(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // rollback on committed tx returns ErrTxClosed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// setTimeouts applies lock_timeout and statement_timeout inside a
// transaction so a migration fails fast instead of queueing behind other
// sessions' locks. Zero values leave the session defaults untouched.
func setTimeouts(ctx context.Context, tx pgx.Tx, lock, statement time.Duration) error {
	if lock > 0 {
		sql := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lock.Milliseconds())
		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("setting lock_timeout: %w", err)
		}
	}

	if statement > 0 {
		sql := fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", statement.Milliseconds())
		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("setting statement_timeout: %w", err)
		}
	}

	return nil
}
