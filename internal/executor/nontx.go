package executor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aqasim81/schema-shift/internal/migration"
	"github.com/aqasim81/schema-shift/internal/parser"
	"github.com/aqasim81/schema-shift/internal/tracker"
)

// applyNonTransactional executes a forward script whose statements cannot
// run inside a transaction block.
//
// The schema work happens on a dedicated connection: any open transaction
// on it is force-terminated first, then each statement runs in the engine's
// implicit autocommit context. A statement failure stops the run and leaves
// the statements already executed in place — this strategy trades atomicity
// of the schema change for the engine's restriction, and the caller's error
// says so.
//
// On success the connection's session state is reset and it is released
// before a second, fresh connection records the tracking row in its own
// transaction. The two failure domains stay decoupled: a crash while
// recording does not mean the schema change must be redone, and vice versa.
func (e *Executor) applyNonTransactional(ctx context.Context, m *migration.Migration) error {
	stmts, err := parser.SplitStatements(m.UpSQL)
	if err != nil {
		// Unsplittable scripts still run, as a single autocommit statement.
		stmts = []string{m.UpSQL}
	}

	if err := e.runAutocommit(ctx, stmts); err != nil {
		return err
	}

	return e.recordDecoupled(ctx, m)
}

// runAutocommit acquires a connection, guarantees a clean transaction
// state, and executes each statement in autocommit. The connection is
// released on every exit path.
func (e *Executor) runAutocommit(ctx context.Context, stmts []string) error {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	// A pooled connection should never arrive mid-transaction, but these
	// statements must not run inside one; terminate anything open. The
	// server answers a bare ROLLBACK outside a transaction with a notice,
	// not an error.
	if _, err := conn.Exec(ctx, "ROLLBACK"); err != nil {
		return fmt.Errorf("clearing transaction state: %w", err)
	}

	for i, stmt := range stmts {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf(
				"statement %d of %d failed (earlier statements remain applied): %w",
				i+1, len(stmts), err,
			)
		}
	}

	// Session-local settings must not leak into whoever reuses this
	// connection from the pool.
	if _, err := conn.Exec(ctx, "RESET ALL"); err != nil {
		return fmt.Errorf("resetting session state: %w", err)
	}

	return nil
}

// recordDecoupled writes the tracking row in its own transaction on a fresh
// connection, after the schema work's connection has been released.
func (e *Executor) recordDecoupled(ctx context.Context, m *migration.Migration) error {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection for bookkeeping: %w", err)
	}
	defer conn.Release()

	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		return e.tracker.RecordApplied(ctx, tx, tracker.RecordParams{
			Version:        m.Version,
			Name:           m.Name,
			RollbackScript: m.DownSQL,
			Checksum:       m.Checksum,
		})
	})
	if err != nil {
		return fmt.Errorf("recording applied migration (schema change already committed): %w", err)
	}

	return nil
}
