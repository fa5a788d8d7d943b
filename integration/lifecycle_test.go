//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schema-shift/internal/executor"
	"github.com/aqasim81/schema-shift/internal/orchestrator"
	"github.com/aqasim81/schema-shift/internal/tracker"
)

// newOrchestrator wires real components onto the pool, mirroring the CLI.
func newOrchestrator(pool *pgxpool.Pool, dir string, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	tr := tracker.New(pool)
	exec := executor.New(pool, tr)

	return orchestrator.New(pool, tr, exec, dir, opts...)
}

func TestLifecycle_applyWithoutRollbackMarker(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeMigration(t, dir, "0001_create_widgets.sql", "CREATE TABLE widgets (id INT);")

	o := newOrchestrator(pool, dir)
	require.NoError(t, o.ApplyAll(ctx))

	assert.True(t, tableExists(t, pool, "widgets"))

	applied, err := tracker.New(pool).GetApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "0001", applied[0].Version)
	assert.Empty(t, applied[0].RollbackScript)

	st, err := o.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.AvailableCount)
	assert.Equal(t, 1, st.AppliedCount)
	assert.Equal(t, 0, st.PendingCount)
}

func TestLifecycle_applyThenRollback_roundTrip(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeMigration(t, dir, "0001_create_widgets.sql",
		"CREATE TABLE widgets (id INT);\n-- ROLLBACK\nDROP TABLE widgets;\n")

	o := newOrchestrator(pool, dir)
	require.NoError(t, o.ApplyAll(ctx))
	require.True(t, tableExists(t, pool, "widgets"))

	require.NoError(t, o.RollbackOne(ctx, "0001"))

	assert.False(t, tableExists(t, pool, "widgets"))

	applied, err := tracker.New(pool).GetApplied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied, "no residual tracking row after rollback")
}

func TestLifecycle_applyAllTwiceIsIdempotent(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeMigration(t, dir, "0001_a.sql", "CREATE TABLE a (id INT);")
	writeMigration(t, dir, "0002_b.sql", "CREATE TABLE b (id INT);")

	o := newOrchestrator(pool, dir)
	require.NoError(t, o.ApplyAll(ctx))
	require.NoError(t, o.ApplyAll(ctx), "second run with no new definitions is a no-op")

	applied, err := tracker.New(pool).GetApplied(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 2)
}

func TestLifecycle_rollbackToVersion_descending(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeMigration(t, dir, "0001_a.sql", "CREATE TABLE a (id INT);\n-- ROLLBACK\nDROP TABLE a;")
	writeMigration(t, dir, "0002_b.sql", "CREATE TABLE b (id INT);\n-- ROLLBACK\nDROP TABLE b;")
	writeMigration(t, dir, "0003_c.sql", "CREATE TABLE c (id INT);\n-- ROLLBACK\nDROP TABLE c;")

	var rolledBack []string
	o := newOrchestrator(pool, dir, orchestrator.WithProgressCallback(func(e orchestrator.ProgressEvent) {
		if e.Status == orchestrator.StatusCompleted {
			rolledBack = append(rolledBack, e.Version)
		}
	}))

	require.NoError(t, o.ApplyAll(ctx))

	rolledBack = nil
	require.NoError(t, o.RollbackToVersion(ctx, "0001"))

	assert.Equal(t, []string{"0003", "0002"}, rolledBack, "0003 before 0002")
	assert.True(t, tableExists(t, pool, "a"))
	assert.False(t, tableExists(t, pool, "b"))
	assert.False(t, tableExists(t, pool, "c"))

	applied, err := tracker.New(pool).GetApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "0001", applied[0].Version)
}

func TestLifecycle_transactionalFailureLeavesNoTrace(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	dir := t.TempDir()

	// The final statement fails: neither the schema change nor the
	// tracking row may be visible afterward.
	writeMigration(t, dir, "0001_broken.sql",
		"CREATE TABLE half_done (id INT);\nINSERT INTO no_such_table VALUES (1);")

	o := newOrchestrator(pool, dir)
	err := o.ApplyAll(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_broken")
	assert.False(t, tableExists(t, pool, "half_done"))

	tr := tracker.New(pool)
	require.NoError(t, tr.EnsureTable(ctx))
	applied, err := tr.GetApplied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestLifecycle_concurrentIndexRunsOutsideTransaction(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeMigration(t, dir, "0001_items.sql", "CREATE TABLE items (id SERIAL PRIMARY KEY, name TEXT);")
	writeMigration(t, dir, "0002_index.sql",
		"CREATE INDEX CONCURRENTLY idx_items_name ON items (name);\nANALYZE items;\n"+
			"-- ROLLBACK\nDROP INDEX idx_items_name;")

	o := newOrchestrator(pool, dir)
	require.NoError(t, o.ApplyAll(ctx))

	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM pg_indexes WHERE indexname = 'idx_items_name')`,
	).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)

	applied, err := tracker.New(pool).GetApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2, "exactly one record per version")
}

func TestLifecycle_rollbackWithoutScriptFailsFast(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeMigration(t, dir, "0001_no_rollback.sql", "CREATE TABLE keepers (id INT);")

	o := newOrchestrator(pool, dir)
	require.NoError(t, o.ApplyAll(ctx))

	err := o.RollbackOne(ctx, "0001")

	require.Error(t, err)
	assert.ErrorIs(t, err, executor.ErrNoRollbackScript)
	assert.True(t, tableExists(t, pool, "keepers"), "schema untouched by the failed rollback")
}

func TestLifecycle_validateDetectsDrift(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeMigration(t, dir, "0001_a.sql", "CREATE TABLE a (id INT);")

	o := newOrchestrator(pool, dir)
	require.NoError(t, o.ApplyAll(ctx))

	issues, err := o.ValidateIntegrity(ctx)
	require.NoError(t, err)
	assert.Empty(t, issues)

	// Mutate the definition after apply.
	writeMigration(t, dir, "0001_a.sql", "CREATE TABLE a (id BIGINT);")

	issues, err = o.ValidateIntegrity(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, orchestrator.IssueChecksumMismatch, issues[0].Kind)
	assert.Equal(t, "0001", issues[0].Version)
}

func TestLifecycle_reapplyAfterRollback(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeMigration(t, dir, "0001_w.sql", "CREATE TABLE w (id INT);\n-- ROLLBACK\nDROP TABLE w;")

	o := newOrchestrator(pool, dir)
	require.NoError(t, o.ApplyAll(ctx))
	require.NoError(t, o.RollbackOne(ctx, "0001"))

	// A rolled-back version reappears in the pending diff and applies again.
	pending, err := o.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, o.ApplyAll(ctx))
	assert.True(t, tableExists(t, pool, "w"))
}
