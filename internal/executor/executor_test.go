package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schema-shift/internal/executor"
	"github.com/aqasim81/schema-shift/internal/tracker"
)

func TestDetectMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sql      string
		wantMode executor.Mode
	}{
		{
			name:     "plain DDL is transactional",
			sql:      "CREATE TABLE widgets (id INT);",
			wantMode: executor.ModeTransactional,
		},
		{
			name:     "regular index is transactional",
			sql:      "CREATE INDEX idx_widgets_id ON widgets (id);",
			wantMode: executor.ModeTransactional,
		},
		{
			name:     "create index concurrently",
			sql:      "CREATE INDEX CONCURRENTLY idx_widgets_id ON widgets (id);",
			wantMode: executor.ModeNonTransactional,
		},
		{
			name:     "drop index concurrently",
			sql:      "DROP INDEX CONCURRENTLY idx_widgets_id;",
			wantMode: executor.ModeNonTransactional,
		},
		{
			name:     "concurrent index among ordinary statements",
			sql:      "CREATE TABLE t (id INT); CREATE INDEX CONCURRENTLY idx ON t (id); ANALYZE t;",
			wantMode: executor.ModeNonTransactional,
		},
		{
			name:     "concurrently in a string literal is transactional",
			sql:      "INSERT INTO notes (body) VALUES ('build it concurrently');",
			wantMode: executor.ModeTransactional,
		},
		{
			name:     "unparseable script with concurrently falls back to non-transactional",
			sql:      "CREAT INDEX CONCURRENTLY broken ON t (id);",
			wantMode: executor.ModeNonTransactional,
		},
		{
			name:     "unparseable script without concurrently stays transactional",
			sql:      "CREAT TABLE broken (id INT);",
			wantMode: executor.ModeTransactional,
		},
		{
			name:     "empty script is transactional",
			sql:      "",
			wantMode: executor.ModeTransactional,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			decision := executor.DetectMode(tt.sql)

			assert.Equal(t, tt.wantMode, decision.Mode)

			if tt.wantMode == executor.ModeNonTransactional {
				assert.NotEmpty(t, decision.Reason)
			} else {
				assert.Empty(t, decision.Reason)
			}
		})
	}
}

func TestModeDecision_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "transactional", executor.ModeDecision{Mode: executor.ModeTransactional}.String())
	assert.Equal(t, "non-transactional (why)", executor.ModeDecision{
		Mode:   executor.ModeNonTransactional,
		Reason: "why",
	}.String())
}

func TestRollback_missingScript_failsBeforeAnyStatement(t *testing.T) {
	t.Parallel()

	// A nil pool proves no database work happens: reaching the pool would panic.
	exec := executor.New(nil, nil)

	err := exec.Rollback(context.Background(), tracker.AppliedMigration{
		Version: "0001",
		Name:    "create_widgets",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, executor.ErrNoRollbackScript)
	assert.Contains(t, err.Error(), "0001_create_widgets")
}

func TestRollback_whitespaceScript_failsBeforeAnyStatement(t *testing.T) {
	t.Parallel()

	exec := executor.New(nil, nil)

	err := exec.Rollback(context.Background(), tracker.AppliedMigration{
		Version:        "0002",
		Name:           "add_index",
		RollbackScript: "   \n\t ",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, executor.ErrNoRollbackScript)
}

func TestErrNoRollbackScript_message(t *testing.T) {
	t.Parallel()

	assert.EqualError(t, executor.ErrNoRollbackScript, "no rollback script recorded")
}
