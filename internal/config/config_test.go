package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/schema-shift/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "migrate.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestNew_defaults(t *testing.T) {
	t.Parallel()

	cfg := config.New()

	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, config.DefaultMigrationsDir, cfg.MigrationsDir)
	assert.Equal(t, config.DefaultLockTimeout, cfg.LockTimeout)
	assert.Equal(t, config.DefaultStatementTimeout, cfg.StatementTimeout)
	assert.Equal(t, config.DefaultFormat, cfg.Format)
}

func TestLoad_fullFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
database_url: postgres://u:p@localhost:5432/db
migrations_dir: ./db/migrations
lock_timeout: 10s
statement_timeout: 2m
format: json
`)

	cfg, err := config.Load(path, false)

	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost:5432/db", cfg.DatabaseURL)
	assert.Equal(t, "./db/migrations", cfg.MigrationsDir)
	assert.Equal(t, 10*time.Second, cfg.LockTimeout)
	assert.Equal(t, 2*time.Minute, cfg.StatementTimeout)
	assert.Equal(t, "json", cfg.Format)
}

func TestLoad_partialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "database_url: postgres://localhost/db\n")

	cfg, err := config.Load(path, false)

	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/db", cfg.DatabaseURL)
	assert.Equal(t, config.DefaultMigrationsDir, cfg.MigrationsDir)
	assert.Equal(t, config.DefaultLockTimeout, cfg.LockTimeout)
}

func TestLoad_missingFileAllowed(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"), true)

	require.NoError(t, err)
	assert.Equal(t, config.DefaultMigrationsDir, cfg.MigrationsDir)
}

func TestLoad_missingFileNotAllowed(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yml"), false)

	require.Error(t, err)
}

func TestLoad_invalidYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "database_url: [unclosed\n")

	_, err := config.Load(path, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_invalidDuration(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "lock_timeout: soon\n")

	_, err := config.Load(path, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock_timeout")
}

func TestMergeEnv_overrides(t *testing.T) { //nolint:paralleltest // mutates process environment
	t.Setenv("MIGRATE_DATABASE_URL", "postgres://env/db")
	t.Setenv("MIGRATE_MIGRATIONS_DIR", "/env/migrations")
	t.Setenv("MIGRATE_LOCK_TIMEOUT", "7s")
	t.Setenv("MIGRATE_STATEMENT_TIMEOUT", "90s")

	cfg := config.New()
	config.MergeEnv(cfg)

	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
	assert.Equal(t, "/env/migrations", cfg.MigrationsDir)
	assert.Equal(t, 7*time.Second, cfg.LockTimeout)
	assert.Equal(t, 90*time.Second, cfg.StatementTimeout)
}

func TestMergeEnv_invalidDurationIgnored(t *testing.T) { //nolint:paralleltest // mutates process environment
	t.Setenv("MIGRATE_LOCK_TIMEOUT", "whenever")

	cfg := config.New()
	config.MergeEnv(cfg)

	assert.Equal(t, config.DefaultLockTimeout, cfg.LockTimeout)
}
