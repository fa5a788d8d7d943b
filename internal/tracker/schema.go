package tracker

// TableName is the tracking table identifier. It is a compile-time constant
// on purpose: no caller-supplied identifier is ever interpolated into SQL.
const TableName = "schema_migrations"

// createSchemaSQL is the DDL for the schema_migrations tracking table and
// its supporting version index. Both statements are idempotent so EnsureTable
// can run on every startup.
const createSchemaSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version          TEXT NOT NULL UNIQUE,
    name             TEXT NOT NULL,
    applied_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    rollback_script  TEXT NOT NULL DEFAULT '',
    checksum         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_schema_migrations_version ON schema_migrations (version)`
