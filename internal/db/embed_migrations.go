package db

import "embed"

// MigrationFS embeds the Postgres SQL migrations from internal/db/migrations.
// Used by the migrate runner (cmd/migrate) to apply migrations.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS

// SQLiteSchema creates the same tables for SQLite. Used by repository tests and
// sqlite:// development databases, which golang-migrate's Postgres driver cannot serve.
//
//go:embed schema_sqlite.sql
var SQLiteSchema string
