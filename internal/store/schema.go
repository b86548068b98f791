package store

import "context"

// Dialect identifies which SQL dialect a TransactionContext's underlying
// connection speaks, so repository-layer code (internal/store/repository.go)
// can pick placeholder syntax and upsert-ignore statements without needing
// the Engine itself.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// SQLiteSchema is the DDL for the file-backed engine, matching the logical
// schema of spec.md §6.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS cron_definitions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL UNIQUE,
	description     TEXT NOT NULL DEFAULT '',
	cron_expression TEXT NOT NULL,
	handler_name    TEXT NOT NULL,
	handler_params  TEXT NOT NULL DEFAULT '{}',
	is_enabled      INTEGER NOT NULL DEFAULT 1,
	allow_overlap   INTEGER NOT NULL DEFAULT 0,
	max_retry       INTEGER NOT NULL DEFAULT 3,
	timeout_seconds INTEGER NOT NULL DEFAULT 300,
	created_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	updated_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE TABLE IF NOT EXISTS executions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id          INTEGER REFERENCES cron_definitions(id) ON DELETE SET NULL,
	scheduled_time  TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'PENDING',
	handler_name    TEXT NOT NULL,
	handler_params  TEXT NOT NULL DEFAULT '{}',
	max_retry       INTEGER NOT NULL DEFAULT 3,
	timeout_seconds INTEGER NOT NULL DEFAULT 300,
	started_at      TEXT,
	finished_at     TEXT,
	retry_count     INTEGER NOT NULL DEFAULT 0,
	error_message   TEXT,
	result          TEXT,
	created_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	UNIQUE(job_id, scheduled_time)
);

CREATE INDEX IF NOT EXISTS idx_executions_status_scheduled ON executions(status, scheduled_time);
CREATE INDEX IF NOT EXISTS idx_executions_job_status ON executions(job_id, status);
`

// PostgresSchema is the DDL for the remote engine.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS cron_definitions (
	id              BIGSERIAL PRIMARY KEY,
	name            TEXT NOT NULL UNIQUE,
	description     TEXT NOT NULL DEFAULT '',
	cron_expression TEXT NOT NULL,
	handler_name    TEXT NOT NULL,
	handler_params  TEXT NOT NULL DEFAULT '{}',
	is_enabled      BOOLEAN NOT NULL DEFAULT TRUE,
	allow_overlap   BOOLEAN NOT NULL DEFAULT FALSE,
	max_retry       INTEGER NOT NULL DEFAULT 3,
	timeout_seconds INTEGER NOT NULL DEFAULT 300,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS executions (
	id              BIGSERIAL PRIMARY KEY,
	job_id          BIGINT REFERENCES cron_definitions(id) ON DELETE SET NULL,
	scheduled_time  TIMESTAMPTZ NOT NULL,
	status          TEXT NOT NULL DEFAULT 'PENDING',
	handler_name    TEXT NOT NULL,
	handler_params  TEXT NOT NULL DEFAULT '{}',
	max_retry       INTEGER NOT NULL DEFAULT 3,
	timeout_seconds INTEGER NOT NULL DEFAULT 300,
	started_at      TIMESTAMPTZ,
	finished_at     TIMESTAMPTZ,
	retry_count     INTEGER NOT NULL DEFAULT 0,
	error_message   TEXT,
	result          TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(job_id, scheduled_time)
);

CREATE INDEX IF NOT EXISTS idx_executions_status_scheduled ON executions(status, scheduled_time);
CREATE INDEX IF NOT EXISTS idx_executions_job_status ON executions(job_id, status);
`

// Migrate applies the schema for e's dialect outside of any application
// transaction, intended to run once at process start before the
// dispatcher/worker/admin processes begin.
func (e *SQLiteEngine) Migrate(ctx context.Context) error {
	_, err := e.db.ExecContext(ctx, SQLiteSchema)
	return err
}

// Migrate applies the schema for e's dialect outside of any application
// transaction.
func (e *PostgresEngine) Migrate(ctx context.Context) error {
	_, err := e.pool.Exec(ctx, PostgresSchema)
	return err
}
