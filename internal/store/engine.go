// Package store implements the connection pool, transaction context, ambient
// transaction registry, and multi-database transaction decorator described
// in spec.md §4.1-4.3: the coordination surface every other package in this
// repository issues SQL through.
package store

import (
	"context"
	"errors"
)

// Sentinel errors forming the error taxonomy of spec.md §7.
var (
	// ErrPoolExhausted is returned when a connection could not be acquired
	// within the engine's configured pool timeout.
	ErrPoolExhausted = errors.New("store: pool exhausted")
	// ErrReadonlyViolation is returned when a write statement is attempted
	// under a readonly TransactionContext, before it reaches the connection.
	ErrReadonlyViolation = errors.New("store: write attempted under readonly transaction")
	// ErrNoActiveTransaction is returned by the ambient registry when a
	// lookup finds no bound TransactionContext for the requested DB name.
	ErrNoActiveTransaction = errors.New("store: no active transaction for db")
	// ErrNoRows is returned by FetchOne/FetchVal when the query produced no
	// rows. Mirrors sql.ErrNoRows without forcing callers to import it.
	ErrNoRows = errors.New("store: no rows")
	// ErrDuplicateName is returned when a cron definition's name collides
	// with an existing one (admin API's 409).
	ErrDuplicateName = errors.New("store: duplicate name")
	// ErrInvalidRetryState is returned when RetryExecution is attempted on
	// a row that is not currently FAILED or TIMEOUT (admin API's 400).
	ErrInvalidRetryState = errors.New("store: execution is not in a retryable state")
)

// Row is satisfied by both *sql.Row and pgx.Row.
type Row interface {
	Scan(dest ...any) error
}

// Rows is satisfied by both *sql.Rows and pgx.Rows.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}

// tx is the minimal transaction surface both the pgx and database/sql
// wrappers implement. It is unexported: callers only ever see it through
// TransactionContext.
type tx interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Engine is a named database: a pooled connection source capable of opening
// transactions with readonly/writer semantics appropriate to the backing
// driver (DEFERRED vs IMMEDIATE for SQLite, a plain BEGIN for Postgres).
//
// spec.md §1 treats the database as "an abstract pool that yields
// connections"; Engine is that abstraction, with exactly two concrete
// implementations: PostgresEngine (the "remote engine") and SQLiteEngine
// (the "file-backed engine").
type Engine interface {
	// Name returns the DB name this engine is bound to in the ambient
	// registry and in RunInTransaction's dbs argument.
	Name() string

	// Begin acquires a connection (subject to the pool timeout, returning
	// ErrPoolExhausted if exceeded) and opens a transaction on it.
	Begin(ctx context.Context, readonly bool) (*TransactionContext, error)

	// Migrate applies the schema for the engine's dialect.
	Migrate(ctx context.Context) error

	// Close shuts down the underlying pool. Safe to call once at process
	// shutdown.
	Close() error
}
