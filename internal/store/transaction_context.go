package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// writeKeywords are the leading SQL keywords a readonly TransactionContext
// refuses, per spec.md §4.1.
var writeKeywords = map[string]bool{
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"CREATE":   true,
	"DROP":     true,
	"ALTER":    true,
	"TRUNCATE": true,
}

// TransactionContext wraps one connection's open transaction with readonly
// enforcement, matching spec.md §4.1's TransactionContext value type
// (connection + readonly flag + in-transaction flag).
//
// TransactionContext is grounded on original_source's ManagedTransaction:
// execute/executemany/fetch_one/fetch_all/fetch_val, all logged at debug
// with the SQL text collapsed to one line.
type TransactionContext struct {
	dbName   string
	dialect  Dialect
	readonly bool
	logger   *slog.Logger

	mu     sync.Mutex
	t      tx
	active bool
}

func newTransactionContext(dbName string, dialect Dialect, readonly bool, t tx, logger *slog.Logger) *TransactionContext {
	return &TransactionContext{
		dbName:   dbName,
		dialect:  dialect,
		readonly: readonly,
		logger:   logger,
		t:        t,
		active:   true,
	}
}

// Readonly reports whether this context rejects write statements.
func (c *TransactionContext) Readonly() bool { return c.readonly }

// DBName returns the name of the database this context is bound to.
func (c *TransactionContext) DBName() string { return c.dbName }

// Dialect reports which SQL dialect the underlying connection speaks, so
// repository-layer code can choose placeholder syntax and upsert statements.
func (c *TransactionContext) Dialect() Dialect { return c.dialect }

func (c *TransactionContext) guardWrite(query string) error {
	if !c.readonly {
		return nil
	}
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return nil
	}
	leading := strings.ToUpper(fields[0])
	if writeKeywords[leading] {
		return fmt.Errorf("%w: %s", ErrReadonlyViolation, leading)
	}
	return nil
}

func collapse(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// Execute runs a write statement and returns the number of rows affected.
// Fails fast with ErrReadonlyViolation if the context is readonly and the
// statement's leading keyword is a write keyword.
func (c *TransactionContext) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	if err := c.guardWrite(query); err != nil {
		return 0, err
	}
	c.logger.DebugContext(ctx, fmt.Sprintf("[SQL] %s | params: %v", collapse(query), args))
	n, err := c.t.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("store: execute: %w", err)
	}
	return n, nil
}

// ExecuteMany runs the same statement once per element of argsList,
// returning the sum of affected rows. Mirrors spec.md §4.1's "executemany".
func (c *TransactionContext) ExecuteMany(ctx context.Context, query string, argsList [][]any) (int64, error) {
	if err := c.guardWrite(query); err != nil {
		return 0, err
	}
	c.logger.DebugContext(ctx, fmt.Sprintf("[SQL] %s | params: %d row(s)", collapse(query), len(argsList)))
	var total int64
	for _, args := range argsList {
		n, err := c.t.Exec(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("store: executemany: %w", err)
		}
		total += n
	}
	return total, nil
}

// FetchOne runs a query expected to return at most one row and scans it into
// dest. Returns ErrNoRows if the query produced no rows.
func (c *TransactionContext) FetchOne(ctx context.Context, query string, args []any, dest ...any) error {
	c.logger.DebugContext(ctx, fmt.Sprintf("[SQL] %s | params: %v", collapse(query), args))
	row := c.t.QueryRow(ctx, query, args...)
	if err := row.Scan(dest...); err != nil {
		if isNoRows(err) {
			c.logger.DebugContext(ctx, "[SQL Result] 0 row(s)")
			return ErrNoRows
		}
		return fmt.Errorf("store: fetch_one: %w", err)
	}
	c.logger.DebugContext(ctx, "[SQL Result] 1 row(s)")
	return nil
}

// FetchAll runs a query and invokes scan for each returned row in order.
// The row count logged at the end reflects the number of rows iterated.
func (c *TransactionContext) FetchAll(ctx context.Context, query string, args []any, scan func(Rows) error) error {
	c.logger.DebugContext(ctx, fmt.Sprintf("[SQL] %s | params: %v", collapse(query), args))
	rows, err := c.t.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: fetch_all: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("store: fetch_all scan: %w", err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: fetch_all: %w", err)
	}
	c.logger.DebugContext(ctx, fmt.Sprintf("[SQL Result] %d row(s)", n))
	return nil
}

// FetchVal runs a query expected to return a single column in a single row
// and returns the scanned value. Generic because Go has no way to express
// spec.md §4.1's "fetch_val" as a method with a caller-chosen return type.
func FetchVal[T any](ctx context.Context, c *TransactionContext, query string, args ...any) (T, error) {
	var v T
	if err := c.FetchOne(ctx, query, args, &v); err != nil {
		return v, err
	}
	return v, nil
}

// commit is a no-op if the transaction is no longer active (idempotent per
// spec.md §4.1).
func (c *TransactionContext) commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return nil
	}
	c.active = false
	return c.t.Commit(ctx)
}

// rollback is a no-op if the transaction is no longer active.
func (c *TransactionContext) rollback(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return nil
	}
	c.active = false
	return c.t.Rollback(ctx)
}
