package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, registered as "sqlite"
)

// SQLiteConfig configures the "file-backed engine". Pragmas mirror
// original_source/database/sqlite3/connection.py: WAL journal mode, NORMAL
// synchronous, a busy timeout, and foreign keys on.
type SQLiteConfig struct {
	// Name is this engine's name in the ambient registry / RunInTransaction.
	Name string
	// Path is the SQLite file path, or ":memory:" for an in-process database
	// (store-layer tests use this per SPEC_FULL.md §2.5).
	Path string
	// PoolSize is the maximum number of open connections.
	PoolSize int
	// PoolTimeout bounds how long Begin waits to acquire a connection before
	// returning ErrPoolExhausted.
	PoolTimeout time.Duration
	// MaxIdleTime closes and reopens connections idle longer than this.
	// Implemented natively via sql.DB.SetConnMaxIdleTime.
	MaxIdleTime time.Duration
	// BusyTimeout is passed to SQLite's busy_timeout pragma.
	BusyTimeout time.Duration
}

// SQLiteEngine implements Engine over modernc.org/sqlite via database/sql.
type SQLiteEngine struct {
	name        string
	db          *sql.DB
	poolTimeout time.Duration
	logger      *slog.Logger
}

// NewSQLiteEngine opens db at cfg.Path with the pragmas spec.md §4.1
// requires for the file-backed engine, applying a dialect-specific test for
// in-memory mode: SQLite's ":memory:" database is destroyed the moment no
// connection holds it open, so PoolSize is forced to 1 for that case
// (otherwise database/sql would open a second, empty, in-memory database).
func NewSQLiteEngine(ctx context.Context, cfg SQLiteConfig, logger *slog.Logger) (*SQLiteEngine, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)",
		cfg.Path, busyTimeoutMillis(cfg.BusyTimeout),
	)
	if cfg.Path == ":memory:" {
		dsn = fmt.Sprintf(
			"file::memory:?cache=shared&_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)",
			busyTimeoutMillis(cfg.BusyTimeout),
		)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	poolSize := cfg.PoolSize
	if cfg.Path == ":memory:" {
		poolSize = 1
	}
	if poolSize > 0 {
		db.SetMaxOpenConns(poolSize)
		db.SetMaxIdleConns(poolSize)
	}
	if cfg.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.MaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}

	timeout := cfg.PoolTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &SQLiteEngine{
		name:        cfg.Name,
		db:          db,
		poolTimeout: timeout,
		logger:      logger.With("component", "store.SQLiteEngine", "db", cfg.Name),
	}, nil
}

func busyTimeoutMillis(d time.Duration) int64 {
	if d <= 0 {
		return 5000
	}
	return d.Milliseconds()
}

// Name implements Engine.
func (e *SQLiteEngine) Name() string { return e.name }

// DB exposes the underlying *sql.DB, e.g. for health/checks/sql.
func (e *SQLiteEngine) DB() *sql.DB { return e.db }

// Begin implements Engine. Readers use DEFERRED (the sqlite default),
// writers use IMMEDIATE so a writer transaction takes the write lock up
// front instead of discovering contention at its first write statement.
func (e *SQLiteEngine) Begin(ctx context.Context, readonly bool) (*TransactionContext, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, e.poolTimeout)
	defer cancel()

	conn, err := e.db.Conn(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrPoolExhausted
		}
		return nil, fmt.Errorf("store: acquire sqlite connection: %w", err)
	}

	beginStmt := "BEGIN DEFERRED"
	if !readonly {
		beginStmt = "BEGIN IMMEDIATE"
	}
	if _, err := conn.ExecContext(ctx, beginStmt); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: begin sqlite transaction: %w", err)
	}

	return newTransactionContext(e.name, DialectSQLite, readonly, &sqliteTx{conn: conn}, e.logger), nil
}

// Close implements Engine.
func (e *SQLiteEngine) Close() error {
	return e.db.Close()
}

// sqliteTx adapts a raw *sql.Conn driving its own BEGIN/COMMIT/ROLLBACK
// statements (database/sql's own *sql.Tx can't be used here because it
// always issues a plain "BEGIN", with no DEFERRED/IMMEDIATE distinction).
type sqliteTx struct {
	conn *sql.Conn
}

func (s *sqliteTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sqliteTx) QueryRow(ctx context.Context, query string, args ...any) Row {
	return s.conn.QueryRowContext(ctx, query, args...)
}

func (s *sqliteTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows}, nil
}

func (s *sqliteTx) Commit(ctx context.Context) error {
	defer s.conn.Close()
	_, err := s.conn.ExecContext(ctx, "COMMIT")
	return err
}

func (s *sqliteTx) Rollback(ctx context.Context) error {
	defer s.conn.Close()
	_, err := s.conn.ExecContext(ctx, "ROLLBACK")
	return err
}

// sqlRows adapts *sql.Rows's Close() error to the Rows interface's Close().
type sqlRows struct {
	rows *sql.Rows
}

func (r *sqlRows) Next() bool             { return r.rows.Next() }
func (r *sqlRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r *sqlRows) Close()                 { r.rows.Close() }
func (r *sqlRows) Err() error             { return r.rows.Err() }
