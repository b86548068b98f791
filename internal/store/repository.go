package store

import (
	"context"
	"fmt"
	"time"

	"github.com/petabytecl/jobu/internal/domain"
)

// placeholder returns the i'th (1-based) bind-parameter marker for the
// context's dialect: "$1" for Postgres, "?" for SQLite.
func placeholder(d Dialect, i int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func boolLiteral(d Dialect, v bool) any {
	if d == DialectSQLite {
		if v {
			return 1
		}
		return 0
	}
	return v
}

// CreateCronDefinition inserts a new cron definition and returns its
// assigned id. Returns store.ErrDuplicateName if the name is already taken
// (callers translate this to the admin API's 409).
func CreateCronDefinition(ctx context.Context, dbName string, d *domain.CronDefinition) (int64, error) {
	tc, err := From(ctx, dbName)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	ph := func(i int) string { return placeholder(tc.Dialect(), i) }

	query := fmt.Sprintf(`INSERT INTO cron_definitions
		(name, description, cron_expression, handler_name, handler_params, is_enabled, allow_overlap, max_retry, timeout_seconds, created_at, updated_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		ph(1), ph(2), ph(3), ph(4), ph(5), ph(6), ph(7), ph(8), ph(9), ph(10), ph(11))

	args := []any{
		d.Name, d.Description, d.CronExpression, d.HandlerName, d.HandlerParams,
		boolLiteral(tc.Dialect(), d.IsEnabled), boolLiteral(tc.Dialect(), d.AllowOverlap),
		d.MaxRetry, d.TimeoutSeconds, now, now,
	}

	if tc.Dialect() == DialectPostgres {
		var id int64
		if err := tc.FetchOne(ctx, query+" RETURNING id", args, &id); err != nil {
			return 0, translateUniqueViolation(err)
		}
		return id, nil
	}

	if _, err := tc.Execute(ctx, query, args...); err != nil {
		return 0, translateUniqueViolation(err)
	}
	var id int64
	if err := tc.FetchOne(ctx, "SELECT last_insert_rowid()", nil, &id); err != nil {
		return 0, fmt.Errorf("store: read last insert id: %w", err)
	}
	return id, nil
}

// GetCronDefinition fetches one cron definition by id.
func GetCronDefinition(ctx context.Context, dbName string, id int64) (domain.CronDefinition, error) {
	tc, err := From(ctx, dbName)
	if err != nil {
		return domain.CronDefinition{}, err
	}
	query := fmt.Sprintf(`SELECT id, name, description, cron_expression, handler_name, handler_params,
		is_enabled, allow_overlap, max_retry, timeout_seconds, created_at, updated_at
		FROM cron_definitions WHERE id = %s`, placeholder(tc.Dialect(), 1))

	var d domain.CronDefinition
	err = tc.FetchOne(ctx, query, []any{id},
		&d.ID, &d.Name, &d.Description, &d.CronExpression, &d.HandlerName, &d.HandlerParams,
		&d.IsEnabled, &d.AllowOverlap, &d.MaxRetry, &d.TimeoutSeconds, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// GetCronDefinitionByHandlerName looks up a definition by handler_name, used
// by the Queue Dispatcher (spec.md §4.5 point 2) to adopt a job_id and merge
// stored handler_params. Returns store.ErrNoRows if none is registered.
func GetCronDefinitionByHandlerName(ctx context.Context, dbName, handlerName string) (domain.CronDefinition, error) {
	tc, err := From(ctx, dbName)
	if err != nil {
		return domain.CronDefinition{}, err
	}
	query := fmt.Sprintf(`SELECT id, name, description, cron_expression, handler_name, handler_params,
		is_enabled, allow_overlap, max_retry, timeout_seconds, created_at, updated_at
		FROM cron_definitions WHERE handler_name = %s LIMIT 1`, placeholder(tc.Dialect(), 1))

	var d domain.CronDefinition
	err = tc.FetchOne(ctx, query, []any{handlerName},
		&d.ID, &d.Name, &d.Description, &d.CronExpression, &d.HandlerName, &d.HandlerParams,
		&d.IsEnabled, &d.AllowOverlap, &d.MaxRetry, &d.TimeoutSeconds, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// ListEnabledCronDefinitions loads every enabled definition, for the Cron
// Dispatcher's one-read-transaction-per-iteration load (spec.md §4.4.1).
func ListEnabledCronDefinitions(ctx context.Context, dbName string) ([]domain.CronDefinition, error) {
	tc, err := From(ctx, dbName)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, name, description, cron_expression, handler_name, handler_params,
		is_enabled, allow_overlap, max_retry, timeout_seconds, created_at, updated_at
		FROM cron_definitions WHERE is_enabled = %s ORDER BY id`, placeholder(tc.Dialect(), 1))

	var defs []domain.CronDefinition
	err = tc.FetchAll(ctx, query, []any{boolLiteral(tc.Dialect(), true)}, func(r Rows) error {
		var d domain.CronDefinition
		if err := r.Scan(&d.ID, &d.Name, &d.Description, &d.CronExpression, &d.HandlerName, &d.HandlerParams,
			&d.IsEnabled, &d.AllowOverlap, &d.MaxRetry, &d.TimeoutSeconds, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return err
		}
		defs = append(defs, d)
		return nil
	})
	return defs, err
}

// CronListFilter narrows ListCronDefinitions's result set (admin API
// GET /crons?page&size&is_enabled).
type CronListFilter struct {
	IsEnabled *bool
}

// ListCronDefinitions returns one page of cron definitions matching filter,
// plus the total matching count, for the admin API's paginated listing.
func ListCronDefinitions(ctx context.Context, dbName string, filter CronListFilter, page PageParams) ([]domain.CronDefinition, int, error) {
	tc, err := From(ctx, dbName)
	if err != nil {
		return nil, 0, err
	}
	d := tc.Dialect()

	where := ""
	args := []any{}
	if filter.IsEnabled != nil {
		where = fmt.Sprintf(" WHERE is_enabled = %s", placeholder(d, 1))
		args = append(args, boolLiteral(d, *filter.IsEnabled))
	}

	var total int
	countQuery := "SELECT count(*) FROM cron_definitions" + where
	if err := tc.FetchOne(ctx, countQuery, args, &total); err != nil {
		return nil, 0, err
	}

	limitPH := placeholder(d, len(args)+1)
	offsetPH := placeholder(d, len(args)+2)
	listQuery := fmt.Sprintf(`SELECT id, name, description, cron_expression, handler_name, handler_params,
		is_enabled, allow_overlap, max_retry, timeout_seconds, created_at, updated_at
		FROM cron_definitions%s ORDER BY id LIMIT %s OFFSET %s`, where, limitPH, offsetPH)
	listArgs := append(append([]any{}, args...), page.Size, page.Offset())

	var items []domain.CronDefinition
	err = tc.FetchAll(ctx, listQuery, listArgs, func(r Rows) error {
		var item domain.CronDefinition
		if err := r.Scan(&item.ID, &item.Name, &item.Description, &item.CronExpression, &item.HandlerName, &item.HandlerParams,
			&item.IsEnabled, &item.AllowOverlap, &item.MaxRetry, &item.TimeoutSeconds, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateCronDefinition overwrites the mutable fields of the definition
// identified by d.ID.
func UpdateCronDefinition(ctx context.Context, dbName string, d *domain.CronDefinition) error {
	tc, err := From(ctx, dbName)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	query := fmt.Sprintf(`UPDATE cron_definitions SET name=%s, description=%s, cron_expression=%s,
		handler_name=%s, handler_params=%s, is_enabled=%s, allow_overlap=%s, max_retry=%s,
		timeout_seconds=%s, updated_at=%s WHERE id=%s`,
		placeholder(tc.Dialect(), 1), placeholder(tc.Dialect(), 2), placeholder(tc.Dialect(), 3),
		placeholder(tc.Dialect(), 4), placeholder(tc.Dialect(), 5), placeholder(tc.Dialect(), 6),
		placeholder(tc.Dialect(), 7), placeholder(tc.Dialect(), 8), placeholder(tc.Dialect(), 9),
		placeholder(tc.Dialect(), 10), placeholder(tc.Dialect(), 11))

	n, err := tc.Execute(ctx, query, d.Name, d.Description, d.CronExpression, d.HandlerName, d.HandlerParams,
		boolLiteral(tc.Dialect(), d.IsEnabled), boolLiteral(tc.Dialect(), d.AllowOverlap), d.MaxRetry, d.TimeoutSeconds, now, d.ID)
	if err != nil {
		return translateUniqueViolation(err)
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}

// ToggleCronDefinitionEnabled flips is_enabled for the given id.
func ToggleCronDefinitionEnabled(ctx context.Context, dbName string, id int64) (bool, error) {
	tc, err := From(ctx, dbName)
	if err != nil {
		return false, err
	}
	d := tc.Dialect()
	var current bool
	sel := fmt.Sprintf("SELECT is_enabled FROM cron_definitions WHERE id = %s", placeholder(d, 1))
	if err := tc.FetchOne(ctx, sel, []any{id}, &current); err != nil {
		return false, err
	}
	next := !current
	upd := fmt.Sprintf("UPDATE cron_definitions SET is_enabled = %s WHERE id = %s", placeholder(d, 1), placeholder(d, 2))
	if _, err := tc.Execute(ctx, upd, boolLiteral(d, next), id); err != nil {
		return false, err
	}
	return next, nil
}

// DeleteCronDefinition removes the definition; execution rows survive with
// job_id nulled via the schema's ON DELETE SET NULL (spec.md §9).
func DeleteCronDefinition(ctx context.Context, dbName string, id int64) error {
	tc, err := From(ctx, dbName)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM cron_definitions WHERE id = %s", placeholder(tc.Dialect(), 1))
	n, err := tc.Execute(ctx, query, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}

// HasActiveExecution reports whether a PENDING or RUNNING row exists for
// jobID, the overlap check of spec.md §4.4 point 2.d.
func HasActiveExecution(ctx context.Context, dbName string, jobID int64) (bool, error) {
	tc, err := From(ctx, dbName)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`SELECT count(*) FROM executions WHERE job_id = %s AND status IN ('PENDING', 'RUNNING')`,
		placeholder(tc.Dialect(), 1))
	var n int
	if err := tc.FetchOne(ctx, query, []any{jobID}, &n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertPendingExecutionIgnoreDuplicate inserts a PENDING row for
// (jobID, scheduledTime), silently doing nothing if the unique constraint
// already has that pair (spec.md §4.4 point 2.e). Per spec.md §9's resolved
// open question, the return value is not inspected to distinguish "inserted"
// from "someone beat us to it" -- both are acceptable outcomes, so this
// function returns only an error. handlerName/handlerParams/maxRetry/
// timeoutSeconds are snapshotted from the cron definition onto the row so
// the executor never has to join back to cron_definitions to run it.
func InsertPendingExecutionIgnoreDuplicate(ctx context.Context, dbName string, jobID *int64, scheduledTime time.Time, handlerName, handlerParams string, maxRetry, timeoutSeconds int) error {
	tc, err := From(ctx, dbName)
	if err != nil {
		return err
	}
	d := tc.Dialect()

	var query string
	if d == DialectPostgres {
		query = fmt.Sprintf(`INSERT INTO executions (job_id, scheduled_time, status, handler_name, handler_params, max_retry, timeout_seconds)
			VALUES (%s, %s, 'PENDING', %s, %s, %s, %s) ON CONFLICT (job_id, scheduled_time) DO NOTHING`,
			placeholder(d, 1), placeholder(d, 2), placeholder(d, 3), placeholder(d, 4), placeholder(d, 5), placeholder(d, 6))
	} else {
		query = `INSERT OR IGNORE INTO executions (job_id, scheduled_time, status, handler_name, handler_params, max_retry, timeout_seconds)
			VALUES (?, ?, 'PENDING', ?, ?, ?, ?)`
	}

	_, err = tc.Execute(ctx, query, jobID, scheduledTime, handlerName, handlerParams, maxRetry, timeoutSeconds)
	return err
}

// InsertQueueExecution inserts an execution row originated by the Queue
// Dispatcher (spec.md §4.5 point 3): scheduled_time is "now", handlerName/
// handlerParams are already resolved and merged by the caller (from the
// adopted cron definition when one matches the message's handler_name, or
// from the message alone when none does -- spec.md §4.5 point 2).
func InsertQueueExecution(ctx context.Context, dbName string, jobID *int64, handlerName, handlerParams string, maxRetry, timeoutSeconds int) (int64, error) {
	tc, err := From(ctx, dbName)
	if err != nil {
		return 0, err
	}
	d := tc.Dialect()
	now := time.Now().UTC()

	query := fmt.Sprintf(`INSERT INTO executions (job_id, scheduled_time, status, handler_name, handler_params, max_retry, timeout_seconds)
		VALUES (%s, %s, 'PENDING', %s, %s, %s, %s)`,
		placeholder(d, 1), placeholder(d, 2), placeholder(d, 3), placeholder(d, 4), placeholder(d, 5), placeholder(d, 6))

	args := []any{jobID, now, handlerName, handlerParams, maxRetry, timeoutSeconds}

	if d == DialectPostgres {
		var id int64
		if err := tc.FetchOne(ctx, query+" RETURNING id", args, &id); err != nil {
			return 0, err
		}
		return id, nil
	}

	if _, err := tc.Execute(ctx, query, args...); err != nil {
		return 0, err
	}
	var id int64
	if err := tc.FetchOne(ctx, "SELECT last_insert_rowid()", nil, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// ClaimBatch is one execution row ready for the executor (spec.md §3's
// JobInfo value type).
type ClaimBatch = domain.JobInfo

// executionColumns is the column list shared by every SELECT against
// executions, in the order Execution's fields are scanned.
const executionColumns = `id, job_id, scheduled_time, status, handler_name, handler_params, max_retry, timeout_seconds,
	started_at, finished_at, retry_count, error_message, result, created_at`

func scanExecution(r Rows, e *domain.Execution) error {
	return r.Scan(&e.ID, &e.JobID, &e.ScheduledTime, &e.Status, &e.HandlerName, &e.HandlerParams, &e.MaxRetry, &e.TimeoutSeconds,
		&e.StartedAt, &e.FinishedAt, &e.RetryCount, &e.ErrorMessage, &e.Result, &e.CreatedAt)
}

// ListClaimable returns up to limit PENDING rows ordered by scheduled_time
// ascending (spec.md §4.6 point 2). handler_name/handler_params/max_retry/
// timeout_seconds are read directly off the row -- every insert path
// (InsertPendingExecutionIgnoreDuplicate, InsertQueueExecution) snapshots
// them at write time, so claiming never depends on cron_definitions still
// existing for job_id, or existing at all for queue-originated rows.
func ListClaimable(ctx context.Context, dbName string, limit int) ([]ClaimBatch, error) {
	tc, err := From(ctx, dbName)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM executions WHERE status = 'PENDING' ORDER BY scheduled_time ASC LIMIT %s`,
		executionColumns, placeholder(tc.Dialect(), 1))

	var out []ClaimBatch
	err = tc.FetchAll(ctx, query, []any{limit}, func(r Rows) error {
		var j ClaimBatch
		if err := scanExecution(r, &j); err != nil {
			return err
		}
		out = append(out, j)
		return nil
	})
	return out, err
}

// ClaimExecution performs the conditional PENDING->RUNNING update that is
// spec.md §4.6's "only concurrency primitive": it returns true iff this
// call won the race.
func ClaimExecution(ctx context.Context, dbName string, id int64) (bool, error) {
	tc, err := From(ctx, dbName)
	if err != nil {
		return false, err
	}
	d := tc.Dialect()
	now := time.Now().UTC()
	query := fmt.Sprintf(`UPDATE executions SET status='RUNNING', started_at=%s WHERE id=%s AND status='PENDING'`,
		placeholder(d, 1), placeholder(d, 2))
	n, err := tc.Execute(ctx, query, now, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FinishExecution writes the terminal (or retry) transition for id: status,
// finished_at, error_message, result. retry_count is incremented on every
// call, terminal or not -- it counts attempts, not just retries -- matching
// original_source/worker/executor.py's _fail_execution/_timeout_execution,
// which increment unconditionally before the caller decides whether to
// reset_to_pending. If retry is true, status is instead forced back to
// PENDING, per spec.md §4.7 -- started_at/finished_at/error_message from the
// failed attempt are left in place for diagnostics (a later claim overwrites
// started_at).
func FinishExecution(ctx context.Context, dbName string, id int64, status domain.Status, errMsg, result *string, retry bool) error {
	tc, err := From(ctx, dbName)
	if err != nil {
		return err
	}
	d := tc.Dialect()
	now := time.Now().UTC()

	if retry {
		query := fmt.Sprintf(`UPDATE executions SET status='PENDING', finished_at=%s, error_message=%s, retry_count = retry_count + 1 WHERE id=%s`,
			placeholder(d, 1), placeholder(d, 2), placeholder(d, 3))
		_, err := tc.Execute(ctx, query, now, errMsg, id)
		return err
	}

	query := fmt.Sprintf(`UPDATE executions SET status=%s, finished_at=%s, error_message=%s, result=%s, retry_count = retry_count + 1 WHERE id=%s`,
		placeholder(d, 1), placeholder(d, 2), placeholder(d, 3), placeholder(d, 4), placeholder(d, 5))
	_, err = tc.Execute(ctx, query, string(status), now, errMsg, result, id)
	return err
}

// RetryExecution performs the admin API's manual FAILED/TIMEOUT -> PENDING
// transition (spec.md §4.7). Returns ErrInvalidRetryState if the row is not
// currently in FAILED or TIMEOUT.
func RetryExecution(ctx context.Context, dbName string, id int64) error {
	tc, err := From(ctx, dbName)
	if err != nil {
		return err
	}
	d := tc.Dialect()
	query := fmt.Sprintf(`UPDATE executions SET status='PENDING', retry_count = retry_count + 1
		WHERE id=%s AND status IN ('FAILED', 'TIMEOUT')`, placeholder(d, 1))
	n, err := tc.Execute(ctx, query, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidRetryState
	}
	return nil
}

// GetExecution fetches one execution row by id.
func GetExecution(ctx context.Context, dbName string, id int64) (domain.Execution, error) {
	tc, err := From(ctx, dbName)
	if err != nil {
		return domain.Execution{}, err
	}
	query := fmt.Sprintf(`SELECT %s FROM executions WHERE id = %s`, executionColumns, placeholder(tc.Dialect(), 1))
	var e domain.Execution
	err = tc.FetchOne(ctx, query, []any{id}, &e.ID, &e.JobID, &e.ScheduledTime, &e.Status, &e.HandlerName, &e.HandlerParams,
		&e.MaxRetry, &e.TimeoutSeconds, &e.StartedAt, &e.FinishedAt, &e.RetryCount, &e.ErrorMessage, &e.Result, &e.CreatedAt)
	return e, err
}

// DeleteExecution removes one execution row by id.
func DeleteExecution(ctx context.Context, dbName string, id int64) error {
	tc, err := From(ctx, dbName)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM executions WHERE id = %s", placeholder(tc.Dialect(), 1))
	n, err := tc.Execute(ctx, query, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRows
	}
	return nil
}

// ExecutionListFilter narrows ListExecutions (admin API
// GET /jobs?page&size&cron_id&status&from_date&to_date).
type ExecutionListFilter struct {
	CronID   *int64
	Status   *domain.Status
	FromDate *time.Time
	ToDate   *time.Time
}

// ListExecutions returns one page of executions matching filter, plus the
// total matching count.
func ListExecutions(ctx context.Context, dbName string, filter ExecutionListFilter, page PageParams) ([]domain.Execution, int, error) {
	tc, err := From(ctx, dbName)
	if err != nil {
		return nil, 0, err
	}
	d := tc.Dialect()

	clauses := []string{}
	args := []any{}
	add := func(clause string, val any) {
		clauses = append(clauses, fmt.Sprintf(clause, placeholder(d, len(args)+1)))
		args = append(args, val)
	}
	if filter.CronID != nil {
		add("job_id = %s", *filter.CronID)
	}
	if filter.Status != nil {
		add("status = %s", string(*filter.Status))
	}
	if filter.FromDate != nil {
		add("scheduled_time >= %s", *filter.FromDate)
	}
	if filter.ToDate != nil {
		add("scheduled_time <= %s", *filter.ToDate)
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE "
		for i, c := range clauses {
			if i > 0 {
				where += " AND "
			}
			where += c
		}
	}

	var total int
	if err := tc.FetchOne(ctx, "SELECT count(*) FROM executions"+where, args, &total); err != nil {
		return nil, 0, err
	}

	limitPH := placeholder(d, len(args)+1)
	offsetPH := placeholder(d, len(args)+2)
	listQuery := fmt.Sprintf(`SELECT %s FROM executions%s
		ORDER BY scheduled_time DESC LIMIT %s OFFSET %s`, executionColumns, where, limitPH, offsetPH)
	listArgs := append(append([]any{}, args...), page.Size, page.Offset())

	var items []domain.Execution
	err = tc.FetchAll(ctx, listQuery, listArgs, func(r Rows) error {
		var e domain.Execution
		if err := scanExecution(r, &e); err != nil {
			return err
		}
		items = append(items, e)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
