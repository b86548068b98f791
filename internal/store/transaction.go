package store

import (
	"context"
	"fmt"
)

// RunInTransaction is the multi-database transaction decorator of
// spec.md §4.3: it opens a transaction on each of dbs in declared order,
// binds each into the ambient registry (§4.2) under its Engine.Name(), and
// invokes fn. fn looks up its connections via store.From(ctx, dbName)
// rather than receiving them as parameters.
//
// Entry order is dbs[0..n]; exit mirrors it in reverse. If fn returns nil,
// every transaction is committed in reverse order and every connection
// released; if fn returns an error, every transaction is rolled back
// instead (best-effort -- an individual rollback failure is discarded, never
// masking fn's original error) and that original error is returned
// unchanged.
//
// This is not two-phase commit: a mid-sequence commit failure can leave
// earlier DBs durably committed while later ones roll back. The returned
// error in that case reports the commit failure, and callers must not
// assume all-or-nothing across more than one Engine.
func RunInTransaction(ctx context.Context, readonly bool, fn func(ctx context.Context) error, dbs ...Engine) error {
	if len(dbs) == 0 {
		return fn(ctx)
	}

	txCtx := withRegistry(ctx)

	opened := make([]*TransactionContext, 0, len(dbs))
	for _, db := range dbs {
		tc, err := db.Begin(ctx, readonly)
		if err != nil {
			rollbackAll(ctx, opened)
			return fmt.Errorf("store: begin %s: %w", db.Name(), err)
		}
		bind(txCtx, db.Name(), tc)
		opened = append(opened, tc)
	}

	defer func() {
		for _, db := range dbs {
			clear(txCtx, db.Name())
		}
	}()

	fnErr := fn(txCtx)

	if fnErr != nil {
		rollbackAll(ctx, opened)
		return fnErr
	}

	if err := commitAll(ctx, opened); err != nil {
		return err
	}
	return nil
}

// RunInTransactionReadOnly is RunInTransaction with readonly forced true on
// every opened TransactionContext.
func RunInTransactionReadOnly(ctx context.Context, fn func(ctx context.Context) error, dbs ...Engine) error {
	return RunInTransaction(ctx, true, fn, dbs...)
}

// commitAll commits opened transactions in reverse order. The first failure
// is returned after best-effort rollback of the remaining, not-yet-committed
// transactions; transactions committed before the failure stay durably
// committed (spec.md §4.3's documented best-effort, non-2PC contract).
func commitAll(ctx context.Context, opened []*TransactionContext) error {
	for i := len(opened) - 1; i >= 0; i-- {
		if err := opened[i].commit(ctx); err != nil {
			rollbackAll(ctx, opened[:i])
			return fmt.Errorf("store: commit %s: %w", opened[i].DBName(), err)
		}
	}
	return nil
}

// rollbackAll rolls back opened transactions in reverse order, best-effort:
// an individual rollback failure is swallowed (nothing further can be done
// about a connection that won't roll back) so every transaction gets a
// rollback attempt regardless of earlier failures.
func rollbackAll(ctx context.Context, opened []*TransactionContext) {
	for i := len(opened) - 1; i >= 0; i-- {
		_ = opened[i].rollback(ctx)
	}
}
