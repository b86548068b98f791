package store

import "context"

// registry is the per-task { db_name -> *TransactionContext } map spec.md
// §4.2 requires. It is never shared: RunInTransaction installs a fresh
// registry into a derived context for each call, so two concurrent tasks
// never observe the same map even if they share a parent context.
type registry struct {
	bindings map[string]*TransactionContext
}

type registryKey struct{}

// withRegistry returns a context carrying a fresh, empty registry.
func withRegistry(ctx context.Context) context.Context {
	return context.WithValue(ctx, registryKey{}, &registry{bindings: make(map[string]*TransactionContext)})
}

func registryFrom(ctx context.Context) (*registry, bool) {
	r, ok := ctx.Value(registryKey{}).(*registry)
	return r, ok
}

// bind installs tc under dbName in the registry carried by ctx. It is a
// no-op (silently dropped) if ctx carries no registry, which only happens if
// bind is called outside of RunInTransaction -- a programmer error the
// decorator itself never commits.
func bind(ctx context.Context, dbName string, tc *TransactionContext) {
	if r, ok := registryFrom(ctx); ok {
		r.bindings[dbName] = tc
	}
}

// clear removes the binding for dbName from ctx's registry, if any.
func clear(ctx context.Context, dbName string) {
	if r, ok := registryFrom(ctx); ok {
		delete(r.bindings, dbName)
	}
}

// From looks up the active TransactionContext bound to dbName within ctx.
// Returns ErrNoActiveTransaction if none is bound -- either because no
// RunInTransaction call installed a registry, or because dbName was never
// passed to it.
func From(ctx context.Context, dbName string) (*TransactionContext, error) {
	r, ok := registryFrom(ctx)
	if !ok {
		return nil, ErrNoActiveTransaction
	}
	tc, ok := r.bindings[dbName]
	if !ok {
		return nil, ErrNoActiveTransaction
	}
	return tc, nil
}
