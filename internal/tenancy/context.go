package tenancy

import "context"

// The current store travels on context.Context. A derived context dies with
// the call that created it, which gives the nesting contract for free: setting
// a store inside a block never disturbs the caller's context, and any exit
// path (including panic) restores the outer store.

type storeKey struct{}
type bypassKey struct{}
type internalKey struct{}

// WithStore returns a context scoped to the given store id. It clears any
// administrative bypass set on the parent context.
func WithStore(ctx context.Context, storeID string) context.Context {
	ctx = context.WithValue(ctx, storeKey{}, storeID)
	return context.WithValue(ctx, bypassKey{}, false)
}

// WithoutStore returns a context with tenant filtering disabled. It is the
// administrative escape hatch: every operation performed under it is logged
// and counted, since it removes the isolation guarantee.
func WithoutStore(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

// CurrentStore returns the store id scoped onto the context. The second
// return value is false when no store is set or the context is bypassed.
func CurrentStore(ctx context.Context) (string, bool) {
	if Bypassed(ctx) {
		return "", false
	}
	id, ok := ctx.Value(storeKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Bypassed reports whether tenant filtering has been disabled with WithoutStore.
func Bypassed(ctx context.Context) bool {
	v, ok := ctx.Value(bypassKey{}).(bool)
	return ok && v
}

// RunWithStore executes fn with the store scoped onto the context. The
// caller's context is untouched regardless of how fn exits.
func RunWithStore(ctx context.Context, storeID string, fn func(ctx context.Context) error) error {
	return fn(WithStore(ctx, storeID))
}

// RunWithoutStore executes fn with tenant filtering disabled.
func RunWithoutStore(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(WithoutStore(ctx))
}

// markInternal flags a context as belonging to the engine's own lookups
// (inheritance resolution, uniqueness counts). Internal bypasses are not
// reported to the audit trail.
func markInternal(ctx context.Context) context.Context {
	return context.WithValue(WithoutStore(ctx), internalKey{}, true)
}

func isInternal(ctx context.Context) bool {
	v, ok := ctx.Value(internalKey{}).(bool)
	return ok && v
}
