// Package scope implements the scoped execution context: a handle that,
// for its lifetime, directs tenant-scoped storage operations into one
// tenant's partition. The scope travels in the context like a transaction
// (pkg/platform/tx), never in package-level state, so a stray unscoped
// write cannot leak across tenants — scoped stores fail closed instead.
package scope

import (
	"context"
	"sync/atomic"

	id "stratus/pkg/domain"
	"stratus/pkg/platform/sentinel"
)

type ctxKey struct{}

var scopeKey = ctxKey{}

// Handle is an active tenant scope. Release it on every exit path; after
// release the derived context no longer resolves to a tenant partition.
type Handle struct {
	tenantID id.TenantID
	released atomic.Bool
}

// TenantID returns the tenant this handle is bound to.
func (h *Handle) TenantID() id.TenantID {
	return h.tenantID
}

// Release deactivates the handle. Contexts derived from the enclosing
// scope (if any) are unaffected, which gives stack discipline for free:
// dropping back to the outer context restores the outer scope. Release is
// idempotent.
func (h *Handle) Release() {
	h.released.Store(true)
}

// Enter opens a scope bound to tenantID. The returned context must be used
// for every scoped-storage call; the returned handle must be released,
// typically via defer, so error exits release it too.
func Enter(ctx context.Context, tenantID id.TenantID) (context.Context, *Handle) {
	h := &Handle{tenantID: tenantID}
	return context.WithValue(ctx, scopeKey, h), h
}

// Current returns the active tenant scope, if any. A released handle does
// not count as active.
func Current(ctx context.Context) (id.TenantID, bool) {
	h, ok := ctx.Value(scopeKey).(*Handle)
	if !ok || h.released.Load() {
		return id.TenantID{}, false
	}
	return h.tenantID, true
}

// Require returns the active tenant scope or sentinel.ErrNoScope. Scoped
// stores call this first so role/user writes can never land outside a
// tenant partition.
func Require(ctx context.Context) (id.TenantID, error) {
	tenantID, ok := Current(ctx)
	if !ok {
		return id.TenantID{}, sentinel.ErrNoScope
	}
	return tenantID, nil
}
