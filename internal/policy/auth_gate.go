// Package policy wires the gate package to the database and the HTTP layer:
// profile resolution, tenant scoping and permission middleware.
package policy

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-contracts/auth"
	"github.com/diewo77/go-contracts/gate"
	"github.com/diewo77/go-contracts/httpx"
)

// Resource type names used in permissions.
const (
	ResourceContract     = "contract"
	ResourceServiceEvent = "service_event"
	ResourceMasterData   = "master_data"
)

// AuthGate is the application's authorization checkpoint.
type AuthGate struct {
	Gate     *gate.HybridGate[uint]
	Resolver *gate.CachedResolver[uint]
}

// NewAuthGate builds a gate whose profiles come from db, cached for cacheTTL.
// Every tenant-owned resource type is scoped with TenantPolicy.
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	return NewAuthGateWithResolver(NewDBProfileResolver(db), cacheTTL)
}

func NewAuthGateWithResolver(r gate.ProfileResolver[uint], cacheTTL time.Duration) *AuthGate {
	cached := gate.NewCachedResolver[uint](r, cacheTTL)
	g := gate.NewHybridGate[uint](cached)
	for _, res := range []string{ResourceContract, ResourceServiceEvent} {
		g.Register(res, TenantPolicy{})
	}
	return &AuthGate{Gate: g, Resolver: cached}
}

// Authorize checks the caller in ctx.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	uid, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrUnauthorized
	}
	return ag.Gate.Authorize(ctx, uid, action, resourceType, resource)
}

func (ag *AuthGate) Can(ctx context.Context, action gate.Action, resourceType string, resource any) bool {
	return ag.Authorize(ctx, action, resourceType, resource) == nil
}

// IsAdmin reports whether the caller holds the superadmin permission.
func (ag *AuthGate) IsAdmin(ctx context.Context) bool {
	uid, ok := auth.UserIDFromContext(ctx)
	return ok && ag.Gate.IsSuperAdmin(ctx, uid)
}

// RequirePermission answers 403 unless the caller's profile grants resourceType:action.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			if !ag.Gate.CanProfile(r.Context(), uid, action, resourceType) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin answers 403 unless the caller is a tenant admin.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.UserIDFromContext(r.Context()); !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			if !ag.IsAdmin(r.Context()) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
