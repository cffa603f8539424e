package gate

import (
	"context"
	"sync"
	"time"
)

// HybridGate checks profile permissions first, then the resource policy
// (tenant scoping, ownership) when one is registered and a resource is given.
type HybridGate[U comparable] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
}

func NewHybridGate[U comparable](resolver ProfileResolver[U]) *HybridGate[U] {
	return &HybridGate[U]{resolver: resolver, policies: make(map[string]Policy[U])}
}

func (g *HybridGate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

func (g *HybridGate[U]) profile(ctx context.Context, user U) Profile {
	var zero U
	if user == zero {
		return nil
	}
	p, err := g.resolver.Resolve(ctx, user)
	if err != nil {
		return nil
	}
	return p
}

func (g *HybridGate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	p := g.profile(ctx, user)
	if p == nil || !p.HasPermission(NewPermission(resourceType, action)) {
		return ErrUnauthorized
	}
	if resource == nil {
		return nil
	}
	if policy, ok := g.policies[resourceType]; ok && !policy.Can(ctx, user, action, resource) {
		return ErrUnauthorized
	}
	return nil
}

func (g *HybridGate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}

// CanProfile checks the permission only, without a resource.
func (g *HybridGate[U]) CanProfile(ctx context.Context, user U, action Action, resourceType string) bool {
	p := g.profile(ctx, user)
	return p != nil && p.HasPermission(NewPermission(resourceType, action))
}

// IsSuperAdmin reports whether the user's profile holds "*:*".
func (g *HybridGate[U]) IsSuperAdmin(ctx context.Context, user U) bool {
	p := g.profile(ctx, user)
	return p != nil && p.HasPermission(PermissionSuperAdmin)
}

// CachedResolver memoizes profiles for ttl.
type CachedResolver[U comparable] struct {
	inner ProfileResolver[U]
	ttl   time.Duration
	now   func() time.Time

	mu    sync.RWMutex
	cache map[U]cachedProfile
}

type cachedProfile struct {
	profile Profile
	expires time.Time
}

func NewCachedResolver[U comparable](inner ProfileResolver[U], ttl time.Duration) *CachedResolver[U] {
	return &CachedResolver[U]{inner: inner, ttl: ttl, now: time.Now, cache: make(map[U]cachedProfile)}
}

func (r *CachedResolver[U]) Resolve(ctx context.Context, user U) (Profile, error) {
	r.mu.RLock()
	e, ok := r.cache[user]
	r.mu.RUnlock()
	if ok && r.now().Before(e.expires) {
		return e.profile, nil
	}

	p, err := r.inner.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[user] = cachedProfile{profile: p, expires: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return p, nil
}

// Invalidate drops one user's cached profile.
func (r *CachedResolver[U]) Invalidate(user U) {
	r.mu.Lock()
	delete(r.cache, user)
	r.mu.Unlock()
}

// InvalidateAll drops every cached profile.
func (r *CachedResolver[U]) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[U]cachedProfile)
	r.mu.Unlock()
}
