package gate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diewo77/go-contracts/gate"
)

type tenantDoc struct{ tenant uint }

// sameTenant allows access when the resource belongs to the user's tenant;
// here the user id doubles as the tenant id.
var sameTenant = gate.PolicyFunc[uint](func(_ context.Context, user uint, _ gate.Action, resource any) bool {
	d, ok := resource.(*tenantDoc)
	return ok && d.tenant == user
})

func TestGate_Authorize(t *testing.T) {
	g := gate.NewGate[uint]()
	g.Register("contract", sameTenant)
	ctx := context.Background()

	if err := g.Authorize(ctx, 0, gate.ActionView, "contract", &tenantDoc{}); err != gate.ErrUnauthorized {
		t.Errorf("zero user: expected ErrUnauthorized, got %v", err)
	}
	if err := g.Authorize(ctx, 1, gate.ActionView, "template", nil); err != gate.ErrNoPolicyDefined {
		t.Errorf("expected ErrNoPolicyDefined, got %v", err)
	}
	if !g.Can(ctx, 7, gate.ActionView, "contract", &tenantDoc{tenant: 7}) {
		t.Error("same tenant should be allowed")
	}
	if g.Can(ctx, 7, gate.ActionView, "contract", &tenantDoc{tenant: 8}) {
		t.Error("other tenant should be denied")
	}
}

func TestPermission_Matches(t *testing.T) {
	tests := []struct {
		held, requested gate.Permission
		want            bool
	}{
		{"service_event:transition", "service_event:transition", true},
		{"service_event:*", "service_event:administer", true},
		{"*:*", "contract:delete", true},
		{"contract:view", "contract:create", false},
		{"contract:*", "service_event:view", false},
		{"broken", "broken", true},
		{"broken", "contract:view", false},
	}
	for _, tt := range tests {
		if got := tt.held.Matches(tt.requested); got != tt.want {
			t.Errorf("%s matches %s = %v, want %v", tt.held, tt.requested, got, tt.want)
		}
	}
	res, act := gate.NewPermission("contract", gate.ActionCreate).Parse()
	if res != "contract" || act != gate.ActionCreate {
		t.Errorf("unexpected parse result %q %q", res, act)
	}
}

func TestHybridGate(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	resolver.Set(1, gate.NewStaticProfile(1, "admin", gate.PermissionSuperAdmin))
	resolver.Set(2, gate.NewStaticProfile(2, "operator", "contract:*", "service_event:transition"))
	g := gate.NewHybridGate[uint](resolver)
	g.Register("contract", sameTenant)
	ctx := context.Background()

	if !g.IsSuperAdmin(ctx, 1) || g.IsSuperAdmin(ctx, 2) || g.IsSuperAdmin(ctx, 3) {
		t.Error("unexpected superadmin resolution")
	}
	if !g.CanProfile(ctx, 2, gate.ActionCreate, "contract") {
		t.Error("operator should create contracts")
	}
	if g.CanProfile(ctx, 2, gate.ActionAdminister, "service_event") {
		t.Error("operator must not administer service events")
	}
	if !g.Can(ctx, 2, gate.ActionView, "contract", &tenantDoc{tenant: 2}) {
		t.Error("operator should view own tenant contract")
	}
	if g.Can(ctx, 2, gate.ActionView, "contract", &tenantDoc{tenant: 9}) {
		t.Error("policy should still deny other tenants")
	}
	if err := g.Authorize(ctx, 3, gate.ActionList, "contract", nil); err != gate.ErrUnauthorized {
		t.Errorf("user without profile: expected ErrUnauthorized, got %v", err)
	}
}

type countingResolver struct {
	calls int
	fail  bool
}

func (r *countingResolver) Resolve(_ context.Context, user uint) (gate.Profile, error) {
	r.calls++
	if r.fail {
		return nil, errors.New("db down")
	}
	return gate.NewStaticProfile(user, "p"), nil
}

func TestCachedResolver(t *testing.T) {
	inner := &countingResolver{}
	cached := gate.NewCachedResolver[uint](inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cached.Resolve(ctx, 5); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}

	cached.Invalidate(5)
	_, _ = cached.Resolve(ctx, 5)
	cached.InvalidateAll()
	_, _ = cached.Resolve(ctx, 5)
	if inner.calls != 3 {
		t.Errorf("expected 3 inner calls after invalidation, got %d", inner.calls)
	}

	inner.fail = true
	cached.InvalidateAll()
	if _, err := cached.Resolve(ctx, 5); err == nil {
		t.Error("expected inner error to propagate")
	}
}
