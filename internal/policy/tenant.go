package policy

import (
	"context"

	"github.com/diewo77/go-contracts/auth"
	"github.com/diewo77/go-contracts/gate"
)

// Tenanted is implemented by records that belong to a tenant.
type Tenanted interface {
	GetTenantID() uint
}

// TenantPolicy allows access to records of the caller's own tenant only.
// Records that do not expose a tenant are refused.
type TenantPolicy struct{}

func (TenantPolicy) Can(ctx context.Context, _ uint, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	t, ok := resource.(Tenanted)
	if !ok {
		return false
	}
	p, ok := auth.PrincipalFromContext(ctx)
	return ok && p.TenantID != 0 && t.GetTenantID() == p.TenantID
}
