package service

import "github.com/Skotchmaster/staffhub/internal/rbac"

// Principal is the live view of an authenticated caller, read from the
// identity row on every request rather than from token claims.
type Principal struct {
	IdentityID string      `json:"id"`
	Email      string      `json:"email"`
	TenantID   string      `json:"company_id"`
	Roles      []rbac.Role `json:"roles"`
}

func (p Principal) IsSuperAdmin() bool {
	return rbac.IsSuperAdmin(p.Roles)
}
