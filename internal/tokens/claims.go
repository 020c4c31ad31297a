package tokens

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/staffhub/internal/rbac"
)

// ClaimsVersion is bumped whenever a claim is added or removed.
const ClaimsVersion = 1

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Identity is the part of the claims the caller controls.
type Identity struct {
	Subject  string
	Email    string
	Roles    []rbac.Role
	TenantID string
}

type Claims struct {
	Version  int         `json:"ver"`
	Type     string      `json:"typ"`
	Email    string      `json:"email"`
	Roles    []rbac.Role `json:"roles"`
	TenantID string      `json:"company_id"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{
		Subject:  c.Subject,
		Email:    c.Email,
		Roles:    c.Roles,
		TenantID: c.TenantID,
	}
}
