// Package rbac decides whether a caller's role set satisfies an operation's
// required roles. There is no role hierarchy: SUPER_ADMIN passes a check only
// where it is listed.
package rbac

import (
	"fmt"
	"slices"
	"strings"
)

type Role string

const (
	SuperAdmin  Role = "SUPER_ADMIN"
	Admin       Role = "ADMIN"
	RH          Role = "RH"
	Manager     Role = "MANAGER"
	SiteManager Role = "SITE_MANAGER"
	Teacher     Role = "TEACHER"
	Employee    Role = "EMPLOYEE"
)

// DefaultRole is assigned to self-registered identities.
const DefaultRole = Employee

var known = []Role{SuperAdmin, Admin, RH, Manager, SiteManager, Teacher, Employee}

func (r Role) Valid() bool {
	return slices.Contains(known, r)
}

func Parse(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func ParseAll(values []string) ([]Role, error) {
	out := make([]Role, 0, len(values))
	for _, v := range values {
		r, err := Parse(v)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return Normalize(out), nil
}

// Allow reports whether any of required is held by the caller.
// An empty required set only demands an authenticated identity.
func Allow(required, caller []Role) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if slices.Contains(caller, r) {
			return true
		}
	}
	return false
}

func IsSuperAdmin(roles []Role) bool {
	return slices.Contains(roles, SuperAdmin)
}

// Normalize drops duplicates while keeping first-seen order.
func Normalize(roles []Role) []Role {
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}

func Strings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func FromStrings(values []string) []Role {
	out := make([]Role, len(values))
	for i, v := range values {
		out[i] = Role(v)
	}
	return out
}
