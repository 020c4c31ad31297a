// Package tenant keeps company-owned rows inside their company. Every read
// and write of a tenant-owned entity goes through CanAccess or
// ResolveWriteTenant.
package tenant

import "errors"

var ErrForbidden = errors.New("tenant: access denied")

func CanAccess(callerTenantID, resourceTenantID string, callerIsSuperAdmin bool) bool {
	if callerIsSuperAdmin {
		return true
	}
	return callerTenantID != "" && callerTenantID == resourceTenantID
}

// ResolveWriteTenant picks the tenant a new row is created in. Only a super
// admin may target another company; everyone else always writes to their own.
func ResolveWriteTenant(requested *string, callerTenantID string, callerIsSuperAdmin bool) (string, error) {
	if callerIsSuperAdmin {
		if requested != nil && *requested != "" {
			return *requested, nil
		}
		return callerTenantID, nil
	}
	if requested != nil && *requested != "" && *requested != callerTenantID {
		return "", ErrForbidden
	}
	return callerTenantID, nil
}
