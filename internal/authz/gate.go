// Package authz is the authorization gate shared by the server-side filter
// chain and the route table the clients consume for navigation guards. The
// decision is a pure set-membership test so both sides agree byte for byte.
package authz

import (
	"taskboard/backend/internal/account/domain"
)

// Allowed reports whether role may perform an operation restricted to
// required. An empty required set means "authenticated only, any role".
// Comparison is exact string equality on the role claim.
func Allowed(role domain.Role, required ...domain.Role) bool {
	if len(required) == 0 {
		return domain.ValidRole(role)
	}
	for _, r := range required {
		if role == r {
			return true
		}
	}
	return false
}
