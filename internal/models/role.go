package models

import "fmt"

// Role is one of the closed set of portal roles
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleClient Role = "Client"
)

// rolePrecedence lists roles from highest to lowest for redirect tie-breaks
var rolePrecedence = []Role{RoleAdmin, RoleClient}

// ParseRole converts a stored role name into a Role
func ParseRole(s string) (Role, error) {
	for _, r := range rolePrecedence {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// PrimaryRole picks the role that decides post-login routing.
// Admin wins over Client; ok is false when roles holds neither.
func PrimaryRole(roles []Role) (role Role, ok bool) {
	for _, candidate := range rolePrecedence {
		for _, r := range roles {
			if r == candidate {
				return candidate, true
			}
		}
	}
	return "", false
}

// DashboardPath returns the landing page for the role
func (r Role) DashboardPath() string {
	switch r {
	case RoleAdmin:
		return "/Admin/Dashboard"
	default:
		return "/ClientPortal/Dashboard"
	}
}
