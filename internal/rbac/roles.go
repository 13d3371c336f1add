// Package rbac holds the static role/permission model. The mapping is fixed at
// compile time: adding a role without a matrix row is caught by Valid() checks
// and by the exhaustive matrix test, never discovered at request time.
package rbac

import "strings"

// Role is the fixed set of account roles.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleDonor    Role = "DONOR"
	RoleHospital Role = "HOSPITAL"
	RoleNGO      Role = "NGO"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleDonor, RoleHospital, RoleNGO}

// Permission is the fixed set of capabilities a role can hold.
type Permission string

const (
	PermCreate      Permission = "create"
	PermRead        Permission = "read"
	PermUpdate      Permission = "update"
	PermDelete      Permission = "delete"
	PermManageUsers Permission = "manage_users"
	PermViewReports Permission = "view_reports"
)

// Permissions lists every known permission.
var Permissions = []Permission{
	PermCreate, PermRead, PermUpdate, PermDelete, PermManageUsers, PermViewReports,
}

// rolePermissions is the full matrix. Broad role grouping over per-action
// roles: easier to audit and less privilege creep.
var rolePermissions = map[Role]map[Permission]struct{}{
	RoleAdmin: permSet(
		PermCreate, PermRead, PermUpdate, PermDelete, PermManageUsers, PermViewReports,
	),
	RoleDonor: permSet(
		PermCreate, PermRead, PermUpdate,
	),
	RoleHospital: permSet(
		PermRead, PermUpdate, PermViewReports,
	),
	RoleNGO: permSet(
		PermRead, PermViewReports,
	),
}

func permSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// ParseRole normalizes a stored role string into a Role.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleDonor:
		return RoleDonor, true
	case RoleHospital:
		return RoleHospital, true
	case RoleNGO:
		return RoleNGO, true
	default:
		return "", false
	}
}

// Valid reports whether the role is one of the fixed set.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// HasPermission is a pure lookup into the static matrix. Unknown roles hold
// nothing.
func HasPermission(role Role, perm Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = perms[perm]
	return ok
}

// HasAllPermissions reports whether the role holds every listed permission.
func HasAllPermissions(role Role, required ...Permission) bool {
	for _, p := range required {
		if !HasPermission(role, p) {
			return false
		}
	}
	return true
}

// HasAnyPermission reports whether the role holds at least one listed permission.
func HasAnyPermission(role Role, required ...Permission) bool {
	for _, p := range required {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// PermissionsFor returns the role's permissions in matrix order.
func PermissionsFor(role Role) []Permission {
	perms, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]Permission, 0, len(perms))
	for _, p := range Permissions {
		if _, held := perms[p]; held {
			out = append(out, p)
		}
	}
	return out
}
