package model

// The three fixed membership roles, totally ordered:
// org_admin(3) > manager(2) > technician(1).
const (
	RoleOrgAdmin   = "org_admin"
	RoleManager    = "manager"
	RoleTechnician = "technician"
)

// RoleLevel returns the ordinal of a role, 0 for unknown roles
func RoleLevel(role string) int {
	switch role {
	case RoleOrgAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleTechnician:
		return 1
	default:
		return 0
	}
}

// RoleValid reports whether role is one of the three fixed values
func RoleValid(role string) bool {
	return RoleLevel(role) > 0
}

// RoleAtLeast reports whether role meets the minimum required role
func RoleAtLeast(role, min string) bool {
	level := RoleLevel(role)
	return level > 0 && level >= RoleLevel(min)
}

// CanManageMember reports whether a member with actorRole may change or
// remove a membership holding targetRole. Org admins may act on anyone;
// managers only on technicians.
func CanManageMember(actorRole, targetRole string) bool {
	switch actorRole {
	case RoleOrgAdmin:
		return true
	case RoleManager:
		return targetRole == RoleTechnician
	default:
		return false
	}
}

// LastAdminViolation reports whether a membership mutation would leave
// the organization with zero active org_admin memberships. targetIsAdmin
// is the target's current role, keepsAdmin whether the target remains an
// active org_admin after the mutation, and activeAdmins the live count
// of active org_admin memberships in the organization.
func LastAdminViolation(targetIsAdmin, keepsAdmin bool, activeAdmins int64) bool {
	if !targetIsAdmin || keepsAdmin {
		return false
	}
	return activeAdmins <= 1
}
