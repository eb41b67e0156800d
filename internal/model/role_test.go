package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleLevel(t *testing.T) {
	assert.Equal(t, 3, RoleLevel(RoleOrgAdmin))
	assert.Equal(t, 2, RoleLevel(RoleManager))
	assert.Equal(t, 1, RoleLevel(RoleTechnician))
	assert.Equal(t, 0, RoleLevel("owner"))
	assert.Equal(t, 0, RoleLevel(""))
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleAtLeast(RoleOrgAdmin, RoleTechnician))
	assert.True(t, RoleAtLeast(RoleOrgAdmin, RoleOrgAdmin))
	assert.True(t, RoleAtLeast(RoleManager, RoleTechnician))
	assert.True(t, RoleAtLeast(RoleTechnician, RoleTechnician))

	assert.False(t, RoleAtLeast(RoleTechnician, RoleManager))
	assert.False(t, RoleAtLeast(RoleManager, RoleOrgAdmin))

	// Unknown roles never pass, even against an unknown minimum
	assert.False(t, RoleAtLeast("owner", RoleTechnician))
	assert.False(t, RoleAtLeast("", ""))
}

func TestCanManageMember(t *testing.T) {
	// Org admins may act on anyone
	assert.True(t, CanManageMember(RoleOrgAdmin, RoleOrgAdmin))
	assert.True(t, CanManageMember(RoleOrgAdmin, RoleManager))
	assert.True(t, CanManageMember(RoleOrgAdmin, RoleTechnician))

	// Managers only on technicians
	assert.True(t, CanManageMember(RoleManager, RoleTechnician))
	assert.False(t, CanManageMember(RoleManager, RoleManager))
	assert.False(t, CanManageMember(RoleManager, RoleOrgAdmin))

	// Technicians on nobody
	assert.False(t, CanManageMember(RoleTechnician, RoleTechnician))
	assert.False(t, CanManageMember(RoleTechnician, RoleOrgAdmin))
}

func TestLastAdminViolation(t *testing.T) {
	// Demoting the sole admin is refused
	assert.True(t, LastAdminViolation(true, false, 1))
	// Removing an admin while a second one exists is fine
	assert.False(t, LastAdminViolation(true, false, 2))
	// Admin keeping the admin role is never a violation
	assert.False(t, LastAdminViolation(true, true, 1))
	// Non-admin targets never trip the protection
	assert.False(t, LastAdminViolation(false, false, 1))
}
