package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketCanMutate(t *testing.T) {
	ticket := &Ticket{ID: 1, OrganizationID: 10, CreatedBy: 7}

	tests := []struct {
		name   string
		userID uint
		role   string
		want   bool
	}{
		{"org admin on any ticket", 2, RoleOrgAdmin, true},
		{"manager on any ticket", 2, RoleManager, true},
		{"technician on own ticket", 7, RoleTechnician, true},
		{"technician on another member's ticket", 2, RoleTechnician, false},
		{"unknown role, not the creator", 2, "owner", false},
		{"unknown role, creator", 7, "", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ticket.CanMutate(tt.userID, tt.role), tt.name)
	}
}
