package model

import (
	"time"

	"gorm.io/gorm"
)

// Ticket statuses
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusClosed     = "closed"
)

// Ticket is the demo work-order entity. Tickets are scoped to an
// organization; technicians may only mutate tickets they created, while
// managers and org admins may mutate any ticket in the organization.
type Ticket struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	OrganizationID uint           `json:"organization_id" gorm:"index;not null"`
	CreatedBy      uint           `json:"created_by" gorm:"index;not null"`
	Title          string         `json:"title" gorm:"type:varchar(200);not null"`
	Body           string         `json:"body" gorm:"type:text"`
	Status         string         `json:"status" gorm:"type:varchar(20);default:'open'"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// CanMutate reports whether a caller with the given role and user id may
// update or delete this ticket.
func (t *Ticket) CanMutate(userID uint, role string) bool {
	if RoleAtLeast(role, RoleManager) {
		return true
	}
	return t.CreatedBy == userID
}
