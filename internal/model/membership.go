package model

import (
	"time"

	"gorm.io/gorm"
)

// Membership statuses
const (
	MembershipStatusActive   = "active"
	MembershipStatusInactive = "inactive"
	MembershipStatusPending  = "pending"
)

// Membership represents the association between a user and an
// organization, carrying the user's role within that organization. At
// most one active membership exists per (user, organization) pair.
type Membership struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	UserID         uint           `json:"user_id" gorm:"index;not null"`
	OrganizationID uint           `json:"organization_id" gorm:"index;not null"`
	Role           string         `json:"role" gorm:"type:varchar(50);not null;default:'technician'"`
	Status         string         `json:"status" gorm:"type:varchar(20);default:'active'"`
	InvitedBy      *uint          `json:"invited_by,omitempty"`
	JoinedAt       time.Time      `json:"joined_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User         User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Organization Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}

// IsActive reports whether the membership grants access
func (m *Membership) IsActive() bool {
	return m.Status == MembershipStatusActive
}
