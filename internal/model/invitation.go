package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Invitation statuses
const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
	InvitationStatusRevoked  = "revoked"
	InvitationStatusExpired  = "expired"
)

// Invitation represents a pending offer of membership in an
// organization. The invite secret is delivered out of band (link in an
// email); only its hash is stored.
type Invitation struct {
	ID             string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrganizationID uint           `json:"organization_id" gorm:"index;not null"`
	Email          string         `json:"email" gorm:"type:varchar(100);index;not null"`
	Role           string         `json:"role" gorm:"type:varchar(50);not null;default:'technician'"`
	TokenHash      string         `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	Status         string         `json:"status" gorm:"type:varchar(20);default:'pending'"`
	InvitedBy      uint           `json:"invited_by" gorm:"not null"`
	ExpiresAt      time.Time      `json:"expires_at" gorm:"not null"`
	AcceptedAt     *time.Time     `json:"accepted_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Organization Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}

// IsExpired checks if the invitation expiry has passed
func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// IsPending reports whether the invitation can still be accepted
func (i *Invitation) IsPending() bool {
	return i.Status == InvitationStatusPending && !i.IsExpired()
}

// EmailMatches reports whether the invitation was issued for the given
// address. Comparison is case-insensitive; emails are lowercased on
// input but stored data may predate that.
func (i *Invitation) EmailMatches(email string) bool {
	return strings.EqualFold(i.Email, email)
}
