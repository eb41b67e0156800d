package model

import "time"

// RefreshToken represents one active session. Only the SHA-256 hash of
// the signed token is stored, never the raw value, so a database dump
// does not yield usable tokens. Rows are hard-deleted on rotation,
// revocation and expiry; there is no soft delete here.
type RefreshToken struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	TokenHash      string    `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	UserID         uint      `json:"user_id" gorm:"index;not null"`
	OrganizationID *uint     `json:"organization_id,omitempty" gorm:"index"`
	UserAgent      string    `json:"user_agent" gorm:"type:varchar(255)"`
	IP             string    `json:"ip" gorm:"type:varchar(45)"`
	ExpiresAt      time.Time `json:"expires_at" gorm:"index;not null"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsExpired checks if the stored expiry has passed
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
