package model

import (
	"time"

	"gorm.io/gorm"
)

// User statuses. Only active users may authenticate.
const (
	UserStatusActive    = "active"
	UserStatusInactive  = "inactive"
	UserStatusSuspended = "suspended"
)

// User represents the user model stored in the database. Emails are
// normalized to lowercase before they reach the store.
type User struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Email       string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password    string         `json:"-" gorm:"type:varchar(255)"`
	FirstName   string         `json:"first_name" gorm:"type:varchar(100)"`
	LastName    string         `json:"last_name" gorm:"type:varchar(100)"`
	Status      string         `json:"status" gorm:"type:varchar(20);default:'active'"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsActive reports whether the user is allowed to authenticate
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
