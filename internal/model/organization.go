package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Organization statuses
const (
	OrgStatusActive   = "active"
	OrgStatusInactive = "inactive"
)

// Organization is the tenant boundary. All tenant-scoped data is
// filtered by organization id at every query.
type Organization struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	Slug      string         `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	Status    string         `json:"status" gorm:"type:varchar(20);default:'active'"`
	OwnerID   uint           `json:"owner_id" gorm:"index;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsActive reports whether the organization accepts requests
func (o *Organization) IsActive() bool {
	return o.Status == OrgStatusActive
}

// Slugify derives a URL-safe slug from an organization name: lowercase,
// runs of non-alphanumerics collapsed to single hyphens, no leading or
// trailing hyphen.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
