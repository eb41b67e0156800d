package store

import (
	"errors"

	"gorm.io/gorm"

	"saaskit/internal/model"
)

// MembershipStore answers membership and role questions for the request
// pipeline and the member management handlers.
type MembershipStore struct {
	db *gorm.DB
}

// NewMembershipStore creates a membership store over the database
func NewMembershipStore(db *gorm.DB) *MembershipStore {
	return &MembershipStore{db: db}
}

// FindActive looks up the caller's active membership in an organization.
// Returns (nil, nil) when no active membership exists.
func (s *MembershipStore) FindActive(userID, orgID uint) (*model.Membership, error) {
	var m model.Membership
	err := s.db.Where("user_id = ? AND organization_id = ? AND status = ?",
		userID, orgID, model.MembershipStatusActive).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CountActiveAdmins returns the live count of active org_admin
// memberships in an organization. The last-admin protection reads this
// at decision time.
func (s *MembershipStore) CountActiveAdmins(orgID uint) (int64, error) {
	var count int64
	err := s.db.Model(&model.Membership{}).
		Where("organization_id = ? AND role = ? AND status = ?",
			orgID, model.RoleOrgAdmin, model.MembershipStatusActive).
		Count(&count).Error
	return count, err
}
