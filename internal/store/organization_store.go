package store

import (
	"errors"

	"gorm.io/gorm"

	"saaskit/internal/model"
)

// OrganizationStore resolves organizations for the request pipeline
type OrganizationStore struct {
	db *gorm.DB
}

// NewOrganizationStore creates an organization store over the database
func NewOrganizationStore(db *gorm.DB) *OrganizationStore {
	return &OrganizationStore{db: db}
}

// FindBySlug looks up an organization by its URL slug. Returns
// (nil, nil) when no organization matches.
func (s *OrganizationStore) FindBySlug(slug string) (*model.Organization, error) {
	var org model.Organization
	err := s.db.Where("slug = ?", slug).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}
