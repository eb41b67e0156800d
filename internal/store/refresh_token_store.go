package store

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"saaskit/internal/model"
)

// RefreshTokenStore persists hashed refresh tokens. All lookups are by
// the hash, never the raw token. No uniqueness is enforced per user: a
// user may hold many concurrent sessions.
type RefreshTokenStore struct {
	db *gorm.DB
}

// NewRefreshTokenStore creates a refresh token store over the database
func NewRefreshTokenStore(db *gorm.DB) *RefreshTokenStore {
	return &RefreshTokenStore{db: db}
}

// Create inserts a new refresh token row
func (s *RefreshTokenStore) Create(token *model.RefreshToken) error {
	return s.db.Create(token).Error
}

// FindByHash looks up a token by its hash. Returns (nil, nil) when no
// row matches.
func (s *RefreshTokenStore) FindByHash(hash string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	err := s.db.Where("token_hash = ?", hash).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// DeleteByID removes a token row by its id
func (s *RefreshTokenStore) DeleteByID(id string) error {
	return s.db.Where("id = ?", id).Delete(&model.RefreshToken{}).Error
}

// DeleteByHash removes a token row by its hash and reports whether a
// row was deleted. Deleting a hash that is not present is not an error.
func (s *RefreshTokenStore) DeleteByHash(hash string) (int64, error) {
	result := s.db.Where("token_hash = ?", hash).Delete(&model.RefreshToken{})
	return result.RowsAffected, result.Error
}

// DeleteAllForUser removes every refresh token row for the user
// (logout-everywhere) and returns how many were deleted.
func (s *RefreshTokenStore) DeleteAllForUser(userID uint) (int64, error) {
	result := s.db.Where("user_id = ?", userID).Delete(&model.RefreshToken{})
	return result.RowsAffected, result.Error
}

// DeleteExpired removes all rows whose expiry is before now and returns
// how many were deleted.
func (s *RefreshTokenStore) DeleteExpired(now time.Time) (int64, error) {
	result := s.db.Where("expires_at < ?", now).Delete(&model.RefreshToken{})
	return result.RowsAffected, result.Error
}
