// Package token implements the refresh token lifecycle: issuing
// access/refresh pairs, single-use rotation, revocation, and expiry
// cleanup. Raw refresh tokens are never persisted; the store only ever
// sees their SHA-256 hash.
package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	"saaskit/internal/model"
	"saaskit/pkg/jwtutil"
)

var (
	// ErrInvalidToken means the presented refresh token is malformed,
	// unsigned, or past its embedded expiry.
	ErrInvalidToken = errors.New("invalid refresh token")
	// ErrTokenNotFound means the hash is absent from the store: the
	// token was already rotated, revoked, or forged.
	ErrTokenNotFound = errors.New("refresh token not found")
	// ErrTokenExpired means the stored row exists but its expiry has
	// passed.
	ErrTokenExpired = errors.New("refresh token expired")
)

// Store is the persistence the token service needs. The gorm-backed
// implementation lives in internal/store.
type Store interface {
	Create(token *model.RefreshToken) error
	FindByHash(hash string) (*model.RefreshToken, error)
	DeleteByID(id string) error
	DeleteByHash(hash string) (int64, error)
	DeleteAllForUser(userID uint) (int64, error)
	DeleteExpired(now time.Time) (int64, error)
}

// ClientMeta carries request metadata recorded with each session
type ClientMeta struct {
	UserAgent string
	IP        string
}

// Pair is a freshly issued access/refresh token pair. RefreshToken is
// the raw signed token for delivery to the client; only its hash went
// into the store.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Service mints, rotates and revokes token pairs
type Service struct {
	jwt   *jwtutil.JWTUtil
	store Store
}

// NewService creates a token service
func NewService(jwt *jwtutil.JWTUtil, store Store) *Service {
	return &Service{jwt: jwt, store: store}
}

// HashToken returns the hex SHA-256 digest of a raw token. One-way, so a
// stolen database dump cannot be replayed directly.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IssuePair mints a new access token and refresh token for the user and
// persists the refresh token's hash.
func (s *Service) IssuePair(userID uint, orgID *uint, meta ClientMeta) (*Pair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(userID)
	if err != nil {
		return nil, err
	}

	tokenID := uuid.New().String()
	rawRefresh, err := s.jwt.GenerateRefreshToken(userID, tokenID)
	if err != nil {
		return nil, err
	}

	record := &model.RefreshToken{
		ID:             tokenID,
		TokenHash:      HashToken(rawRefresh),
		UserID:         userID,
		OrganizationID: orgID,
		UserAgent:      meta.UserAgent,
		IP:             meta.IP,
		ExpiresAt:      time.Now().Add(s.jwt.RefreshTTL()),
	}
	if err := s.store.Create(record); err != nil {
		return nil, err
	}

	return &Pair{AccessToken: accessToken, RefreshToken: rawRefresh}, nil
}

// Rotate exchanges a valid refresh token for a brand-new pair. Rotation
// is single-use: the old row is deleted before the new pair is issued,
// so a replayed token fails with ErrTokenNotFound.
func (s *Service) Rotate(rawRefresh string, meta ClientMeta) (*Pair, error) {
	if _, err := s.jwt.ValidateRefreshToken(rawRefresh); err != nil {
		return nil, ErrInvalidToken
	}

	record, err := s.store.FindByHash(HashToken(rawRefresh))
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrTokenNotFound
	}

	if record.IsExpired() {
		// Best-effort cleanup of the stale row
		_ = s.store.DeleteByID(record.ID)
		return nil, ErrTokenExpired
	}

	if err := s.store.DeleteByID(record.ID); err != nil {
		return nil, err
	}

	return s.IssuePair(record.UserID, record.OrganizationID, meta)
}

// Revoke deletes the stored hash for a raw token and reports how many
// rows were removed. Idempotent: revoking an unknown token is not an
// error, it removes zero rows.
func (s *Service) Revoke(rawRefresh string) (int64, error) {
	return s.store.DeleteByHash(HashToken(rawRefresh))
}

// RevokeAll deletes every stored refresh token for the user and returns
// the number of sessions revoked.
func (s *Service) RevokeAll(userID uint) (int64, error) {
	return s.store.DeleteAllForUser(userID)
}

// SweepExpired prunes all expired refresh token rows. Called on a
// schedule; rotation also prunes lazily.
func (s *Service) SweepExpired() (int64, error) {
	return s.store.DeleteExpired(time.Now())
}

// RefreshTTL exposes the refresh token lifetime for cookie expiry
func (s *Service) RefreshTTL() time.Duration {
	return s.jwt.RefreshTTL()
}
