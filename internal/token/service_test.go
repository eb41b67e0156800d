package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saaskit/internal/model"
	"saaskit/pkg/config"
	"saaskit/pkg/jwtutil"
)

// fakeStore is an in-memory token.Store
type fakeStore struct {
	records map[string]*model.RefreshToken // keyed by hash
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*model.RefreshToken)}
}

func (s *fakeStore) Create(t *model.RefreshToken) error {
	s.records[t.TokenHash] = t
	return nil
}

func (s *fakeStore) FindByHash(hash string) (*model.RefreshToken, error) {
	return s.records[hash], nil
}

func (s *fakeStore) DeleteByID(id string) error {
	for hash, t := range s.records {
		if t.ID == id {
			delete(s.records, hash)
		}
	}
	return nil
}

func (s *fakeStore) DeleteByHash(hash string) (int64, error) {
	if _, ok := s.records[hash]; !ok {
		return 0, nil
	}
	delete(s.records, hash)
	return 1, nil
}

func (s *fakeStore) DeleteAllForUser(userID uint) (int64, error) {
	var n int64
	for hash, t := range s.records {
		if t.UserID == userID {
			delete(s.records, hash)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) DeleteExpired(now time.Time) (int64, error) {
	var n int64
	for hash, t := range s.records {
		if t.ExpiresAt.Before(now) {
			delete(s.records, hash)
			n++
		}
	}
	return n, nil
}

func newTestService(store Store) *Service {
	jwt := jwtutil.NewJWTUtil(&config.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    168 * time.Hour,
	})
	return NewService(jwt, store)
}

func TestIssuePairStoresHashNotToken(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	pair, err := svc.IssuePair(1, nil, ClientMeta{UserAgent: "test", IP: "127.0.0.1"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	require.Len(t, store.records, 1)
	record, err := store.FindByHash(HashToken(pair.RefreshToken))
	require.NoError(t, err)
	require.NotNil(t, record)

	// Only the hash is persisted, never the raw token
	assert.NotEqual(t, pair.RefreshToken, record.TokenHash)
	assert.Equal(t, uint(1), record.UserID)
	assert.Equal(t, "test", record.UserAgent)
}

func TestRotateIsSingleUse(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	pair, err := svc.IssuePair(1, nil, ClientMeta{})
	require.NoError(t, err)

	rotated, err := svc.Rotate(pair.RefreshToken, ClientMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The superseded token is gone: replaying it fails
	_, err = svc.Rotate(pair.RefreshToken, ClientMeta{})
	assert.ErrorIs(t, err, ErrTokenNotFound)

	// The new token still works
	_, err = svc.Rotate(rotated.RefreshToken, ClientMeta{})
	assert.NoError(t, err)
}

func TestRotateMalformedToken(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Rotate("not-a-jwt", ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRotateExpiredStoredRow(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	pair, err := svc.IssuePair(1, nil, ClientMeta{})
	require.NoError(t, err)

	// Backdate the stored expiry; the signed token itself is still valid
	record := store.records[HashToken(pair.RefreshToken)]
	record.ExpiresAt = time.Now().Add(-time.Hour)

	_, err = svc.Rotate(pair.RefreshToken, ClientMeta{})
	assert.ErrorIs(t, err, ErrTokenExpired)

	// The stale row was pruned as a side effect
	assert.Empty(t, store.records)
}

func TestRevokeThenRotateFails(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	pair, err := svc.IssuePair(1, nil, ClientMeta{})
	require.NoError(t, err)

	removed, err := svc.Revoke(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = svc.Rotate(pair.RefreshToken, ClientMeta{})
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRevokeIsIdempotent(t *testing.T) {
	svc := newTestService(newFakeStore())

	// Unknown tokens revoke cleanly and report zero removed rows
	removed, err := svc.Revoke("never-issued")
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = svc.Revoke("never-issued")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestRevokeAll(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	// Multi-device: the same user may hold several sessions
	_, err := svc.IssuePair(1, nil, ClientMeta{UserAgent: "laptop"})
	require.NoError(t, err)
	_, err = svc.IssuePair(1, nil, ClientMeta{UserAgent: "phone"})
	require.NoError(t, err)
	other, err := svc.IssuePair(2, nil, ClientMeta{})
	require.NoError(t, err)

	removed, err := svc.RevokeAll(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	assert.Len(t, store.records, 1)
	record, _ := store.FindByHash(HashToken(other.RefreshToken))
	assert.NotNil(t, record)
}

func TestSweepExpired(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	pair, err := svc.IssuePair(1, nil, ClientMeta{})
	require.NoError(t, err)
	_, err = svc.IssuePair(2, nil, ClientMeta{})
	require.NoError(t, err)

	store.records[HashToken(pair.RefreshToken)].ExpiresAt = time.Now().Add(-time.Minute)

	removed, err := svc.SweepExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Len(t, store.records, 1)
}

func TestHashTokenIsDeterministicAndOpaque(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}
