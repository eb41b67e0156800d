package store

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	return gormDB, mock
}

func TestRefreshTokenStoreFindByHash(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewRefreshTokenStore(db)

	expires := time.Now().Add(time.Hour)
	rows := sqlmock.NewRows([]string{"id", "token_hash", "user_id", "organization_id", "user_agent", "ip", "expires_at", "created_at"}).
		AddRow("tok-1", "abc123", 7, nil, "test-agent", "127.0.0.1", expires, time.Now())

	mock.ExpectQuery(`SELECT (.+) FROM "refresh_tokens" WHERE token_hash =`).
		WillReturnRows(rows)

	token, err := s.FindByHash("abc123")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "tok-1", token.ID)
	assert.Equal(t, uint(7), token.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenStoreFindByHashMissing(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewRefreshTokenStore(db)

	mock.ExpectQuery(`SELECT (.+) FROM "refresh_tokens" WHERE token_hash =`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	// Absence is not an error: the caller distinguishes nil
	token, err := s.FindByHash("unknown")
	require.NoError(t, err)
	assert.Nil(t, token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenStoreDeleteByHash(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewRefreshTokenStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "refresh_tokens" WHERE token_hash =`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := s.DeleteByHash("abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenStoreDeleteAllForUser(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewRefreshTokenStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "refresh_tokens" WHERE user_id =`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	removed, err := s.DeleteAllForUser(7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenStoreDeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewRefreshTokenStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "refresh_tokens" WHERE expires_at <`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	removed, err := s.DeleteExpired(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
