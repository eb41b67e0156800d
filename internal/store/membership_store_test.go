package store

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saaskit/internal/model"
)

func TestMembershipStoreFindActive(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewMembershipStore(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "organization_id", "role", "status", "joined_at"}).
		AddRow(100, 1, 10, model.RoleManager, model.MembershipStatusActive, time.Now())

	mock.ExpectQuery(`SELECT (.+) FROM "memberships" WHERE \(user_id =`).
		WillReturnRows(rows)

	m, err := s.FindActive(1, 10)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.RoleManager, m.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStoreFindActiveMissing(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewMembershipStore(db)

	mock.ExpectQuery(`SELECT (.+) FROM "memberships" WHERE \(user_id =`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	m, err := s.FindActive(1, 10)
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipStoreCountActiveAdmins(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewMembershipStore(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "memberships"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := s.CountActiveAdmins(10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
