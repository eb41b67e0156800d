package handler

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRegisterDuplicateEmailOnInsert(t *testing.T) {
	mock := newMockDB(t)
	e := echo.New()
	e.POST("/auth/register", Register)

	// The pre-insert existence check sees nothing...
	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE email =`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	// ...but a concurrent registration wins the insert and the unique
	// index rejects ours.
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	rec := postJSON(e, "/auth/register", `{"email":"dup@example.com","password":"secret"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", errCode(t, rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}
