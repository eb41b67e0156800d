package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saaskit/pkg/config"
	"saaskit/pkg/jwtutil"
)

func testJWT() *jwtutil.JWTUtil {
	return jwtutil.NewJWTUtil(&config.JWTConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    168 * time.Hour,
	})
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	code, _ := body["code"].(string)
	return code
}

func newAuthTestServer(jwt *jwtutil.JWTUtil) *echo.Echo {
	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		userID, _ := UserID(c)
		return c.JSON(http.StatusOK, echo.Map{"user_id": userID})
	}, Auth(jwt))
	return e
}

func TestAuthMissingHeader(t *testing.T) {
	e := newAuthTestServer(testJWT())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", errCode(t, rec))
}

func TestAuthMalformedHeader(t *testing.T) {
	e := newAuthTestServer(testJWT())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", errCode(t, rec))
}

func TestAuthInvalidToken(t *testing.T) {
	e := newAuthTestServer(testJWT())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", errCode(t, rec))
}

func TestAuthExpiredToken(t *testing.T) {
	expired := jwtutil.NewJWTUtil(&config.JWTConfig{
		AccessSecret: "access-secret",
		AccessTTL:    -time.Minute,
	})
	token, err := expired.GenerateAccessToken(7)
	require.NoError(t, err)

	e := newAuthTestServer(testJWT())
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", errCode(t, rec))
}

func TestAuthValidToken(t *testing.T) {
	jwt := testJWT()
	token, err := jwt.GenerateAccessToken(7)
	require.NoError(t, err)

	e := newAuthTestServer(jwt)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["user_id"])
}
