package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"saaskit/internal/httperr"
	"saaskit/internal/middleware"
	"saaskit/internal/model"
	"saaskit/internal/token"
	"saaskit/pkg/database"
	"saaskit/pkg/logger"
	"saaskit/prometheus"
)

// RefreshCookieName is the cookie carrying the refresh token. The cookie
// is HttpOnly and SameSite=Strict, scoped to the auth endpoints.
const RefreshCookieName = "refresh_token"

const refreshCookiePath = "/auth"

var tokens *token.Service

// InitAuthHandlers wires the token service into the auth handlers
func InitAuthHandlers(svc *token.Service) {
	tokens = svc
}

func clientMeta(c echo.Context) token.ClientMeta {
	return token.ClientMeta{
		UserAgent: c.Request().UserAgent(),
		IP:        c.RealIP(),
	}
}

func setRefreshCookie(c echo.Context, rawToken string) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    rawToken,
		Path:     refreshCookiePath,
		Expires:  time.Now().Add(tokens.RefreshTTL()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// presentedRefreshToken reads the refresh token from the cookie first,
// falling back to the JSON body for non-browser clients.
func presentedRefreshToken(c echo.Context) string {
	if cookie, err := c.Cookie(RefreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err == nil {
		return req.RefreshToken
	}
	return ""
}

// Register creates a new user account and logs it in
func Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "invalid request")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_registration")
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "email and password are required")
	}

	// Check if user already exists
	defer prometheus.TrackDBOperation("query")(time.Now())
	var existingUser model.User
	if result := database.GetDB().Where("email = ?", req.Email).First(&existingUser); result.Error == nil {
		log.Warn("User already exists", zap.String("email", req.Email))
		prometheus.RecordAuthError("email_already_exists")
		return httperr.JSON(c, http.StatusConflict, httperr.CodeConflict, "email already registered")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "registration failed")
	}

	user := model.User{
		Email:     req.Email,
		Password:  string(hashedPassword),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Status:    model.UserStatusActive,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		// A concurrent registration can win the insert after the
		// existence check; the unique index is the source of truth.
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			prometheus.RecordAuthError("email_already_exists")
			return httperr.JSON(c, http.StatusConflict, httperr.CodeConflict, "email already registered")
		}
		log.Error("Failed to create user", zap.Error(result.Error))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "registration failed")
	}

	pair, err := tokens.IssuePair(user.ID, nil, clientMeta(c))
	if err != nil {
		log.Error("Failed to issue token pair", zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "registration failed")
	}
	setRefreshCookie(c, pair.RefreshToken)
	prometheus.IncreaseActiveSessions()

	log.Info("User registered", zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, echo.Map{
		"user":          user,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// Login authenticates a user with email and password and issues a token
// pair.
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "invalid request")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if result := database.GetDB().Where("email = ?", req.Email).First(&user); result.Error != nil {
		log.Warn("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeUnauthenticated, "invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeUnauthenticated, "invalid credentials")
	}

	// Only active users may authenticate
	if !user.IsActive() {
		log.Warn("Login attempt on non-active account",
			zap.String("email", req.Email),
			zap.String("status", user.Status))
		prometheus.RecordAuthError("account_not_active")
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeUnauthenticated, "account is not active")
	}

	now := time.Now()
	if err := database.GetDB().Model(&user).Update("last_login_at", now).Error; err != nil {
		// Not fatal for the login itself
		log.Warn("Failed to update last login timestamp", zap.Error(err))
	}
	user.LastLoginAt = &now

	pair, err := tokens.IssuePair(user.ID, nil, clientMeta(c))
	if err != nil {
		log.Error("Failed to issue token pair", zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "login failed")
	}
	setRefreshCookie(c, pair.RefreshToken)
	prometheus.IncreaseActiveSessions()

	log.Info("User logged in", zap.String("email", user.Email))
	return c.JSON(http.StatusOK, echo.Map{
		"user":          user,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// Refresh rotates the presented refresh token for a brand-new pair.
// Rotation is single-use; a replayed token fails with TOKEN_NOT_FOUND.
func Refresh(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.TokenRotationCounter.Inc()

	raw := presentedRefreshToken(c)
	if raw == "" {
		prometheus.RecordAuthError("missing_refresh_token")
		return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeInvalidToken, "refresh token required")
	}

	pair, err := tokens.Rotate(raw, clientMeta(c))
	if err != nil {
		switch {
		case errors.Is(err, token.ErrInvalidToken):
			prometheus.RecordAuthError("invalid_refresh_token")
			return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeInvalidToken, "invalid refresh token")
		case errors.Is(err, token.ErrTokenNotFound):
			prometheus.RecordAuthError("refresh_token_not_found")
			return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeTokenNotFound, "refresh token not recognized")
		case errors.Is(err, token.ErrTokenExpired):
			prometheus.RecordAuthError("refresh_token_expired")
			prometheus.DecreaseActiveSessions()
			return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeTokenExpired, "refresh token expired")
		default:
			log.Error("Failed to rotate refresh token", zap.Error(err))
			return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "token rotation failed")
		}
	}

	setRefreshCookie(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// Logout revokes the presented refresh token and clears the cookie.
// Idempotent: logging out with an unknown token still succeeds.
func Logout(c echo.Context) error {
	log := logger.FromContext(c)

	if raw := presentedRefreshToken(c); raw != "" {
		removed, err := tokens.Revoke(raw)
		if err != nil {
			log.Error("Failed to revoke refresh token", zap.Error(err))
			return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "logout failed")
		}
		// Only count sessions that actually existed
		if removed > 0 {
			prometheus.DecreaseActiveSessions()
		}
	}
	clearRefreshCookie(c)

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// LogoutAll revokes every refresh token the caller holds
// (logout-everywhere). Requires a valid access token.
func LogoutAll(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserID(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeUnauthenticated, "authentication required")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	removed, err := tokens.RevokeAll(userID)
	if err != nil {
		log.Error("Failed to revoke all sessions", zap.Uint("user_id", userID), zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "logout failed")
	}
	prometheus.SubtractActiveSessions(removed)
	clearRefreshCookie(c)

	log.Info("All sessions revoked", zap.Uint("user_id", userID))
	return c.JSON(http.StatusOK, echo.Map{"message": "all sessions revoked"})
}
