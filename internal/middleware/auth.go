package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"saaskit/internal/httperr"
	"saaskit/pkg/jwtutil"
	"saaskit/pkg/logger"
	"saaskit/prometheus"
)

// Auth returns a middleware that validates the bearer access token and
// attaches the caller's user id to the request context. Verification is
// stateless: signature and expiry only, no store lookup.
func Auth(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing Authorization header")
				prometheus.RecordAuthError("missing_token")
				return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeUnauthenticated, "missing authorization token")
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Warn("Invalid Authorization header format")
				prometheus.RecordAuthError("invalid_auth_format")
				return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeUnauthenticated, "invalid authorization format, expected Bearer token")
			}

			claims, err := jwtUtil.ValidateAccessToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired access token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeUnauthenticated, "invalid or expired token")
			}

			c.Set("user_id", claims.UserID)
			return next(c)
		}
	}
}

// UserID returns the authenticated user's id from the context. The
// second return is false when the request did not pass Auth.
func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get("user_id").(uint)
	return id, ok
}
