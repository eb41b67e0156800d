package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"saaskit/internal/httperr"
	"saaskit/internal/middleware"
	"saaskit/internal/model"
	"saaskit/pkg/database"
	"saaskit/pkg/logger"
	"saaskit/prometheus"
)

// GetProfile returns the authenticated user's own record
func GetProfile(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserID(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeUnauthenticated, "authentication required")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if result := database.GetDB().First(&user, userID); result.Error != nil {
		log.Error("User not found", zap.Uint("user_id", userID))
		return httperr.JSON(c, http.StatusNotFound, httperr.CodeNotFound, "user not found")
	}

	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

// UpdateProfile updates the authenticated user's display name fields
func UpdateProfile(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserID(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeUnauthenticated, "authentication required")
	}

	var req struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "invalid request")
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if len(updates) == 0 {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "nothing to update")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Model(&model.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		log.Error("Failed to update profile", zap.Uint("user_id", userID), zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "profile update failed")
	}

	var user model.User
	if result := database.GetDB().First(&user, userID); result.Error != nil {
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "profile update failed")
	}

	log.Info("Profile updated", zap.Uint("user_id", userID))
	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

// ChangePassword verifies the current password, stores a new hash, and
// revokes every session the user holds, the current one included; all
// clients re-authenticate with the new credential.
func ChangePassword(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserID(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeUnauthenticated, "authentication required")
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "invalid request")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "current and new password are required")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	if result := database.GetDB().First(&user, userID); result.Error != nil {
		return httperr.JSON(c, http.StatusNotFound, httperr.CodeNotFound, "user not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		prometheus.RecordAuthError("invalid_password")
		return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeUnauthenticated, "current password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "password change failed")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Model(&user).Update("password", string(hashed)).Error; err != nil {
		log.Error("Failed to update password", zap.Uint("user_id", userID), zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "password change failed")
	}

	// Existing sessions were minted against the old credential
	removed, err := tokens.RevokeAll(userID)
	if err != nil {
		log.Warn("Failed to revoke sessions after password change", zap.Uint("user_id", userID), zap.Error(err))
	} else {
		prometheus.SubtractActiveSessions(removed)
	}

	log.Info("Password changed", zap.Uint("user_id", userID))
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}
