package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"saaskit/internal/httperr"
	"saaskit/internal/middleware"
	"saaskit/internal/model"
	"saaskit/pkg/database"
	"saaskit/pkg/logger"
	"saaskit/prometheus"
)

// ListMembers returns the organization's memberships with user details.
// Requires at least the manager role.
func ListMembers(c echo.Context) error {
	log := logger.FromContext(c)

	org, ok := middleware.Org(c)
	if !ok {
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization context missing")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var memberships []model.Membership
	if err := database.GetDB().
		Preload("User").
		Where("organization_id = ?", org.ID).
		Find(&memberships).Error; err != nil {
		log.Error("Failed to list members", zap.Uint("org_id", org.ID), zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "failed to list members")
	}

	return c.JSON(http.StatusOK, echo.Map{"members": memberships})
}

func targetMembership(orgID uint, param string) (*model.Membership, error) {
	targetUserID, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return nil, err
	}
	var m model.Membership
	dbErr := database.GetDB().
		Where("user_id = ? AND organization_id = ? AND status = ?",
			uint(targetUserID), orgID, model.MembershipStatusActive).
		First(&m).Error
	if dbErr != nil {
		return nil, dbErr
	}
	return &m, nil
}

// UpdateMemberRole changes another membership's role. The caller must be
// org_admin (may act on anyone) or a manager acting on a technician; an
// operation that would leave the organization with no active org_admin
// is refused.
func UpdateMemberRole(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrgOperation("member_update")

	org, ok := middleware.Org(c)
	if !ok {
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization context missing")
	}
	actor, ok := middleware.Member(c)
	if !ok {
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeNotAMember, "not a member of this organization")
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "invalid request")
	}
	if !model.RoleValid(req.Role) {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "unknown role")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	target, err := targetMembership(org.ID, c.Param("userID"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.JSON(c, http.StatusNotFound, httperr.CodeNotFound, "membership not found")
		}
		log.Error("Failed to resolve target membership", zap.Error(err))
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "invalid user id")
	}

	// Authority over the target
	if !model.CanManageMember(actor.Role, target.Role) {
		prometheus.RecordAuthError("insufficient_role")
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeInsufficientRole, "insufficient role to manage this member")
	}
	// Managers may not promote beyond their own level
	if actor.Role == model.RoleManager && model.RoleLevel(req.Role) > model.RoleLevel(model.RoleManager) {
		prometheus.RecordAuthError("insufficient_role")
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeInsufficientRole, "insufficient role to grant this role")
	}

	// Lockout protection: never leave the organization without an
	// active org_admin.
	targetIsAdmin := target.Role == model.RoleOrgAdmin
	keepsAdmin := req.Role == model.RoleOrgAdmin
	if targetIsAdmin && !keepsAdmin {
		admins, err := countActiveAdmins(org.ID)
		if err != nil {
			log.Error("Failed to count active admins", zap.Uint("org_id", org.ID), zap.Error(err))
			return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "role update failed")
		}
		if model.LastAdminViolation(targetIsAdmin, keepsAdmin, admins) {
			prometheus.RecordAuthError("last_admin_protected")
			return httperr.JSON(c, http.StatusForbidden, httperr.CodeLastAdminProtected, "organization must retain at least one active admin")
		}
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	result := database.GetDB().Model(&model.Membership{}).
		Where("id = ? AND status = ?", target.ID, model.MembershipStatusActive).
		Update("role", req.Role)
	if result.Error != nil {
		log.Error("Failed to update member role", zap.Uint("membership_id", target.ID), zap.Error(result.Error))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "role update failed")
	}
	if result.RowsAffected == 0 {
		return httperr.JSON(c, http.StatusNotFound, httperr.CodeNotFound, "membership not found")
	}

	log.Info("Member role updated",
		zap.Uint("org_id", org.ID),
		zap.Uint("target_user_id", target.UserID),
		zap.String("role", req.Role))

	target.Role = req.Role
	return c.JSON(http.StatusOK, echo.Map{"membership": target})
}

// RemoveMember removes a membership from the organization. Anyone may
// remove themselves (leave); removing another member requires authority
// over the target. Last-admin protection applies either way.
func RemoveMember(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrgOperation("member_remove")

	org, ok := middleware.Org(c)
	if !ok {
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization context missing")
	}
	actor, ok := middleware.Member(c)
	if !ok {
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeNotAMember, "not a member of this organization")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	target, err := targetMembership(org.ID, c.Param("userID"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.JSON(c, http.StatusNotFound, httperr.CodeNotFound, "membership not found")
		}
		log.Error("Failed to resolve target membership", zap.Error(err))
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "invalid user id")
	}

	// Self-removal is always permitted (subject to last-admin below);
	// removing another member requires authority over the target.
	if target.UserID != actor.UserID && !model.CanManageMember(actor.Role, target.Role) {
		prometheus.RecordAuthError("insufficient_role")
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeInsufficientRole, "insufficient role to remove this member")
	}

	if target.Role == model.RoleOrgAdmin {
		admins, err := countActiveAdmins(org.ID)
		if err != nil {
			log.Error("Failed to count active admins", zap.Uint("org_id", org.ID), zap.Error(err))
			return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "member removal failed")
		}
		if model.LastAdminViolation(true, false, admins) {
			prometheus.RecordAuthError("last_admin_protected")
			return httperr.JSON(c, http.StatusForbidden, httperr.CodeLastAdminProtected, "organization must retain at least one active admin")
		}
	}

	// Conditional soft delete keeps a concurrent removal from racing
	defer prometheus.TrackDBOperation("delete")(time.Now())
	result := database.GetDB().
		Where("id = ? AND status = ?", target.ID, model.MembershipStatusActive).
		Delete(&model.Membership{})
	if result.Error != nil {
		log.Error("Failed to remove member", zap.Uint("membership_id", target.ID), zap.Error(result.Error))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "member removal failed")
	}
	if result.RowsAffected == 0 {
		return httperr.JSON(c, http.StatusNotFound, httperr.CodeNotFound, "membership not found")
	}

	log.Info("Member removed",
		zap.Uint("org_id", org.ID),
		zap.Uint("target_user_id", target.UserID))

	return c.JSON(http.StatusOK, echo.Map{"message": "member removed"})
}

func countActiveAdmins(orgID uint) (int64, error) {
	var count int64
	err := database.GetDB().Model(&model.Membership{}).
		Where("organization_id = ? AND role = ? AND status = ?",
			orgID, model.RoleOrgAdmin, model.MembershipStatusActive).
		Count(&count).Error
	return count, err
}
