package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"saaskit/internal/httperr"
	"saaskit/internal/middleware"
	"saaskit/internal/model"
	"saaskit/internal/token"
	"saaskit/pkg/database"
	"saaskit/pkg/logger"
	"saaskit/prometheus"
)

var inviteTTL = 168 * time.Hour

// InitInvitationHandlers sets the invitation validity window
func InitInvitationHandlers(ttl time.Duration) {
	if ttl > 0 {
		inviteTTL = ttl
	}
}

// CreateInvitation invites an email address into the organization with a
// role. Managers may only invite technicians; org admins any role. The
// invite secret is returned once and only its hash is stored.
func CreateInvitation(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInvitationOperation("create")

	org, ok := middleware.Org(c)
	if !ok {
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization context missing")
	}
	actor, ok := middleware.Member(c)
	if !ok {
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeNotAMember, "not a member of this organization")
	}

	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "invalid request")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "email is required")
	}
	if req.Role == "" {
		req.Role = model.RoleTechnician
	}
	if !model.RoleValid(req.Role) {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "unknown role")
	}

	// The inviter may only grant roles it has authority over
	if actor.Role != model.RoleOrgAdmin && req.Role != model.RoleTechnician {
		prometheus.RecordAuthError("insufficient_role")
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeInsufficientRole, "insufficient role to invite with this role")
	}

	// Refuse inviting someone who is already an active member
	defer prometheus.TrackDBOperation("query")(time.Now())
	var existingMember model.Membership
	err := database.GetDB().
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("users.email = ? AND memberships.organization_id = ? AND memberships.status = ?",
			req.Email, org.ID, model.MembershipStatusActive).
		First(&existingMember).Error
	if err == nil {
		return httperr.JSON(c, http.StatusConflict, httperr.CodeConflict, "user is already a member")
	}

	var existingInvite model.Invitation
	err = database.GetDB().
		Where("organization_id = ? AND email = ? AND status = ?",
			org.ID, req.Email, model.InvitationStatusPending).
		First(&existingInvite).Error
	if err == nil && !existingInvite.IsExpired() {
		return httperr.JSON(c, http.StatusConflict, httperr.CodeConflict, "a pending invitation already exists")
	}

	rawSecret := uuid.New().String()
	invitation := model.Invitation{
		ID:             uuid.New().String(),
		OrganizationID: org.ID,
		Email:          req.Email,
		Role:           req.Role,
		TokenHash:      token.HashToken(rawSecret),
		Status:         model.InvitationStatusPending,
		InvitedBy:      actor.UserID,
		ExpiresAt:      time.Now().Add(inviteTTL),
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&invitation); result.Error != nil {
		log.Error("Failed to create invitation", zap.Error(result.Error))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "invitation failed")
	}

	log.Info("Invitation created",
		zap.Uint("org_id", org.ID),
		zap.String("email", req.Email),
		zap.String("role", req.Role))

	// The raw secret is delivered to the invitee out of band; it is
	// not recoverable from the store.
	return c.JSON(http.StatusCreated, echo.Map{
		"invitation": invitation,
		"token":      rawSecret,
	})
}

// ListInvitations returns the organization's invitations
func ListInvitations(c echo.Context) error {
	log := logger.FromContext(c)

	org, ok := middleware.Org(c)
	if !ok {
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization context missing")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var invitations []model.Invitation
	if err := database.GetDB().
		Where("organization_id = ?", org.ID).
		Order("created_at DESC").
		Find(&invitations).Error; err != nil {
		log.Error("Failed to list invitations", zap.Uint("org_id", org.ID), zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "failed to list invitations")
	}

	return c.JSON(http.StatusOK, echo.Map{"invitations": invitations})
}

// RevokeInvitation cancels a pending invitation. Allowed for org admins
// and for the member who originally sent it.
func RevokeInvitation(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInvitationOperation("revoke")

	org, ok := middleware.Org(c)
	if !ok {
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization context missing")
	}
	actor, ok := middleware.Member(c)
	if !ok {
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeNotAMember, "not a member of this organization")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var invitation model.Invitation
	if err := database.GetDB().
		Where("id = ? AND organization_id = ?", c.Param("id"), org.ID).
		First(&invitation).Error; err != nil {
		return httperr.JSON(c, http.StatusNotFound, httperr.CodeNotFound, "invitation not found")
	}

	if actor.Role != model.RoleOrgAdmin && invitation.InvitedBy != actor.UserID {
		prometheus.RecordAuthError("insufficient_role")
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeInsufficientRole, "insufficient role to revoke this invitation")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	result := database.GetDB().Model(&model.Invitation{}).
		Where("id = ? AND status = ?", invitation.ID, model.InvitationStatusPending).
		Update("status", model.InvitationStatusRevoked)
	if result.Error != nil {
		log.Error("Failed to revoke invitation", zap.String("invitation_id", invitation.ID), zap.Error(result.Error))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "revocation failed")
	}
	if result.RowsAffected == 0 {
		return httperr.JSON(c, http.StatusConflict, httperr.CodeConflict, "invitation is no longer pending")
	}

	log.Info("Invitation revoked", zap.String("invitation_id", invitation.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "invitation revoked"})
}

// AcceptInvitation redeems an invite secret for a membership. The
// authenticated caller's email must match the invited address.
func AcceptInvitation(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordInvitationOperation("accept")

	userID, ok := middleware.UserID(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeUnauthenticated, "authentication required")
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "token is required")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var invitation model.Invitation
	if err := database.GetDB().
		Where("token_hash = ?", token.HashToken(req.Token)).
		First(&invitation).Error; err != nil {
		return httperr.JSON(c, http.StatusNotFound, httperr.CodeInviteInvalid, "invitation not found")
	}

	if invitation.Status != model.InvitationStatusPending {
		return httperr.JSON(c, http.StatusConflict, httperr.CodeInviteInvalid, "invitation is no longer pending")
	}
	if invitation.IsExpired() {
		// Best-effort status flip; acceptance fails regardless
		database.GetDB().Model(&model.Invitation{}).
			Where("id = ? AND status = ?", invitation.ID, model.InvitationStatusPending).
			Update("status", model.InvitationStatusExpired)
		return httperr.JSON(c, http.StatusGone, httperr.CodeInviteInvalid, "invitation has expired")
	}

	var user model.User
	if result := database.GetDB().First(&user, userID); result.Error != nil {
		return httperr.JSON(c, http.StatusNotFound, httperr.CodeNotFound, "user not found")
	}
	if !invitation.EmailMatches(user.Email) {
		prometheus.RecordAuthError("invite_email_mismatch")
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeInviteEmailMismatch, "invitation was issued for a different email")
	}

	var existing model.Membership
	err := database.GetDB().
		Where("user_id = ? AND organization_id = ? AND status = ?",
			userID, invitation.OrganizationID, model.MembershipStatusActive).
		First(&existing).Error
	if err == nil {
		return httperr.JSON(c, http.StatusConflict, httperr.CodeConflict, "already a member of this organization")
	}

	tx := database.GetDB().Begin()
	if tx.Error != nil {
		log.Error("Failed to begin transaction", zap.Error(tx.Error))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "database error")
	}

	membership := model.Membership{
		UserID:         userID,
		OrganizationID: invitation.OrganizationID,
		Role:           invitation.Role,
		Status:         model.MembershipStatusActive,
		InvitedBy:      &invitation.InvitedBy,
		JoinedAt:       time.Now(),
	}
	if result := tx.Create(&membership); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to create membership from invitation", zap.Error(result.Error))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "acceptance failed")
	}

	// Conditional flip makes acceptance single-use under concurrency
	now := time.Now()
	result := tx.Model(&model.Invitation{}).
		Where("id = ? AND status = ?", invitation.ID, model.InvitationStatusPending).
		Updates(map[string]interface{}{
			"status":      model.InvitationStatusAccepted,
			"accepted_at": now,
		})
	if result.Error != nil || result.RowsAffected == 0 {
		tx.Rollback()
		return httperr.JSON(c, http.StatusConflict, httperr.CodeInviteInvalid, "invitation is no longer pending")
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "acceptance failed")
	}

	log.Info("Invitation accepted",
		zap.String("invitation_id", invitation.ID),
		zap.Uint("user_id", userID),
		zap.Uint("org_id", invitation.OrganizationID))

	return c.JSON(http.StatusOK, echo.Map{"membership": membership})
}
