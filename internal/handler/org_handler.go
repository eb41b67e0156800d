package handler

import (
	"errors"
	"net/http"
	"strings"
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

// CreateOrg creates an organization and the creator's org_admin
// membership in a single transaction, so a partially created
// organization-without-admin state is never committed.
func CreateOrg(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrgOperation("create")

	userID, ok := middleware.UserID(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeUnauthenticated, "authentication required")
	}

	var req struct {
		Name string `json:"name"`
		Slug string `json:"slug,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse organization creation request", zap.Error(err))
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "invalid request")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "name is required")
	}

	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = model.Slugify(req.Name)
	} else {
		slug = model.Slugify(slug)
	}
	if slug == "" {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "name does not produce a valid slug")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var existing model.Organization
	if result := database.GetDB().Where("slug = ?", slug).First(&existing); result.Error == nil {
		return httperr.JSON(c, http.StatusConflict, httperr.CodeConflict, "slug already in use")
	}

	tx := database.GetDB().Begin()
	if tx.Error != nil {
		log.Error("Failed to begin transaction", zap.Error(tx.Error))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "database error")
	}

	org := model.Organization{
		Name:    req.Name,
		Slug:    slug,
		Status:  model.OrgStatusActive,
		OwnerID: userID,
	}
	if result := tx.Create(&org); result.Error != nil {
		tx.Rollback()
		// A concurrent creation can claim the slug after the existence
		// check; the unique index is the source of truth.
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return httperr.JSON(c, http.StatusConflict, httperr.CodeConflict, "slug already in use")
		}
		log.Error("Failed to create organization", zap.Error(result.Error))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization creation failed")
	}

	membership := model.Membership{
		UserID:         userID,
		OrganizationID: org.ID,
		Role:           model.RoleOrgAdmin,
		Status:         model.MembershipStatusActive,
		JoinedAt:       time.Now(),
	}
	if result := tx.Create(&membership); result.Error != nil {
		tx.Rollback()
		log.Error("Failed to create admin membership", zap.Error(result.Error))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization creation failed")
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization creation failed")
	}

	log.Info("Organization created",
		zap.String("slug", org.Slug),
		zap.Uint("id", org.ID),
		zap.Uint("owner_id", org.OwnerID))

	return c.JSON(http.StatusCreated, echo.Map{
		"organization": org,
		"membership":   membership,
	})
}

// ListOrgs returns the organizations the caller actively belongs to,
// with the caller's role in each.
func ListOrgs(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.UserID(c)
	if !ok {
		return httperr.JSON(c, http.StatusUnauthorized, httperr.CodeUnauthenticated, "authentication required")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var memberships []model.Membership
	if err := database.GetDB().
		Preload("Organization").
		Where("user_id = ? AND status = ?", userID, model.MembershipStatusActive).
		Find(&memberships).Error; err != nil {
		log.Error("Failed to list organizations", zap.Uint("user_id", userID), zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "failed to list organizations")
	}

	type orgEntry struct {
		Organization model.Organization `json:"organization"`
		Role         string             `json:"role"`
		JoinedAt     time.Time          `json:"joined_at"`
	}
	entries := make([]orgEntry, 0, len(memberships))
	for _, m := range memberships {
		entries = append(entries, orgEntry{
			Organization: m.Organization,
			Role:         m.Role,
			JoinedAt:     m.JoinedAt,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"organizations": entries})
}

// GetOrg returns the organization resolved by the org-scope middleware,
// along with the caller's role there.
func GetOrg(c echo.Context) error {
	org, ok := middleware.Org(c)
	if !ok {
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization context missing")
	}
	role, _ := c.Get("role").(string)

	return c.JSON(http.StatusOK, echo.Map{
		"organization": org,
		"role":         role,
	})
}

// UpdateOrg updates organization name or status. The slug is immutable:
// it is the tenant's URL identity.
func UpdateOrg(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOrgOperation("update")

	org, ok := middleware.Org(c)
	if !ok {
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization context missing")
	}

	var req struct {
		Name   *string `json:"name"`
		Status *string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "invalid request")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Status != nil {
		if *req.Status != model.OrgStatusActive && *req.Status != model.OrgStatusInactive {
			return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "invalid status")
		}
		updates["status"] = *req.Status
	}
	if len(updates) == 0 {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "nothing to update")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Model(&model.Organization{}).Where("id = ?", org.ID).Updates(updates).Error; err != nil {
		log.Error("Failed to update organization", zap.Uint("org_id", org.ID), zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization update failed")
	}

	var updated model.Organization
	if result := database.GetDB().First(&updated, org.ID); result.Error != nil {
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization update failed")
	}

	log.Info("Organization updated", zap.Uint("org_id", org.ID))
	return c.JSON(http.StatusOK, echo.Map{"organization": updated})
}
