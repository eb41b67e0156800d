package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"saaskit/internal/httperr"
	"saaskit/internal/middleware"
	"saaskit/internal/model"
	"saaskit/pkg/database"
	"saaskit/pkg/logger"
	"saaskit/prometheus"
)

// CreateTicket creates a ticket in the organization. Any member may
// create tickets.
func CreateTicket(c echo.Context) error {
	log := logger.FromContext(c)

	org, ok := middleware.Org(c)
	if !ok {
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization context missing")
	}
	actor, ok := middleware.Member(c)
	if !ok {
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeNotAMember, "not a member of this organization")
	}

	var req struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "invalid request")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "title is required")
	}

	ticket := model.Ticket{
		OrganizationID: org.ID,
		CreatedBy:      actor.UserID,
		Title:          req.Title,
		Body:           req.Body,
		Status:         model.TicketStatusOpen,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&ticket); result.Error != nil {
		log.Error("Failed to create ticket", zap.Error(result.Error))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "ticket creation failed")
	}

	log.Info("Ticket created", zap.Uint("org_id", org.ID), zap.Uint("ticket_id", ticket.ID))
	return c.JSON(http.StatusCreated, echo.Map{"ticket": ticket})
}

// ListTickets returns the organization's tickets, optionally filtered by
// status.
func ListTickets(c echo.Context) error {
	log := logger.FromContext(c)

	org, ok := middleware.Org(c)
	if !ok {
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization context missing")
	}

	query := database.GetDB().Where("organization_id = ?", org.ID)
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var tickets []model.Ticket
	if err := query.Order("created_at DESC").Find(&tickets).Error; err != nil {
		log.Error("Failed to list tickets", zap.Uint("org_id", org.ID), zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "failed to list tickets")
	}

	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}

func ticketInOrg(c echo.Context, orgID uint) (*model.Ticket, error) {
	var ticket model.Ticket
	err := database.GetDB().
		Where("id = ? AND organization_id = ?", c.Param("id"), orgID).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetTicket returns a single ticket in the organization
func GetTicket(c echo.Context) error {
	org, ok := middleware.Org(c)
	if !ok {
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization context missing")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	ticket, err := ticketInOrg(c, org.ID)
	if err != nil {
		return httperr.JSON(c, http.StatusNotFound, httperr.CodeNotFound, "ticket not found")
	}

	return c.JSON(http.StatusOK, echo.Map{"ticket": ticket})
}

// UpdateTicket updates a ticket's fields. Technicians may only update
// tickets they created; managers and org admins may update any.
func UpdateTicket(c echo.Context) error {
	log := logger.FromContext(c)

	org, ok := middleware.Org(c)
	if !ok {
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization context missing")
	}
	actor, ok := middleware.Member(c)
	if !ok {
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeNotAMember, "not a member of this organization")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	ticket, err := ticketInOrg(c, org.ID)
	if err != nil {
		return httperr.JSON(c, http.StatusNotFound, httperr.CodeNotFound, "ticket not found")
	}

	if !ticket.CanMutate(actor.UserID, actor.Role) {
		prometheus.RecordAuthError("insufficient_role")
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeInsufficientRole, "insufficient role to modify this ticket")
	}

	var req struct {
		Title  *string `json:"title"`
		Body   *string `json:"body"`
		Status *string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "invalid request")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "title cannot be empty")
		}
		updates["title"] = title
	}
	if req.Body != nil {
		updates["body"] = *req.Body
	}
	if req.Status != nil {
		switch *req.Status {
		case model.TicketStatusOpen, model.TicketStatusInProgress, model.TicketStatusClosed:
			updates["status"] = *req.Status
		default:
			return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "invalid status")
		}
	}
	if len(updates) == 0 {
		return httperr.JSON(c, http.StatusBadRequest, httperr.CodeValidationError, "nothing to update")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Model(ticket).Updates(updates).Error; err != nil {
		log.Error("Failed to update ticket", zap.Uint("ticket_id", ticket.ID), zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "ticket update failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"ticket": ticket})
}

// DeleteTicket removes a ticket under the same authority rule as update
func DeleteTicket(c echo.Context) error {
	log := logger.FromContext(c)

	org, ok := middleware.Org(c)
	if !ok {
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "organization context missing")
	}
	actor, ok := middleware.Member(c)
	if !ok {
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeNotAMember, "not a member of this organization")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	ticket, err := ticketInOrg(c, org.ID)
	if err != nil {
		return httperr.JSON(c, http.StatusNotFound, httperr.CodeNotFound, "ticket not found")
	}

	if !ticket.CanMutate(actor.UserID, actor.Role) {
		prometheus.RecordAuthError("insufficient_role")
		return httperr.JSON(c, http.StatusForbidden, httperr.CodeInsufficientRole, "insufficient role to delete this ticket")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := database.GetDB().Delete(ticket).Error; err != nil {
		log.Error("Failed to delete ticket", zap.Uint("ticket_id", ticket.ID), zap.Error(err))
		return httperr.JSON(c, http.StatusInternalServerError, httperr.CodeInternal, "ticket deletion failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "ticket deleted"})
}
