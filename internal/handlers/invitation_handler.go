package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/services"
)

// InvitationHandler serves the caregiver invitation callables.
type InvitationHandler struct {
	invitationService *services.InvitationService
}

// NewInvitationHandler creates a new InvitationHandler
func NewInvitationHandler(invitationService *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

// RegisterInvitationRoutes registers invitation routes
func (h *InvitationHandler) RegisterInvitationRoutes(g *echo.Group) {
	g.POST("/acceptInvitation", h.AcceptInvitation)
	g.POST("/declineInvitation", h.DeclineInvitation)
}

// AcceptInvitation joins the caller to the inviting aviary
func (h *InvitationHandler) AcceptInvitation(c echo.Context) error {
	var req models.InvitationRequest
	if err := bindData(c, &req); err != nil {
		return err
	}
	result, err := h.invitationService.AcceptInvitation(c.Request().Context(), callerFrom(c), req.InvitationID)
	if err != nil {
		return err
	}
	return respond(c, result)
}

// DeclineInvitation declines a pending invitation
func (h *InvitationHandler) DeclineInvitation(c echo.Context) error {
	var req models.InvitationRequest
	if err := bindData(c, &req); err != nil {
		return err
	}
	result, err := h.invitationService.DeclineInvitation(c.Request().Context(), callerFrom(c), req.InvitationID)
	if err != nil {
		return err
	}
	return respond(c, result)
}
