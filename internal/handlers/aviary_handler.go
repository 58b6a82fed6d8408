package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/services"
)

// AviaryHandler serves household settings.
type AviaryHandler struct {
	aviaryService *services.AviaryService
}

func NewAviaryHandler(aviaryService *services.AviaryService) *AviaryHandler {
	return &AviaryHandler{aviaryService: aviaryService}
}

func (h *AviaryHandler) RegisterAviaryRoutes(g *echo.Group) {
	g.POST("/setAviaryName", h.SetAviaryName)
}

// SetAviaryName claims a unique name for the caller's aviary
func (h *AviaryHandler) SetAviaryName(c echo.Context) error {
	var req models.SetAviaryNameRequest
	if err := bindData(c, &req); err != nil {
		return err
	}
	result, err := h.aviaryService.SetAviaryName(c.Request().Context(), callerFrom(c), req.AviaryName)
	if err != nil {
		return err
	}
	return respond(c, result)
}
