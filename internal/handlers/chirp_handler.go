package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/services"
)

// ChirpHandler serves community questions and answers.
type ChirpHandler struct {
	chirpService *services.ChirpService
}

// NewChirpHandler creates a new ChirpHandler
func NewChirpHandler(chirpService *services.ChirpService) *ChirpHandler {
	return &ChirpHandler{chirpService: chirpService}
}

// RegisterChirpRoutes registers chirp routes
func (h *ChirpHandler) RegisterChirpRoutes(g *echo.Group) {
	g.POST("/createChirp", h.CreateChirp)
	g.POST("/addChirpReply", h.AddChirpReply)
	g.POST("/markAsBestAnswer", h.MarkAsBestAnswer)
}

func (h *ChirpHandler) CreateChirp(c echo.Context) error {
	var req models.CreateChirpRequest
	if err := bindData(c, &req); err != nil {
		return err
	}
	result, err := h.chirpService.CreateChirp(c.Request().Context(), callerFrom(c), req)
	if err != nil {
		return err
	}
	return respond(c, result)
}

func (h *ChirpHandler) AddChirpReply(c echo.Context) error {
	var req models.AddChirpReplyRequest
	if err := bindData(c, &req); err != nil {
		return err
	}
	result, err := h.chirpService.AddChirpReply(c.Request().Context(), callerFrom(c), req.ChirpID, req.Body)
	if err != nil {
		return err
	}
	return respond(c, result)
}

// MarkAsBestAnswer lets the chirp's author pick a reply
func (h *ChirpHandler) MarkAsBestAnswer(c echo.Context) error {
	var req models.ReplyRequest
	if err := bindData(c, &req); err != nil {
		return err
	}
	result, err := h.chirpService.MarkAsBestAnswer(c.Request().Context(), callerFrom(c), req.ChirpID, req.ReplyID)
	if err != nil {
		return err
	}
	return respond(c, result)
}
