package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/services"
)

// ReportHandler files content reports.
type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterReportRoutes(g *echo.Group) {
	g.POST("/reportContent", h.ReportContent)
}

// ReportContent snapshots a chirp, reply, feed post or comment for review
func (h *ReportHandler) ReportContent(c echo.Context) error {
	var req models.ReportContentRequest
	if err := bindData(c, &req); err != nil {
		return err
	}
	result, err := h.reportService.ReportContent(c.Request().Context(), callerFrom(c), req)
	if err != nil {
		return err
	}
	return respond(c, result)
}
