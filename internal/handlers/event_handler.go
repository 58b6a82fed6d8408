package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	domainerrors "github.com/abhijit-arora/cockatiel-companion/internal/errors"
	"github.com/abhijit-arora/cockatiel-companion/internal/events"
	"github.com/abhijit-arora/cockatiel-companion/internal/repositories"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
)

// ImageLabelEvent is the body of a pushed imageLabels creation event.
type ImageLabelEvent struct {
	ID string `json:"id" validate:"required"`
}

// EventHandler accepts pushed document events for backends without a change stream.
type EventHandler struct {
	store       docstore.Store
	imageLabels *events.ImageLabels
}

func NewEventHandler(store docstore.Store, imageLabels *events.ImageLabels) *EventHandler {
	return &EventHandler{store: store, imageLabels: imageLabels}
}

// RegisterEventRoutes registers event routes. g must be guarded by the event token middleware.
func (h *EventHandler) RegisterEventRoutes(g *echo.Group) {
	g.POST("/imageLabels", h.ImageLabelCreated)
}

// ImageLabelCreated loads the named label record and moderates it. The payload only names the
// document so that pushed data cannot differ from what is stored.
func (h *EventHandler) ImageLabelCreated(c echo.Context) error {
	var event ImageLabelEvent
	if err := c.Bind(&event); err != nil {
		return err
	}
	if err := c.Validate(&event); err != nil {
		return err
	}
	if strings.Contains(event.ID, "/") {
		return domainerrors.InvalidArgument("Invalid image label id.")
	}

	ctx := c.Request().Context()
	snap, err := h.store.Get(ctx, repositories.ImageLabelRef(event.ID))
	if err != nil {
		return domainerrors.Internal("Could not load image label.", err)
	}
	if !snap.Exists() {
		return domainerrors.NotFound("Image label not found.")
	}
	if err := h.imageLabels.Handle(ctx, snap); err != nil {
		return domainerrors.Internal("Could not process image label.", err)
	}
	return c.NoContent(http.StatusNoContent)
}
