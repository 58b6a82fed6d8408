package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/services"
)

// FeedHandler serves feed posts and their comments.
type FeedHandler struct {
	feedService *services.FeedService
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(feedService *services.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

// RegisterFeedRoutes registers feed routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.POST("/createFeedPost", h.CreateFeedPost)
	g.POST("/deleteFeedPost", h.DeleteFeedPost)
	g.POST("/addFeedComment", h.AddFeedComment)
	g.POST("/deleteFeedComment", h.DeleteFeedComment)
}

// CreateFeedPost publishes a post
func (h *FeedHandler) CreateFeedPost(c echo.Context) error {
	var req models.CreateFeedPostRequest
	if err := bindData(c, &req); err != nil {
		return err
	}
	result, err := h.feedService.CreateFeedPost(c.Request().Context(), callerFrom(c), req)
	if err != nil {
		return err
	}
	return respond(c, result)
}

// DeleteFeedPost deletes the caller's post with its likes and comments
func (h *FeedHandler) DeleteFeedPost(c echo.Context) error {
	var req models.FeedPostRequest
	if err := bindData(c, &req); err != nil {
		return err
	}
	result, err := h.feedService.DeleteFeedPost(c.Request().Context(), callerFrom(c), req.PostID)
	if err != nil {
		return err
	}
	return respond(c, result)
}

// AddFeedComment comments on a post
func (h *FeedHandler) AddFeedComment(c echo.Context) error {
	var req models.AddFeedCommentRequest
	if err := bindData(c, &req); err != nil {
		return err
	}
	result, err := h.feedService.AddFeedComment(c.Request().Context(), callerFrom(c), req.PostID, req.Body)
	if err != nil {
		return err
	}
	return respond(c, result)
}

// DeleteFeedComment deletes the caller's comment
func (h *FeedHandler) DeleteFeedComment(c echo.Context) error {
	var req models.CommentRequest
	if err := bindData(c, &req); err != nil {
		return err
	}
	result, err := h.feedService.DeleteFeedComment(c.Request().Context(), callerFrom(c), req.PostID, req.CommentID)
	if err != nil {
		return err
	}
	return respond(c, result)
}
