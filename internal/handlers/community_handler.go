package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/services"
)

// CommunityHandler serves the follow, helpful and like toggles.
type CommunityHandler struct {
	communityService *services.CommunityService
}

// NewCommunityHandler creates a new CommunityHandler
func NewCommunityHandler(communityService *services.CommunityService) *CommunityHandler {
	return &CommunityHandler{communityService: communityService}
}

// RegisterCommunityRoutes registers toggle routes
func (h *CommunityHandler) RegisterCommunityRoutes(g *echo.Group) {
	g.POST("/toggleChirpFollow", h.ToggleChirpFollow)
	g.POST("/toggleReplyHelpful", h.ToggleReplyHelpful)
	g.POST("/toggleFeedPostLike", h.ToggleFeedPostLike)
	g.POST("/toggleCommentLike", h.ToggleCommentLike)
}

// ToggleChirpFollow follows or unfollows a chirp
func (h *CommunityHandler) ToggleChirpFollow(c echo.Context) error {
	var req models.ChirpRequest
	if err := bindData(c, &req); err != nil {
		return err
	}
	result, err := h.communityService.ToggleChirpFollow(c.Request().Context(), callerFrom(c), req.ChirpID)
	if err != nil {
		return err
	}
	return respond(c, result)
}

// ToggleReplyHelpful marks or unmarks a reply as helpful
func (h *CommunityHandler) ToggleReplyHelpful(c echo.Context) error {
	var req models.ReplyRequest
	if err := bindData(c, &req); err != nil {
		return err
	}
	result, err := h.communityService.ToggleReplyHelpful(c.Request().Context(), callerFrom(c), req.ChirpID, req.ReplyID)
	if err != nil {
		return err
	}
	return respond(c, result)
}

// ToggleFeedPostLike likes or unlikes a feed post
func (h *CommunityHandler) ToggleFeedPostLike(c echo.Context) error {
	var req models.FeedPostRequest
	if err := bindData(c, &req); err != nil {
		return err
	}
	result, err := h.communityService.ToggleFeedPostLike(c.Request().Context(), callerFrom(c), req.PostID)
	if err != nil {
		return err
	}
	return respond(c, result)
}

// ToggleCommentLike likes or unlikes a comment
func (h *CommunityHandler) ToggleCommentLike(c echo.Context) error {
	var req models.CommentRequest
	if err := bindData(c, &req); err != nil {
		return err
	}
	result, err := h.communityService.ToggleCommentLike(c.Request().Context(), callerFrom(c), req.PostID, req.CommentID)
	if err != nil {
		return err
	}
	return respond(c, result)
}
