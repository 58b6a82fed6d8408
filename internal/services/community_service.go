package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/repositories"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
)

// CommunityService flips follow, helpful and like markers.
type CommunityService struct {
	store docstore.Store
	log   logrus.FieldLogger
}

func NewCommunityService(store docstore.Store, log logrus.FieldLogger) *CommunityService {
	return &CommunityService{store: store, log: log}
}

// ToggleChirpFollow follows or unfollows a chirp.
func (s *CommunityService) ToggleChirpFollow(ctx context.Context, caller Caller, chirpID string) (models.ToggleResult, error) {
	if err := requireCaller(caller); err != nil {
		return models.ToggleResult{}, err
	}
	if err := requireID(chirpID, "Chirp ID is required."); err != nil {
		return models.ToggleResult{}, err
	}
	return s.toggle(ctx, caller, toggleTarget{
		content:  repositories.ChirpRef(chirpID),
		markers:  repositories.FollowersCollection,
		counter:  "followerCount",
		notFound: "Chirp not found.",
	})
}

// ToggleReplyHelpful marks or unmarks a reply as helpful.
func (s *CommunityService) ToggleReplyHelpful(ctx context.Context, caller Caller, chirpID, replyID string) (models.ToggleResult, error) {
	if err := requireCaller(caller); err != nil {
		return models.ToggleResult{}, err
	}
	if err := requireID(chirpID, "Chirp ID is required."); err != nil {
		return models.ToggleResult{}, err
	}
	if err := requireID(replyID, "Reply ID is required."); err != nil {
		return models.ToggleResult{}, err
	}
	return s.toggle(ctx, caller, toggleTarget{
		content:  repositories.ReplyRef(chirpID, replyID),
		markers:  repositories.HelpfulMarkersCollection,
		counter:  "helpfulCount",
		notFound: "Reply not found.",
	})
}

// ToggleFeedPostLike likes or unlikes a feed post.
func (s *CommunityService) ToggleFeedPostLike(ctx context.Context, caller Caller, postID string) (models.ToggleResult, error) {
	if err := requireCaller(caller); err != nil {
		return models.ToggleResult{}, err
	}
	if err := requireID(postID, "Post ID is required."); err != nil {
		return models.ToggleResult{}, err
	}
	return s.toggle(ctx, caller, toggleTarget{
		content:  repositories.FeedPostRef(postID),
		markers:  repositories.LikesCollection,
		counter:  "likeCount",
		notFound: "Post not found.",
	})
}

// ToggleCommentLike likes or unlikes a comment of a feed post.
func (s *CommunityService) ToggleCommentLike(ctx context.Context, caller Caller, postID, commentID string) (models.ToggleResult, error) {
	if err := requireCaller(caller); err != nil {
		return models.ToggleResult{}, err
	}
	if err := requireID(postID, "Post ID is required."); err != nil {
		return models.ToggleResult{}, err
	}
	if err := requireID(commentID, "Comment ID is required."); err != nil {
		return models.ToggleResult{}, err
	}
	return s.toggle(ctx, caller, toggleTarget{
		content:  repositories.CommentRef(postID, commentID),
		markers:  repositories.LikesCollection,
		counter:  "likeCount",
		notFound: "Comment not found.",
	})
}

func (s *CommunityService) toggle(ctx context.Context, caller Caller, target toggleTarget) (models.ToggleResult, error) {
	result, err := toggleMarker(ctx, s.store, target, caller.UID)
	if err != nil {
		return result, err
	}
	s.log.WithFields(logrus.Fields{
		"uid":     caller.UID,
		"content": string(target.content),
		"marker":  target.markers,
		"active":  result.Active,
	}).Debug("Marker toggled")
	return result, nil
}
