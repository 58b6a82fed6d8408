package models

import "time"

// Media statuses set by moderation.
const (
	MediaRemovedByModeration = "REMOVED_BY_MODERATION"
)

// FeedPost is a community feed entry.
type FeedPost struct {
	ID              string    `json:"id,omitempty"`
	AuthorID        string    `json:"authorId"`
	AuthorLabel     string    `json:"authorLabel"`
	Body            string    `json:"body,omitempty"`
	MediaURL        string    `json:"mediaUrl,omitempty"`
	MediaStatus     string    `json:"mediaStatus,omitempty"`
	ModerationLabel string    `json:"moderationLabel,omitempty"`
	Hashtags        []string  `json:"hashtags"`
	LikeCount       int64     `json:"likeCount"`
	CommentCount    int64     `json:"commentCount"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CreateFeedPostRequest is the createFeedPost payload. One of Body and MediaURL is required.
type CreateFeedPostRequest struct {
	Body     string `json:"body,omitempty" validate:"max=5000"`
	MediaURL string `json:"mediaUrl,omitempty" validate:"omitempty,url"`
}

// FeedPostRequest addresses a feed post.
type FeedPostRequest struct {
	PostID string `json:"postId" validate:"required"`
}
