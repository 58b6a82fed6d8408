package models

import "time"

// Comment is a reply to a feed post.
type Comment struct {
	ID          string    `json:"id,omitempty"`
	AuthorID    string    `json:"authorId"`
	AuthorLabel string    `json:"authorLabel"`
	Body        string    `json:"body"`
	LikeCount   int64     `json:"likeCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AddFeedCommentRequest is the addFeedComment payload.
type AddFeedCommentRequest struct {
	PostID string `json:"postId" validate:"required"`
	Body   string `json:"body" validate:"max=2000"`
}

// CommentRequest addresses a comment of a feed post.
type CommentRequest struct {
	PostID    string `json:"postId" validate:"required"`
	CommentID string `json:"commentId" validate:"required"`
}
