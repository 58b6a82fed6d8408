package models

import "time"

// Chirp is a community question. BestAnswer is a copy of the reply marked as best.
type Chirp struct {
	ID              string      `json:"id,omitempty"`
	AuthorID        string      `json:"authorId"`
	AuthorLabel     string      `json:"authorLabel"`
	Title           string      `json:"title"`
	Body            string      `json:"body,omitempty"`
	MediaURL        string      `json:"mediaUrl,omitempty"`
	MediaStatus     string      `json:"mediaStatus,omitempty"`
	ModerationLabel string      `json:"moderationLabel,omitempty"`
	FollowerCount   int64       `json:"followerCount"`
	ReplyCount      int64       `json:"replyCount"`
	BestAnswer      *BestAnswer `json:"bestAnswer,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// BestAnswer is the reply denormalized onto its chirp.
type BestAnswer struct {
	ReplyID     string    `json:"replyId"`
	Body        string    `json:"body"`
	AuthorLabel string    `json:"authorLabel"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Reply answers a chirp.
type Reply struct {
	ID           string    `json:"id,omitempty"`
	AuthorID     string    `json:"authorId"`
	AuthorLabel  string    `json:"authorLabel"`
	Body         string    `json:"body"`
	IsBestAnswer bool      `json:"isBestAnswer"`
	HelpfulCount int64     `json:"helpfulCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreateChirpRequest is the createChirp payload.
type CreateChirpRequest struct {
	Title    string `json:"title" validate:"required,max=150"`
	Body     string `json:"body,omitempty" validate:"max=5000"`
	MediaURL string `json:"mediaUrl,omitempty" validate:"omitempty,url"`
}

// AddChirpReplyRequest is the addChirpReply payload.
type AddChirpReplyRequest struct {
	ChirpID string `json:"chirpId" validate:"required"`
	Body    string `json:"body" validate:"required,max=5000"`
}

// ChirpRequest addresses a chirp.
type ChirpRequest struct {
	ChirpID string `json:"chirpId" validate:"required"`
}

// ReplyRequest addresses a reply of a chirp.
type ReplyRequest struct {
	ChirpID string `json:"chirpId" validate:"required"`
	ReplyID string `json:"replyId" validate:"required"`
}
