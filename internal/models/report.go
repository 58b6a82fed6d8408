package models

import "time"

// ReportPendingReview is the status of a new report.
const ReportPendingReview = "pending_review"

// Report is a snapshot of flagged content.
type Report struct {
	ID              string    `json:"id,omitempty"`
	ReporterID      string    `json:"reporterId"`
	Reason          string    `json:"reason"`
	ContentType     string    `json:"contentType"`
	ContentID       string    `json:"contentId"`
	ContentPath     string    `json:"contentPath"`
	ContentAuthorID string    `json:"contentAuthorId,omitempty"`
	ContentExcerpt  string    `json:"contentExcerpt"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ReportContentRequest is the reportContent payload. Reply and comment ids are full document
// paths, chirp and feed post ids are bare ids.
type ReportContentRequest struct {
	ContentID   string `json:"contentId" validate:"required"`
	ContentType string `json:"contentType" validate:"required,oneof=chirp reply feedPost comment"`
	Reason      string `json:"reason" validate:"required,max=500"`
}
