package models

// Moderation outcomes recorded on an image label.
const (
	ModerationApproved = "APPROVED"
	ModerationDeleted  = "DELETED"
)

// ImageLabel holds the annotations produced for an uploaded image.
type ImageLabel struct {
	ID               string            `json:"id,omitempty"`
	GCSURL           string            `json:"gcsUrl"`
	LabelAnnotations []LabelAnnotation `json:"labelAnnotations"`
	ModerationStatus string            `json:"moderationStatus,omitempty"`
	ModerationLabel  string            `json:"moderationLabel,omitempty"`
}

// LabelAnnotation is one label of an image.
type LabelAnnotation struct {
	Description string  `json:"description"`
	Score       float64 `json:"score,omitempty"`
}
