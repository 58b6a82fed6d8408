package models

import "time"

// Aviary is a household, keyed by its guardian's uid.
type Aviary struct {
	ID            string `json:"id,omitempty"`
	AviaryName    string `json:"aviaryName,omitempty"`
	GuardianLabel string `json:"guardianLabel,omitempty"`
}

// Caregiver is a member who joined an aviary through an invitation.
type Caregiver struct {
	ID       string    `json:"id,omitempty"`
	Email    string    `json:"email"`
	Label    string    `json:"label,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Bird belongs to a household; Viewers lists caregivers allowed to see it.
type Bird struct {
	ID      string   `json:"id,omitempty"`
	OwnerID string   `json:"ownerId"`
	Name    string   `json:"name"`
	Viewers []string `json:"viewers,omitempty"`
}

// SetAviaryNameRequest is the setAviaryName payload. The name rules are checked by the service
// so that each failure gets its own message.
type SetAviaryNameRequest struct {
	AviaryName string `json:"aviaryName"`
}
