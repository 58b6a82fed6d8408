package models

// Invitation statuses. An invitation leaves pending exactly once.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// Invitation asks InviteeEmail to join the aviary of AviaryOwnerID.
type Invitation struct {
	ID            string `json:"id,omitempty"`
	AviaryOwnerID string `json:"aviaryOwnerId"`
	InviteeEmail  string `json:"inviteeEmail"`
	Label         string `json:"label,omitempty"`
	Status        string `json:"status"`
}

// InvitationRequest is the payload of acceptInvitation and declineInvitation.
type InvitationRequest struct {
	InvitationID string `json:"invitationId" validate:"required"`
}
