package services

import (
	"context"
	"fmt"

	"github.com/abhijit-arora/cockatiel-companion/internal/models"
)

const unnamedAviary = "their Aviary"

// HouseholdLookup loads users and aviaries. Missing documents are nil without error.
type HouseholdLookup interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
	GetAviary(ctx context.Context, id string) (*models.Aviary, error)
}

// CaregiverLookup loads a caregiver record. A missing record is nil without error.
type CaregiverLookup interface {
	GetCaregiver(ctx context.Context, aviaryID, uid string) (*models.Caregiver, error)
}

// ResolveAuthorLabel returns "<label> of <aviary name>" for the caller, e.g.
// "Mum of Sunny Loft" or "Caregiver of their Aviary".
func ResolveAuthorLabel(ctx context.Context, caller Caller, households HouseholdLookup, caregivers CaregiverLookup) (string, error) {
	user, err := households.GetUser(ctx, caller.UID)
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", caller.UID, err)
	}
	householdID := user.HouseholdID(caller.UID)

	aviary, err := households.GetAviary(ctx, householdID)
	if err != nil {
		return "", fmt.Errorf("load aviary %s: %w", householdID, err)
	}
	name := unnamedAviary
	if aviary != nil && aviary.AviaryName != "" {
		name = aviary.AviaryName
	}

	var label, role string
	if user.IsCaregiver() {
		role = "Caregiver"
		caregiver, err := caregivers.GetCaregiver(ctx, householdID, caller.UID)
		if err != nil {
			return "", fmt.Errorf("load caregiver %s: %w", caller.UID, err)
		}
		if caregiver != nil {
			label = caregiver.Label
		}
	} else {
		role = "Guardian"
		if aviary != nil {
			label = aviary.GuardianLabel
		}
	}
	if label == "" {
		label = caller.Email
	}
	if label == "" {
		label = role
	}
	return label + " of " + name, nil
}
