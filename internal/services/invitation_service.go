package services

import (
	"context"

	"github.com/sirupsen/logrus"

	domainerrors "github.com/abhijit-arora/cockatiel-companion/internal/errors"
	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/repositories"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
)

const acceptedMessage = "Invitation accepted! Welcome to the flock."

// InvitationService resolves invitations to join an aviary.
type InvitationService struct {
	store docstore.Store
	log   logrus.FieldLogger
}

func NewInvitationService(store docstore.Store, log logrus.FieldLogger) *InvitationService {
	return &InvitationService{store: store, log: log}
}

// AcceptInvitation makes the caller a caregiver of the inviting aviary and lets them see its
// birds. The bird list is read before the transaction; the invitation and the caller's
// membership are checked again inside it.
func (s *InvitationService) AcceptInvitation(ctx context.Context, caller Caller, invitationID string) (*Result, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := requireID(invitationID, "Invitation ID is required."); err != nil {
		return nil, err
	}

	invRef := repositories.InvitationRef(invitationID)
	invSnap, err := s.store.Get(ctx, invRef)
	if err != nil {
		return nil, storeError(err, "get invitation")
	}
	if !invSnap.Exists() {
		return nil, domainerrors.NotFound("Invitation not found.")
	}
	guardianID := invSnap.StringField("aviaryOwnerId")

	birds, err := s.store.Query(ctx, docstore.Collection(repositories.BirdsCollection).Where("ownerId", guardianID))
	if err != nil {
		return nil, storeError(err, "query birds")
	}

	err = s.store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		fresh, err := tx.Get(invRef)
		if err != nil {
			return err
		}
		if !fresh.Exists() {
			return domainerrors.NotFound("Invitation not found during transaction.")
		}
		var inv models.Invitation
		if err := fresh.DataTo(&inv); err != nil {
			return err
		}
		if inv.InviteeEmail != caller.Email || inv.Status != models.InvitationPending {
			return domainerrors.FailedPrecondition("This invitation is not valid.")
		}

		userRef := repositories.UserRef(caller.UID)
		user, err := tx.Get(userRef)
		if err != nil {
			return err
		}
		if user.Exists() {
			return domainerrors.FailedPrecondition("You already have an Aviary.")
		}

		if err := tx.Set(repositories.CaregiverRef(guardianID, caller.UID), docstore.Fields{
			"email":    caller.Email,
			"label":    inv.Label,
			"joinedAt": docstore.ServerTimestamp,
		}); err != nil {
			return err
		}
		if err := tx.Set(userRef, docstore.Fields{
			"partOfAviary":  guardianID,
			"guardianEmail": caller.Email,
		}, docstore.MergeAll); err != nil {
			return err
		}
		if err := tx.Update(invRef, docstore.Fields{"status": models.InvitationAccepted}); err != nil {
			return err
		}
		for _, bird := range birds {
			if err := tx.Update(bird.Ref, docstore.Fields{"viewers": docstore.ArrayUnion(caller.UID)}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "accept invitation")
	}

	s.log.WithFields(logrus.Fields{
		"invitation_id": invitationID,
		"aviary_id":     guardianID,
		"uid":           caller.UID,
		"birds":         len(birds),
	}).Info("Invitation accepted")
	return &Result{Success: true, Message: acceptedMessage}, nil
}

// DeclineInvitation marks a pending invitation addressed to the caller as declined.
func (s *InvitationService) DeclineInvitation(ctx context.Context, caller Caller, invitationID string) (*Result, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := requireID(invitationID, "Invitation ID is required."); err != nil {
		return nil, err
	}

	invRef := repositories.InvitationRef(invitationID)
	err := s.store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		snap, err := tx.Get(invRef)
		if err != nil {
			return err
		}
		if !snap.Exists() {
			return domainerrors.NotFound("Invitation not found.")
		}
		var inv models.Invitation
		if err := snap.DataTo(&inv); err != nil {
			return err
		}
		if inv.InviteeEmail != caller.Email || inv.Status != models.InvitationPending {
			return domainerrors.FailedPrecondition("This invitation is not valid.")
		}
		return tx.Update(invRef, docstore.Fields{"status": models.InvitationDeclined})
	})
	if err != nil {
		return nil, storeError(err, "decline invitation")
	}

	s.log.WithFields(logrus.Fields{"invitation_id": invitationID, "uid": caller.UID}).Info("Invitation declined")
	return &Result{Success: true, Message: "Invitation declined."}, nil
}
