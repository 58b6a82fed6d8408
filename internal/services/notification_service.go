package services

import (
	"context"

	"github.com/sirupsen/logrus"

	domainerrors "github.com/abhijit-arora/cockatiel-companion/internal/errors"
	"github.com/abhijit-arora/cockatiel-companion/internal/repositories"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
)

type NotificationService struct {
	store docstore.Store
	log   logrus.FieldLogger
}

func NewNotificationService(store docstore.Store, log logrus.FieldLogger) *NotificationService {
	return &NotificationService{store: store, log: log}
}

// MarkNotificationRead marks one of the caller's notifications as read.
func (s *NotificationService) MarkNotificationRead(ctx context.Context, caller Caller, notificationID string) (*Result, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := requireID(notificationID, "Notification ID is required."); err != nil {
		return nil, err
	}

	ref := repositories.NotificationRef(notificationID)
	err := s.store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if !snap.Exists() {
			return domainerrors.NotFound("Notification not found.")
		}
		if snap.StringField("userId") != caller.UID {
			return domainerrors.PermissionDenied("You can only update your own notifications.")
		}
		return tx.Update(ref, docstore.Fields{"isRead": true})
	})
	if err != nil {
		return nil, storeError(err, "mark notification read")
	}
	return &Result{Success: true}, nil
}
