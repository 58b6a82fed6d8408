package repositories

import (
	"context"

	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
)

// NotificationRepository stores user notifications.
type NotificationRepository interface {
	// CreateNotification stores n under a new id, which it also sets on n.
	CreateNotification(ctx context.Context, n *models.Notification) error
}

type docstoreNotificationRepository struct {
	store docstore.Store
}

func NewNotificationRepository(store docstore.Store) NotificationRepository {
	return &docstoreNotificationRepository{store: store}
}

func (r *docstoreNotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	ref := docstore.Collection(NotificationsCollection).NewDoc()
	err := r.store.Create(ctx, ref, docstore.Fields{
		"userId":    n.UserID,
		"type":      n.Type,
		"title":     n.Title,
		"body":      n.Body,
		"isRead":    false,
		"createdAt": docstore.ServerTimestamp,
	})
	if err != nil {
		return err
	}
	n.ID = ref.ID()
	return nil
}
