package models

import "time"

// Notification types.
const (
	NotificationContentRemoved = "content_removed"
)

// Notification is addressed to one user.
type Notification struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationRequest addresses a notification.
type NotificationRequest struct {
	NotificationID string `json:"notificationId" validate:"required"`
}
