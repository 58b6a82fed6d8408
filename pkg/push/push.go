// Package push delivers notifications to devices through Firebase Cloud Messaging.
package push

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// ErrUnregistered is returned when the device token is no longer valid.
var ErrUnregistered = errors.New("push: device token unregistered")

// Message is a notification addressed to one device.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers push messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// FCM sends through a Firebase messaging client.
type FCM struct {
	client *messaging.Client
}

// NewFCM wraps client.
func NewFCM(client *messaging.Client) *FCM {
	return &FCM{client: client}
}

// Send delivers msg.
func (f *FCM) Send(ctx context.Context, msg Message) error {
	_, err := f.client.Send(ctx, &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	if messaging.IsUnregistered(err) {
		return fmt.Errorf("%w: %v", ErrUnregistered, err)
	}
	return err
}

// Noop drops every message.
type Noop struct{}

// Send does nothing.
func (Noop) Send(context.Context, Message) error {
	return nil
}
