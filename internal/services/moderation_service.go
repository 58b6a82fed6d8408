package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/repositories"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
	"github.com/abhijit-arora/cockatiel-companion/pkg/mediastore"
	"github.com/abhijit-arora/cockatiel-companion/pkg/push"
)

// BlockedLabels are the annotation descriptions that get an image removed.
var BlockedLabels = map[string]bool{
	"Adult":    true,
	"Violence": true,
	"Racy":     true,
	"Medical":  true,
	"Spoof":    true,
}

// BlockedLabel returns the first annotation, in input order, whose description is blocked.
func BlockedLabel(annotations []models.LabelAnnotation) (string, bool) {
	for _, a := range annotations {
		if BlockedLabels[a.Description] {
			return a.Description, true
		}
	}
	return "", false
}

// ModerationService reacts to new image label records.
type ModerationService struct {
	store         docstore.Store
	media         mediastore.Store
	posts         repositories.PostRepository
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	push          push.Sender
	log           logrus.FieldLogger
}

func NewModerationService(
	store docstore.Store,
	media mediastore.Store,
	posts repositories.PostRepository,
	notifications repositories.NotificationRepository,
	users repositories.UserRepository,
	sender push.Sender,
	log logrus.FieldLogger,
) *ModerationService {
	return &ModerationService{
		store:         store,
		media:         media,
		posts:         posts,
		notifications: notifications,
		users:         users,
		push:          sender,
		log:           log,
	}
}

// HandleImageLabel moderates the image behind one label record. Records that already carry a
// moderation status are skipped, so redelivered events are harmless. Cleanup failures are
// logged and never returned.
func (s *ModerationService) HandleImageLabel(ctx context.Context, ref docstore.Ref, label *models.ImageLabel) error {
	log := s.log.WithFields(logrus.Fields{"label_id": ref.ID(), "gcs_url": label.GCSURL})
	if label.ModerationStatus != "" {
		log.WithField("status", label.ModerationStatus).Debug("Image label already moderated")
		return nil
	}

	blocked, ok := BlockedLabel(label.LabelAnnotations)
	if !ok {
		if err := s.store.Update(ctx, ref, docstore.Fields{"moderationStatus": models.ModerationApproved}); err != nil {
			return fmt.Errorf("approve image label %s: %w", ref.ID(), err)
		}
		log.Debug("Image approved")
		return nil
	}
	log = log.WithField("moderation_label", blocked)

	post, err := s.posts.FindPostByMediaURL(ctx, label.GCSURL)
	if err != nil {
		return fmt.Errorf("find post for %s: %w", label.GCSURL, err)
	}
	if post == nil {
		log.Warn("Blocked image has no post, deleting it")
		if err := s.deleteMedia(ctx, log, label.GCSURL); err != nil {
			log.Warn("Orphaned blocked image left in storage")
			return nil
		}
		log.Info("Orphaned blocked image removed")
		return nil
	}
	log = log.WithFields(logrus.Fields{"post": string(post.Ref), "author_id": post.AuthorID})

	// Independent cleanups: one failing must not stop the others.
	var g errgroup.Group
	g.Go(func() error {
		return s.deleteMedia(ctx, log, label.GCSURL)
	})
	g.Go(func() error {
		if err := s.posts.MarkMediaRemoved(ctx, post.Ref, blocked); err != nil {
			log.WithError(err).Error("Failed to flag post media as removed")
			return err
		}
		return nil
	})
	g.Go(func() error {
		return s.notifyAuthor(ctx, log, post, blocked)
	})
	g.Go(func() error {
		err := s.store.Update(ctx, ref, docstore.Fields{
			"moderationStatus": models.ModerationDeleted,
			"moderationLabel":  blocked,
		})
		if err != nil {
			log.WithError(err).Error("Failed to update image label status")
		}
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn("Blocked image handled with errors")
		return nil
	}

	log.Info("Blocked image removed")
	return nil
}

func (s *ModerationService) deleteMedia(ctx context.Context, log logrus.FieldLogger, mediaURL string) error {
	err := s.media.Delete(ctx, mediaURL)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mediastore.ErrNotFound):
		log.Info("Blocked image was already gone")
		return nil
	case errors.Is(err, mediastore.ErrForeignObject):
		log.WithError(err).Error("Blocked image is outside the media bucket")
		return err
	default:
		log.WithError(err).Error("Failed to delete blocked image")
		return err
	}
}

// notifyAuthor stores the removal notification. The push that follows is best effort.
func (s *ModerationService) notifyAuthor(ctx context.Context, log logrus.FieldLogger, post *repositories.MediaPost, blocked string) error {
	n := &models.Notification{
		UserID: post.AuthorID,
		Type:   models.NotificationContentRemoved,
		Title:  "Content removed",
		Body:   removalMessage(post, blocked),
	}
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		log.WithError(err).Error("Failed to create removal notification")
		return err
	}

	user, err := s.users.GetUser(ctx, post.AuthorID)
	if err != nil {
		log.WithError(err).Warn("Could not load author for push")
		return nil
	}
	if user == nil || user.FCMToken == "" {
		return nil
	}
	err = s.push.Send(ctx, push.Message{
		Token: user.FCMToken,
		Title: n.Title,
		Body:  n.Body,
		Data:  map[string]string{"type": n.Type, "notificationId": n.ID},
	})
	if errors.Is(err, push.ErrUnregistered) {
		log.Info("Dropping unregistered push token")
		if err := s.store.Update(ctx, repositories.UserRef(post.AuthorID), docstore.Fields{"fcmToken": docstore.DeleteField}); err != nil {
			log.WithError(err).Warn("Failed to clear push token")
		}
		return nil
	}
	if err != nil {
		log.WithError(err).Warn("Push delivery failed")
	}
	return nil
}

func removalMessage(post *repositories.MediaPost, blocked string) string {
	if post.Title != "" {
		return fmt.Sprintf("The image on your chirp %q was removed because it was flagged as %s.", post.Title, blocked)
	}
	return fmt.Sprintf("The image on your post was removed because it was flagged as %s.", blocked)
}
