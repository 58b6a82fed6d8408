package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	domainerrors "github.com/abhijit-arora/cockatiel-companion/internal/errors"
	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/repositories"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
	"github.com/abhijit-arora/cockatiel-companion/pkg/mediastore"
)

// ChirpService manages community questions, their replies and best answers.
type ChirpService struct {
	store docstore.Store
	media mediastore.Store
	posts repositories.PostRepository
	users repositories.UserRepository
	log   logrus.FieldLogger
}

func NewChirpService(
	store docstore.Store,
	media mediastore.Store,
	posts repositories.PostRepository,
	users repositories.UserRepository,
	log logrus.FieldLogger,
) *ChirpService {
	return &ChirpService{store: store, media: media, posts: posts, users: users, log: log}
}

// CreateChirp asks a new question.
func (s *ChirpService) CreateChirp(ctx context.Context, caller Caller, req models.CreateChirpRequest) (*CreatedResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domainerrors.InvalidArgument("A chirp needs a title.")
	}
	mediaURL := strings.TrimSpace(req.MediaURL)
	if err := checkNewMedia(ctx, s.media, s.posts, mediaURL); err != nil {
		return nil, err
	}

	label, err := ResolveAuthorLabel(ctx, caller, s.users, s.users)
	if err != nil {
		return nil, storeError(err, "resolve author label")
	}

	ref := docstore.Collection(repositories.ChirpsCollection).NewDoc()
	err = s.store.Create(ctx, ref, docstore.Fields{
		"authorId":      caller.UID,
		"authorLabel":   label,
		"title":         title,
		"body":          strings.TrimSpace(req.Body),
		"mediaUrl":      mediaURL,
		"followerCount": 0,
		"replyCount":    0,
		"createdAt":     docstore.ServerTimestamp,
	})
	if err != nil {
		return nil, storeError(err, "create chirp")
	}

	s.log.WithFields(logrus.Fields{"chirp_id": ref.ID(), "uid": caller.UID}).Info("Chirp created")
	return &CreatedResult{Success: true, ID: ref.ID()}, nil
}

// AddChirpReply answers a chirp and bumps its reply count.
func (s *ChirpService) AddChirpReply(ctx context.Context, caller Caller, chirpID, body string) (*CreatedResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := requireID(chirpID, "Chirp ID is required."); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domainerrors.InvalidArgument("Reply cannot be empty.")
	}

	label, err := ResolveAuthorLabel(ctx, caller, s.users, s.users)
	if err != nil {
		return nil, storeError(err, "resolve author label")
	}

	chirpRef := repositories.ChirpRef(chirpID)
	replyRef := chirpRef.Collection(repositories.RepliesCollection).NewDoc()
	err = s.store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		chirp, err := tx.Get(chirpRef)
		if err != nil {
			return err
		}
		if !chirp.Exists() {
			return domainerrors.NotFound("Chirp not found.")
		}
		if err := tx.Create(replyRef, docstore.Fields{
			"authorId":     caller.UID,
			"authorLabel":  label,
			"body":         body,
			"isBestAnswer": false,
			"helpfulCount": 0,
			"createdAt":    docstore.ServerTimestamp,
		}); err != nil {
			return err
		}
		return tx.Update(chirpRef, docstore.Fields{"replyCount": docstore.Increment(1)})
	})
	if err != nil {
		return nil, storeError(err, "add chirp reply")
	}

	s.log.WithFields(logrus.Fields{"chirp_id": chirpID, "reply_id": replyRef.ID()}).Info("Chirp reply added")
	return &CreatedResult{Success: true, ID: replyRef.ID()}, nil
}

// MarkAsBestAnswer lets the chirp's author pick the best reply. A previous best reply is
// unmarked and the new one is copied onto the chirp.
func (s *ChirpService) MarkAsBestAnswer(ctx context.Context, caller Caller, chirpID, replyID string) (*Result, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := requireID(chirpID, "Chirp ID is required."); err != nil {
		return nil, err
	}
	if err := requireID(replyID, "Reply ID is required."); err != nil {
		return nil, err
	}

	chirpRef := repositories.ChirpRef(chirpID)
	replyRef := repositories.ReplyRef(chirpID, replyID)
	err := s.store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		chirpSnap, err := tx.Get(chirpRef)
		if err != nil {
			return err
		}
		if !chirpSnap.Exists() {
			return domainerrors.NotFound("Chirp not found.")
		}
		var chirp models.Chirp
		if err := chirpSnap.DataTo(&chirp); err != nil {
			return err
		}
		if chirp.AuthorID != caller.UID {
			return domainerrors.PermissionDenied("Only the author of the chirp can pick the best answer.")
		}

		replySnap, err := tx.Get(replyRef)
		if err != nil {
			return err
		}
		if !replySnap.Exists() {
			return domainerrors.NotFound("Reply not found.")
		}
		var reply models.Reply
		if err := replySnap.DataTo(&reply); err != nil {
			return err
		}

		// All reads happen before the first write.
		var previous *docstore.Snapshot
		if chirp.BestAnswer != nil && chirp.BestAnswer.ReplyID != "" && chirp.BestAnswer.ReplyID != replyID {
			previous, err = tx.Get(repositories.ReplyRef(chirpID, chirp.BestAnswer.ReplyID))
			if err != nil {
				return err
			}
		}

		if previous != nil && previous.Exists() {
			if err := tx.Update(previous.Ref, docstore.Fields{"isBestAnswer": false}); err != nil {
				return err
			}
		}
		if err := tx.Update(chirpRef, docstore.Fields{
			"bestAnswer": map[string]any{
				"replyId":     replyID,
				"body":        reply.Body,
				"authorLabel": reply.AuthorLabel,
				"createdAt":   reply.CreatedAt,
			},
		}); err != nil {
			return err
		}
		return tx.Update(replyRef, docstore.Fields{"isBestAnswer": true})
	})
	if err != nil {
		return nil, storeError(err, "mark best answer")
	}

	s.log.WithFields(logrus.Fields{"chirp_id": chirpID, "reply_id": replyID}).Info("Best answer marked")
	return &Result{Success: true, Message: "Best answer updated."}, nil
}
