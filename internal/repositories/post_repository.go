package repositories

import (
	"context"
	"fmt"

	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
)

// MediaPost is a chirp or feed post that carries a media URL.
type MediaPost struct {
	Ref      docstore.Ref
	AuthorID string
	Title    string
}

// PostRepository finds and flags community content by its media.
type PostRepository interface {
	// FindPostByMediaURL looks through chirps first and then feed posts. It returns nil
	// without error when no post uses the URL.
	FindPostByMediaURL(ctx context.Context, mediaURL string) (*MediaPost, error)
	MarkMediaRemoved(ctx context.Context, ref docstore.Ref, label string) error
}

type docstorePostRepository struct {
	store docstore.Store
}

func NewPostRepository(store docstore.Store) PostRepository {
	return &docstorePostRepository{store: store}
}

func (r *docstorePostRepository) FindPostByMediaURL(ctx context.Context, mediaURL string) (*MediaPost, error) {
	for _, col := range []string{ChirpsCollection, FeedPostsCollection} {
		snaps, err := r.store.Query(ctx, docstore.Collection(col).Where("mediaUrl", mediaURL).Limit(1))
		if err != nil {
			return nil, fmt.Errorf("query %s by media: %w", col, err)
		}
		if len(snaps) == 0 {
			continue
		}

		post := &MediaPost{Ref: snaps[0].Ref}
		if col == ChirpsCollection {
			var chirp models.Chirp
			if err := snaps[0].DataTo(&chirp); err != nil {
				return nil, err
			}
			post.AuthorID, post.Title = chirp.AuthorID, chirp.Title
		} else {
			var feedPost models.FeedPost
			if err := snaps[0].DataTo(&feedPost); err != nil {
				return nil, err
			}
			post.AuthorID = feedPost.AuthorID
		}
		return post, nil
	}
	return nil, nil
}

func (r *docstorePostRepository) MarkMediaRemoved(ctx context.Context, ref docstore.Ref, label string) error {
	return r.store.Update(ctx, ref, docstore.Fields{
		"mediaStatus":     models.MediaRemovedByModeration,
		"moderationLabel": label,
	})
}
