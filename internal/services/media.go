package services

import (
	"context"

	domainerrors "github.com/abhijit-arora/cockatiel-companion/internal/errors"
	"github.com/abhijit-arora/cockatiel-companion/internal/repositories"
	"github.com/abhijit-arora/cockatiel-companion/pkg/mediastore"
)

// checkNewMedia accepts an empty URL, or one naming an object in the media bucket that no
// chirp or feed post references yet. Deleting a post deletes its object, so a post must never
// point at media it does not own.
func checkNewMedia(ctx context.Context, media mediastore.Store, posts repositories.PostRepository, mediaURL string) error {
	if mediaURL == "" {
		return nil
	}
	obj, err := media.Resolve(mediaURL)
	if err != nil {
		return domainerrors.InvalidArgument("Media must be uploaded through the app.").WithCause(err)
	}

	// The same object can be written as a gs:// or an https URL.
	urls := []string{mediaURL}
	if canonical := obj.String(); canonical != mediaURL {
		urls = append(urls, canonical)
	}
	for _, u := range urls {
		post, err := posts.FindPostByMediaURL(ctx, u)
		if err != nil {
			return storeError(err, "find post by media")
		}
		if post != nil {
			return domainerrors.InvalidArgument("This media is already attached to another post.")
		}
	}
	return nil
}
