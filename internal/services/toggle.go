package services

import (
	"context"

	domainerrors "github.com/abhijit-arora/cockatiel-companion/internal/errors"
	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
)

// toggleTarget names the content whose per-user marker is flipped.
type toggleTarget struct {
	content  docstore.Ref
	markers  string // sub-collection of content holding the markers
	counter  string // counter field on content
	notFound string
}

// toggleMarker flips the caller's marker under the target and moves the counter with it in the
// same transaction, so the counter always equals the number of markers.
func toggleMarker(ctx context.Context, store docstore.Store, target toggleTarget, uid string) (models.ToggleResult, error) {
	var result models.ToggleResult
	marker := target.content.Collection(target.markers).Doc(uid)

	err := store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		content, err := tx.Get(target.content)
		if err != nil {
			return err
		}
		if !content.Exists() {
			return domainerrors.NotFound(target.notFound)
		}
		existing, err := tx.Get(marker)
		if err != nil {
			return err
		}

		count := content.IntField(target.counter)
		if existing.Exists() {
			if err := tx.Delete(marker); err != nil {
				return err
			}
			result = models.ToggleResult{Active: false, Count: count - 1}
			return tx.Update(target.content, docstore.Fields{target.counter: docstore.Increment(-1)})
		}

		if err := tx.Create(marker, docstore.Fields{"userId": uid, "createdAt": docstore.ServerTimestamp}); err != nil {
			return err
		}
		result = models.ToggleResult{Active: true, Count: count + 1}
		return tx.Update(target.content, docstore.Fields{target.counter: docstore.Increment(1)})
	})
	if err != nil {
		return models.ToggleResult{}, storeError(err, "toggle "+target.markers)
	}
	return result, nil
}
