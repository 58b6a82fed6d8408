package repositories

import (
	"context"
	"fmt"

	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
)

// UserRepository reads users and their households.
type UserRepository interface {
	// GetUser returns nil without error when the user has no document.
	GetUser(ctx context.Context, uid string) (*models.User, error)
	// GetAviary returns nil without error when the aviary has no document.
	GetAviary(ctx context.Context, id string) (*models.Aviary, error)
	// GetCaregiver returns nil without error when uid is not a caregiver of the aviary.
	GetCaregiver(ctx context.Context, aviaryID, uid string) (*models.Caregiver, error)
}

// DocstoreUserRepository implements UserRepository on a document store.
type DocstoreUserRepository struct {
	store docstore.Store
}

// NewUserRepository creates a DocstoreUserRepository.
func NewUserRepository(store docstore.Store) *DocstoreUserRepository {
	return &DocstoreUserRepository{store: store}
}

// GetUser loads users/{uid}.
func (r *DocstoreUserRepository) GetUser(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	ok, err := getDoc(ctx, r.store, UserRef(uid), &user)
	if err != nil || !ok {
		return nil, err
	}
	user.ID = uid
	return &user, nil
}

// GetAviary loads aviaries/{id}.
func (r *DocstoreUserRepository) GetAviary(ctx context.Context, id string) (*models.Aviary, error) {
	var aviary models.Aviary
	ok, err := getDoc(ctx, r.store, AviaryRef(id), &aviary)
	if err != nil || !ok {
		return nil, err
	}
	aviary.ID = id
	return &aviary, nil
}

// GetCaregiver loads aviaries/{aviaryID}/caregivers/{uid}.
func (r *DocstoreUserRepository) GetCaregiver(ctx context.Context, aviaryID, uid string) (*models.Caregiver, error) {
	var caregiver models.Caregiver
	ok, err := getDoc(ctx, r.store, CaregiverRef(aviaryID, uid), &caregiver)
	if err != nil || !ok {
		return nil, err
	}
	caregiver.ID = uid
	return &caregiver, nil
}

func getDoc(ctx context.Context, store docstore.Store, ref docstore.Ref, v any) (bool, error) {
	snap, err := store.Get(ctx, ref)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", ref, err)
	}
	if !snap.Exists() {
		return false, nil
	}
	if err := snap.DataTo(v); err != nil {
		return false, err
	}
	return true, nil
}
