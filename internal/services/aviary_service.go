package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	domainerrors "github.com/abhijit-arora/cockatiel-companion/internal/errors"
	"github.com/abhijit-arora/cockatiel-companion/internal/repositories"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
)

const (
	minAviaryNameLen = 3
	maxAviaryNameLen = 25
)

var (
	aviaryNameChars = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)
	// RE2 has no backreferences, so each separator gets its own alternative.
	doubledSeparator = regexp.MustCompile(`  |__|--`)

	errAviaryNameTaken = domainerrors.AlreadyExists("This Aviary name is already taken. Please choose another.")
)

// AviaryService names households.
type AviaryService struct {
	store docstore.Store
	log   logrus.FieldLogger
}

func NewAviaryService(store docstore.Store, log logrus.FieldLogger) *AviaryService {
	return &AviaryService{store: store, log: log}
}

// SetAviaryNameResult is returned by SetAviaryName.
type SetAviaryNameResult struct {
	Success    bool   `json:"success"`
	AviaryName string `json:"aviaryName"`
}

// ValidateAviaryName checks the name rules in order and returns the trimmed name.
func ValidateAviaryName(name string) (string, error) {
	if name == "" {
		return "", domainerrors.InvalidArgument("Aviary name must be a non-empty string.")
	}
	trimmed := strings.TrimSpace(name)
	if n := utf8.RuneCountInString(trimmed); n < minAviaryNameLen || n > maxAviaryNameLen {
		return "", domainerrors.InvalidArgumentf("Aviary name must be between %d and %d characters.", minAviaryNameLen, maxAviaryNameLen)
	}
	if !aviaryNameChars.MatchString(trimmed) {
		return "", domainerrors.InvalidArgument("Aviary name can only contain letters, numbers, spaces, hyphens and underscores.")
	}
	if doubledSeparator.MatchString(trimmed) {
		return "", domainerrors.InvalidArgument("Aviary name cannot contain repeated spaces, hyphens or underscores.")
	}
	return trimmed, nil
}

// SetAviaryName claims a unique name for the caller's aviary. Keeping the current name is
// allowed. Each name is reserved by a document in aviaryNames keyed by the name itself, so two
// callers racing for the same name collide on one document on every backend.
func (s *AviaryService) SetAviaryName(ctx context.Context, caller Caller, name string) (*SetAviaryNameResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	trimmed, err := ValidateAviaryName(name)
	if err != nil {
		return nil, err
	}

	aviaryRef := repositories.AviaryRef(caller.UID)
	claimRef := repositories.AviaryNameRef(trimmed)
	err = s.store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		claim, err := tx.Get(claimRef)
		if err != nil {
			return err
		}
		if claim.Exists() && claim.StringField("aviaryId") != caller.UID {
			return errAviaryNameTaken
		}
		aviary, err := tx.Get(aviaryRef)
		if err != nil {
			return err
		}
		var oldClaim *docstore.Snapshot
		if current := aviary.StringField("aviaryName"); current != "" && current != trimmed {
			if oldClaim, err = tx.Get(repositories.AviaryNameRef(current)); err != nil {
				return err
			}
		}
		// Names set before claims existed are only recorded on the aviary itself.
		holders, err := tx.Query(docstore.Collection(repositories.AviariesCollection).Where("aviaryName", trimmed))
		if err != nil {
			return err
		}
		for _, h := range holders {
			if h.Ref != aviaryRef {
				return errAviaryNameTaken
			}
		}

		if !claim.Exists() {
			if err := tx.Create(claimRef, docstore.Fields{
				"aviaryId":  caller.UID,
				"createdAt": docstore.ServerTimestamp,
			}); err != nil {
				return err
			}
		}
		if oldClaim.Exists() && oldClaim.StringField("aviaryId") == caller.UID {
			if err := tx.Delete(oldClaim.Ref); err != nil {
				return err
			}
		}
		return tx.Set(aviaryRef, docstore.Fields{"aviaryName": trimmed}, docstore.MergeAll)
	})
	if errors.Is(err, docstore.ErrAlreadyExists) {
		err = errAviaryNameTaken
	}
	if err != nil {
		return nil, storeError(err, "set aviary name")
	}

	s.log.WithFields(logrus.Fields{"aviary_id": caller.UID, "aviary_name": trimmed}).Info("Aviary named")
	return &SetAviaryNameResult{Success: true, AviaryName: trimmed}, nil
}
