// Package services implements the callable operations and the moderation trigger on top of
// the document store.
package services

import (
	"fmt"
	"strings"

	domainerrors "github.com/abhijit-arora/cockatiel-companion/internal/errors"
)

// Caller is the verified identity behind a request.
type Caller struct {
	UID   string
	Email string
}

// Result is the common success payload.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

const genericFailure = "Something went wrong. Please try again."

func requireCaller(caller Caller) error {
	if caller.UID == "" {
		return domainerrors.Unauthenticated("You must be logged in to perform this action.")
	}
	return nil
}

func requireID(id, msg string) error {
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		return domainerrors.InvalidArgument(msg)
	}
	return nil
}

// storeError passes domain errors through and hides store failures behind an internal error.
func storeError(err error, action string) error {
	if err == nil {
		return nil
	}
	var domainErr *domainerrors.Error
	if domainerrors.As(err, &domainErr) {
		return err
	}
	return domainerrors.Internal(genericFailure, fmt.Errorf("%s: %w", action, err))
}
