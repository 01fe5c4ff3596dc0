// Package server provides the HTTP REST API for the CV builder.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/cv-builder/internal/config"
	"github.com/jonathan/cv-builder/internal/remote"
	"github.com/jonathan/cv-builder/internal/store"
	"github.com/jonathan/cv-builder/internal/types"
	"github.com/jonathan/cv-builder/internal/wizard"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrUserNotFound indicates user was not found
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error. Wrapped errors are
// matched by type anywhere in the chain.
func HTTPStatus(err error) int {
	var (
		emailErr      *ErrEmailAlreadyExists
		credErr       *ErrInvalidCredentials
		userErr       *ErrUserNotFound
		validationErr *ErrValidation
		authErr       *remote.AuthRequiredError
		notFoundErr   *remote.NotFoundError
		rejectedErr   *remote.WriteRejectedError
		netErr        *remote.NetworkError
		entryErr      *types.EntryNotFoundError
		fieldErr      *types.FieldError
		sectionErr    *store.SectionTypeError
		stepErr       *store.StepRangeError
		incompleteErr *wizard.StepIncompleteError
		kindErr       *wizard.SectionKindError
		indexErr      *wizard.IndexRangeError
	)

	switch {
	case errors.As(err, &emailErr):
		return http.StatusConflict
	case errors.As(err, &credErr), errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &userErr), errors.As(err, &notFoundErr), errors.As(err, &entryErr),
		errors.Is(err, wizard.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &incompleteErr):
		return http.StatusConflict
	case errors.As(err, &rejectedErr):
		return http.StatusForbidden
	case errors.As(err, &netErr):
		return http.StatusBadGateway
	case errors.As(err, &validationErr), errors.As(err, &fieldErr), errors.As(err, &sectionErr),
		errors.As(err, &stepErr), errors.As(err, &kindErr), errors.As(err, &indexErr),
		errors.Is(err, config.ErrPasswordTooLong):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
