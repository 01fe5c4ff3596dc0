package remote

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Identity resolves the user on whose behalf the client acts.
type Identity interface {
	CurrentIdentity(ctx context.Context) (uuid.UUID, error)
}

// StaticIdentity is an identity fixed at construction. The nil UUID means signed out.
type StaticIdentity uuid.UUID

// CurrentIdentity implements Identity.
func (s StaticIdentity) CurrentIdentity(_ context.Context) (uuid.UUID, error) {
	id := uuid.UUID(s)
	if id == uuid.Nil {
		return uuid.Nil, &AuthRequiredError{Reason: "no signed-in user"}
	}
	return id, nil
}

// TokenValidateFunc validates a bearer token and returns its user id.
type TokenValidateFunc func(token string) (uuid.UUID, error)

// TokenIdentity derives the identity from a bearer token that is re-validated on
// every call, so that a session outliving its token stops writing.
type TokenIdentity struct {
	validate TokenValidateFunc

	mu    sync.RWMutex
	token string
}

// NewTokenIdentity creates a TokenIdentity for token.
func NewTokenIdentity(token string, validate TokenValidateFunc) *TokenIdentity {
	return &TokenIdentity{validate: validate, token: token}
}

// SetToken replaces the token, e.g. after the user presents a fresh one.
func (t *TokenIdentity) SetToken(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}

// CurrentIdentity implements Identity.
func (t *TokenIdentity) CurrentIdentity(_ context.Context) (uuid.UUID, error) {
	t.mu.RLock()
	token := t.token
	t.mu.RUnlock()

	if token == "" {
		return uuid.Nil, &AuthRequiredError{Reason: "no token"}
	}
	id, err := t.validate(token)
	if err != nil {
		return uuid.Nil, &AuthRequiredError{Reason: "token rejected", Cause: err}
	}
	return id, nil
}
