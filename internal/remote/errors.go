package remote

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// AuthRequiredError indicates there is no identity to act on behalf of
type AuthRequiredError struct {
	Reason string
	Cause  error
}

func (e *AuthRequiredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("authentication required: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("authentication required: %s", e.Reason)
}

func (e *AuthRequiredError) Unwrap() error {
	return e.Cause
}

// NotFoundError indicates a CV id does not resolve for the current identity
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cv not found: %s", e.ID)
}

// WriteRejectedError indicates the remote store refused a write
type WriteRejectedError struct {
	Op     string
	ID     uuid.UUID
	Reason string
}

func (e *WriteRejectedError) Error() string {
	if e.ID == uuid.Nil {
		return fmt.Sprintf("%s rejected: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s %s rejected: %s", e.Op, e.ID, e.Reason)
}

// NetworkError indicates a transport-level failure talking to the store
type NetworkError struct {
	Op    string
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// IsNetworkError reports whether err carries a NetworkError.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// classify wraps transport failures in NetworkError and everything else with op context.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var connectErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		pgconn.Timeout(err),
		errors.As(err, &connectErr),
		errors.As(err, &netErr):
		return &NetworkError{Op: op, Cause: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
