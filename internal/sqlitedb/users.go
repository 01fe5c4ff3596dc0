package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/cv-builder/internal/db"
)

// CreateUser creates a user without a password and returns its ID
func (s *DB) CreateUser(ctx context.Context, name, email string) (uuid.UUID, error) {
	id := uuid.New()
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, email, now, now,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create user: %w", err)
	}
	return id, nil
}

func (s *DB) getUser(ctx context.Context, where string, arg any) (*db.User, error) {
	var u db.User
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, password_set, created_at, updated_at FROM users WHERE `+where,
		arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.PasswordSet, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.CreatedAt = fromUnix(createdAt)
	u.UpdatedAt = fromUnix(updatedAt)
	return &u, nil
}

// GetUser retrieves a user by ID. Returns nil, nil when not found.
func (s *DB) GetUser(ctx context.Context, id uuid.UUID) (*db.User, error) {
	u, err := s.getUser(ctx, "id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email. Returns nil, nil when not found.
func (s *DB) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	if email == "" {
		return nil, nil
	}
	u, err := s.getUser(ctx, "email = ?", email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// CheckEmailExists reports whether an account uses email
func (s *DB) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// UpdatePassword stores a password hash and marks the password as set
func (s *DB) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, password_set = 1, updated_at = ? WHERE id = ?`,
		passwordHash, s.timestamp(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// DeleteUser deletes a user and, by cascade, their CVs
func (s *DB) DeleteUser(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
