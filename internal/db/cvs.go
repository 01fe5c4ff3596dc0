package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/cv-builder/internal/types"
)

// CreateCV inserts a CV owned by rec.UserID and returns its id
func (db *DB) CreateCV(ctx context.Context, rec *types.CVRecord) (uuid.UUID, error) {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal cv data: %w", err)
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO cvs (user_id, title, cv_data, current_step, is_complete, template_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		rec.UserID, rec.Title, data, rec.CurrentStep, rec.IsComplete, rec.TemplateID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create cv: %w", err)
	}
	return id, nil
}

// GetCV retrieves a CV by ID. Returns nil, nil when it does not exist.
func (db *DB) GetCV(ctx context.Context, id uuid.UUID) (*types.CVRecord, error) {
	var rec types.CVRecord
	var data []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, title, cv_data, current_step, is_complete, template_id, created_at, updated_at
		 FROM cvs WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.UserID, &rec.Title, &data, &rec.CurrentStep, &rec.IsComplete,
		&rec.TemplateID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cv: %w", err)
	}

	if err := json.Unmarshal(data, &rec.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cv data: %w", err)
	}
	rec.Data.Normalize()
	return &rec, nil
}

// UpdateCV writes patch to the CV with id owned by userID and bumps updated_at.
// It reports false when no such CV exists for the user.
func (db *DB) UpdateCV(ctx context.Context, id, userID uuid.UUID, patch *types.CVPatch) (bool, error) {
	data, err := json.Marshal(patch.Data)
	if err != nil {
		return false, fmt.Errorf("failed to marshal cv data: %w", err)
	}

	result, err := db.pool.Exec(ctx,
		`UPDATE cvs
		 SET cv_data = $1, current_step = $2, is_complete = $3, template_id = $4, updated_at = NOW()
		 WHERE id = $5 AND user_id = $6`,
		data, patch.CurrentStep, patch.IsComplete, patch.TemplateID, id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update cv: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// DeleteCV deletes the CV with id owned by userID and reports whether a row was removed
func (db *DB) DeleteCV(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	result, err := db.pool.Exec(ctx, `DELETE FROM cvs WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete cv: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ListCVsByUser lists a user's CVs, most recently updated first
func (db *DB) ListCVsByUser(ctx context.Context, userID uuid.UUID) ([]types.CVSummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, title, updated_at, is_complete
		 FROM cvs WHERE user_id = $1
		 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cvs: %w", err)
	}
	defer rows.Close()

	cvs := []types.CVSummary{}
	for rows.Next() {
		var s types.CVSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.UpdatedAt, &s.IsComplete); err != nil {
			return nil, fmt.Errorf("failed to scan cv: %w", err)
		}
		cvs = append(cvs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list cvs: %w", err)
	}
	return cvs, nil
}
