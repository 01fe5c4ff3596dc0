package sqlitedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/cv-builder/internal/types"
)

// CreateCV inserts a CV owned by rec.UserID and returns its id
func (s *DB) CreateCV(ctx context.Context, rec *types.CVRecord) (uuid.UUID, error) {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal cv data: %w", err)
	}

	id := uuid.New()
	now := s.timestamp()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cvs (id, user_id, title, cv_data, current_step, is_complete, template_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.UserID, rec.Title, string(data), rec.CurrentStep, rec.IsComplete, rec.TemplateID, now, now,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create cv: %w", err)
	}
	return id, nil
}

// GetCV retrieves a CV by ID. Returns nil, nil when it does not exist.
func (s *DB) GetCV(ctx context.Context, id uuid.UUID) (*types.CVRecord, error) {
	var rec types.CVRecord
	var data string
	var templateID sql.NullString
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, cv_data, current_step, is_complete, template_id, created_at, updated_at
		 FROM cvs WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.UserID, &rec.Title, &data, &rec.CurrentStep, &rec.IsComplete,
		&templateID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cv: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cv data: %w", err)
	}
	rec.Data.Normalize()
	if templateID.Valid {
		rec.TemplateID = &templateID.String
	}
	rec.CreatedAt = fromUnix(createdAt)
	rec.UpdatedAt = fromUnix(updatedAt)
	return &rec, nil
}

// UpdateCV writes patch to the CV with id owned by userID.
// It reports false when no such CV exists for the user.
func (s *DB) UpdateCV(ctx context.Context, id, userID uuid.UUID, patch *types.CVPatch) (bool, error) {
	data, err := json.Marshal(patch.Data)
	if err != nil {
		return false, fmt.Errorf("failed to marshal cv data: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE cvs
		 SET cv_data = ?, current_step = ?, is_complete = ?, template_id = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		string(data), patch.CurrentStep, patch.IsComplete, patch.TemplateID, s.timestamp(), id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update cv: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update cv: %w", err)
	}
	return n > 0, nil
}

// DeleteCV deletes the CV with id owned by userID and reports whether a row was removed
func (s *DB) DeleteCV(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cvs WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete cv: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete cv: %w", err)
	}
	return n > 0, nil
}

// ListCVsByUser lists a user's CVs, most recently updated first
func (s *DB) ListCVsByUser(ctx context.Context, userID uuid.UUID) ([]types.CVSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, updated_at, is_complete
		 FROM cvs WHERE user_id = ?
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
		var updatedAt int64
		if err := rows.Scan(&s.ID, &s.Title, &updatedAt, &s.IsComplete); err != nil {
			return nil, fmt.Errorf("failed to scan cv: %w", err)
		}
		s.UpdatedAt = fromUnix(updatedAt)
		cvs = append(cvs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list cvs: %w", err)
	}
	return cvs, nil
}

// ListActiveTemplates lists the templates offered for new CVs
func (s *DB) ListActiveTemplates(ctx context.Context) ([]types.Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description FROM templates WHERE is_active = 1 ORDER BY position, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := []types.Template{}
	for rows.Next() {
		var t types.Template
		if err := rows.Scan(&t.ID, &t.Title, &t.Description); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// UpsertTemplate creates or replaces a template
func (s *DB) UpsertTemplate(ctx context.Context, t types.Template, active bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO templates (id, title, description, is_active) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET title = excluded.title, description = excluded.description,
		 is_active = excluded.is_active`,
		t.ID, t.Title, t.Description, active,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert template %s: %w", t.ID, err)
	}
	return nil
}
