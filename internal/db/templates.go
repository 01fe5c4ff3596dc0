package db

import (
	"context"
	"fmt"

	"github.com/jonathan/cv-builder/internal/types"
)

// ListActiveTemplates lists the templates offered for new CVs
func (db *DB) ListActiveTemplates(ctx context.Context) ([]types.Template, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, title, description FROM templates WHERE is_active ORDER BY created_at, id`,
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
func (db *DB) UpsertTemplate(ctx context.Context, t types.Template, active bool) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO templates (id, title, description, is_active)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET title = $2, description = $3, is_active = $4`,
		t.ID, t.Title, t.Description, active,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert template %s: %w", t.ID, err)
	}
	return nil
}
