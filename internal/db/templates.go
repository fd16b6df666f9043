package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"reminder-service/internal/models"
)

// GetActiveTemplate looks up the active template for a key. At most one active
// template is expected per key; inactive templates are treated as missing.
func (d *DB) GetActiveTemplate(ctx context.Context, key string) (models.Template, error) {
	query := `
        SELECT id, template_key, subject, body, active, created_at
        FROM email_templates
        WHERE template_key = $1 AND active = true
        LIMIT 1`

	var t models.Template
	err := d.Pool.QueryRow(ctx, query, key).Scan(
		&t.ID, &t.TemplateKey, &t.Subject, &t.Body, &t.Active, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Template{}, ErrTemplateNotFound
		}
		return models.Template{}, fmt.Errorf("failed to get template %q: %w", key, err)
	}
	return t, nil
}
