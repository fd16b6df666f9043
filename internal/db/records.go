package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"reminder-service/internal/models"
)

// GetRecordByID fetches a single row from an arbitrary table as a generic map.
// The task linkage tables (todos, user_tasks, the plant and environment tables)
// vary per deployment, so the probe cannot assume a fixed schema. A missing row
// yields (nil, nil); a missing table surfaces as an error the caller tolerates.
func (d *DB) GetRecordByID(ctx context.Context, table, id string) (map[string]any, error) {
	query := fmt.Sprintf(`SELECT * FROM %s WHERE id::text = $1 LIMIT 1`, pgx.Identifier{table}.Sanitize())
	rows, err := d.Pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	record, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read record from %s: %w", table, err)
	}
	return record, nil
}

// EarliestTaskCompletion returns the timestamp of the first completion log
// entry for a task, or nil when none exists. Some deployments log completions
// separately from the task row itself.
func (d *DB) EarliestTaskCompletion(ctx context.Context, taskID string) (*time.Time, error) {
	query := `
        SELECT completed_at
        FROM task_completions
        WHERE task_id::text = $1
        ORDER BY completed_at ASC
        LIMIT 1`

	var completedAt time.Time
	err := d.Pool.QueryRow(ctx, query, taskID).Scan(&completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query task completions for %s: %w", taskID, err)
	}
	return &completedAt, nil
}

// GetRecipient resolves the delivery address and display name for a user.
func (d *DB) GetRecipient(ctx context.Context, userID string) (models.Recipient, error) {
	query := `
        SELECT COALESCE(email, ''), COALESCE(full_name, '')
        FROM profiles
        WHERE id::text = $1`

	var r models.Recipient
	err := d.Pool.QueryRow(ctx, query, userID).Scan(&r.Email, &r.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Recipient{}, ErrRecipientNotFound
		}
		return models.Recipient{}, fmt.Errorf("failed to get profile for user %s: %w", userID, err)
	}
	if r.Email == "" {
		return models.Recipient{}, ErrRecipientNotFound
	}
	return r, nil
}
