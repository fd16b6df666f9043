package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"reminder-service/internal/models"
)

const notificationColumns = `
        id, user_id, type, title, message, status, created_at, updated_at, scheduled_at, sent_at,
        template_key, COALESCE(template_variables, '{}'::jsonb), COALESCE(payload, '{}'::jsonb),
        COALESCE(task_id::text, ''), COALESCE(task_table, ''), COALESCE(last_error, '')`

func scanNotification(row pgx.Row) (models.Notification, error) {
	var n models.Notification
	err := row.Scan(
		&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Status,
		&n.CreatedAt, &n.UpdatedAt, &n.ScheduledAt, &n.SentAt,
		&n.TemplateKey, &n.TemplateVariables, &n.Payload,
		&n.TaskID, &n.TaskTable, &n.LastError,
	)
	return n, err
}

// FetchDueNotifications returns up to limit pending notifications whose
// scheduled_at is at or before now, oldest first. An empty batch is not an error.
func (d *DB) FetchDueNotifications(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	query := `
        SELECT ` + notificationColumns + `
        FROM notifications
        WHERE status = 'pending' AND scheduled_at <= $1
        ORDER BY scheduled_at ASC
        LIMIT $2`
	rows, err := d.Pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read due notifications: %w", err)
	}

	return notifications, nil
}

// MarkNotificationSent moves a notification to its terminal sent state.
func (d *DB) MarkNotificationSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	query := `
        UPDATE notifications
        SET status = 'sent', sent_at = $2, updated_at = NOW()
        WHERE id = $1`
	result, err := d.Pool.Exec(ctx, query, id, sentAt)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s sent: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkNotificationFailed moves a notification to its terminal failed state,
// keeping the error detail for inspection.
func (d *DB) MarkNotificationFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	query := `
        UPDATE notifications
        SET status = 'failed', last_error = $2, updated_at = NOW()
        WHERE id = $1`
	result, err := d.Pool.Exec(ctx, query, id, errMsg)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s failed: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// CreateNotification inserts a new pending notification and returns its ID.
func (d *DB) CreateNotification(ctx context.Context, n models.Notification) (uuid.UUID, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	query := `
        INSERT INTO notifications (
            id, user_id, type, title, message, status, created_at, updated_at,
            scheduled_at, template_key, template_variables, payload, task_id, task_table
        )
        VALUES ($1, $2, $3, $4, $5, 'pending', NOW(), NOW(), $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''))`
	_, err := d.Pool.Exec(ctx, query,
		n.ID, n.UserID, n.Type, n.Title, n.Message,
		n.ScheduledAt, n.TemplateKey, n.TemplateVariables, n.Payload,
		n.TaskID, n.TaskTable,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n.ID, nil
}

// ListNotifications returns notifications ordered by scheduled_at descending,
// optionally filtered by status.
func (d *DB) ListNotifications(ctx context.Context, status string, limit, offset int) ([]models.Notification, error) {
	query := `
        SELECT ` + notificationColumns + `
        FROM notifications
        WHERE ($1 = '' OR status = $1)
        ORDER BY scheduled_at DESC
        LIMIT $2 OFFSET $3`
	rows, err := d.Pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// GetNotificationsByUserID returns all notifications for a user, newest first.
func (d *DB) GetNotificationsByUserID(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	query := `
        SELECT ` + notificationColumns + `
        FROM notifications
        WHERE user_id = $1
        ORDER BY scheduled_at DESC`
	rows, err := d.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications for user %s: %w", userID, err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
