package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification statuses. Transitions are pending -> sent or pending -> failed;
// terminal rows are never picked up again by the dispatcher.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Notification types handled by the dispatch pipeline.
const (
	TypeTaskReminder = "task_reminder"
	TypeTaskOverdue  = "task_overdue"
)

// Template keys stored in email_templates.
const (
	TemplateTaskReminder = "task_reminder"
	TemplateTaskOverdue  = "task_overdue"
)

// Notification represents one scheduled communication to a user.
type Notification struct {
	ID                uuid.UUID         `json:"id"`
	UserID            uuid.UUID         `json:"user_id"`
	Type              string            `json:"type"`
	Title             string            `json:"title"`
	Message           string            `json:"message"`
	Status            string            `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	ScheduledAt       time.Time         `json:"scheduled_at"`
	SentAt            *time.Time        `json:"sent_at,omitempty"`
	TemplateKey       string            `json:"template_key"`
	TemplateVariables map[string]string `json:"template_variables,omitempty"`
	Payload           map[string]any    `json:"payload,omitempty"`
	TaskID            string            `json:"task_id,omitempty"`
	TaskTable         string            `json:"task_table,omitempty"`
	LastError         string            `json:"last_error,omitempty"`
}

// Template is a stored (subject, HTML body) pair looked up by key.
// Inactive templates are treated as missing.
type Template struct {
	ID          uuid.UUID `json:"id"`
	TemplateKey string    `json:"template_key"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Recipient is the resolved delivery target for a notification.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
