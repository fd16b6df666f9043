package models

import "time"

// TaskContext is the resolved real-world state of the task a notification is
// linked to. It is recomputed on every pass and never persisted.
type TaskContext struct {
	IsCompleted  bool
	CompletedAt  *time.Time
	TaskTitle    string
	TaskDueDate  *time.Time
	TaskPriority string
	TaskCategory string
	PlantName    string
	GardenName   string
}

// TaskEvent is the message shape consumed from the task events topic.
// Each event schedules one pending reminder notification.
type TaskEvent struct {
	TaskID      string            `json:"task_id"`
	TaskTable   string            `json:"task_table"`
	UserID      string            `json:"user_id"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	TemplateKey string            `json:"template_key"`
	Variables   map[string]string `json:"variables,omitempty"`
	Payload     map[string]any    `json:"payload,omitempty"`
	DueAt       time.Time         `json:"due_at"`
}
