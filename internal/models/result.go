package models

import "github.com/google/uuid"

// Per-notification dispatch outcomes.
const (
	ResultSent             = "sent"
	ResultFailed           = "failed"
	ResultSkippedCompleted = "skipped_completed"
)

// DispatchResult records the outcome of one notification within a batch.
type DispatchResult struct {
	NotificationID uuid.UUID `json:"notification_id"`
	Status         string    `json:"status"`
	EmailID        string    `json:"email_id,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Summary aggregates one batch run of the dispatch loop.
type Summary struct {
	Processed        int              `json:"processed"`
	Sent             int              `json:"sent"`
	Failed           int              `json:"failed"`
	SuccessRate      float64          `json:"success_rate"`
	ProcessingTimeMS int64            `json:"processing_time_ms"`
	Results          []DispatchResult `json:"results"`
}
