package dispatch

import (
	"time"

	"reminder-service/internal/models"
)

// A reminder whose task is still open after this long is escalated to the
// overdue template.
const overdueThreshold = 5 * 24 * time.Hour

// Escalation is the effective template selection for a notification.
// DaysOverdue is zero when no escalation applies.
type Escalation struct {
	TemplateKey string
	DaysOverdue int
}

// Escalate decides whether a reminder should be treated as overdue. Pure
// function of the template key, the elapsed time, and the task's completion
// state.
//
// When scheduledAt is unavailable the task's due date serves as the reference
// point instead.
func Escalate(templateKey string, scheduledAt, now time.Time, taskCtx models.TaskContext) Escalation {
	esc := Escalation{TemplateKey: templateKey}
	if templateKey != models.TemplateTaskReminder || taskCtx.IsCompleted {
		return esc
	}

	ref := scheduledAt
	if ref.IsZero() && taskCtx.TaskDueDate != nil {
		ref = *taskCtx.TaskDueDate
	}
	if ref.IsZero() {
		return esc
	}

	elapsed := now.Sub(ref)
	if elapsed < overdueThreshold {
		return esc
	}

	days := int(elapsed.Hours() / 24)
	if days < 1 {
		days = 1
	}
	esc.TemplateKey = models.TemplateTaskOverdue
	esc.DaysOverdue = days
	return esc
}
