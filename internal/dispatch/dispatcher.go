// Package dispatch turns due pending notifications into rendered, sent emails
// and writes the terminal status back, one batch at a time.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"reminder-service/internal/models"
	"reminder-service/internal/render"
)

// Store is the slice of the record store the dispatcher needs.
type Store interface {
	FetchDueNotifications(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	GetActiveTemplate(ctx context.Context, key string) (models.Template, error)
	GetRecipient(ctx context.Context, userID string) (models.Recipient, error)
	MarkNotificationSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	MarkNotificationFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

// ContextResolver resolves the linked task's state for a notification.
type ContextResolver interface {
	Resolve(ctx context.Context, n models.Notification) models.TaskContext
}

// EmailSender delivers one rendered message and returns the provider's
// message id.
type EmailSender interface {
	Send(ctx context.Context, to []string, subject, html, text string) (string, error)
}

// Options configures a Dispatcher. A zero BatchSize falls back to 50;
// SendDelay is taken as-is so a run can be paced down to zero in tests.
type Options struct {
	BatchSize int
	SendDelay time.Duration
	AppURL    string
}

// Dispatcher runs the fetch -> resolve -> escalate -> render -> send ->
// update-status pipeline over one batch of notifications.
//
// Processing is strictly sequential: the outbound provider enforces a
// per-second rate limit and a fixed pause between items is the simplest
// correct way to stay under it. There is no cross-run locking; concurrent
// runs against the same store can double-send, so invocations are expected
// to be serialized by the caller.
type Dispatcher struct {
	store    Store
	resolver ContextResolver
	sender   EmailSender
	logger   *logrus.Logger
	opts     Options
}

func New(store Store, resolver ContextResolver, sender EmailSender, logger *logrus.Logger, opts Options) *Dispatcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.SendDelay < 0 {
		opts.SendDelay = 0
	}
	return &Dispatcher{
		store:    store,
		resolver: resolver,
		sender:   sender,
		logger:   logger,
		opts:     opts,
	}
}

// Run processes one batch. Only a fetch failure is fatal; every other error
// is recorded per item and the batch continues. Cancelling ctx stops the loop
// before the next notification and returns the partial Summary.
func (d *Dispatcher) Run(ctx context.Context) (models.Summary, error) {
	start := time.Now()

	notifications, err := d.store.FetchDueNotifications(ctx, start, d.opts.BatchSize)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to fetch due notifications: %w", err)
	}

	summary := models.Summary{Results: []models.DispatchResult{}}
	d.logger.Infof("Dispatching batch of %d notifications", len(notifications))

	for i, n := range notifications {
		if ctx.Err() != nil {
			d.logger.Warnf("Dispatch cancelled after %d of %d notifications", i, len(notifications))
			break
		}

		result := d.process(ctx, n)
		summary.Results = append(summary.Results, result)
		summary.Processed++
		if result.Status == models.ResultSent {
			summary.Sent++
		} else {
			summary.Failed++
		}

		// Pace the provider: pause between items, never after the last one.
		if i < len(notifications)-1 {
			if err := d.pause(ctx); err != nil {
				d.logger.Warnf("Dispatch cancelled during pause after %d of %d notifications", i+1, len(notifications))
				break
			}
		}
	}

	if summary.Processed == 0 {
		summary.SuccessRate = 100
	} else {
		summary.SuccessRate = float64(summary.Sent) / float64(summary.Processed) * 100
	}
	summary.ProcessingTimeMS = time.Since(start).Milliseconds()

	d.logger.Infof("Batch done: processed=%d sent=%d failed=%d rate=%.1f%% in %dms",
		summary.Processed, summary.Sent, summary.Failed, summary.SuccessRate, summary.ProcessingTimeMS)
	return summary, nil
}

func (d *Dispatcher) process(ctx context.Context, n models.Notification) models.DispatchResult {
	taskCtx := d.resolver.Resolve(ctx, n)

	if taskCtx.IsCompleted {
		reason := "task already completed"
		d.markFailed(ctx, n.ID, reason)
		d.logger.Infof("Notification %s skipped: %s", n.ID, reason)
		return models.DispatchResult{NotificationID: n.ID, Status: models.ResultSkippedCompleted, Error: reason}
	}

	tmpl, err := d.store.GetActiveTemplate(ctx, n.TemplateKey)
	if err != nil {
		reason := "template not found"
		d.logger.Warnf("Notification %s: no active template %q: %v", n.ID, n.TemplateKey, err)
		d.markFailed(ctx, n.ID, reason)
		return models.DispatchResult{NotificationID: n.ID, Status: models.ResultFailed, Error: reason}
	}

	esc := Escalate(n.TemplateKey, n.ScheduledAt, time.Now(), taskCtx)
	if esc.TemplateKey != n.TemplateKey {
		overdue, err := d.store.GetActiveTemplate(ctx, esc.TemplateKey)
		if err != nil {
			d.logger.Warnf("Notification %s: overdue template %q unavailable, keeping %q: %v",
				n.ID, esc.TemplateKey, n.TemplateKey, err)
		} else {
			tmpl = overdue
			d.logger.Infof("Notification %s escalated to %q (%d days overdue)", n.ID, esc.TemplateKey, esc.DaysOverdue)
		}
	}

	recipient, err := d.store.GetRecipient(ctx, n.UserID.String())
	if err != nil {
		reason := "recipient email not found"
		d.logger.Warnf("Notification %s: %s: %v", n.ID, reason, err)
		d.markFailed(ctx, n.ID, reason)
		return models.DispatchResult{NotificationID: n.ID, Status: models.ResultFailed, Error: reason}
	}

	vars := buildVariables(n, taskCtx, recipient, esc, d.opts.AppURL)
	subject := render.Render(tmpl.Subject, vars)
	html := render.Render(tmpl.Body, vars)
	text := n.Title + "\n\n" + n.Message

	emailID, err := d.sender.Send(ctx, []string{recipient.Email}, subject, html, text)
	if err != nil {
		d.logger.Errorf("Notification %s: send failed: %v", n.ID, err)
		d.markFailed(ctx, n.ID, err.Error())
		return models.DispatchResult{NotificationID: n.ID, Status: models.ResultFailed, Error: err.Error()}
	}

	if err := d.store.MarkNotificationSent(ctx, n.ID, time.Now()); err != nil {
		// Lost status writes are recovered on the next pass, at worst causing
		// a duplicate send attempt.
		d.logger.Errorf("Notification %s: failed to persist sent status: %v", n.ID, err)
	}
	d.logger.Infof("Notification %s sent, email id %s", n.ID, emailID)
	return models.DispatchResult{NotificationID: n.ID, Status: models.ResultSent, EmailID: emailID}
}

// markFailed writes the terminal failed state; persistence failures are
// logged only and never change the in-memory result.
func (d *Dispatcher) markFailed(ctx context.Context, id uuid.UUID, reason string) {
	if err := d.store.MarkNotificationFailed(ctx, id, reason); err != nil {
		d.logger.Errorf("Notification %s: failed to persist failed status: %v", id, err)
	}
}

func (d *Dispatcher) pause(ctx context.Context) error {
	if d.opts.SendDelay == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d.opts.SendDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
