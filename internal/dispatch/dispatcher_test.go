package dispatch

import (
	"context"
	"errors"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reminder-service/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeStore struct {
	notifications []models.Notification
	fetchErr      error
	templates     map[string]models.Template
	recipients    map[string]models.Recipient
	sent          []uuid.UUID
	failed        map[uuid.UUID]string
	markSentErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		templates:  map[string]models.Template{},
		recipients: map[string]models.Recipient{},
		failed:     map[uuid.UUID]string{},
	}
}

func (s *fakeStore) FetchDueNotifications(_ context.Context, _ time.Time, _ int) ([]models.Notification, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.notifications, nil
}

func (s *fakeStore) GetActiveTemplate(_ context.Context, key string) (models.Template, error) {
	t, ok := s.templates[key]
	if !ok {
		return models.Template{}, errors.New("template not found")
	}
	return t, nil
}

func (s *fakeStore) GetRecipient(_ context.Context, userID string) (models.Recipient, error) {
	r, ok := s.recipients[userID]
	if !ok {
		return models.Recipient{}, errors.New("no profile")
	}
	return r, nil
}

func (s *fakeStore) MarkNotificationSent(_ context.Context, id uuid.UUID, _ time.Time) error {
	s.sent = append(s.sent, id)
	return s.markSentErr
}

func (s *fakeStore) MarkNotificationFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	s.failed[id] = errMsg
	return nil
}

type fakeResolver struct {
	contexts map[uuid.UUID]models.TaskContext
}

func (r *fakeResolver) Resolve(_ context.Context, n models.Notification) models.TaskContext {
	if r.contexts == nil {
		return models.TaskContext{}
	}
	return r.contexts[n.ID]
}

type sendCall struct {
	to      []string
	subject string
	html    string
	text    string
	at      time.Time
}

type fakeSender struct {
	calls  []sendCall
	errFor map[string]error
	onSend func()
}

func (s *fakeSender) Send(_ context.Context, to []string, subject, html, text string) (string, error) {
	if s.onSend != nil {
		s.onSend()
	}
	s.calls = append(s.calls, sendCall{to: to, subject: subject, html: html, text: text, at: time.Now()})
	if err, ok := s.errFor[to[0]]; ok {
		return "", err
	}
	return "email-" + strconv.Itoa(len(s.calls)), nil
}

func pendingNotification(userID uuid.UUID, key string) models.Notification {
	return models.Notification{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       "Regar plantas",
		Message:     "Hora de regar suas plantas",
		Status:      models.StatusPending,
		ScheduledAt: time.Now().Add(-time.Hour),
		TemplateKey: key,
	}
}

func reminderTemplate() models.Template {
	return models.Template{
		TemplateKey: models.TemplateTaskReminder,
		Subject:     "Lembrete: {{task_title}}",
		Body:        "<p>Olá {{user_name}}, {{task_description}}.</p>",
		Active:      true,
	}
}

func TestRun_EmptyBatch(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	d := New(store, &fakeResolver{}, sender, testLogger(), Options{})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 0, summary.Sent)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, float64(100), summary.SuccessRate)
	assert.Empty(t, sender.calls)
}

func TestRun_FetchFailureIsFatal(t *testing.T) {
	store := newFakeStore()
	store.fetchErr = errors.New("connection refused")
	sender := &fakeSender{}
	d := New(store, &fakeResolver{}, sender, testLogger(), Options{})

	_, err := d.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, sender.calls)
	assert.Empty(t, store.failed)
}

func TestRun_SingleNotificationSent(t *testing.T) {
	userID := uuid.New()
	n := pendingNotification(userID, models.TemplateTaskReminder)

	store := newFakeStore()
	store.notifications = []models.Notification{n}
	store.templates[models.TemplateTaskReminder] = reminderTemplate()
	store.recipients[userID.String()] = models.Recipient{Name: "Maria", Email: "maria@example.com"}

	sender := &fakeSender{}
	d := New(store, &fakeResolver{}, sender, testLogger(), Options{AppURL: "https://app.example.com"})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, float64(100), summary.SuccessRate)

	require.Len(t, sender.calls, 1)
	call := sender.calls[0]
	assert.Equal(t, []string{"maria@example.com"}, call.to)
	assert.Equal(t, "Lembrete: Regar plantas", call.subject)
	assert.Equal(t, "<p>Olá Maria, Hora de regar suas plantas.</p>", call.html)
	assert.Equal(t, "Regar plantas\n\nHora de regar suas plantas", call.text)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, n.ID, summary.Results[0].NotificationID)
	assert.Equal(t, models.ResultSent, summary.Results[0].Status)
	assert.Equal(t, "email-1", summary.Results[0].EmailID)
	assert.Equal(t, []uuid.UUID{n.ID}, store.sent)
}

func TestRun_SecondTemplateMissing(t *testing.T) {
	userID := uuid.New()
	first := pendingNotification(userID, models.TemplateTaskReminder)
	second := pendingNotification(userID, "missing_key")

	store := newFakeStore()
	store.notifications = []models.Notification{first, second}
	store.templates[models.TemplateTaskReminder] = reminderTemplate()
	store.recipients[userID.String()] = models.Recipient{Email: "maria@example.com"}

	sender := &fakeSender{}
	d := New(store, &fakeResolver{}, sender, testLogger(), Options{})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, float64(50), summary.SuccessRate)

	require.Len(t, summary.Results, 2)
	assert.Equal(t, first.ID, summary.Results[0].NotificationID)
	assert.Equal(t, models.ResultSent, summary.Results[0].Status)
	assert.Equal(t, second.ID, summary.Results[1].NotificationID)
	assert.Equal(t, models.ResultFailed, summary.Results[1].Status)
	assert.Equal(t, "template not found", summary.Results[1].Error)
	assert.Equal(t, "template not found", store.failed[second.ID])
	assert.Len(t, sender.calls, 1)
}

func TestRun_CompletedTaskSkippedRegardlessOfTemplate(t *testing.T) {
	userID := uuid.New()
	n := pendingNotification(userID, models.TemplateTaskReminder)

	store := newFakeStore()
	store.notifications = []models.Notification{n}
	// no templates and no recipient on purpose: the skip must win first

	resolver := &fakeResolver{contexts: map[uuid.UUID]models.TaskContext{
		n.ID: {IsCompleted: true},
	}}
	sender := &fakeSender{}
	d := New(store, resolver, sender, testLogger(), Options{})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, models.ResultSkippedCompleted, summary.Results[0].Status)
	assert.Equal(t, "task already completed", summary.Results[0].Error)
	assert.Equal(t, "task already completed", store.failed[n.ID])
	assert.Empty(t, sender.calls)
}

func TestRun_RecipientMissing(t *testing.T) {
	n := pendingNotification(uuid.New(), models.TemplateTaskReminder)

	store := newFakeStore()
	store.notifications = []models.Notification{n}
	store.templates[models.TemplateTaskReminder] = reminderTemplate()

	sender := &fakeSender{}
	d := New(store, &fakeResolver{}, sender, testLogger(), Options{})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, models.ResultFailed, summary.Results[0].Status)
	assert.Equal(t, "recipient email not found", summary.Results[0].Error)
	assert.Empty(t, sender.calls)
}

func TestRun_SendFailure(t *testing.T) {
	userID := uuid.New()
	n := pendingNotification(userID, models.TemplateTaskReminder)

	store := newFakeStore()
	store.notifications = []models.Notification{n}
	store.templates[models.TemplateTaskReminder] = reminderTemplate()
	store.recipients[userID.String()] = models.Recipient{Email: "maria@example.com"}

	sender := &fakeSender{errFor: map[string]error{"maria@example.com": errors.New("provider timeout")}}
	d := New(store, &fakeResolver{}, sender, testLogger(), Options{})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, float64(0), summary.SuccessRate)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, models.ResultFailed, summary.Results[0].Status)
	assert.Equal(t, "provider timeout", summary.Results[0].Error)
	assert.Equal(t, "provider timeout", store.failed[n.ID])
	assert.Empty(t, store.sent)
}

func TestRun_EscalatesOverdueReminder(t *testing.T) {
	userID := uuid.New()
	n := pendingNotification(userID, models.TemplateTaskReminder)
	n.ScheduledAt = time.Now().Add(-6 * 24 * time.Hour)

	store := newFakeStore()
	store.notifications = []models.Notification{n}
	store.templates[models.TemplateTaskReminder] = reminderTemplate()
	store.templates[models.TemplateTaskOverdue] = models.Template{
		TemplateKey: models.TemplateTaskOverdue,
		Subject:     "Atrasada: {{task_title}} ({{days_overdue}} dias)",
		Body:        "<p>{{task_title}} está atrasada há {{days_overdue}} dias.</p>",
		Active:      true,
	}
	store.recipients[userID.String()] = models.Recipient{Email: "maria@example.com"}

	sender := &fakeSender{}
	d := New(store, &fakeResolver{}, sender, testLogger(), Options{})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)

	require.Len(t, sender.calls, 1)
	assert.Equal(t, "Atrasada: Regar plantas (6 dias)", sender.calls[0].subject)
}

func TestRun_EscalationFallsBackWhenOverdueTemplateMissing(t *testing.T) {
	userID := uuid.New()
	n := pendingNotification(userID, models.TemplateTaskReminder)
	n.ScheduledAt = time.Now().Add(-10 * 24 * time.Hour)

	store := newFakeStore()
	store.notifications = []models.Notification{n}
	store.templates[models.TemplateTaskReminder] = reminderTemplate()
	store.recipients[userID.String()] = models.Recipient{Email: "maria@example.com"}

	sender := &fakeSender{}
	d := New(store, &fakeResolver{}, sender, testLogger(), Options{})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	require.Len(t, sender.calls, 1)
	assert.Equal(t, "Lembrete: Regar plantas", sender.calls[0].subject)
}

func TestRun_StatusWriteFailureKeepsResult(t *testing.T) {
	userID := uuid.New()
	n := pendingNotification(userID, models.TemplateTaskReminder)

	store := newFakeStore()
	store.notifications = []models.Notification{n}
	store.templates[models.TemplateTaskReminder] = reminderTemplate()
	store.recipients[userID.String()] = models.Recipient{Email: "maria@example.com"}
	store.markSentErr = errors.New("write timeout")

	sender := &fakeSender{}
	d := New(store, &fakeResolver{}, sender, testLogger(), Options{})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, models.ResultSent, summary.Results[0].Status)
}

func TestRun_CancellationReturnsPartialSummary(t *testing.T) {
	userID := uuid.New()
	notifications := []models.Notification{
		pendingNotification(userID, models.TemplateTaskReminder),
		pendingNotification(userID, models.TemplateTaskReminder),
		pendingNotification(userID, models.TemplateTaskReminder),
	}

	store := newFakeStore()
	store.notifications = notifications
	store.templates[models.TemplateTaskReminder] = reminderTemplate()
	store.recipients[userID.String()] = models.Recipient{Email: "maria@example.com"}

	ctx, cancel := context.WithCancel(context.Background())
	sender := &fakeSender{onSend: cancel}
	d := New(store, &fakeResolver{}, sender, testLogger(), Options{})

	summary, err := d.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Sent)
	assert.Len(t, sender.calls, 1)
}

func TestRun_PausesBetweenItemsButNotAfterLast(t *testing.T) {
	userID := uuid.New()

	store := newFakeStore()
	store.templates[models.TemplateTaskReminder] = reminderTemplate()
	store.recipients[userID.String()] = models.Recipient{Email: "maria@example.com"}

	t.Run("TwoItemsWaitOnce", func(t *testing.T) {
		store.notifications = []models.Notification{
			pendingNotification(userID, models.TemplateTaskReminder),
			pendingNotification(userID, models.TemplateTaskReminder),
		}
		sender := &fakeSender{}
		d := New(store, &fakeResolver{}, sender, testLogger(), Options{SendDelay: 50 * time.Millisecond})

		start := time.Now()
		summary, err := d.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, summary.Sent)
		require.Len(t, sender.calls, 2)
		assert.GreaterOrEqual(t, sender.calls[1].at.Sub(sender.calls[0].at), 50*time.Millisecond)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("SingleItemNoTrailingWait", func(t *testing.T) {
		store.notifications = []models.Notification{
			pendingNotification(userID, models.TemplateTaskReminder),
		}
		sender := &fakeSender{}
		d := New(store, &fakeResolver{}, sender, testLogger(), Options{SendDelay: 200 * time.Millisecond})

		start := time.Now()
		summary, err := d.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Sent)
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})
}

func TestRun_SuccessRateMath(t *testing.T) {
	userID := uuid.New()
	notifications := []models.Notification{
		pendingNotification(userID, models.TemplateTaskReminder),
		pendingNotification(userID, models.TemplateTaskReminder),
		pendingNotification(userID, models.TemplateTaskReminder),
		pendingNotification(userID, "missing_key"),
	}

	store := newFakeStore()
	store.notifications = notifications
	store.templates[models.TemplateTaskReminder] = reminderTemplate()
	store.recipients[userID.String()] = models.Recipient{Email: "maria@example.com"}

	sender := &fakeSender{}
	d := New(store, &fakeResolver{}, sender, testLogger(), Options{})

	summary, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 3, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, float64(75), summary.SuccessRate)
}
