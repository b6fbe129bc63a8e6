package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/repository"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

func testLogger() logger.Logger {
	return logger.NewLogger("disabled", true)
}

type fakePreferenceRepo struct {
	mu    sync.Mutex
	prefs map[string]*domain.NotificationPreference
}

func newFakePreferenceRepo() *fakePreferenceRepo {
	return &fakePreferenceRepo{prefs: make(map[string]*domain.NotificationPreference)}
}

func (r *fakePreferenceRepo) GetByUserID(_ context.Context, userID string) (*domain.NotificationPreference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pref, ok := r.prefs[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *pref
	return &copied, nil
}

func (r *fakePreferenceRepo) Create(_ context.Context, pref *domain.NotificationPreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *pref
	r.prefs[pref.UserID] = &copied
	return nil
}

func (r *fakePreferenceRepo) Update(_ context.Context, pref *domain.NotificationPreference) error {
	return r.Create(nil, pref)
}

func (r *fakePreferenceRepo) ListDigestSubscribers(_ context.Context, digestType domain.DigestType) ([]*domain.NotificationPreference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var subscribers []*domain.NotificationPreference
	for _, pref := range r.prefs {
		if digestType == domain.DigestDaily && pref.DailyDigest || digestType == domain.DigestWeekly && pref.WeeklyDigest {
			copied := *pref
			subscribers = append(subscribers, &copied)
		}
	}
	return subscribers, nil
}

type fakeQueueRepo struct {
	mu      sync.Mutex
	entries []*domain.QueuedNotification
}

func (r *fakeQueueRepo) Enqueue(_ context.Context, entry *domain.QueuedNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeQueueRepo) EnqueueBatch(_ context.Context, entries []*domain.QueuedNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeQueueRepo) GetByID(_ context.Context, id string) (*domain.QueuedNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeQueueRepo) ClaimPending(ctx context.Context, now time.Time, limit int, fn func(ctx context.Context, entries []*domain.QueuedNotification) error) error {
	r.mu.Lock()
	var claimed []*domain.QueuedNotification
	for _, entry := range r.entries {
		if !entry.IsSent && !entry.Failed && !entry.ScheduledFor.After(now) {
			claimed = append(claimed, entry)
		}
	}
	// Тот же порядок выдачи, что и в SQL-реализации
	sort.SliceStable(claimed, func(i, j int) bool {
		if claimed[i].Priority != claimed[j].Priority {
			return claimed[i].Priority < claimed[j].Priority
		}
		return claimed[i].ScheduledFor.Before(claimed[j].ScheduledFor)
	})
	if len(claimed) > limit {
		claimed = claimed[:limit]
	}
	r.mu.Unlock()

	return fn(ctx, claimed)
}

func (r *fakeQueueRepo) Update(_ context.Context, _ *domain.QueuedNotification) error {
	return nil
}

func (r *fakeQueueRepo) CountPending(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, entry := range r.entries {
		if !entry.IsSent && !entry.Failed && !entry.ScheduledFor.After(now) {
			count++
		}
	}
	return count, nil
}

func (r *fakeQueueRepo) CountFailed(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, entry := range r.entries {
		if entry.Failed {
			count++
		}
	}
	return count, nil
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) ListActive(_ context.Context) ([]*domain.User, error) {
	var active []*domain.User
	for _, user := range r.users {
		if user.IsActive {
			active = append(active, user)
		}
	}
	return active, nil
}

type fakeSender struct {
	mu      sync.Mutex
	channel domain.NotificationChannel
	err     error
	sent    []*domain.QueuedNotification
}

func (s *fakeSender) Channel() domain.NotificationChannel {
	return s.channel
}

func (s *fakeSender) Send(_ context.Context, _ *domain.User, entry *domain.QueuedNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, entry)
	return nil
}

func (s *fakeSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fakeWebhookRepo struct {
	mu       sync.Mutex
	webhooks map[string]*domain.Webhook
	triggers []bool
}

func newFakeWebhookRepo() *fakeWebhookRepo {
	return &fakeWebhookRepo{webhooks: make(map[string]*domain.Webhook)}
}

func (r *fakeWebhookRepo) Create(_ context.Context, webhook *domain.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.webhooks[webhook.ID] = webhook
	return nil
}

func (r *fakeWebhookRepo) GetByID(_ context.Context, id string) (*domain.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	webhook, ok := r.webhooks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return webhook, nil
}

func (r *fakeWebhookRepo) Update(_ context.Context, webhook *domain.Webhook) error {
	return r.Create(nil, webhook)
}

func (r *fakeWebhookRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.webhooks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.webhooks, id)
	return nil
}

func (r *fakeWebhookRepo) ListActive(_ context.Context) ([]*domain.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []*domain.Webhook
	for _, webhook := range r.webhooks {
		if webhook.IsActive {
			active = append(active, webhook)
		}
	}
	return active, nil
}

func (r *fakeWebhookRepo) ListByCreator(_ context.Context, userID string) ([]*domain.Webhook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var owned []*domain.Webhook
	for _, webhook := range r.webhooks {
		if webhook.CreatedBy == userID {
			owned = append(owned, webhook)
		}
	}
	return owned, nil
}

func (r *fakeWebhookRepo) RecordTrigger(_ context.Context, _ string, _ time.Time, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, success)
	return nil
}

type fakeDeliveryRepo struct {
	mu         sync.Mutex
	deliveries []*domain.WebhookDelivery
}

func (r *fakeDeliveryRepo) Create(_ context.Context, delivery *domain.WebhookDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, delivery)
	return nil
}

func (r *fakeDeliveryRepo) ListByWebhook(_ context.Context, webhookID string, _, _ int) ([]*domain.WebhookDelivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.WebhookDelivery
	for _, delivery := range r.deliveries {
		if delivery.WebhookID == webhookID {
			matched = append(matched, delivery)
		}
	}
	return matched, nil
}

type fakeReminderRepo struct {
	mu        sync.Mutex
	reminders map[string]*domain.SmartReminder
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{reminders: make(map[string]*domain.SmartReminder)}
}

func (r *fakeReminderRepo) Create(_ context.Context, reminder *domain.SmartReminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *reminder
	r.reminders[reminder.ID] = &stored
	return nil
}

func (r *fakeReminderRepo) GetByID(_ context.Context, id string) (*domain.SmartReminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reminder, ok := r.reminders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	found := *reminder
	return &found, nil
}

func (r *fakeReminderRepo) Update(_ context.Context, reminder *domain.SmartReminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reminders[reminder.ID]; !ok {
		return domain.ErrNotFound
	}
	stored := *reminder
	r.reminders[reminder.ID] = &stored
	return nil
}

func (r *fakeReminderRepo) GetUserReminders(_ context.Context, userID string, filter repository.ReminderFilter) ([]*domain.SmartReminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.SmartReminder
	for _, reminder := range r.reminders {
		if reminder.UserID != userID {
			continue
		}
		if filter.TaskID != nil && reminder.TaskID != *filter.TaskID {
			continue
		}
		if filter.IsSent != nil && reminder.IsSent != *filter.IsSent {
			continue
		}
		found := *reminder
		matched = append(matched, &found)
	}
	return matched, nil
}

func (r *fakeReminderRepo) CountByTask(_ context.Context, taskID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, reminder := range r.reminders {
		if reminder.TaskID == taskID {
			count++
		}
	}
	return count, nil
}

func (r *fakeReminderRepo) ClaimDue(ctx context.Context, now time.Time, limit int, fn func(ctx context.Context, reminders []*domain.SmartReminder) error) error {
	r.mu.Lock()
	var due []*domain.SmartReminder
	for _, reminder := range r.reminders {
		if !reminder.IsSent && reminder.IsDue(now) && len(due) < limit {
			due = append(due, reminder)
		}
	}
	r.mu.Unlock()
	return fn(ctx, due)
}

func (r *fakeReminderRepo) ListSentRecurring(_ context.Context, limit int) ([]*domain.SmartReminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var fired []*domain.SmartReminder
	for _, reminder := range r.reminders {
		if reminder.IsSent && reminder.IsRecurring && len(fired) < limit {
			found := *reminder
			fired = append(fired, &found)
		}
	}
	return fired, nil
}

func (r *fakeReminderRepo) RolloverRecurring(_ context.Context, fired *domain.SmartReminder, next *domain.SmartReminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.reminders[fired.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.IsRecurring = false
	inserted := *next
	r.reminders[next.ID] = &inserted
	return nil
}

type fakeTaskRepo struct {
	tasks   map[string]*domain.Task
	overdue []*domain.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*domain.Task)}
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

func (r *fakeTaskRepo) GetOverdue(_ context.Context, _ time.Time) ([]*domain.Task, error) {
	return r.overdue, nil
}

func (r *fakeTaskRepo) CountCreatedInWindow(_ context.Context, _ string, _, _ time.Time) (int, error) {
	return 0, nil
}

func (r *fakeTaskRepo) CountCompletedInWindow(_ context.Context, _ string, _, _ time.Time) (int, error) {
	return 0, nil
}

func (r *fakeTaskRepo) CountOverdue(_ context.Context, _ string, _ time.Time) (int, error) {
	return 0, nil
}

func (r *fakeTaskRepo) CountCommentsReceived(_ context.Context, _ string, _, _ time.Time) (int, error) {
	return 0, nil
}

func (r *fakeTaskRepo) CountMentions(_ context.Context, _ string, _, _ time.Time) (int, error) {
	return 0, nil
}

func (r *fakeTaskRepo) AvgCompletionHours(_ context.Context, _ string, _, _ time.Time) (float64, error) {
	return 0, nil
}

func (r *fakeTaskRepo) TopProjects(_ context.Context, _ string, _ int) ([]domain.ProjectTaskCount, error) {
	return nil, nil
}

var (
	_ repository.ReminderRepository        = (*fakeReminderRepo)(nil)
	_ repository.TaskRepository            = (*fakeTaskRepo)(nil)
	_ repository.PreferenceRepository      = (*fakePreferenceRepo)(nil)
	_ repository.QueueRepository           = (*fakeQueueRepo)(nil)
	_ repository.UserRepository            = (*fakeUserRepo)(nil)
	_ repository.WebhookRepository         = (*fakeWebhookRepo)(nil)
	_ repository.WebhookDeliveryRepository = (*fakeDeliveryRepo)(nil)
	_ ChannelSender                        = (*fakeSender)(nil)
)
