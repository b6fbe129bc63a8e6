package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/pkg/config"
)

func newTestDispatcher(t *testing.T, queueRepo *fakeQueueRepo, userRepo *fakeUserRepo, prefRepo *fakePreferenceRepo, senders ...ChannelSender) *DispatcherService {
	t.Helper()

	prefSvc := NewPreferenceService(prefRepo, nil, testLogger())
	cfg := &config.DispatcherConfig{
		BatchSize:      100,
		MaxRetries:     3,
		WorkerPoolSize: 4,
	}

	return NewDispatcherService(queueRepo, userRepo, prefSvc, senders, cfg, testLogger())
}

func TestEnqueueForUserFansOutChannels(t *testing.T) {
	queueRepo := &fakeQueueRepo{}
	prefRepo := newFakePreferenceRepo()
	dispatcher := newTestDispatcher(t, queueRepo, &fakeUserRepo{}, prefRepo)

	// Настройки создаются лениво: web и email включены по умолчанию
	data := map[string]string{"task_id": "task-1"}
	err := dispatcher.EnqueueForUser(context.Background(), "user-1", domain.NotificationTypeTaskAssigned, "Заголовок", "Текст", data, domain.PriorityDefault, time.Now())
	require.NoError(t, err)

	require.Len(t, queueRepo.entries, 2)
	channels := map[domain.NotificationChannel]bool{}
	for _, entry := range queueRepo.entries {
		channels[entry.Channel] = true
		assert.Equal(t, "user-1", entry.UserID)
		assert.Equal(t, string(domain.NotificationTypeTaskAssigned), entry.NotificationType)
		assert.Equal(t, "task-1", entry.Data["task_id"])
		assert.NotEmpty(t, entry.ID)
	}
	assert.True(t, channels[domain.ChannelWeb])
	assert.True(t, channels[domain.ChannelEmail])
}

func TestEnqueueForUserClampsPriority(t *testing.T) {
	queueRepo := &fakeQueueRepo{}
	dispatcher := newTestDispatcher(t, queueRepo, &fakeUserRepo{}, newFakePreferenceRepo())

	err := dispatcher.EnqueueForUser(context.Background(), "user-1", domain.NotificationTypeTaskAssigned, "t", "m", nil, 42, time.Now())
	require.NoError(t, err)

	require.NotEmpty(t, queueRepo.entries)
	for _, entry := range queueRepo.entries {
		assert.Equal(t, domain.PriorityDefault, entry.Priority)
	}
}

func TestDrainDeliversPending(t *testing.T) {
	now := time.Now()
	queueRepo := &fakeQueueRepo{entries: []*domain.QueuedNotification{{
		ID:               "entry-1",
		UserID:           "user-1",
		NotificationType: "task_assigned",
		Channel:          domain.ChannelWeb,
		Priority:         domain.PriorityDefault,
		ScheduledFor:     now.Add(-time.Minute),
	}}}
	userRepo := &fakeUserRepo{users: map[string]*domain.User{
		"user-1": {ID: "user-1", Email: "u@example.com", IsActive: true},
	}}
	sender := &fakeSender{channel: domain.ChannelWeb}

	dispatcher := newTestDispatcher(t, queueRepo, userRepo, newFakePreferenceRepo(), sender)

	processed, err := dispatcher.Drain(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, sender.sentCount())

	entry := queueRepo.entries[0]
	assert.True(t, entry.IsSent)
	assert.False(t, entry.Failed)
}

func TestDrainDeliversByPriorityOrder(t *testing.T) {
	now := time.Now()
	entry := func(id string, priority int, offset time.Duration) *domain.QueuedNotification {
		return &domain.QueuedNotification{
			ID:               id,
			UserID:           "user-1",
			NotificationType: "task_assigned",
			Channel:          domain.ChannelWeb,
			Priority:         priority,
			ScheduledFor:     now.Add(offset),
		}
	}
	queueRepo := &fakeQueueRepo{entries: []*domain.QueuedNotification{
		entry("entry-1", domain.PriorityDefault, -3*time.Minute),
		entry("entry-2", domain.PriorityHighest, -time.Minute),
		entry("entry-3", domain.PriorityDefault, -2*time.Minute),
	}}
	userRepo := &fakeUserRepo{users: map[string]*domain.User{
		"user-1": {ID: "user-1", Email: "u@example.com", IsActive: true},
	}}
	sender := &fakeSender{channel: domain.ChannelWeb}

	prefSvc := NewPreferenceService(newFakePreferenceRepo(), nil, testLogger())
	cfg := &config.DispatcherConfig{
		BatchSize:      100,
		MaxRetries:     3,
		WorkerPoolSize: 1,
	}
	dispatcher := NewDispatcherService(queueRepo, userRepo, prefSvc, []ChannelSender{sender}, cfg, testLogger())

	processed, err := dispatcher.Drain(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, processed)

	// Срочные раньше обычных, при равном приоритете решает scheduled_for
	require.Len(t, sender.sent, 3)
	assert.Equal(t, "entry-2", sender.sent[0].ID)
	assert.Equal(t, "entry-1", sender.sent[1].ID)
	assert.Equal(t, "entry-3", sender.sent[2].ID)
}

func TestDrainSuppressedByPreferences(t *testing.T) {
	now := time.Now()
	queueRepo := &fakeQueueRepo{entries: []*domain.QueuedNotification{{
		ID:               "entry-1",
		UserID:           "user-1",
		NotificationType: "task_assigned",
		Channel:          domain.ChannelWeb,
		ScheduledFor:     now.Add(-time.Minute),
	}}}

	prefRepo := newFakePreferenceRepo()
	pref := domain.DefaultPreference("user-1")
	pref.TaskAssigned = false
	require.NoError(t, prefRepo.Create(context.Background(), pref))

	sender := &fakeSender{channel: domain.ChannelWeb}
	dispatcher := newTestDispatcher(t, queueRepo, &fakeUserRepo{}, prefRepo, sender)

	_, err := dispatcher.Drain(context.Background(), now)
	require.NoError(t, err)

	// Подавленная запись закрывается как доставленная, канал не вызывается
	entry := queueRepo.entries[0]
	assert.True(t, entry.IsSent)
	assert.False(t, entry.Failed)
	assert.Equal(t, 0, sender.sentCount())
}

func TestDrainNoSenderForChannel(t *testing.T) {
	now := time.Now()
	queueRepo := &fakeQueueRepo{entries: []*domain.QueuedNotification{{
		ID:               "entry-1",
		UserID:           "user-1",
		NotificationType: "task_assigned",
		Channel:          domain.ChannelSlack,
		ScheduledFor:     now.Add(-time.Minute),
	}}}

	prefRepo := newFakePreferenceRepo()
	pref := domain.DefaultPreference("user-1")
	pref.Channels = []domain.NotificationChannel{domain.ChannelSlack}
	require.NoError(t, prefRepo.Create(context.Background(), pref))

	dispatcher := newTestDispatcher(t, queueRepo, &fakeUserRepo{}, prefRepo)

	_, err := dispatcher.Drain(context.Background(), now)
	require.NoError(t, err)

	entry := queueRepo.entries[0]
	assert.True(t, entry.Failed)
	assert.False(t, entry.IsSent)
	assert.Contains(t, entry.FailureReason, "no sender")
}

func TestDrainRetriesWithBackoff(t *testing.T) {
	now := time.Now()
	entry := &domain.QueuedNotification{
		ID:               "entry-1",
		UserID:           "user-1",
		NotificationType: "task_assigned",
		Channel:          domain.ChannelWeb,
		ScheduledFor:     now.Add(-time.Minute),
	}
	queueRepo := &fakeQueueRepo{entries: []*domain.QueuedNotification{entry}}
	userRepo := &fakeUserRepo{users: map[string]*domain.User{
		"user-1": {ID: "user-1", IsActive: true},
	}}
	sender := &fakeSender{channel: domain.ChannelWeb, err: errors.New("gateway unavailable")}

	dispatcher := newTestDispatcher(t, queueRepo, userRepo, newFakePreferenceRepo(), sender)

	_, err := dispatcher.Drain(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 1, entry.RetryCount)
	assert.False(t, entry.Failed)
	assert.Equal(t, now.Add(5*time.Minute), entry.ScheduledFor, "повторная попытка отодвигается")

	// После исчерпания попыток запись терминальна
	entry.ScheduledFor = now.Add(-time.Minute)
	_, err = dispatcher.Drain(context.Background(), now)
	require.NoError(t, err)
	entry.ScheduledFor = now.Add(-time.Minute)
	_, err = dispatcher.Drain(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 3, entry.RetryCount)
	assert.True(t, entry.Failed)
	assert.Equal(t, "gateway unavailable", entry.FailureReason)
}

func TestEventRecipients(t *testing.T) {
	event := &domain.DomainEvent{
		Type: domain.EventTaskUpdated,
		Data: map[string]interface{}{
			"recipients":  []interface{}{"user-1", "user-2", "user-1"},
			"assignee_id": "user-3",
			"actor_id":    "user-2",
		},
	}

	recipients := eventRecipients(event)

	// Дубликаты схлопываются, инициатор исключается
	assert.ElementsMatch(t, []string{"user-1", "user-3"}, recipients)
}

func TestProcessDomainEventAttachesEntityRefs(t *testing.T) {
	queueRepo := &fakeQueueRepo{}
	dispatcher := newTestDispatcher(t, queueRepo, &fakeUserRepo{}, newFakePreferenceRepo())

	event := &domain.DomainEvent{
		ID:   "evt-1",
		Type: domain.EventTaskUpdated,
		Data: map[string]interface{}{
			"recipients": []interface{}{"user-1"},
			"task_id":    "task-7",
			"project_id": "project-3",
			"title":      "Отчет",
		},
	}

	err := dispatcher.ProcessDomainEvent(context.Background(), event)
	require.NoError(t, err)

	require.NotEmpty(t, queueRepo.entries)
	for _, entry := range queueRepo.entries {
		assert.Equal(t, "task-7", entry.Data["task_id"])
		assert.Equal(t, "project-3", entry.Data["project_id"])
		assert.NotContains(t, entry.Data, "comment_id")
	}
}

func TestEventRecipientsEmpty(t *testing.T) {
	event := &domain.DomainEvent{
		Type: domain.EventTaskUpdated,
		Data: map[string]interface{}{"title": "без получателей"},
	}

	assert.Empty(t, eventRecipients(event))
}
