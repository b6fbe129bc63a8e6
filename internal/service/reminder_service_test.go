package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/repository"
)

func newTestReminderService(t *testing.T, reminderRepo *fakeReminderRepo, taskRepo *fakeTaskRepo, queueRepo *fakeQueueRepo) *ReminderService {
	t.Helper()

	dispatcher := newTestDispatcher(t, queueRepo, &fakeUserRepo{}, newFakePreferenceRepo())
	return NewReminderService(reminderRepo, taskRepo, dispatcher, testLogger())
}

func remFilter(taskID string) repository.ReminderFilter {
	return repository.ReminderFilter{TaskID: &taskID, Limit: 100}
}

func taskWithDue(id, assignee string, due time.Time) *domain.Task {
	return &domain.Task{
		ID:         id,
		Title:      "Подготовить отчет",
		ProjectID:  "project-1",
		Status:     domain.TaskStatusInProgress,
		AssigneeID: &assignee,
		CreatedBy:  "user-2",
		DueDate:    &due,
	}
}

func TestCreateSmartRemindersFullChain(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)

	reminderRepo := newFakeReminderRepo()
	taskRepo := newFakeTaskRepo()
	taskRepo.tasks["task-1"] = taskWithDue("task-1", "user-1", due)

	svc := newTestReminderService(t, reminderRepo, taskRepo, &fakeQueueRepo{})

	created, err := svc.CreateSmartReminders(context.Background(), "task-1", now)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	taskID := "task-1"
	reminders, err := reminderRepo.GetUserReminders(context.Background(), "user-1", remFilter(taskID))
	require.NoError(t, err)
	require.Len(t, reminders, 3)

	remindAts := make([]time.Time, 0, len(reminders))
	for _, reminder := range reminders {
		assert.NotEmpty(t, reminder.ID)
		assert.Equal(t, "user-1", reminder.UserID)
		remindAts = append(remindAts, reminder.RemindAt)
	}
	assert.Contains(t, remindAts, due.Add(-24*time.Hour))
	assert.Contains(t, remindAts, due.Add(-time.Hour))
	assert.Contains(t, remindAts, due)
}

func TestCreateSmartRemindersSkipsPastPoints(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	// До срока меньше суток: точка "за сутки" уже в прошлом
	due := now.Add(5 * time.Hour)

	reminderRepo := newFakeReminderRepo()
	taskRepo := newFakeTaskRepo()
	taskRepo.tasks["task-1"] = taskWithDue("task-1", "user-1", due)

	svc := newTestReminderService(t, reminderRepo, taskRepo, &fakeQueueRepo{})

	created, err := svc.CreateSmartReminders(context.Background(), "task-1", now)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}

func TestCreateSmartRemindersIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)

	reminderRepo := newFakeReminderRepo()
	taskRepo := newFakeTaskRepo()
	taskRepo.tasks["task-1"] = taskWithDue("task-1", "user-1", due)

	svc := newTestReminderService(t, reminderRepo, taskRepo, &fakeQueueRepo{})

	created, err := svc.CreateSmartReminders(context.Background(), "task-1", now)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	// Повторный вызов не плодит дубликаты
	created, err = svc.CreateSmartReminders(context.Background(), "task-1", now)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestCreateSmartRemindersWithoutDueOrAssignee(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	reminderRepo := newFakeReminderRepo()
	taskRepo := newFakeTaskRepo()

	noDue := taskWithDue("task-1", "user-1", now.Add(time.Hour))
	noDue.DueDate = nil
	taskRepo.tasks["task-1"] = noDue

	noAssignee := taskWithDue("task-2", "user-1", now.Add(time.Hour))
	noAssignee.AssigneeID = nil
	taskRepo.tasks["task-2"] = noAssignee

	svc := newTestReminderService(t, reminderRepo, taskRepo, &fakeQueueRepo{})

	created, err := svc.CreateSmartReminders(context.Background(), "task-1", now)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	created, err = svc.CreateSmartReminders(context.Background(), "task-2", now)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	_, err = svc.CreateSmartReminders(context.Background(), "missing", now)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSnoozeReminderChecksOwnerAndStatus(t *testing.T) {
	now := time.Now().UTC()
	reminderRepo := newFakeReminderRepo()
	require.NoError(t, reminderRepo.Create(context.Background(), &domain.SmartReminder{
		ID:       "rem-1",
		TaskID:   "task-1",
		UserID:   "user-1",
		RemindAt: now.Add(time.Hour),
	}))
	require.NoError(t, reminderRepo.Create(context.Background(), &domain.SmartReminder{
		ID:       "rem-2",
		TaskID:   "task-1",
		UserID:   "user-1",
		RemindAt: now.Add(-time.Hour),
		IsSent:   true,
	}))

	svc := newTestReminderService(t, reminderRepo, newFakeTaskRepo(), &fakeQueueRepo{})

	// Чужое напоминание
	_, err := svc.SnoozeReminder(context.Background(), "rem-1", "user-2", 15)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Уже отправленное
	_, err = svc.SnoozeReminder(context.Background(), "rem-2", "user-1", 15)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Несуществующее
	_, err = svc.SnoozeReminder(context.Background(), "missing", "user-1", 15)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	resp, err := svc.SnoozeReminder(context.Background(), "rem-1", "user-1", 15)
	require.NoError(t, err)
	assert.True(t, resp.IsSnoozed)
	require.NotNil(t, resp.SnoozeUntil)

	stored, err := reminderRepo.GetByID(context.Background(), "rem-1")
	require.NoError(t, err)
	assert.True(t, stored.IsSnoozed)
}

func TestSweepDueEnqueuesAndMarksSent(t *testing.T) {
	now := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	due := now.Add(30 * time.Minute)

	reminderRepo := newFakeReminderRepo()
	taskRepo := newFakeTaskRepo()
	taskRepo.tasks["task-1"] = taskWithDue("task-1", "user-1", due)

	minutes := 60
	require.NoError(t, reminderRepo.Create(context.Background(), &domain.SmartReminder{
		ID:            "rem-due",
		TaskID:        "task-1",
		UserID:        "user-1",
		ReminderType:  domain.ReminderBeforeDue,
		RemindAt:      now.Add(-time.Minute),
		MinutesBefore: &minutes,
	}))
	require.NoError(t, reminderRepo.Create(context.Background(), &domain.SmartReminder{
		ID:           "rem-future",
		TaskID:       "task-1",
		UserID:       "user-1",
		ReminderType: domain.ReminderAtDue,
		RemindAt:     now.Add(time.Hour),
	}))

	queueRepo := &fakeQueueRepo{}
	svc := newTestReminderService(t, reminderRepo, taskRepo, queueRepo)

	processed, err := svc.SweepDue(context.Background(), now, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	// Диспетчер разворачивает уведомление по каналам web и email
	require.Len(t, queueRepo.entries, 2)
	for _, entry := range queueRepo.entries {
		assert.Equal(t, "user-1", entry.UserID)
		assert.Equal(t, string(domain.NotificationTypeTaskDueSoon), entry.NotificationType)
		assert.Contains(t, entry.Message, "Подготовить отчет")
	}

	stored, err := reminderRepo.GetByID(context.Background(), "rem-due")
	require.NoError(t, err)
	assert.True(t, stored.IsSent)
	require.NotNil(t, stored.SentAt)

	// Повторный проход ничего не находит
	processed, err = svc.SweepDue(context.Background(), now, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}

func TestSweepOverdueNotifiesAssignees(t *testing.T) {
	now := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

	taskRepo := newFakeTaskRepo()
	overdue := taskWithDue("task-1", "user-1", now.Add(-2*time.Hour))
	unassigned := taskWithDue("task-2", "user-1", now.Add(-time.Hour))
	unassigned.AssigneeID = nil
	taskRepo.overdue = []*domain.Task{overdue, unassigned}

	queueRepo := &fakeQueueRepo{}
	svc := newTestReminderService(t, newFakeReminderRepo(), taskRepo, queueRepo)

	notified, err := svc.SweepOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, notified)

	require.NotEmpty(t, queueRepo.entries)
	for _, entry := range queueRepo.entries {
		assert.Equal(t, string(domain.NotificationTypeTaskOverdue), entry.NotificationType)
		assert.Equal(t, domain.PriorityHighest+1, entry.Priority)
	}
}

func TestRolloverRecurringCreatesNextOccurrence(t *testing.T) {
	now := time.Date(2026, 3, 12, 12, 0, 0, 0, time.UTC)
	sentAt := now.Add(-2 * time.Hour)

	rule, err := json.Marshal(domain.RecurrenceRule{Frequency: domain.RecurrenceDaily, Interval: 1})
	require.NoError(t, err)

	reminderRepo := newFakeReminderRepo()
	require.NoError(t, reminderRepo.Create(context.Background(), &domain.SmartReminder{
		ID:             "rem-rec",
		TaskID:         "task-1",
		UserID:         "user-1",
		ReminderType:   domain.ReminderBeforeDue,
		RemindAt:       now.Add(-2 * time.Hour),
		IsSent:         true,
		SentAt:         &sentAt,
		IsRecurring:    true,
		RecurrenceRule: rule,
	}))

	svc := newTestReminderService(t, reminderRepo, newFakeTaskRepo(), &fakeQueueRepo{})

	rolled, err := svc.RolloverRecurring(context.Background(), now, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, rolled)

	fired, err := reminderRepo.GetByID(context.Background(), "rem-rec")
	require.NoError(t, err)
	assert.False(t, fired.IsRecurring)

	reminders, err := reminderRepo.GetUserReminders(context.Background(), "user-1", remFilter("task-1"))
	require.NoError(t, err)
	require.Len(t, reminders, 2)

	var next *domain.SmartReminder
	for _, reminder := range reminders {
		if reminder.ID != "rem-rec" {
			next = reminder
		}
	}
	require.NotNil(t, next)
	assert.False(t, next.IsSent)
	assert.True(t, next.IsRecurring)
	assert.True(t, next.RemindAt.After(now))

	// Сработавшее напоминание больше не подхватывается
	rolled, err = svc.RolloverRecurring(context.Background(), now, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, rolled)
}
