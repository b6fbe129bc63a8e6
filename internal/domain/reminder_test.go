package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderIsDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	reminder := &SmartReminder{RemindAt: now.Add(-time.Minute)}
	assert.True(t, reminder.IsDue(now))

	reminder.RemindAt = now
	assert.True(t, reminder.IsDue(now), "момент срабатывания включается")

	reminder.RemindAt = now.Add(time.Minute)
	assert.False(t, reminder.IsDue(now))
}

func TestReminderIsDueAfterSent(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	reminder := &SmartReminder{RemindAt: now.Add(-time.Hour), IsSent: true}
	assert.False(t, reminder.IsDue(now))

	// Повторяющееся напоминание остается кандидатом после отправки
	reminder.IsRecurring = true
	assert.True(t, reminder.IsDue(now))
}

func TestReminderSnooze(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	reminder := &SmartReminder{RemindAt: now.Add(-time.Hour)}

	reminder.Snooze(now, 15)
	assert.True(t, reminder.IsSnoozed)
	require.NotNil(t, reminder.SnoozeUntil)
	assert.Equal(t, now.Add(15*time.Minute), *reminder.SnoozeUntil)
	assert.Equal(t, now.Add(-time.Hour), reminder.RemindAt, "время срабатывания не меняется")

	// Отложенное напоминание не срабатывает до конца паузы
	assert.False(t, reminder.IsDue(now.Add(10*time.Minute)))
	assert.True(t, reminder.IsDue(now.Add(16*time.Minute)))
}

func TestReminderSnoozeDefaultMinutes(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	reminder := &SmartReminder{RemindAt: now}

	reminder.Snooze(now, 0)
	require.NotNil(t, reminder.SnoozeUntil)
	assert.Equal(t, now.Add(30*time.Minute), *reminder.SnoozeUntil)

	reminder.Snooze(now, -5)
	assert.Equal(t, now.Add(30*time.Minute), *reminder.SnoozeUntil)
}

func TestRecurrenceRuleNextAfter(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	next, err := RecurrenceRule{Frequency: RecurrenceDaily, Interval: 1}.NextAfter(base)
	require.NoError(t, err)
	assert.Equal(t, base.AddDate(0, 0, 1), next)

	next, err = RecurrenceRule{Frequency: RecurrenceWeekly, Interval: 2}.NextAfter(base)
	require.NoError(t, err)
	assert.Equal(t, base.AddDate(0, 0, 14), next)

	next, err = RecurrenceRule{Frequency: RecurrenceMonthly}.NextAfter(base)
	require.NoError(t, err)
	assert.Equal(t, base.AddDate(0, 1, 0), next, "нулевой интервал трактуется как 1")

	_, err = RecurrenceRule{Frequency: "hourly"}.NextAfter(base)
	assert.Error(t, err)
}

func TestNextOccurrence(t *testing.T) {
	remindAt := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	now := remindAt.Add(time.Hour)

	rule, err := json.Marshal(RecurrenceRule{Frequency: RecurrenceDaily, Interval: 1})
	require.NoError(t, err)

	reminder := &SmartReminder{
		ID:             "rem-1",
		TaskID:         "task-1",
		UserID:         "user-1",
		ReminderType:   ReminderDaily,
		RemindAt:       remindAt,
		IsSent:         true,
		IsRecurring:    true,
		RecurrenceRule: rule,
	}

	next, err := reminder.NextOccurrence(now)
	require.NoError(t, err)
	assert.Equal(t, remindAt.AddDate(0, 0, 1), next.RemindAt)
	assert.Equal(t, "task-1", next.TaskID)
	assert.Equal(t, "user-1", next.UserID)
	assert.True(t, next.IsRecurring)
	assert.False(t, next.IsSent)
	assert.Empty(t, next.ID, "идентификатор присваивается при сохранении")
}

func TestNextOccurrenceCatchesUp(t *testing.T) {
	remindAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	// Планировщик простаивал неделю
	now := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)

	rule, err := json.Marshal(RecurrenceRule{Frequency: RecurrenceDaily, Interval: 1})
	require.NoError(t, err)

	reminder := &SmartReminder{
		RemindAt:       remindAt,
		IsRecurring:    true,
		RecurrenceRule: rule,
	}

	next, err := reminder.NextOccurrence(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC), next.RemindAt,
		"пропущенные циклы не создаются, берется ближайший будущий")
}

func TestNextOccurrenceErrors(t *testing.T) {
	now := time.Now()

	reminder := &SmartReminder{ID: "rem-1"}
	_, err := reminder.NextOccurrence(now)
	assert.Error(t, err, "неповторяющееся напоминание")

	reminder.IsRecurring = true
	reminder.RecurrenceRule = json.RawMessage(`{broken`)
	_, err = reminder.NextOccurrence(now)
	assert.Error(t, err)
}
