package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReminderType определяет тип напоминания
type ReminderType string

const (
	// ReminderBeforeDue - напоминание до срока выполнения
	ReminderBeforeDue ReminderType = "before_due"
	// ReminderAtDue - напоминание в момент срока выполнения
	ReminderAtDue ReminderType = "at_due"
	// ReminderAfterOverdue - напоминание после просрочки
	ReminderAfterOverdue ReminderType = "after_overdue"
	// ReminderDaily - ежедневное напоминание
	ReminderDaily ReminderType = "daily"
	// ReminderCustom - пользовательское напоминание
	ReminderCustom ReminderType = "custom"
)

// RecurrenceFrequency определяет частоту повторения напоминания
type RecurrenceFrequency string

const (
	// RecurrenceDaily - каждый день
	RecurrenceDaily RecurrenceFrequency = "daily"
	// RecurrenceWeekly - каждую неделю
	RecurrenceWeekly RecurrenceFrequency = "weekly"
	// RecurrenceMonthly - каждый месяц
	RecurrenceMonthly RecurrenceFrequency = "monthly"
)

// RecurrenceRule описывает правило повторения напоминания
type RecurrenceRule struct {
	Frequency RecurrenceFrequency `json:"frequency"`
	Interval  int                 `json:"interval"`
}

// NextAfter вычисляет следующий момент срабатывания после указанного
func (r RecurrenceRule) NextAfter(t time.Time) (time.Time, error) {
	interval := r.Interval
	if interval <= 0 {
		interval = 1
	}

	switch r.Frequency {
	case RecurrenceDaily:
		return t.AddDate(0, 0, interval), nil
	case RecurrenceWeekly:
		return t.AddDate(0, 0, 7*interval), nil
	case RecurrenceMonthly:
		return t.AddDate(0, interval, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown recurrence frequency: %s", r.Frequency)
	}
}

// SmartReminder представляет напоминание, привязанное к задаче и пользователю.
// Сработавшее напоминание никогда не переиспользуется: для повторяющихся
// правил создается новая запись, история срабатываний остается неизменной.
type SmartReminder struct {
	ID           string       `json:"id" db:"id"`
	TaskID       string       `json:"task_id" db:"task_id"`
	UserID       string       `json:"user_id" db:"user_id"`
	ReminderType ReminderType `json:"reminder_type" db:"reminder_type"`

	// Время срабатывания
	RemindAt      time.Time `json:"remind_at" db:"remind_at"`
	MinutesBefore *int      `json:"minutes_before,omitempty" db:"minutes_before"`

	// Статус
	IsSent      bool       `json:"is_sent" db:"is_sent"`
	SentAt      *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	IsSnoozed   bool       `json:"is_snoozed" db:"is_snoozed"`
	SnoozeUntil *time.Time `json:"snooze_until,omitempty" db:"snooze_until"`

	// Повторение
	IsRecurring    bool            `json:"is_recurring" db:"is_recurring"`
	RecurrenceRule json.RawMessage `json:"recurrence_rule,omitempty" db:"recurrence_rule"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsDue проверяет, пора ли отправлять напоминание
func (r *SmartReminder) IsDue(now time.Time) bool {
	if r.IsSent && !r.IsRecurring {
		return false
	}

	if r.IsSnoozed && r.SnoozeUntil != nil && r.SnoozeUntil.After(now) {
		return false
	}

	return !now.Before(r.RemindAt)
}

// Snooze откладывает напоминание на указанное число минут.
// RemindAt и IsSent не меняются.
func (r *SmartReminder) Snooze(now time.Time, minutes int) {
	if minutes <= 0 {
		minutes = 30
	}
	until := now.Add(time.Duration(minutes) * time.Minute)
	r.IsSnoozed = true
	r.SnoozeUntil = &until
}

// MarkSent отмечает напоминание как отправленное
func (r *SmartReminder) MarkSent(now time.Time) {
	r.IsSent = true
	r.SentAt = &now
}

// NextOccurrence строит следующее напоминание по правилу повторения.
// Возвращает ошибку, если напоминание не повторяющееся или правило не разбирается.
func (r *SmartReminder) NextOccurrence(now time.Time) (*SmartReminder, error) {
	if !r.IsRecurring || len(r.RecurrenceRule) == 0 {
		return nil, fmt.Errorf("reminder %s is not recurring", r.ID)
	}

	var rule RecurrenceRule
	if err := json.Unmarshal(r.RecurrenceRule, &rule); err != nil {
		return nil, fmt.Errorf("failed to parse recurrence rule: %w", err)
	}

	next, err := rule.NextAfter(r.RemindAt)
	if err != nil {
		return nil, err
	}

	// Догоняем расписание, если пропущено несколько циклов
	for !next.After(now) {
		next, err = rule.NextAfter(next)
		if err != nil {
			return nil, err
		}
	}

	return &SmartReminder{
		TaskID:         r.TaskID,
		UserID:         r.UserID,
		ReminderType:   r.ReminderType,
		RemindAt:       next,
		MinutesBefore:  r.MinutesBefore,
		IsRecurring:    true,
		RecurrenceRule: r.RecurrenceRule,
		CreatedAt:      now,
	}, nil
}

// ReminderResponse представляет данные напоминания для API-ответов
type ReminderResponse struct {
	ID           string       `json:"id"`
	TaskID       string       `json:"task_id"`
	ReminderType ReminderType `json:"reminder_type"`
	RemindAt     time.Time    `json:"remind_at"`
	IsSent       bool         `json:"is_sent"`
	IsSnoozed    bool         `json:"is_snoozed"`
	SnoozeUntil  *time.Time   `json:"snooze_until,omitempty"`
	IsRecurring  bool         `json:"is_recurring"`
}

// ToResponse преобразует SmartReminder в ReminderResponse
func (r *SmartReminder) ToResponse() ReminderResponse {
	return ReminderResponse{
		ID:           r.ID,
		TaskID:       r.TaskID,
		ReminderType: r.ReminderType,
		RemindAt:     r.RemindAt,
		IsSent:       r.IsSent,
		IsSnoozed:    r.IsSnoozed,
		SnoozeUntil:  r.SnoozeUntil,
		IsRecurring:  r.IsRecurring,
	}
}

// SnoozeRequest представляет данные для откладывания напоминания
type SnoozeRequest struct {
	Minutes int `json:"minutes" validate:"omitempty,min=1,max=10080"`
}
