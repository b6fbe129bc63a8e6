package domain

import (
	"time"
)

// Priority границы приоритетов очереди (1 - наивысший, 10 - низший)
const (
	PriorityHighest = 1
	PriorityDefault = 5
	PriorityLowest  = 10
)

// QueuedNotification представляет запись в очереди доставки уведомлений.
// Порядок обработки: (priority ASC, scheduled_for ASC).
// Запись терминальна после успешной отправки или исчерпания попыток.
type QueuedNotification struct {
	ID               string              `json:"id" db:"id"`
	UserID           string              `json:"user_id" db:"user_id"`
	NotificationType string              `json:"notification_type" db:"notification_type"`
	Title            string              `json:"title" db:"title"`
	Message          string              `json:"message" db:"message"`
	Data             map[string]string   `json:"data,omitempty" db:"data"`
	Channel          NotificationChannel `json:"channel" db:"channel"`
	Priority         int                 `json:"priority" db:"priority"`

	IsSent        bool       `json:"is_sent" db:"is_sent"`
	SentAt        *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	Failed        bool       `json:"failed" db:"failed"`
	FailureReason string     `json:"failure_reason,omitempty" db:"failure_reason"`
	RetryCount    int        `json:"retry_count" db:"retry_count"`

	ScheduledFor time.Time `json:"scheduled_for" db:"scheduled_for"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// MarkSent отмечает запись как отправленную
func (q *QueuedNotification) MarkSent(now time.Time) {
	q.IsSent = true
	q.SentAt = &now
}

// RecordFailure фиксирует неудачную попытку отправки.
// После maxRetries попыток запись становится терминальной.
func (q *QueuedNotification) RecordFailure(reason string, maxRetries int) {
	q.RetryCount++
	q.FailureReason = reason
	if q.RetryCount >= maxRetries {
		q.Failed = true
	}
}
