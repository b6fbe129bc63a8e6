package repository

import (
	"context"
	"time"

	"github.com/nurlyy/task_notifier/internal/domain"
)

// ReminderRepository определяет интерфейс для работы с хранилищем напоминаний
type ReminderRepository interface {
	// Create создает новое напоминание
	Create(ctx context.Context, reminder *domain.SmartReminder) error

	// GetByID возвращает напоминание по ID
	GetByID(ctx context.Context, id string) (*domain.SmartReminder, error)

	// Update обновляет данные напоминания
	Update(ctx context.Context, reminder *domain.SmartReminder) error

	// GetUserReminders возвращает напоминания пользователя
	GetUserReminders(ctx context.Context, userID string, filter ReminderFilter) ([]*domain.SmartReminder, error)

	// CountByTask возвращает число напоминаний по задаче
	CountByTask(ctx context.Context, taskID string) (int, error)

	// ClaimDue атомарно захватывает пачку созревших напоминаний:
	// неотправленные записи с remind_at <= now, не отложенные на будущее.
	// Захваченные строки блокируются от конкурирующих обработчиков
	// (SELECT ... FOR UPDATE SKIP LOCKED).
	ClaimDue(ctx context.Context, now time.Time, limit int, fn func(ctx context.Context, reminders []*domain.SmartReminder) error) error

	// ListSentRecurring возвращает повторяющиеся напоминания,
	// которые уже сработали и ждут переноса на следующее вхождение
	ListSentRecurring(ctx context.Context, limit int) ([]*domain.SmartReminder, error)

	// RolloverRecurring в одной транзакции снимает флаг повторения
	// со сработавшего напоминания и вставляет следующее вхождение.
	// История срабатываний остается нетронутой.
	RolloverRecurring(ctx context.Context, fired *domain.SmartReminder, next *domain.SmartReminder) error
}

// ReminderFilter содержит параметры для фильтрации напоминаний
type ReminderFilter struct {
	TaskID    *string    `json:"task_id,omitempty"`
	IsSent    *bool      `json:"is_sent,omitempty"`
	Before    *time.Time `json:"before,omitempty"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}
