package repository

import (
	"context"
	"time"

	"github.com/nurlyy/task_notifier/internal/domain"
)

// QueueRepository определяет интерфейс для работы с очередью уведомлений
type QueueRepository interface {
	// Enqueue добавляет запись в очередь
	Enqueue(ctx context.Context, entry *domain.QueuedNotification) error

	// EnqueueBatch добавляет несколько записей за раз
	EnqueueBatch(ctx context.Context, entries []*domain.QueuedNotification) error

	// GetByID возвращает запись очереди по ID
	GetByID(ctx context.Context, id string) (*domain.QueuedNotification, error)

	// ClaimPending атомарно захватывает пачку записей, готовых к отправке:
	// is_sent=false, failed=false, scheduled_for <= now, в порядке
	// (priority ASC, scheduled_for ASC). Конкурирующие обработчики
	// пропускают захваченные строки (FOR UPDATE SKIP LOCKED), поэтому
	// одна запись не обрабатывается дважды.
	ClaimPending(ctx context.Context, now time.Time, limit int, fn func(ctx context.Context, entries []*domain.QueuedNotification) error) error

	// Update сохраняет статус доставки записи
	Update(ctx context.Context, entry *domain.QueuedNotification) error

	// CountPending возвращает число записей, ожидающих отправки
	CountPending(ctx context.Context, now time.Time) (int, error)

	// CountFailed возвращает число терминально неудачных записей
	CountFailed(ctx context.Context) (int, error)
}
