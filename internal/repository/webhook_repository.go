package repository

import (
	"context"
	"time"

	"github.com/nurlyy/task_notifier/internal/domain"
)

// WebhookRepository определяет интерфейс для работы с вебхуками
type WebhookRepository interface {
	// Create регистрирует новый вебхук
	Create(ctx context.Context, webhook *domain.Webhook) error

	// GetByID возвращает вебхук по ID
	GetByID(ctx context.Context, id string) (*domain.Webhook, error)

	// Update обновляет данные вебхука
	Update(ctx context.Context, webhook *domain.Webhook) error

	// Delete удаляет вебхук
	Delete(ctx context.Context, id string) error

	// ListActive возвращает все активные вебхуки
	ListActive(ctx context.Context) ([]*domain.Webhook, error)

	// ListByCreator возвращает вебхуки, созданные пользователем
	ListByCreator(ctx context.Context, userID string) ([]*domain.Webhook, error)

	// RecordTrigger обновляет счетчики после попытки доставки
	RecordTrigger(ctx context.Context, webhookID string, triggeredAt time.Time, success bool) error
}

// WebhookDeliveryRepository определяет интерфейс журнала доставки вебхуков.
// Журнал только дописывается, записи никогда не изменяются.
type WebhookDeliveryRepository interface {
	// Create добавляет запись о попытке доставки
	Create(ctx context.Context, delivery *domain.WebhookDelivery) error

	// ListByWebhook возвращает записи журнала для вебхука,
	// от новых к старым
	ListByWebhook(ctx context.Context, webhookID string, limit, offset int) ([]*domain.WebhookDelivery, error)
}
