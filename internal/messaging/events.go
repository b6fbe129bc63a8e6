package messaging

import (
	"time"

	"github.com/nurlyy/task_notifier/internal/domain"
)

// DomainEventMessage представляет доменное событие в транспортном виде.
// Публикуется внешним CRUD-слоем и этим сервисом, потребляется
// диспетчером уведомлений и диспетчером вебхуков.
type DomainEventMessage struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	CreatedAt time.Time              `json:"created_at"`
}

// ToDomain преобразует сообщение в доменное событие
func (m *DomainEventMessage) ToDomain() *domain.DomainEvent {
	return &domain.DomainEvent{
		ID:        m.ID,
		Type:      domain.EventType(m.Type),
		Data:      m.Data,
		CreatedAt: m.CreatedAt,
	}
}

// NewDomainEventMessage собирает транспортное сообщение из доменного события
func NewDomainEventMessage(event *domain.DomainEvent) *DomainEventMessage {
	return &DomainEventMessage{
		ID:        event.ID,
		Type:      string(event.Type),
		Data:      event.Data,
		CreatedAt: event.CreatedAt,
	}
}

// WebhookJob представляет задание на доставку одного вебхука.
// Одно доменное событие разворачивается в отдельное задание
// на каждый подписанный вебхук, поэтому медленный получатель
// не задерживает остальных.
type WebhookJob struct {
	WebhookID  string                 `json:"webhook_id"`
	Event      string                 `json:"event"`
	Data       map[string]interface{} `json:"data"`
	EnqueuedAt time.Time              `json:"enqueued_at"`
}
