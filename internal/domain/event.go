package domain

import (
	"time"
)

// EventType определяет тип доменного события
type EventType string

const (
	// EventTaskCreated - задача создана
	EventTaskCreated EventType = "task.created"
	// EventTaskUpdated - задача обновлена
	EventTaskUpdated EventType = "task.updated"
	// EventTaskDeleted - задача удалена
	EventTaskDeleted EventType = "task.deleted"
	// EventTaskCompleted - задача завершена
	EventTaskCompleted EventType = "task.completed"
	// EventProjectCreated - проект создан
	EventProjectCreated EventType = "project.created"
	// EventProjectUpdated - проект обновлен
	EventProjectUpdated EventType = "project.updated"
	// EventProjectDeleted - проект удален
	EventProjectDeleted EventType = "project.deleted"
	// EventCommentCreated - добавлен комментарий
	EventCommentCreated EventType = "comment.created"
	// EventUserJoined - пользователь присоединился к проекту
	EventUserJoined EventType = "user.joined"
)

// EventWildcard подписывает вебхук на все события
const EventWildcard = "*"

// EventWebhookTest - синтетическое событие ручной проверки вебхука,
// не проходит через подписки и фильтры
const EventWebhookTest EventType = "webhook.test"

// DomainEvent представляет событие доменного слоя,
// опубликованное внешним CRUD-слоем
type DomainEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Data      map[string]interface{} `json:"data"`
	CreatedAt time.Time              `json:"created_at"`
}

// PreferenceField возвращает имя флага настроек,
// которым управляется уведомление по данному событию
func (t EventType) PreferenceField() string {
	switch t {
	case EventTaskCreated:
		return "task_assigned"
	case EventTaskUpdated:
		return "task_assigned"
	case EventTaskCompleted:
		return "task_completed"
	case EventCommentCreated:
		return "task_commented"
	case EventProjectCreated:
		return "project_added"
	case EventProjectUpdated:
		return "project_updated"
	case EventUserJoined:
		return "project_added"
	default:
		return string(t)
	}
}

// IsValid проверяет, что тип события входит в известный словарь
func (t EventType) IsValid() bool {
	switch t {
	case EventTaskCreated, EventTaskUpdated, EventTaskDeleted, EventTaskCompleted,
		EventProjectCreated, EventProjectUpdated, EventProjectDeleted,
		EventCommentCreated, EventUserJoined:
		return true
	}
	return false
}
