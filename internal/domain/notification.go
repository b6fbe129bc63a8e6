package domain

import (
	"time"
)

// NotificationType определяет тип уведомления
type NotificationType string

const (
	// NotificationTypeTaskAssigned - задача назначена
	NotificationTypeTaskAssigned NotificationType = "task_assigned"
	// NotificationTypeTaskDueSoon - срок выполнения задачи скоро истекает
	NotificationTypeTaskDueSoon NotificationType = "task_due_soon"
	// NotificationTypeTaskOverdue - срок выполнения задачи истек
	NotificationTypeTaskOverdue NotificationType = "task_overdue"
	// NotificationTypeTaskCompleted - задача завершена
	NotificationTypeTaskCompleted NotificationType = "task_completed"
	// NotificationTypeTaskCommented - добавлен комментарий к задаче
	NotificationTypeTaskCommented NotificationType = "task_commented"
	// NotificationTypeReminder - сработало напоминание
	NotificationTypeReminder NotificationType = "reminder"
	// NotificationTypeProjectAdded - пользователь добавлен в проект
	NotificationTypeProjectAdded NotificationType = "project_added"
	// NotificationTypeProjectUpdated - проект обновлен
	NotificationTypeProjectUpdated NotificationType = "project_updated"
	// NotificationTypeDigest - периодический дайджест
	NotificationTypeDigest NotificationType = "digest"
)

// NotificationStatus определяет статус уведомления
type NotificationStatus string

const (
	// NotificationStatusUnread - непрочитанное уведомление
	NotificationStatusUnread NotificationStatus = "unread"
	// NotificationStatusRead - прочитанное уведомление
	NotificationStatusRead NotificationStatus = "read"
)

// Notification представляет веб-уведомление внутри приложения.
// Это конечная точка канала "web": диспетчер очереди записывает
// сюда доставленные уведомления, фронтенд читает ленту.
type Notification struct {
	ID        string             `json:"id" db:"id"`
	UserID    string             `json:"user_id" db:"user_id"`
	Type      NotificationType   `json:"type" db:"type"`
	Title     string             `json:"title" db:"title"`
	Content   string             `json:"content" db:"content"`
	Status    NotificationStatus `json:"status" db:"status"`
	MetaData  map[string]string  `json:"meta_data,omitempty" db:"-"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
	ReadAt    *time.Time         `json:"read_at,omitempty" db:"read_at"`
}

// MarkAsRead отмечает уведомление как прочитанное
func (n *Notification) MarkAsRead() {
	n.Status = NotificationStatusRead
	now := time.Now()
	n.ReadAt = &now
}

// IsRead проверяет, прочитано ли уведомление
func (n *Notification) IsRead() bool {
	return n.Status == NotificationStatusRead
}

// NotificationResponse представляет данные уведомления для API-ответов
type NotificationResponse struct {
	ID        string             `json:"id"`
	Type      NotificationType   `json:"type"`
	Title     string             `json:"title"`
	Content   string             `json:"content"`
	Status    NotificationStatus `json:"status"`
	MetaData  map[string]string  `json:"meta_data,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	ReadAt    *time.Time         `json:"read_at,omitempty"`
}

// ToResponse преобразует Notification в NotificationResponse
func (n *Notification) ToResponse() NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Content:   n.Content,
		Status:    n.Status,
		MetaData:  n.MetaData,
		CreatedAt: n.CreatedAt,
		ReadAt:    n.ReadAt,
	}
}
