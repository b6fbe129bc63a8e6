package repository

import (
	"context"
	"time"

	"github.com/nurlyy/task_notifier/internal/domain"
)

// NotificationRepository определяет интерфейс хранилища веб-уведомлений
// (лента внутри приложения - конечная точка канала "web")
type NotificationRepository interface {
	// Create создает новое уведомление
	Create(ctx context.Context, notification *domain.Notification) error

	// GetByID возвращает уведомление по ID
	GetByID(ctx context.Context, id string) (*domain.Notification, error)

	// GetUserNotifications возвращает уведомления пользователя
	GetUserNotifications(ctx context.Context, userID string, filter NotificationFilter) ([]*domain.Notification, error)

	// CountUserNotifications возвращает количество уведомлений пользователя
	CountUserNotifications(ctx context.Context, userID string, filter NotificationFilter) (int, error)

	// MarkAsRead отмечает уведомление как прочитанное
	MarkAsRead(ctx context.Context, id string) error

	// MarkAllAsRead отмечает все уведомления пользователя как прочитанные
	MarkAllAsRead(ctx context.Context, userID string) error

	// GetUserUnreadCount возвращает количество непрочитанных уведомлений
	GetUserUnreadCount(ctx context.Context, userID string) (int, error)
}

// NotificationFilter содержит параметры для фильтрации уведомлений
type NotificationFilter struct {
	Types     []domain.NotificationType  `json:"types,omitempty"`
	Status    *domain.NotificationStatus `json:"status,omitempty"`
	StartDate *time.Time                 `json:"start_date,omitempty"`
	EndDate   *time.Time                 `json:"end_date,omitempty"`
	OrderBy   *string                    `json:"order_by,omitempty"`
	OrderDir  *string                    `json:"order_dir,omitempty"`
	Limit     int                        `json:"limit"`
	Offset    int                        `json:"offset"`
}
