package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/repository"
	"github.com/nurlyy/task_notifier/internal/repository/cache"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// WebSender доставляет уведомления в ленту внутри приложения.
// Доставка сводится к записи в хранилище: фронтенд читает ленту сам.
type WebSender struct {
	notificationRepo repository.NotificationRepository
	cacheRepo        *cache.RedisRepository
	logger           logger.Logger
}

// NewWebSender создает новый экземпляр WebSender
func NewWebSender(
	notificationRepo repository.NotificationRepository,
	cacheRepo *cache.RedisRepository,
	logger logger.Logger,
) *WebSender {
	return &WebSender{
		notificationRepo: notificationRepo,
		cacheRepo:        cacheRepo,
		logger:           logger,
	}
}

// Channel возвращает канал доставки
func (s *WebSender) Channel() domain.NotificationChannel {
	return domain.ChannelWeb
}

// Send записывает уведомление в ленту пользователя
func (s *WebSender) Send(ctx context.Context, user *domain.User, entry *domain.QueuedNotification) error {
	notification := &domain.Notification{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Type:      domain.NotificationType(entry.NotificationType),
		Title:     entry.Title,
		Content:   entry.Message,
		Status:    domain.NotificationStatusUnread,
		MetaData:  entry.Data,
		CreatedAt: time.Now(),
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to store web notification: %w", err)
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.InvalidateUnreadCount(ctx, user.ID); err != nil {
			s.logger.Warn("Failed to invalidate unread count cache", map[string]interface{}{
				"user_id": user.ID,
			})
		}
	}

	return nil
}
