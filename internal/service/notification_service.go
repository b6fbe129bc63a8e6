package service

import (
	"context"
	"errors"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/repository"
	"github.com/nurlyy/task_notifier/internal/repository/cache"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// NotificationService обслуживает ленту веб-уведомлений
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	cacheRepo        *cache.RedisRepository
	logger           logger.Logger
}

// NewNotificationService создает новый экземпляр NotificationService
func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	cacheRepo *cache.RedisRepository,
	logger logger.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		cacheRepo:        cacheRepo,
		logger:           logger,
	}
}

// GetUserNotifications возвращает страницу уведомлений пользователя
func (s *NotificationService) GetUserNotifications(ctx context.Context, userID string, filter repository.NotificationFilter, page, pageSize int) (*domain.PagedResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	notifications, err := s.notificationRepo.GetUserNotifications(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.notificationRepo.CountUserNotifications(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	items := make([]domain.NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		items = append(items, notification.ToResponse())
	}

	return domain.NewPagedResponse(items, total, page, pageSize), nil
}

// MarkAsRead отмечает уведомление пользователя как прочитанное
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID string) error {
	notification, err := s.notificationRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if notification.UserID != userID {
		return domain.ErrForbidden
	}

	if err := s.notificationRepo.MarkAsRead(ctx, id); err != nil {
		// Уже прочитанное уведомление не считается ошибкой
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	s.invalidateUnreadCache(ctx, userID)
	return nil
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	if err := s.notificationRepo.MarkAllAsRead(ctx, userID); err != nil {
		return err
	}

	s.invalidateUnreadCache(ctx, userID)
	return nil
}

// GetUnreadCount возвращает число непрочитанных уведомлений
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	if s.cacheRepo != nil {
		if count, err := s.cacheRepo.GetUnreadCount(ctx, userID); err == nil {
			return count, nil
		}
	}

	count, err := s.notificationRepo.GetUserUnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.CacheUnreadCount(ctx, userID, count); err != nil {
			s.logger.Warn("Failed to cache unread count", map[string]interface{}{
				"user_id": userID,
			})
		}
	}

	return count, nil
}

func (s *NotificationService) invalidateUnreadCache(ctx context.Context, userID string) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.InvalidateUnreadCount(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate unread count cache", map[string]interface{}{
			"user_id": userID,
		})
	}
}
