package repository

import (
	"context"

	"github.com/nurlyy/task_notifier/internal/domain"
)

// PreferenceRepository определяет интерфейс для работы с настройками уведомлений
type PreferenceRepository interface {
	// GetByUserID возвращает настройки пользователя
	GetByUserID(ctx context.Context, userID string) (*domain.NotificationPreference, error)

	// Create создает запись настроек
	Create(ctx context.Context, pref *domain.NotificationPreference) error

	// Update обновляет запись настроек
	Update(ctx context.Context, pref *domain.NotificationPreference) error

	// ListDigestSubscribers возвращает настройки пользователей
	// с включенным дайджестом указанного типа
	ListDigestSubscribers(ctx context.Context, digestType domain.DigestType) ([]*domain.NotificationPreference, error)
}
