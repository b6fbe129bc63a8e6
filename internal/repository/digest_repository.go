package repository

import (
	"context"
	"time"

	"github.com/nurlyy/task_notifier/internal/domain"
)

// DigestRepository определяет интерфейс для работы с дайджестами
type DigestRepository interface {
	// Create создает запись дайджеста
	Create(ctx context.Context, digest *domain.Digest) error

	// Update обновляет счетчики и статус доставки дайджеста
	Update(ctx context.Context, digest *domain.Digest) error

	// GetByID возвращает дайджест по ID
	GetByID(ctx context.Context, id string) (*domain.Digest, error)

	// Exists проверяет, создан ли уже дайджест пользователя
	// для указанного типа и начала периода
	Exists(ctx context.Context, userID string, digestType domain.DigestType, periodStart time.Time) (bool, error)

	// ListUnsent возвращает сгенерированные, но не отправленные дайджесты
	ListUnsent(ctx context.Context, limit int) ([]*domain.Digest, error)
}
