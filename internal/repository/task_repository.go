package repository

import (
	"context"
	"time"

	"github.com/nurlyy/task_notifier/internal/domain"
)

// TaskRepository определяет читающий интерфейс к хранилищу задач.
// Задачами владеет внешний CRUD-слой; этот сервис только читает
// сроки, исполнителей и агрегаты для напоминаний и дайджестов.
type TaskRepository interface {
	// GetByID возвращает задачу по ID
	GetByID(ctx context.Context, id string) (*domain.Task, error)

	// GetOverdue возвращает открытые задачи с истекшим сроком
	// и назначенным исполнителем
	GetOverdue(ctx context.Context, now time.Time) ([]*domain.Task, error)

	// CountCreatedInWindow возвращает число задач пользователя,
	// созданных в окне [start, end)
	CountCreatedInWindow(ctx context.Context, userID string, start, end time.Time) (int, error)

	// CountCompletedInWindow возвращает число задач пользователя,
	// завершенных в окне [start, end)
	CountCompletedInWindow(ctx context.Context, userID string, start, end time.Time) (int, error)

	// CountOverdue возвращает текущее число просроченных открытых
	// задач пользователя (не ограничено окном)
	CountOverdue(ctx context.Context, userID string, now time.Time) (int, error)

	// CountCommentsReceived возвращает число комментариев к задачам
	// пользователя, оставленных другими людьми в окне [start, end)
	CountCommentsReceived(ctx context.Context, userID string, start, end time.Time) (int, error)

	// CountMentions возвращает число упоминаний пользователя
	// в комментариях в окне [start, end)
	CountMentions(ctx context.Context, userID string, start, end time.Time) (int, error)

	// AvgCompletionHours возвращает среднее время выполнения
	// (updated_at - created_at) задач, завершенных в окне, в часах
	AvgCompletionHours(ctx context.Context, userID string, start, end time.Time) (float64, error)

	// TopProjects возвращает проекты пользователя по числу задач,
	// от большего к меньшему
	TopProjects(ctx context.Context, userID string, limit int) ([]domain.ProjectTaskCount, error)
}

// UserRepository определяет читающий интерфейс к хранилищу пользователей
type UserRepository interface {
	// GetByID возвращает пользователя по ID
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// ListActive возвращает всех активных пользователей
	ListActive(ctx context.Context) ([]*domain.User, error)
}
