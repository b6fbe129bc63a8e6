package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// TaskRepository реализует читающий доступ к задачам внешнего CRUD-слоя.
// Таблицы tasks, projects и comments этот сервис никогда не изменяет.
type TaskRepository struct {
	db     *sqlx.DB
	logger logger.Logger
}

// NewTaskRepository создает новый экземпляр TaskRepository
func NewTaskRepository(db *sqlx.DB, logger logger.Logger) *TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

const taskColumns = `
	t.id, t.title, t.project_id, COALESCE(p.name, '') AS project_name,
	t.status, t.assignee_id, t.created_by, t.due_date, t.created_at, t.updated_at
`

const openStatuses = `('pending', 'in_progress')`

// GetByID возвращает задачу по ID
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		LEFT JOIN projects p ON p.id = t.project_id
		WHERE t.id = $1
	`

	var task domain.Task
	err := r.db.GetContext(ctx, &task, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to get task by ID", err, map[string]interface{}{
			"task_id": id,
		})
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return &task, nil
}

// GetOverdue возвращает открытые задачи с истекшим сроком и назначенным исполнителем
func (r *TaskRepository) GetOverdue(ctx context.Context, now time.Time) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		LEFT JOIN projects p ON p.id = t.project_id
		WHERE t.status IN ` + openStatuses + `
		  AND t.due_date IS NOT NULL
		  AND t.due_date < $1
		  AND t.assignee_id IS NOT NULL
		ORDER BY t.due_date ASC
	`

	var tasks []*domain.Task
	err := r.db.SelectContext(ctx, &tasks, query, now)
	if err != nil {
		r.logger.Error("Failed to get overdue tasks", err, nil)
		return nil, fmt.Errorf("failed to get overdue tasks: %w", err)
	}

	return tasks, nil
}

// CountCreatedInWindow возвращает число задач пользователя, созданных в окне [start, end)
func (r *TaskRepository) CountCreatedInWindow(ctx context.Context, userID string, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tasks
		WHERE (assignee_id = $1 OR created_by = $1)
		  AND created_at >= $2 AND created_at < $3
	`

	return r.countQuery(ctx, query, userID, start, end)
}

// CountCompletedInWindow возвращает число задач пользователя, завершенных в окне [start, end)
func (r *TaskRepository) CountCompletedInWindow(ctx context.Context, userID string, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tasks
		WHERE assignee_id = $1
		  AND status = 'completed'
		  AND updated_at >= $2 AND updated_at < $3
	`

	return r.countQuery(ctx, query, userID, start, end)
}

// CountOverdue возвращает текущее число просроченных открытых задач пользователя
func (r *TaskRepository) CountOverdue(ctx context.Context, userID string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tasks
		WHERE assignee_id = $1
		  AND status IN ` + openStatuses + `
		  AND due_date IS NOT NULL
		  AND due_date < $2
	`

	return r.countQuery(ctx, query, userID, now)
}

// CountCommentsReceived возвращает число чужих комментариев к задачам
// пользователя в окне [start, end)
func (r *TaskRepository) CountCommentsReceived(ctx context.Context, userID string, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM comments c
		JOIN tasks t ON t.id = c.task_id
		WHERE (t.assignee_id = $1 OR t.created_by = $1)
		  AND c.author_id <> $1
		  AND c.created_at >= $2 AND c.created_at < $3
	`

	return r.countQuery(ctx, query, userID, start, end)
}

// CountMentions возвращает число упоминаний пользователя в комментариях
// в окне [start, end)
func (r *TaskRepository) CountMentions(ctx context.Context, userID string, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM comment_mentions m
		JOIN comments c ON c.id = m.comment_id
		WHERE m.user_id = $1
		  AND c.created_at >= $2 AND c.created_at < $3
	`

	return r.countQuery(ctx, query, userID, start, end)
}

// AvgCompletionHours возвращает среднее время выполнения задач,
// завершенных в окне, в часах с одним знаком после запятой
func (r *TaskRepository) AvgCompletionHours(ctx context.Context, userID string, start, end time.Time) (float64, error) {
	query := `
		SELECT COALESCE(
			ROUND((AVG(EXTRACT(EPOCH FROM (updated_at - created_at)) / 3600))::numeric, 1),
			0
		)
		FROM tasks
		WHERE assignee_id = $1
		  AND status = 'completed'
		  AND updated_at >= $2 AND updated_at < $3
	`

	var avg float64
	err := r.db.GetContext(ctx, &avg, query, userID, start, end)
	if err != nil {
		r.logger.Error("Failed to get average completion time", err, map[string]interface{}{
			"user_id": userID,
		})
		return 0, fmt.Errorf("failed to get average completion time: %w", err)
	}

	return avg, nil
}

// TopProjects возвращает проекты пользователя по числу задач, от большего к меньшему
func (r *TaskRepository) TopProjects(ctx context.Context, userID string, limit int) ([]domain.ProjectTaskCount, error) {
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT COALESCE(p.name, '') AS project_name, COUNT(*) AS count
		FROM tasks t
		LEFT JOIN projects p ON p.id = t.project_id
		WHERE t.assignee_id = $1
		GROUP BY p.name
		ORDER BY count DESC
		LIMIT $2
	`

	var projects []domain.ProjectTaskCount
	err := r.db.SelectContext(ctx, &projects, query, userID, limit)
	if err != nil {
		r.logger.Error("Failed to get top projects", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("failed to get top projects: %w", err)
	}

	return projects, nil
}

func (r *TaskRepository) countQuery(ctx context.Context, query string, args ...interface{}) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		r.logger.Error("Failed to execute count query", err, nil)
		return 0, fmt.Errorf("failed to execute count query: %w", err)
	}

	return count, nil
}

// UserRepository реализует читающий доступ к пользователям внешнего слоя
type UserRepository struct {
	db     *sqlx.DB
	logger logger.Logger
}

// NewUserRepository создает новый экземпляр UserRepository
func NewUserRepository(db *sqlx.DB, logger logger.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID возвращает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, email, full_name, is_active, device_token
		FROM users
		WHERE id = $1
	`

	var user domain.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to get user by ID", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// ListActive возвращает всех активных пользователей
func (r *UserRepository) ListActive(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT id, email, full_name, is_active, device_token
		FROM users
		WHERE is_active = true
		ORDER BY created_at ASC
	`

	var users []*domain.User
	err := r.db.SelectContext(ctx, &users, query)
	if err != nil {
		r.logger.Error("Failed to list active users", err, nil)
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}

	return users, nil
}
