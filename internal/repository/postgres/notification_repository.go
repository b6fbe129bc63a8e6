package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/repository"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// NotificationRepository реализует хранилище веб-уведомлений
// с использованием PostgreSQL
type NotificationRepository struct {
	db     *sqlx.DB
	logger logger.Logger
}

// NewNotificationRepository создает новый экземпляр NotificationRepository
func NewNotificationRepository(db *sqlx.DB, logger logger.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create создает новое уведомление
func (r *NotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, type, title, content, status, meta_data, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}

	var metaDataJSON []byte
	if notification.MetaData != nil {
		var err error
		metaDataJSON, err = json.Marshal(notification.MetaData)
		if err != nil {
			r.logger.Error("Failed to marshal meta data", err, map[string]interface{}{
				"notification_id": notification.ID,
			})
			return fmt.Errorf("failed to marshal meta data: %w", err)
		}
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		notification.ID,
		notification.UserID,
		notification.Type,
		notification.Title,
		notification.Content,
		notification.Status,
		metaDataJSON,
		notification.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create notification", err, map[string]interface{}{
			"user_id": notification.UserID,
			"type":    notification.Type,
		})
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// GetByID возвращает уведомление по ID
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `
		SELECT id, user_id, type, title, content, status, meta_data, created_at, read_at
		FROM notifications
		WHERE id = $1
	`

	notification, err := r.scanNotification(r.db.QueryRowxContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to get notification by ID", err, map[string]interface{}{
			"notification_id": id,
		})
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return notification, nil
}

// GetUserNotifications возвращает уведомления пользователя
func (r *NotificationRepository) GetUserNotifications(ctx context.Context, userID string, filter repository.NotificationFilter) ([]*domain.Notification, error) {
	conditions, args, argIndex := r.buildFilter(userID, filter)

	orderBy := "created_at"
	if filter.OrderBy != nil && *filter.OrderBy == "read_at" {
		orderBy = "read_at"
	}
	orderDir := "DESC"
	if filter.OrderDir != nil && strings.EqualFold(*filter.OrderDir, "asc") {
		orderDir = "ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, type, title, content, status, meta_data, created_at, read_at
		FROM notifications
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, strings.Join(conditions, " AND "), orderBy, orderDir, argIndex, argIndex+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to get user notifications", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("failed to get user notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		notification, err := r.scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, nil
}

// CountUserNotifications возвращает количество уведомлений пользователя
func (r *NotificationRepository) CountUserNotifications(ctx context.Context, userID string, filter repository.NotificationFilter) (int, error) {
	conditions, args, _ := r.buildFilter(userID, filter)

	query := `SELECT COUNT(*) FROM notifications WHERE ` + strings.Join(conditions, " AND ")

	var count int
	err := r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		r.logger.Error("Failed to count user notifications", err, map[string]interface{}{
			"user_id": userID,
		})
		return 0, fmt.Errorf("failed to count user notifications: %w", err)
	}

	return count, nil
}

// MarkAsRead отмечает уведомление как прочитанное
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id string) error {
	query := `
		UPDATE notifications
		SET status = $2, read_at = $3
		WHERE id = $1 AND status = $4
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		id,
		domain.NotificationStatusRead,
		time.Now(),
		domain.NotificationStatusUnread,
	)

	if err != nil {
		r.logger.Error("Failed to mark notification as read", err, map[string]interface{}{
			"notification_id": id,
		})
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID string) error {
	query := `
		UPDATE notifications
		SET status = $2, read_at = $3
		WHERE user_id = $1 AND status = $4
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		userID,
		domain.NotificationStatusRead,
		time.Now(),
		domain.NotificationStatusUnread,
	)

	if err != nil {
		r.logger.Error("Failed to mark all notifications as read", err, map[string]interface{}{
			"user_id": userID,
		})
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}

	return nil
}

// GetUserUnreadCount возвращает количество непрочитанных уведомлений
func (r *NotificationRepository) GetUserUnreadCount(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND status = $2`

	var count int
	err := r.db.GetContext(ctx, &count, query, userID, domain.NotificationStatusUnread)
	if err != nil {
		r.logger.Error("Failed to get unread count", err, map[string]interface{}{
			"user_id": userID,
		})
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}

	return count, nil
}

func (r *NotificationRepository) buildFilter(userID string, filter repository.NotificationFilter) ([]string, []interface{}, int) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}
	argIndex := 2

	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, t)
			argIndex++
		}
		conditions = append(conditions, fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ", ")))
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.StartDate)
		argIndex++
	}

	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argIndex))
		args = append(args, *filter.EndDate)
		argIndex++
	}

	return conditions, args, argIndex
}

func (r *NotificationRepository) scanNotification(row rowScanner) (*domain.Notification, error) {
	var notification domain.Notification
	var metaDataJSON []byte

	err := row.Scan(
		&notification.ID,
		&notification.UserID,
		&notification.Type,
		&notification.Title,
		&notification.Content,
		&notification.Status,
		&metaDataJSON,
		&notification.CreatedAt,
		&notification.ReadAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &notification.MetaData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal meta data: %w", err)
		}
	}

	return &notification, nil
}
