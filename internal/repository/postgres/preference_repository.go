package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// PreferenceRepository реализует репозиторий настроек уведомлений
// с использованием PostgreSQL
type PreferenceRepository struct {
	db     *sqlx.DB
	logger logger.Logger
}

// NewPreferenceRepository создает новый экземпляр PreferenceRepository
func NewPreferenceRepository(db *sqlx.DB, logger logger.Logger) *PreferenceRepository {
	return &PreferenceRepository{
		db:     db,
		logger: logger,
	}
}

// GetByUserID возвращает настройки пользователя
func (r *PreferenceRepository) GetByUserID(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	query := `
		SELECT user_id, enabled, do_not_disturb, dnd_start_time, dnd_end_time, channels,
		       task_assigned, task_due_soon, task_overdue, task_completed, task_commented, task_mentioned,
		       project_added, project_updated, chat_message, chat_mentioned,
		       daily_digest, weekly_digest, digest_time, digest_day,
		       created_at, updated_at
		FROM notification_preferences
		WHERE user_id = $1
	`

	row := r.db.QueryRowxContext(ctx, query, userID)
	pref, err := scanPreference(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to get notification preference", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("failed to get notification preference: %w", err)
	}

	return pref, nil
}

// Create создает запись настроек
func (r *PreferenceRepository) Create(ctx context.Context, pref *domain.NotificationPreference) error {
	query := `
		INSERT INTO notification_preferences (
			user_id, enabled, do_not_disturb, dnd_start_time, dnd_end_time, channels,
			task_assigned, task_due_soon, task_overdue, task_completed, task_commented, task_mentioned,
			project_added, project_updated, chat_message, chat_mentioned,
			daily_digest, weekly_digest, digest_time, digest_day,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		)
		ON CONFLICT (user_id) DO NOTHING
	`

	channelsJSON, err := json.Marshal(pref.Channels)
	if err != nil {
		return fmt.Errorf("failed to marshal channels: %w", err)
	}

	_, err = r.db.ExecContext(
		ctx,
		query,
		pref.UserID,
		pref.Enabled,
		pref.DoNotDisturb,
		timeOfDayArg(pref.DNDStart),
		timeOfDayArg(pref.DNDEnd),
		channelsJSON,
		pref.TaskAssigned,
		pref.TaskDueSoon,
		pref.TaskOverdue,
		pref.TaskCompleted,
		pref.TaskCommented,
		pref.TaskMentioned,
		pref.ProjectAdded,
		pref.ProjectUpdated,
		pref.ChatMessage,
		pref.ChatMentioned,
		pref.DailyDigest,
		pref.WeeklyDigest,
		pref.DigestTime,
		pref.DigestDay,
		pref.CreatedAt,
		pref.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create notification preference", err, map[string]interface{}{
			"user_id": pref.UserID,
		})
		return fmt.Errorf("failed to create notification preference: %w", err)
	}

	return nil
}

// Update обновляет запись настроек
func (r *PreferenceRepository) Update(ctx context.Context, pref *domain.NotificationPreference) error {
	query := `
		UPDATE notification_preferences SET
			enabled = $2,
			do_not_disturb = $3,
			dnd_start_time = $4,
			dnd_end_time = $5,
			channels = $6,
			task_assigned = $7,
			task_due_soon = $8,
			task_overdue = $9,
			task_completed = $10,
			task_commented = $11,
			task_mentioned = $12,
			project_added = $13,
			project_updated = $14,
			chat_message = $15,
			chat_mentioned = $16,
			daily_digest = $17,
			weekly_digest = $18,
			digest_time = $19,
			digest_day = $20,
			updated_at = $21
		WHERE user_id = $1
	`

	channelsJSON, err := json.Marshal(pref.Channels)
	if err != nil {
		return fmt.Errorf("failed to marshal channels: %w", err)
	}

	result, err := r.db.ExecContext(
		ctx,
		query,
		pref.UserID,
		pref.Enabled,
		pref.DoNotDisturb,
		timeOfDayArg(pref.DNDStart),
		timeOfDayArg(pref.DNDEnd),
		channelsJSON,
		pref.TaskAssigned,
		pref.TaskDueSoon,
		pref.TaskOverdue,
		pref.TaskCompleted,
		pref.TaskCommented,
		pref.TaskMentioned,
		pref.ProjectAdded,
		pref.ProjectUpdated,
		pref.ChatMessage,
		pref.ChatMentioned,
		pref.DailyDigest,
		pref.WeeklyDigest,
		pref.DigestTime,
		pref.DigestDay,
		pref.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to update notification preference", err, map[string]interface{}{
			"user_id": pref.UserID,
		})
		return fmt.Errorf("failed to update notification preference: %w", err)
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

// ListDigestSubscribers возвращает настройки пользователей
// с включенным дайджестом указанного типа
func (r *PreferenceRepository) ListDigestSubscribers(ctx context.Context, digestType domain.DigestType) ([]*domain.NotificationPreference, error) {
	column := "weekly_digest"
	if digestType == domain.DigestDaily {
		column = "daily_digest"
	}

	query := fmt.Sprintf(`
		SELECT user_id, enabled, do_not_disturb, dnd_start_time, dnd_end_time, channels,
		       task_assigned, task_due_soon, task_overdue, task_completed, task_commented, task_mentioned,
		       project_added, project_updated, chat_message, chat_mentioned,
		       daily_digest, weekly_digest, digest_time, digest_day,
		       created_at, updated_at
		FROM notification_preferences
		WHERE enabled = true AND %s = true
	`, column)

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list digest subscribers", err, map[string]interface{}{
			"digest_type": digestType,
		})
		return nil, fmt.Errorf("failed to list digest subscribers: %w", err)
	}
	defer rows.Close()

	var prefs []*domain.NotificationPreference
	for rows.Next() {
		pref, err := scanPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		prefs = append(prefs, pref)
	}

	return prefs, rows.Err()
}

// rowScanner абстрагирует *sqlx.Row и *sqlx.Rows для общего сканирования
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanPreference читает строку настроек с десериализацией каналов
func scanPreference(row rowScanner) (*domain.NotificationPreference, error) {
	var pref domain.NotificationPreference
	var channelsJSON []byte
	var dndStart, dndEnd sql.NullString

	err := row.Scan(
		&pref.UserID,
		&pref.Enabled,
		&pref.DoNotDisturb,
		&dndStart,
		&dndEnd,
		&channelsJSON,
		&pref.TaskAssigned,
		&pref.TaskDueSoon,
		&pref.TaskOverdue,
		&pref.TaskCompleted,
		&pref.TaskCommented,
		&pref.TaskMentioned,
		&pref.ProjectAdded,
		&pref.ProjectUpdated,
		&pref.ChatMessage,
		&pref.ChatMentioned,
		&pref.DailyDigest,
		&pref.WeeklyDigest,
		&pref.DigestTime,
		&pref.DigestDay,
		&pref.CreatedAt,
		&pref.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(channelsJSON) > 0 {
		if err := json.Unmarshal(channelsJSON, &pref.Channels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal channels: %w", err)
		}
	}

	if dndStart.Valid {
		t, err := domain.ParseTimeOfDay(dndStart.String)
		if err != nil {
			return nil, err
		}
		pref.DNDStart = &t
	}
	if dndEnd.Valid {
		t, err := domain.ParseTimeOfDay(dndEnd.String)
		if err != nil {
			return nil, err
		}
		pref.DNDEnd = &t
	}

	return &pref, nil
}

// timeOfDayArg приводит опциональное время суток к аргументу запроса
func timeOfDayArg(t *domain.TimeOfDay) interface{} {
	if t == nil {
		return nil
	}
	return t.String()
}
