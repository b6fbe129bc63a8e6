package postgres

import (
	"context"
	"database/sql"
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

// ReminderRepository реализует репозиторий напоминаний с использованием PostgreSQL
type ReminderRepository struct {
	db     *sqlx.DB
	logger logger.Logger
}

// NewReminderRepository создает новый экземпляр ReminderRepository
func NewReminderRepository(db *sqlx.DB, logger logger.Logger) *ReminderRepository {
	return &ReminderRepository{
		db:     db,
		logger: logger,
	}
}

const reminderColumns = `
	id, task_id, user_id, reminder_type, remind_at, minutes_before,
	is_sent, sent_at, is_snoozed, snooze_until,
	is_recurring, recurrence_rule, created_at
`

// Create создает новое напоминание
func (r *ReminderRepository) Create(ctx context.Context, reminder *domain.SmartReminder) error {
	query := `
		INSERT INTO smart_reminders (` + reminderColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		reminder.ID,
		reminder.TaskID,
		reminder.UserID,
		reminder.ReminderType,
		reminder.RemindAt,
		reminder.MinutesBefore,
		reminder.IsSent,
		reminder.SentAt,
		reminder.IsSnoozed,
		reminder.SnoozeUntil,
		reminder.IsRecurring,
		recurrenceRuleArg(reminder),
		reminder.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create reminder", err, map[string]interface{}{
			"task_id": reminder.TaskID,
			"user_id": reminder.UserID,
			"type":    reminder.ReminderType,
		})
		return fmt.Errorf("failed to create reminder: %w", err)
	}

	return nil
}

// GetByID возвращает напоминание по ID
func (r *ReminderRepository) GetByID(ctx context.Context, id string) (*domain.SmartReminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM smart_reminders WHERE id = $1`

	var reminder domain.SmartReminder
	err := r.db.GetContext(ctx, &reminder, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to get reminder by ID", err, map[string]interface{}{
			"reminder_id": id,
		})
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}

	return &reminder, nil
}

// Update обновляет данные напоминания
func (r *ReminderRepository) Update(ctx context.Context, reminder *domain.SmartReminder) error {
	query := `
		UPDATE smart_reminders SET
			remind_at = $2,
			is_sent = $3,
			sent_at = $4,
			is_snoozed = $5,
			snooze_until = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		reminder.ID,
		reminder.RemindAt,
		reminder.IsSent,
		reminder.SentAt,
		reminder.IsSnoozed,
		reminder.SnoozeUntil,
	)

	if err != nil {
		r.logger.Error("Failed to update reminder", err, map[string]interface{}{
			"reminder_id": reminder.ID,
		})
		return fmt.Errorf("failed to update reminder: %w", err)
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

// GetUserReminders возвращает напоминания пользователя
func (r *ReminderRepository) GetUserReminders(ctx context.Context, userID string, filter repository.ReminderFilter) ([]*domain.SmartReminder, error) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}
	argIndex := 2

	if filter.TaskID != nil {
		conditions = append(conditions, fmt.Sprintf("task_id = $%d", argIndex))
		args = append(args, *filter.TaskID)
		argIndex++
	}

	if filter.IsSent != nil {
		conditions = append(conditions, fmt.Sprintf("is_sent = $%d", argIndex))
		args = append(args, *filter.IsSent)
		argIndex++
	}

	if filter.Before != nil {
		conditions = append(conditions, fmt.Sprintf("remind_at < $%d", argIndex))
		args = append(args, *filter.Before)
		argIndex++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + reminderColumns + `
		FROM smart_reminders
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY remind_at ASC
		LIMIT ` + fmt.Sprintf("$%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, filter.Offset)

	var reminders []*domain.SmartReminder
	err := r.db.SelectContext(ctx, &reminders, query, args...)
	if err != nil {
		r.logger.Error("Failed to get user reminders", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("failed to get user reminders: %w", err)
	}

	return reminders, nil
}

// CountByTask возвращает число напоминаний по задаче
func (r *ReminderRepository) CountByTask(ctx context.Context, taskID string) (int, error) {
	query := `SELECT COUNT(*) FROM smart_reminders WHERE task_id = $1`

	var count int
	err := r.db.GetContext(ctx, &count, query, taskID)
	if err != nil {
		r.logger.Error("Failed to count reminders by task", err, map[string]interface{}{
			"task_id": taskID,
		})
		return 0, fmt.Errorf("failed to count reminders: %w", err)
	}

	return count, nil
}

// ClaimDue атомарно захватывает пачку созревших напоминаний и передает ее в fn.
// Строки блокируются на время транзакции, конкурирующие обработчики
// пропускают их благодаря SKIP LOCKED.
func (r *ReminderRepository) ClaimDue(ctx context.Context, now time.Time, limit int, fn func(ctx context.Context, reminders []*domain.SmartReminder) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT ` + reminderColumns + `
		FROM smart_reminders
		WHERE is_sent = false
		  AND remind_at <= $1
		  AND (is_snoozed = false OR snooze_until IS NULL OR snooze_until <= $1)
		ORDER BY remind_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	var reminders []*domain.SmartReminder
	if err := tx.SelectContext(ctx, &reminders, query, now, limit); err != nil {
		r.logger.Error("Failed to claim due reminders", err, nil)
		return fmt.Errorf("failed to claim due reminders: %w", err)
	}

	if len(reminders) == 0 {
		return tx.Commit()
	}

	if err := fn(ctx, reminders); err != nil {
		return err
	}

	updateQuery := `
		UPDATE smart_reminders SET
			is_sent = $2,
			sent_at = $3,
			is_snoozed = $4,
			snooze_until = $5
		WHERE id = $1
	`

	for _, reminder := range reminders {
		if _, err := tx.ExecContext(
			ctx,
			updateQuery,
			reminder.ID,
			reminder.IsSent,
			reminder.SentAt,
			reminder.IsSnoozed,
			reminder.SnoozeUntil,
		); err != nil {
			r.logger.Error("Failed to update claimed reminder", err, map[string]interface{}{
				"reminder_id": reminder.ID,
			})
			return fmt.Errorf("failed to update claimed reminder: %w", err)
		}
	}

	return tx.Commit()
}

// ListSentRecurring возвращает повторяющиеся напоминания,
// которые уже сработали и ждут переноса на следующее вхождение
func (r *ReminderRepository) ListSentRecurring(ctx context.Context, limit int) ([]*domain.SmartReminder, error) {
	if limit <= 0 {
		limit = 500
	}

	query := `
		SELECT ` + reminderColumns + `
		FROM smart_reminders
		WHERE is_recurring = true AND is_sent = true
		ORDER BY remind_at ASC
		LIMIT $1
	`

	var reminders []*domain.SmartReminder
	err := r.db.SelectContext(ctx, &reminders, query, limit)
	if err != nil {
		r.logger.Error("Failed to list sent recurring reminders", err, nil)
		return nil, fmt.Errorf("failed to list sent recurring reminders: %w", err)
	}

	return reminders, nil
}

// RolloverRecurring в одной транзакции снимает флаг повторения
// со сработавшего напоминания и вставляет следующее вхождение
func (r *ReminderRepository) RolloverRecurring(ctx context.Context, fired *domain.SmartReminder, next *domain.SmartReminder) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	markQuery := `UPDATE smart_reminders SET is_sent = true, sent_at = $2, is_recurring = false WHERE id = $1`
	if _, err := tx.ExecContext(ctx, markQuery, fired.ID, fired.SentAt); err != nil {
		r.logger.Error("Failed to mark recurring reminder as sent", err, map[string]interface{}{
			"reminder_id": fired.ID,
		})
		return fmt.Errorf("failed to mark reminder as sent: %w", err)
	}

	if next.ID == "" {
		next.ID = uuid.New().String()
	}

	insertQuery := `
		INSERT INTO smart_reminders (` + reminderColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	if _, err := tx.ExecContext(
		ctx,
		insertQuery,
		next.ID,
		next.TaskID,
		next.UserID,
		next.ReminderType,
		next.RemindAt,
		next.MinutesBefore,
		next.IsSent,
		next.SentAt,
		next.IsSnoozed,
		next.SnoozeUntil,
		next.IsRecurring,
		recurrenceRuleArg(next),
		next.CreatedAt,
	); err != nil {
		r.logger.Error("Failed to insert next reminder occurrence", err, map[string]interface{}{
			"reminder_id": fired.ID,
			"task_id":     next.TaskID,
		})
		return fmt.Errorf("failed to insert next occurrence: %w", err)
	}

	return tx.Commit()
}

// recurrenceRuleArg приводит правило повторения к аргументу запроса
func recurrenceRuleArg(reminder *domain.SmartReminder) interface{} {
	if len(reminder.RecurrenceRule) == 0 {
		return nil
	}
	return []byte(reminder.RecurrenceRule)
}
