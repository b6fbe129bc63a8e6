package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// QueueRepository реализует очередь уведомлений с использованием PostgreSQL
type QueueRepository struct {
	db     *sqlx.DB
	logger logger.Logger
}

// NewQueueRepository создает новый экземпляр QueueRepository
func NewQueueRepository(db *sqlx.DB, logger logger.Logger) *QueueRepository {
	return &QueueRepository{
		db:     db,
		logger: logger,
	}
}

const queueColumns = `
	id, user_id, notification_type, title, message, data, channel, priority,
	is_sent, sent_at, failed, failure_reason, retry_count,
	scheduled_for, created_at
`

// Enqueue добавляет запись в очередь
func (r *QueueRepository) Enqueue(ctx context.Context, entry *domain.QueuedNotification) error {
	query := `
		INSERT INTO notification_queue (` + queueColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	args, err := r.insertArgs(entry)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to enqueue notification", err, map[string]interface{}{
			"user_id": entry.UserID,
			"channel": entry.Channel,
		})
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	return nil
}

// EnqueueBatch добавляет несколько записей за раз
func (r *QueueRepository) EnqueueBatch(ctx context.Context, entries []*domain.QueuedNotification) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO notification_queue (` + queueColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`

	for _, entry := range entries {
		if entry.ID == "" {
			entry.ID = uuid.New().String()
		}
		args, err := r.insertArgs(entry)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.Error("Failed to enqueue notification batch", err, map[string]interface{}{
				"user_id": entry.UserID,
				"channel": entry.Channel,
			})
			return fmt.Errorf("failed to enqueue notification batch: %w", err)
		}
	}

	return tx.Commit()
}

// GetByID возвращает запись очереди по ID
func (r *QueueRepository) GetByID(ctx context.Context, id string) (*domain.QueuedNotification, error) {
	query := `SELECT ` + queueColumns + ` FROM notification_queue WHERE id = $1`

	entry, err := r.scanQueueEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to get queue entry by ID", err, map[string]interface{}{
			"entry_id": id,
		})
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}

	return entry, nil
}

// ClaimPending атомарно захватывает пачку готовых к отправке записей
// в порядке (priority ASC, scheduled_for ASC) и передает ее в fn.
// Конкурирующие обработчики пропускают захваченные строки.
func (r *QueueRepository) ClaimPending(ctx context.Context, now time.Time, limit int, fn func(ctx context.Context, entries []*domain.QueuedNotification) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT ` + queueColumns + `
		FROM notification_queue
		WHERE is_sent = false
		  AND failed = false
		  AND scheduled_for <= $1
		ORDER BY priority ASC, scheduled_for ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.QueryContext(ctx, query, now, limit)
	if err != nil {
		r.logger.Error("Failed to claim pending notifications", err, nil)
		return fmt.Errorf("failed to claim pending notifications: %w", err)
	}
	defer rows.Close()

	var entries []*domain.QueuedNotification
	for rows.Next() {
		entry, err := r.scanQueueEntry(rows)
		if err != nil {
			return fmt.Errorf("failed to scan claimed queue entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to claim pending notifications: %w", err)
	}

	if len(entries) == 0 {
		return tx.Commit()
	}

	if err := fn(ctx, entries); err != nil {
		return err
	}

	updateQuery := `
		UPDATE notification_queue SET
			is_sent = $2,
			sent_at = $3,
			failed = $4,
			failure_reason = $5,
			retry_count = $6,
			scheduled_for = $7
		WHERE id = $1
	`

	for _, entry := range entries {
		if _, err := tx.ExecContext(
			ctx,
			updateQuery,
			entry.ID,
			entry.IsSent,
			entry.SentAt,
			entry.Failed,
			entry.FailureReason,
			entry.RetryCount,
			entry.ScheduledFor,
		); err != nil {
			r.logger.Error("Failed to update claimed queue entry", err, map[string]interface{}{
				"entry_id": entry.ID,
			})
			return fmt.Errorf("failed to update claimed queue entry: %w", err)
		}
	}

	return tx.Commit()
}

// Update сохраняет статус доставки записи
func (r *QueueRepository) Update(ctx context.Context, entry *domain.QueuedNotification) error {
	query := `
		UPDATE notification_queue SET
			is_sent = $2,
			sent_at = $3,
			failed = $4,
			failure_reason = $5,
			retry_count = $6,
			scheduled_for = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.IsSent,
		entry.SentAt,
		entry.Failed,
		entry.FailureReason,
		entry.RetryCount,
		entry.ScheduledFor,
	)

	if err != nil {
		r.logger.Error("Failed to update queue entry", err, map[string]interface{}{
			"entry_id": entry.ID,
		})
		return fmt.Errorf("failed to update queue entry: %w", err)
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

// CountPending возвращает число записей, ожидающих отправки
func (r *QueueRepository) CountPending(ctx context.Context, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM notification_queue
		WHERE is_sent = false AND failed = false AND scheduled_for <= $1
	`

	var count int
	err := r.db.GetContext(ctx, &count, query, now)
	if err != nil {
		r.logger.Error("Failed to count pending notifications", err, nil)
		return 0, fmt.Errorf("failed to count pending notifications: %w", err)
	}

	return count, nil
}

// CountFailed возвращает число терминально неудачных записей
func (r *QueueRepository) CountFailed(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM notification_queue WHERE failed = true`

	var count int
	err := r.db.GetContext(ctx, &count, query)
	if err != nil {
		r.logger.Error("Failed to count failed notifications", err, nil)
		return 0, fmt.Errorf("failed to count failed notifications: %w", err)
	}

	return count, nil
}

// insertArgs собирает аргументы вставки записи очереди
func (r *QueueRepository) insertArgs(entry *domain.QueuedNotification) ([]interface{}, error) {
	var dataJSON []byte
	if entry.Data != nil {
		var err error
		dataJSON, err = json.Marshal(entry.Data)
		if err != nil {
			r.logger.Error("Failed to marshal queue entry data", err, map[string]interface{}{
				"entry_id": entry.ID,
			})
			return nil, fmt.Errorf("failed to marshal queue entry data: %w", err)
		}
	}

	return []interface{}{
		entry.ID,
		entry.UserID,
		entry.NotificationType,
		entry.Title,
		entry.Message,
		dataJSON,
		entry.Channel,
		entry.Priority,
		entry.IsSent,
		entry.SentAt,
		entry.Failed,
		entry.FailureReason,
		entry.RetryCount,
		entry.ScheduledFor,
		entry.CreatedAt,
	}, nil
}

func (r *QueueRepository) scanQueueEntry(row rowScanner) (*domain.QueuedNotification, error) {
	var entry domain.QueuedNotification
	var dataJSON []byte

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.NotificationType,
		&entry.Title,
		&entry.Message,
		&dataJSON,
		&entry.Channel,
		&entry.Priority,
		&entry.IsSent,
		&entry.SentAt,
		&entry.Failed,
		&entry.FailureReason,
		&entry.RetryCount,
		&entry.ScheduledFor,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &entry.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal queue entry data: %w", err)
		}
	}

	return &entry, nil
}
