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

// DigestRepository реализует репозиторий дайджестов с использованием PostgreSQL
type DigestRepository struct {
	db     *sqlx.DB
	logger logger.Logger
}

// NewDigestRepository создает новый экземпляр DigestRepository
func NewDigestRepository(db *sqlx.DB, logger logger.Logger) *DigestRepository {
	return &DigestRepository{
		db:     db,
		logger: logger,
	}
}

const digestColumns = `
	id, user_id, digest_type,
	tasks_created, tasks_completed, tasks_overdue, comments_received, mentions_count,
	summary_data, is_sent, sent_at, period_start, period_end, created_at
`

// Create создает запись дайджеста
func (r *DigestRepository) Create(ctx context.Context, digest *domain.Digest) error {
	query := `
		INSERT INTO digest_emails (` + digestColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	if digest.ID == "" {
		digest.ID = uuid.New().String()
	}

	summaryJSON, err := json.Marshal(digest.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal digest summary: %w", err)
	}

	_, err = r.db.ExecContext(
		ctx,
		query,
		digest.ID,
		digest.UserID,
		digest.DigestType,
		digest.TasksCreated,
		digest.TasksCompleted,
		digest.TasksOverdue,
		digest.CommentsReceived,
		digest.MentionsCount,
		summaryJSON,
		digest.IsSent,
		digest.SentAt,
		digest.PeriodStart,
		digest.PeriodEnd,
		digest.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create digest", err, map[string]interface{}{
			"user_id": digest.UserID,
			"type":    digest.DigestType,
		})
		return fmt.Errorf("failed to create digest: %w", err)
	}

	return nil
}

// Update обновляет счетчики и статус доставки дайджеста
func (r *DigestRepository) Update(ctx context.Context, digest *domain.Digest) error {
	query := `
		UPDATE digest_emails SET
			tasks_created = $2,
			tasks_completed = $3,
			tasks_overdue = $4,
			comments_received = $5,
			mentions_count = $6,
			summary_data = $7,
			is_sent = $8,
			sent_at = $9
		WHERE id = $1
	`

	summaryJSON, err := json.Marshal(digest.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal digest summary: %w", err)
	}

	result, err := r.db.ExecContext(
		ctx,
		query,
		digest.ID,
		digest.TasksCreated,
		digest.TasksCompleted,
		digest.TasksOverdue,
		digest.CommentsReceived,
		digest.MentionsCount,
		summaryJSON,
		digest.IsSent,
		digest.SentAt,
	)

	if err != nil {
		r.logger.Error("Failed to update digest", err, map[string]interface{}{
			"digest_id": digest.ID,
		})
		return fmt.Errorf("failed to update digest: %w", err)
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

// GetByID возвращает дайджест по ID
func (r *DigestRepository) GetByID(ctx context.Context, id string) (*domain.Digest, error) {
	query := `SELECT ` + digestColumns + ` FROM digest_emails WHERE id = $1`

	digest, err := r.scanDigest(r.db.QueryRowxContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to get digest by ID", err, map[string]interface{}{
			"digest_id": id,
		})
		return nil, fmt.Errorf("failed to get digest: %w", err)
	}

	return digest, nil
}

// Exists проверяет, создан ли уже дайджест пользователя
// для указанного типа и начала периода
func (r *DigestRepository) Exists(ctx context.Context, userID string, digestType domain.DigestType, periodStart time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM digest_emails
			WHERE user_id = $1 AND digest_type = $2 AND period_start = $3
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, userID, digestType, periodStart)
	if err != nil {
		r.logger.Error("Failed to check digest existence", err, map[string]interface{}{
			"user_id": userID,
			"type":    digestType,
		})
		return false, fmt.Errorf("failed to check digest existence: %w", err)
	}

	return exists, nil
}

// ListUnsent возвращает сгенерированные, но не отправленные дайджесты
func (r *DigestRepository) ListUnsent(ctx context.Context, limit int) ([]*domain.Digest, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + digestColumns + `
		FROM digest_emails
		WHERE is_sent = false
		ORDER BY created_at ASC
		LIMIT $1
	`

	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to list unsent digests", err, nil)
		return nil, fmt.Errorf("failed to list unsent digests: %w", err)
	}
	defer rows.Close()

	var digests []*domain.Digest
	for rows.Next() {
		digest, err := r.scanDigest(rows)
		if err != nil {
			return nil, err
		}
		digests = append(digests, digest)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate digests: %w", err)
	}

	return digests, nil
}

func (r *DigestRepository) scanDigest(row rowScanner) (*domain.Digest, error) {
	var digest domain.Digest
	var summaryJSON []byte

	err := row.Scan(
		&digest.ID,
		&digest.UserID,
		&digest.DigestType,
		&digest.TasksCreated,
		&digest.TasksCompleted,
		&digest.TasksOverdue,
		&digest.CommentsReceived,
		&digest.MentionsCount,
		&summaryJSON,
		&digest.IsSent,
		&digest.SentAt,
		&digest.PeriodStart,
		&digest.PeriodEnd,
		&digest.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &digest.Summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal digest summary: %w", err)
		}
	}

	return &digest, nil
}
