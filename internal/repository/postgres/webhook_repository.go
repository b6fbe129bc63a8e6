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

// WebhookRepository реализует репозиторий вебхуков с использованием PostgreSQL
type WebhookRepository struct {
	db     *sqlx.DB
	logger logger.Logger
}

// NewWebhookRepository создает новый экземпляр WebhookRepository
func NewWebhookRepository(db *sqlx.DB, logger logger.Logger) *WebhookRepository {
	return &WebhookRepository{
		db:     db,
		logger: logger,
	}
}

const webhookColumns = `
	id, name, url, secret, events, is_active, created_by,
	custom_headers, trigger_count, failure_count, last_triggered, created_at
`

// Create регистрирует новый вебхук
func (r *WebhookRepository) Create(ctx context.Context, webhook *domain.Webhook) error {
	query := `
		INSERT INTO webhooks (` + webhookColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	if webhook.ID == "" {
		webhook.ID = uuid.New().String()
	}

	eventsJSON, headersJSON, err := marshalWebhookFields(webhook)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(
		ctx,
		query,
		webhook.ID,
		webhook.Name,
		webhook.URL,
		webhook.Secret,
		eventsJSON,
		webhook.IsActive,
		webhook.CreatedBy,
		headersJSON,
		webhook.TriggerCount,
		webhook.FailureCount,
		webhook.LastTriggered,
		webhook.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create webhook", err, map[string]interface{}{
			"name": webhook.Name,
			"url":  webhook.URL,
		})
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	return nil
}

// GetByID возвращает вебхук по ID
func (r *WebhookRepository) GetByID(ctx context.Context, id string) (*domain.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE id = $1`

	webhook, err := r.scanWebhook(r.db.QueryRowxContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("Failed to get webhook by ID", err, map[string]interface{}{
			"webhook_id": id,
		})
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}

	return webhook, nil
}

// Update обновляет данные вебхука
func (r *WebhookRepository) Update(ctx context.Context, webhook *domain.Webhook) error {
	query := `
		UPDATE webhooks SET
			name = $2,
			url = $3,
			secret = $4,
			events = $5,
			is_active = $6,
			custom_headers = $7
		WHERE id = $1
	`

	eventsJSON, headersJSON, err := marshalWebhookFields(webhook)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(
		ctx,
		query,
		webhook.ID,
		webhook.Name,
		webhook.URL,
		webhook.Secret,
		eventsJSON,
		webhook.IsActive,
		headersJSON,
	)

	if err != nil {
		r.logger.Error("Failed to update webhook", err, map[string]interface{}{
			"webhook_id": webhook.ID,
		})
		return fmt.Errorf("failed to update webhook: %w", err)
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

// Delete удаляет вебхук
func (r *WebhookRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM webhooks WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete webhook", err, map[string]interface{}{
			"webhook_id": id,
		})
		return fmt.Errorf("failed to delete webhook: %w", err)
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

// ListActive возвращает все активные вебхуки
func (r *WebhookRepository) ListActive(ctx context.Context) ([]*domain.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE is_active = true ORDER BY created_at ASC`

	return r.queryWebhooks(ctx, query)
}

// ListByCreator возвращает вебхуки, созданные пользователем
func (r *WebhookRepository) ListByCreator(ctx context.Context, userID string) ([]*domain.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE created_by = $1 ORDER BY created_at ASC`

	return r.queryWebhooks(ctx, query, userID)
}

// RecordTrigger обновляет счетчики после попытки доставки
func (r *WebhookRepository) RecordTrigger(ctx context.Context, webhookID string, triggeredAt time.Time, success bool) error {
	query := `
		UPDATE webhooks SET
			trigger_count = trigger_count + 1,
			failure_count = failure_count + CASE WHEN $3 THEN 0 ELSE 1 END,
			last_triggered = $2
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, webhookID, triggeredAt, success)
	if err != nil {
		r.logger.Error("Failed to record webhook trigger", err, map[string]interface{}{
			"webhook_id": webhookID,
		})
		return fmt.Errorf("failed to record webhook trigger: %w", err)
	}

	return nil
}

func (r *WebhookRepository) queryWebhooks(ctx context.Context, query string, args ...interface{}) ([]*domain.Webhook, error) {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query webhooks", err, nil)
		return nil, fmt.Errorf("failed to query webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []*domain.Webhook
	for rows.Next() {
		webhook, err := r.scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, webhook)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate webhooks: %w", err)
	}

	return webhooks, nil
}

func (r *WebhookRepository) scanWebhook(row rowScanner) (*domain.Webhook, error) {
	var webhook domain.Webhook
	var eventsJSON, headersJSON []byte

	err := row.Scan(
		&webhook.ID,
		&webhook.Name,
		&webhook.URL,
		&webhook.Secret,
		&eventsJSON,
		&webhook.IsActive,
		&webhook.CreatedBy,
		&headersJSON,
		&webhook.TriggerCount,
		&webhook.FailureCount,
		&webhook.LastTriggered,
		&webhook.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(eventsJSON) > 0 {
		if err := json.Unmarshal(eventsJSON, &webhook.Events); err != nil {
			return nil, fmt.Errorf("failed to unmarshal webhook events: %w", err)
		}
	}

	if len(headersJSON) > 0 {
		if err := json.Unmarshal(headersJSON, &webhook.CustomHeaders); err != nil {
			return nil, fmt.Errorf("failed to unmarshal webhook headers: %w", err)
		}
	}

	return &webhook, nil
}

func marshalWebhookFields(webhook *domain.Webhook) ([]byte, []byte, error) {
	eventsJSON, err := json.Marshal(webhook.Events)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal webhook events: %w", err)
	}

	var headersJSON []byte
	if webhook.CustomHeaders != nil {
		headersJSON, err = json.Marshal(webhook.CustomHeaders)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal webhook headers: %w", err)
		}
	}

	return eventsJSON, headersJSON, nil
}

// WebhookDeliveryRepository реализует журнал доставки вебхуков.
// Журнал только дописывается, записи никогда не изменяются.
type WebhookDeliveryRepository struct {
	db     *sqlx.DB
	logger logger.Logger
}

// NewWebhookDeliveryRepository создает новый экземпляр WebhookDeliveryRepository
func NewWebhookDeliveryRepository(db *sqlx.DB, logger logger.Logger) *WebhookDeliveryRepository {
	return &WebhookDeliveryRepository{
		db:     db,
		logger: logger,
	}
}

// Create добавляет запись о попытке доставки
func (r *WebhookDeliveryRepository) Create(ctx context.Context, delivery *domain.WebhookDelivery) error {
	query := `
		INSERT INTO webhook_deliveries (
			id, webhook_id, event, payload, status_code,
			response_body, success, duration_ms, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	if delivery.ID == "" {
		delivery.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		delivery.ID,
		delivery.WebhookID,
		delivery.Event,
		[]byte(delivery.Payload),
		delivery.StatusCode,
		delivery.ResponseBody,
		delivery.Success,
		delivery.DurationMs,
		delivery.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create webhook delivery", err, map[string]interface{}{
			"webhook_id": delivery.WebhookID,
			"event":      delivery.Event,
		})
		return fmt.Errorf("failed to create webhook delivery: %w", err)
	}

	return nil
}

// ListByWebhook возвращает записи журнала для вебхука, от новых к старым
func (r *WebhookDeliveryRepository) ListByWebhook(ctx context.Context, webhookID string, limit, offset int) ([]*domain.WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, webhook_id, event, payload, status_code,
		       response_body, success, duration_ms, created_at
		FROM webhook_deliveries
		WHERE webhook_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var deliveries []*domain.WebhookDelivery
	err := r.db.SelectContext(ctx, &deliveries, query, webhookID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list webhook deliveries", err, map[string]interface{}{
			"webhook_id": webhookID,
		})
		return nil, fmt.Errorf("failed to list webhook deliveries: %w", err)
	}

	return deliveries, nil
}
