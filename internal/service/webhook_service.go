package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/messaging"
	"github.com/nurlyy/task_notifier/internal/repository"
	"github.com/nurlyy/task_notifier/internal/repository/cache"
	"github.com/nurlyy/task_notifier/pkg/config"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// Число параллельных публикаций заданий при развертке события
const triggerFanOut = 8

// WebhookService управляет вебхуками и доставляет их получателям.
// Каждая доставка выполняется ровно один раз: исход фиксируется
// в журнале, повторная попытка не предпринимается.
type WebhookService struct {
	webhookRepo  repository.WebhookRepository
	deliveryRepo repository.WebhookDeliveryRepository
	cacheRepo    *cache.RedisRepository
	producer     *messaging.KafkaProducer
	client       *http.Client
	config       *config.WebhookConfig
	logger       logger.Logger
}

// NewWebhookService создает новый экземпляр WebhookService
func NewWebhookService(
	webhookRepo repository.WebhookRepository,
	deliveryRepo repository.WebhookDeliveryRepository,
	cacheRepo *cache.RedisRepository,
	producer *messaging.KafkaProducer,
	config *config.WebhookConfig,
	logger logger.Logger,
) *WebhookService {
	client := &http.Client{
		Timeout: config.Timeout,
	}

	return &WebhookService{
		webhookRepo:  webhookRepo,
		deliveryRepo: deliveryRepo,
		cacheRepo:    cacheRepo,
		producer:     producer,
		client:       client,
		config:       config,
		logger:       logger,
	}
}

// CreateWebhook регистрирует новый вебхук
func (s *WebhookService) CreateWebhook(ctx context.Context, creatorID string, req *domain.WebhookCreateRequest) (*domain.Webhook, error) {
	webhook := &domain.Webhook{
		ID:            uuid.New().String(),
		Name:          req.Name,
		URL:           req.URL,
		Secret:        req.Secret,
		Events:        req.Events,
		IsActive:      true,
		CreatedBy:     creatorID,
		CustomHeaders: req.CustomHeaders,
		CreatedAt:     time.Now(),
	}

	if err := s.webhookRepo.Create(ctx, webhook); err != nil {
		return nil, err
	}

	s.invalidateActiveCache(ctx)

	s.logger.Info("Webhook registered", map[string]interface{}{
		"webhook_id": webhook.ID,
		"url":        webhook.URL,
		"events":     webhook.Events,
	})

	return webhook, nil
}

// GetWebhook возвращает вебхук по ID
func (s *WebhookService) GetWebhook(ctx context.Context, id string) (*domain.Webhook, error) {
	return s.webhookRepo.GetByID(ctx, id)
}

// UpdateWebhook применяет частичное обновление вебхука
func (s *WebhookService) UpdateWebhook(ctx context.Context, id string, req *domain.WebhookUpdateRequest) (*domain.Webhook, error) {
	webhook, err := s.webhookRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		webhook.Name = *req.Name
	}
	if req.URL != nil {
		webhook.URL = *req.URL
	}
	if req.Secret != nil {
		webhook.Secret = *req.Secret
	}
	if req.Events != nil {
		webhook.Events = req.Events
	}
	if req.IsActive != nil {
		webhook.IsActive = *req.IsActive
	}
	if req.CustomHeaders != nil {
		webhook.CustomHeaders = req.CustomHeaders
	}

	if err := s.webhookRepo.Update(ctx, webhook); err != nil {
		return nil, err
	}

	s.invalidateActiveCache(ctx)

	return webhook, nil
}

// DeleteWebhook удаляет вебхук
func (s *WebhookService) DeleteWebhook(ctx context.Context, id string) error {
	if err := s.webhookRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidateActiveCache(ctx)
	return nil
}

// ListWebhooks возвращает вебхуки, созданные пользователем
func (s *WebhookService) ListWebhooks(ctx context.Context, creatorID string) ([]*domain.Webhook, error) {
	return s.webhookRepo.ListByCreator(ctx, creatorID)
}

// ListDeliveries возвращает журнал доставок вебхука
func (s *WebhookService) ListDeliveries(ctx context.Context, webhookID string, limit, offset int) ([]*domain.WebhookDelivery, error) {
	if _, err := s.webhookRepo.GetByID(ctx, webhookID); err != nil {
		return nil, err
	}

	return s.deliveryRepo.ListByWebhook(ctx, webhookID, limit, offset)
}

// SendTest отправляет получателю синтетическое тестовое событие
// и возвращает запись журнала доставки. Работает и для неактивных
// вебхуков, чтобы конфигурацию можно было проверить до включения.
func (s *WebhookService) SendTest(ctx context.Context, id string) (*domain.WebhookDelivery, error) {
	webhook, err := s.webhookRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	payload := domain.NewWebhookPayload(domain.EventWebhookTest, map[string]interface{}{
		"webhook_id":   webhook.ID,
		"webhook_name": webhook.Name,
	}, time.Now())
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal test payload: %w", err)
	}

	statusCode, responseBody, durationMs := s.post(ctx, webhook, body)
	success := deliverySucceeded(statusCode)

	delivery := &domain.WebhookDelivery{
		ID:           uuid.New().String(),
		WebhookID:    webhook.ID,
		Event:        string(domain.EventWebhookTest),
		Payload:      body,
		StatusCode:   statusCode,
		ResponseBody: responseBody,
		Success:      success,
		DurationMs:   &durationMs,
		CreatedAt:    time.Now(),
	}

	if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
		s.logger.Error("Failed to record test delivery", err, map[string]interface{}{
			"webhook_id": webhook.ID,
		})
	}

	return delivery, nil
}

// Trigger разворачивает доменное событие в задания на доставку:
// по одному заданию на каждый подписанный активный вебхук.
// Возвращает число опубликованных заданий.
func (s *WebhookService) Trigger(ctx context.Context, event *domain.DomainEvent) (int, error) {
	webhooks, err := s.activeWebhooks(ctx)
	if err != nil {
		return 0, err
	}

	var matched []*domain.Webhook
	for _, webhook := range webhooks {
		if webhook.ShouldTrigger(event.Type) {
			matched = append(matched, webhook)
		}
	}

	if len(matched) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(triggerFanOut)

	for _, webhook := range matched {
		webhook := webhook
		g.Go(func() error {
			job := &messaging.WebhookJob{
				WebhookID:  webhook.ID,
				Event:      string(event.Type),
				Data:       event.Data,
				EnqueuedAt: time.Now(),
			}
			return s.producer.PublishWebhookJob(gctx, job)
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	s.logger.Debug("Webhook jobs published", map[string]interface{}{
		"event_type": event.Type,
		"count":      len(matched),
	})

	return len(matched), nil
}

// Deliver выполняет одно задание на доставку вебхука.
// Любой исход, кроме 2xx, считается неудачей; запись журнала
// создается всегда. Ошибка возвращается только при сбое
// инфраструктуры, а не получателя.
func (s *WebhookService) Deliver(ctx context.Context, job *messaging.WebhookJob) error {
	webhook, err := s.webhookRepo.GetByID(ctx, job.WebhookID)
	if err != nil {
		return fmt.Errorf("failed to load webhook %s: %w", job.WebhookID, err)
	}

	if !webhook.IsActive {
		s.logger.Debug("Skipping delivery for inactive webhook", map[string]interface{}{
			"webhook_id": webhook.ID,
		})
		return nil
	}

	payload := domain.NewWebhookPayload(domain.EventType(job.Event), job.Data, time.Now())
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	statusCode, responseBody, durationMs := s.post(ctx, webhook, body)
	success := deliverySucceeded(statusCode)

	delivery := &domain.WebhookDelivery{
		ID:           uuid.New().String(),
		WebhookID:    webhook.ID,
		Event:        job.Event,
		Payload:      body,
		StatusCode:   statusCode,
		ResponseBody: responseBody,
		Success:      success,
		DurationMs:   &durationMs,
		CreatedAt:    time.Now(),
	}

	if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
		s.logger.Error("Failed to record webhook delivery", err, map[string]interface{}{
			"webhook_id": webhook.ID,
		})
	}

	if err := s.webhookRepo.RecordTrigger(ctx, webhook.ID, delivery.CreatedAt, success); err != nil {
		s.logger.Error("Failed to update webhook counters", err, map[string]interface{}{
			"webhook_id": webhook.ID,
		})
	}

	if !success {
		s.logger.Warn("Webhook delivery failed", map[string]interface{}{
			"webhook_id":  webhook.ID,
			"event":       job.Event,
			"status_code": statusCode,
		})
	}

	return nil
}

// post выполняет один подписанный POST-запрос получателю.
// Код 0 означает транспортную ошибку до получения ответа.
func (s *WebhookService) post(ctx context.Context, webhook *domain.Webhook, body []byte) (statusCode int, responseBody string, durationMs int) {
	reqCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, webhook.URL, bytes.NewReader(body))
	if err != nil {
		return 0, truncate(err.Error(), s.config.MaxResponseBytes), int(time.Since(start).Milliseconds())
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.config.UserAgent)
	if signature := webhook.GenerateSignature(body); signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	for key, value := range webhook.CustomHeaders {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, truncate(err.Error(), s.config.MaxResponseBytes), int(time.Since(start).Milliseconds())
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, int64(s.config.MaxResponseBytes)))

	return resp.StatusCode, string(respBody), int(time.Since(start).Milliseconds())
}

// activeWebhooks возвращает активные вебхуки, по возможности из кэша
func (s *WebhookService) activeWebhooks(ctx context.Context) ([]*domain.Webhook, error) {
	if s.cacheRepo != nil {
		if webhooks, err := s.cacheRepo.GetActiveWebhooks(ctx); err == nil {
			return webhooks, nil
		}
	}

	webhooks, err := s.webhookRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.CacheActiveWebhooks(ctx, webhooks); err != nil {
			s.logger.Warn("Failed to cache active webhooks", nil)
		}
	}

	return webhooks, nil
}

func (s *WebhookService) invalidateActiveCache(ctx context.Context) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.InvalidateActiveWebhooks(ctx); err != nil {
		s.logger.Warn("Failed to invalidate webhook cache", nil)
	}
}

// deliverySucceeded трактует любой ответ со статусом до 400 как успех.
// Код 0 означает транспортную ошибку до получения ответа.
func deliverySucceeded(statusCode int) bool {
	return statusCode > 0 && statusCode < 400
}

// truncate обрезает строку до limit байт
func truncate(s string, limit int) string {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
