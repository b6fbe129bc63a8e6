package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/messaging"
	"github.com/nurlyy/task_notifier/pkg/config"
)

func newTestWebhookService(webhookRepo *fakeWebhookRepo, deliveryRepo *fakeDeliveryRepo) *WebhookService {
	cfg := &config.WebhookConfig{
		Timeout:          2 * time.Second,
		UserAgent:        "TaskNotifier-Webhook/1.0",
		MaxResponseBytes: 1000,
	}
	return NewWebhookService(webhookRepo, deliveryRepo, nil, nil, cfg, testLogger())
}

func TestDeliverSignsPayload(t *testing.T) {
	var (
		gotSignature string
		gotUserAgent string
		gotHeader    string
		gotBody      []byte
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Webhook-Signature")
		gotUserAgent = r.Header.Get("User-Agent")
		gotHeader = r.Header.Get("X-Custom")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"received":true}`))
	}))
	defer server.Close()

	webhookRepo := newFakeWebhookRepo()
	deliveryRepo := &fakeDeliveryRepo{}
	webhook := &domain.Webhook{
		ID:            "wh-1",
		URL:           server.URL,
		Secret:        "top-secret",
		IsActive:      true,
		CustomHeaders: map[string]string{"X-Custom": "value"},
	}
	require.NoError(t, webhookRepo.Create(context.Background(), webhook))

	svc := newTestWebhookService(webhookRepo, deliveryRepo)
	job := &messaging.WebhookJob{
		WebhookID: "wh-1",
		Event:     "task.created",
		Data:      map[string]interface{}{"task_id": "task-1"},
	}

	require.NoError(t, svc.Deliver(context.Background(), job))

	assert.Equal(t, webhook.GenerateSignature(gotBody), gotSignature)
	assert.True(t, strings.HasPrefix(gotSignature, "sha256="))
	assert.Equal(t, "TaskNotifier-Webhook/1.0", gotUserAgent)
	assert.Equal(t, "value", gotHeader)

	var payload domain.WebhookPayload
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "task.created", payload.Event)
	assert.Equal(t, "task-1", payload.Data["task_id"])

	require.Len(t, deliveryRepo.deliveries, 1)
	delivery := deliveryRepo.deliveries[0]
	assert.True(t, delivery.Success)
	assert.Equal(t, http.StatusOK, delivery.StatusCode)
	assert.Equal(t, `{"received":true}`, delivery.ResponseBody)

	require.Len(t, webhookRepo.triggers, 1)
	assert.True(t, webhookRepo.triggers[0])
}

func TestDeliverWithoutSecretOmitsSignature(t *testing.T) {
	var hasSignature bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasSignature = r.Header["X-Webhook-Signature"]
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	webhookRepo := newFakeWebhookRepo()
	require.NoError(t, webhookRepo.Create(context.Background(), &domain.Webhook{
		ID:       "wh-1",
		URL:      server.URL,
		IsActive: true,
	}))

	svc := newTestWebhookService(webhookRepo, &fakeDeliveryRepo{})
	require.NoError(t, svc.Deliver(context.Background(), &messaging.WebhookJob{WebhookID: "wh-1", Event: "task.created"}))

	assert.False(t, hasSignature)
}

func TestDeliverTruncatesResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(strings.Repeat("x", 5000)))
	}))
	defer server.Close()

	webhookRepo := newFakeWebhookRepo()
	deliveryRepo := &fakeDeliveryRepo{}
	require.NoError(t, webhookRepo.Create(context.Background(), &domain.Webhook{
		ID:       "wh-1",
		URL:      server.URL,
		IsActive: true,
	}))

	svc := newTestWebhookService(webhookRepo, deliveryRepo)
	require.NoError(t, svc.Deliver(context.Background(), &messaging.WebhookJob{WebhookID: "wh-1", Event: "task.created"}))

	require.Len(t, deliveryRepo.deliveries, 1)
	delivery := deliveryRepo.deliveries[0]
	assert.False(t, delivery.Success)
	assert.Equal(t, http.StatusBadRequest, delivery.StatusCode)
	assert.Len(t, delivery.ResponseBody, 1000)

	require.Len(t, webhookRepo.triggers, 1)
	assert.False(t, webhookRepo.triggers[0])
}

func TestDeliverNonErrorStatusCountsAsSuccess(t *testing.T) {
	// Успехом считается любой статус до 400, включая редиректы
	for _, statusCode := range []int{http.StatusCreated, http.StatusFound, 399} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(statusCode)
		}))

		webhookRepo := newFakeWebhookRepo()
		deliveryRepo := &fakeDeliveryRepo{}
		require.NoError(t, webhookRepo.Create(context.Background(), &domain.Webhook{
			ID:       "wh-1",
			URL:      server.URL,
			IsActive: true,
		}))

		svc := newTestWebhookService(webhookRepo, deliveryRepo)
		require.NoError(t, svc.Deliver(context.Background(), &messaging.WebhookJob{WebhookID: "wh-1", Event: "task.created"}))
		server.Close()

		require.Len(t, deliveryRepo.deliveries, 1)
		delivery := deliveryRepo.deliveries[0]
		assert.True(t, delivery.Success, "статус %d должен считаться успехом", statusCode)
		assert.Equal(t, statusCode, delivery.StatusCode)

		require.Len(t, webhookRepo.triggers, 1)
		assert.True(t, webhookRepo.triggers[0])
	}
}

func TestDeliverTransportError(t *testing.T) {
	// Сервер закрыт до доставки
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	webhookRepo := newFakeWebhookRepo()
	deliveryRepo := &fakeDeliveryRepo{}
	require.NoError(t, webhookRepo.Create(context.Background(), &domain.Webhook{
		ID:       "wh-1",
		URL:      url,
		IsActive: true,
	}))

	svc := newTestWebhookService(webhookRepo, deliveryRepo)
	require.NoError(t, svc.Deliver(context.Background(), &messaging.WebhookJob{WebhookID: "wh-1", Event: "task.created"}))

	require.Len(t, deliveryRepo.deliveries, 1)
	delivery := deliveryRepo.deliveries[0]
	assert.False(t, delivery.Success)
	assert.Equal(t, 0, delivery.StatusCode, "код 0 означает транспортную ошибку")
	assert.NotEmpty(t, delivery.ResponseBody)
}

func TestDeliverSkipsInactiveWebhook(t *testing.T) {
	webhookRepo := newFakeWebhookRepo()
	deliveryRepo := &fakeDeliveryRepo{}
	require.NoError(t, webhookRepo.Create(context.Background(), &domain.Webhook{
		ID:       "wh-1",
		URL:      "http://localhost:1",
		IsActive: false,
	}))

	svc := newTestWebhookService(webhookRepo, deliveryRepo)
	require.NoError(t, svc.Deliver(context.Background(), &messaging.WebhookJob{WebhookID: "wh-1", Event: "task.created"}))

	assert.Empty(t, deliveryRepo.deliveries)
	assert.Empty(t, webhookRepo.triggers)
}

func TestDeliverUnknownWebhook(t *testing.T) {
	svc := newTestWebhookService(newFakeWebhookRepo(), &fakeDeliveryRepo{})

	err := svc.Deliver(context.Background(), &messaging.WebhookJob{WebhookID: "missing", Event: "task.created"})
	assert.Error(t, err)
}

func TestSendTestDeliversSyntheticEvent(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	webhookRepo := newFakeWebhookRepo()
	deliveryRepo := &fakeDeliveryRepo{}
	// Неактивный вебхук тоже можно проверить тестовым событием
	require.NoError(t, webhookRepo.Create(context.Background(), &domain.Webhook{
		ID:       "wh-test",
		Name:     "Staging приемник",
		URL:      server.URL,
		IsActive: false,
	}))

	svc := newTestWebhookService(webhookRepo, deliveryRepo)

	delivery, err := svc.SendTest(context.Background(), "wh-test")
	require.NoError(t, err)

	assert.Equal(t, "webhook.test", delivery.Event)
	assert.True(t, delivery.Success)
	assert.Equal(t, http.StatusOK, delivery.StatusCode)

	var payload domain.WebhookPayload
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "webhook.test", payload.Event)
	assert.Equal(t, "wh-test", payload.Data["webhook_id"])
	assert.Equal(t, "Staging приемник", payload.Data["webhook_name"])

	// Журнал пополняется, счетчики срабатываний не трогаются
	require.Len(t, deliveryRepo.deliveries, 1)
	assert.Empty(t, webhookRepo.triggers)

	_, err = svc.SendTest(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateWebhook(t *testing.T) {
	webhookRepo := newFakeWebhookRepo()
	svc := newTestWebhookService(webhookRepo, &fakeDeliveryRepo{})

	webhook, err := svc.CreateWebhook(context.Background(), "admin-1", &domain.WebhookCreateRequest{
		Name:   "CI интеграция",
		URL:    "https://ci.example.com/hook",
		Secret: "s3cret",
		Events: []string{"task.completed"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, webhook.ID)
	assert.Equal(t, "admin-1", webhook.CreatedBy)
	assert.True(t, webhook.IsActive)

	stored, err := webhookRepo.GetByID(context.Background(), webhook.ID)
	require.NoError(t, err)
	assert.Equal(t, "CI интеграция", stored.Name)
}
