package domain

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Webhook представляет зарегистрированный HTTP-колбэк на доменные события
type Webhook struct {
	ID        string   `json:"id" db:"id"`
	Name      string   `json:"name" db:"name"`
	URL       string   `json:"url" db:"url"`
	Secret    string   `json:"-" db:"secret"`
	Events    []string `json:"events" db:"-"`
	IsActive  bool     `json:"is_active" db:"is_active"`
	CreatedBy string   `json:"created_by" db:"created_by"`

	// Дополнительные заголовки исходящего запроса
	CustomHeaders map[string]string `json:"custom_headers,omitempty" db:"-"`

	// Счетчики доставки
	TriggerCount  int        `json:"trigger_count" db:"trigger_count"`
	FailureCount  int        `json:"failure_count" db:"failure_count"`
	LastTriggered *time.Time `json:"last_triggered,omitempty" db:"last_triggered"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ShouldTrigger проверяет, нужно ли вызывать вебхук для события
func (w *Webhook) ShouldTrigger(event EventType) bool {
	if !w.IsActive {
		return false
	}
	for _, e := range w.Events {
		if e == EventWildcard || e == string(event) {
			return true
		}
	}
	return false
}

// WebhookPayload представляет тело исходящего запроса вебхука
type WebhookPayload struct {
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewWebhookPayload собирает тело запроса для события
func NewWebhookPayload(event EventType, data map[string]interface{}, now time.Time) WebhookPayload {
	return WebhookPayload{
		Event:     string(event),
		Timestamp: now.UTC().Format(time.RFC3339),
		Data:      data,
	}
}

// GenerateSignature вычисляет HMAC-SHA256 подпись для тела запроса.
// Возвращает пустую строку, если секрет не задан.
func (w *Webhook) GenerateSignature(payload []byte) string {
	if w.Secret == "" {
		return ""
	}

	mac := hmac.New(sha256.New, []byte(w.Secret))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}

// WebhookDelivery представляет неизменяемую запись журнала о попытке
// доставки. Создается для каждого вызова независимо от исхода.
type WebhookDelivery struct {
	ID           string          `json:"id" db:"id"`
	WebhookID    string          `json:"webhook_id" db:"webhook_id"`
	Event        string          `json:"event" db:"event"`
	Payload      json.RawMessage `json:"payload" db:"payload"`
	StatusCode   int             `json:"status_code" db:"status_code"` // 0 при транспортной ошибке
	ResponseBody string          `json:"response_body" db:"response_body"`
	Success      bool            `json:"success" db:"success"`
	DurationMs   *int            `json:"duration_ms,omitempty" db:"duration_ms"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// WebhookCreateRequest представляет данные для регистрации вебхука
type WebhookCreateRequest struct {
	Name          string            `json:"name" validate:"required,max=200"`
	URL           string            `json:"url" validate:"required,url,max=500"`
	Secret        string            `json:"secret" validate:"omitempty,max=100"`
	Events        []string          `json:"events" validate:"required,min=1,dive,webhook_event"`
	CustomHeaders map[string]string `json:"custom_headers,omitempty"`
}

// WebhookUpdateRequest представляет данные для обновления вебхука
type WebhookUpdateRequest struct {
	Name          *string           `json:"name,omitempty" validate:"omitempty,max=200"`
	URL           *string           `json:"url,omitempty" validate:"omitempty,url,max=500"`
	Secret        *string           `json:"secret,omitempty" validate:"omitempty,max=100"`
	Events        []string          `json:"events,omitempty" validate:"omitempty,min=1,dive,webhook_event"`
	IsActive      *bool             `json:"is_active,omitempty"`
	CustomHeaders map[string]string `json:"custom_headers,omitempty"`
}
