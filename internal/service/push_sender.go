package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/pkg/config"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// PushSender доставляет уведомления через внешний шлюз мобильных
// push и SMS. Шлюз сам выбирает транспорт по токену устройства.
type PushSender struct {
	gatewayURL string
	apiKey     string
	client     *http.Client
	logger     logger.Logger
}

// pushRequest представляет тело запроса к шлюзу
type pushRequest struct {
	DeviceToken string            `json:"device_token"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
}

// pushResponse представляет ответ шлюза
type pushResponse struct {
	Ok          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// NewPushSender создает новый экземпляр PushSender
func NewPushSender(cfg *config.PushConfig, logger logger.Logger) *PushSender {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	return &PushSender{
		gatewayURL: cfg.GatewayURL,
		apiKey:     cfg.APIKey,
		client:     client,
		logger:     logger,
	}
}

// Channel возвращает канал доставки
func (s *PushSender) Channel() domain.NotificationChannel {
	return domain.ChannelSMS
}

// Send отправляет уведомление на устройство пользователя
func (s *PushSender) Send(ctx context.Context, user *domain.User, entry *domain.QueuedNotification) error {
	if s.gatewayURL == "" {
		return fmt.Errorf("push gateway is not configured")
	}
	if user.DeviceToken == nil || *user.DeviceToken == "" {
		return fmt.Errorf("user %s has no registered device", user.ID)
	}

	body, err := json.Marshal(pushRequest{
		DeviceToken: *user.DeviceToken,
		Title:       entry.Title,
		Body:        entry.Message,
		Data:        entry.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call push gateway: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}

	var gatewayResp pushResponse
	if err := json.Unmarshal(respBody, &gatewayResp); err == nil && !gatewayResp.Ok {
		return fmt.Errorf("push gateway rejected message: %s", gatewayResp.Description)
	}

	s.logger.Debug("Push notification sent", map[string]interface{}{
		"user_id": user.ID,
		"type":    entry.NotificationType,
	})

	return nil
}
