package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/service"
	"github.com/nurlyy/task_notifier/pkg/auth"
)

// WebhookHandler обрабатывает запросы, связанные с вебхуками
type WebhookHandler struct {
	BaseHandler
	webhookService *service.WebhookService
	roleChecker    auth.RoleChecker
}

// NewWebhookHandler создает новый экземпляр WebhookHandler
func NewWebhookHandler(base BaseHandler, webhookService *service.WebhookService, roleChecker auth.RoleChecker) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    base,
		webhookService: webhookService,
		roleChecker:    roleChecker,
	}
}

// requireManager проверяет, что текущий пользователь может управлять вебхуками
func (h *WebhookHandler) requireManager(w http.ResponseWriter, r *http.Request) bool {
	role := h.GetUserRoleFromContext(r)
	if !h.roleChecker.HasRole(role, auth.RoleAdmin, auth.RoleManager) {
		h.RespondWithError(w, r, http.StatusForbidden, "Insufficient permissions to manage webhooks", "insufficient_permissions")
		return false
	}
	return true
}

// CreateWebhook регистрирует новый вебхук
func (h *WebhookHandler) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	userID, err := h.GetUserIDFromContext(r)
	if err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	// Управление вебхуками доступно администраторам и менеджерам
	if !h.requireManager(w, r) {
		return
	}

	// Разбираем запрос
	var req domain.WebhookCreateRequest
	if err := h.ParseJSON(r, &req); err != nil {
		h.Logger.Error("Failed to parse webhook create request", err)
		h.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format", "invalid_format")
		return
	}

	// Валидируем запрос
	if validationErrors, err := h.ValidateRequest(req); err != nil {
		h.Logger.Error("Failed to validate webhook create request", err)
		h.RespondWithError(w, r, http.StatusInternalServerError, "Validation error", "validation_error")
		return
	} else if len(validationErrors) > 0 {
		h.RespondWithValidationErrors(w, r, validationErrors)
		return
	}

	// Создаем вебхук
	webhook, err := h.webhookService.CreateWebhook(r.Context(), userID, &req)
	if err != nil {
		h.Logger.Error("Failed to create webhook", err, map[string]interface{}{"user_id": userID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to create webhook", "webhook_create_failed")
		return
	}

	h.Respond(w, r, http.StatusCreated, StandardResponseData{
		Success: true,
		Data:    webhook,
	})
}

// GetWebhook возвращает информацию о вебхуке по ID
func (h *WebhookHandler) GetWebhook(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	if _, err := h.GetUserIDFromContext(r); err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	// Получаем ID вебхука из URL
	webhookID := h.GetURLParam(r, "id")
	if webhookID == "" {
		h.RespondWithError(w, r, http.StatusBadRequest, "Webhook ID is required", "missing_id")
		return
	}

	// Получаем данные вебхука
	webhook, err := h.webhookService.GetWebhook(r.Context(), webhookID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.RespondWithError(w, r, http.StatusNotFound, "Webhook not found", "webhook_not_found")
			return
		}
		h.Logger.Error("Failed to get webhook", err, map[string]interface{}{"id": webhookID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to get webhook info", "webhook_fetch_failed")
		return
	}

	h.RespondWithSuccess(w, r, webhook)
}

// TestWebhook отправляет получателю тестовое событие и возвращает
// результат доставки
func (h *WebhookHandler) TestWebhook(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	if _, err := h.GetUserIDFromContext(r); err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	if !h.requireManager(w, r) {
		return
	}

	// Получаем ID вебхука из URL
	webhookID := h.GetURLParam(r, "id")
	if webhookID == "" {
		h.RespondWithError(w, r, http.StatusBadRequest, "Webhook ID is required", "missing_id")
		return
	}

	delivery, err := h.webhookService.SendTest(r.Context(), webhookID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.RespondWithError(w, r, http.StatusNotFound, "Webhook not found", "webhook_not_found")
			return
		}
		h.Logger.Error("Failed to send test webhook", err, map[string]interface{}{"id": webhookID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to send test event", "webhook_test_failed")
		return
	}

	h.RespondWithSuccess(w, r, delivery)
}

// UpdateWebhook обновляет параметры вебхука
func (h *WebhookHandler) UpdateWebhook(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	if _, err := h.GetUserIDFromContext(r); err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	// Управление вебхуками доступно администраторам и менеджерам
	if !h.requireManager(w, r) {
		return
	}

	// Получаем ID вебхука из URL
	webhookID := h.GetURLParam(r, "id")
	if webhookID == "" {
		h.RespondWithError(w, r, http.StatusBadRequest, "Webhook ID is required", "missing_id")
		return
	}

	// Разбираем запрос
	var req domain.WebhookUpdateRequest
	if err := h.ParseJSON(r, &req); err != nil {
		h.Logger.Error("Failed to parse webhook update request", err)
		h.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format", "invalid_format")
		return
	}

	// Валидируем запрос
	if validationErrors, err := h.ValidateRequest(req); err != nil {
		h.Logger.Error("Failed to validate webhook update request", err)
		h.RespondWithError(w, r, http.StatusInternalServerError, "Validation error", "validation_error")
		return
	} else if len(validationErrors) > 0 {
		h.RespondWithValidationErrors(w, r, validationErrors)
		return
	}

	// Обновляем вебхук
	webhook, err := h.webhookService.UpdateWebhook(r.Context(), webhookID, &req)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.RespondWithError(w, r, http.StatusNotFound, "Webhook not found", "webhook_not_found")
			return
		}
		h.Logger.Error("Failed to update webhook", err, map[string]interface{}{"id": webhookID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to update webhook", "webhook_update_failed")
		return
	}

	h.RespondWithSuccess(w, r, webhook)
}

// DeleteWebhook удаляет вебхук
func (h *WebhookHandler) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	if _, err := h.GetUserIDFromContext(r); err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	// Управление вебхуками доступно администраторам и менеджерам
	if !h.requireManager(w, r) {
		return
	}

	// Получаем ID вебхука из URL
	webhookID := h.GetURLParam(r, "id")
	if webhookID == "" {
		h.RespondWithError(w, r, http.StatusBadRequest, "Webhook ID is required", "missing_id")
		return
	}

	// Удаляем вебхук
	if err := h.webhookService.DeleteWebhook(r.Context(), webhookID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.RespondWithError(w, r, http.StatusNotFound, "Webhook not found", "webhook_not_found")
			return
		}
		h.Logger.Error("Failed to delete webhook", err, map[string]interface{}{"id": webhookID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to delete webhook", "webhook_delete_failed")
		return
	}

	h.RespondWithSuccess(w, r, map[string]bool{"success": true})
}

// ListWebhooks возвращает вебхуки, созданные текущим пользователем
func (h *WebhookHandler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	userID, err := h.GetUserIDFromContext(r)
	if err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	// Получаем список вебхуков
	webhooks, err := h.webhookService.ListWebhooks(r.Context(), userID)
	if err != nil {
		h.Logger.Error("Failed to list webhooks", err, map[string]interface{}{"user_id": userID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to get webhooks", "webhooks_fetch_failed")
		return
	}

	h.RespondWithSuccess(w, r, webhooks)
}

// ListDeliveries возвращает журнал доставок вебхука
func (h *WebhookHandler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	if _, err := h.GetUserIDFromContext(r); err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	// Получаем ID вебхука из URL
	webhookID := h.GetURLParam(r, "id")
	if webhookID == "" {
		h.RespondWithError(w, r, http.StatusBadRequest, "Webhook ID is required", "missing_id")
		return
	}

	// Лимит записей журнала
	limit := 50
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	offset := 0
	if offsetParam := r.URL.Query().Get("offset"); offsetParam != "" {
		if parsed, err := strconv.Atoi(offsetParam); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	// Получаем журнал доставок
	deliveries, err := h.webhookService.ListDeliveries(r.Context(), webhookID, limit, offset)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.RespondWithError(w, r, http.StatusNotFound, "Webhook not found", "webhook_not_found")
			return
		}
		h.Logger.Error("Failed to list webhook deliveries", err, map[string]interface{}{"id": webhookID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to get webhook deliveries", "deliveries_fetch_failed")
		return
	}

	h.RespondWithSuccess(w, r, deliveries)
}
