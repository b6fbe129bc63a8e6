package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/repository"
	"github.com/nurlyy/task_notifier/internal/service"
)

// NotificationHandler обрабатывает запросы, связанные с уведомлениями
type NotificationHandler struct {
	BaseHandler
	notificationService *service.NotificationService
}

// NewNotificationHandler создает новый экземпляр NotificationHandler
func NewNotificationHandler(base BaseHandler, notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler:         base,
		notificationService: notificationService,
	}
}

// ListNotifications возвращает список уведомлений пользователя
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	userID, err := h.GetUserIDFromContext(r)
	if err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	// Параметры пагинации
	page, pageSize := h.GetPaginationParams(r)

	// Создаем фильтр
	var filter repository.NotificationFilter

	// Фильтр по статусу
	if status := r.URL.Query().Get("status"); status != "" {
		notificationStatus := domain.NotificationStatus(status)
		filter.Status = &notificationStatus
	}

	// Фильтр по типам, параметр может повторяться
	for _, typeName := range r.URL.Query()["type"] {
		filter.Types = append(filter.Types, domain.NotificationType(typeName))
	}

	// Фильтр по датам
	if from := r.URL.Query().Get("from"); from != "" {
		if parsed, err := time.Parse(time.RFC3339, from); err == nil {
			filter.StartDate = &parsed
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if parsed, err := time.Parse(time.RFC3339, to); err == nil {
			filter.EndDate = &parsed
		}
	}

	// Получаем список уведомлений
	result, err := h.notificationService.GetUserNotifications(r.Context(), userID, filter, page, pageSize)
	if err != nil {
		h.Logger.Error("Failed to list notifications", err, map[string]interface{}{"user_id": userID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to get notifications", "notifications_fetch_failed")
		return
	}

	h.RespondWithPagination(w, r, result.Items, result)
}

// GetUnreadCount возвращает количество непрочитанных уведомлений
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	userID, err := h.GetUserIDFromContext(r)
	if err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	// Получаем количество непрочитанных уведомлений
	count, err := h.notificationService.GetUnreadCount(r.Context(), userID)
	if err != nil {
		h.Logger.Error("Failed to get unread notifications count", err, map[string]interface{}{"user_id": userID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to get unread count", "unread_count_failed")
		return
	}

	h.RespondWithSuccess(w, r, map[string]int{"count": count})
}

// MarkAsRead отмечает уведомление как прочитанное
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	userID, err := h.GetUserIDFromContext(r)
	if err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	// Получаем ID уведомления из URL
	notificationID := h.GetURLParam(r, "id")
	if notificationID == "" {
		h.RespondWithError(w, r, http.StatusBadRequest, "Notification ID is required", "missing_id")
		return
	}

	// Отмечаем уведомление как прочитанное
	if err := h.notificationService.MarkAsRead(r.Context(), notificationID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.RespondWithError(w, r, http.StatusNotFound, "Notification not found", "notification_not_found")
			return
		}
		if errors.Is(err, domain.ErrForbidden) {
			h.RespondWithError(w, r, http.StatusForbidden, "Access denied", "access_denied")
			return
		}
		h.Logger.Error("Failed to mark notification as read", err, map[string]interface{}{"id": notificationID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to mark notification as read", "mark_read_failed")
		return
	}

	h.RespondWithSuccess(w, r, map[string]bool{"success": true})
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные
func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	userID, err := h.GetUserIDFromContext(r)
	if err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	// Отмечаем все уведомления как прочитанные
	if err := h.notificationService.MarkAllAsRead(r.Context(), userID); err != nil {
		h.Logger.Error("Failed to mark all notifications as read", err, map[string]interface{}{"user_id": userID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to mark all notifications as read", "mark_all_read_failed")
		return
	}

	h.RespondWithSuccess(w, r, map[string]bool{"success": true})
}
