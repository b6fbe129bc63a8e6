package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/repository"
	"github.com/nurlyy/task_notifier/internal/service"
)

// ReminderHandler обрабатывает запросы, связанные с напоминаниями
type ReminderHandler struct {
	BaseHandler
	reminderService *service.ReminderService
}

// NewReminderHandler создает новый экземпляр ReminderHandler
func NewReminderHandler(base BaseHandler, reminderService *service.ReminderService) *ReminderHandler {
	return &ReminderHandler{
		BaseHandler:     base,
		reminderService: reminderService,
	}
}

// CreateTaskReminders создает цепочку напоминаний для задачи
func (h *ReminderHandler) CreateTaskReminders(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	if _, err := h.GetUserIDFromContext(r); err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	// Получаем ID задачи из URL
	taskID := h.GetURLParam(r, "task_id")
	if taskID == "" {
		h.RespondWithError(w, r, http.StatusBadRequest, "Task ID is required", "missing_task_id")
		return
	}

	// Создаем напоминания
	created, err := h.reminderService.CreateSmartReminders(r.Context(), taskID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.RespondWithError(w, r, http.StatusNotFound, "Task not found", "task_not_found")
			return
		}
		h.Logger.Error("Failed to create task reminders", err, map[string]interface{}{"task_id": taskID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to create reminders", "reminders_create_failed")
		return
	}

	h.Respond(w, r, http.StatusCreated, StandardResponseData{
		Success: true,
		Data:    map[string]int{"created": created},
	})
}

// ListReminders возвращает напоминания текущего пользователя
func (h *ReminderHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	userID, err := h.GetUserIDFromContext(r)
	if err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	// Создаем фильтр
	var filter repository.ReminderFilter

	// Фильтр по задаче
	if taskID := r.URL.Query().Get("task_id"); taskID != "" {
		filter.TaskID = &taskID
	}

	// Фильтр по статусу отправки
	if sentParam := r.URL.Query().Get("is_sent"); sentParam != "" {
		if isSent, err := strconv.ParseBool(sentParam); err == nil {
			filter.IsSent = &isSent
		}
	}

	// Фильтр по сроку срабатывания
	if before := r.URL.Query().Get("before"); before != "" {
		if parsed, err := time.Parse(time.RFC3339, before); err == nil {
			filter.Before = &parsed
		}
	}

	// Пагинация поверх фильтра
	page, pageSize := h.GetPaginationParams(r)
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	// Получаем список напоминаний
	reminders, err := h.reminderService.GetUserReminders(r.Context(), userID, filter)
	if err != nil {
		h.Logger.Error("Failed to list reminders", err, map[string]interface{}{"user_id": userID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to get reminders", "reminders_fetch_failed")
		return
	}

	h.RespondWithSuccess(w, r, reminders)
}

// SnoozeReminder откладывает напоминание на указанное число минут
func (h *ReminderHandler) SnoozeReminder(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	userID, err := h.GetUserIDFromContext(r)
	if err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	// Получаем ID напоминания из URL
	reminderID := h.GetURLParam(r, "id")
	if reminderID == "" {
		h.RespondWithError(w, r, http.StatusBadRequest, "Reminder ID is required", "missing_id")
		return
	}

	// Разбираем запрос, пустое тело допустимо
	var req domain.SnoozeRequest
	if r.ContentLength > 0 {
		if err := h.ParseJSON(r, &req); err != nil {
			h.Logger.Error("Failed to parse snooze request", err)
			h.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format", "invalid_format")
			return
		}
	}

	// Валидируем запрос
	if validationErrors, err := h.ValidateRequest(req); err != nil {
		h.Logger.Error("Failed to validate snooze request", err)
		h.RespondWithError(w, r, http.StatusInternalServerError, "Validation error", "validation_error")
		return
	} else if len(validationErrors) > 0 {
		h.RespondWithValidationErrors(w, r, validationErrors)
		return
	}

	// Откладываем напоминание
	reminder, err := h.reminderService.SnoozeReminder(r.Context(), reminderID, userID, req.Minutes)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.RespondWithError(w, r, http.StatusNotFound, "Reminder not found", "reminder_not_found")
			return
		}
		if errors.Is(err, domain.ErrForbidden) {
			h.RespondWithError(w, r, http.StatusForbidden, "Access denied", "access_denied")
			return
		}
		if errors.Is(err, domain.ErrConflict) {
			h.RespondWithError(w, r, http.StatusConflict, "Reminder already sent", "reminder_already_sent")
			return
		}
		h.Logger.Error("Failed to snooze reminder", err, map[string]interface{}{"id": reminderID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to snooze reminder", "snooze_failed")
		return
	}

	h.RespondWithSuccess(w, r, reminder)
}
