package handlers

import (
	"net/http"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/service"
)

// PreferenceHandler обрабатывает запросы, связанные с настройками уведомлений
type PreferenceHandler struct {
	BaseHandler
	preferenceService *service.PreferenceService
}

// NewPreferenceHandler создает новый экземпляр PreferenceHandler
func NewPreferenceHandler(base BaseHandler, preferenceService *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{
		BaseHandler:       base,
		preferenceService: preferenceService,
	}
}

// GetPreferences возвращает настройки уведомлений текущего пользователя
func (h *PreferenceHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	userID, err := h.GetUserIDFromContext(r)
	if err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	// При первом обращении настройки создаются со значениями по умолчанию
	preferences, err := h.preferenceService.GetPreferences(r.Context(), userID)
	if err != nil {
		h.Logger.Error("Failed to get notification preferences", err, map[string]interface{}{"user_id": userID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to get notification preferences", "preferences_fetch_failed")
		return
	}

	h.RespondWithSuccess(w, r, preferences)
}

// UpdatePreferences обновляет настройки уведомлений текущего пользователя
func (h *PreferenceHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	// Получаем ID пользователя из контекста
	userID, err := h.GetUserIDFromContext(r)
	if err != nil {
		h.RespondWithError(w, r, http.StatusUnauthorized, "Unauthorized", "unauthorized")
		return
	}

	// Разбираем запрос
	var req domain.PreferenceUpdateRequest
	if err := h.ParseJSON(r, &req); err != nil {
		h.Logger.Error("Failed to parse preference update request", err)
		h.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format", "invalid_format")
		return
	}

	// Валидируем запрос
	if validationErrors, err := h.ValidateRequest(req); err != nil {
		h.Logger.Error("Failed to validate preference update request", err)
		h.RespondWithError(w, r, http.StatusInternalServerError, "Validation error", "validation_error")
		return
	} else if len(validationErrors) > 0 {
		h.RespondWithValidationErrors(w, r, validationErrors)
		return
	}

	// Обновляем настройки
	preferences, err := h.preferenceService.UpdatePreferences(r.Context(), userID, &req)
	if err != nil {
		h.Logger.Error("Failed to update notification preferences", err, map[string]interface{}{"user_id": userID})
		h.RespondWithError(w, r, http.StatusInternalServerError, "Failed to update notification preferences", "preferences_update_failed")
		return
	}

	h.RespondWithSuccess(w, r, preferences)
}
