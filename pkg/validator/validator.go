package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CustomValidator - структура для валидации данных
type CustomValidator struct {
	validator *validator.Validate
}

// ValidationError представляет ошибку валидации
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors содержит список ошибок валидации
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// Error реализует интерфейс error
func (ve ValidationErrors) Error() string {
	var errMsgs []string
	for _, err := range ve.Errors {
		errMsgs = append(errMsgs, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(errMsgs, "; ")
}

// NewValidator создает новый экземпляр валидатора
func NewValidator() *CustomValidator {
	v := validator.New()

	// Регистрируем функцию для получения JSON-тега вместо имени структуры
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &CustomValidator{
		validator: v,
	}
}

// RegisterCustomValidations регистрирует кастомные валидации
func (cv *CustomValidator) RegisterCustomValidations() {
	Register(cv.validator)
}

// Register добавляет доменные правила валидации к внешнему валидатору
func Register(v *validator.Validate) {
	v.RegisterValidation("notification_channel", validateChannel)
	v.RegisterValidation("webhook_event", validateWebhookEvent)
}

// validateChannel проверяет допустимость канала доставки
func validateChannel(fl validator.FieldLevel) bool {
	channel := fl.Field().String()
	validChannels := map[string]bool{
		"web":   true,
		"email": true,
		"sms":   true,
		"slack": true,
	}
	return validChannels[channel]
}

// validateWebhookEvent проверяет допустимость имени события вебхука
func validateWebhookEvent(fl validator.FieldLevel) bool {
	event := fl.Field().String()
	if event == "*" {
		return true
	}
	validEvents := map[string]bool{
		"task.created":    true,
		"task.updated":    true,
		"task.deleted":    true,
		"task.completed":  true,
		"project.created": true,
		"project.updated": true,
		"project.deleted": true,
		"comment.created": true,
		"user.joined":     true,
	}
	return validEvents[event]
}

// Validate проверяет структуру на соответствие правилам валидации
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors ValidationErrors

		for _, err := range err.(validator.ValidationErrors) {
			field := err.Field()
			message := getErrorMessage(err)

			validationErrors.Errors = append(validationErrors.Errors, ValidationError{
				Field:   field,
				Message: message,
			})
		}

		return validationErrors
	}
	return nil
}

// getErrorMessage возвращает понятное сообщение об ошибке на основе тега валидации
func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if err.Type().Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters long", err.Param())
		}
		return fmt.Sprintf("Must be at least %s", err.Param())
	case "max":
		if err.Type().Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters long", err.Param())
		}
		return fmt.Sprintf("Must be at most %s", err.Param())
	case "notification_channel":
		return "Invalid notification channel"
	case "webhook_event":
		return "Invalid webhook event"
	default:
		return fmt.Sprintf("Failed validation for '%s'", err.Tag())
	}
}