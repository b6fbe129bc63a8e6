package domain

import (
	"time"
)

// TaskStatus определяет статус задачи
type TaskStatus string

const (
	// TaskStatusPending - задача ожидает выполнения
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress - задача в процессе выполнения
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted - завершенная задача
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusCancelled - отмененная задача
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Task представляет задачу внешнего CRUD-слоя.
// Для этого сервиса модель доступна только на чтение:
// напоминания и дайджесты читают сроки, исполнителя и статус.
type Task struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	ProjectID   string     `json:"project_id" db:"project_id"`
	ProjectName string     `json:"project_name" db:"project_name"`
	Status      TaskStatus `json:"status" db:"status"`
	AssigneeID  *string    `json:"assignee_id,omitempty" db:"assignee_id"`
	CreatedBy   string     `json:"created_by" db:"created_by"`
	DueDate     *time.Time `json:"due_date,omitempty" db:"due_date"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsOpen проверяет, что задача еще не завершена и не отменена
func (t *Task) IsOpen() bool {
	return t.Status == TaskStatusPending || t.Status == TaskStatusInProgress
}

// User представляет пользователя внешнего слоя (только чтение)
type User struct {
	ID       string `json:"id" db:"id"`
	Email    string `json:"email" db:"email"`
	FullName string `json:"full_name" db:"full_name"`
	IsActive bool   `json:"is_active" db:"is_active"`

	// Токен устройства для push-уведомлений, если зарегистрирован
	DeviceToken *string `json:"device_token,omitempty" db:"device_token"`
}
