package domain

import (
	"time"
)

// DigestType определяет периодичность дайджеста
type DigestType string

const (
	// DigestDaily - ежедневный дайджест
	DigestDaily DigestType = "daily"
	// DigestWeekly - еженедельный дайджест
	DigestWeekly DigestType = "weekly"
	// DigestMonthly - ежемесячный дайджест
	DigestMonthly DigestType = "monthly"
)

// ProjectTaskCount представляет число задач пользователя в проекте
type ProjectTaskCount struct {
	ProjectName string `json:"project_name" db:"project_name"`
	Count       int    `json:"count" db:"count"`
}

// DigestSummary содержит производные метрики дайджеста
type DigestSummary struct {
	TopProjects        []ProjectTaskCount `json:"top_projects"`
	CompletionRate     float64            `json:"completion_rate"`
	AvgCompletionHours float64            `json:"avg_completion_time"`
}

// Digest представляет сводку активности пользователя за период
// [PeriodStart, PeriodEnd). Счетчики детерминированно пересчитываются
// из хранилища задач и никогда не правятся вручную.
type Digest struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"user_id" db:"user_id"`
	DigestType DigestType `json:"digest_type" db:"digest_type"`

	// Счетчики
	TasksCreated     int `json:"tasks_created" db:"tasks_created"`
	TasksCompleted   int `json:"tasks_completed" db:"tasks_completed"`
	TasksOverdue     int `json:"tasks_overdue" db:"tasks_overdue"`
	CommentsReceived int `json:"comments_received" db:"comments_received"`
	MentionsCount    int `json:"mentions_count" db:"mentions_count"`

	// Производные данные
	Summary DigestSummary `json:"summary_data" db:"-"`

	// Статус доставки
	IsSent bool       `json:"is_sent" db:"is_sent"`
	SentAt *time.Time `json:"sent_at,omitempty" db:"sent_at"`

	PeriodStart time.Time `json:"period_start" db:"period_start"`
	PeriodEnd   time.Time `json:"period_end" db:"period_end"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
