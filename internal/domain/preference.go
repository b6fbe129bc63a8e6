package domain

import (
	"time"
)

// NotificationChannel определяет канал доставки уведомления
type NotificationChannel string

const (
	// ChannelWeb - веб-уведомление внутри приложения
	ChannelWeb NotificationChannel = "web"
	// ChannelEmail - уведомление по электронной почте
	ChannelEmail NotificationChannel = "email"
	// ChannelSMS - SMS-уведомление
	ChannelSMS NotificationChannel = "sms"
	// ChannelSlack - уведомление в Slack
	ChannelSlack NotificationChannel = "slack"
)

// NotificationPreference представляет настройки уведомлений пользователя.
// Ровно одна запись на пользователя, создается лениво при первом обращении.
type NotificationPreference struct {
	UserID string `json:"user_id" db:"user_id"`

	// Глобальные настройки
	Enabled      bool       `json:"enabled" db:"enabled"`
	DoNotDisturb bool       `json:"do_not_disturb" db:"do_not_disturb"`
	DNDStart     *TimeOfDay `json:"dnd_start_time,omitempty" db:"dnd_start_time"`
	DNDEnd       *TimeOfDay `json:"dnd_end_time,omitempty" db:"dnd_end_time"`

	// Включенные каналы доставки
	Channels []NotificationChannel `json:"channels" db:"-"`

	// Настройки по типам событий
	TaskAssigned   bool `json:"task_assigned" db:"task_assigned"`
	TaskDueSoon    bool `json:"task_due_soon" db:"task_due_soon"`
	TaskOverdue    bool `json:"task_overdue" db:"task_overdue"`
	TaskCompleted  bool `json:"task_completed" db:"task_completed"`
	TaskCommented  bool `json:"task_commented" db:"task_commented"`
	TaskMentioned  bool `json:"task_mentioned" db:"task_mentioned"`
	ProjectAdded   bool `json:"project_added" db:"project_added"`
	ProjectUpdated bool `json:"project_updated" db:"project_updated"`
	ChatMessage    bool `json:"chat_message" db:"chat_message"`
	ChatMentioned  bool `json:"chat_mentioned" db:"chat_mentioned"`

	// Настройки дайджестов
	DailyDigest  bool      `json:"daily_digest" db:"daily_digest"`
	WeeklyDigest bool      `json:"weekly_digest" db:"weekly_digest"`
	DigestTime   TimeOfDay `json:"digest_time" db:"digest_time"`
	DigestDay    int       `json:"digest_day" db:"digest_day"` // День недели для еженедельного дайджеста (0=понедельник)

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPreference возвращает настройки по умолчанию для пользователя
func DefaultPreference(userID string) *NotificationPreference {
	now := time.Now()
	return &NotificationPreference{
		UserID:         userID,
		Enabled:        true,
		DoNotDisturb:   false,
		Channels:       []NotificationChannel{ChannelWeb, ChannelEmail},
		TaskAssigned:   true,
		TaskDueSoon:    true,
		TaskOverdue:    true,
		TaskCompleted:  true,
		TaskCommented:  true,
		TaskMentioned:  true,
		ProjectAdded:   true,
		ProjectUpdated: false,
		ChatMessage:    true,
		ChatMentioned:  true,
		DailyDigest:    false,
		WeeklyDigest:   true,
		DigestTime:     TimeOfDay{Hour: 9},
		DigestDay:      1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsDNDActive проверяет, активен ли режим "не беспокоить" в данный момент
func (p *NotificationPreference) IsDNDActive(now time.Time) bool {
	if !p.DoNotDisturb || p.DNDStart == nil || p.DNDEnd == nil {
		return false
	}

	current := TimeOfDayFrom(now)
	start := *p.DNDStart
	end := *p.DNDEnd

	if start.Before(end) {
		return !current.Before(start) && !end.Before(current)
	}

	// Окно переходит через полночь
	return !current.Before(start) || !end.Before(current)
}

// HasChannel проверяет, включен ли канал доставки
func (p *NotificationPreference) HasChannel(channel NotificationChannel) bool {
	for _, c := range p.Channels {
		if c == channel {
			return true
		}
	}
	return false
}

// EventEnabled возвращает значение флага для указанного типа события.
// Неизвестные типы событий считаются включенными.
func (p *NotificationPreference) EventEnabled(field string) bool {
	switch field {
	case "task_assigned":
		return p.TaskAssigned
	case "task_due_soon":
		return p.TaskDueSoon
	case "task_overdue":
		return p.TaskOverdue
	case "task_completed":
		return p.TaskCompleted
	case "task_commented":
		return p.TaskCommented
	case "task_mentioned":
		return p.TaskMentioned
	case "project_added":
		return p.ProjectAdded
	case "project_updated":
		return p.ProjectUpdated
	case "chat_message":
		return p.ChatMessage
	case "chat_mentioned":
		return p.ChatMentioned
	default:
		return true
	}
}

// ShouldNotify проверяет, нужно ли уведомлять пользователя
// о событии через указанный канал
func (p *NotificationPreference) ShouldNotify(field string, channel NotificationChannel, now time.Time) bool {
	if !p.Enabled {
		return false
	}

	if p.IsDNDActive(now) {
		return false
	}

	if !p.HasChannel(channel) {
		return false
	}

	return p.EventEnabled(field)
}

// PreferenceUpdateRequest представляет данные для обновления настроек
type PreferenceUpdateRequest struct {
	Enabled        *bool                 `json:"enabled,omitempty"`
	DoNotDisturb   *bool                 `json:"do_not_disturb,omitempty"`
	DNDStart       *TimeOfDay            `json:"dnd_start_time,omitempty"`
	DNDEnd         *TimeOfDay            `json:"dnd_end_time,omitempty"`
	Channels       []NotificationChannel `json:"channels,omitempty" validate:"omitempty,dive,notification_channel"`
	TaskAssigned   *bool                 `json:"task_assigned,omitempty"`
	TaskDueSoon    *bool                 `json:"task_due_soon,omitempty"`
	TaskOverdue    *bool                 `json:"task_overdue,omitempty"`
	TaskCompleted  *bool                 `json:"task_completed,omitempty"`
	TaskCommented  *bool                 `json:"task_commented,omitempty"`
	TaskMentioned  *bool                 `json:"task_mentioned,omitempty"`
	ProjectAdded   *bool                 `json:"project_added,omitempty"`
	ProjectUpdated *bool                 `json:"project_updated,omitempty"`
	ChatMessage    *bool                 `json:"chat_message,omitempty"`
	ChatMentioned  *bool                 `json:"chat_mentioned,omitempty"`
	DailyDigest    *bool                 `json:"daily_digest,omitempty"`
	WeeklyDigest   *bool                 `json:"weekly_digest,omitempty"`
	DigestTime     *TimeOfDay            `json:"digest_time,omitempty"`
	DigestDay      *int                  `json:"digest_day,omitempty" validate:"omitempty,min=0,max=6"`
}
