package service

import (
	"context"
	"errors"
	"time"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/repository"
	"github.com/nurlyy/task_notifier/internal/repository/cache"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// PreferenceService инкапсулирует работу с настройками уведомлений.
// Запись настроек создается лениво: первое чтение для пользователя
// без записи сохраняет и возвращает значения по умолчанию.
type PreferenceService struct {
	prefRepo  repository.PreferenceRepository
	cacheRepo *cache.RedisRepository
	logger    logger.Logger
}

// NewPreferenceService создает новый экземпляр PreferenceService
func NewPreferenceService(
	prefRepo repository.PreferenceRepository,
	cacheRepo *cache.RedisRepository,
	logger logger.Logger,
) *PreferenceService {
	return &PreferenceService{
		prefRepo:  prefRepo,
		cacheRepo: cacheRepo,
		logger:    logger,
	}
}

// GetPreferences возвращает настройки пользователя,
// создавая запись по умолчанию при первом обращении
func (s *PreferenceService) GetPreferences(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	if s.cacheRepo != nil {
		if pref, err := s.cacheRepo.GetPreference(ctx, userID); err == nil {
			return pref, nil
		}
	}

	pref, err := s.prefRepo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}

		pref = domain.DefaultPreference(userID)
		if err := s.prefRepo.Create(ctx, pref); err != nil {
			s.logger.Error("Failed to create default preferences", err, map[string]interface{}{
				"user_id": userID,
			})
			return nil, err
		}

		s.logger.Info("Created default notification preferences", map[string]interface{}{
			"user_id": userID,
		})
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.CachePreference(ctx, pref); err != nil {
			s.logger.Warn("Failed to cache preferences", map[string]interface{}{
				"user_id": userID,
			})
		}
	}

	return pref, nil
}

// UpdatePreferences применяет частичное обновление настроек пользователя
func (s *PreferenceService) UpdatePreferences(ctx context.Context, userID string, req *domain.PreferenceUpdateRequest) (*domain.NotificationPreference, error) {
	pref, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	applyPreferenceUpdate(pref, req)
	pref.UpdatedAt = time.Now()

	if err := s.prefRepo.Update(ctx, pref); err != nil {
		s.logger.Error("Failed to update preferences", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.InvalidatePreference(ctx, userID); err != nil {
			s.logger.Warn("Failed to invalidate preference cache", map[string]interface{}{
				"user_id": userID,
			})
		}
	}

	return pref, nil
}

// ShouldNotify проверяет, нужно ли уведомлять пользователя о событии
// через указанный канал. Ошибка чтения настроек трактуется как запрет:
// лучше промолчать, чем уведомить вопреки настройкам.
func (s *PreferenceService) ShouldNotify(ctx context.Context, userID string, field string, channel domain.NotificationChannel, now time.Time) bool {
	pref, err := s.GetPreferences(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to resolve preferences, suppressing notification", err, map[string]interface{}{
			"user_id": userID,
			"field":   field,
			"channel": channel,
		})
		return false
	}

	return pref.ShouldNotify(field, channel, now)
}

func applyPreferenceUpdate(pref *domain.NotificationPreference, req *domain.PreferenceUpdateRequest) {
	if req.Enabled != nil {
		pref.Enabled = *req.Enabled
	}
	if req.DoNotDisturb != nil {
		pref.DoNotDisturb = *req.DoNotDisturb
	}
	if req.DNDStart != nil {
		pref.DNDStart = req.DNDStart
	}
	if req.DNDEnd != nil {
		pref.DNDEnd = req.DNDEnd
	}
	if req.Channels != nil {
		pref.Channels = req.Channels
	}
	if req.TaskAssigned != nil {
		pref.TaskAssigned = *req.TaskAssigned
	}
	if req.TaskDueSoon != nil {
		pref.TaskDueSoon = *req.TaskDueSoon
	}
	if req.TaskOverdue != nil {
		pref.TaskOverdue = *req.TaskOverdue
	}
	if req.TaskCompleted != nil {
		pref.TaskCompleted = *req.TaskCompleted
	}
	if req.TaskCommented != nil {
		pref.TaskCommented = *req.TaskCommented
	}
	if req.TaskMentioned != nil {
		pref.TaskMentioned = *req.TaskMentioned
	}
	if req.ProjectAdded != nil {
		pref.ProjectAdded = *req.ProjectAdded
	}
	if req.ProjectUpdated != nil {
		pref.ProjectUpdated = *req.ProjectUpdated
	}
	if req.ChatMessage != nil {
		pref.ChatMessage = *req.ChatMessage
	}
	if req.ChatMentioned != nil {
		pref.ChatMentioned = *req.ChatMentioned
	}
	if req.DailyDigest != nil {
		pref.DailyDigest = *req.DailyDigest
	}
	if req.WeeklyDigest != nil {
		pref.WeeklyDigest = *req.WeeklyDigest
	}
	if req.DigestTime != nil {
		pref.DigestTime = *req.DigestTime
	}
	if req.DigestDay != nil {
		pref.DigestDay = *req.DigestDay
	}
}
