package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/repository"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

const topProjectsLimit = 5

// DigestService собирает периодические сводки активности пользователей.
// Счетчики создания и завершения ограничены окном дайджеста,
// просроченные задачи и топ проектов считаются по текущему состоянию.
type DigestService struct {
	digestRepo repository.DigestRepository
	taskRepo   repository.TaskRepository
	prefRepo   repository.PreferenceRepository
	dispatcher *DispatcherService
	logger     logger.Logger
}

// NewDigestService создает новый экземпляр DigestService
func NewDigestService(
	digestRepo repository.DigestRepository,
	taskRepo repository.TaskRepository,
	prefRepo repository.PreferenceRepository,
	dispatcher *DispatcherService,
	logger logger.Logger,
) *DigestService {
	return &DigestService{
		digestRepo: digestRepo,
		taskRepo:   taskRepo,
		prefRepo:   prefRepo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// GenerateDigests создает созревшие дайджесты подписчиков
// и ставит несозревшие ранее сводки в очередь доставки.
// Возвращает число созданных дайджестов.
func (s *DigestService) GenerateDigests(ctx context.Context, now time.Time) (int, error) {
	created := 0

	for _, digestType := range []domain.DigestType{domain.DigestDaily, domain.DigestWeekly} {
		subscribers, err := s.prefRepo.ListDigestSubscribers(ctx, digestType)
		if err != nil {
			s.logger.Error("Failed to list digest subscribers", err, map[string]interface{}{
				"digest_type": digestType,
			})
			continue
		}

		for _, pref := range subscribers {
			if !digestDue(pref, digestType, now) {
				continue
			}

			periodStart, periodEnd := digestWindow(digestType, now)

			exists, err := s.digestRepo.Exists(ctx, pref.UserID, digestType, periodStart)
			if err != nil {
				s.logger.Error("Failed to check digest existence", err, map[string]interface{}{
					"user_id": pref.UserID,
				})
				continue
			}
			if exists {
				continue
			}

			digest, err := s.BuildDigest(ctx, pref.UserID, digestType, periodStart, periodEnd, now)
			if err != nil {
				s.logger.Error("Failed to build digest", err, map[string]interface{}{
					"user_id":     pref.UserID,
					"digest_type": digestType,
				})
				continue
			}

			if err := s.digestRepo.Create(ctx, digest); err != nil {
				s.logger.Error("Failed to save digest", err, map[string]interface{}{
					"user_id": pref.UserID,
				})
				continue
			}
			created++
		}
	}

	if err := s.dispatchPending(ctx, now); err != nil {
		return created, err
	}

	return created, nil
}

// BuildDigest детерминированно пересчитывает сводку пользователя
// за окно [periodStart, periodEnd)
func (s *DigestService) BuildDigest(ctx context.Context, userID string, digestType domain.DigestType, periodStart, periodEnd, now time.Time) (*domain.Digest, error) {
	tasksCreated, err := s.taskRepo.CountCreatedInWindow(ctx, userID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	tasksCompleted, err := s.taskRepo.CountCompletedInWindow(ctx, userID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	tasksOverdue, err := s.taskRepo.CountOverdue(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	commentsReceived, err := s.taskRepo.CountCommentsReceived(ctx, userID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	mentions, err := s.taskRepo.CountMentions(ctx, userID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	avgHours, err := s.taskRepo.AvgCompletionHours(ctx, userID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	topProjects, err := s.taskRepo.TopProjects(ctx, userID, topProjectsLimit)
	if err != nil {
		return nil, err
	}

	return &domain.Digest{
		ID:               uuid.New().String(),
		UserID:           userID,
		DigestType:       digestType,
		TasksCreated:     tasksCreated,
		TasksCompleted:   tasksCompleted,
		TasksOverdue:     tasksOverdue,
		CommentsReceived: commentsReceived,
		MentionsCount:    mentions,
		Summary: domain.DigestSummary{
			TopProjects:        topProjects,
			CompletionRate:     completionRate(tasksCompleted, tasksCreated),
			AvgCompletionHours: avgHours,
		},
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		CreatedAt:   now,
	}, nil
}

// dispatchPending ставит несозревшие ранее сводки в очередь доставки
func (s *DigestService) dispatchPending(ctx context.Context, now time.Time) error {
	pending, err := s.digestRepo.ListUnsent(ctx, 0)
	if err != nil {
		return err
	}

	for _, digest := range pending {
		title, message := renderDigest(digest)

		err := s.dispatcher.EnqueueForUser(ctx, digest.UserID, domain.NotificationTypeDigest, title, message, nil, domain.PriorityLowest-2, now)
		if err != nil {
			s.logger.Error("Failed to enqueue digest", err, map[string]interface{}{
				"digest_id": digest.ID,
			})
			continue
		}

		digest.IsSent = true
		sentAt := now
		digest.SentAt = &sentAt
		if err := s.digestRepo.Update(ctx, digest); err != nil {
			s.logger.Error("Failed to mark digest as sent", err, map[string]interface{}{
				"digest_id": digest.ID,
			})
		}
	}

	return nil
}

// digestDue проверяет, наступило ли время дайджеста пользователя
func digestDue(pref *domain.NotificationPreference, digestType domain.DigestType, now time.Time) bool {
	current := domain.TimeOfDayFrom(now)
	if current.Before(pref.DigestTime) {
		return false
	}

	if digestType == domain.DigestWeekly {
		// DigestDay хранит день недели с понедельника (0=понедельник)
		weekday := (int(now.Weekday()) + 6) % 7
		if weekday != pref.DigestDay {
			return false
		}
	}

	return true
}

// digestWindow возвращает границы окна дайджеста, заканчивающегося
// в полночь текущего дня
func digestWindow(digestType domain.DigestType, now time.Time) (time.Time, time.Time) {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch digestType {
	case domain.DigestWeekly:
		return end.AddDate(0, 0, -7), end
	case domain.DigestMonthly:
		return end.AddDate(0, -1, 0), end
	default:
		return end.AddDate(0, 0, -1), end
	}
}

// completionRate возвращает долю завершенных задач в процентах.
// Пустое окно дает 0, а не деление на ноль.
func completionRate(completed, created int) float64 {
	if created == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(created)*1000) / 10
}

// renderDigest собирает заголовок и текст сводки
func renderDigest(digest *domain.Digest) (string, string) {
	title := "Ваша сводка за день"
	if digest.DigestType == domain.DigestWeekly {
		title = "Ваша сводка за неделю"
	}

	message := fmt.Sprintf(
		"Создано задач: %d. Завершено: %d. Просрочено: %d. Комментариев получено: %d. Упоминаний: %d. Доля завершенных: %.1f%%.",
		digest.TasksCreated,
		digest.TasksCompleted,
		digest.TasksOverdue,
		digest.CommentsReceived,
		digest.MentionsCount,
		digest.Summary.CompletionRate,
	)

	if digest.Summary.AvgCompletionHours > 0 {
		message += fmt.Sprintf(" Среднее время выполнения: %.1f ч.", digest.Summary.AvgCompletionHours)
	}

	return title, message
}
