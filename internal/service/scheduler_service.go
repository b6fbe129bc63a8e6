package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nurlyy/task_notifier/internal/repository/cache"
	"github.com/nurlyy/task_notifier/pkg/config"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// Предельный размер пачки одного прохода по напоминаниям
const sweepBatchSize = 500

// SchedulerService запускает периодические задачи сервиса.
// Каждая задача берет распределенную блокировку, поэтому при
// нескольких экземплярах планировщика проход выполняет один из них.
type SchedulerService struct {
	reminderSvc   *ReminderService
	digestSvc     *DigestService
	dispatcherSvc *DispatcherService
	cacheRepo     *cache.RedisRepository
	cron          *cron.Cron
	config        *config.SchedulerConfig
	logger        logger.Logger
}

// NewSchedulerService создает новый экземпляр сервиса планировщика
func NewSchedulerService(
	reminderSvc *ReminderService,
	digestSvc *DigestService,
	dispatcherSvc *DispatcherService,
	cacheRepo *cache.RedisRepository,
	config *config.SchedulerConfig,
	logger logger.Logger,
) *SchedulerService {
	// Планировщик с поддержкой секунд в выражениях
	cronScheduler := cron.New(cron.WithSeconds())

	return &SchedulerService{
		reminderSvc:   reminderSvc,
		digestSvc:     digestSvc,
		dispatcherSvc: dispatcherSvc,
		cacheRepo:     cacheRepo,
		cron:          cronScheduler,
		config:        config,
		logger:        logger,
	}
}

// Start запускает планировщик задач
func (s *SchedulerService) Start(ctx context.Context) error {
	s.logger.Info("Starting scheduler service")

	s.registerTasks()
	s.cron.Start()

	go func() {
		<-ctx.Done()
		s.logger.Info("Stopping scheduler service")
		s.cron.Stop()
	}()

	return nil
}

// registerTasks регистрирует все задачи в планировщике
func (s *SchedulerService) registerTasks() {
	s.addJob(s.config.ReminderSweepCron, "reminder_sweep", s.sweepReminders)
	s.addJob(s.config.QueueDrainCron, "queue_drain", s.drainQueue)
	s.addJob(s.config.OverdueSweepCron, "overdue_sweep", s.sweepOverdue)
	s.addJob(s.config.RecurringSweepCron, "recurring_rollover", s.rolloverRecurring)
	s.addJob(s.config.DigestCron, "digest_generation", s.generateDigests)
}

// addJob регистрирует задачу, обернутую в распределенную блокировку
func (s *SchedulerService) addJob(spec, name string, job func(ctx context.Context)) {
	wrapped := func() {
		ctx := context.Background()

		if s.cacheRepo != nil {
			acquired, err := s.cacheRepo.AcquireLock(ctx, name, time.Minute)
			if err != nil {
				s.logger.Error("Failed to acquire job lock", err, map[string]interface{}{
					"job": name,
				})
				return
			}
			if !acquired {
				return
			}
			defer func() {
				if err := s.cacheRepo.ReleaseLock(ctx, name); err != nil {
					s.logger.Warn("Failed to release job lock", map[string]interface{}{
						"job": name,
					})
				}
			}()
		}

		job(ctx)
	}

	if _, err := s.cron.AddFunc(spec, wrapped); err != nil {
		s.logger.Error("Failed to schedule job", err, map[string]interface{}{
			"job":  name,
			"spec": spec,
		})
	}
}

// sweepReminders обрабатывает созревшие напоминания
func (s *SchedulerService) sweepReminders(ctx context.Context) {
	processed, err := s.reminderSvc.SweepDue(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		s.logger.Error("Reminder sweep failed", err)
		return
	}
	if processed > 0 {
		s.logger.Info("Reminder sweep finished", map[string]interface{}{
			"processed": processed,
		})
	}
}

// drainQueue обрабатывает очередь уведомлений
func (s *SchedulerService) drainQueue(ctx context.Context) {
	processed, err := s.dispatcherSvc.Drain(ctx, time.Now())
	if err != nil {
		s.logger.Error("Queue drain failed", err)
		return
	}
	if processed > 0 {
		s.logger.Info("Queue drain finished", map[string]interface{}{
			"processed": processed,
		})
	}
}

// sweepOverdue уведомляет исполнителей о просроченных задачах
func (s *SchedulerService) sweepOverdue(ctx context.Context) {
	notified, err := s.reminderSvc.SweepOverdue(ctx, time.Now())
	if err != nil {
		s.logger.Error("Overdue sweep failed", err)
		return
	}
	s.logger.Info("Overdue sweep finished", map[string]interface{}{
		"notified": notified,
	})
}

// rolloverRecurring переносит повторяющиеся напоминания на следующий цикл
func (s *SchedulerService) rolloverRecurring(ctx context.Context) {
	rolled, err := s.reminderSvc.RolloverRecurring(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		s.logger.Error("Recurring rollover failed", err)
		return
	}
	if rolled > 0 {
		s.logger.Info("Recurring rollover finished", map[string]interface{}{
			"rolled": rolled,
		})
	}
}

// generateDigests собирает и ставит в очередь периодические сводки
func (s *SchedulerService) generateDigests(ctx context.Context) {
	created, err := s.digestSvc.GenerateDigests(ctx, time.Now())
	if err != nil {
		s.logger.Error("Digest generation failed", err)
		return
	}
	if created > 0 {
		s.logger.Info("Digest generation finished", map[string]interface{}{
			"created": created,
		})
	}
}
