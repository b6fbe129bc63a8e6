package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/repository"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// Смещения автоматических напоминаний относительно срока задачи
const (
	reminderDayBefore  = 24 * time.Hour
	reminderHourBefore = time.Hour
)

// ReminderService управляет напоминаниями по задачам
type ReminderService struct {
	reminderRepo repository.ReminderRepository
	taskRepo     repository.TaskRepository
	dispatcher   *DispatcherService
	logger       logger.Logger
}

// NewReminderService создает новый экземпляр ReminderService
func NewReminderService(
	reminderRepo repository.ReminderRepository,
	taskRepo repository.TaskRepository,
	dispatcher *DispatcherService,
	logger logger.Logger,
) *ReminderService {
	return &ReminderService{
		reminderRepo: reminderRepo,
		taskRepo:     taskRepo,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// CreateSmartReminders создает цепочку напоминаний для задачи:
// за сутки до срока, за час до срока и в момент срока.
// Напоминания в прошлом не создаются. Возвращает число созданных записей.
func (s *ReminderService) CreateSmartReminders(ctx context.Context, taskID string, now time.Time) (int, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return 0, err
	}

	if task.DueDate == nil || task.AssigneeID == nil {
		return 0, nil
	}

	existing, err := s.reminderRepo.CountByTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	due := *task.DueDate
	points := []struct {
		remindAt      time.Time
		reminderType  domain.ReminderType
		minutesBefore int
	}{
		{due.Add(-reminderDayBefore), domain.ReminderBeforeDue, int(reminderDayBefore.Minutes())},
		{due.Add(-reminderHourBefore), domain.ReminderBeforeDue, int(reminderHourBefore.Minutes())},
		{due, domain.ReminderAtDue, 0},
	}

	created := 0
	for _, point := range points {
		if !point.remindAt.After(now) {
			continue
		}

		minutes := point.minutesBefore
		reminder := &domain.SmartReminder{
			ID:            uuid.New().String(),
			TaskID:        task.ID,
			UserID:        *task.AssigneeID,
			ReminderType:  point.reminderType,
			RemindAt:      point.remindAt,
			MinutesBefore: &minutes,
			CreatedAt:     now,
		}

		if err := s.reminderRepo.Create(ctx, reminder); err != nil {
			return created, err
		}
		created++
	}

	s.logger.Info("Created smart reminders for task", map[string]interface{}{
		"task_id": taskID,
		"count":   created,
	})

	return created, nil
}

// GetUserReminders возвращает напоминания пользователя
func (s *ReminderService) GetUserReminders(ctx context.Context, userID string, filter repository.ReminderFilter) ([]domain.ReminderResponse, error) {
	reminders, err := s.reminderRepo.GetUserReminders(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]domain.ReminderResponse, 0, len(reminders))
	for _, reminder := range reminders {
		responses = append(responses, reminder.ToResponse())
	}

	return responses, nil
}

// SnoozeReminder откладывает напоминание пользователя.
// Чужие и уже отправленные напоминания откладывать нельзя.
func (s *ReminderService) SnoozeReminder(ctx context.Context, reminderID, userID string, minutes int) (*domain.ReminderResponse, error) {
	reminder, err := s.reminderRepo.GetByID(ctx, reminderID)
	if err != nil {
		return nil, err
	}

	if reminder.UserID != userID {
		return nil, domain.ErrForbidden
	}

	if reminder.IsSent {
		return nil, fmt.Errorf("%w: reminder already sent", domain.ErrConflict)
	}

	reminder.Snooze(time.Now(), minutes)

	if err := s.reminderRepo.Update(ctx, reminder); err != nil {
		return nil, err
	}

	resp := reminder.ToResponse()
	return &resp, nil
}

// SweepDue обрабатывает созревшие напоминания: ставит уведомления
// в очередь и отмечает напоминания отправленными. Возвращает число
// обработанных записей.
func (s *ReminderService) SweepDue(ctx context.Context, now time.Time, limit int) (int, error) {
	processed := 0

	err := s.reminderRepo.ClaimDue(ctx, now, limit, func(ctx context.Context, reminders []*domain.SmartReminder) error {
		for _, reminder := range reminders {
			if err := s.notifyReminder(ctx, reminder, now); err != nil {
				s.logger.Error("Failed to enqueue reminder notification", err, map[string]interface{}{
					"reminder_id": reminder.ID,
				})
				continue
			}

			reminder.MarkSent(now)
			processed++
		}
		return nil
	})

	if err != nil {
		return processed, err
	}

	return processed, nil
}

// SweepOverdue ставит в очередь уведомления о просроченных задачах
func (s *ReminderService) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	tasks, err := s.taskRepo.GetOverdue(ctx, now)
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, task := range tasks {
		if task.AssigneeID == nil {
			continue
		}

		title := "Задача просрочена"
		message := fmt.Sprintf("Срок выполнения задачи «%s» истек %s", task.Title, task.DueDate.Format("02.01.2006 15:04"))

		err := s.dispatcher.EnqueueForUser(ctx, *task.AssigneeID, domain.NotificationTypeTaskOverdue, title, message, map[string]string{"task_id": task.ID}, domain.PriorityHighest+1, now)
		if err != nil {
			s.logger.Error("Failed to enqueue overdue notification", err, map[string]interface{}{
				"task_id": task.ID,
			})
			continue
		}
		notified++
	}

	return notified, nil
}

// RolloverRecurring переносит сработавшие повторяющиеся напоминания
// на следующее вхождение. Каждое сработавшее напоминание становится
// обычной записью истории, повторение продолжает новая запись.
func (s *ReminderService) RolloverRecurring(ctx context.Context, now time.Time, limit int) (int, error) {
	fired, err := s.reminderRepo.ListSentRecurring(ctx, limit)
	if err != nil {
		return 0, err
	}

	rolled := 0
	for _, reminder := range fired {
		next, err := reminder.NextOccurrence(now)
		if err != nil {
			s.logger.Error("Failed to compute next occurrence", err, map[string]interface{}{
				"reminder_id": reminder.ID,
			})
			continue
		}
		next.ID = uuid.New().String()

		if err := s.reminderRepo.RolloverRecurring(ctx, reminder, next); err != nil {
			s.logger.Error("Failed to rollover recurring reminder", err, map[string]interface{}{
				"reminder_id": reminder.ID,
			})
			continue
		}
		rolled++
	}

	return rolled, nil
}

// notifyReminder ставит в очередь уведомление по сработавшему напоминанию
func (s *ReminderService) notifyReminder(ctx context.Context, reminder *domain.SmartReminder, now time.Time) error {
	task, err := s.taskRepo.GetByID(ctx, reminder.TaskID)
	if err != nil {
		return err
	}

	var title, message string
	notificationType := domain.NotificationTypeReminder
	priority := domain.PriorityDefault

	switch reminder.ReminderType {
	case domain.ReminderAtDue:
		title = "Наступил срок задачи"
		message = fmt.Sprintf("Срок выполнения задачи «%s» наступил", task.Title)
		notificationType = domain.NotificationTypeTaskDueSoon
		priority = domain.PriorityHighest + 1
	case domain.ReminderBeforeDue:
		title = "Приближается срок задачи"
		message = fmt.Sprintf("Приближается срок выполнения задачи «%s»", task.Title)
		if task.DueDate != nil {
			message = fmt.Sprintf("Задача «%s» должна быть выполнена к %s", task.Title, task.DueDate.Format("02.01.2006 15:04"))
		}
		notificationType = domain.NotificationTypeTaskDueSoon
	case domain.ReminderAfterOverdue:
		title = "Задача просрочена"
		message = fmt.Sprintf("Срок выполнения задачи «%s» истек", task.Title)
		notificationType = domain.NotificationTypeTaskOverdue
		priority = domain.PriorityHighest + 1
	default:
		title = "Напоминание"
		message = fmt.Sprintf("Напоминание по задаче «%s»", task.Title)
	}

	data := map[string]string{"task_id": task.ID, "reminder_id": reminder.ID}

	return s.dispatcher.EnqueueForUser(ctx, reminder.UserID, notificationType, title, message, data, priority, now)
}
