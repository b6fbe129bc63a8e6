package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/internal/repository"
	"github.com/nurlyy/task_notifier/pkg/config"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// ChannelSender отправляет уведомление через один канал доставки
type ChannelSender interface {
	Channel() domain.NotificationChannel
	Send(ctx context.Context, user *domain.User, entry *domain.QueuedNotification) error
}

// DispatcherService обрабатывает очередь уведомлений.
// Запись, подавленную настройками получателя, диспетчер отмечает
// доставленной без вызова канала: подавление не является ошибкой.
type DispatcherService struct {
	queueRepo repository.QueueRepository
	userRepo  repository.UserRepository
	prefSvc   *PreferenceService
	senders   map[domain.NotificationChannel]ChannelSender
	config    *config.DispatcherConfig
	logger    logger.Logger
}

// NewDispatcherService создает новый экземпляр DispatcherService
func NewDispatcherService(
	queueRepo repository.QueueRepository,
	userRepo repository.UserRepository,
	prefSvc *PreferenceService,
	senders []ChannelSender,
	config *config.DispatcherConfig,
	logger logger.Logger,
) *DispatcherService {
	byChannel := make(map[domain.NotificationChannel]ChannelSender, len(senders))
	for _, sender := range senders {
		byChannel[sender.Channel()] = sender
	}

	return &DispatcherService{
		queueRepo: queueRepo,
		userRepo:  userRepo,
		prefSvc:   prefSvc,
		senders:   byChannel,
		config:    config,
		logger:    logger,
	}
}

// EnqueueForUser ставит уведомление в очередь по всем включенным
// каналам получателя. Окончательная проверка настроек происходит
// в момент доставки.
func (s *DispatcherService) EnqueueForUser(
	ctx context.Context,
	userID string,
	notificationType domain.NotificationType,
	title, message string,
	data map[string]string,
	priority int,
	scheduledFor time.Time,
) error {
	pref, err := s.prefSvc.GetPreferences(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve preferences: %w", err)
	}

	if priority < domain.PriorityHighest || priority > domain.PriorityLowest {
		priority = domain.PriorityDefault
	}

	now := time.Now()
	entries := make([]*domain.QueuedNotification, 0, len(pref.Channels))
	for _, channel := range pref.Channels {
		entries = append(entries, &domain.QueuedNotification{
			ID:               uuid.New().String(),
			UserID:           userID,
			NotificationType: string(notificationType),
			Title:            title,
			Message:          message,
			Data:             data,
			Channel:          channel,
			Priority:         priority,
			ScheduledFor:     scheduledFor,
			CreatedAt:        now,
		})
	}

	if len(entries) == 0 {
		return nil
	}

	return s.queueRepo.EnqueueBatch(ctx, entries)
}

// Drain обрабатывает очередную пачку готовых к отправке записей.
// Возвращает число обработанных записей.
func (s *DispatcherService) Drain(ctx context.Context, now time.Time) (int, error) {
	processed := 0

	err := s.queueRepo.ClaimPending(ctx, now, s.config.BatchSize, func(ctx context.Context, entries []*domain.QueuedNotification) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.config.WorkerPoolSize)

		for _, entry := range entries {
			entry := entry
			g.Go(func() error {
				s.dispatch(gctx, entry, now)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		processed = len(entries)
		return nil
	})

	if err != nil {
		return 0, err
	}

	return processed, nil
}

// dispatch доставляет одну запись очереди и фиксирует исход в ней самой
func (s *DispatcherService) dispatch(ctx context.Context, entry *domain.QueuedNotification, now time.Time) {
	if !s.prefSvc.ShouldNotify(ctx, entry.UserID, entry.NotificationType, entry.Channel, now) {
		entry.MarkSent(now)
		s.logger.Debug("Notification suppressed by preferences", map[string]interface{}{
			"entry_id": entry.ID,
			"user_id":  entry.UserID,
			"channel":  entry.Channel,
		})
		return
	}

	sender, ok := s.senders[entry.Channel]
	if !ok {
		entry.Failed = true
		entry.FailureReason = fmt.Sprintf("no sender for channel %s", entry.Channel)
		s.logger.Warn("No sender registered for channel", map[string]interface{}{
			"entry_id": entry.ID,
			"channel":  entry.Channel,
		})
		return
	}

	user, err := s.userRepo.GetByID(ctx, entry.UserID)
	if err != nil {
		s.recordFailure(entry, now, fmt.Sprintf("failed to load recipient: %v", err))
		return
	}

	if err := sender.Send(ctx, user, entry); err != nil {
		s.recordFailure(entry, now, err.Error())
		s.logger.Error("Failed to deliver notification", err, map[string]interface{}{
			"entry_id": entry.ID,
			"user_id":  entry.UserID,
			"channel":  entry.Channel,
		})
		return
	}

	entry.MarkSent(now)
}

// recordFailure фиксирует неудачную попытку и отодвигает следующую
func (s *DispatcherService) recordFailure(entry *domain.QueuedNotification, now time.Time, reason string) {
	entry.RecordFailure(reason, s.config.MaxRetries)
	if !entry.Failed {
		entry.ScheduledFor = now.Add(time.Duration(entry.RetryCount) * 5 * time.Minute)
	}
}

// ProcessDomainEvent разворачивает доменное событие в уведомления
// для затронутых пользователей
func (s *DispatcherService) ProcessDomainEvent(ctx context.Context, event *domain.DomainEvent) error {
	recipients := eventRecipients(event)
	if len(recipients) == 0 {
		s.logger.Debug("Domain event has no recipients", map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
		})
		return nil
	}

	notificationType, title, message := describeEvent(event)
	data := eventData(event)
	priority := domain.PriorityDefault
	if event.Type == domain.EventTaskCompleted {
		priority = domain.PriorityLowest - 2
	}

	for _, userID := range recipients {
		if err := s.EnqueueForUser(ctx, userID, notificationType, title, message, data, priority, time.Now()); err != nil {
			s.logger.Error("Failed to enqueue notification for event", err, map[string]interface{}{
				"event_id": event.ID,
				"user_id":  userID,
			})
		}
	}

	return nil
}

// eventData собирает ссылки на затронутые сущности для вложения
// в уведомление
func eventData(event *domain.DomainEvent) map[string]string {
	data := make(map[string]string)
	for _, key := range []string{"task_id", "project_id", "comment_id"} {
		if value, ok := event.Data[key].(string); ok && value != "" {
			data[key] = value
		}
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

// eventRecipients извлекает получателей уведомления из данных события
func eventRecipients(event *domain.DomainEvent) []string {
	seen := make(map[string]bool)
	var recipients []string

	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			recipients = append(recipients, id)
		}
	}

	if raw, ok := event.Data["recipients"].([]interface{}); ok {
		for _, v := range raw {
			if id, ok := v.(string); ok {
				add(id)
			}
		}
	}

	for _, key := range []string{"assignee_id", "user_id"} {
		if id, ok := event.Data[key].(string); ok {
			add(id)
		}
	}

	// Инициатор события о себе не уведомляется
	if actor, ok := event.Data["actor_id"].(string); ok && actor != "" {
		filtered := recipients[:0]
		for _, id := range recipients {
			if id != actor {
				filtered = append(filtered, id)
			}
		}
		recipients = filtered
	}

	return recipients
}

// describeEvent возвращает тип, заголовок и текст уведомления для события
func describeEvent(event *domain.DomainEvent) (domain.NotificationType, string, string) {
	title, _ := event.Data["title"].(string)

	switch event.Type {
	case domain.EventTaskCreated:
		return domain.NotificationTypeTaskAssigned, "Новая задача", fmt.Sprintf("Вам назначена задача «%s»", title)
	case domain.EventTaskUpdated:
		return domain.NotificationTypeTaskAssigned, "Задача обновлена", fmt.Sprintf("Задача «%s» изменена", title)
	case domain.EventTaskCompleted:
		return domain.NotificationTypeTaskCompleted, "Задача завершена", fmt.Sprintf("Задача «%s» выполнена", title)
	case domain.EventCommentCreated:
		return domain.NotificationTypeTaskCommented, "Новый комментарий", fmt.Sprintf("К задаче «%s» добавлен комментарий", title)
	case domain.EventProjectCreated:
		return domain.NotificationTypeProjectAdded, "Новый проект", fmt.Sprintf("Создан проект «%s»", title)
	case domain.EventProjectUpdated:
		return domain.NotificationTypeProjectUpdated, "Проект обновлен", fmt.Sprintf("Проект «%s» изменен", title)
	case domain.EventUserJoined:
		return domain.NotificationTypeProjectAdded, "Новый участник", fmt.Sprintf("Пользователь присоединился к проекту «%s»", title)
	default:
		return domain.NotificationType(event.Type), "Событие", string(event.Type)
	}
}
