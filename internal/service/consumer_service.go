package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/nurlyy/task_notifier/internal/messaging"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// ConsumerService читает события из Kafka и раздает их обработчикам.
// Один поток потребляет доменные события, пул воркеров доставляет
// задания вебхуков.
type ConsumerService struct {
	eventConsumer *messaging.KafkaConsumer
	jobConsumer   *messaging.KafkaConsumer
	dispatcherSvc *DispatcherService
	webhookSvc    *WebhookService
	workers       int
	logger        logger.Logger
}

// NewConsumerService создает новый экземпляр ConsumerService
func NewConsumerService(
	eventConsumer *messaging.KafkaConsumer,
	jobConsumer *messaging.KafkaConsumer,
	dispatcherSvc *DispatcherService,
	webhookSvc *WebhookService,
	workers int,
	logger logger.Logger,
) *ConsumerService {
	if workers <= 0 {
		workers = 1
	}

	return &ConsumerService{
		eventConsumer: eventConsumer,
		jobConsumer:   jobConsumer,
		dispatcherSvc: dispatcherSvc,
		webhookSvc:    webhookSvc,
		workers:       workers,
		logger:        logger,
	}
}

// Run запускает циклы потребления и блокируется до отмены контекста
func (s *ConsumerService) Run(ctx context.Context) error {
	s.logger.Info("Starting event consumers", map[string]interface{}{
		"webhook_workers": s.workers,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.consumeDomainEvents(gctx)
	})

	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			return s.consumeWebhookJobs(gctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close закрывает подключения к Kafka
func (s *ConsumerService) Close() error {
	if err := s.eventConsumer.Close(); err != nil {
		return err
	}
	return s.jobConsumer.Close()
}

// consumeDomainEvents разворачивает доменные события в уведомления
// и задания вебхуков
func (s *ConsumerService) consumeDomainEvents(ctx context.Context) error {
	for {
		msg, err := s.eventConsumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		var eventMsg messaging.DomainEventMessage
		if err := s.eventConsumer.ParseMessage(msg, &eventMsg); err != nil {
			continue
		}

		event := eventMsg.ToDomain()

		if err := s.dispatcherSvc.ProcessDomainEvent(ctx, event); err != nil {
			s.logger.Error("Failed to process domain event", err, map[string]interface{}{
				"event_id":   event.ID,
				"event_type": event.Type,
			})
		}

		if _, err := s.webhookSvc.Trigger(ctx, event); err != nil {
			s.logger.Error("Failed to trigger webhooks", err, map[string]interface{}{
				"event_id":   event.ID,
				"event_type": event.Type,
			})
		}
	}
}

// consumeWebhookJobs доставляет задания вебхуков
func (s *ConsumerService) consumeWebhookJobs(ctx context.Context) error {
	for {
		msg, err := s.jobConsumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		var job messaging.WebhookJob
		if err := s.jobConsumer.ParseMessage(msg, &job); err != nil {
			continue
		}

		if err := s.webhookSvc.Deliver(ctx, &job); err != nil {
			s.logger.Error("Failed to deliver webhook job", err, map[string]interface{}{
				"webhook_id": job.WebhookID,
				"event":      job.Event,
			})
		}
	}
}
