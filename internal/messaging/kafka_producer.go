package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/pkg/config"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// KafkaProducer реализует интерфейс продюсера для отправки сообщений в Kafka
type KafkaProducer struct {
	writer *kafka.Writer
	topics config.KafkaTopics
	logger logger.Logger
}

// NewKafkaProducer создает новый экземпляр KafkaProducer
func NewKafkaProducer(brokers []string, topics config.KafkaTopics, logger logger.Logger) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  5,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Logger:       kafkaLogAdapter{log: logger},
	}

	return &KafkaProducer{
		writer: writer,
		topics: topics,
		logger: logger,
	}
}

// Close закрывает соединение с Kafka
func (p *KafkaProducer) Close() error {
	p.logger.Info("Closing Kafka producer")
	return p.writer.Close()
}

// PublishDomainEvent публикует доменное событие.
// Ключом служит ID события, так что дубликаты попадают в одну партицию.
func (p *KafkaProducer) PublishDomainEvent(ctx context.Context, event *domain.DomainEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	return p.publishEvent(ctx, p.topics.DomainEvents, event.ID, NewDomainEventMessage(event))
}

// PublishWebhookJob публикует задание на доставку вебхука.
// Ключ по ID вебхука сохраняет порядок доставок одного получателя.
func (p *KafkaProducer) PublishWebhookJob(ctx context.Context, job *WebhookJob) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	return p.publishEvent(ctx, p.topics.WebhookJobs, job.WebhookID, job)
}

// Вспомогательный метод для публикации событий

func (p *KafkaProducer) publishEvent(ctx context.Context, topic, key string, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event", err, map[string]interface{}{
			"topic": topic,
			"key":   key,
		})
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
			Time:  time.Now(),
		},
	)
	elapsed := time.Since(start)

	if err != nil {
		p.logger.Error("Failed to publish event", err, map[string]interface{}{
			"topic":   topic,
			"key":     key,
			"elapsed": elapsed.String(),
		})
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Successfully published event", map[string]interface{}{
		"topic":   topic,
		"key":     key,
		"elapsed": elapsed.String(),
	})

	return nil
}

// kafkaLogAdapter приводит logger.Logger к kafka.Logger
type kafkaLogAdapter struct {
	log logger.Logger
}

func (a kafkaLogAdapter) Printf(format string, args ...interface{}) {
	a.log.Debug(fmt.Sprintf(format, args...))
}
