package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nurlyy/task_notifier/pkg/logger"
)

// KafkaConsumer читает сообщения из топика в составе группы потребителей.
// Чтение через ReadMessage подтверждает смещения автоматически,
// поэтому доставка получается как минимум однократной.
type KafkaConsumer struct {
	reader *kafka.Reader
	logger logger.Logger
}

// NewKafkaConsumer создает новый экземпляр KafkaConsumer
func NewKafkaConsumer(brokers []string, topic, groupID string, logger logger.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 1 * time.Second,
		RetentionTime:  7 * 24 * time.Hour,
		Logger:         kafkaLogAdapter{log: logger},
	})

	return &KafkaConsumer{
		reader: reader,
		logger: logger,
	}
}

// Close закрывает соединение с Kafka
func (c *KafkaConsumer) Close() error {
	c.logger.Info("Closing Kafka consumer")
	return c.reader.Close()
}

// ReadMessage блокируется до следующего сообщения из топика
func (c *KafkaConsumer) ReadMessage(ctx context.Context) (*Message, error) {
	kafkaMsg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	c.logger.Debug("Successfully read message", map[string]interface{}{
		"topic": kafkaMsg.Topic,
		"group": c.reader.Config().GroupID,
		"key":   string(kafkaMsg.Key),
	})

	return &Message{
		Key:       string(kafkaMsg.Key),
		Value:     kafkaMsg.Value,
		Topic:     kafkaMsg.Topic,
		Partition: kafkaMsg.Partition,
		Offset:    kafkaMsg.Offset,
		Time:      kafkaMsg.Time,
	}, nil
}

// ParseMessage десериализует тело сообщения в структуру
func (c *KafkaConsumer) ParseMessage(msg *Message, dest interface{}) error {
	if err := json.Unmarshal(msg.Value, dest); err != nil {
		c.logger.Error("Failed to parse message", err, map[string]interface{}{
			"topic": msg.Topic,
			"key":   msg.Key,
		})
		return fmt.Errorf("failed to parse message: %w", err)
	}

	return nil
}

// Message представляет сообщение из Kafka
type Message struct {
	Key       string
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Time      time.Time
}
