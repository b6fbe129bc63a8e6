package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nurlyy/task_notifier/internal/app"
	"github.com/nurlyy/task_notifier/internal/messaging"
	"github.com/nurlyy/task_notifier/internal/service"
	"github.com/nurlyy/task_notifier/pkg/config"
	applogger "github.com/nurlyy/task_notifier/pkg/logger"
)

const (
	eventConsumerGroup = "task-notifier-dispatcher"
	jobConsumerGroup   = "task-notifier-webhooks"
)

func main() {
	// Инициализируем контекст приложения
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Обновляем контекст приложения в конфигурации
	cfg.App.Context = ctx

	// Инициализируем логгер
	logger := applogger.NewLogger(cfg.App.LogLevel, cfg.App.Environment == "production")
	logger.Info("Starting dispatcher service")

	// Инициализируем основное приложение
	application, err := app.NewApplication(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", err)
	}
	defer application.Close()

	// Потребители доменных событий и заданий вебхуков
	eventConsumer := messaging.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.DomainEvents, eventConsumerGroup, logger)
	jobConsumer := messaging.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.WebhookJobs, jobConsumerGroup, logger)

	consumerService := service.NewConsumerService(
		eventConsumer,
		jobConsumer,
		application.Services.DispatcherService,
		application.Services.WebhookService,
		cfg.Dispatcher.WorkerPoolSize,
		logger,
	)
	defer consumerService.Close()

	// Останавливаемся по сигналу
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		logger.Info("Shutting down dispatcher service")
		cancel()
	}()

	// Блокируемся до отмены контекста
	if err := consumerService.Run(ctx); err != nil {
		logger.Fatal("Consumer service stopped with error", err)
	}

	logger.Info("Dispatcher service stopped")
}
