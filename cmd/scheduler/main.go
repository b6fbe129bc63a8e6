package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nurlyy/task_notifier/internal/app"
	"github.com/nurlyy/task_notifier/internal/service"
	"github.com/nurlyy/task_notifier/pkg/config"
	applogger "github.com/nurlyy/task_notifier/pkg/logger"
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
	logger.Info("Starting scheduler service")

	// Инициализируем основное приложение
	application, err := app.NewApplication(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", err)
	}
	defer application.Close()

	// Инициализируем сервис планировщика
	schedulerService := service.NewSchedulerService(
		application.Services.ReminderService,
		application.Services.DigestService,
		application.Services.DispatcherService,
		application.Repositories.CacheRepository,
		&cfg.Scheduler,
		logger,
	)

	// Запускаем планировщик
	if err := schedulerService.Start(ctx); err != nil {
		logger.Fatal("Failed to start scheduler service", err)
	}

	// Создаем канал для перехвата сигналов остановки
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Блокируем основную горутину до получения сигнала остановки
	<-stop
	logger.Info("Shutting down scheduler service")

	// Останавливаем планировщик и даем задачам время завершиться
	cancel()
	time.Sleep(time.Second)
	logger.Info("Scheduler service stopped")
}
