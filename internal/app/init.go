package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nurlyy/task_notifier/internal/messaging"
	"github.com/nurlyy/task_notifier/internal/repository/cache"
	"github.com/nurlyy/task_notifier/internal/repository/postgres"
	"github.com/nurlyy/task_notifier/internal/service"
	redisClient "github.com/nurlyy/task_notifier/pkg/cache"
	"github.com/nurlyy/task_notifier/pkg/config"
	"github.com/nurlyy/task_notifier/pkg/database"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// Repositories содержит все репозитории для работы с хранилищами данных
type Repositories struct {
	UserRepository            *postgres.UserRepository
	TaskRepository            *postgres.TaskRepository
	NotificationRepository    *postgres.NotificationRepository
	PreferenceRepository      *postgres.PreferenceRepository
	ReminderRepository        *postgres.ReminderRepository
	QueueRepository           *postgres.QueueRepository
	WebhookRepository         *postgres.WebhookRepository
	WebhookDeliveryRepository *postgres.WebhookDeliveryRepository
	DigestRepository          *postgres.DigestRepository
	CacheRepository           *cache.RedisRepository
}

// Messaging содержит все клиенты для работы с сообщениями
type Messaging struct {
	Producer *messaging.KafkaProducer
}

// Services содержит все сервисы приложения
type Services struct {
	PreferenceService   *service.PreferenceService
	NotificationService *service.NotificationService
	DispatcherService   *service.DispatcherService
	ReminderService     *service.ReminderService
	DigestService       *service.DigestService
	WebhookService      *service.WebhookService
}

// Application содержит все компоненты приложения
type Application struct {
	Config       *config.Config
	DB           *sqlx.DB
	Redis        *redisClient.Redis
	Logger       logger.Logger
	Repositories *Repositories
	Messaging    *Messaging
	Services     *Services
}

// NewApplication создает новое приложение с инициализированными компонентами
func NewApplication(ctx context.Context, cfg *config.Config, log logger.Logger) (*Application, error) {
	// Инициализация базы данных PostgreSQL
	postgresDB, err := initPostgres(ctx, &cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	// Инициализация Redis
	redisCache, err := initRedis(ctx, &cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	// Инициализация репозиториев
	repos := initRepositories(postgresDB, redisCache, log, cfg)

	// Инициализация Kafka
	msgClients := initMessaging(cfg, log)

	// Инициализация сервисов
	services := initServices(repos, msgClients, cfg, log)

	return &Application{
		Config:       cfg,
		DB:           postgresDB,
		Redis:        redisCache,
		Logger:       log,
		Repositories: repos,
		Messaging:    msgClients,
		Services:     services,
	}, nil
}

// Close закрывает все соединения с внешними сервисами
func (app *Application) Close() {
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Error closing PostgreSQL connection", err)
		}
	}

	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			app.Logger.Error("Error closing Redis connection", err)
		}
	}

	if app.Messaging.Producer != nil {
		if err := app.Messaging.Producer.Close(); err != nil {
			app.Logger.Error("Error closing Kafka producer", err)
		}
	}
}

// Инициализация PostgreSQL
func initPostgres(ctx context.Context, cfg *config.DatabaseConfig, log logger.Logger) (*sqlx.DB, error) {
	postgres, err := database.NewPostgres(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return postgres.DB, nil
}

// Инициализация Redis
func initRedis(ctx context.Context, cfg *config.RedisConfig, log logger.Logger) (*redisClient.Redis, error) {
	redis, err := redisClient.NewRedis(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return redis, nil
}

// Инициализация репозиториев
func initRepositories(db *sqlx.DB, redis *redisClient.Redis, log logger.Logger, cfg *config.Config) *Repositories {
	// Инициализация PostgreSQL репозиториев
	userRepo := postgres.NewUserRepository(db, log)
	taskRepo := postgres.NewTaskRepository(db, log)
	notificationRepo := postgres.NewNotificationRepository(db, log)
	preferenceRepo := postgres.NewPreferenceRepository(db, log)
	reminderRepo := postgres.NewReminderRepository(db, log)
	queueRepo := postgres.NewQueueRepository(db, log)
	webhookRepo := postgres.NewWebhookRepository(db, log)
	deliveryRepo := postgres.NewWebhookDeliveryRepository(db, log)
	digestRepo := postgres.NewDigestRepository(db, log)

	// Инициализация Redis репозитория
	cacheRepo := cache.NewRedisRepository(redis.Client, log, cfg.Redis.DefaultTTL)

	return &Repositories{
		UserRepository:            userRepo,
		TaskRepository:            taskRepo,
		NotificationRepository:    notificationRepo,
		PreferenceRepository:      preferenceRepo,
		ReminderRepository:        reminderRepo,
		QueueRepository:           queueRepo,
		WebhookRepository:         webhookRepo,
		WebhookDeliveryRepository: deliveryRepo,
		DigestRepository:          digestRepo,
		CacheRepository:           cacheRepo,
	}
}

// Инициализация Kafka
func initMessaging(cfg *config.Config, log logger.Logger) *Messaging {
	producer := messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, log)

	return &Messaging{
		Producer: producer,
	}
}

// Инициализация сервисов
func initServices(repos *Repositories, msgClients *Messaging, cfg *config.Config, log logger.Logger) *Services {
	preferenceSvc := service.NewPreferenceService(repos.PreferenceRepository, repos.CacheRepository, log)
	notificationSvc := service.NewNotificationService(repos.NotificationRepository, repos.CacheRepository, log)

	// Каналы доставки уведомлений
	senders := []service.ChannelSender{
		service.NewWebSender(repos.NotificationRepository, repos.CacheRepository, log),
		service.NewEmailSender(&cfg.Notifier.SMTP, log),
		service.NewPushSender(&cfg.Notifier.Push, log),
	}

	dispatcherSvc := service.NewDispatcherService(
		repos.QueueRepository,
		repos.UserRepository,
		preferenceSvc,
		senders,
		&cfg.Dispatcher,
		log,
	)

	reminderSvc := service.NewReminderService(repos.ReminderRepository, repos.TaskRepository, dispatcherSvc, log)

	digestSvc := service.NewDigestService(
		repos.DigestRepository,
		repos.TaskRepository,
		repos.PreferenceRepository,
		dispatcherSvc,
		log,
	)

	webhookSvc := service.NewWebhookService(
		repos.WebhookRepository,
		repos.WebhookDeliveryRepository,
		repos.CacheRepository,
		msgClients.Producer,
		&cfg.Webhook,
		log,
	)

	return &Services{
		PreferenceService:   preferenceSvc,
		NotificationService: notificationSvc,
		DispatcherService:   dispatcherSvc,
		ReminderService:     reminderSvc,
		DigestService:       digestSvc,
		WebhookService:      webhookSvc,
	}
}
