package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"

	"github.com/nurlyy/task_notifier/internal/api/handlers"
	mw "github.com/nurlyy/task_notifier/internal/api/middleware"
	"github.com/nurlyy/task_notifier/internal/service"
	"github.com/nurlyy/task_notifier/pkg/auth"
	"github.com/nurlyy/task_notifier/pkg/config"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// Server представляет HTTP сервер API
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	logger      logger.Logger
	config      *config.Config
	jwtManager  *auth.JWTManager
	baseHandler handlers.BaseHandler
	services    *Services
	redisClient *redis.Client
}

// Services содержит все сервисы для обработчиков API
type Services struct {
	NotificationService *service.NotificationService
	PreferenceService   *service.PreferenceService
	ReminderService     *service.ReminderService
	WebhookService      *service.WebhookService
}

// NewServer создает новый экземпляр сервера API
func NewServer(config *config.Config, logger logger.Logger, jwtManager *auth.JWTManager, services *Services, redisClient *redis.Client) *Server {
	baseHandler := handlers.NewBaseHandler(logger, jwtManager)

	server := &Server{
		router:      chi.NewRouter(),
		logger:      logger,
		config:      config,
		jwtManager:  jwtManager,
		baseHandler: baseHandler,
		services:    services,
		redisClient: redisClient,
	}

	// Настраиваем маршрутизацию
	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты API
func (s *Server) setupRoutes() {
	// Инициализируем обработчики
	notificationHandler := handlers.NewNotificationHandler(s.baseHandler, s.services.NotificationService)
	preferenceHandler := handlers.NewPreferenceHandler(s.baseHandler, s.services.PreferenceService)
	reminderHandler := handlers.NewReminderHandler(s.baseHandler, s.services.ReminderService)
	webhookHandler := handlers.NewWebhookHandler(s.baseHandler, s.services.WebhookService, auth.NewRoleChecker())

	// Инициализируем middleware
	authMiddleware := mw.NewAuthMiddleware(s.jwtManager, s.logger)
	loggingMiddleware := mw.NewLoggingMiddleware(s.logger)

	// Настраиваем Rate Limiter, счетчики храним в Redis
	rateLimiter := mw.NewRateLimiter(mw.RateLimiterConfig{
		Limit:    100,
		Period:   60,
		Strategy: mw.RateLimitUser,
	}, s.redisClient, s.logger)

	// Настраиваем middleware для всех запросов
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(loggingMiddleware.LogRequest)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(rateLimiter.Limit)

	// Настраиваем CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Базовый маршрут для проверки работоспособности API
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"OK"}`))
	})

	// API v1, все маршруты требуют аутентификации
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Маршруты для уведомлений
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.ListNotifications)
				r.Get("/count", notificationHandler.GetUnreadCount)
				r.Put("/{id}/read", notificationHandler.MarkAsRead)
				r.Put("/read-all", notificationHandler.MarkAllAsRead)

				// Настройки уведомлений текущего пользователя
				r.Get("/preferences", preferenceHandler.GetPreferences)
				r.Put("/preferences", preferenceHandler.UpdatePreferences)
			})

			// Маршруты для напоминаний
			r.Route("/reminders", func(r chi.Router) {
				r.Get("/", reminderHandler.ListReminders)
				r.Put("/{id}/snooze", reminderHandler.SnoozeReminder)
			})

			// Напоминания по задаче
			r.Post("/tasks/{task_id}/reminders", reminderHandler.CreateTaskReminders)

			// Маршруты для вебхуков
			r.Route("/webhooks", func(r chi.Router) {
				r.Post("/", webhookHandler.CreateWebhook)
				r.Get("/", webhookHandler.ListWebhooks)
				r.Get("/{id}", webhookHandler.GetWebhook)
				r.Post("/{id}/test", webhookHandler.TestWebhook)
				r.Put("/{id}", webhookHandler.UpdateWebhook)
				r.Delete("/{id}", webhookHandler.DeleteWebhook)
				r.Get("/{id}/deliveries", webhookHandler.ListDeliveries)
			})
		})
	})
}

// ServeHTTP реализует интерфейс http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start запускает HTTP сервер
func (s *Server) Start() error {
	s.logger.Info("Starting API server", map[string]interface{}{
		"port": s.config.HTTP.Port,
	})

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.HTTP.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.HTTP.ReadTimeout,
		WriteTimeout: s.config.HTTP.WriteTimeout,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown корректно останавливает HTTP сервер
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}
