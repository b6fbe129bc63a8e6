package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// RateLimitStrategy определяет стратегию ограничения запросов
type RateLimitStrategy string

const (
	// RateLimitIP ограничивает запросы по IP-адресу
	RateLimitIP RateLimitStrategy = "ip"
	// RateLimitUser ограничивает запросы по ID пользователя
	RateLimitUser RateLimitStrategy = "user"
	// RateLimitCombined ограничивает запросы по комбинации IP и ID пользователя
	RateLimitCombined RateLimitStrategy = "combined"
)

// RateLimiterConfig содержит настройки для ограничителя запросов
type RateLimiterConfig struct {
	// Максимальное количество запросов в период
	Limit int
	// Период времени для ограничения (в секундах)
	Period int
	// Стратегия ограничения
	Strategy RateLimitStrategy
}

// RateLimiter предоставляет middleware для ограничения частоты запросов.
// Счетчики живут в Redis; без Redis используется локальная карта,
// пригодная только для одного экземпляра.
type RateLimiter struct {
	config     RateLimiterConfig
	logger     logger.Logger
	redis      *redis.Client
	inMemLimit map[string]*limitInfo
	mu         sync.Mutex
}

// limitInfo хранит счетчик окна для локальной реализации
type limitInfo struct {
	count     int
	resetTime time.Time
}

// NewRateLimiter создает новый экземпляр RateLimiter
func NewRateLimiter(config RateLimiterConfig, redisClient *redis.Client, logger logger.Logger) *RateLimiter {
	return &RateLimiter{
		config:     config,
		redis:      redisClient,
		logger:     logger,
		inMemLimit: make(map[string]*limitInfo),
	}
}

// Limit применяет ограничение частоты запросов
func (m *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := m.limitKey(r)

		remaining, resetTime, limited, err := m.isLimited(r.Context(), key)
		if err != nil {
			m.logger.Error("Rate limiter error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.config.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if limited {
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(resetTime).Seconds())))
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// limitKey формирует ключ счетчика в зависимости от стратегии.
// Для неаутентифицированных запросов всегда используется IP.
func (m *RateLimiter) limitKey(r *http.Request) string {
	ip := getClientIP(r)
	userID, _ := r.Context().Value("user_id").(string)

	switch m.config.Strategy {
	case RateLimitUser:
		if userID != "" {
			return fmt.Sprintf("rate_limit:user:%s", userID)
		}
	case RateLimitCombined:
		if userID != "" {
			return fmt.Sprintf("rate_limit:combined:%s:%s", ip, userID)
		}
	}

	return fmt.Sprintf("rate_limit:ip:%s", ip)
}

func (m *RateLimiter) isLimited(ctx context.Context, key string) (int, time.Time, bool, error) {
	if m.redis != nil {
		return m.isLimitedRedis(ctx, key)
	}
	return m.isLimitedInMemory(key)
}

// isLimitedRedis считает запросы в Redis: счетчик на окно с TTL,
// инкремент и установка TTL выполняются атомарно в pipeline
func (m *RateLimiter) isLimitedRedis(ctx context.Context, key string) (int, time.Time, bool, error) {
	now := time.Now()
	windowKey := fmt.Sprintf("%s:%d", key, now.Unix()/int64(m.config.Period))

	pipe := m.redis.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, time.Duration(m.config.Period)*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, now, false, err
	}

	count, err := incr.Result()
	if err != nil {
		return 0, now, false, err
	}

	resetTime := now.Add(time.Duration(m.config.Period) * time.Second)
	remaining := m.config.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return remaining, resetTime, count > int64(m.config.Limit), nil
}

// isLimitedInMemory считает запросы в локальной карте.
// Протухшие счетчики вычищаются попутно, отдельного фонового
// процесса очистки нет.
func (m *RateLimiter) isLimitedInMemory(key string) (int, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for k, info := range m.inMemLimit {
		if now.After(info.resetTime) {
			delete(m.inMemLimit, k)
		}
	}

	info, exists := m.inMemLimit[key]
	if !exists {
		info = &limitInfo{resetTime: now.Add(time.Duration(m.config.Period) * time.Second)}
		m.inMemLimit[key] = info
	}
	info.count++

	remaining := m.config.Limit - info.count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, info.resetTime, info.count > m.config.Limit, nil
}

// getClientIP возвращает IP-адрес клиента с учетом прокси-заголовков
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
