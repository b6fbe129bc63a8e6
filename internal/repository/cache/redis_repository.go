package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/nurlyy/task_notifier/internal/domain"
	"github.com/nurlyy/task_notifier/pkg/logger"
)

// ErrCacheMiss возвращается, когда ключ отсутствует в кэше
var ErrCacheMiss = errors.New("cache miss")

// Префиксы ключей для разных типов данных
const (
	keyPrefixPreference     = "preference:"
	keyPrefixUnreadCount    = "unread:count:"
	keyPrefixActiveWebhooks = "webhooks:active"
	keyPrefixLock           = "lock:"
)

// RedisRepository реализует репозиторий кэширования с использованием Redis
type RedisRepository struct {
	client *redis.Client
	logger logger.Logger
	ttl    time.Duration
}

// NewRedisRepository создает новый экземпляр RedisRepository
func NewRedisRepository(client *redis.Client, logger logger.Logger, ttl time.Duration) *RedisRepository {
	return &RedisRepository{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// CachePreference сохраняет настройки уведомлений пользователя в кэш
func (r *RedisRepository) CachePreference(ctx context.Context, pref *domain.NotificationPreference) error {
	key := fmt.Sprintf("%s%s", keyPrefixPreference, pref.UserID)
	return r.cacheValue(ctx, key, pref)
}

// GetPreference получает настройки уведомлений пользователя из кэша
func (r *RedisRepository) GetPreference(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	key := fmt.Sprintf("%s%s", keyPrefixPreference, userID)
	var pref domain.NotificationPreference
	if err := r.getValue(ctx, key, &pref); err != nil {
		return nil, err
	}
	return &pref, nil
}

// InvalidatePreference удаляет настройки пользователя из кэша
func (r *RedisRepository) InvalidatePreference(ctx context.Context, userID string) error {
	key := fmt.Sprintf("%s%s", keyPrefixPreference, userID)
	return r.deleteValue(ctx, key)
}

// CacheActiveWebhooks сохраняет список активных вебхуков в кэш
func (r *RedisRepository) CacheActiveWebhooks(ctx context.Context, webhooks []*domain.Webhook) error {
	return r.cacheValue(ctx, keyPrefixActiveWebhooks, webhooks)
}

// GetActiveWebhooks получает список активных вебхуков из кэша
func (r *RedisRepository) GetActiveWebhooks(ctx context.Context) ([]*domain.Webhook, error) {
	var webhooks []*domain.Webhook
	if err := r.getValue(ctx, keyPrefixActiveWebhooks, &webhooks); err != nil {
		return nil, err
	}
	return webhooks, nil
}

// InvalidateActiveWebhooks удаляет список активных вебхуков из кэша
func (r *RedisRepository) InvalidateActiveWebhooks(ctx context.Context) error {
	return r.deleteValue(ctx, keyPrefixActiveWebhooks)
}

// CacheUnreadCount сохраняет количество непрочитанных уведомлений пользователя
func (r *RedisRepository) CacheUnreadCount(ctx context.Context, userID string, count int) error {
	key := fmt.Sprintf("%s%s", keyPrefixUnreadCount, userID)
	return r.client.Set(ctx, key, count, r.ttl).Err()
}

// GetUnreadCount получает количество непрочитанных уведомлений пользователя
func (r *RedisRepository) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	key := fmt.Sprintf("%s%s", keyPrefixUnreadCount, userID)
	val, err := r.client.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, ErrCacheMiss
	}
	if err != nil {
		r.logger.Error("Failed to get unread count from Redis", err, map[string]interface{}{
			"user_id": userID,
		})
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	return val, nil
}

// InvalidateUnreadCount удаляет счетчик непрочитанных уведомлений из кэша
func (r *RedisRepository) InvalidateUnreadCount(ctx context.Context, userID string) error {
	key := fmt.Sprintf("%s%s", keyPrefixUnreadCount, userID)
	return r.deleteValue(ctx, key)
}

// AcquireLock получает блокировку с таймаутом
func (r *RedisRepository) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	lockKey := fmt.Sprintf("%s%s", keyPrefixLock, key)
	ok, err := r.client.SetNX(ctx, lockKey, 1, ttl).Result()
	if err != nil {
		r.logger.Error("Failed to acquire lock", err, map[string]interface{}{
			"key": key,
		})
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return ok, nil
}

// ReleaseLock освобождает блокировку
func (r *RedisRepository) ReleaseLock(ctx context.Context, key string) error {
	lockKey := fmt.Sprintf("%s%s", keyPrefixLock, key)
	return r.deleteValue(ctx, lockKey)
}

// Вспомогательные методы

// cacheValue сохраняет значение в кэш
func (r *RedisRepository) cacheValue(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.Error("Failed to marshal value", err, map[string]interface{}{
			"key": key,
		})
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to set value in Redis", err, map[string]interface{}{
			"key": key,
		})
		return fmt.Errorf("failed to set value in Redis: %w", err)
	}

	return nil
}

// getValue получает значение из кэша
func (r *RedisRepository) getValue(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		r.logger.Error("Failed to get value from Redis", err, map[string]interface{}{
			"key": key,
		})
		return fmt.Errorf("failed to get value from Redis: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		r.logger.Error("Failed to unmarshal value", err, map[string]interface{}{
			"key": key,
		})
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return nil
}

// deleteValue удаляет значение из кэша
func (r *RedisRepository) deleteValue(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to delete value from Redis", err, map[string]interface{}{
			"key": key,
		})
		return fmt.Errorf("failed to delete value from Redis: %w", err)
	}
	return nil
}
