package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"turfbook/internal/config"
	"turfbook/internal/models"

	"github.com/redis/go-redis/v9"
)

const occupancyKey = "occupancy:v1"

// RedisOccupancyCache хранит снимок занятости слотов одним JSON-значением
// с TTL. Кэш только для отрисовки: решения о допуске его не читают.
type RedisOccupancyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisOccupancyCache(client *redis.Client, ttl time.Duration) *RedisOccupancyCache {
	return &RedisOccupancyCache{client: client, ttl: ttl}
}

func (r *RedisOccupancyCache) Get(ctx context.Context) (map[string]models.OccupancyState, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, occupancyKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get occupancy from redis: %w", err)
	}

	var states map[string]models.OccupancyState
	if err := json.Unmarshal([]byte(val), &states); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal occupancy: %w", err)
	}
	return states, true, nil
}

func (r *RedisOccupancyCache) Set(ctx context.Context, states map[string]models.OccupancyState) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("failed to marshal occupancy: %w", err)
	}

	if err := r.client.Set(ctx, occupancyKey, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set occupancy in redis: %w", err)
	}
	return nil
}

func (r *RedisOccupancyCache) Invalidate(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, occupancyKey).Err(); err != nil {
		return fmt.Errorf("failed to delete occupancy from redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
