package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"courtbook/internal/config"
	"courtbook/internal/models"

	"github.com/redis/go-redis/v9"
)

const tariffKeyPrefix = "tariff:"

// NewRedisClient builds a client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// RedisTariffCache shares resolved tariffs between API instances.
type RedisTariffCache struct {
	client *redis.Client
}

func NewRedisTariffCache(client *redis.Client) *RedisTariffCache {
	return &RedisTariffCache{client: client}
}

func (c *RedisTariffCache) Get(ctx context.Context, key string) (*models.TariffQuote, bool, error) {
	if c.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}
	val, err := c.client.Get(ctx, tariffKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get tariff from redis: %w", err)
	}

	var quote models.TariffQuote
	if err := json.Unmarshal(val, &quote); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal tariff: %w", err)
	}
	return &quote, true, nil
}

func (c *RedisTariffCache) Set(ctx context.Context, key string, quote *models.TariffQuote, ttl time.Duration) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to marshal tariff: %w", err)
	}
	if err := c.client.Set(ctx, tariffKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set tariff in redis: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection if one was opened.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
