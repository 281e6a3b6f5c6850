package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
	"yoloweb/internal/config"
	"yoloweb/internal/dto"
	"yoloweb/internal/logger"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DetectionCache remembers detections for image content already seen.
type DetectionCache interface {
	Get(ctx context.Context, key string) ([]dto.Detection, bool, error)
	Set(ctx context.Context, key string, detections []dto.Detection) error
	Close() error
}

// Key builds the cache key for an image digest processed by a detector backend.
func Key(detector string, digest []byte) string {
	return fmt.Sprintf("detections:%s:%s", detector, hex.EncodeToString(digest))
}

// RedisCache stores detections as JSON strings with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedisCache connects to cfg.RedisAddress and verifies the connection.
func NewRedisCache(cfg *config.Config, logger *logger.Logger) (*RedisCache, error) {
	logger.Info("Connecting to Redis at %s...", cfg.RedisAddress)

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return &RedisCache{client: client, ttl: cfg.CacheTTL, logger: logger}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]dto.Detection, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	var detections []dto.Detection
	if err := json.Unmarshal(val, &detections); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached detections: %w", err)
	}
	if detections == nil {
		detections = []dto.Detection{}
	}

	c.logger.Debug("Cache hit for %s", key)
	return detections, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, detections []dto.Detection) error {
	data, err := json.Marshal(detections)
	if err != nil {
		return fmt.Errorf("failed to encode detections: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
