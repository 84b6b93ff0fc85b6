// Package cache holds the Redis-backed stores used around the HTTP layer.
// Every store accepts a nil client and then behaves as an empty cache.
package cache

import (
	"context"
	"time"

	"storefront-admin/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewRedisClient connects to Redis. It returns nil when Redis is not
// configured or unreachable so the service can start without it.
func NewRedisClient(cfg config.RedisConfig, log *logrus.Logger) *redis.Client {
	if !cfg.Enabled() {
		log.Info("Redis not configured, running without cache")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).WithField("addr", cfg.Addr).Warn("Redis unreachable, running without cache")
		_ = client.Close()
		return nil
	}

	log.WithField("addr", cfg.Addr).Info("Connected to Redis")
	return client
}
