// Package cache provides the idempotency stores that guard event handlers and
// inventory adjustments against duplicate side effects.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// FactoryOption configures NewIdempotencyStore
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	logger        *zap.Logger
	allowFallback bool
	keyPrefix     string
}

// WithLogger sets the logger used to report the chosen store
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(o *factoryOptions) {
		o.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// the in-memory store (default true)
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(o *factoryOptions) {
		o.allowFallback = allow
	}
}

// WithKeyPrefix overrides DefaultKeyPrefix
func WithKeyPrefix(prefix string) FactoryOption {
	return func(o *factoryOptions) {
		o.keyPrefix = prefix
	}
}

// NewIdempotencyStore returns a Redis-backed store when Redis is configured
// and reachable, and the in-memory store otherwise
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, opts ...FactoryOption) (shared.IdempotencyStore, error) {
	o := factoryOptions{logger: zap.NewNop(), allowFallback: true}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Host == "" {
		o.logger.Info("redis not configured, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if !o.allowFallback {
			return nil, fmt.Errorf("redis %s unreachable: %w", cfg.Addr(), err)
		}
		o.logger.Warn("redis unreachable, falling back to in-memory idempotency store; "+
			"duplicate processing is possible across instances",
			zap.String("addr", cfg.Addr()),
			zap.Error(err),
		)
		return NewInMemoryIdempotencyStore(), nil
	}

	o.logger.Info("using redis idempotency store", zap.String("addr", cfg.Addr()))
	return NewRedisIdempotencyStore(client, o.keyPrefix), nil
}
