package cache

import (
	"context"
	"fmt"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/config"
	"go.uber.org/zap"
)

// DeliveryStoreFactory picks a delivery de-duplication store based on configuration
type DeliveryStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// DeliveryStoreFactoryOption is a functional option for configuring the factory
type DeliveryStoreFactoryOption func(*DeliveryStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) DeliveryStoreFactoryOption {
	return func(f *DeliveryStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to the in-memory store.
// Default is true.
func WithInMemoryFallback(allow bool) DeliveryStoreFactoryOption {
	return func(f *DeliveryStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewDeliveryStoreFactory creates a new factory
func NewDeliveryStoreFactory(cfg config.RedisConfig, opts ...DeliveryStoreFactoryOption) *DeliveryStoreFactory {
	f := &DeliveryStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns a Redis store when Redis is configured and reachable,
// otherwise the in-memory store if fallback is allowed.
func (f *DeliveryStoreFactory) CreateStore(ctx context.Context) (shared.DeliveryDeduplicator, error) {
	if f.redisConfig.Host == "" {
		f.logger.Info("Redis not configured, using in-memory webhook delivery store")
		return NewInMemoryDeliveryStore(0), nil
	}

	store, err := NewRedisDeliveryStore(ctx, RedisConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("Using Redis webhook delivery store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for webhook de-duplication but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory webhook delivery store. "+
		"Redeliveries to other instances will not be detected.",
		zap.Error(err),
	)
	return NewInMemoryDeliveryStore(0), nil
}
