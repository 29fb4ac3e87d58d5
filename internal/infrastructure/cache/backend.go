package cache

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend is the shared state layer. Client is nil when Redis is disabled or
// unreachable, in which case every store is local to this replica.
type Backend struct {
	Client      *redis.Client
	Idempotency shared.IdempotencyStore
}

// Connect dials Redis when enabled. With allowFallback an unreachable Redis
// degrades to in-memory stores; without it Connect fails.
func Connect(ctx context.Context, cfg config.RedisConfig, log *zap.Logger, allowFallback bool) (*Backend, error) {
	if !cfg.Enabled {
		log.Info("Redis disabled, using in-memory stores")
		return &Backend{Idempotency: NewInMemoryIdempotencyStore()}, nil
	}

	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		if !allowFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		log.Warn("Redis unavailable, using in-memory stores; saga runs are only deduplicated within this replica",
			zap.Error(err))
		return &Backend{Idempotency: NewInMemoryIdempotencyStore()}, nil
	}

	log.Info("Using Redis", zap.String("addr", cfg.Addr()))
	return &Backend{Client: client, Idempotency: NewRedisIdempotencyStore(client, "")}, nil
}

// Distributed reports whether state is shared with other replicas
func (b *Backend) Distributed() bool {
	return b.Client != nil
}

// Ping probes Redis. The in-memory backend is always healthy.
func (b *Backend) Ping(ctx context.Context) error {
	if b.Client == nil {
		return nil
	}
	return b.Client.Ping(ctx).Err()
}

func (b *Backend) Close() error {
	var errs []error
	if c, ok := b.Idempotency.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if b.Client != nil {
		errs = append(errs, b.Client.Close())
	}
	return errors.Join(errs...)
}
