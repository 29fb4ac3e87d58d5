package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys of work that already ran: outbox event
// deliveries per handler and saga runs per order.
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. false means another run holds it.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Forget releases key after a failed run so a retry may claim it
	Forget(ctx context.Context, key string) error
	Close() error
}

type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig keeps claims for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{TTL: 24 * time.Hour, Enabled: true}
}
