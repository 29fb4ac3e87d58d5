package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flipflop/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const productScope = "product"

// ProductCache is the read-through cache in front of GET /products/:id
type ProductCache interface {
	Get(ctx context.Context, id uuid.UUID) (*catalog.Product, bool)
	Set(ctx context.Context, p *catalog.Product)
	Invalidate(ctx context.Context, id uuid.UUID)
}

// TieredProductCache keeps an L1 map per replica and an L2 copy in Redis.
// Invalidation removes both tiers locally and tells the other replicas to
// drop their L1 copy.
type TieredProductCache struct {
	l1          *LocalCache[catalog.Product]
	l2          redis.Cmdable
	l2TTL       time.Duration
	keyPrefix   string
	invalidator *Invalidator
	logger      *zap.Logger
	recorder    LookupRecorder
}

// LookupRecorder counts hits and misses per cache tier
type LookupRecorder interface {
	CacheLookup(tier string, hit bool)
}

// SetRecorder attaches a lookup recorder; call before serving traffic
func (c *TieredProductCache) SetRecorder(r LookupRecorder) {
	c.recorder = r
}

func (c *TieredProductCache) record(tier string, hit bool) {
	if c.recorder != nil {
		c.recorder.CacheLookup(tier, hit)
	}
}

// NewTieredProductCache; l2 and invalidator may be nil for a local-only cache
func NewTieredProductCache(l1TTL, l2TTL time.Duration, l2 redis.Cmdable, invalidator *Invalidator, logger *zap.Logger) *TieredProductCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredProductCache{
		l1:          NewLocalCache[catalog.Product](l1TTL),
		l2:          l2,
		l2TTL:       l2TTL,
		keyPrefix:   "flipflop:product:",
		invalidator: invalidator,
		logger:      logger.Named("product_cache"),
	}
}

// Run consumes invalidations from other replicas until ctx ends
func (c *TieredProductCache) Run(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.Subscribe(ctx, func(m InvalidationMessage) {
		if m.Scope != productScope {
			return
		}
		if m.Key == "" {
			c.l1.Clear()
			return
		}
		c.l1.Delete(m.Key)
	})
}

func (c *TieredProductCache) Get(ctx context.Context, id uuid.UUID) (*catalog.Product, bool) {
	key := id.String()
	if p, ok := c.l1.Get(key); ok {
		c.record("l1", true)
		return p, true
	}
	c.record("l1", false)
	if c.l2 == nil {
		return nil, false
	}

	raw, err := c.l2.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("l2 read failed", zap.String("product_id", key), zap.Error(err))
		}
		c.record("l2", false)
		return nil, false
	}
	var p catalog.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		c.logger.Warn("l2 entry undecodable", zap.String("product_id", key), zap.Error(err))
		c.record("l2", false)
		return nil, false
	}
	c.record("l2", true)
	c.l1.Set(key, &p)
	return &p, true
}

func (c *TieredProductCache) Set(ctx context.Context, p *catalog.Product) {
	key := p.ID.String()
	c.l1.Set(key, p)
	if c.l2 == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		c.logger.Warn("product not cacheable", zap.String("product_id", key), zap.Error(err))
		return
	}
	if err := c.l2.Set(ctx, c.keyPrefix+key, data, c.l2TTL).Err(); err != nil {
		c.logger.Warn("l2 write failed", zap.String("product_id", key), zap.Error(err))
	}
}

func (c *TieredProductCache) Invalidate(ctx context.Context, id uuid.UUID) {
	key := id.String()
	c.l1.Delete(key)
	if c.l2 != nil {
		if err := c.l2.Del(ctx, c.keyPrefix+key).Err(); err != nil {
			c.logger.Warn("l2 delete failed", zap.String("product_id", key), zap.Error(err))
		}
	}
	if c.invalidator != nil {
		if err := c.invalidator.Publish(ctx, productScope, key); err != nil {
			c.logger.Warn("invalidation broadcast failed", zap.String("product_id", key), zap.Error(err))
		}
	}
}

// Stats returns L1 hit and miss counters
func (c *TieredProductCache) Stats() (hits, misses int64) {
	return c.l1.Stats()
}

func (c *TieredProductCache) Close() {
	c.l1.Close()
	if c.invalidator != nil {
		c.invalidator.Close()
	}
}

func (c *TieredProductCache) String() string {
	return fmt.Sprintf("TieredProductCache{l2=%t}", c.l2 != nil)
}

var _ ProductCache = (*TieredProductCache)(nil)
