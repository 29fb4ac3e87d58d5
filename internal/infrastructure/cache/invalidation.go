package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultInvalidationChannel = "flipflop:cache:invalidate"
	defaultCloseTimeout        = 5 * time.Second
)

// InvalidationMessage tells every replica to drop an L1 entry. An empty Key
// means drop everything in Scope.
type InvalidationMessage struct {
	Scope     string `json:"scope"`
	Key       string `json:"key,omitempty"`
	Origin    string `json:"origin"`
	Timestamp int64  `json:"timestamp"`
}

// Invalidator fans invalidations out over Redis pub/sub
type Invalidator struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger

	mu       sync.Mutex
	running  bool
	cancelFn context.CancelFunc
	doneCh   chan struct{}
	doneOnce sync.Once
}

// NewInvalidator uses origin to let a replica ignore its own messages
func NewInvalidator(client *redis.Client, origin string, logger *zap.Logger) *Invalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{
		client:  client,
		channel: DefaultInvalidationChannel,
		origin:  origin,
		logger:  logger,
		doneCh:  make(chan struct{}),
	}
}

// Publish broadcasts an invalidation for scope/key
func (i *Invalidator) Publish(ctx context.Context, scope, key string) error {
	data, err := json.Marshal(InvalidationMessage{
		Scope:     scope,
		Key:       key,
		Origin:    i.origin,
		Timestamp: time.Now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("marshal invalidation: %w", err)
	}
	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// Subscribe blocks, invoking handle for every message from another replica,
// until ctx ends or Close is called.
func (i *Invalidator) Subscribe(ctx context.Context, handle func(InvalidationMessage)) error {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return errors.New("invalidation subscription already running")
	}
	subCtx, cancel := context.WithCancel(ctx)
	i.running = true
	i.cancelFn = cancel
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.running = false
		i.mu.Unlock()
		i.doneOnce.Do(func() { close(i.doneCh) })
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("subscribe %s: %w", i.channel, err)
	}
	i.logger.Info("subscribed to cache invalidation", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m InvalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				i.logger.Warn("dropping malformed invalidation", zap.String("payload", msg.Payload), zap.Error(err))
				continue
			}
			if m.Origin == i.origin {
				continue
			}
			handle(m)
		}
	}
}

func (i *Invalidator) Close() {
	i.mu.Lock()
	cancel := i.cancelFn
	i.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-i.doneCh:
	case <-time.After(defaultCloseTimeout):
		i.logger.Warn("timed out waiting for invalidation subscription to stop")
	}
}
