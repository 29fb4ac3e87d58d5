package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist revokes tokens before they expire (logout, password change)
type TokenBlacklist interface {
	// AddToBlacklist revokes a single token ID for ttl
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	// AddUserTokensToBlacklist revokes every token issued to the user up to now
	AddUserTokensToBlacklist(ctx context.Context, userID string, ttl time.Duration) error
	IsUserTokenInvalidated(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

// Revoke blacklists the token described by claims for the rest of its lifetime
func Revoke(ctx context.Context, bl TokenBlacklist, claims *Claims) error {
	ttl := claims.RemainingTTL()
	if ttl <= 0 {
		return nil
	}
	return bl.AddToBlacklist(ctx, claims.ID, ttl)
}

// CheckRevoked returns ErrTokenBlacklisted when the token or all of its user's
// sessions were revoked
func CheckRevoked(ctx context.Context, bl TokenBlacklist, claims *Claims) error {
	revoked, err := bl.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return err
	}
	if !revoked {
		revoked, err = bl.IsUserTokenInvalidated(ctx, claims.UserID, claims.IssuedAtTime())
		if err != nil {
			return err
		}
	}
	if revoked {
		return ErrTokenBlacklisted
	}
	return nil
}

const DefaultBlacklistPrefix = "flipflop:auth:revoked:"

// RedisTokenBlacklist keeps revocations in Redis so every gateway replica sees them
type RedisTokenBlacklist struct {
	client    redis.Cmdable
	keyPrefix string
}

// NewRedisTokenBlacklist wraps an existing client
func NewRedisTokenBlacklist(client redis.Cmdable, keyPrefix string) *RedisTokenBlacklist {
	if keyPrefix == "" {
		keyPrefix = DefaultBlacklistPrefix
	}
	return &RedisTokenBlacklist{client: client, keyPrefix: keyPrefix}
}

func (b *RedisTokenBlacklist) jtiKey(jti string) string       { return b.keyPrefix + "jti:" + jti }
func (b *RedisTokenBlacklist) userKey(userID string) string { return b.keyPrefix + "user:" + userID }

func (b *RedisTokenBlacklist) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if err := b.client.Set(ctx, b.jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (b *RedisTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, b.jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}

// AddUserTokensToBlacklist stores the revocation instant as unix seconds
func (b *RedisTokenBlacklist) AddUserTokensToBlacklist(ctx context.Context, userID string, ttl time.Duration) error {
	if err := b.client.Set(ctx, b.userKey(userID), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	return nil
}

func (b *RedisTokenBlacklist) IsUserTokenInvalidated(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	raw, err := b.client.Get(ctx, b.userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user revocation: %w", err)
	}
	revokedAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse revocation timestamp: %w", err)
	}
	return issuedAt.Unix() <= revokedAt, nil
}

var _ TokenBlacklist = (*RedisTokenBlacklist)(nil)

// InMemoryTokenBlacklist is the single-instance variant used when Redis is
// disabled and in tests
type InMemoryTokenBlacklist struct {
	mu        sync.Mutex
	tokens    map[string]time.Time // jti -> entry expiry
	revokedAt map[string]time.Time // userID -> revocation instant
}

func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		tokens:    make(map[string]time.Time),
		revokedAt: make(map[string]time.Time),
	}
}

func (b *InMemoryTokenBlacklist) AddToBlacklist(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[jti] = time.Now().Add(ttl)
	return nil
}

func (b *InMemoryTokenBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	expiry, ok := b.tokens[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(b.tokens, jti)
		return false, nil
	}
	return true, nil
}

func (b *InMemoryTokenBlacklist) AddUserTokensToBlacklist(_ context.Context, userID string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revokedAt[userID] = time.Now()
	return nil
}

func (b *InMemoryTokenBlacklist) IsUserTokenInvalidated(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	at, ok := b.revokedAt[userID]
	if !ok {
		return false, nil
	}
	return !issuedAt.After(at), nil
}

var _ TokenBlacklist = (*InMemoryTokenBlacklist)(nil)
