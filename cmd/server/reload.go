package main

import (
	"sync"

	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/flipflop/backend/internal/infrastructure/logger"
	"github.com/flipflop/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// reloader applies the hot-reloadable part of a changed config file: log
// level and rate limits. Everything else needs a restart.
type reloader struct {
	mu          sync.Mutex
	log         *logger.Logger
	sinkLevel   zap.AtomicLevel
	limiter     *middleware.RateLimiter
	authLimiter *middleware.RateLimiter
}

func newReloader(level zap.AtomicLevel) *reloader {
	return &reloader{sinkLevel: level}
}

func (r *reloader) attach(log *logger.Logger, limiter, authLimiter *middleware.RateLimiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = log
	r.limiter = limiter
	r.authLimiter = authLimiter
}

func (r *reloader) apply(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.log == nil {
		return
	}

	r.log.SetLevel(cfg.Log.Level)
	if lvl, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
		r.sinkLevel.SetLevel(lvl)
	}
	if r.limiter != nil && cfg.HTTP.RateLimitRequests > 0 {
		r.limiter.SetLimit(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
	}
	if r.authLimiter != nil && cfg.HTTP.AuthRateLimitRequests > 0 {
		r.authLimiter.SetLimit(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
	}

	r.log.Info("Configuration reloaded",
		zap.String("log_level", cfg.Log.Level),
		zap.Int("rate_limit", cfg.HTTP.RateLimitRequests),
		zap.Int("auth_rate_limit", cfg.HTTP.AuthRateLimitRequests),
	)
}

func (r *reloader) failed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.log != nil {
		r.log.Warn("Ignoring invalid configuration change", zap.Error(err))
	}
}
