package cache

import "github.com/flipflop/backend/internal/infrastructure/config"

// unreachableRedis points at a port nothing listens on
func unreachableRedis() config.RedisConfig {
	return config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}
}
