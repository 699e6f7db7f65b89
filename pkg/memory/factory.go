package memory

import (
	"context"
	"fmt"

	"github.com/tagus/weather-supervisor/pkg/config"
	"github.com/tagus/weather-supervisor/pkg/interfaces"
)

const (
	BackendInMemory = "inmemory"
	BackendRedis    = "redis"
)

// New creates the memory backend selected by the configuration. The returned
// close func releases the backend's connections.
func New(ctx context.Context, cfg *config.Config) (interfaces.Memory, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Memory.Backend {
	case "", BackendInMemory:
		return NewConversationBuffer(WithMaxSize(cfg.Memory.MaxSize)), noop, nil
	case BackendRedis:
		if cfg.Memory.Redis.Addr == "" {
			return nil, noop, fmt.Errorf("redis address: %w", config.ErrMissingConfig)
		}
		options := []RedisOption{WithRedisMaxSize(cfg.Memory.MaxSize)}
		if cfg.Memory.Redis.TTL > 0 {
			options = append(options, WithTTL(cfg.Memory.Redis.TTL))
		}
		if cfg.Memory.Redis.KeyPrefix != "" {
			options = append(options, WithKeyPrefix(cfg.Memory.Redis.KeyPrefix))
		}
		mem, err := NewRedisMemoryFromConfig(ctx, RedisConfig{
			Addr:     cfg.Memory.Redis.Addr,
			Password: cfg.Memory.Redis.Password,
			DB:       cfg.Memory.Redis.DB,
		}, options...)
		if err != nil {
			return nil, noop, err
		}
		return mem, mem.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported memory backend: %s", cfg.Memory.Backend)
	}
}
