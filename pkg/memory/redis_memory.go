package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tagus/weather-supervisor/pkg/interfaces"
)

const maxWatchAttempts = 5

// RedisMemory implements a Redis-backed memory store. Each conversation is a
// Redis list of JSON encoded messages.
type RedisMemory struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	maxSize   int
}

// RedisOption represents an option for configuring the Redis memory
type RedisOption func(*RedisMemory)

// WithTTL sets the TTL for Redis keys
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisMemory) {
		r.ttl = ttl
	}
}

// WithKeyPrefix sets a custom prefix for Redis keys
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisMemory) {
		r.keyPrefix = prefix
	}
}

// WithRedisMaxSize trims each conversation to its most recent size messages
func WithRedisMaxSize(size int) RedisOption {
	return func(r *RedisMemory) {
		r.maxSize = size
	}
}

// RedisConfig contains configuration for Redis
type RedisConfig struct {
	// Addr is the Redis address (e.g., "localhost:6379")
	Addr string

	// Password is the Redis password
	Password string

	// DB is the Redis database number
	DB int
}

// NewRedisMemory creates a new Redis-backed memory store
func NewRedisMemory(client *redis.Client, options ...RedisOption) *RedisMemory {
	memory := &RedisMemory{
		client:    client,
		ttl:       24 * time.Hour,
		keyPrefix: "agent:memory:",
	}

	for _, option := range options {
		option(memory)
	}

	return memory
}

// NewRedisMemoryFromConfig connects to Redis and creates a memory store on it
func NewRedisMemoryFromConfig(ctx context.Context, config RedisConfig, options ...RedisOption) (*RedisMemory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisMemory(client, options...), nil
}

func (r *RedisMemory) key(ctx context.Context) (string, error) {
	key, err := conversationKey(ctx)
	if err != nil {
		return "", err
	}
	return r.keyPrefix + key, nil
}

// AddMessage adds a message to the memory
func (r *RedisMemory) AddMessage(ctx context.Context, message interfaces.Message) error {
	return r.AddMessages(ctx, []interfaces.Message{message})
}

// AddMessages appends messages in one transaction. With a max size the list
// is trimmed at a turn boundary under WATCH, retried when another writer
// changes the list in between.
func (r *RedisMemory) AddMessages(ctx context.Context, messages []interfaces.Message) error {
	if len(messages) == 0 {
		return nil
	}
	key, err := r.key(ctx)
	if err != nil {
		return err
	}

	encoded := make([]interface{}, 0, len(messages))
	for _, message := range messages {
		messageJSON, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		encoded = append(encoded, messageJSON)
	}

	push := func(pipe redis.Pipeliner, start int) error {
		pipe.RPush(ctx, key, encoded...)
		if start > 0 {
			pipe.LTrim(ctx, key, int64(start), -1)
		}
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	}

	if r.maxSize <= 0 {
		if _, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return push(pipe, 0)
		}); err != nil {
			return fmt.Errorf("failed to add messages to Redis: %w", err)
		}
		return nil
	}

	update := func(tx *redis.Tx) error {
		results, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return err
		}
		stored, err := decodeMessages(results)
		if err != nil {
			return err
		}
		start := windowStart(append(stored, messages...), r.maxSize)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return push(pipe, start)
		})
		return err
	}

	for attempt := 0; attempt < maxWatchAttempts; attempt++ {
		err = r.client.Watch(ctx, update, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to add messages to Redis: %w", err)
	}
	return nil
}

// GetMessages retrieves messages from the memory
func (r *RedisMemory) GetMessages(ctx context.Context, options ...interfaces.GetMessagesOption) ([]interfaces.Message, error) {
	key, err := r.key(ctx)
	if err != nil {
		return nil, err
	}

	results, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages from Redis: %w", err)
	}

	messages, err := decodeMessages(results)
	if err != nil {
		return nil, err
	}
	return filterMessages(messages, options...), nil
}

func decodeMessages(results []string) ([]interfaces.Message, error) {
	messages := make([]interfaces.Message, 0, len(results))
	for _, result := range results {
		var message interfaces.Message
		if err := json.Unmarshal([]byte(result), &message); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// Clear clears the memory for a conversation
func (r *RedisMemory) Clear(ctx context.Context) error {
	key, err := r.key(ctx)
	if err != nil {
		return err
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear memory in Redis: %w", err)
	}

	return nil
}

// Close closes the underlying Redis client
func (r *RedisMemory) Close() error {
	return r.client.Close()
}
