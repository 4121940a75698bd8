package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionTTL bounds how long a mirror entry outlives its last write.
const sessionTTL = 24 * time.Hour

// Redis is the Redis-backed Cache.
type Redis struct {
	client *redis.Client
}

// NewRedisClient creates a Redis client, or nil when no address is configured.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func sessionKey(conversationID string) string {
	return "coaching:session:" + conversationID
}

func (r *Redis) GetSessionData(ctx context.Context, conversationID string) (map[string]string, error) {
	data, err := r.client.HGetAll(ctx, sessionKey(conversationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session mirror: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

func (r *Redis) SaveSessionData(ctx context.Context, conversationID string, data map[string]string) error {
	if len(data) == 0 {
		return nil
	}

	key := sessionKey(conversationID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, data)
	pipe.Expire(ctx, key, sessionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write session mirror: %w", err)
	}
	return nil
}
