package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultHashKey = "presence:connections"

// RedisStore keeps connection counts in a Redis hash so multiple server
// processes share one presence view. HIncrBy serializes per-user count
// mutations on the Redis side.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a RedisStore on an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, key: defaultHashKey}
}

// Connect increments the user's connection count.
func (s *RedisStore) Connect(ctx context.Context, userID string) (int, error) {
	count, err := s.client.HIncrBy(ctx, s.key, userID, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("presence connect: %w", err)
	}
	return int(count), nil
}

// Disconnect decrements the user's connection count and deletes the field
// once it reaches zero.
func (s *RedisStore) Disconnect(ctx context.Context, userID string) (int, error) {
	count, err := s.client.HIncrBy(ctx, s.key, userID, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("presence disconnect: %w", err)
	}
	if count <= 0 {
		if err := s.client.HDel(ctx, s.key, userID).Err(); err != nil {
			return 0, fmt.Errorf("presence cleanup: %w", err)
		}
		return 0, nil
	}
	return int(count), nil
}

// OnlineUsers returns all user ids with live connections.
func (s *RedisStore) OnlineUsers(ctx context.Context) ([]string, error) {
	ids, err := s.client.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("presence online users: %w", err)
	}
	return ids, nil
}

// IsOnline reports whether the user has a live connection.
func (s *RedisStore) IsOnline(ctx context.Context, userID string) (bool, error) {
	count, err := s.client.HGet(ctx, s.key, userID).Int()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("presence is online: %w", err)
	}
	return count > 0, nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
