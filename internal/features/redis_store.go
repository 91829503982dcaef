package features

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateKey returns the Redis key for a player's state hash.
func StateKey(playerID int64) string {
	return fmt.Sprintf("player:state:%d", playerID)
}

// RedisStore implements Store using Redis hashes with a TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed feature store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Compile-time interface check
var _ Store = (*RedisStore)(nil)

// Get loads a player's state hash. An empty hash means no state.
func (r *RedisStore) Get(ctx context.Context, playerID int64) (*PlayerState, error) {
	m, err := r.client.HGetAll(ctx, StateKey(playerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load player state %d: %w", playerID, err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return FromMap(playerID, m), nil
}

// Put upserts the state hash and refreshes its expiry in one pipeline.
func (r *RedisStore) Put(ctx context.Context, state *PlayerState, ttl time.Duration) error {
	key := StateKey(state.PlayerID)
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, state.ToMap())
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist player state %d: %w", state.PlayerID, err)
	}
	return nil
}
