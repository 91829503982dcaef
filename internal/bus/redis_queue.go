package bus

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue implements Queue on a Redis list.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue creates a queue backed by the Redis list at key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key}
}

// Compile-time interface check
var _ Queue = (*RedisQueue)(nil)

// Push RPUSHes values in order.
func (q *RedisQueue) Push(ctx context.Context, values ...[]byte) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return q.client.RPush(ctx, q.key, args...).Err()
}

// PopWait BLPOPs with the given timeout. redis.Nil (nothing arrived) is
// not an error; it is how the worker loops notice elapsed time.
func (q *RedisQueue) PopWait(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BLPOP returns [key, value].
	if len(res) != 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// Len returns LLEN of the backing list.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
