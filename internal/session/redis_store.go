package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "storefront:session:"

// RedisStore backs the session table with Redis so tokens are shared across
// instances and survive restarts. Expiry is enforced twice: the stored
// timestamp is checked by the Gate and the key TTL lets Redis evict on its
// own, so PurgeExpired has nothing to do.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Put(ctx context.Context, token string, expires time.Time) error {
	ttl := time.Until(expires)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, redisKeyPrefix+token, expires.Unix(), ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, token string) (time.Time, bool, error) {
	value, err := r.client.Get(ctx, redisKeyPrefix+token).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get session: %w", err)
	}
	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt session entry: %w", err)
	}
	return time.Unix(unix, 0), true, nil
}

func (r *RedisStore) Extend(ctx context.Context, token string, expires time.Time) error {
	return r.Put(ctx, token, expires)
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, redisKeyPrefix+token).Err()
}

func (r *RedisStore) PurgeExpired(ctx context.Context, now time.Time) error {
	return nil
}

// Close releases the underlying connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
