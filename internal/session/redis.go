package session

import (
	"context"
	"time"

	"pizza-service/internal/models"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore keeps one key per token. Keys expire with the token when a
// ttl is configured.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(token string) string {
	return redisKeyPrefix + token
}

func (r *RedisStore) Add(ctx context.Context, s models.Session, ttl time.Duration) error {
	return r.client.Set(ctx, redisKey(s.Token), s.UserID, ttl).Err()
}

func (r *RedisStore) Exists(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisStore) Remove(ctx context.Context, token string) error {
	return r.client.Del(ctx, redisKey(token)).Err()
}

// Prune is a no-op: redis expires the keys itself.
func (r *RedisStore) Prune(context.Context, time.Time) (int64, error) {
	return 0, nil
}
