package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pizza-service/internal/common/config"
	"pizza-service/internal/models"

	"github.com/redis/go-redis/v9"
)

// Store is the valid-session set.
type Store interface {
	Add(ctx context.Context, s models.Session, ttl time.Duration) error
	Exists(ctx context.Context, token string) (bool, error)
	Remove(ctx context.Context, token string) error
	// Prune deletes sessions that expired at or before now.
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// NewStore selects the backend named by kind.
func NewStore(kind string, db *sql.DB, rdb redis.Cmdable) (Store, error) {
	switch kind {
	case config.SessionStorePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres session store needs a database")
		}
		return NewPostgresStore(db), nil
	case config.SessionStoreRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis session store needs a redis client")
		}
		return NewRedisStore(rdb), nil
	case config.SessionStoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", kind)
	}
}
