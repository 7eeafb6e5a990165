// internal/history/redis.go
package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"medsearch-service/internal/models"
)

// RedisStore keeps queries in one sorted set scored by timestamp in
// microseconds; members are the JSON-encoded query.
type RedisStore struct {
	rdb redis.Cmdable
	key string
}

func NewRedisStore(rdb redis.Cmdable, key string) *RedisStore {
	if key == "" {
		key = "medication_searches"
	}
	return &RedisStore{rdb: rdb, key: key}
}

func (s *RedisStore) Insert(ctx context.Context, q models.Query) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	member := redis.Z{Score: float64(q.Timestamp.UnixMicro()), Member: string(data)}
	if err := s.rdb.ZAdd(ctx, s.key, member).Err(); err != nil {
		return fmt.Errorf("zadd history entry: %w", err)
	}
	return nil
}

func (s *RedisStore) FindSorted(ctx context.Context, limit int) ([]models.Query, error) {
	members, err := s.rdb.ZRevRange(ctx, s.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange history: %w", err)
	}

	out := make([]models.Query, 0, len(members))
	for _, m := range members {
		var q models.Query
		if err := json.Unmarshal([]byte(m), &q); err != nil {
			// skip foreign members rather than failing the whole read
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Name() string { return "redis" }
