package cache

import (
	"context"
	"errors"
	"fmt"
	"state-time-service/internal/domain"
	"state-time-service/internal/platform/obs"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "statetime:cells"

// RedisCellStore keeps the cell cache in a single Redis hash, shared by
// concurrent runs. Writes use HSETNX so the first writer of a cell wins.
type RedisCellStore struct {
	client *redis.Client
	key    string
}

func NewRedisCellStore(client *redis.Client, key string) *RedisCellStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisCellStore{client: client, key: key}
}

func (s *RedisCellStore) Load(ctx context.Context) (_ map[string]string, err error) {
	defer obs.Time(ctx, "cell.redis.Load")(&err)

	if s.client == nil {
		return nil, errors.New("cell cache: redis client is nil")
	}

	m, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: hgetall %s: %v", domain.ErrCacheLoad, s.key, err)
	}
	return m, nil
}

func (s *RedisCellStore) Save(ctx context.Context, cells map[string]string) (err error) {
	defer obs.Time(ctx, "cell.redis.Save")(&err)

	if s.client == nil {
		return errors.New("cell cache: redis client is nil")
	}

	if len(cells) == 0 {
		return nil
	}

	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for cell, state := range cells {
			p.HSetNX(ctx, s.key, cell, state)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save cell cache: %w", err)
	}
	return nil
}
