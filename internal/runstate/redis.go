package runstate

import (
	"context"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/linksuggest/pkg/redis"
)

// RedisStore keeps run state in Redis so any server instance can serve the
// next chunk of a run.
type RedisStore struct {
	client *pkgredis.Client
}

func NewRedisStore(client *pkgredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.GetBytes(ctx, key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl)
}

func (s *RedisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl)
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...)
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	return s.client.DeleteByPrefix(ctx, prefix)
}
