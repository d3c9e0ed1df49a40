package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisUploadTokenStore keeps outstanding one-shot upload tokens with a TTL.
// GETDEL makes Consume atomic: two concurrent uploads with the same token
// cannot both succeed.
type RedisUploadTokenStore struct {
	client *redis.Client
}

func NewRedisUploadTokenStore(client *redis.Client) *RedisUploadTokenStore {
	return &RedisUploadTokenStore{client: client}
}

func (s *RedisUploadTokenStore) key(token string) string {
	return "upload:token:" + token
}

func (s *RedisUploadTokenStore) Put(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(token), "1", ttl).Err()
}

func (s *RedisUploadTokenStore) Consume(ctx context.Context, token string) (bool, error) {
	err := s.client.GetDel(ctx, s.key(token)).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
