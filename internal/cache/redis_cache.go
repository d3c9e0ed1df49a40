package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chatdesk/internal/microservices/http-api/service"

	"github.com/redis/go-redis/v9"
)

// Redis-backed caches for the chat query path. Every failure here degrades
// to a miss: the database stays the source of truth and a broken cache must
// never fail a request.

func NewRedisClient(url, password string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// RedisPageCache caches cursor-anchored message pages, which are immutable.
type RedisPageCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPageCache(client *redis.Client, ttl time.Duration) *RedisPageCache {
	return &RedisPageCache{client: client, ttl: ttl}
}

func (c *RedisPageCache) key(k string) string {
	return "chat:page:" + k
}

func (c *RedisPageCache) Get(ctx context.Context, key string) (*service.MessagePage, bool) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("page cache get failed", "error", err)
		}
		return nil, false
	}

	var page service.MessagePage
	if err := json.Unmarshal(data, &page); err != nil {
		slog.Warn("page cache entry corrupt", "error", err)
		return nil, false
	}
	return &page, true
}

func (c *RedisPageCache) Set(ctx context.Context, key string, page *service.MessagePage) {
	data, err := json.Marshal(page)
	if err != nil {
		slog.Warn("page cache marshal failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		slog.Warn("page cache set failed", "error", err)
	}
}

// RedisRoomListCache caches the enriched room list per participant,
// cache-aside with invalidation on room mutation and send.
type RedisRoomListCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRoomListCache(client *redis.Client, ttl time.Duration) *RedisRoomListCache {
	return &RedisRoomListCache{client: client, ttl: ttl}
}

func (c *RedisRoomListCache) key(participantID string) string {
	return "chat:rooms:" + participantID
}

func (c *RedisRoomListCache) Get(ctx context.Context, participantID string) ([]service.RoomWithLastMessage, bool) {
	data, err := c.client.Get(ctx, c.key(participantID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("room list cache get failed", "error", err)
		}
		return nil, false
	}

	var rooms []service.RoomWithLastMessage
	if err := json.Unmarshal(data, &rooms); err != nil {
		slog.Warn("room list cache entry corrupt", "error", err)
		return nil, false
	}
	return rooms, true
}

func (c *RedisRoomListCache) Set(ctx context.Context, participantID string, rooms []service.RoomWithLastMessage) {
	data, err := json.Marshal(rooms)
	if err != nil {
		slog.Warn("room list cache marshal failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(participantID), data, c.ttl).Err(); err != nil {
		slog.Warn("room list cache set failed", "error", err)
	}
}

func (c *RedisRoomListCache) Invalidate(ctx context.Context, participantIDs ...string) {
	if len(participantIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(participantIDs))
	for _, id := range participantIDs {
		keys = append(keys, c.key(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("room list cache invalidate failed", "error", err)
	}
}
