package membership

import (
	"context"
	"fmt"
	"log"
	"time"

	"threadview/api/internal/thread"

	"github.com/redis/go-redis/v9"
)

// RedisCache remembers definite membership answers of another oracle.
type RedisCache struct {
	client *redis.Client
	next   Oracle
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to redisURL and wraps next.
func NewRedisCache(redisURL string, next Oracle, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client, next, ttl), nil
}

// NewRedisCacheWithClient wraps next using an existing Redis client.
func NewRedisCacheWithClient(client *redis.Client, next Oracle, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{
		client: client,
		next:   next,
		prefix: "membership:",
		ttl:    ttl,
	}
}

func (c *RedisCache) key(viewerID, serverID string) string {
	return c.prefix + serverID + ":" + viewerID
}

// Lookup serves a cached answer when present. Redis failures fall through
// to the wrapped oracle; Unknown is never cached.
func (c *RedisCache) Lookup(ctx context.Context, viewerID, serverID string) (thread.Membership, error) {
	key := c.key(viewerID, serverID)
	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		if status := thread.ParseMembership(cached); status != thread.Unknown {
			lookups.WithLabelValues(string(status), "hit").Inc()
			return status, nil
		}
	case err != redis.Nil:
		log.Printf("membership: cache read %s: %v", key, err)
	}

	status, err := c.next.Lookup(ctx, viewerID, serverID)
	if err != nil {
		lookups.WithLabelValues(string(thread.Unknown), "error").Inc()
		return thread.Unknown, err
	}
	lookups.WithLabelValues(string(status), "miss").Inc()
	if status == thread.Unknown {
		return status, nil
	}
	if err := c.client.Set(ctx, key, string(status), c.ttl).Err(); err != nil {
		log.Printf("membership: cache write %s: %v", key, err)
	}
	return status, nil
}

// Invalidate forgets the cached answer, e.g. after a join or leave event.
func (c *RedisCache) Invalidate(ctx context.Context, viewerID, serverID string) error {
	if err := c.client.Del(ctx, c.key(viewerID, serverID)).Err(); err != nil {
		return fmt.Errorf("invalidate membership: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
