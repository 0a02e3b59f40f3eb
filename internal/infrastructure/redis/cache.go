// Package redis provides the session lookup cache. Sessions live in Postgres;
// this cache only shortens the hot path, mirroring a short-lived cookie cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nbeast/nbeast/internal/domain"
)

const keyPrefix = "session:"

// DefaultTTL bounds how stale a cached session may be relative to its
// database row.
const DefaultTTL = 5 * time.Minute

func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Pinger adapts the client to the health checker's error-returning Ping.
type Pinger struct {
	Client *redis.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SessionCache{client: client, ttl: ttl}
}

// Get returns the cached session, or (nil, nil) on a miss. Corrupt entries
// are dropped and reported as a miss.
func (c *SessionCache) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	raw, err := c.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		c.client.Del(ctx, keyPrefix+sessionID)
		return nil, nil
	}
	return &s, nil
}

func (c *SessionCache) Set(ctx context.Context, s *domain.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	ttl := c.ttl
	if until := time.Until(s.ExpiresAt); until > 0 && until < ttl {
		ttl = until
	}
	if err := c.client.Set(ctx, keyPrefix+s.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *SessionCache) Delete(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
