// Package cache wraps the Redis-backed session cache: a key/value mirror of
// session-registry membership, keyed session:{id}, used so any process can
// answer "is this session live" without owning the in-memory registry.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yourusername/meeting-intelligence/internal/logger"
)

const sessionTTL = time.Hour

// SessionCache is the key/value mirror of active sessions.
type SessionCache struct {
	rdb *redis.Client
}

// New connects to Redis using a redis:// URL as found in config.RedisURL.
func New(redisURL string) (*SessionCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &SessionCache{rdb: redis.NewClient(opts)}, nil
}

func sessionKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("session:%s", sessionID.String())
}

// Warm writes the session marker with the standard hour-long TTL. Called on
// Start.
func (c *SessionCache) Warm(ctx context.Context, sessionID uuid.UUID, state string) error {
	log := logger.WithComponent("cache")
	err := c.rdb.Set(ctx, sessionKey(sessionID), state, sessionTTL).Err()
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("failed to warm session cache entry")
		return err
	}
	return nil
}

// Invalidate removes the session marker. Called on Stop.
func (c *SessionCache) Invalidate(ctx context.Context, sessionID uuid.UUID) error {
	log := logger.WithComponent("cache")
	if err := c.rdb.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("failed to invalidate session cache entry")
		return err
	}
	return nil
}

// Get returns the cached state for a session, or redis.Nil-wrapped error if
// absent.
func (c *SessionCache) Get(ctx context.Context, sessionID uuid.UUID) (string, error) {
	return c.rdb.Get(ctx, sessionKey(sessionID)).Result()
}

// Close releases the underlying connection pool.
func (c *SessionCache) Close() error {
	return c.rdb.Close()
}
