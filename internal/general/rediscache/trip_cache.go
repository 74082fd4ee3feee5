// Package rediscache is a read-through cache in front of the hot trip
// queries (single trip lookups and the pending pool). Cache misses and
// Redis outages degrade to the database; they are never fatal.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fletea/internal/domain/trip"
	"fletea/internal/general/config"
	"fletea/internal/general/logger"
	"fletea/internal/ports"

	"github.com/redis/go-redis/v9"
)

const keyPendingPool = "trips:pending"

func keyTrip(id string) string { return "trip:" + id }

// TripCache caches trip projections in Redis with a short TTL.
type TripCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// Connect builds a Redis client from cfg and verifies connectivity.
func Connect(ctx context.Context, cfg *config.Config, log *logger.Logger) (*TripCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info(ctx, "redis_connected", "Connected to Redis", map[string]any{
		"addr":        rdb.Options().Addr,
		"ttl_seconds": int(cfg.RedisTTL().Seconds()),
	})

	return &TripCache{rdb: rdb, ttl: cfg.RedisTTL(), logger: log}, nil
}

var _ ports.TripCache = (*TripCache)(nil)

// GetTrip returns a cached trip, or (nil, false) on miss or Redis error.
func (c *TripCache) GetTrip(ctx context.Context, id string) (*trip.Trip, bool) {
	raw, err := c.rdb.Get(ctx, keyTrip(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug(ctx, "cache_get_failed", "Redis GET failed; falling back to database", map[string]any{"key": keyTrip(id)})
		}
		return nil, false
	}

	var t trip.Trip
	if err := json.Unmarshal(raw, &t); err != nil {
		// stale or corrupt entry; drop it
		c.rdb.Del(ctx, keyTrip(id))
		return nil, false
	}
	return &t, true
}

// SetTrip stores a trip under its id with the configured TTL.
func (c *TripCache) SetTrip(ctx context.Context, t *trip.Trip) {
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, keyTrip(t.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Debug(ctx, "cache_set_failed", "Redis SET failed", map[string]any{"key": keyTrip(t.ID)})
	}
}

// GetPending returns the cached pending pool, or (nil, false) on miss.
func (c *TripCache) GetPending(ctx context.Context) ([]*trip.Trip, bool) {
	raw, err := c.rdb.Get(ctx, keyPendingPool).Bytes()
	if err != nil {
		return nil, false
	}

	var trips []*trip.Trip
	if err := json.Unmarshal(raw, &trips); err != nil {
		c.rdb.Del(ctx, keyPendingPool)
		return nil, false
	}
	return trips, true
}

// SetPending stores the pending pool snapshot with the configured TTL.
func (c *TripCache) SetPending(ctx context.Context, trips []*trip.Trip) {
	raw, err := json.Marshal(trips)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, keyPendingPool, raw, c.ttl).Err(); err != nil {
		c.logger.Debug(ctx, "cache_set_failed", "Redis SET failed", map[string]any{"key": keyPendingPool})
	}
}

// Invalidate drops a trip entry and the pending pool snapshot. Called on
// every status transition so readers never see a stale lifecycle state
// beyond the TTL.
func (c *TripCache) Invalidate(ctx context.Context, tripID string) {
	if err := c.rdb.Del(ctx, keyTrip(tripID), keyPendingPool).Err(); err != nil {
		c.logger.Debug(ctx, "cache_invalidate_failed", "Redis DEL failed", map[string]any{"trip_id": tripID})
	}
}

// Close releases the underlying Redis connection.
func (c *TripCache) Close() error {
	return c.rdb.Close()
}
