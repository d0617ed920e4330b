// Package session resolves viewer coordinates. The original application
// kept these in the PHP session; here a Redis cache fronts the store
// lookup so the feed path avoids a profile query per request.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nexusfeed/internal/config"
	"nexusfeed/internal/store"
)

// Coordinates is a resolved viewer location.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// CoordinateSource resolves a viewer's location, nil when unknown.
type CoordinateSource interface {
	Coordinates(ctx context.Context, tenantID, viewerID int64) (*Coordinates, error)
}

// StoreSource reads coordinates straight from the user profile.
type StoreSource struct{ db *store.DB }

func NewStoreSource(db *store.DB) *StoreSource { return &StoreSource{db: db} }

func (s *StoreSource) Coordinates(ctx context.Context, tenantID, viewerID int64) (*Coordinates, error) {
	lat, lon, err := s.db.ViewerCoordinates(ctx, tenantID, viewerID)
	if err != nil {
		return nil, err
	}
	if lat == nil || lon == nil {
		return nil, nil
	}
	return &Coordinates{Lat: *lat, Lon: *lon}, nil
}

// RedisCache caches lookups with a TTL and falls through to next on any
// miss or Redis error. A broken cache never breaks the feed.
type RedisCache struct {
	rdb  *redis.Client
	next CoordinateSource
	ttl  time.Duration
}

func NewRedisCache(cfg config.RedisConfig, next CoordinateSource) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisCacheWithClient(rdb, next, time.Duration(cfg.TTLMinutes)*time.Minute)
}

func NewRedisCacheWithClient(rdb *redis.Client, next CoordinateSource, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisCache{rdb: rdb, next: next, ttl: ttl}
}

func coordsKey(tenantID, viewerID int64) string {
	return fmt.Sprintf("feed:coords:%d:%d", tenantID, viewerID)
}

func (c *RedisCache) Coordinates(ctx context.Context, tenantID, viewerID int64) (*Coordinates, error) {
	b, err := c.rdb.Get(ctx, coordsKey(tenantID, viewerID)).Bytes()
	if err == nil {
		var out Coordinates
		if jsonErr := json.Unmarshal(b, &out); jsonErr == nil {
			return &out, nil
		}
	}
	out, err := c.next.Coordinates(ctx, tenantID, viewerID)
	if err != nil || out == nil {
		return out, err
	}
	if b, jsonErr := json.Marshal(out); jsonErr == nil {
		// Best effort: a write failure only costs the next lookup.
		_ = c.rdb.Set(ctx, coordsKey(tenantID, viewerID), b, c.ttl).Err()
	}
	return out, nil
}
