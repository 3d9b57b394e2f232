package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"gym_backoffice_echo/internal/models"
)

// Entity names a cached read feed
type Entity string

const (
	EntityPayments Entity = "payments"
	EntitySocios   Entity = "socios"
	EntityShares   Entity = "shares"
	EntityUsers    Entity = "users"
)

// dependents lists the feeds embedding an entity, which go stale with it
var dependents = map[Entity][]Entity{
	EntityUsers:    {EntitySocios, EntityPayments},
	EntitySocios:   {EntityPayments},
	EntityShares:   {EntityPayments},
	EntityPayments: nil,
}

const periodLockTTL = 30 * time.Second

// Cache keeps full read feeds per entity type in Redis. Each entity has a
// generation counter and feeds are stored under their generation, so
// invalidating is a counter bump: a load that started before the bump
// writes under the old generation, which is never read again.
// Concurrent misses on one feed share a single load.
// A nil *Cache, or one without Redis, always loads from the database.
type Cache struct {
	redis *RedisCache
	ttl   time.Duration
	group singleflight.Group
}

func NewCache(redis *RedisCache, ttl time.Duration) *Cache {
	return &Cache{redis: redis, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.redis != nil
}

func generationKey(e Entity) string {
	return "gen:" + string(e)
}

func feedKey(e Entity, generation int64) string {
	return fmt.Sprintf("feed:%s:%d", e, generation)
}

// LoadFeed returns the cached feed for entity, calling fn on a miss
func LoadFeed[T any](ctx context.Context, c *Cache, entity Entity, fn func() (T, error)) (T, error) {
	if !c.enabled() {
		return fn()
	}

	// Read before loading, so a concurrent Invalidate retires this load
	generation, err := c.redis.Counter(ctx, generationKey(entity))
	if err != nil {
		log.Printf("Cache generation unavailable for %s: %v", entity, err)
		return fn()
	}

	key := feedKey(entity, generation)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return GetOrSet(c.redis, ctx, key, c.ttl, fn)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate retires the feeds of the given entities and of everything embedding them
func (c *Cache) Invalidate(ctx context.Context, entities ...Entity) {
	if !c.enabled() {
		return
	}

	stale := invalidatedEntities(entities...)
	keys := make([]string, len(stale))
	for i, e := range stale {
		keys[i] = generationKey(e)
	}
	if err := c.redis.Incr(ctx, keys...); err != nil {
		log.Printf("Failed to invalidate cache %v: %v", stale, err)
	}
}

func invalidatedEntities(entities ...Entity) []Entity {
	seen := make(map[Entity]bool)
	var out []Entity
	var visit func(e Entity)
	visit = func(e Entity) {
		if seen[e] {
			return
		}
		seen[e] = true
		out = append(out, e)
		for _, d := range dependents[e] {
			visit(d)
		}
	}
	for _, e := range entities {
		visit(e)
	}
	return out
}

// LockPeriod takes a short-lived lock serialising generation for one period
// across server instances. Redis failures fall back to the database unique
// index, so only a held lock is reported as an error. unlock releases the
// lock only while this caller still owns it.
func (c *Cache) LockPeriod(ctx context.Context, period models.Period) (unlock func(), err error) {
	noop := func() {}
	if !c.enabled() {
		return noop, nil
	}

	key := "lock:generate:" + period.String()
	token := uuid.NewString()
	ok, err := c.redis.SetNX(ctx, key, token, periodLockTTL)
	if err != nil {
		log.Printf("Generation lock unavailable for %s: %v", period, err)
		return noop, nil
	}
	if !ok {
		return nil, ErrGenerationInProgress
	}

	return func() {
		released, err := c.redis.DeleteIfValue(context.Background(), key, token)
		if err != nil {
			log.Printf("Failed to release generation lock %s: %v", key, err)
			return
		}
		if !released {
			log.Printf("Generation lock %s expired before release", key)
		}
	}, nil
}
