package core

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sisaplus/src/config"
	"sisaplus/src/models"
	"sisaplus/src/store"
	"time"

	"github.com/redis/go-redis/v9"
)

const listingCacheKey = "foods:feed"
const listingCacheTTL = 30 * time.Second

// Engine owns the Food listing lifecycle, the Booking state machine and
// pickup verification. All persistence goes through the store gateway;
// only the engine mutates Food.status and Booking.status.
type Engine struct {
	store  store.Gateway
	events Dispatcher
	cache  feedCache

	minHorizon time.Duration
	maxHorizon time.Duration
	tokenTTL   time.Duration
	now        func() time.Time
}

func New(g store.Gateway, d Dispatcher, cache *redis.Client) *Engine {
	if d == nil {
		d = NopDispatcher{}
	}
	e := &Engine{
		store:      g,
		events:     d,
		minHorizon: config.MinExpiryHorizon(),
		maxHorizon: config.MaxExpiryHorizon(),
		tokenTTL:   config.PickupTokenTTL(),
		now:        time.Now,
	}
	if cache != nil {
		e.cache = redisFeedCache{rdb: cache}
	}
	return e
}

// feedCache is the slice of the redis API the feed needs.
type feedCache interface {
	Get(ctx context.Context, key string) (string, error)
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

var errCacheMiss = errors.New("cache miss")

type redisFeedCache struct {
	rdb *redis.Client
}

func (c redisFeedCache) Get(ctx context.Context, key string) (string, error) {
	raw, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", errCacheMiss
	}
	return raw, err
}

func (c redisFeedCache) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.SetEx(ctx, key, value, ttl).Err()
}

func (c redisFeedCache) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

func (e *Engine) cachedListing(ctx context.Context) ([]models.Food, bool) {
	if e.cache == nil {
		return nil, false
	}
	raw, err := e.cache.Get(ctx, listingCacheKey)
	if err != nil {
		if !errors.Is(err, errCacheMiss) {
			log.Printf("[cache] error reading listing feed: %s\n", err.Error())
		}
		return nil, false
	}
	var foods []models.Food
	if err := json.Unmarshal([]byte(raw), &foods); err != nil {
		log.Printf("[cache] error decoding listing feed: %s\n", err.Error())
		return nil, false
	}
	return foods, true
}

func (e *Engine) storeListing(ctx context.Context, foods []models.Food) {
	if e.cache == nil {
		return
	}
	raw, err := json.Marshal(foods)
	if err != nil {
		return
	}
	if err := e.cache.SetEx(ctx, listingCacheKey, string(raw), listingCacheTTL); err != nil {
		log.Printf("[cache] error caching listing feed: %s\n", err.Error())
	}
}

// invalidateListing drops the cached feed. Called on every Food create
// and status flip; the store stays the source of truth.
func (e *Engine) invalidateListing(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Del(ctx, listingCacheKey); err != nil {
		log.Printf("[cache] error invalidating listing feed: %s\n", err.Error())
	}
}
