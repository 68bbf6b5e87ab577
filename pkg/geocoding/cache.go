package geocoding

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultCacheTTL = 24 * time.Hour

// Cache persisted TTL cache, see kv.KVDB.
type Cache interface {
	Get(key string, out any) (bool, error)
	Put(key string, value any, ttl time.Duration) error
}

type cachedGeocoder struct {
	inner Geocoder
	cache Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedGeocoder caches successful lookups by normalized address. Cache failures fall through to inner.
func NewCachedGeocoder(inner Geocoder, cache Cache, ttl time.Duration, log *zap.Logger) Geocoder {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &cachedGeocoder{inner: inner, cache: cache, ttl: ttl, log: log}
}

func (c *cachedGeocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	key := "geocode:" + strings.ToLower(strings.TrimSpace(address))
	var cached Result
	ok, err := c.cache.Get(key, &cached)
	if err != nil {
		c.log.Warn("geocode cache read failed", zap.Error(err))
	}
	if ok {
		return &cached, nil
	}

	res, err := c.inner.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(key, *res, c.ttl); err != nil {
		c.log.Warn("geocode cache write failed", zap.Error(err))
	}
	return res, nil
}
