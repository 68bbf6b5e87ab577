package weather

import (
	"context"
	"time"

	"lintang/knooppuntx/pkg/datastructure"
	"lintang/knooppuntx/pkg/kv"

	"go.uber.org/zap"
)

const (
	NowTTL      = 10 * time.Minute
	ForecastTTL = time.Hour
)

type Cache interface {
	Get(key string, out any) (bool, error)
	Put(key string, value any, ttl time.Duration) error
}

// CachedProvider keys samples by h3 cell so nearby requests share one upstream call.
type CachedProvider struct {
	inner Provider
	cache Cache
	log   *zap.Logger
}

func NewCachedProvider(inner Provider, cache Cache, log *zap.Logger) *CachedProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedProvider{inner: inner, cache: cache, log: log}
}

func (c *CachedProvider) WindNow(ctx context.Context, lat, lon float64) (datastructure.WindSample, error) {
	key := kv.CellKey("wind", lat, lon, "now")
	return c.cached(key, NowTTL, func() (datastructure.WindSample, error) {
		return c.inner.WindNow(ctx, lat, lon)
	})
}

func (c *CachedProvider) WindAt(ctx context.Context, lat, lon float64, at time.Time) (datastructure.WindSample, error) {
	key := kv.CellKey("forecast", lat, lon, at.UTC().Truncate(time.Hour).Format(hourLayout))
	return c.cached(key, ForecastTTL, func() (datastructure.WindSample, error) {
		return c.inner.WindAt(ctx, lat, lon, at)
	})
}

func (c *CachedProvider) cached(key string, ttl time.Duration,
	fetch func() (datastructure.WindSample, error)) (datastructure.WindSample, error) {
	var sample datastructure.WindSample
	ok, err := c.cache.Get(key, &sample)
	if err != nil {
		c.log.Warn("wind cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		return sample, nil
	}
	sample, err = fetch()
	if err != nil {
		return sample, err
	}
	if err := c.cache.Put(key, sample, ttl); err != nil {
		c.log.Warn("wind cache write failed", zap.String("key", key), zap.Error(err))
	}
	return sample, nil
}
