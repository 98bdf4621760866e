package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/temp14-service/internal/cache"
	"github.com/kjstillabower/temp14-service/internal/client"
	"github.com/kjstillabower/temp14-service/internal/models"
	"github.com/kjstillabower/temp14-service/internal/observability"
)

// CachedFetcher returns forecast payloads using a cache-aside pattern keyed by the
// normalized coordinate. Cache backend failures degrade to a miss; they never fail a fetch.
type CachedFetcher struct {
	client client.ForecastClient
	cache  cache.Cache
	ttl    time.Duration
	misses *missTracker
	logger *zap.Logger
}

// NewCachedFetcher creates a CachedFetcher. ttl is how long a payload is served from cache.
func NewCachedFetcher(forecastClient client.ForecastClient, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedFetcher {
	return &CachedFetcher{
		client: forecastClient,
		cache:  c,
		ttl:    ttl,
		misses: newMissTracker(),
		logger: logger,
	}
}

// Fetch returns the forecast payload for (lat, lon), from cache when fresh.
// Errors are the client's typed errors (*client.NetworkError, *client.UpstreamStatusError,
// *client.DecodeError); a failed fetch leaves the cache untouched.
func (f *CachedFetcher) Fetch(ctx context.Context, lat, lon float64) (models.Forecast, error) {
	coord := models.Coordinate{Lat: lat, Lon: lon}
	key := coord.Key()
	logger := observability.LoggerFromContext(ctx, f.logger)

	getStart := time.Now()
	cached, ok, err := f.cache.Get(ctx, key)
	getDuration := time.Since(getStart).Seconds()
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get", categorizeCacheError(err)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "error").Observe(getDuration)
		logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	} else {
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "success").Observe(getDuration)
		if ok {
			observability.CacheHitsTotal.Inc()
			logger.Debug("cache hit", zap.String("key", key))
			return cached, nil
		}
	}

	observability.CacheMissesTotal.Inc()
	if concurrent := f.misses.begin(key); concurrent > 1 {
		observability.CacheStampedeDetectedTotal.Inc()
	}
	defer f.misses.end(key)

	logger.Debug("cache miss, fetching upstream", zap.String("key", key))
	data, err := f.client.GetForecast(ctx, coord)
	if err != nil {
		return models.Forecast{}, err
	}

	setStart := time.Now()
	if setErr := f.cache.Set(ctx, key, data, f.ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", categorizeCacheError(setErr)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "error").Observe(time.Since(setStart).Seconds())
		logger.Warn("cache set failed", zap.String("key", key), zap.Error(setErr))
	} else {
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "success").Observe(time.Since(setStart).Seconds())
	}
	return data, nil
}

// categorizeCacheError returns a stable label for cache error metrics (timeout, connection, decode, unknown).
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return "timeout"
	case strings.Contains(errStr, "connection") || strings.Contains(errStr, "network"):
		return "connection"
	case strings.Contains(errStr, "decode"):
		return "decode"
	default:
		return "unknown"
	}
}
