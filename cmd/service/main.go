package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kjstillabower/temp14-service/internal/cache"
	"github.com/kjstillabower/temp14-service/internal/client"
	"github.com/kjstillabower/temp14-service/internal/config"
	httphandler "github.com/kjstillabower/temp14-service/internal/http"
	"github.com/kjstillabower/temp14-service/internal/lifecycle"
	"github.com/kjstillabower/temp14-service/internal/observability"
	"github.com/kjstillabower/temp14-service/internal/service"
	"github.com/kjstillabower/temp14-service/internal/timezone"
	"github.com/kjstillabower/temp14-service/internal/traffic"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	forecastClient, err := client.NewMetNoClient(cfg.ForecastAPIURL, cfg.UserAgent, cfg.ForecastTimeout)
	if err != nil {
		logger.Fatal("forecast client", zap.Error(err))
	}
	if cfg.BreakerEnabled {
		cb := client.NewCircuitBreaker(client.BreakerConfig{
			Name:             "forecast_api",
			FailureThreshold: int(cfg.BreakerFailureThreshold),
			Timeout:          cfg.BreakerOpenTimeout,
			OnStateChange: func(from, to gobreaker.State) {
				logger.Warn("circuit breaker state change", zap.String("from", from.String()), zap.String("to", to.String()))
			},
		})
		forecastClient.SetCircuitBreaker(cb)
		logger.Info("circuit breaker enabled", zap.Uint32("failure_threshold", cfg.BreakerFailureThreshold), zap.Duration("timeout", cfg.BreakerOpenTimeout))
	}

	geocoder, err := client.NewNominatimClient(cfg.GeocodingAPIURL, cfg.UserAgent, cfg.GeocodingTimeout)
	if err != nil {
		logger.Fatal("geocoding client", zap.Error(err))
	}

	resolver, err := timezone.NewResolver()
	if err != nil {
		logger.Fatal("timezone resolver", zap.Error(err))
	}

	backend, err := newCacheBackend(cfg, logger)
	if err != nil {
		logger.Fatal("cache backend", zap.Error(err))
	}

	fetcher := service.NewCachedFetcher(forecastClient, backend.cache, cfg.CacheTTL, logger)
	forecasts := service.NewForecastService(fetcher, resolver, logger)
	places := service.NewGeocodingService(geocoder, logger)

	warmer := cache.NewCacheWarmer(fetcher, logger)
	if cfg.WarmingEnabled && len(cfg.WarmingLocations) > 0 {
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := warmer.Warm(warmCtx, cfg.WarmingLocations); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		warmCancel()
		if err := warmer.StartPeriodic(cfg.WarmingLocations, cfg.WarmingInterval); err != nil {
			logger.Error("periodic cache warming not started", zap.Error(err))
		}
	}

	state := lifecycle.New()
	healthConfig := &httphandler.HealthConfig{
		DegradedWindow:   cfg.DegradedWindow,
		DegradedErrorPct: cfg.DegradedErrorPct,
		CachePing:        backend.ping,
	}
	handler := httphandler.NewHandler(forecasts, places, cfg.DefaultLocation, state, traffic.NewWindow(), healthConfig, logger)
	router := httphandler.NewRouter(handler, logger, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	state.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	if err := httphandler.WaitForInFlight(shutdownCtx, 100*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	warmer.Stop()
	if backend.close != nil {
		if err := backend.close(); err != nil {
			logger.Error("cache close", zap.Error(err))
		}
	}
	if err := observability.FlushTelemetry(logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
	logger.Info("shutdown complete")
}

// cacheBackend bundles the configured cache with its health probe and closer.
// ping and close are nil for the in-memory backend.
type cacheBackend struct {
	cache cache.Cache
	ping  func() error
	close func() error
}

func newCacheBackend(cfg *config.Config, logger *zap.Logger) (cacheBackend, error) {
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return cacheBackend{}, fmt.Errorf("memcached: %w", err)
		}
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
		return cacheBackend{cache: mc, ping: mc.Ping, close: mc.Close}, nil
	case "valkey":
		vc, err := cache.NewValkeyCache(cfg.ValkeyAddr)
		if err != nil {
			return cacheBackend{}, fmt.Errorf("valkey: %w", err)
		}
		logger.Info("cache backend: valkey", zap.String("addr", cfg.ValkeyAddr))
		return cacheBackend{cache: vc, ping: vc.Ping, close: vc.Close}, nil
	case "in_memory", "":
		logger.Info("cache backend: in_memory")
		return cacheBackend{cache: cache.NewInMemoryCache()}, nil
	default:
		return cacheBackend{}, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
