//go:build integration
// +build integration

// Package testhelpers builds service stacks against the live met.no and Nominatim APIs.
package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/temp14-service/internal/cache"
	"github.com/kjstillabower/temp14-service/internal/client"
	"github.com/kjstillabower/temp14-service/internal/config"
	"github.com/kjstillabower/temp14-service/internal/observability"
	"github.com/kjstillabower/temp14-service/internal/service"
	"github.com/kjstillabower/temp14-service/internal/timezone"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	ForecastURL   string
	GeocodingURL  string
	UserAgent     string
	CacheBackend  string // "in_memory", "memcached" or "valkey"
	MemcachedAddr string
	ValkeyAddr    string
}

// Stack is a fully wired service layer.
type Stack struct {
	Forecasts *service.ForecastService
	Places    *service.GeocodingService
	Fetcher   *service.CachedFetcher
	Cache     cache.Cache
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips the test unless TEMP14_INTEGRATION=1, since it calls public APIs.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	if os.Getenv("TEMP14_INTEGRATION") != "1" {
		t.Skip("TEMP14_INTEGRATION not set, skipping integration test")
	}
	userAgent := os.Getenv("USER_AGENT")
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}
	valkeyAddr := os.Getenv("VALKEY_ADDR")
	if valkeyAddr == "" {
		valkeyAddr = "localhost:6379"
	}
	return IntegrationTestConfig{
		ForecastURL:   config.DefaultForecastAPIURL,
		GeocodingURL:  config.DefaultGeocodingAPIURL,
		UserAgent:     userAgent,
		CacheBackend:  os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr: memcachedAddr,
		ValkeyAddr:    valkeyAddr,
	}
}

// SetupIntegrationStack wires real clients, the timezone resolver and the configured cache.
// Unreachable networked caches fall back to in-memory. Cleanup is registered on t.
func SetupIntegrationStack(t *testing.T, cfg IntegrationTestConfig) *Stack {
	t.Helper()
	logger, err := observability.NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	forecastClient, err := client.NewMetNoClient(cfg.ForecastURL, cfg.UserAgent, 10*time.Second)
	if err != nil {
		t.Fatalf("NewMetNoClient() error = %v", err)
	}
	geocoder, err := client.NewNominatimClient(cfg.GeocodingURL, cfg.UserAgent, 10*time.Second)
	if err != nil {
		t.Fatalf("NewNominatimClient() error = %v", err)
	}
	resolver, err := timezone.NewResolver()
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}

	var c cache.Cache = cache.NewInMemoryCache()
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		if err == nil && mc.Ping() == nil {
			c = mc
			t.Cleanup(func() { _ = mc.Close() })
			t.Logf("Using Memcached cache at %s", cfg.MemcachedAddr)
		} else {
			t.Logf("Memcached not available, using in-memory cache")
		}
	case "valkey":
		vc, err := cache.NewValkeyCache(cfg.ValkeyAddr)
		if err == nil {
			c = vc
			t.Cleanup(func() { _ = vc.Close() })
			t.Logf("Using Valkey cache at %s", cfg.ValkeyAddr)
		} else {
			t.Logf("Valkey not available (%v), using in-memory cache", err)
		}
	}

	fetcher := service.NewCachedFetcher(forecastClient, c, 10*time.Minute, logger)
	return &Stack{
		Forecasts: service.NewForecastService(fetcher, resolver, logger),
		Places:    service.NewGeocodingService(geocoder, logger),
		Fetcher:   fetcher,
		Cache:     c,
	}
}
