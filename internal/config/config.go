package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/temp14-service/internal/models"
)

// Defaults applied when the YAML file leaves a value empty.
const (
	DefaultForecastAPIURL  = "https://api.met.no/weatherapi/locationforecast/2.0/compact"
	DefaultGeocodingAPIURL = "https://nominatim.openstreetmap.org/search"
	DefaultUserAgent       = "TestApp/1.0"
	DefaultLat             = 44.8178131
	DefaultLon             = 20.4568974
)

// Config holds service configuration loaded from YAML, .env and environment.
type Config struct {
	ServerPort string `validate:"required,numeric"`

	ForecastAPIURL   string        `validate:"required,url"`
	ForecastTimeout  time.Duration `validate:"gt=0"`
	GeocodingAPIURL  string        `validate:"required,url"`
	GeocodingTimeout time.Duration `validate:"gt=0"`
	UserAgent        string        `validate:"required"`

	RequestTimeout  time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`

	CacheTTL     time.Duration `validate:"gt=0"`
	CacheBackend string        `validate:"oneof=in_memory memcached valkey"`

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
	ValkeyAddr            string

	DefaultLocation models.Coordinate

	BreakerEnabled          bool
	BreakerFailureThreshold uint32
	BreakerOpenTimeout      time.Duration

	WarmingEnabled   bool
	WarmingInterval  time.Duration
	WarmingLocations []models.Coordinate

	DegradedWindow   time.Duration
	DegradedErrorPct int `validate:"gte=0,lte=100"`
}

type coordinateConfig struct {
	Lat *float64 `yaml:"lat"`
	Lon *float64 `yaml:"lon"`
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	ForecastAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"forecast_api"`

	GeocodingAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"geocoding_api"`

	UserAgent string `yaml:"user_agent"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Valkey struct {
			Addr string `yaml:"addr"`
		} `yaml:"valkey"`
		Warming struct {
			Enabled   bool               `yaml:"enabled"`
			Interval  string             `yaml:"interval"`
			Locations []coordinateConfig `yaml:"locations"`
		} `yaml:"warming"`
	} `yaml:"cache"`

	DefaultLocation coordinateConfig `yaml:"default_location"`

	CircuitBreaker struct {
		Enabled          bool   `yaml:"enabled"`
		FailureThreshold uint32 `yaml:"failure_threshold"`
		OpenTimeout      string `yaml:"open_timeout"`
	} `yaml:"circuit_breaker"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Health struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev), relative to the
// working directory. A .env file in the working directory is loaded first when present;
// variables already set in the environment take precedence over it.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg, err := fromFile(fc)
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fromFile applies defaults to the parsed YAML.
func fromFile(fc fileConfig) (*Config, error) {
	cfg := &Config{
		ServerPort:       orDefault(fc.Server.Port, "8080"),
		ForecastAPIURL:   orDefault(fc.ForecastAPI.URL, DefaultForecastAPIURL),
		ForecastTimeout:  parseDurationOrZero(fc.ForecastAPI.Timeout, 10*time.Second),
		GeocodingAPIURL:  orDefault(fc.GeocodingAPI.URL, DefaultGeocodingAPIURL),
		GeocodingTimeout: parseDurationOrZero(fc.GeocodingAPI.Timeout, 10*time.Second),
		UserAgent:        orDefault(fc.UserAgent, DefaultUserAgent),

		RequestTimeout:  parseDuration(fc.Request.Timeout, 15*time.Second),
		ShutdownTimeout: parseDuration(fc.Shutdown.Timeout, 30*time.Second),

		CacheTTL:     parseDuration(fc.Cache.TTL, 10*time.Minute),
		CacheBackend: strings.TrimSpace(strings.ToLower(fc.Cache.Backend)),

		MemcachedAddrs:        orDefault(fc.Cache.Memcached.Addrs, "localhost:11211"),
		MemcachedTimeout:      parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond),
		MemcachedMaxIdleConns: fc.Cache.Memcached.MaxIdleConns,
		ValkeyAddr:            orDefault(fc.Cache.Valkey.Addr, "localhost:6379"),

		BreakerEnabled:          fc.CircuitBreaker.Enabled,
		BreakerFailureThreshold: fc.CircuitBreaker.FailureThreshold,
		BreakerOpenTimeout:      parseDuration(fc.CircuitBreaker.OpenTimeout, 30*time.Second),

		WarmingEnabled:  fc.Cache.Warming.Enabled,
		WarmingInterval: parseDuration(fc.Cache.Warming.Interval, 5*time.Minute),

		DegradedWindow:   parseDuration(fc.Health.DegradedWindow, 60*time.Second),
		DegradedErrorPct: fc.Health.DegradedErrorPct,
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	if cfg.BreakerFailureThreshold == 0 {
		cfg.BreakerFailureThreshold = 5
	}
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 5
	}

	cfg.DefaultLocation = models.Coordinate{Lat: DefaultLat, Lon: DefaultLon}
	if fc.DefaultLocation.Lat != nil || fc.DefaultLocation.Lon != nil {
		loc, err := fc.DefaultLocation.coordinate()
		if err != nil {
			return nil, fmt.Errorf("default_location: %w", err)
		}
		cfg.DefaultLocation = loc
	}

	for i, l := range fc.Cache.Warming.Locations {
		loc, err := l.coordinate()
		if err != nil {
			return nil, fmt.Errorf("cache.warming.locations[%d]: %w", i, err)
		}
		cfg.WarmingLocations = append(cfg.WarmingLocations, loc)
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables when set.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND"))); v != "" {
		cfg.CacheBackend = v
	}
	if v := strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS")); v != "" {
		cfg.MemcachedAddrs = v
	}
	if v := strings.TrimSpace(os.Getenv("VALKEY_ADDR")); v != "" {
		cfg.ValkeyAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("USER_AGENT")); v != "" {
		cfg.UserAgent = v
	}
	if v := strings.TrimSpace(os.Getenv("SERVER_PORT")); v != "" {
		cfg.ServerPort = v
	}
}

func (c coordinateConfig) coordinate() (models.Coordinate, error) {
	if c.Lat == nil || c.Lon == nil {
		return models.Coordinate{}, fmt.Errorf("both lat and lon are required")
	}
	if *c.Lat < -90 || *c.Lat > 90 || *c.Lon < -180 || *c.Lon > 180 {
		return models.Coordinate{}, fmt.Errorf("coordinate (%g, %g) out of range", *c.Lat, *c.Lon)
	}
	return models.Coordinate{Lat: *c.Lat, Lon: *c.Lon}, nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero or negative durations are returned as-is so validate can reject them.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

var structValidator = validator.New()

// validate checks field constraints and raises RequestTimeout above both upstream timeouts.
func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	upstream := max(cfg.ForecastTimeout, cfg.GeocodingTimeout)
	if cfg.RequestTimeout <= upstream {
		cfg.RequestTimeout = upstream + time.Second
	}
	return nil
}
